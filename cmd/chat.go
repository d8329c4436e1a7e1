// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"
	"os"
	"strings"
	"time"

	"atomicgo.dev/cursor"
	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/charmbracelet/glamour"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"qlens/cli/internal/chat"
	"qlens/cli/internal/errs"
	"qlens/cli/internal/logging"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var chatShowHistory bool

// chatCmd opens an interactive conversation against one project's database.
var chatCmd = &cobra.Command{
	Use:   "chat <project-id>",
	Short: "Ask questions about a project's database",
	Long: `The chat command opens an interactive session where you ask questions in
plain language or paste SQL directly. Answers come back as text or as an
explained query result. Type 'exit' to leave; the conversation is kept
locally and restored next time.`,
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		if a.sessions.Current() == nil {
			pterm.Println("❌ You need to be logged in to chat")
			pterm.Println("   Please run: qlens login")
			return nil
		}
		id, err := parseProjectID(args[0])
		if err != nil {
			return err
		}

		mgr := chat.NewManager(id, a.client, a.pipeline, a.store, a.log)
		mgr.Activate(cmd.Context())

		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			return err
		}

		if chatShowHistory {
			msgs := mgr.Messages()
			if len(msgs) == 0 {
				pterm.Println("No conversation yet for this project.")
				return nil
			}
			printHistory(renderer, msgs)
			return nil
		}

		if prior := mgr.Messages(); len(prior) > 0 {
			pterm.Printf("Restored %d earlier messages. Type 'history' to review them.\n", len(prior))
		}
		pterm.Println("Ask about your database. Type 'exit' to quit.")
		pterm.Println()

		for {
			var input string
			err := survey.AskOne(&survey.Input{Message: ">"}, &input)
			if errors.Is(err, terminal.InterruptErr) {
				return nil
			}
			if err != nil {
				return err
			}

			switch strings.TrimSpace(strings.ToLower(input)) {
			case "exit", "quit":
				return nil
			case "history":
				printHistory(renderer, mgr.Messages())
				continue
			case "":
				continue
			}

			cursor.Hide()
			stopSpinner := startInlineSpinner(os.Stdout, "Thinking...", spinnerFrames, 120*time.Millisecond)
			reply, err := mgr.Send(cmd.Context(), input)
			stopSpinner()
			cursor.Show()

			if err != nil {
				if errs.IsKind(err, errs.Validation) {
					pterm.Warning.Println(errs.MessageOf(err))
					continue
				}
				pterm.Error.Println(logging.PresentError("request failed", err))
				continue
			}
			printMarkdown(renderer, reply.Content)
		}
	},
}

func init() {
	chatCmd.Flags().BoolVar(&chatShowHistory, "history", false, "Print the conversation and exit")
	rootCmd.AddCommand(chatCmd)
}

func printHistory(r *glamour.TermRenderer, msgs []chat.Message) {
	for _, m := range msgs {
		if m.Role == chat.RoleUser {
			pterm.Printf("%s %s\n", pterm.Cyan(">"), m.Content)
			continue
		}
		printMarkdown(r, m.Content)
	}
}

// printMarkdown renders assistant replies through glamour, falling back to
// plain output when rendering fails.
func printMarkdown(r *glamour.TermRenderer, content string) {
	out, err := r.Render(content)
	if err != nil {
		pterm.Println(content)
		return
	}
	pterm.Print(out)
}
