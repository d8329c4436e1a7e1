// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"errors"

	"github.com/AlecAivazis/survey/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"qlens/cli/internal/errs"
	"qlens/cli/internal/logging"
	"qlens/cli/internal/session"
)

// registerCmd creates a new account and signs in.
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a Quantum Lens account",

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}

		var p session.Profile
		var confirm string
		qs := []*survey.Question{
			{Name: "name", Prompt: &survey.Input{Message: "Name:"}},
			{Name: "email", Prompt: &survey.Input{Message: "Email:"}},
		}
		if err := survey.Ask(qs, &p); err != nil {
			return err
		}
		if err := survey.AskOne(&survey.Password{Message: "Password:"}, &p.Password); err != nil {
			return err
		}
		if err := survey.AskOne(&survey.Password{Message: "Confirm password:"}, &confirm); err != nil {
			return err
		}
		if p.Password != confirm {
			return errors.New("passwords do not match")
		}

		s, err := a.sessions.Register(cmd.Context(), p)
		if err != nil {
			if errs.IsKind(err, errs.Validation) {
				pterm.Error.Println(errs.MessageOf(err))
				return nil
			}
			pterm.Error.Println(logging.PresentError("registration failed", err))
			return err
		}
		pterm.Success.Printf("Account created. Welcome, %s!\n", s.User.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
}
