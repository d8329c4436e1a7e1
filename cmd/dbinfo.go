// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"qlens/cli/internal/logging"
)

// dbinfoCmd shows the live schema summary of a project's database as
// reported by the server. No connection is opened from this machine.
var dbinfoCmd = &cobra.Command{
	Use:   "dbinfo <project-id>",
	Short: "Show database schema info for a project",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		if a.sessions.Current() == nil {
			pterm.Println("❌ You need to be logged in to view database info")
			pterm.Println("   Please run: qlens login")
			return nil
		}
		id, err := parseProjectID(args[0])
		if err != nil {
			return err
		}

		info, err := a.projects.DatabaseInfo(cmd.Context(), id)
		if err != nil {
			pterm.Error.Println(logging.PresentError("failed to fetch database info", err))
			return err
		}

		pterm.DefaultBox.
			WithTitle(pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint("Database")).
			WithTopPadding(1).
			WithBottomPadding(1).
			WithLeftPadding(1).
			WithRightPadding(1).
			Printfln("%s (%s)", info.DatabaseName, connectionLabel(info.ConnectionStatus))
		pterm.Println()

		if len(info.Tables) == 0 {
			pterm.Println("No tables reported.")
			return nil
		}
		rows := pterm.TableData{{"Table", "Rows", "Columns"}}
		for _, t := range info.Tables {
			rows = append(rows, []string{t.Name, strconv.Itoa(t.RowCount), strconv.Itoa(t.ColumnCount)})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}

func init() {
	rootCmd.AddCommand(dbinfoCmd)
}

// connectionLabel renders the backend's connection flag the way the
// dashboard shows it.
func connectionLabel(ok bool) string {
	if ok {
		return "connected"
	}
	return "disconnected"
}
