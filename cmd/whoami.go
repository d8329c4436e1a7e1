package cmd

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// whoamiCmd shows the current session without a network call.
var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current account",

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		s := a.sessions.Current()
		if s == nil {
			pterm.Println("Not logged in. Run: qlens login")
			return nil
		}
		if s.User.Email != "" {
			pterm.Printf("%s <%s>\n", s.User.Name, s.User.Email)
		} else {
			pterm.Println("Logged in")
		}
		if exp, ok := a.sessions.TokenExpiry(); ok {
			if time.Now().After(exp) {
				pterm.Warning.Println("Session token has expired; run 'qlens login' again.")
			} else {
				pterm.Printf("Session valid until %s\n", exp.Local().Format(time.RFC1123))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
