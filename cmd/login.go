// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/AlecAivazis/survey/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"qlens/cli/internal/errs"
	"qlens/cli/internal/logging"
	"qlens/cli/internal/session"
)

var loginEmail string

// loginCmd authenticates against the backend with email and password and
// stores the resulting session.
var loginCmd = &cobra.Command{
	Use:     "login",
	Aliases: []string{"auth"},
	Short:   "Sign in to Quantum Lens",
	Long: `The login command authenticates with your Quantum Lens account. The
session token is stored in the OS keychain (or the local state directory
when no keychain is available) and attached to every subsequent request.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		if s := a.sessions.Current(); s != nil && s.User.Email != "" {
			pterm.Printf("Already logged in as %s\n", s.User.Email)
			pterm.Println("Run 'qlens logout' first to switch accounts.")
			return nil
		}

		creds := session.Credentials{Email: loginEmail}
		if creds.Email == "" {
			if err := survey.AskOne(&survey.Input{Message: "Email:"}, &creds.Email); err != nil {
				return err
			}
		}
		if err := survey.AskOne(&survey.Password{Message: "Password:"}, &creds.Password); err != nil {
			return err
		}

		s, err := a.sessions.Login(cmd.Context(), creds)
		if err != nil {
			if errs.IsKind(err, errs.Auth) {
				pterm.Error.Println("Invalid credentials")
				return nil
			}
			pterm.Error.Println(logging.PresentError("login failed", err))
			return err
		}
		pterm.Success.Printf("Welcome back, %s!\n", s.User.Name)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
}
