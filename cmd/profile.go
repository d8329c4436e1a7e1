// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"github.com/AlecAivazis/survey/v2"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"qlens/cli/internal/api"
	"qlens/cli/internal/logging"
)

var (
	profileName     string
	profilePassword bool
)

// profileCmd updates the account profile (display name, password).
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update your account profile",

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := getApp()
		if err != nil {
			return err
		}
		if a.sessions.Current() == nil {
			pterm.Println("Not logged in. Run: qlens login")
			return nil
		}

		upd := api.ProfileUpdate{Name: profileName}
		if profilePassword {
			if err := survey.AskOne(&survey.Password{Message: "Current password:"}, &upd.CurrentPassword); err != nil {
				return err
			}
			if err := survey.AskOne(&survey.Password{Message: "New password:"}, &upd.NewPassword); err != nil {
				return err
			}
			if err := survey.AskOne(&survey.Password{Message: "Confirm new password:"}, &upd.ConfirmPassword); err != nil {
				return err
			}
		}
		if upd == (api.ProfileUpdate{}) {
			return cmd.Help()
		}

		s, err := a.sessions.UpdateProfile(cmd.Context(), upd)
		if err != nil {
			pterm.Error.Println(logging.PresentError("profile update failed", err))
			return err
		}
		pterm.Success.Printf("Profile updated for %s\n", s.User.Email)
		return nil
	},
}

func init() {
	profileCmd.Flags().StringVar(&profileName, "name", "", "New display name")
	profileCmd.Flags().BoolVar(&profilePassword, "password", false, "Change the account password")
	rootCmd.AddCommand(profileCmd)
}
