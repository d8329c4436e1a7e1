// Copyright (c) 2025 Quantum Lens
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package cmd provides the command-line interface for the qlens client.
// It implements subcommands for authentication, project management, and
// the conversational SQL workspace using the Cobra framework, with pterm
// for terminal presentation.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var showVersion bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "qlens",
	Short:         "Quantum Lens terminal client for AI-assisted SQL workspaces",
	Long:          `qlens talks to a Quantum Lens backend: manage projects, inspect database connections, and ask questions about your data in natural language or SQL.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Printf("qlens %s\n", Version)
			return nil
		}
		return cmd.Help()
	},
}

// Execute runs the CLI application.
func Execute() {
	defer closeApp()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "Show version information")
}
