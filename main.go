// Package main is the entry point for the Quantum Lens CLI application.
// It provides AI-assisted SQL workspace access from the terminal.
package main

import (
	"qlens/cli/cmd"
)

func main() {
	cmd.Execute()
}
