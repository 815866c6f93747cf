// Package main provides the entry point for the patchtally CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/Sumatoshi-tech/patchtally/cmd/patchtally/commands"
	"github.com/Sumatoshi-tech/patchtally/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := commands.NewRootCommand(commands.DefaultDeps())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(commands.ExitCode(err))
	}
}
