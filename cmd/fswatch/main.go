// Package main is the entry point for the fswatch command.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vistta-org/fs/internal/config"
)

var rootCommand = &cobra.Command{
	Use:   "fswatch",
	Short: "Watch directory trees for file changes",
	Long: `fswatch watches every file under one or more roots and reports changed
paths. Roots can be local directories or refs of a git repository.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var rootConfiguration struct {
	// configFile is an explicit configuration file path.
	configFile string
}

func init() {
	// Grab a handle for the persistent flags shared by every command.
	flags := rootCommand.PersistentFlags()

	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	flags.StringVarP(&rootConfiguration.configFile, "config", "c", "", "configuration file path")
	config.RegisterFlags(flags)

	rootCommand.AddCommand(
		watchCommand,
		serveCommand,
		statCommand,
		moveCommand,
	)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		os.Exit(1)
	}
}
