// Package cli provides the Cobra-based command set for m9aup. It defines
// the update commands (run, check, clean) and configuration commands
// (init, version), wires configuration and logging into the update
// pipeline, and maps categorized errors to process exit codes.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m9a-tools/m9aup/internal/config"
	apperrors "github.com/m9a-tools/m9aup/internal/errors"
)

// Command group IDs for organizing help output
const (
	GroupUpdate        = "update"
	GroupConfiguration = "configuration"
)

var rootCmd = &cobra.Command{
	Use:   "m9aup",
	Short: "m9aup keeps a local M9A installation up to date",
	Long: `m9aup keeps a local M9A installation up to date.

It resolves the latest published M9A release, downloads the Lite archive
(reusing cached downloads when possible), completes it with the shared
dependency files from the Full archive when needed, and installs it while
preserving the config/ directory.

Source: https://github.com/m9a-tools/m9aup`,
	Example: `  # Update the installation to the latest release
  m9aup run

  # See what the latest release is without touching anything
  m9aup check

  # Create a config file to edit
  m9aup init`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints any resulting error with its
// remediation steps. The caller decides the process exit code.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		var cliErr *apperrors.CLIError
		if errors.As(err, &cliErr) {
			fmt.Fprint(os.Stderr, apperrors.FormatError(cliErr))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return err
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: GroupUpdate, Title: "Update Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: GroupConfiguration, Title: "Configuration:"})

	rootCmd.SetHelpCommandGroupID(GroupConfiguration)
	rootCmd.SetCompletionCommandGroupID(GroupConfiguration)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", config.LocalConfigPath, "Path to local config file")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
}
