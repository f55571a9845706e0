package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/m9a-tools/m9aup/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file populated with defaults",
	Long: `Create a config file populated with the default settings.

By default the user-level config is created, which applies wherever m9aup
runs. Use --local to create an m9aup.json in the current directory that
overrides user settings for this installation only.

Configuration precedence (highest to lowest):
  1. Environment variables (M9AUP_*)
  2. Local config (m9aup.json)
  3. User config (~/.config/m9aup/config.json)
  4. Built-in defaults`,
	Example: `  # Create the user-level config
  m9aup init

  # Create a per-installation config in the current directory
  m9aup init --local

  # Overwrite an existing config
  m9aup init --force`,
	GroupID: GroupConfiguration,
	RunE:    runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolP("local", "l", false, "Create a local config (m9aup.json) instead of the user-level one")
	initCmd.Flags().BoolP("force", "f", false, "Overwrite an existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	local, _ := cmd.Flags().GetBool("local")
	force, _ := cmd.Flags().GetBool("force")

	var path string
	var label string
	if local {
		path, _ = cmd.Flags().GetString("config")
		label = "local"
	} else {
		var err error
		path, err = config.UserConfigPath()
		if err != nil {
			return fmt.Errorf("locating user config directory: %w", err)
		}
		label = "user"
	}

	if err := config.WriteDefault(path, force); err != nil {
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(cmd.OutOrStdout(), "%s Created %s config at %s\n", green("✓"), label, path)
	fmt.Fprintln(cmd.OutOrStdout(), "  Edit install_dir before the first run.")
	return nil
}
