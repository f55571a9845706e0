package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/m9a-tools/m9aup/internal/cache"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove cached downloads",
	Long: `Remove cached downloads.

Deletes the archive cache, including any staged dependency files and
leftover partial downloads. The next run downloads everything fresh.
With --logs, saved log files are removed as well.`,
	Example: `  # Drop the archive cache
  m9aup clean

  # Drop the cache and all saved logs
  m9aup clean --logs`,
	GroupID: GroupUpdate,
	RunE:    runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().Bool("logs", false, "Also remove saved log files")
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen).SprintFunc()

	if err := cache.New(cfg.CacheDir).Clear(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s Cache cleared: %s\n", green("✓"), cfg.CacheDir)

	if logs, _ := cmd.Flags().GetBool("logs"); logs {
		if err := os.RemoveAll(cfg.LogDir); err != nil {
			return fmt.Errorf("removing log directory: %w", err)
		}
		fmt.Fprintf(out, "%s Logs removed: %s\n", green("✓"), cfg.LogDir)
	}

	return nil
}
