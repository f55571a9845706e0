package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/m9a-tools/m9aup/internal/pipeline"
	"github.com/m9a-tools/m9aup/internal/progress"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Update the M9A installation to the latest release",
	Long: `Update the M9A installation to the latest release.

The update resolves the latest published release, downloads the Lite
archive unless a matching copy already sits in the cache, pulls the shared
dependency files from the Full archive when the Lite archive omits them,
and installs the result.

Installing wipes everything under the install directory except config/,
which is backed up first and restored afterwards. Downloaded archives and
temporary files are removed once the install succeeds.`,
	Example: `  # Update, asking for confirmation before the install
  m9aup run

  # Unattended update for scripts and schedulers
  m9aup run -y

  # Allow the Full archive download even when config disables it
  m9aup run --full`,
	GroupID: GroupUpdate,
	RunE:    runUpdate,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	runCmd.Flags().Bool("full", false, "Allow the Full archive download for dependency completion")
	runCmd.Flags().Bool("no-progress", false, "Disable spinner and progress output")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if full, _ := cmd.Flags().GetBool("full"); full {
		cfg.FullDownloadEnabled = true
	}

	skipConfirm, _ := cmd.Flags().GetBool("yes")
	if !skipConfirm && !confirmInstall(cmd, cfg.InstallDir) {
		fmt.Fprintln(cmd.OutOrStdout(), "Update aborted.")
		return nil
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	opts := []pipeline.Option{}
	noProgress, _ := cmd.Flags().GetBool("no-progress")
	if cfg.ShowProgress && !noProgress {
		display := progress.NewProgressDisplay(progress.DetectTerminalCapabilities())
		defer display.StopSpinner()
		opts = append(opts, pipeline.WithReporter(display))
	}

	p, err := pipeline.New(cfg, logger, opts...)
	if err != nil {
		return err
	}

	result, err := p.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(out, "%s M9A %s installed to %s\n", green("✓"), result.Version, cfg.InstallDir)
	if result.LiteFromCache {
		fmt.Fprintln(out, "  Lite archive reused from cache")
	}
	if result.DepsStaged {
		fmt.Fprintln(out, "  Dependency files completed from the Full archive")
	}
	if logger.FilePath() != "" {
		fmt.Fprintf(out, "  Log saved to %s\n", logger.FilePath())
	}
	return nil
}

// confirmInstall asks before the destructive install phase. Anything but an
// explicit yes declines.
func confirmInstall(cmd *cobra.Command, installDir string) bool {
	fmt.Fprintf(cmd.OutOrStdout(),
		"This replaces everything under %s except config/. Continue? [y/N]: ", installDir)

	reader := bufio.NewReader(cmd.InOrStdin())
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
