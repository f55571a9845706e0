package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m9a-tools/m9aup/internal/pipeline"
	"github.com/m9a-tools/m9aup/internal/progress"
	"github.com/m9a-tools/m9aup/internal/release"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Show the latest published release without downloading",
	Long: `Show the latest published release without downloading anything.

Resolves the release and lists the archives an update would use, with
their sizes. Useful before a run on a metered connection, or from scripts
with --json.`,
	Example: `  # Human-readable release summary
  m9aup check

  # Machine-readable output for scripts
  m9aup check --json`,
	GroupID: GroupUpdate,
	RunE:    runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("json", false, "Print the release as JSON")
}

// checkOutput is the --json shape. Field names are part of the scripting
// interface, keep them stable.
type checkOutput struct {
	Version     string       `json:"version"`
	PublishedAt string       `json:"published_at"`
	Lite        assetOutput  `json:"lite"`
	Full        *assetOutput `json:"full,omitempty"`
}

type assetOutput struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}

	rel, err := p.Check(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(toCheckOutput(rel))
	}

	fmt.Fprintf(out, "Latest release: %s (published %s)\n", rel.Version, rel.PublishedAt.Format("2006-01-02"))
	fmt.Fprintf(out, "  Lite: %s (%s)\n", rel.Lite.Name, progress.FormatBytes(rel.Lite.Size))
	if rel.Full != nil {
		fmt.Fprintf(out, "  Full: %s (%s)\n", rel.Full.Name, progress.FormatBytes(rel.Full.Size))
	} else {
		fmt.Fprintln(out, "  Full: not published")
	}
	return nil
}

func toCheckOutput(rel *release.Release) checkOutput {
	out := checkOutput{
		Version:     rel.Version,
		PublishedAt: rel.PublishedAt.Format("2006-01-02"),
		Lite:        assetOutput{Name: rel.Lite.Name, Size: rel.Lite.Size, SHA256: rel.Lite.SHA256},
	}
	if rel.Full != nil {
		out.Full = &assetOutput{Name: rel.Full.Name, Size: rel.Full.Size, SHA256: rel.Full.SHA256}
	}
	return out
}
