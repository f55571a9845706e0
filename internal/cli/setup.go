package cli

import (
	"github.com/spf13/cobra"

	"github.com/m9a-tools/m9aup/internal/config"
	"github.com/m9a-tools/m9aup/internal/logging"
)

// loadConfig loads the effective configuration, honoring the --config flag.
func loadConfig(cmd *cobra.Command) (*config.Configuration, error) {
	configPath, _ := cmd.Flags().GetString("config")
	return config.Load(configPath)
}

// newLogger builds the run logger from config and the --debug flag, and
// prunes old log files. The caller must Close it.
func newLogger(cmd *cobra.Command, cfg *config.Configuration) (*logging.Logger, error) {
	debug, _ := cmd.Flags().GetBool("debug")

	logger, err := logging.New(logging.Options{
		Debug:      debug,
		SaveToFile: cfg.LogSaveEnabled,
		LogDir:     cfg.LogDir,
		MaxFiles:   cfg.LogMaxFiles,
	})
	if err != nil {
		return nil, err
	}

	if cfg.LogSaveEnabled {
		if err := logging.Prune(cfg.LogDir, cfg.LogMaxFiles); err != nil {
			logger.Warn("could not prune old log files", "err", err)
		}
	}

	return logger, nil
}
