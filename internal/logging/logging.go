// Package logging configures the leveled logger used across m9aup and
// manages optional on-disk log files with retention pruning.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// filePrefix is the filename prefix for persisted log files.
const filePrefix = "m9aup_"

// Options controls logger construction.
type Options struct {
	// Debug enables debug-level output.
	Debug bool
	// SaveToFile mirrors log output into a timestamped file under LogDir.
	SaveToFile bool
	// LogDir is the directory for persisted log files.
	LogDir string
	// MaxFiles is the number of log files kept after pruning.
	MaxFiles int
}

// Logger wraps the console logger and the optional log file.
type Logger struct {
	*log.Logger
	file *os.File
}

// New creates a logger writing to stderr, and optionally to a new
// timestamped file under opts.LogDir. Call Close when the run ends.
func New(opts Options) (*Logger, error) {
	writers := []io.Writer{os.Stderr}

	var f *os.File
	if opts.SaveToFile {
		if err := os.MkdirAll(opts.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
		name := filePrefix + time.Now().Format("20060102_150405") + ".log"
		var err error
		f, err = os.Create(filepath.Join(opts.LogDir, name))
		if err != nil {
			return nil, fmt.Errorf("creating log file: %w", err)
		}
		writers = append(writers, f)
	}

	logger := log.NewWithOptions(io.MultiWriter(writers...), log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	if opts.Debug {
		logger.SetLevel(log.DebugLevel)
	}

	return &Logger{Logger: logger, file: f}, nil
}

// Close flushes and closes the log file, if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// FilePath returns the active log file path, or empty when logging only to
// the console.
func (l *Logger) FilePath() string {
	if l.file == nil {
		return ""
	}
	return l.file.Name()
}
