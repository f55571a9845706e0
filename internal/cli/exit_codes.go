package cli

import (
	"errors"

	apperrors "github.com/m9a-tools/m9aup/internal/errors"
)

// Exit codes for the m9aup CLI. Categorized errors carry their own code;
// anything else exits with ExitFailure. These codes support scripted use,
// e.g. retrying only on download failures.
const (
	// ExitSuccess indicates a fully completed run
	ExitSuccess = 0
	// ExitFailure indicates an uncategorized failure
	ExitFailure = 1
)

// ExitCode returns the process exit code for an error returned by Execute.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *apperrors.CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Category.ExitCode()
	}
	return ExitFailure
}
