// Package errors provides categorized errors for the m9aup CLI.
// Each error carries a category matching one of the update pipeline's
// failure kinds, an operator-facing message, and optional remediation
// steps printed alongside the error.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory identifies which part of the update pipeline failed.
type ErrorCategory int

const (
	// Argument indicates invalid command-line arguments.
	Argument ErrorCategory = iota
	// Configuration indicates an invalid or unreadable configuration.
	Configuration
	// Resolution indicates the release source was unreachable or malformed.
	Resolution
	// Download indicates an asset transfer failure.
	Download
	// Archive indicates a corrupt or unreadable archive, or one missing
	// expected entries.
	Archive
	// Install indicates a filesystem failure during backup, wipe, extract,
	// restore, or cleanup.
	Install
)

// String returns the human-readable category name.
func (c ErrorCategory) String() string {
	switch c {
	case Argument:
		return "Argument Error"
	case Configuration:
		return "Configuration Error"
	case Resolution:
		return "Resolution Error"
	case Download:
		return "Download Error"
	case Archive:
		return "Archive Error"
	case Install:
		return "Install Error"
	default:
		return "Error"
	}
}

// ExitCode returns the process exit code for the category. Zero is reserved
// for a fully completed run.
func (c ErrorCategory) ExitCode() int {
	switch c {
	case Argument:
		return 2
	case Configuration:
		return 3
	case Resolution:
		return 4
	case Download:
		return 5
	case Archive:
		return 6
	case Install:
		return 7
	default:
		return 1
	}
}

// CLIError is a categorized error with remediation guidance.
type CLIError struct {
	Category    ErrorCategory
	Message     string
	Usage       string
	Remediation []string
	Err         error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewArgumentError creates an Argument error with remediation steps.
func NewArgumentError(message string, remediation ...string) *CLIError {
	return &CLIError{Category: Argument, Message: message, Remediation: remediation}
}

// NewConfigError creates a Configuration error with remediation steps.
func NewConfigError(message string, remediation ...string) *CLIError {
	return &CLIError{Category: Configuration, Message: message, Remediation: remediation}
}

// NewResolutionError creates a Resolution error with remediation steps.
func NewResolutionError(message string, remediation ...string) *CLIError {
	return &CLIError{Category: Resolution, Message: message, Remediation: remediation}
}

// NewDownloadError creates a Download error with remediation steps.
func NewDownloadError(message string, remediation ...string) *CLIError {
	return &CLIError{Category: Download, Message: message, Remediation: remediation}
}

// NewArchiveError creates an Archive error with remediation steps.
func NewArchiveError(message string, remediation ...string) *CLIError {
	return &CLIError{Category: Archive, Message: message, Remediation: remediation}
}

// NewInstallError creates an Install error with remediation steps.
func NewInstallError(message string, remediation ...string) *CLIError {
	return &CLIError{Category: Install, Message: message, Remediation: remediation}
}

// Wrap wraps an existing error with a category, preserving the original
// message. Returns nil for a nil error.
func Wrap(err error, category ErrorCategory, remediation ...string) *CLIError {
	if err == nil {
		return nil
	}
	return &CLIError{
		Category:    category,
		Message:     err.Error(),
		Remediation: remediation,
		Err:         err,
	}
}

// WrapWithMessage wraps an existing error with a category and a new
// operator-facing message. Returns nil for a nil error.
func WrapWithMessage(err error, category ErrorCategory, message string, remediation ...string) *CLIError {
	if err == nil {
		return nil
	}
	return &CLIError{
		Category:    category,
		Message:     message,
		Remediation: remediation,
		Err:         err,
	}
}

// CategoryOf returns the category of err, or Install if err is not a
// CLIError. Install is the most conservative mapping: it signals that the
// on-disk state may need inspection.
func CategoryOf(err error) ErrorCategory {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Category
	}
	return Install
}

// IsCategory reports whether err (or any error in its chain) is a CLIError
// with the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Category == category
	}
	return false
}
