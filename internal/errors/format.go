package errors

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// FormatError renders a CLIError for terminal output with colors.
// Returns an empty string for a nil error.
func FormatError(err *CLIError) string {
	if err == nil {
		return ""
	}

	red := color.New(color.FgRed, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", red(err.Category.String()), err.Error())

	if err.Usage != "" {
		fmt.Fprintf(&b, "\n%s %s\n", yellow("Usage:"), err.Usage)
	}

	if len(err.Remediation) > 0 {
		fmt.Fprintf(&b, "\n%s\n", yellow("To fix this:"))
		for i, step := range err.Remediation {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
		}
	}

	return b.String()
}

// FormatErrorPlain renders a CLIError without any color codes, for
// non-terminal output.
func FormatErrorPlain(err *CLIError) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", err.Category.String(), err.Error())

	if err.Usage != "" {
		fmt.Fprintf(&b, "\nUsage: %s\n", err.Usage)
	}

	if len(err.Remediation) > 0 {
		fmt.Fprintf(&b, "\nTo fix this:\n")
		for i, step := range err.Remediation {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, step)
		}
	}

	return b.String()
}

// WriteError writes a formatted error to w. Non-CLIError values are wrapped
// as Install errors first so the operator always sees a category.
func WriteError(w io.Writer, err error) {
	if err == nil {
		return
	}
	cliErr, ok := err.(*CLIError)
	if !ok {
		cliErr = Wrap(err, Install)
	}
	fmt.Fprint(w, FormatErrorPlain(cliErr))
}
