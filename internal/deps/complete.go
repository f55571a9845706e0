// Package deps completes a Lite distribution archive with the shared
// dependency tree. The Lite archive intentionally omits the deps/ subtree to
// keep downloads small; when it is missing, the subtree is extracted from
// the Full archive into the run's staging area. Extraction into the install
// target happens later, in the install orchestrator.
package deps

import (
	"os"

	"github.com/m9a-tools/m9aup/internal/archive"
	apperrors "github.com/m9a-tools/m9aup/internal/errors"
)

// Prefix is the archive path prefix of the shared dependency subtree.
const Prefix = "deps/"

// Completer stages missing dependency files out of the Full archive.
type Completer struct {
	progress archive.ProgressFunc
}

// NewCompleter creates a completer. progress may be nil.
func NewCompleter(progress archive.ProgressFunc) *Completer {
	return &Completer{progress: progress}
}

// LiteHasDeps reports whether the Lite archive already embeds the
// dependency subtree.
func LiteHasDeps(litePath string) (bool, error) {
	has, err := archive.HasPrefix(litePath, Prefix)
	if err != nil {
		return false, apperrors.WrapWithMessage(err, apperrors.Archive, "inspecting lite archive")
	}
	return has, nil
}

// Complete ensures the dependency subtree is available for the install.
// When the Lite archive already embeds deps/, nothing happens and the Full
// archive is never opened. Otherwise the deps/ entries of the Full archive
// are extracted into stagingDir. Returns true when staging took place.
func (c *Completer) Complete(litePath, fullPath, stagingDir string) (bool, error) {
	hasDeps, err := LiteHasDeps(litePath)
	if err != nil {
		return false, err
	}
	if hasDeps {
		return false, nil
	}

	// A failed earlier run can leave files from an older release behind.
	// Staging must end up holding exactly the current release's deps entries.
	if err := os.RemoveAll(stagingDir); err != nil {
		return false, apperrors.WrapWithMessage(err, apperrors.Archive, "clearing stale staging area")
	}

	if err := archive.ExtractPrefix(fullPath, Prefix, stagingDir, c.progress); err != nil {
		return false, apperrors.WrapWithMessage(err, apperrors.Archive,
			"staging dependency files from full archive",
			"delete the cached full archive so it is downloaded again",
		)
	}

	return true, nil
}
