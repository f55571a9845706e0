package release

import (
	"regexp"
	"strings"
	"time"
)

// Asset name patterns for the two M9A distribution variants. The Lite
// archive omits the shared deps/ tree; the Full archive always carries it.
const (
	LiteAssetPattern = "M9A-win-x86_64-v*-Lite.zip"
	FullAssetPattern = "M9A-win-x86_64-v*-Full.zip"
)

var (
	liteAssetRe = regexp.MustCompile(`^M9A-win-x86_64-v[\d.]+-Lite\.zip$`)
	fullAssetRe = regexp.MustCompile(`^M9A-win-x86_64-v[\d.]+-Full\.zip$`)
)

// Release describes the latest published release: its version tag and the
// archive assets an update run needs. Immutable once resolved.
type Release struct {
	Version     string
	PublishedAt time.Time
	Lite        AssetRef
	Full        *AssetRef // nil when the release has no Full archive
}

// AssetRef identifies one downloadable distribution archive.
type AssetRef struct {
	Name   string
	URL    string
	Size   int64
	SHA256 string // hex digest when the release source published one, else ""
}

// Filename returns the expected on-disk filename for the asset. Release
// asset names already encode version and variant, so cache validity reduces
// to an exact filename match.
func (a AssetRef) Filename() string {
	return a.Name
}

// parseDigest extracts the hex sha256 from a "sha256:<hex>" digest string.
// Returns "" for absent or unrecognized digests.
func parseDigest(digest string) string {
	const prefix = "sha256:"
	lower := strings.ToLower(strings.TrimSpace(digest))
	if !strings.HasPrefix(lower, prefix) {
		return ""
	}
	hex := strings.TrimPrefix(lower, prefix)
	if len(hex) != 64 {
		return ""
	}
	return hex
}
