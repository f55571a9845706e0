// Package cache manages the local archive cache. A cached archive is valid
// for reuse only when its filename exactly matches the current release's
// expected filename for that variant, so stale versions are never reused.
package cache

import (
	"os"
	"path/filepath"

	"github.com/m9a-tools/m9aup/internal/archive"
	"github.com/m9a-tools/m9aup/internal/release"
)

// Cache is a directory of downloaded release archives plus the run's
// staging and backup areas.
type Cache struct {
	dir string
}

// New creates a cache rooted at dir. The directory is created lazily by
// EnsureDir.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Dir returns the cache root.
func (c *Cache) Dir() string {
	return c.dir
}

// EnsureDir creates the cache root if it does not exist.
func (c *Cache) EnsureDir() error {
	return os.MkdirAll(c.dir, 0755)
}

// Path returns the on-disk location for an asset's archive.
func (c *Cache) Path(a release.AssetRef) string {
	return filepath.Join(c.dir, a.Filename())
}

// StagingDir returns the extraction staging area for dependency completion.
func (c *Cache) StagingDir() string {
	return filepath.Join(c.dir, "staging")
}

// BackupDir returns the holding area for the user config during the
// destructive install phase.
func (c *Cache) BackupDir() string {
	return filepath.Join(c.dir, "backup")
}

// Has reports whether a valid cached archive exists for the asset: the file
// is present under the expected filename and is a readable zip. Corrupt
// files are treated as misses so the downloader replaces them.
func (c *Cache) Has(a release.AssetRef) bool {
	path := c.Path(a)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return archive.Validate(path) == nil
}

// Clear removes the entire cache directory. A missing directory is not an
// error.
func (c *Cache) Clear() error {
	err := os.RemoveAll(c.dir)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
