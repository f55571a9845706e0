// Package archive provides zip inspection and extraction helpers for the
// update pipeline. Archives can be peeked for entries under a path prefix
// without full extraction, and extracted either completely or filtered to a
// prefix.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ProgressFunc receives extraction progress as uncompressed bytes written
// out of the total to write.
type ProgressFunc func(current, total int64)

// HasPrefix reports whether the zip at path contains at least one file entry
// under the given path prefix (e.g. "deps/").
func HasPrefix(path, prefix string) (bool, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return false, fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if strings.HasPrefix(f.Name, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// Validate opens the zip at path and walks its central directory. It returns
// an error for truncated or corrupt archives.
func Validate(path string) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if _, err := sanitizeName(f.Name); err != nil {
			return err
		}
	}
	return nil
}

// ExtractAll extracts every entry of the zip at path into destDir, creating
// destDir if needed. Progress, when non-nil, is reported in uncompressed
// bytes.
func ExtractAll(path, destDir string, progress ProgressFunc) error {
	return extract(path, destDir, "", progress)
}

// ExtractPrefix extracts only the entries under prefix into destDir,
// preserving their archive-relative paths. Returns an error if the archive
// has no entries under the prefix.
func ExtractPrefix(path, prefix, destDir string, progress ProgressFunc) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	found := false
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, prefix) {
			found = true
			break
		}
	}
	r.Close()
	if !found {
		return fmt.Errorf("archive %s has no entries under %q", path, prefix)
	}

	return extract(path, destDir, prefix, progress)
}

// extract writes entries matching prefix (all entries when prefix is empty)
// into destDir.
func extract(path, destDir, prefix string, progress ProgressFunc) error {
	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating destination %s: %w", destDir, err)
	}

	var total int64
	for _, f := range r.File {
		if prefix != "" && !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		total += int64(f.UncompressedSize64)
	}

	var written int64
	for _, f := range r.File {
		if prefix != "" && !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		n, err := extractEntry(f, destDir)
		if err != nil {
			return err
		}
		written += n
		if progress != nil {
			progress(written, total)
		}
	}

	return nil
}

// extractEntry writes a single zip entry under destDir and returns the
// number of uncompressed bytes written.
func extractEntry(f *zip.File, destDir string) (int64, error) {
	rel, err := sanitizeName(f.Name)
	if err != nil {
		return 0, err
	}
	target := filepath.Join(destDir, rel)

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0755); err != nil {
			return 0, fmt.Errorf("creating directory %s: %w", target, err)
		}
		return 0, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, fmt.Errorf("creating directory for %s: %w", target, err)
	}

	src, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("reading entry %s: %w", f.Name, err)
	}
	defer src.Close()

	mode := f.Mode()
	if mode == 0 {
		mode = 0644
	}
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return 0, fmt.Errorf("creating file %s: %w", target, err)
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(target)
		return n, fmt.Errorf("extracting entry %s: %w", f.Name, err)
	}

	return n, nil
}

// sanitizeName rejects entry names that would escape the destination
// directory.
func sanitizeName(name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || cleaned == ".." {
		return "", fmt.Errorf("archive entry %q escapes destination directory", name)
	}
	return cleaned, nil
}
