package logging

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Prune removes the oldest log files in dir so that at most maxFiles remain.
// Only files created by this package (m9aup_*.log) are considered. A missing
// directory is not an error.
func Prune(dir string, maxFiles int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	type logFile struct {
		path    string
		modTime int64
	}

	var files []logFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, logFile{
			path:    filepath.Join(dir, name),
			modTime: info.ModTime().UnixNano(),
		})
	}

	if len(files) <= maxFiles {
		return nil
	}

	// Oldest first.
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime < files[j].modTime
	})

	var firstErr error
	for _, f := range files[:len(files)-maxFiles] {
		if err := os.Remove(f.path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
