// Package install performs the destructive phase of an update: back up the
// user config, wipe the install target, extract the new distribution,
// restore the config, and clean up temporary files. The steps are strictly
// ordered with no branching back; the backup is durably complete before any
// deletion begins.
package install

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/m9a-tools/m9aup/internal/archive"
	apperrors "github.com/m9a-tools/m9aup/internal/errors"
)

// UserConfigDirName is the single subdirectory of the install target treated
// as user-owned state. It survives every update.
const UserConfigDirName = "config"

// Step identifies one phase of the install sequence.
type Step int

const (
	// StepBackupConfig moves the user config out of harm's way.
	StepBackupConfig Step = iota
	// StepWipeTarget removes everything under the install target.
	StepWipeTarget
	// StepExtractLite extracts the new distribution into the target.
	StepExtractLite
	// StepRestoreConfig moves the user config back into the target.
	StepRestoreConfig
	// StepCleanupCache removes the run's temporary files.
	StepCleanupCache
)

// String returns the step name.
func (s Step) String() string {
	switch s {
	case StepBackupConfig:
		return "backup-config"
	case StepWipeTarget:
		return "wipe-target"
	case StepExtractLite:
		return "extract-lite"
	case StepRestoreConfig:
		return "restore-config"
	case StepCleanupCache:
		return "cleanup-cache"
	default:
		return "unknown"
	}
}

// StepError reports which install step failed. Failure before StepWipeTarget
// leaves the original installation untouched; failure at or after the wipe
// but before restore leaves the backup on disk as the recovery artifact.
type StepError struct {
	Step Step
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("install step %s: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Orchestrator runs the install sequence for one update.
type Orchestrator struct {
	installDir  string
	backupDir   string
	progress    archive.ProgressFunc
	onStep      func(Step)
	removeEntry func(path string) error
}

// OrchestratorOption mutates an Orchestrator during construction.
type OrchestratorOption func(*Orchestrator)

// WithExtractProgress reports extraction progress in uncompressed bytes.
func WithExtractProgress(fn archive.ProgressFunc) OrchestratorOption {
	return func(o *Orchestrator) { o.progress = fn }
}

// WithStepCallback is invoked as each step begins.
func WithStepCallback(fn func(Step)) OrchestratorOption {
	return func(o *Orchestrator) { o.onStep = fn }
}

// NewOrchestrator creates an orchestrator installing into installDir and
// holding the config backup under backupDir.
func NewOrchestrator(installDir, backupDir string, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		installDir:  installDir,
		backupDir:   backupDir,
		removeEntry: os.RemoveAll,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ConfigBackupPath returns where the user config sits during the
// destructive phase. Documented for operators recovering a failed run.
func (o *Orchestrator) ConfigBackupPath() string {
	return filepath.Join(o.backupDir, UserConfigDirName)
}

// Run executes the five install steps in order. litePath is the
// dependency-complete Lite archive; stagingDir holds separately staged
// deps/ files ("" when none); cleanupPaths are the run's temporary files
// removed by the final step.
//
// Any step failure halts the run immediately. The returned error wraps a
// StepError identifying the failed step.
func (o *Orchestrator) Run(litePath, stagingDir string, cleanupPaths []string) error {
	if err := o.checkWritable(); err != nil {
		return err
	}

	backedUp, err := o.backupConfig()
	if err != nil {
		return o.fail(StepBackupConfig, err, false)
	}

	// The backup is durably on disk past this point. No return path between
	// here and the wipe.
	if err := o.wipeTarget(); err != nil {
		return o.fail(StepWipeTarget, err, backedUp)
	}

	if err := o.extractLite(litePath, stagingDir); err != nil {
		return o.fail(StepExtractLite, err, backedUp)
	}

	if err := o.restoreConfig(backedUp); err != nil {
		return o.fail(StepRestoreConfig, err, backedUp)
	}

	if err := o.cleanup(cleanupPaths); err != nil {
		return o.fail(StepCleanupCache, err, false)
	}

	return nil
}

// checkWritable verifies the install target can be modified before anything
// destructive starts. A missing target is fine; the wipe step creates it.
// The usual cause of an unwritable target is a running M9A instance holding
// its files open.
func (o *Orchestrator) checkWritable() error {
	info, err := os.Stat(o.installDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return apperrors.InstallDirNotWritable(o.installDir, err)
	}
	if !info.IsDir() {
		return apperrors.InstallDirNotWritable(o.installDir, fmt.Errorf("%s is not a directory", o.installDir))
	}

	marker, err := os.CreateTemp(o.installDir, ".m9aup-write-check-")
	if err != nil {
		return apperrors.InstallDirNotWritable(o.installDir, err)
	}
	name := marker.Name()
	marker.Close()
	return os.Remove(name)
}

// fail wraps a step failure. When the user config is sitting in the backup
// area the error points the operator at it.
func (o *Orchestrator) fail(step Step, err error, backupAtRisk bool) error {
	stepErr := &StepError{Step: step, Err: err}
	if backupAtRisk {
		return apperrors.BackupLeftBehind(o.ConfigBackupPath(), stepErr)
	}
	return apperrors.Wrap(stepErr, apperrors.Install)
}

// backupConfig copies the user config into the backup area. Returns false
// when the install target has no config directory; that is a no-op, not an
// error. The source is left in place: the wipe removes it, so the backup is
// complete on disk before anything is deleted.
func (o *Orchestrator) backupConfig() (bool, error) {
	o.step(StepBackupConfig)

	src := filepath.Join(o.installDir, UserConfigDirName)
	info, err := os.Stat(src)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%s exists but is not a directory", src)
	}

	dst := o.ConfigBackupPath()
	if err := os.RemoveAll(dst); err != nil {
		return false, fmt.Errorf("clearing stale backup: %w", err)
	}
	if err := copyTree(src, dst); err != nil {
		return false, fmt.Errorf("backing up config: %w", err)
	}

	return true, nil
}

// wipeTarget removes every entry directly under the install target. A
// missing target is created instead.
func (o *Orchestrator) wipeTarget() error {
	o.step(StepWipeTarget)

	entries, err := os.ReadDir(o.installDir)
	if os.IsNotExist(err) {
		return os.MkdirAll(o.installDir, 0755)
	}
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if err := o.removeEntry(filepath.Join(o.installDir, entry.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// extractLite extracts the Lite archive into the install target, then
// overlays the staged deps/ files when the completer produced any.
func (o *Orchestrator) extractLite(litePath, stagingDir string) error {
	o.step(StepExtractLite)

	if err := archive.ExtractAll(litePath, o.installDir, o.progress); err != nil {
		return err
	}

	if stagingDir == "" {
		return nil
	}
	if _, err := os.Stat(stagingDir); os.IsNotExist(err) {
		return nil
	}
	return copyTree(stagingDir, o.installDir)
}

// restoreConfig moves the backed-up config into the freshly extracted
// target. User data wins over any same-path entries the extraction
// introduced.
func (o *Orchestrator) restoreConfig(backedUp bool) error {
	o.step(StepRestoreConfig)

	if !backedUp {
		return nil
	}

	dst := filepath.Join(o.installDir, UserConfigDirName)
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("clearing extracted config: %w", err)
	}
	if err := moveTree(o.ConfigBackupPath(), dst); err != nil {
		return fmt.Errorf("restoring config: %w", err)
	}
	return nil
}

// cleanup removes the run's temporary files plus the backup holding area.
func (o *Orchestrator) cleanup(paths []string) error {
	o.step(StepCleanupCache)

	paths = append(paths, o.backupDir)
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return nil
}

func (o *Orchestrator) step(s Step) {
	if o.onStep != nil {
		o.onStep(s)
	}
}

// moveTree renames src to dst, falling back to copy-and-delete when the
// rename crosses filesystems.
func moveTree(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyTree(src, dst); err != nil {
		return err
	}
	return os.RemoveAll(src)
}

// copyTree recursively copies the directory tree at src into dst,
// preserving file modes.
func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(target, info.Mode().Perm())
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

// copyFile copies one regular file.
func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return err
}
