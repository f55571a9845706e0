package errors

import "fmt"

// NoPublishedRelease is returned when the release source has no releases.
func NoPublishedRelease(repo string) *CLIError {
	return NewResolutionError(
		fmt.Sprintf("no published release found for repository %q", repo),
		"verify the 'repo' setting in your config (format: owner/name)",
		"check that the repository has at least one published release",
	)
}

// NoMatchingAsset is returned when the latest release lacks a required
// distribution variant.
func NoMatchingAsset(variant, pattern string) *CLIError {
	return NewResolutionError(
		fmt.Sprintf("latest release has no %s archive matching %q", variant, pattern),
		"the release may still be publishing its assets; retry in a few minutes",
	)
}

// BackupLeftBehind is returned when a run fails between the wipe and restore
// steps. The backup directory is the operator's only copy of the user config,
// so the message must point straight at it.
func BackupLeftBehind(backupPath string, cause error) *CLIError {
	return WrapWithMessage(cause, Install,
		"install failed after the target directory was wiped",
		fmt.Sprintf("your config backup is preserved at %s", backupPath),
		"rerun 'm9aup run' to retry the install; the backup is restored automatically",
		"or copy the backup into <install_dir>/config by hand",
	)
}

// ProxyUnreachable is returned when the configured proxy rejects connections.
func ProxyUnreachable(proxy string, cause error) *CLIError {
	return WrapWithMessage(cause, Download,
		fmt.Sprintf("could not connect through proxy %q", proxy),
		"verify the 'proxy' setting in your config",
		"clear the 'proxy' setting to connect directly",
	)
}

// InstallDirNotWritable is returned before any destructive step when the
// install target cannot be written.
func InstallDirNotWritable(dir string, cause error) *CLIError {
	return WrapWithMessage(cause, Install,
		fmt.Sprintf("install directory %q is not writable", dir),
		"close any running M9A instance holding files open",
		"check directory permissions",
	)
}
