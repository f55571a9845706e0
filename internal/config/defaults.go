package config

// GetDefaults returns the default configuration values.
func GetDefaults() map[string]interface{} {
	return map[string]interface{}{
		"install_dir":           "~/M9A",
		"cache_dir":             "~/.cache/m9aup",
		"repo":                  "MAA1999/M9A",
		"proxy":                 "",
		"full_download_enabled": true,
		"http_timeout":          60,
		"show_progress":         true,
		"log_save_enabled":      false,
		"log_dir":               "~/.local/state/m9aup/logs",
		"log_max_files":         15,
	}
}
