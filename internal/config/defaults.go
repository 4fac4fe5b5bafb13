package config

import "time"

// DefaultConfirmTimeout bounds how long the index is polled for an upload.
const DefaultConfirmTimeout = 2 * time.Minute

// Defaults returns the default value of every config key.
func Defaults() map[string]any {
	return map[string]any{
		"index.target":          "pypi",
		"index.primary_url":     "https://pypi.org",
		"index.staging_url":     "https://test.pypi.org",
		"index.timeout":         10 * time.Second,
		"index.retries":         0,
		"owner":                 "",
		"auto_increment":        false,
		"max_rounds":            5,
		"prompt":                "terminal",
		"python":                "python3",
		"token_env":             "PYPI_TOKEN",
		"dest":                  "",
		"excluded_folders":      []string{},
		"steps.fix":             true,
		"steps.build":           true,
		"steps.uninstall":       true,
		"steps.install_local":   true,
		"steps.test_local":      true,
		"steps.uninstall_local": true,
		"steps.upload":          true,
		"steps.install_remote":  true,
		"steps.confirm":         true,
		"tag_release":           false,
		"require_clean":         false,
		"confirm_timeout":       DefaultConfirmTimeout,
	}
}
