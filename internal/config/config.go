// Package config loads pup's layered configuration with koanf.
// Priority: explicit overrides (flags) > environment (PUP_*) > project
// config (.pup.yml) > user config (~/.config/pup/config.yml) > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "PUP_"

// ProjectConfigName is the per-project config file name.
const ProjectConfigName = ".pup.yml"

// IndexConfig selects and tunes the package index.
type IndexConfig struct {
	Target     string        `koanf:"target" yaml:"target"`
	PrimaryURL string        `koanf:"primary_url" yaml:"primary_url"`
	StagingURL string        `koanf:"staging_url" yaml:"staging_url"`
	Timeout    time.Duration `koanf:"timeout" yaml:"timeout"`
	Retries    int           `koanf:"retries" yaml:"retries"`
}

// Steps toggles individual workflow steps.
type Steps struct {
	Fix            bool `koanf:"fix" yaml:"fix"`
	Build          bool `koanf:"build" yaml:"build"`
	Uninstall      bool `koanf:"uninstall" yaml:"uninstall"`
	InstallLocal   bool `koanf:"install_local" yaml:"install_local"`
	TestLocal      bool `koanf:"test_local" yaml:"test_local"`
	UninstallLocal bool `koanf:"uninstall_local" yaml:"uninstall_local"`
	Upload         bool `koanf:"upload" yaml:"upload"`
	InstallRemote  bool `koanf:"install_remote" yaml:"install_remote"`
	Confirm        bool `koanf:"confirm" yaml:"confirm"`
}

// Configuration is the effective pup configuration.
type Configuration struct {
	Index           IndexConfig   `koanf:"index" yaml:"index"`
	Owner           string        `koanf:"owner" yaml:"owner"`
	AutoIncrement   bool          `koanf:"auto_increment" yaml:"auto_increment"`
	MaxRounds       int           `koanf:"max_rounds" yaml:"max_rounds"`
	Prompt          string        `koanf:"prompt" yaml:"prompt"`
	Python          string        `koanf:"python" yaml:"python"`
	TokenEnv        string        `koanf:"token_env" yaml:"token_env"`
	Dest            string        `koanf:"dest" yaml:"dest"`
	ExcludedFolders []string      `koanf:"excluded_folders" yaml:"excluded_folders"`
	Steps           Steps         `koanf:"steps" yaml:"steps"`
	TagRelease      bool          `koanf:"tag_release" yaml:"tag_release"`
	RequireClean    bool          `koanf:"require_clean" yaml:"require_clean"`
	ConfirmTimeout  time.Duration `koanf:"confirm_timeout" yaml:"confirm_timeout"`
}

// LoadOptions configures where configuration is read from.
type LoadOptions struct {
	// ProjectDir is searched for .pup.yml.
	ProjectDir string
	// ConfigFile replaces the user config file when set.
	ConfigFile string
	// UserConfigPath overrides the user config location (for tests).
	UserConfigPath string
	// Overrides are applied last, keyed like the config file.
	Overrides map[string]any
}

// Load builds the configuration from all sources.
func Load(opts LoadOptions) (*Configuration, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("setting default %s: %w", key, err)
		}
	}

	userPath := opts.UserConfigPath
	if userPath == "" {
		userPath, _ = UserConfigPath()
	}
	if opts.ConfigFile != "" {
		if !fileExists(opts.ConfigFile) {
			return nil, fmt.Errorf("config file %s does not exist", opts.ConfigFile)
		}
		userPath = opts.ConfigFile
	}
	if err := loadYAML(k, userPath, "user"); err != nil {
		return nil, err
	}

	if opts.ProjectDir != "" {
		if err := loadYAML(k, filepath.Join(opts.ProjectDir, ProjectConfigName), "project"); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment config: %w", err)
	}

	for key, value := range opts.Overrides {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("applying override %s: %w", key, err)
		}
	}

	var cfg Configuration
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func loadYAML(k *koanf.Koanf, path, source string) error {
	if !fileExists(path) {
		return nil
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("loading %s config %s: %w", source, path, err)
	}
	return nil
}

// envTransform maps PUP_INDEX_PRIMARY_URL to index.primary_url. Only known
// keys are accepted so underscores inside key names stay unambiguous.
func envTransform(s string) string {
	name := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for key := range Defaults() {
		if strings.ReplaceAll(key, ".", "_") == name {
			return key
		}
	}
	return ""
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// UserConfigPath returns the XDG-style user config file location.
func UserConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "pup", "config.yml"), nil
}
