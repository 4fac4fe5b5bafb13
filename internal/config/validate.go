package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"

	"gopkg.in/yaml.v3"
)

var (
	validTargets = []string{"pypi", "testpypi", "primary", "staging", "production", "test"}
	validPrompts = []string{"terminal", "dialog", "none"}
)

// Validate checks value ranges and enumerations.
func (c *Configuration) Validate() error {
	var errs []error
	if !slices.Contains(validTargets, c.Index.Target) {
		errs = append(errs, fmt.Errorf("index.target: %q is not one of %v", c.Index.Target, validTargets))
	}
	for key, raw := range map[string]string{"index.primary_url": c.Index.PrimaryURL, "index.staging_url": c.Index.StagingURL} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s: %q is not an absolute URL", key, raw))
		}
	}
	if c.Index.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("index.timeout: must be positive, got %s", c.Index.Timeout))
	}
	if c.ConfirmTimeout <= 0 {
		errs = append(errs, fmt.Errorf("confirm_timeout: must be positive, got %s", c.ConfirmTimeout))
	}
	if c.Index.Retries < 0 {
		errs = append(errs, fmt.Errorf("index.retries: must not be negative, got %d", c.Index.Retries))
	}
	if c.MaxRounds < 1 {
		errs = append(errs, fmt.Errorf("max_rounds: must be at least 1, got %d", c.MaxRounds))
	}
	if !slices.Contains(validPrompts, c.Prompt) {
		errs = append(errs, fmt.Errorf("prompt: %q is not one of %v", c.Prompt, validPrompts))
	}
	if c.Python == "" {
		errs = append(errs, errors.New("python: must not be empty"))
	}
	if c.TokenEnv == "" {
		errs = append(errs, errors.New("token_env: must not be empty"))
	}
	return errors.Join(errs...)
}

type indexView struct {
	Target     string `yaml:"target"`
	PrimaryURL string `yaml:"primary_url"`
	StagingURL string `yaml:"staging_url"`
	Timeout    string `yaml:"timeout"`
	Retries    int    `yaml:"retries"`
}

type configView struct {
	Index           indexView `yaml:"index"`
	Owner           string    `yaml:"owner"`
	AutoIncrement   bool      `yaml:"auto_increment"`
	MaxRounds       int       `yaml:"max_rounds"`
	Prompt          string    `yaml:"prompt"`
	Python          string    `yaml:"python"`
	TokenEnv        string    `yaml:"token_env"`
	Dest            string    `yaml:"dest"`
	ExcludedFolders []string  `yaml:"excluded_folders"`
	Steps           Steps     `yaml:"steps"`
	TagRelease      bool      `yaml:"tag_release"`
	RequireClean    bool      `yaml:"require_clean"`
	ConfirmTimeout  string    `yaml:"confirm_timeout"`
}

// YAML renders the configuration in config file form, with durations
// written the way they are accepted.
func (c *Configuration) YAML() ([]byte, error) {
	return yaml.Marshal(configView{
		Index: indexView{
			Target:     c.Index.Target,
			PrimaryURL: c.Index.PrimaryURL,
			StagingURL: c.Index.StagingURL,
			Timeout:    c.Index.Timeout.String(),
			Retries:    c.Index.Retries,
		},
		Owner:           c.Owner,
		AutoIncrement:   c.AutoIncrement,
		MaxRounds:       c.MaxRounds,
		Prompt:          c.Prompt,
		Python:          c.Python,
		TokenEnv:        c.TokenEnv,
		Dest:            c.Dest,
		ExcludedFolders: c.ExcludedFolders,
		Steps:           c.Steps,
		TagRelease:      c.TagRelease,
		RequireClean:    c.RequireClean,
		ConfirmTimeout:  c.ConfirmTimeout.String(),
	})
}
