package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/git-pkgs/pup/fetch"
	"github.com/git-pkgs/pup/internal/config"
	"github.com/git-pkgs/pup/internal/toolchain"
	"github.com/git-pkgs/pup/internal/workflow"
	"github.com/git-pkgs/pup/prompt"
	"github.com/git-pkgs/pup/verify"
)

// app carries state shared by the commands of one invocation.
type app struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	flags  globalFlags
	root   *cobra.Command

	cfg    *config.Configuration
	logger *log.Logger

	// runner replaces the external command runner in tests.
	runner toolchain.Runner
}

// projectDir resolves the optional directory argument.
func projectDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", argError("project directory %s: %v", dir, err)
	}
	if !info.IsDir() {
		return "", argError("%s is not a directory", dir)
	}
	return abs, nil
}

// load reads configuration for dir, applying flags that were set on the
// command line, and prepares the logger.
func (a *app) load(cmd *cobra.Command, dir string) error {
	overrides := map[string]any{}
	flags := cmd.Flags()
	if flags.Changed("owner") {
		overrides["owner"] = a.flags.owner
	}
	if flags.Changed("auto-increment") {
		overrides["auto_increment"] = a.flags.autoIncrement
	}
	if flags.Changed("max-rounds") {
		overrides["max_rounds"] = a.flags.maxRounds
	}
	if flags.Changed("prompt") {
		overrides["prompt"] = a.flags.prompt
	}
	if flags.Changed("staging") && a.flags.staging {
		overrides["index.target"] = "testpypi"
	}
	if f := flags.Lookup("dest"); f != nil && f.Changed {
		overrides["dest"] = a.flags.dest
	}

	cfg, err := config.Load(config.LoadOptions{
		ProjectDir: dir,
		ConfigFile: a.flags.configFile,
		Overrides:  overrides,
	})
	if err != nil {
		return &CLIError{Category: Configuration, Code: ExitInvalidInput, Err: err}
	}
	a.cfg = cfg

	a.logger = log.NewWithOptions(a.errOut, log.Options{Prefix: "pup"})
	if a.flags.debug {
		a.logger.SetLevel(log.DebugLevel)
	}
	return nil
}

func (a *app) target() (verify.Target, error) {
	return verify.ParseTarget(a.cfg.Index.Target)
}

func (a *app) verifier() (*verify.Verifier, error) {
	return verify.New(verify.Config{
		PrimaryURL: a.cfg.Index.PrimaryURL,
		StagingURL: a.cfg.Index.StagingURL,
		Timeout:    a.cfg.Index.Timeout,
		Retries:    a.cfg.Index.Retries,
		UserAgent:  "pup/" + Version,
	})
}

func (a *app) prompter() (verify.Prompter, error) {
	return prompt.New(prompt.Kind(a.cfg.Prompt), a.in, a.out)
}

// pipeline assembles a workflow.Pipeline for dir from the loaded config.
func (a *app) pipeline(dir string) (*workflow.Pipeline, error) {
	v, err := a.verifier()
	if err != nil {
		return nil, err
	}
	p, err := a.prompter()
	if err != nil {
		return nil, err
	}

	resolver := fetch.NewResolver()
	for _, t := range []verify.Target{verify.Primary, verify.Staging} {
		idx, err := v.Index(t)
		if err != nil {
			return nil, err
		}
		resolver.RegisterIndex(idx)
	}

	runner := a.runner
	if runner == nil {
		runner = &toolchain.ExecRunner{}
		if a.flags.debug {
			runner = &toolchain.ExecRunner{Output: a.errOut}
		}
	}

	return &workflow.Pipeline{
		Config:     a.cfg,
		ProjectDir: dir,
		Verifier:   v,
		Prompter:   p,
		Toolchain:  toolchain.New(a.cfg.Python, runner),
		Resolver:   resolver,
		Downloader: fetch.NewCircuitBreakerFetcher(fetch.NewFetcher(fetch.WithUserAgent("pup/" + Version))),
		Logger:     a.logger,
		Out:        a.out,
		Spinner:    workflow.IsTerminal(a.out),
	}, nil
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}
