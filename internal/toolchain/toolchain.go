package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenk/backoff"

	"github.com/git-pkgs/pup/client"
	"github.com/git-pkgs/pup/internal/manifest"
)

const (
	// DefaultPython is the interpreter used when none is configured.
	DefaultPython = "python3"

	// DefaultTokenEnv names the environment variable holding the upload token.
	DefaultTokenEnv = "PYPI_TOKEN"

	// DefaultInstallRetries is how often a pinned install from an index is
	// retried while the upload propagates.
	DefaultInstallRetries = 7
)

// ErrMissingToken is returned by Token when the token variable is unset.
var ErrMissingToken = errors.New("upload token is not set")

// Toolchain runs Python packaging commands through a Runner.
type Toolchain struct {
	Python         string
	Runner         Runner
	InstallRetries int
	RetryDelay     time.Duration
}

// New returns a Toolchain using python and runner.
func New(python string, runner Runner) *Toolchain {
	if python == "" {
		python = DefaultPython
	}
	if runner == nil {
		runner = &ExecRunner{}
	}
	return &Toolchain{
		Python:         python,
		Runner:         runner,
		InstallRetries: DefaultInstallRetries,
		RetryDelay:     5 * time.Second,
	}
}

// Token reads the upload token from the named environment variable.
func Token(env string) (string, error) {
	if env == "" {
		env = DefaultTokenEnv
	}
	tok := os.Getenv(env)
	if tok == "" {
		return "", fmt.Errorf("%w: export %s", ErrMissingToken, env)
	}
	return tok, nil
}

// Build produces a wheel for the project and returns its path. Manifests
// found in the project directory build with python -m build; a setup.py
// kept under build_dist runs with the project as working directory so it
// packages the project sources.
func (t *Toolchain) Build(ctx context.Context, m *manifest.Manifest, l Layout) (string, error) {
	if err := os.MkdirAll(l.Dist, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", l.Dist, err)
	}
	if err := os.MkdirAll(l.Build, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", l.Build, err)
	}

	var err error
	if m.Kind == manifest.KindSetupPy && m.Dir() != l.Project {
		_, err = t.Runner.Run(ctx, l.Project, t.Python, m.Path, "bdist_wheel",
			"--dist-dir", l.Dist, "--bdist-dir", l.Build)
	} else {
		_, err = t.Runner.Run(ctx, l.Project, t.Python, "-m", "build", "--wheel",
			"--outdir", l.Dist, m.Dir())
	}
	if err != nil {
		return "", fmt.Errorf("building wheel: %w", err)
	}

	wheel, err := NewestWheel(l.Dist)
	if err != nil {
		return "", err
	}
	return wheel, nil
}

// Uninstall removes name from the current environment. pip treats a
// package that is not installed as a warning, not an error.
func (t *Toolchain) Uninstall(ctx context.Context, name string) error {
	if _, err := t.pip(ctx, "uninstall", "-y", name); err != nil {
		return fmt.Errorf("uninstalling %s: %w", name, err)
	}
	return nil
}

// InstallWheel installs a local wheel, replacing any installed copy.
func (t *Toolchain) InstallWheel(ctx context.Context, wheel string) error {
	if _, err := t.pip(ctx, "install", "--force-reinstall", wheel); err != nil {
		return fmt.Errorf("installing %s: %w", filepath.Base(wheel), err)
	}
	return nil
}

// SmokeTest imports module in a fresh interpreter.
func (t *Toolchain) SmokeTest(ctx context.Context, module string) error {
	if _, err := t.Runner.Run(ctx, "", t.Python, "-c", "import "+module); err != nil {
		return fmt.Errorf("importing %s: %w", module, err)
	}
	return nil
}

// Upload sends wheel to the index upload endpoint with twine.
func (t *Toolchain) Upload(ctx context.Context, wheel, uploadURL, token string) error {
	if token == "" {
		return ErrMissingToken
	}
	_, err := t.Runner.Run(ctx, "", t.Python, "-m", "twine", "upload",
		"--non-interactive", "--repository-url", uploadURL,
		"-u", "__token__", "-p", token, wheel)
	if err != nil {
		return fmt.Errorf("uploading %s: %w", filepath.Base(wheel), err)
	}
	return nil
}

// InstallFromIndex installs name==version from the index's simple API.
// The pinned install is retried while the index catches up; if it never
// succeeds an unpinned install is attempted.
func (t *Toolchain) InstallFromIndex(ctx context.Context, simpleURL, name, version string) error {
	pinned := name + "==" + version
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = t.RetryDelay
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	policy := backoff.WithContext(client.Limit(b, t.InstallRetries), ctx)

	err := backoff.Retry(func() error {
		_, err := t.pip(ctx, "install", "--no-cache-dir", "--index-url", simpleURL, pinned)
		return err
	}, policy)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if _, ferr := t.pip(ctx, "install", "--no-cache-dir", "--index-url", simpleURL, name); ferr != nil {
		return fmt.Errorf("installing %s from %s: %w", pinned, simpleURL, errors.Join(err, ferr))
	}
	return nil
}

func (t *Toolchain) pip(ctx context.Context, args ...string) (string, error) {
	return t.Runner.Run(ctx, "", t.Python, append([]string{"-m", "pip"}, args...)...)
}
