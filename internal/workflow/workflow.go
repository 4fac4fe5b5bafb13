// Package workflow runs the packaging pipeline: identity verification,
// init-file fixing, building, local install and smoke test, upload,
// install from the index and publication checks.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/git-pkgs/pup/fetch"
	"github.com/git-pkgs/pup/internal/config"
	"github.com/git-pkgs/pup/internal/initfiles"
	"github.com/git-pkgs/pup/internal/manifest"
	"github.com/git-pkgs/pup/internal/toolchain"
	"github.com/git-pkgs/pup/internal/vcs"
	"github.com/git-pkgs/pup/verify"
)

var (
	// ErrNoOwner is returned when no owner is configured or supplied.
	ErrNoOwner = errors.New("no owner configured")

	// ErrDirtyWorktree is returned when require_clean is set and the
	// project has uncommitted changes.
	ErrDirtyWorktree = errors.New("worktree has uncommitted changes")

	// ErrDigestMismatch is returned when the published file differs from
	// the local build.
	ErrDigestMismatch = errors.New("published file does not match local build")
)

// StepError wraps a failure with the step it happened in.
type StepError struct {
	Step  Step
	Title string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", int(e.Step), e.Title, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline holds everything a run needs. Verifier, Toolchain and Config
// are required; the rest have usable zero values.
type Pipeline struct {
	Config     *config.Configuration
	ProjectDir string
	Verifier   *verify.Verifier
	Prompter   verify.Prompter
	Toolchain  *toolchain.Toolchain
	Resolver   *fetch.Resolver
	Downloader fetch.Downloader
	Logger     *log.Logger
	Out        io.Writer

	// Spinner enables progress spinners around external commands.
	Spinner bool
}

// Report summarizes a run.
type Report struct {
	Identity     verify.Identity
	Manifest     *manifest.Manifest
	Negotiation  verify.Result
	Layout       toolchain.Layout
	CreatedInit  []string
	Wheel        string
	Module       string
	Confirmation *fetch.Confirmation
	Tag          string
	Steps        []StepResult
}

type run struct {
	*Pipeline
	ctx    context.Context
	target verify.Target
	report *Report
}

// Run executes every step in order. Steps 1 to 3 always run; the others
// follow the config's step toggles. The report is returned even on error
// and holds whatever was completed.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if p.Out == nil {
		p.Out = io.Discard
	}
	if p.Logger == nil {
		p.Logger = log.New(io.Discard)
	}
	target, err := verify.ParseTarget(p.Config.Index.Target)
	if err != nil {
		return nil, err
	}

	r := &run{
		Pipeline: p,
		ctx:      ctx,
		target:   target,
		report:   &Report{Layout: toolchain.NewLayout(p.ProjectDir, p.Config.Dest)},
	}
	steps := p.Config.Steps

	plan := []struct {
		step    Step
		enabled bool
		fn      func() error
	}{
		{StepOptions, true, r.options},
		{StepManifest, true, r.loadManifest},
		{StepVerify, true, r.verifyIdentity},
		{StepFix, steps.Fix, r.fix},
		{StepBuild, steps.Build, r.build},
		{StepUninstall, steps.Uninstall, r.uninstall},
		{StepInstallLocal, steps.InstallLocal, r.installLocal},
		{StepTestLocal, steps.TestLocal, r.testLocal},
		{StepUninstallLocal, steps.UninstallLocal, r.uninstall},
		{StepUpload, steps.Upload, r.upload},
		{StepInstallRemote, steps.InstallRemote, r.installRemote},
		{StepConfirm, steps.Upload && steps.Confirm, r.confirm},
		{StepTag, steps.Upload && p.Config.TagRelease, r.tag},
	}

	for _, s := range plan {
		title := s.step.Title(displayName(target))
		if !s.enabled {
			skipped(p.Out, s.step, title)
			r.report.Steps = append(r.report.Steps, StepResult{Step: s.step, Title: title, Skipped: true})
			continue
		}
		if err := ctx.Err(); err != nil {
			return r.report, err
		}

		banner(p.Out, s.step, title)
		p.Logger.Debug("starting step", "step", int(s.step), "title", title)
		if err := s.fn(); err != nil {
			p.Logger.Error("step failed", "step", int(s.step), "err", err)
			return r.report, &StepError{Step: s.step, Title: title, Err: err}
		}
		r.report.Steps = append(r.report.Steps, StepResult{Step: s.step, Title: title})
	}
	return r.report, nil
}

func displayName(t verify.Target) string {
	if t == verify.Staging {
		return "Test PyPI"
	}
	return "PyPI"
}

func (r *run) options() error {
	cfg := r.Config
	owner := strings.TrimSpace(cfg.Owner)
	if owner == "" && r.Prompter != nil {
		answer, err := r.Prompter.Prompt(r.ctx, "Your index username (package owner):")
		if err != nil {
			return err
		}
		owner = strings.TrimSpace(answer)
	}
	if owner == "" {
		return fmt.Errorf("%w: set owner in config, PUP_OWNER or --owner", ErrNoOwner)
	}
	r.report.Identity = verify.Identity{Owner: owner, Target: r.target}

	_, _ = fmt.Fprintf(r.Out, "Project:        %s\n", r.ProjectDir)
	_, _ = fmt.Fprintf(r.Out, "Owner:          %s\n", owner)
	_, _ = fmt.Fprintf(r.Out, "Index:          %s\n", displayName(r.target))
	_, _ = fmt.Fprintf(r.Out, "Auto-increment: %t\n", cfg.AutoIncrement)
	_, _ = fmt.Fprintf(r.Out, "Build output:   %s\n", r.report.Layout.BuildDist)
	return nil
}

func (r *run) loadManifest() error {
	m, err := manifest.FindOrScaffold(r.ProjectDir, r.report.Layout.BuildDist)
	if err != nil {
		return err
	}
	if m.Scaffolded {
		r.Logger.Info("scaffolded manifest", "path", m.Path)
	} else {
		r.Logger.Info("using manifest", "path", m.Path)
	}
	if m.Name == "" {
		m.Name = filepath.Base(r.ProjectDir)
	}
	if m.Version == "" {
		m.Version = manifest.DefaultVersion
	}
	r.report.Manifest = m
	r.report.Identity = r.report.Identity.WithName(m.Name).WithVersion(m.Version)
	_, _ = fmt.Fprintf(r.Out, "Package: %s %s (%s)\n", m.Name, m.Version, m.Kind)
	return nil
}

func (r *run) verifyIdentity() error {
	res, err := r.Verifier.Negotiate(r.ctx, r.report.Identity, verify.Options{
		AutoIncrement: r.Config.AutoIncrement,
		MaxRounds:     r.Config.MaxRounds,
		Prompter:      r.Prompter,
		Out:           r.Out,
	})
	r.report.Negotiation = res
	if err != nil {
		return err
	}
	r.report.Identity = res.Identity

	m := r.report.Manifest
	if res.Identity.Name != m.Name || res.Identity.Version != m.Version {
		if err := manifest.SetIdentity(m, res.Identity.Name, res.Identity.Version); err != nil {
			return err
		}
		r.Logger.Info("updated manifest", "name", m.Name, "version", m.Version)
	}
	okColor.Fprintf(r.Out, "Publishing %s\n", res.Identity.PURL())
	return nil
}

func (r *run) fix() error {
	fixer := initfiles.New(r.ProjectDir, r.report.Layout.BuildDist, r.Config.ExcludedFolders...)
	created, err := fixer.Fix()
	if err != nil {
		return err
	}
	r.report.CreatedInit = created
	for _, path := range created {
		_, _ = fmt.Fprintf(r.Out, "Created %s\n", path)
	}
	if len(created) == 0 {
		_, _ = fmt.Fprintln(r.Out, "No missing __init__.py files.")
	}
	return nil
}

func (r *run) build() error {
	r.checkWorktree()
	if r.Config.RequireClean {
		if dirty := r.dirtyFiles(); len(dirty) > 0 {
			return fmt.Errorf("%w: %s", ErrDirtyWorktree, strings.Join(dirty, ", "))
		}
	}

	sp := startProgress(r.Out, r.Spinner, "building wheel")
	wheel, err := r.Toolchain.Build(r.ctx, r.report.Manifest, r.report.Layout)
	sp.stop()
	if err != nil {
		return err
	}
	r.report.Wheel = wheel
	_, _ = fmt.Fprintf(r.Out, "Built %s\n", filepath.Base(wheel))
	return nil
}

func (r *run) checkWorktree() {
	if dirty := r.dirtyFiles(); len(dirty) > 0 {
		warnColor.Fprintf(r.Out, "Warning: %d uncommitted change(s) will be included in the build\n", len(dirty))
		r.Logger.Warn("dirty worktree", "files", dirty)
	}
}

func (r *run) dirtyFiles() []string {
	repo, err := vcs.Open(r.ProjectDir)
	if err != nil {
		if !errors.Is(err, vcs.ErrNotRepository) {
			r.Logger.Debug("git unavailable", "err", err)
		}
		return nil
	}
	rel, err := filepath.Rel(r.ProjectDir, r.report.Layout.BuildDist)
	if err != nil {
		rel = toolchain.BuildDirName
	}
	dirty, err := repo.Dirty(filepath.ToSlash(rel))
	if err != nil {
		r.Logger.Debug("git status failed", "err", err)
		return nil
	}
	return dirty
}

// wheel returns the wheel built in this run, or the newest one left by a
// previous build when the build step is disabled.
func (r *run) wheel() (string, error) {
	if r.report.Wheel != "" {
		return r.report.Wheel, nil
	}
	w, err := toolchain.NewestWheel(r.report.Layout.Dist)
	if err != nil {
		return "", err
	}
	r.report.Wheel = w
	return w, nil
}

func (r *run) uninstall() error {
	return r.Toolchain.Uninstall(r.ctx, r.report.Identity.Name)
}

func (r *run) installLocal() error {
	wheel, err := r.wheel()
	if err != nil {
		return err
	}
	sp := startProgress(r.Out, r.Spinner, "installing "+filepath.Base(wheel))
	defer sp.stop()
	return r.Toolchain.InstallWheel(r.ctx, wheel)
}

func (r *run) testLocal() error {
	wheel, err := r.wheel()
	if err != nil {
		return err
	}
	contents, err := toolchain.Inspect(wheel)
	if err != nil {
		return err
	}
	module := contents.Module()
	if module == "" {
		return fmt.Errorf("no importable module in %s", filepath.Base(wheel))
	}
	r.report.Module = module
	if err := r.Toolchain.SmokeTest(r.ctx, module); err != nil {
		return err
	}
	okColor.Fprintf(r.Out, "import %s succeeded\n", module)
	return nil
}

func (r *run) upload() error {
	token, err := toolchain.Token(r.Config.TokenEnv)
	if err != nil {
		return err
	}
	wheel, err := r.wheel()
	if err != nil {
		return err
	}
	idx, err := r.Verifier.Index(r.target)
	if err != nil {
		return err
	}

	sp := startProgress(r.Out, r.Spinner, "uploading "+filepath.Base(wheel))
	err = r.Toolchain.Upload(r.ctx, wheel, idx.URLs().Upload(), token)
	sp.stop()
	if err != nil {
		return err
	}
	okColor.Fprintf(r.Out, "Uploaded %s\n", filepath.Base(wheel))
	return nil
}

func (r *run) installRemote() error {
	idx, err := r.Verifier.Index(r.target)
	if err != nil {
		return err
	}
	id := r.report.Identity
	sp := startProgress(r.Out, r.Spinner, "installing "+id.Name+"=="+id.Version)
	defer sp.stop()
	return r.Toolchain.InstallFromIndex(r.ctx, idx.URLs().Simple(""), id.Name, id.Version)
}

func (r *run) tag() error {
	repo, err := vcs.Open(r.ProjectDir)
	if errors.Is(err, vcs.ErrNotRepository) {
		r.Logger.Warn("not a git repository, skipping tag")
		return nil
	}
	if err != nil {
		return err
	}
	id := r.report.Identity
	name, err := repo.Tag(id.Version, fmt.Sprintf("Release %s %s", id.Name, id.Version))
	if err != nil {
		return err
	}
	r.report.Tag = name
	okColor.Fprintf(r.Out, "Tagged %s\n", name)
	return nil
}
