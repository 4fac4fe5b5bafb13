// Package vcs inspects and tags the git repository holding a project.
package vcs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotRepository is returned by Open when the project is not under git.
var ErrNotRepository = errors.New("not a git repository")

// ErrTagExists is returned by Tag when the release tag is already present.
var ErrTagExists = errors.New("tag already exists")

// Repo wraps the repository enclosing a project directory.
type Repo struct {
	repo *git.Repository
}

// Open finds the repository containing dir, searching parent directories.
func Open(dir string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, ErrNotRepository
	}
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", dir, err)
	}
	return &Repo{repo: r}, nil
}

// Dirty returns the paths with uncommitted changes, sorted. ignore lists
// path prefixes (such as the build directory) that do not count.
func (r *Repo) Dirty(ignore ...string) ([]string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("accessing worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading status: %w", err)
	}

	var dirty []string
	for path, s := range status {
		if s.Staging == git.Unmodified && s.Worktree == git.Unmodified {
			continue
		}
		if ignored(path, ignore) {
			continue
		}
		dirty = append(dirty, path)
	}
	sort.Strings(dirty)
	return dirty, nil
}

func ignored(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSuffix(p, "/")
		if p != "" && (path == p || strings.HasPrefix(path, p+"/")) {
			return true
		}
	}
	return false
}

// TagName returns the release tag for version.
func TagName(version string) string {
	return "v" + strings.TrimPrefix(version, "v")
}

// Tag creates an annotated release tag for version at HEAD and returns
// its name.
func (r *Repo) Tag(version, message string) (string, error) {
	name := TagName(version)
	if _, err := r.repo.Tag(name); err == nil {
		return "", fmt.Errorf("%w: %s", ErrTagExists, name)
	} else if !errors.Is(err, git.ErrTagNotFound) {
		return "", fmt.Errorf("looking up tag %s: %w", name, err)
	}

	head, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}

	opts := &git.CreateTagOptions{
		Message: message,
		Tagger:  &object.Signature{Name: "pup", When: time.Now()},
	}
	if cfg, err := r.repo.ConfigScoped(config.GlobalScope); err == nil && cfg.User.Name != "" {
		opts.Tagger.Name, opts.Tagger.Email = cfg.User.Name, cfg.User.Email
	}
	if opts.Message == "" {
		opts.Message = "Release " + name
	}
	if _, err := r.repo.CreateTag(name, head.Hash(), opts); err != nil {
		return "", fmt.Errorf("creating tag %s: %w", name, err)
	}
	return name, nil
}
