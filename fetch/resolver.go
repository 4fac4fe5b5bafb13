package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/git-pkgs/pup/client"
	"github.com/git-pkgs/pup/internal/core"
)

var (
	ErrUnknownIndex  = errors.New("unknown index")
	ErrNoDownloadURL = errors.New("no download URL available")
)

// Index provides release metadata for artifact resolution.
// It is satisfied by every core.Index implementation.
type Index interface {
	Target() string
	FetchProject(ctx context.Context, name string) (*core.Project, error)
	URLs() client.URLBuilder
}

// Resolver finds the published file for a release.
type Resolver struct {
	indexes map[string]Index
}

// NewResolver creates a new resolver.
func NewResolver() *Resolver {
	return &Resolver{
		indexes: make(map[string]Index),
	}
}

// RegisterIndex adds an index under its target name.
func (r *Resolver) RegisterIndex(idx Index) {
	r.indexes[idx.Target()] = idx
}

// ArtifactInfo describes one downloadable distribution file.
type ArtifactInfo struct {
	URL      string
	Filename string
	SHA256   string
	Size     int64
}

// Resolve returns the file named filename from release version of name on
// target. An empty filename picks the first wheel, else the first file.
// ErrNotFound means the project or release is not visible yet.
func (r *Resolver) Resolve(ctx context.Context, target, name, version, filename string) (*ArtifactInfo, error) {
	idx, ok := r.indexes[target]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownIndex, target)
	}

	p, err := idx.FetchProject(ctx, name)
	if errors.Is(err, core.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching project: %w", err)
	}

	rel, ok := p.Release(version)
	if !ok || len(rel.Files) == 0 {
		return nil, ErrNotFound
	}

	file, ok := pickFile(rel.Files, filename)
	if !ok {
		return nil, ErrNotFound
	}
	if file.URL == "" {
		return nil, ErrNoDownloadURL
	}

	name = file.Filename
	if name == "" {
		name = filenameFromURL(file.URL)
	}
	return &ArtifactInfo{
		URL:      file.URL,
		Filename: name,
		SHA256:   file.SHA256,
		Size:     file.Size,
	}, nil
}

func pickFile(files []core.File, filename string) (core.File, bool) {
	if filename != "" {
		for _, f := range files {
			if f.Filename == filename || filenameFromURL(f.URL) == filename {
				return f, true
			}
		}
		return core.File{}, false
	}
	for _, f := range files {
		if f.PackageType == "bdist_wheel" || strings.HasSuffix(f.Filename, ".whl") {
			return f, true
		}
	}
	return files[0], true
}

func filenameFromURL(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	if idx := strings.LastIndex(url, "/"); idx >= 0 {
		return url[idx+1:]
	}
	return url
}
