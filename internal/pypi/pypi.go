// Package pypi provides an index client for pypi.org and test.pypi.org.
package pypi

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/git-pkgs/pup/internal/core"
	"github.com/git-pkgs/pup/internal/version"
)

const (
	DefaultURL = "https://pypi.org"
	StagingURL = "https://test.pypi.org"

	target        = "pypi"
	stagingTarget = "testpypi"

	primaryUploadURL = "https://upload.pypi.org/legacy/"
)

func init() {
	core.Register(target, DefaultURL, func(baseURL string, client *core.Client) core.Index {
		return New(baseURL, client)
	})
	core.Register(stagingTarget, StagingURL, func(baseURL string, client *core.Client) core.Index {
		return NewStaging(baseURL, client)
	})
}

type Index struct {
	target  string
	baseURL string
	client  *core.Client
	urls    *URLs
}

// New returns a client for the production index.
func New(baseURL string, client *core.Client) *Index {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return newIndex(target, baseURL, client)
}

// NewStaging returns a client for the staging index.
func NewStaging(baseURL string, client *core.Client) *Index {
	if baseURL == "" {
		baseURL = StagingURL
	}
	return newIndex(stagingTarget, baseURL, client)
}

func newIndex(t, baseURL string, client *core.Client) *Index {
	if client == nil {
		client = core.DefaultClient()
	}
	i := &Index{
		target:  t,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
	i.urls = &URLs{baseURL: i.baseURL}
	return i
}

func (i *Index) Target() string {
	return i.target
}

func (i *Index) URLs() core.URLBuilder {
	return i.urls
}

type projectResponse struct {
	Info     infoBlock                `json:"info"`
	Releases map[string][]releaseFile `json:"releases"`
}

type infoBlock struct {
	Name            string            `json:"name"`
	Summary         string            `json:"summary"`
	Version         string            `json:"version"`
	Author          string            `json:"author"`
	AuthorEmail     string            `json:"author_email"`
	Maintainer      string            `json:"maintainer"`
	MaintainerEmail string            `json:"maintainer_email"`
	Maintainers     []maintainerInfo  `json:"maintainers"`
	Ownership       *ownership        `json:"ownership"`
	ProjectURLs     map[string]string `json:"project_urls"`
	RequiresPython  string            `json:"requires_python"`
}

type maintainerInfo struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ownership struct {
	Organization string `json:"organization"`
	Roles        []role `json:"roles"`
}

type role struct {
	Role string `json:"role"`
	User string `json:"user"`
}

type releaseFile struct {
	Filename      string            `json:"filename"`
	Digests       map[string]string `json:"digests"`
	URL           string            `json:"url"`
	UploadTime    string            `json:"upload_time"`
	UploadTimeISO string            `json:"upload_time_iso_8601"`
	Yanked        bool              `json:"yanked"`
	YankedReason  string            `json:"yanked_reason"`
	PackageType   string            `json:"packagetype"`
	PythonVersion string            `json:"python_version"`
	Size          int64             `json:"size"`
}

func (i *Index) FetchProject(ctx context.Context, name string) (*core.Project, error) {
	resp, err := i.fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	p := &core.Project{
		Name:     resp.Info.Name,
		Summary:  resp.Info.Summary,
		Version:  resp.Info.Version,
		Owners:   extractOwners(resp.Info),
		Releases: extractReleases(resp.Releases),
		Metadata: map[string]any{
			"normalized_name": normalizeName(resp.Info.Name),
			"requires_python": resp.Info.RequiresPython,
			"project_urls":    resp.Info.ProjectURLs,
		},
	}
	if resp.Info.Ownership != nil && resp.Info.Ownership.Organization != "" {
		p.Metadata["organization"] = resp.Info.Ownership.Organization
	}
	if p.Name == "" {
		p.Name = name
	}
	return p, nil
}

func (i *Index) FetchOwners(ctx context.Context, name string) ([]core.Owner, error) {
	resp, err := i.fetch(ctx, name)
	if err != nil {
		return nil, err
	}
	return extractOwners(resp.Info), nil
}

func (i *Index) fetch(ctx context.Context, name string) (*projectResponse, error) {
	var resp projectResponse
	if err := i.client.GetJSON(ctx, i.urls.API(name, ""), &resp); err != nil {
		var httpErr *core.HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return nil, &core.NotFoundError{Target: i.target, Name: name}
		}
		return nil, err
	}
	return &resp, nil
}

// extractOwners resolves the account list from the richest field available:
// ownership roles, then the legacy maintainers list, then the free-text
// maintainer and author fields.
func extractOwners(info infoBlock) []core.Owner {
	var owners []core.Owner
	seen := make(map[string]bool)
	add := func(o core.Owner) {
		key := strings.ToLower(o.Login)
		if key == "" || seen[key] {
			return
		}
		seen[key] = true
		owners = append(owners, o)
	}

	if info.Ownership != nil {
		for _, r := range info.Ownership.Roles {
			add(core.Owner{Login: r.User, Role: r.Role})
		}
	}
	if len(owners) > 0 {
		return owners
	}

	for _, m := range info.Maintainers {
		add(core.Owner{Login: m.Username, Email: m.Email, Role: "Maintainer"})
	}
	if len(owners) > 0 {
		return owners
	}

	if info.Maintainer != "" {
		add(core.Owner{Login: info.Maintainer, Name: info.Maintainer, Email: info.MaintainerEmail, Role: "maintainer"})
		return owners
	}
	if info.Author != "" {
		add(core.Owner{Login: info.Author, Name: info.Author, Email: info.AuthorEmail, Role: "author"})
	}
	return owners
}

func extractReleases(releases map[string][]releaseFile) []core.Release {
	out := make([]core.Release, 0, len(releases))
	for num, files := range releases {
		rel := core.Release{Version: num}
		allYanked := len(files) > 0

		for _, f := range files {
			uploaded := parseUploadTime(f)
			if rel.UploadedAt.IsZero() || (!uploaded.IsZero() && uploaded.Before(rel.UploadedAt)) {
				rel.UploadedAt = uploaded
			}
			if !f.Yanked {
				allYanked = false
			}
			rel.Files = append(rel.Files, core.File{
				Filename:    f.Filename,
				URL:         f.URL,
				SHA256:      f.Digests["sha256"],
				Size:        f.Size,
				PackageType: f.PackageType,
				Yanked:      f.Yanked,
				UploadedAt:  uploaded,
			})
		}
		if allYanked {
			rel.Status = core.StatusYanked
		}
		out = append(out, rel)
	}
	sort.Slice(out, func(a, b int) bool { return version.Less(out[a].Version, out[b].Version) })
	return out
}

func parseUploadTime(f releaseFile) time.Time {
	if f.UploadTimeISO != "" {
		if t, err := time.Parse(time.RFC3339, f.UploadTimeISO); err == nil {
			return t
		}
	}
	if f.UploadTime != "" {
		if t, err := time.Parse("2006-01-02T15:04:05", f.UploadTime); err == nil {
			return t
		}
	}
	return time.Time{}
}

// normalizeName applies the index's name normalization: lowercase with runs
// of '-', '_' and '.' collapsed to a single '-'.
func normalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	lastSep := false
	for _, r := range strings.ToLower(name) {
		if r == '-' || r == '_' || r == '.' {
			if !lastSep {
				b.WriteByte('-')
			}
			lastSep = true
			continue
		}
		lastSep = false
		b.WriteRune(r)
	}
	return b.String()
}

type URLs struct {
	baseURL string
}

func (u *URLs) Project(name, version string) string {
	if version != "" {
		return fmt.Sprintf("%s/project/%s/%s/", u.baseURL, name, version)
	}
	return fmt.Sprintf("%s/project/%s/", u.baseURL, name)
}

func (u *URLs) API(name, version string) string {
	if version != "" {
		return fmt.Sprintf("%s/pypi/%s/%s/json", u.baseURL, url.PathEscape(name), url.PathEscape(version))
	}
	return fmt.Sprintf("%s/pypi/%s/json", u.baseURL, url.PathEscape(name))
}

func (u *URLs) Simple(name string) string {
	if name == "" {
		return u.baseURL + "/simple/"
	}
	return fmt.Sprintf("%s/simple/%s/", u.baseURL, normalizeName(name))
}

// Upload returns the legacy upload endpoint. Production uploads go to a
// separate host; any other base serves /legacy/ itself.
func (u *URLs) Upload() string {
	if u.baseURL == DefaultURL {
		return primaryUploadURL
	}
	return u.baseURL + "/legacy/"
}

func (u *URLs) PURL(name, version string) string {
	return core.BuildPURL(normalizeName(name), version)
}
