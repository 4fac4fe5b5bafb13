// Package core provides the shared index model and the index factory registry.
package core

import "time"

// Project represents what an index knows about a published project.
type Project struct {
	Name     string
	Summary  string
	Version  string // version the index reports as current
	Owners   []Owner
	Releases []Release
	Metadata map[string]any // index-specific data
}

// Versions returns every released version string.
func (p *Project) Versions() []string {
	versions := make([]string, 0, len(p.Releases))
	for _, r := range p.Releases {
		versions = append(versions, r.Version)
	}
	return versions
}

// Release returns the release with the given version, if any.
func (p *Project) Release(version string) (*Release, bool) {
	for i := range p.Releases {
		if p.Releases[i].Version == version {
			return &p.Releases[i], true
		}
	}
	return nil, false
}

// OwnerLogins returns the account names of every known owner.
func (p *Project) OwnerLogins() []string {
	logins := make([]string, 0, len(p.Owners))
	for _, o := range p.Owners {
		if o.Login != "" {
			logins = append(logins, o.Login)
		}
	}
	return logins
}

// Release represents a single published version of a project.
type Release struct {
	Version    string
	UploadedAt time.Time
	Status     VersionStatus
	Files      []File
}

// File is one distribution file (wheel or sdist) attached to a release.
type File struct {
	Filename    string
	URL         string
	SHA256      string
	Size        int64
	PackageType string // "bdist_wheel", "sdist"
	Yanked      bool
	UploadedAt  time.Time
}

// VersionStatus represents the status of a released version.
type VersionStatus string

const (
	StatusNone   VersionStatus = ""
	StatusYanked VersionStatus = "yanked"
)

// Owner represents an account associated with a project.
type Owner struct {
	Login string
	Name  string
	Email string
	Role  string // "Owner", "Maintainer", "author"
}
