// Package verify decides whether a (name, owner, version) identity may be
// published to a package index and negotiates a corrected identity when it
// cannot.
package verify

import (
	"fmt"
	"strings"

	"github.com/git-pkgs/pup/internal/core"
)

// Target selects the index an identity is verified against.
type Target int

const (
	Primary Target = iota
	Staging
)

func (t Target) String() string {
	switch t {
	case Primary:
		return "primary"
	case Staging:
		return "staging"
	default:
		return fmt.Sprintf("Target(%d)", int(t))
	}
}

// IndexName returns the registered index identifier for the target.
func (t Target) IndexName() string {
	if t == Staging {
		return "testpypi"
	}
	return "pypi"
}

// ParseTarget accepts "primary"/"pypi" and "staging"/"testpypi".
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "primary", "pypi", "production":
		return Primary, nil
	case "staging", "testpypi", "test":
		return Staging, nil
	}
	return Primary, fmt.Errorf("unknown index target %q", s)
}

// Identity is the tuple under negotiation. Corrections return a new value.
type Identity struct {
	Name    string
	Owner   string
	Version string
	Target  Target
}

func (id Identity) WithName(name string) Identity {
	id.Name = name
	return id
}

func (id Identity) WithOwner(owner string) Identity {
	id.Owner = owner
	return id
}

func (id Identity) WithVersion(version string) Identity {
	id.Version = version
	return id
}

func (id Identity) WithTarget(t Target) Identity {
	id.Target = t
	return id
}

// PURL returns the package URL for the identity.
func (id Identity) PURL() string {
	return core.BuildPURL(id.Name, id.Version)
}

func (id Identity) String() string {
	return fmt.Sprintf("%s==%s (owner %s, %s index)", id.Name, id.Version, id.Owner, id.Target)
}

// Validate checks that every field needed for a status query is present.
func (id Identity) Validate() error {
	var missing []string
	if strings.TrimSpace(id.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(id.Owner) == "" {
		missing = append(missing, "owner")
	}
	if strings.TrimSpace(id.Version) == "" {
		missing = append(missing, "version")
	}
	if len(missing) > 0 {
		return fmt.Errorf("incomplete identity: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// IdentityFromPURL builds an identity from pkg:pypi/name@version.
func IdentityFromPURL(s, owner string, t Target) (Identity, error) {
	name, version, err := core.ParsePURL(s)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Name: name, Owner: owner, Version: version, Target: t}, nil
}
