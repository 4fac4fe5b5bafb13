package core

import (
	"fmt"
	"strings"

	"github.com/git-pkgs/purl"
	packageurl "github.com/package-url/packageurl-go"
)

// PURLType is the package URL type for Python distributions.
const PURLType = "pypi"

// IsPURL reports whether s looks like a package URL rather than a bare name.
func IsPURL(s string) bool {
	return strings.HasPrefix(s, "pkg:")
}

// ParsePURL parses a pypi package URL into a project name and an optional version.
// Supports both project PURLs (pkg:pypi/requests) and version PURLs (pkg:pypi/requests@2.31.0).
func ParsePURL(s string) (name, version string, err error) {
	p, err := purl.Parse(s)
	if err != nil {
		return "", "", err
	}
	if p.Type != PURLType {
		return "", "", fmt.Errorf("unsupported PURL type %q: expected %q", p.Type, PURLType)
	}
	if p.Namespace != "" {
		return "", "", fmt.Errorf("pypi PURLs have no namespace: %s", s)
	}
	return p.Name, p.Version, nil
}

// BuildPURL returns the package URL for a project name and optional version.
func BuildPURL(name, version string) string {
	return packageurl.NewPackageURL(PURLType, "", name, version, nil, "").ToString()
}
