package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// DefaultVersion is the version given to scaffolded manifests.
const DefaultVersion = "0.1.0"

var setupTemplate = template.Must(template.New("setup.py").Parse(`# Generated by pup. Edit freely; pup only rewrites name= and version=.
from setuptools import setup, find_packages


def read_file(path):
    try:
        with open(path, encoding="utf-8") as f:
            return f.read()
    except FileNotFoundError:
        return ""


setup(
    name={{ printf "%q" .Name }},
    version={{ printf "%q" .Version }},
    description="",
    long_description=read_file("README.md"),
    long_description_content_type="text/markdown",
    packages=find_packages(exclude=["build_dist", "build_dist.*", "tests", "tests.*"]),
    include_package_data=True,
    python_requires=">=3.8",
    zip_safe=False,
)
`))

// Scaffold writes a minimal setup.py into dir. It is run with the project
// directory as its working directory, so find_packages sees the sources.
func Scaffold(dir, name, version string) (*Manifest, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}

	name = sanitizeName(name)
	var b strings.Builder
	if err := setupTemplate.Execute(&b, struct{ Name, Version string }{name, version}); err != nil {
		return nil, errors.Wrap(err, "rendering setup.py")
	}

	path := filepath.Join(dir, string(KindSetupPy))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return nil, errors.Wrapf(err, "writing %s", path)
	}
	return &Manifest{Path: path, Kind: KindSetupPy, Name: name, Version: version, Scaffolded: true}, nil
}

// sanitizeName turns a directory name into a valid distribution name.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "-_.")
	if out == "" {
		return "example_package"
	}
	return out
}
