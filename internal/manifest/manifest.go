// Package manifest locates, reads, scaffolds and rewrites the packaging
// metadata of a Python project: pyproject.toml, setup.cfg or setup.py.
package manifest

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Kind identifies the manifest format.
type Kind string

const (
	KindPyProject Kind = "pyproject.toml"
	KindSetupCfg  Kind = "setup.cfg"
	KindSetupPy   Kind = "setup.py"
)

// searchOrder is the precedence used within a single directory.
var searchOrder = []Kind{KindPyProject, KindSetupCfg, KindSetupPy}

// ErrNotFound is returned by Find when no directory holds a manifest.
var ErrNotFound = errors.New("no pyproject.toml, setup.cfg or setup.py found")

// Manifest is the packaging metadata that drives a build.
type Manifest struct {
	Path    string
	Kind    Kind
	Name    string
	Version string

	// Scaffolded is set when pup generated the file itself.
	Scaffolded bool
}

// Dir returns the directory holding the manifest.
func (m *Manifest) Dir() string {
	return filepath.Dir(m.Path)
}

// Find looks in each directory in turn and returns the first manifest found.
// Within a directory pyproject.toml wins over setup.cfg over setup.py. A
// pyproject.toml without a name (build-system only) defers to the next
// format in the same directory.
func Find(dirs ...string) (*Manifest, error) {
	for _, dir := range dirs {
		var fallback *Manifest
		for _, kind := range searchOrder {
			path := filepath.Join(dir, string(kind))
			if _, err := os.Stat(path); err != nil {
				continue
			}
			m, err := Load(path)
			if err != nil {
				return nil, err
			}
			if m.Name != "" {
				return m, nil
			}
			if fallback == nil {
				fallback = m
			}
		}
		if fallback != nil {
			return fallback, nil
		}
	}
	return nil, ErrNotFound
}

// Load reads the manifest at path, choosing the parser from its file name.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}

	m := &Manifest{Path: path, Kind: Kind(filepath.Base(path))}
	switch m.Kind {
	case KindPyProject:
		m.Name, m.Version, err = parsePyProject(data)
	case KindSetupCfg:
		m.Name, m.Version, err = parseSetupCfg(data)
	case KindSetupPy:
		m.Name, m.Version, err = parseSetupPy(data)
	default:
		return nil, errors.Errorf("unsupported manifest %s", path)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	return m, nil
}

// FindOrScaffold finds a manifest in projectDir, then buildDir, and
// scaffolds a setup.py in buildDir when neither has one.
func FindOrScaffold(projectDir, buildDir string) (*Manifest, error) {
	m, err := Find(projectDir, buildDir)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return Scaffold(buildDir, filepath.Base(projectDir), DefaultVersion)
}

// SetIdentity rewrites the name and version in the manifest file in place,
// leaving the rest of the file untouched.
func SetIdentity(m *Manifest, name, version string) error {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", m.Path)
	}

	var out []byte
	switch m.Kind {
	case KindPyProject:
		out, err = setPyProject(data, name, version)
	case KindSetupCfg:
		out, err = setSetupCfg(data, name, version)
	case KindSetupPy:
		out, err = setSetupPy(data, name, version)
	default:
		err = errors.Errorf("unsupported manifest kind %q", m.Kind)
	}
	if err != nil {
		return errors.Wrapf(err, "updating %s", m.Path)
	}

	info, err := os.Stat(m.Path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(m.Path, out, info.Mode().Perm()); err != nil {
		return errors.Wrapf(err, "writing %s", m.Path)
	}
	m.Name, m.Version = name, version
	return nil
}
