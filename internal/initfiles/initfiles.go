// Package initfiles finds package directories that are missing an
// __init__.py marker, creates the markers, and undoes exactly what it
// created through a JSON ledger.
package initfiles

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	// InitFile is the marker that makes a directory a regular package.
	InitFile = "__init__.py"

	// LedgerFile records the markers created by Fix, relative to the
	// build_dist directory.
	LedgerFile = "created_init_files.json"
)

// DefaultExcluded lists directory names that never hold package sources.
var DefaultExcluded = []string{
	"__pycache__", ".directory", ".Trashes", ".Python", ".pybuilder",
	".ipynb_checkpoints", ".venv", ".git", ".vscode", ".idea", ".eclipse",
	".classpath", ".project", ".settings", ".DS_Store", "build_dist",
	"build", "dist", "env", "venv", "bin", "obj", "out", "lib", "libs",
	"node_modules", ".npm", ".cache", ".next", "target", ".metadata",
	".gradle", ".tmp", "tmp", "temp", ".serverless", ".terraform",
}

// Fixer creates and removes __init__.py markers under a project root.
type Fixer struct {
	Root     string
	Ledger   string
	excluded map[string]bool
}

// New returns a Fixer for root that keeps its ledger in ledgerDir. extra
// names are excluded in addition to DefaultExcluded.
func New(root, ledgerDir string, extra ...string) *Fixer {
	excluded := make(map[string]bool, len(DefaultExcluded)+len(extra))
	for _, name := range DefaultExcluded {
		excluded[name] = true
	}
	for _, name := range extra {
		if name = strings.TrimSpace(name); name != "" {
			excluded[name] = true
		}
	}
	return &Fixer{
		Root:     root,
		Ledger:   filepath.Join(ledgerDir, LedgerFile),
		excluded: excluded,
	}
}

func (f *Fixer) skip(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "__") || f.excluded[name]
}

// Missing returns the directories that contain .py files but no
// __init__.py, sorted. The root itself is never reported.
func (f *Fixer) Missing() ([]string, error) {
	var missing []string
	err := filepath.WalkDir(f.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != f.Root && f.skip(d.Name()) {
			return filepath.SkipDir
		}
		if path == f.Root {
			return nil
		}
		needs, err := needsInit(path)
		if err != nil {
			return err
		}
		if needs {
			missing = append(missing, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scanning %s", f.Root)
	}
	sort.Strings(missing)
	return missing, nil
}

func needsInit(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	hasPy := false
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if e.Name() == InitFile {
			return false, nil
		}
		if strings.HasSuffix(e.Name(), ".py") {
			hasPy = true
		}
	}
	return hasPy, nil
}

// Fix creates an empty __init__.py in every directory reported by Missing
// and appends the created paths to the ledger. It returns the new files.
func (f *Fixer) Fix() ([]string, error) {
	dirs, err := f.Missing()
	if err != nil {
		return nil, err
	}

	recorded, err := f.Recorded()
	if err != nil {
		return nil, err
	}

	var created []string
	for _, dir := range dirs {
		path := filepath.Join(dir, InitFile)
		file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			_ = f.writeLedger(append(recorded, created...))
			return created, errors.Wrapf(err, "creating %s", path)
		}
		_ = file.Close()
		created = append(created, path)
	}

	if len(created) == 0 {
		return nil, nil
	}
	if err := f.writeLedger(append(recorded, created...)); err != nil {
		return created, err
	}
	return created, nil
}

// Unfix removes the files recorded in the ledger. Files already gone are
// skipped. The ledger keeps only the entries that could not be removed.
func (f *Fixer) Unfix() ([]string, error) {
	recorded, err := f.Recorded()
	if err != nil {
		return nil, err
	}

	var removed, kept []string
	var firstErr error
	for _, path := range recorded {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = append(removed, path)
		case errors.Is(err, fs.ErrNotExist):
		default:
			kept = append(kept, path)
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "removing %s", path)
			}
		}
	}

	if err := f.writeLedger(kept); err != nil {
		return removed, err
	}
	return removed, firstErr
}

// Recorded returns the absolute paths listed in the ledger. A missing
// ledger is treated as empty.
func (f *Fixer) Recorded() ([]string, error) {
	data, err := os.ReadFile(f.Ledger)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", f.Ledger)
	}

	var entries []string
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, errors.Wrapf(err, "decoding %s", f.Ledger)
		}
	}

	base := filepath.Dir(f.Ledger)
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if !filepath.IsAbs(e) {
			e = filepath.Join(base, filepath.FromSlash(e))
		}
		paths = append(paths, filepath.Clean(e))
	}
	return paths, nil
}

func (f *Fixer) writeLedger(paths []string) error {
	base := filepath.Dir(f.Ledger)
	entries := make([]string, 0, len(paths))
	for _, p := range paths {
		if rel, err := filepath.Rel(base, p); err == nil {
			p = filepath.ToSlash(rel)
		}
		if !slices.Contains(entries, p) {
			entries = append(entries, p)
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", base)
	}
	if err := os.WriteFile(f.Ledger, append(data, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", f.Ledger)
	}
	return nil
}
