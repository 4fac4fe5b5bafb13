package toolchain

import (
	"archive/zip"
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNoWheel is returned when a dist directory holds no wheel.
var ErrNoWheel = errors.New("no wheel found")

// NewestWheel returns the most recently modified .whl file in dir.
func NewestWheel(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.whl"))
	if err != nil {
		return "", err
	}
	var newest string
	var newestTime time.Time
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest, newestTime = m, info.ModTime()
		}
	}
	if newest == "" {
		return "", fmt.Errorf("%w in %s", ErrNoWheel, dir)
	}
	return newest, nil
}

// WheelName holds the fields encoded in a wheel filename.
type WheelName struct {
	Distribution string
	Version      string
	Tags         string
}

// ParseWheelName splits name-version(-build)?-py-abi-platform.whl.
func ParseWheelName(filename string) (WheelName, error) {
	base := strings.TrimSuffix(filepath.Base(filename), ".whl")
	parts := strings.Split(base, "-")
	if len(parts) < 5 || base == filepath.Base(filename) {
		return WheelName{}, fmt.Errorf("invalid wheel filename %q", filename)
	}
	return WheelName{
		Distribution: parts[0],
		Version:      parts[1],
		Tags:         strings.Join(parts[len(parts)-3:], "-"),
	}, nil
}

// WheelEntry is one file inside a wheel.
type WheelEntry struct {
	Name string
	Size uint64
}

// WheelContents describes a wheel archive.
type WheelContents struct {
	Path     string
	Entries  []WheelEntry
	Metadata map[string]string
	TopLevel []string
}

// Inspect lists a wheel's files, reads its METADATA headers and works out
// the top-level import names.
func Inspect(path string) (*WheelContents, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = r.Close() }()

	wc := &WheelContents{Path: path, Metadata: map[string]string{}}
	tops := map[string]bool{}
	var declared []string

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		wc.Entries = append(wc.Entries, WheelEntry{Name: f.Name, Size: f.UncompressedSize64})

		dir, file, nested := strings.Cut(f.Name, "/")
		switch {
		case strings.HasSuffix(dir, ".dist-info"):
			switch file {
			case "METADATA":
				if err := readMetadata(f, wc.Metadata); err != nil {
					return nil, err
				}
			case "top_level.txt":
				declared, err = readLines(f)
				if err != nil {
					return nil, err
				}
			}
		case strings.HasSuffix(dir, ".data"):
		case nested && file == "__init__.py":
			tops[dir] = true
		case !nested && strings.HasSuffix(dir, ".py"):
			tops[strings.TrimSuffix(dir, ".py")] = true
		}
	}

	if len(declared) > 0 {
		wc.TopLevel = declared
	} else {
		for name := range tops {
			wc.TopLevel = append(wc.TopLevel, name)
		}
		sort.Strings(wc.TopLevel)
	}
	return wc, nil
}

// Module returns the import name to smoke test: the first top-level name,
// or the distribution name with dashes replaced.
func (wc *WheelContents) Module() string {
	if len(wc.TopLevel) > 0 {
		return wc.TopLevel[0]
	}
	if name := wc.Metadata["Name"]; name != "" {
		return strings.NewReplacer("-", "_", ".", "_").Replace(name)
	}
	return ""
}

func readMetadata(f *zip.File, into map[string]string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.HasPrefix(line, " ") {
			continue
		}
		if _, seen := into[key]; !seen {
			into[key] = strings.TrimSpace(value)
		}
	}
	return scanner.Err()
}

func readLines(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	var lines []string
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
