package manifest

import (
	"slices"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

type projectMetadata struct {
	Name    string   `toml:"name"`
	Version string   `toml:"version"`
	Dynamic []string `toml:"dynamic"`
}

type toolMetadata struct {
	Poetry projectMetadata `toml:"poetry"`
}

type pyProject struct {
	Project *projectMetadata `toml:"project"`
	Tool    toolMetadata     `toml:"tool"`
}

func decodePyProject(data []byte) (*pyProject, error) {
	var p pyProject
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "decoding pyproject.toml")
	}
	return &p, nil
}

func parsePyProject(data []byte) (name, version string, err error) {
	p, err := decodePyProject(data)
	if err != nil {
		return "", "", err
	}
	if p.Project != nil && p.Project.Name != "" {
		return p.Project.Name, p.Project.Version, nil
	}
	return p.Tool.Poetry.Name, p.Tool.Poetry.Version, nil
}

// setPyProject edits [project] (or [tool.poetry] for Poetry projects) and
// checks that the result still decodes to the requested values. A version
// declared dynamic is left to the build backend.
func setPyProject(data []byte, name, version string) ([]byte, error) {
	p, err := decodePyProject(data)
	if err != nil {
		return nil, err
	}

	section := "project"
	keys := []string{"name", "version"}
	if p.Project == nil && p.Tool.Poetry.Name != "" {
		section = "tool.poetry"
	}
	if p.Project != nil && slices.Contains(p.Project.Dynamic, "version") {
		keys = []string{"name"}
	}

	out := setSectionKeys(string(data), section, keys,
		map[string]string{"name": name, "version": version}, strconv.Quote)

	gotName, gotVersion, err := parsePyProject([]byte(out))
	if err != nil {
		return nil, errors.Wrap(err, "rewritten pyproject.toml is invalid")
	}
	if gotName != name || (len(keys) == 2 && gotVersion != version) {
		return nil, errors.Errorf("rewritten pyproject.toml has %s %s, want %s %s", gotName, gotVersion, name, version)
	}
	return []byte(out), nil
}
