package manifest

import (
	"bufio"
	"bytes"
	"strings"
)

// parseSetupCfg reads name and version from the [metadata] section.
// Values using setuptools directives such as "attr:" are returned verbatim.
func parseSetupCfg(data []byte) (name, version string, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	section := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		if m := headerRe.FindStringSubmatch(line); m != nil {
			section = m[1]
			continue
		}
		if section != "metadata" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			key, value, ok = strings.Cut(line, ":")
		}
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "name":
			name = strings.TrimSpace(value)
		case "version":
			version = strings.TrimSpace(value)
		}
	}
	return name, version, scanner.Err()
}

func setSetupCfg(data []byte, name, version string) ([]byte, error) {
	out := setSectionKeys(string(data), "metadata", []string{"name", "version"},
		map[string]string{"name": name, "version": version}, func(s string) string { return s })
	return []byte(out), nil
}
