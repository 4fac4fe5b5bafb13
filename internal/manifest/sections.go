package manifest

import (
	"regexp"
	"strings"
)

var (
	headerRe = regexp.MustCompile(`^\s*\[\s*([^\]]+?)\s*\]\s*(#.*)?$`)
	assignRe = regexp.MustCompile(`^(\s*)([A-Za-z0-9_.-]+)(\s*)([=:])`)
)

// setSectionKeys replaces key assignments inside [section] of an INI-like
// or TOML document. Keys missing from the section are inserted directly
// after its header; a missing section is appended. format renders a value.
func setSectionKeys(doc, section string, keys []string, values map[string]string, format func(string) string) string {
	lines := strings.Split(doc, "\n")
	done := make(map[string]bool, len(keys))
	headerAt := -1
	current := ""

	for i, line := range lines {
		if m := headerRe.FindStringSubmatch(line); m != nil {
			current = strings.Trim(m[1], `"'`)
			if current == section {
				headerAt = i
			}
			continue
		}
		if current != section {
			continue
		}
		m := assignRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		key := m[2]
		if _, ok := values[key]; !ok || done[key] {
			continue
		}
		lines[i] = m[1] + key + " " + m[4] + " " + format(values[key])
		done[key] = true
	}

	var missing []string
	for _, k := range keys {
		if !done[k] {
			missing = append(missing, k+" = "+format(values[k]))
		}
	}
	if len(missing) == 0 {
		return strings.Join(lines, "\n")
	}

	if headerAt < 0 {
		out := strings.TrimRight(strings.Join(lines, "\n"), "\n")
		if out != "" {
			out += "\n\n"
		}
		return out + "[" + section + "]\n" + strings.Join(missing, "\n") + "\n"
	}

	result := make([]string, 0, len(lines)+len(missing))
	result = append(result, lines[:headerAt+1]...)
	result = append(result, missing...)
	result = append(result, lines[headerAt+1:]...)
	return strings.Join(result, "\n")
}
