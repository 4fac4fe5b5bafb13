package verify

import (
	"fmt"
	"strings"

	"github.com/git-pkgs/pup/internal/core"
	"github.com/git-pkgs/pup/internal/version"
)

// Status is the classification of an identity against the index at the
// time of the query.
type Status struct {
	IsNew         bool
	IsOwned       bool
	IsVersionFree bool
	Message       string

	Owners   []string // accounts associated with the existing project
	Versions []string // every published version
	Latest   string   // highest parseable published version, if any
}

// Publishable reports whether the identity may proceed as-is.
func (s Status) Publishable() bool {
	return s.IsNew || (s.IsOwned && s.IsVersionFree)
}

// Classify derives a Status from the index's view of a project. A nil
// project means the name has never been published.
func Classify(id Identity, p *core.Project) Status {
	if p == nil {
		return Status{
			IsNew:         true,
			IsOwned:       true,
			IsVersionFree: true,
			Message:       fmt.Sprintf("The package name '%s' is available and can be claimed.", id.Name),
		}
	}

	st := Status{
		Owners:   p.OwnerLogins(),
		Versions: p.Versions(),
	}
	st.Latest, _ = version.Latest(st.Versions)
	st.IsOwned = containsFold(st.Owners, id.Owner)
	if st.IsOwned {
		st.IsVersionFree = !version.Contains(st.Versions, id.Version)
	}
	st.Message = message(id, st)
	return st
}

func message(id Identity, st Status) string {
	switch {
	case !st.IsOwned && len(st.Owners) == 0:
		return fmt.Sprintf("The package '%s' already exists, but owner information is unavailable; cannot confirm that '%s' owns it.", id.Name, id.Owner)
	case !st.IsOwned:
		return fmt.Sprintf("The package '%s' already exists and is owned by %s, not '%s'.", id.Name, quoteAll(st.Owners), id.Owner)
	case st.IsVersionFree:
		msg := fmt.Sprintf("The package '%s' is owned by '%s' and version %s is available.", id.Name, id.Owner, id.Version)
		if st.Latest != "" {
			msg += fmt.Sprintf(" Latest published version is %s.", st.Latest)
		}
		return msg
	default:
		msg := fmt.Sprintf("Version %s of '%s' is already published.", id.Version, id.Name)
		if st.Latest != "" {
			msg += fmt.Sprintf(" Latest published version is %s.", st.Latest)
		}
		return msg
	}
}

func containsFold(list []string, s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func quoteAll(list []string) string {
	quoted := make([]string, len(list))
	for i, s := range list {
		quoted[i] = "'" + s + "'"
	}
	return strings.Join(quoted, ", ")
}
