package verify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/git-pkgs/pup/internal/version"
)

var (
	// ErrVerificationUnavailable matches every TransportError.
	ErrVerificationUnavailable = errors.New("verification unavailable")
	// ErrUnresolved matches every ConflictError.
	ErrUnresolved = errors.New("could not resolve identity")

	ErrOwnershipConflict = errors.New("ownership conflict")
	ErrVersionConflict   = errors.New("version conflict")
)

// UnparseableVersion is returned when a version has non-numeric segments.
type UnparseableVersion = version.UnparseableError

// TransportError means the index could not be queried: DNS, timeout, or a
// status other than 200 and 404.
type TransportError struct {
	Target Target
	Name   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("verification unavailable: querying %s index for %s: %v", e.Target, e.Name, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrVerificationUnavailable
}

// ConflictKind names the constraint a negotiation could not satisfy.
type ConflictKind int

const (
	OwnershipConflict ConflictKind = iota
	VersionConflict
)

func (k ConflictKind) String() string {
	if k == VersionConflict {
		return "version conflict"
	}
	return "ownership conflict"
}

// ConflictError is returned when negotiation runs out of rounds.
type ConflictError struct {
	Kind     ConflictKind
	Identity Identity
	Status   Status
	Rounds   int
}

func (e *ConflictError) Error() string {
	var detail string
	switch e.Kind {
	case OwnershipConflict:
		owners := "unknown owners"
		if len(e.Status.Owners) > 0 {
			owners = strings.Join(e.Status.Owners, ", ")
		}
		detail = fmt.Sprintf("%s is owned by %s, not %s", e.Identity.Name, owners, e.Identity.Owner)
	case VersionConflict:
		detail = fmt.Sprintf("version %s of %s is not publishable", e.Identity.Version, e.Identity.Name)
		if e.Status.Latest != "" {
			detail += fmt.Sprintf(" (latest published %s)", e.Status.Latest)
		}
	}
	return fmt.Sprintf("could not resolve identity after %d correction rounds: %s: %s", e.Rounds, e.Kind, detail)
}

func (e *ConflictError) Is(target error) bool {
	switch target {
	case ErrUnresolved:
		return true
	case ErrOwnershipConflict:
		return e.Kind == OwnershipConflict
	case ErrVersionConflict:
		return e.Kind == VersionConflict
	}
	return false
}
