package verify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/git-pkgs/pup/internal/version"
)

// DefaultMaxRounds is the correction ceiling used by DefaultOptions.
const DefaultMaxRounds = 5

// Options controls a negotiation.
type Options struct {
	// AutoIncrement derives replacement versions from the latest published
	// version instead of prompting.
	AutoIncrement bool
	// MaxRounds is the number of corrections allowed. Zero means the first
	// query must succeed as-is.
	MaxRounds int
	// Prompter supplies name, owner and version corrections. Nil behaves
	// like a prompter that always answers blank.
	Prompter Prompter
	// Out receives one status message per round.
	Out io.Writer
}

// DefaultOptions returns interactive-free options with the default ceiling.
func DefaultOptions() Options {
	return Options{MaxRounds: DefaultMaxRounds}
}

// Correction records a single field change applied during negotiation.
type Correction struct {
	Round int
	Field string // "name", "owner" or "version"
	From  string
	To    string
}

// Result is the outcome of a negotiation.
type Result struct {
	Identity    Identity
	Status      Status
	Queries     int
	Corrections []Correction
}

// Negotiate checks id and, while it is not publishable, obtains corrections
// until the index accepts it or opts.MaxRounds corrections have been
// consumed. Transport failures abort immediately. A round in which no
// correction is supplied still counts against the ceiling.
func (v *Verifier) Negotiate(ctx context.Context, id Identity, opts Options) (Result, error) {
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	maxRounds := max(opts.MaxRounds, 0)

	res := Result{Identity: id}
	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		st, err := v.CheckStatus(ctx, res.Identity)
		res.Queries++
		if err != nil {
			return res, err
		}
		res.Status = st
		_, _ = fmt.Fprintln(out, st.Message)

		kind, conflict, err := assess(res.Identity, st, opts.AutoIncrement)
		if err != nil {
			return res, err
		}
		if !conflict {
			return res, nil
		}
		if round >= maxRounds {
			return res, &ConflictError{Kind: kind, Identity: res.Identity, Status: st, Rounds: round}
		}

		next, corr, err := v.correct(ctx, res.Identity, st, kind, opts)
		if err != nil {
			return res, err
		}
		if corr != nil {
			corr.Round = round + 1
			res.Corrections = append(res.Corrections, *corr)
			_, _ = fmt.Fprintf(out, "Using %s %s.\n", corr.Field, corr.To)
		}
		res.Identity = next
	}
}

// assess decides whether st still needs a correction. In auto-increment
// mode an owned version that is free but lower than the latest published
// version is also a conflict. When no published version parses there is
// nothing to compare against and a free version proceeds.
func assess(id Identity, st Status, auto bool) (ConflictKind, bool, error) {
	switch {
	case st.IsNew:
		return 0, false, nil
	case !st.IsOwned:
		return OwnershipConflict, true, nil
	case !st.IsVersionFree:
		return VersionConflict, true, nil
	case !auto || st.Latest == "":
		return 0, false, nil
	}

	c, err := version.Compare(id.Version, st.Latest)
	if err != nil {
		return 0, false, err
	}
	return VersionConflict, c < 0, nil
}

func (v *Verifier) correct(ctx context.Context, id Identity, st Status, kind ConflictKind, opts Options) (Identity, *Correction, error) {
	if kind == OwnershipConflict {
		return correctOwnership(ctx, id, st, opts.Prompter)
	}
	if opts.AutoIncrement {
		return incrementVersion(id, st)
	}
	return promptVersion(ctx, id, st, opts.Prompter)
}

// correctOwnership asks for a new name first and only asks for a new owner
// when the name is left blank, so a single round never changes both.
func correctOwnership(ctx context.Context, id Identity, st Status, p Prompter) (Identity, *Correction, error) {
	name, err := ask(ctx, p, fmt.Sprintf("Enter a different package name for '%s' (leave blank to keep it): ", id.Name))
	if err != nil {
		return id, nil, err
	}
	if name != "" && name != id.Name {
		return id.WithName(name), &Correction{Field: "name", From: id.Name, To: name}, nil
	}

	question := fmt.Sprintf("Enter the owner account that publishes '%s' (leave blank to keep '%s'): ", id.Name, id.Owner)
	if len(st.Owners) > 0 {
		question = fmt.Sprintf("'%s' is owned by %s. Enter the owner account to publish as (leave blank to keep '%s'): ", id.Name, quoteAll(st.Owners), id.Owner)
	}
	owner, err := ask(ctx, p, question)
	if err != nil {
		return id, nil, err
	}
	if owner != "" && owner != id.Owner {
		return id.WithOwner(owner), &Correction{Field: "owner", From: id.Owner, To: owner}, nil
	}
	return id, nil, nil
}

func incrementVersion(id Identity, st Status) (Identity, *Correction, error) {
	latest, err := version.Latest(st.Versions)
	if err != nil {
		return id, nil, err
	}
	if latest == "" {
		latest = id.Version
	}
	next, err := version.NextAfter(id.Version, latest)
	if err != nil {
		return id, nil, err
	}
	return id.WithVersion(next), &Correction{Field: "version", From: id.Version, To: next}, nil
}

func promptVersion(ctx context.Context, id Identity, st Status, p Prompter) (Identity, *Correction, error) {
	question := fmt.Sprintf("Version %s of '%s' is taken. Enter a new version: ", id.Version, id.Name)
	if st.Latest != "" {
		question = fmt.Sprintf("Version %s of '%s' is taken (latest %s). Enter a new version: ", id.Version, id.Name, st.Latest)
	}
	answer, err := ask(ctx, p, question)
	if err != nil {
		return id, nil, err
	}
	if answer == "" || answer == id.Version {
		return id, nil, nil
	}
	if _, err := version.Parse(answer); err != nil {
		return id, nil, err
	}
	return id.WithVersion(answer), &Correction{Field: "version", From: id.Version, To: answer}, nil
}

func ask(ctx context.Context, p Prompter, question string) (string, error) {
	if p == nil {
		return "", nil
	}
	answer, err := p.Prompt(ctx, question)
	if err != nil {
		return "", fmt.Errorf("prompting: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
