package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/git-pkgs/pup/client"
	"github.com/git-pkgs/pup/internal/core"
	_ "github.com/git-pkgs/pup/internal/pypi"
)

// DefaultTimeout bounds every index query made by a Verifier.
const DefaultTimeout = 10 * time.Second

// Config selects the indexes a Verifier queries.
type Config struct {
	PrimaryURL string // defaults to https://pypi.org
	StagingURL string // defaults to https://test.pypi.org
	Timeout    time.Duration
	Retries    int
	UserAgent  string

	// Client overrides Timeout, Retries and UserAgent when set.
	Client *client.Client
}

// Verifier checks identities against the index selected by their Target.
type Verifier struct {
	indexes map[Target]core.Index
}

// New builds a Verifier from cfg. Queries are not retried unless
// cfg.Retries is set, so a transport failure surfaces on the first attempt.
func New(cfg Config) (*Verifier, error) {
	c := cfg.Client
	if c == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c = client.NewClient(client.WithTimeout(timeout), client.WithMaxRetries(cfg.Retries))
		if cfg.UserAgent != "" {
			c = c.WithUserAgent(cfg.UserAgent)
		}
	}

	primary, err := core.New(Primary.IndexName(), cfg.PrimaryURL, c)
	if err != nil {
		return nil, err
	}
	staging, err := core.New(Staging.IndexName(), cfg.StagingURL, c)
	if err != nil {
		return nil, err
	}
	return NewWithIndexes(primary, staging), nil
}

// NewWithIndexes builds a Verifier over explicit index clients.
func NewWithIndexes(primary, staging core.Index) *Verifier {
	return &Verifier{indexes: map[Target]core.Index{
		Primary: primary,
		Staging: staging,
	}}
}

// Index returns the index client for t.
func (v *Verifier) Index(t Target) (core.Index, error) {
	idx, ok := v.indexes[t]
	if !ok || idx == nil {
		return nil, fmt.Errorf("no index configured for %s target", t)
	}
	return idx, nil
}

// CheckStatus queries the index once and classifies id. A project that was
// never published is new; any other failure is a *TransportError.
func (v *Verifier) CheckStatus(ctx context.Context, id Identity) (Status, error) {
	p, err := v.fetch(ctx, id.Target, id.Name)
	if err != nil {
		return Status{}, err
	}
	return Classify(id, p), nil
}

func (v *Verifier) fetch(ctx context.Context, t Target, name string) (*core.Project, error) {
	idx, err := v.Index(t)
	if err != nil {
		return nil, err
	}
	p, err := idx.FetchProject(ctx, name)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &TransportError{Target: t, Name: name, Err: err}
	}
	return p, nil
}

// CheckResult is one entry of a CheckAll report.
type CheckResult struct {
	Identity Identity
	Status   Status
	Err      error
}

// CheckAll classifies several identities, fetching each index concurrently.
// Results are returned in input order.
func (v *Verifier) CheckAll(ctx context.Context, ids []Identity) []CheckResult {
	byTarget := make(map[Target][]string)
	for _, id := range ids {
		byTarget[id.Target] = append(byTarget[id.Target], id.Name)
	}

	fetched := make(map[Target]map[string]core.FetchResult, len(byTarget))
	for t, names := range byTarget {
		idx, err := v.Index(t)
		if err != nil {
			fetched[t] = failAll(names, err)
			continue
		}
		fetched[t] = core.BulkFetchProjects(ctx, idx, names)
	}

	results := make([]CheckResult, len(ids))
	for i, id := range ids {
		r := fetched[id.Target][id.Name]
		results[i].Identity = id
		switch {
		case errors.Is(r.Err, core.ErrNotFound):
			results[i].Status = Classify(id, nil)
		case r.Err != nil:
			results[i].Err = &TransportError{Target: id.Target, Name: id.Name, Err: r.Err}
		default:
			results[i].Status = Classify(id, r.Project)
		}
	}
	return results
}

func failAll(names []string, err error) map[string]core.FetchResult {
	out := make(map[string]core.FetchResult, len(names))
	for _, n := range names {
		out[n] = core.FetchResult{Err: err}
	}
	return out
}
