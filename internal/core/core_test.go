package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

type fakeIndex struct {
	projects map[string]*Project
	calls    atomic.Int32
}

func (f *fakeIndex) Target() string { return "fake" }

func (f *fakeIndex) FetchProject(ctx context.Context, name string) (*Project, error) {
	f.calls.Add(1)
	if p, ok := f.projects[name]; ok {
		return p, nil
	}
	return nil, &NotFoundError{Target: "fake", Name: name}
}

func (f *fakeIndex) FetchOwners(ctx context.Context, name string) ([]Owner, error) {
	p, err := f.FetchProject(ctx, name)
	if err != nil {
		return nil, err
	}
	return p.Owners, nil
}

func (f *fakeIndex) URLs() URLBuilder { return &BaseURLs{} }

func TestBulkFetchProjects(t *testing.T) {
	idx := &fakeIndex{projects: map[string]*Project{
		"acme-widget": {Name: "acme-widget"},
		"acme-gadget": {Name: "acme-gadget"},
	}}

	results := BulkFetchProjectsWithConcurrency(context.Background(), idx, []string{"acme-widget", "acme-gadget", "missing"}, 2)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results["acme-widget"].Project == nil {
		t.Error("acme-widget should have been fetched")
	}
	if !errors.Is(results["missing"].Err, ErrNotFound) {
		t.Errorf("missing: err = %v, want ErrNotFound", results["missing"].Err)
	}
	if n := idx.calls.Load(); n != 3 {
		t.Errorf("expected 3 fetches, got %d", n)
	}
}

func TestBulkFetchProjects_CancelledContext(t *testing.T) {
	idx := &fakeIndex{projects: map[string]*Project{}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := BulkFetchProjectsWithConcurrency(ctx, idx, []string{"a", "b"}, 1)
	for name, r := range results {
		if r.Err == nil {
			t.Errorf("%s: expected an error from a cancelled context", name)
		}
	}
}

func TestProjectAccessors(t *testing.T) {
	p := &Project{
		Owners: []Owner{{Login: "alice"}, {Name: "No Login"}, {Login: "bob"}},
		Releases: []Release{
			{Version: "1.0.0"},
			{Version: "1.0.1"},
		},
	}

	if got := p.OwnerLogins(); len(got) != 2 || got[0] != "alice" || got[1] != "bob" {
		t.Errorf("OwnerLogins() = %v", got)
	}
	if got := p.Versions(); len(got) != 2 {
		t.Errorf("Versions() = %v", got)
	}
	if _, ok := p.Release("1.0.1"); !ok {
		t.Error("Release(1.0.1) not found")
	}
	if _, ok := p.Release("2.0.0"); ok {
		t.Error("Release(2.0.0) should not exist")
	}
}

func TestNewUnknownTarget(t *testing.T) {
	if _, err := New("nope", "", nil); err == nil {
		t.Error("expected error for unknown index target")
	}
}
