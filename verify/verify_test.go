package verify

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const acmeOwnedByAlice = `{
  "info": {"name": "acme-widget", "version": "1.0.1",
           "ownership": {"roles": [{"role": "Owner", "user": "alice"}]}},
  "releases": {"1.0.0": [], "1.0.1": []}
}`

const acmeOwnedByBob = `{
  "info": {"name": "acme-widget", "version": "0.3.0",
           "maintainers": [{"username": "bob"}]},
  "releases": {"0.3.0": []}
}`

const acmePreReleasesOnly = `{
  "info": {"name": "acme-widget", "version": "0.2b1",
           "ownership": {"roles": [{"role": "Owner", "user": "alice"}]}},
  "releases": {"0.1a1": [], "0.2b1": []}
}`

const acmeNoOwners = `{
  "info": {"name": "acme-widget", "version": "0.3.0"},
  "releases": {"0.3.0": []}
}`

// fakeIndex serves project JSON by name; unknown names are 404.
type fakeIndex struct {
	server   *httptest.Server
	projects map[string]string
	status   int
	queries  atomic.Int32
}

func newFakeIndex(t *testing.T, projects map[string]string) *fakeIndex {
	t.Helper()
	f := &fakeIndex{projects: projects}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.queries.Add(1)
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/pypi/"), "/json")
		body, ok := f.projects[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeIndex) verifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := New(Config{PrimaryURL: f.server.URL, StagingURL: f.server.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return v
}

func scripted(answers ...string) Prompter {
	i := 0
	return PrompterFunc(func(ctx context.Context, question string) (string, error) {
		if i >= len(answers) {
			return "", nil
		}
		a := answers[i]
		i++
		return a, nil
	})
}

func TestCheckStatus_Unpublished(t *testing.T) {
	f := newFakeIndex(t, nil)
	v := f.verifier(t)

	st, err := v.CheckStatus(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.0"})
	if err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}
	if !st.IsNew || !st.IsOwned || !st.IsVersionFree {
		t.Errorf("status = %+v, want all true", st)
	}
	if !strings.HasSuffix(st.Message, "available and can be claimed.") {
		t.Errorf("Message = %q", st.Message)
	}
}

func TestCheckStatus_OwnedVersionFree(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByAlice})
	v := f.verifier(t)

	st, err := v.CheckStatus(context.Background(), Identity{Name: "acme-widget", Owner: "Alice", Version: "1.0.2"})
	if err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}
	if st.IsNew {
		t.Error("IsNew should be false for a published project")
	}
	if !st.IsOwned || !st.IsVersionFree {
		t.Errorf("status = %+v, want owned and free", st)
	}
	if st.Latest != "1.0.1" {
		t.Errorf("Latest = %q, want 1.0.1", st.Latest)
	}
}

func TestCheckStatus_VersionTaken(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByAlice})
	v := f.verifier(t)

	st, err := v.CheckStatus(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.1"})
	if err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}
	if !st.IsOwned || st.IsVersionFree {
		t.Errorf("status = %+v, want owned and taken", st)
	}
	if !strings.Contains(st.Message, "already published") {
		t.Errorf("Message = %q", st.Message)
	}
}

func TestCheckStatus_NotOwned(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByBob})
	v := f.verifier(t)

	st, err := v.CheckStatus(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "0.4.0"})
	if err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}
	if st.IsOwned || st.IsVersionFree {
		t.Errorf("status = %+v, want not owned and version unchecked", st)
	}
	if !strings.Contains(st.Message, "'bob'") {
		t.Errorf("Message should name the owner: %q", st.Message)
	}
}

func TestCheckStatus_OwnerUnknown(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeNoOwners})
	v := f.verifier(t)

	st, err := v.CheckStatus(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "0.4.0"})
	if err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}
	if !strings.Contains(st.Message, "owner information is unavailable") {
		t.Errorf("Message = %q", st.Message)
	}
}

func TestCheckStatus_TransportError(t *testing.T) {
	f := newFakeIndex(t, nil)
	f.status = http.StatusInternalServerError
	v := f.verifier(t)

	_, err := v.CheckStatus(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.0"})

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T: %v", err, err)
	}
	if !errors.Is(err, ErrVerificationUnavailable) {
		t.Error("TransportError should match ErrVerificationUnavailable")
	}
	if n := f.queries.Load(); n != 1 {
		t.Errorf("expected 1 query, got %d", n)
	}
}

func TestCheckStatus_StagingTarget(t *testing.T) {
	primary := newFakeIndex(t, nil)
	staging := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByBob})

	v, err := New(Config{PrimaryURL: primary.server.URL, StagingURL: staging.server.URL})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	st, err := v.CheckStatus(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.0", Target: Staging})
	if err != nil {
		t.Fatalf("CheckStatus failed: %v", err)
	}
	if st.IsNew {
		t.Error("staging index has the project; IsNew should be false")
	}
	if primary.queries.Load() != 0 {
		t.Error("primary index should not have been queried")
	}
}

func TestNegotiate_NewName(t *testing.T) {
	f := newFakeIndex(t, nil)
	v := f.verifier(t)
	id := Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.0"}

	res, err := v.Negotiate(context.Background(), id, DefaultOptions())
	if err != nil {
		t.Fatalf("Negotiate failed: %v", err)
	}
	if res.Identity != id {
		t.Errorf("Identity = %+v, want unchanged", res.Identity)
	}
	if len(res.Corrections) != 0 || res.Queries != 1 {
		t.Errorf("corrections = %d, queries = %d; want 0 and 1", len(res.Corrections), res.Queries)
	}
}

func TestNegotiate_AutoIncrement(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByAlice})
	v := f.verifier(t)
	var out bytes.Buffer

	opts := DefaultOptions()
	opts.AutoIncrement = true
	opts.Out = &out

	res, err := v.Negotiate(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.1"}, opts)
	if err != nil {
		t.Fatalf("Negotiate failed: %v", err)
	}
	if res.Identity.Version != "1.0.2" {
		t.Errorf("Version = %q, want 1.0.2", res.Identity.Version)
	}

	want := []Correction{{Round: 1, Field: "version", From: "1.0.1", To: "1.0.2"}}
	if diff := cmp.Diff(want, res.Corrections); diff != "" {
		t.Errorf("corrections mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.String(), "already published") {
		t.Errorf("status messages not written: %q", out.String())
	}
}

func TestNegotiate_AutoIncrementOverridesLowerVersion(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByAlice})
	v := f.verifier(t)

	opts := DefaultOptions()
	opts.AutoIncrement = true

	res, err := v.Negotiate(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "0.9"}, opts)
	if err != nil {
		t.Fatalf("Negotiate failed: %v", err)
	}
	if res.Identity.Version != "1.0.2" {
		t.Errorf("Version = %q, want 1.0.2", res.Identity.Version)
	}
}

func TestNegotiate_InteractiveAcceptsLowerVersion(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByAlice})
	v := f.verifier(t)

	opts := DefaultOptions()
	opts.Prompter = scripted("0.9.5")

	res, err := v.Negotiate(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.0"}, opts)
	if err != nil {
		t.Fatalf("Negotiate failed: %v", err)
	}
	if res.Identity.Version != "0.9.5" {
		t.Errorf("Version = %q, want 0.9.5", res.Identity.Version)
	}
}

func TestNegotiate_InteractiveUnparseable(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByAlice})
	v := f.verifier(t)

	opts := DefaultOptions()
	opts.Prompter = scripted("1.0.x")

	_, err := v.Negotiate(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.1"}, opts)

	var uv *UnparseableVersion
	if !errors.As(err, &uv) {
		t.Fatalf("expected *UnparseableVersion, got %T: %v", err, err)
	}
	if uv.Version != "1.0.x" {
		t.Errorf("Version = %q, want 1.0.x", uv.Version)
	}
}

func TestNegotiate_AutoIncrementUnparseableProposal(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByAlice})
	v := f.verifier(t)

	opts := DefaultOptions()
	opts.AutoIncrement = true

	_, err := v.Negotiate(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "2.0.beta"}, opts)

	var uv *UnparseableVersion
	if !errors.As(err, &uv) {
		t.Fatalf("expected *UnparseableVersion, got %T: %v", err, err)
	}
}

func TestNegotiate_AutoIncrementOnlyPreReleasesPublished(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmePreReleasesOnly})
	v := f.verifier(t)
	id := Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.0"}

	st, err := v.CheckStatus(context.Background(), id)
	if err != nil || !st.Publishable() {
		t.Fatalf("CheckStatus = %+v, %v; want publishable", st, err)
	}

	opts := DefaultOptions()
	opts.AutoIncrement = true
	res, err := v.Negotiate(context.Background(), id, opts)
	if err != nil {
		t.Fatalf("Negotiate failed: %v", err)
	}
	if diff := cmp.Diff(id, res.Identity); diff != "" {
		t.Errorf("identity changed (-want +got):\n%s", diff)
	}
	if len(res.Corrections) != 0 {
		t.Errorf("corrections = %+v, want none", res.Corrections)
	}
}

func TestNegotiate_OwnershipConflictExhaustsRounds(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByBob})
	v := f.verifier(t)

	res, err := v.Negotiate(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.0"}, DefaultOptions())

	if !errors.Is(err, ErrOwnershipConflict) {
		t.Fatalf("expected ownership conflict, got %v", err)
	}
	if !errors.Is(err, ErrUnresolved) {
		t.Error("ConflictError should match ErrUnresolved")
	}
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.Rounds != DefaultMaxRounds {
		t.Errorf("expected ConflictError after %d rounds, got %v", DefaultMaxRounds, err)
	}
	if res.Queries != DefaultMaxRounds+1 {
		t.Errorf("queries = %d, want %d", res.Queries, DefaultMaxRounds+1)
	}
}

func TestNegotiate_MaxRoundsZero(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByAlice})
	v := f.verifier(t)

	opts := Options{AutoIncrement: true, MaxRounds: 0}
	_, err := v.Negotiate(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.1"}, opts)

	if !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected version conflict, got %v", err)
	}
	if n := f.queries.Load(); n != 1 {
		t.Errorf("expected exactly 1 query, got %d", n)
	}
}

func TestNegotiate_NameTakesPrecedence(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByBob})
	v := f.verifier(t)

	var questions []string
	opts := DefaultOptions()
	opts.Prompter = PrompterFunc(func(ctx context.Context, q string) (string, error) {
		questions = append(questions, q)
		if len(questions) == 1 {
			return "acme-widget-alice", nil
		}
		return "bob", nil
	})

	res, err := v.Negotiate(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.0"}, opts)
	if err != nil {
		t.Fatalf("Negotiate failed: %v", err)
	}
	if res.Identity.Name != "acme-widget-alice" || res.Identity.Owner != "alice" {
		t.Errorf("Identity = %+v, want renamed with owner unchanged", res.Identity)
	}
	if len(questions) != 1 {
		t.Errorf("expected a single question in the renaming round, got %d", len(questions))
	}
}

func TestNegotiate_OwnerCorrection(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByBob})
	v := f.verifier(t)

	opts := DefaultOptions()
	opts.Prompter = scripted("", "bob")

	res, err := v.Negotiate(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "0.4.0"}, opts)
	if err != nil {
		t.Fatalf("Negotiate failed: %v", err)
	}

	want := []Correction{{Round: 1, Field: "owner", From: "alice", To: "bob"}}
	if diff := cmp.Diff(want, res.Corrections); diff != "" {
		t.Errorf("corrections mismatch (-want +got):\n%s", diff)
	}
}

func TestNegotiate_TransportErrorAborts(t *testing.T) {
	f := newFakeIndex(t, nil)
	f.status = http.StatusInternalServerError
	v := f.verifier(t)

	res, err := v.Negotiate(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.0"}, DefaultOptions())

	if !errors.Is(err, ErrVerificationUnavailable) {
		t.Fatalf("expected verification unavailable, got %v", err)
	}
	if res.Queries != 1 || len(res.Corrections) != 0 {
		t.Errorf("queries = %d, corrections = %d; want 1 and 0", res.Queries, len(res.Corrections))
	}
}

func TestNegotiate_UnavailableIndexIsNotRetried(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusTooManyRequests} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			f := newFakeIndex(t, nil)
			f.status = status
			v := f.verifier(t)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			opts := DefaultOptions()
			opts.AutoIncrement = true
			_, err := v.Negotiate(ctx, Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.0"}, opts)

			if ctx.Err() != nil {
				t.Fatal("negotiation did not return before the deadline")
			}
			if !errors.Is(err, ErrVerificationUnavailable) {
				t.Fatalf("expected verification unavailable, got %v", err)
			}
			if n := f.queries.Load(); n != 1 {
				t.Errorf("expected 1 request, got %d", n)
			}
		})
	}
}

func TestNegotiate_PrompterError(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByBob})
	v := f.verifier(t)

	boom := errors.New("terminal closed")
	opts := DefaultOptions()
	opts.Prompter = PrompterFunc(func(ctx context.Context, q string) (string, error) { return "", boom })

	_, err := v.Negotiate(context.Background(), Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.0"}, opts)
	if !errors.Is(err, boom) {
		t.Errorf("expected prompter error, got %v", err)
	}
}

func TestCheckAll(t *testing.T) {
	f := newFakeIndex(t, map[string]string{"acme-widget": acmeOwnedByAlice})
	v := f.verifier(t)

	ids := []Identity{
		{Name: "acme-widget", Owner: "alice", Version: "1.0.1"},
		{Name: "acme-gadget", Owner: "alice", Version: "0.1.0"},
	}
	results := v.CheckAll(context.Background(), ids)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err != nil || results[0].Status.IsVersionFree {
		t.Errorf("acme-widget: %+v", results[0])
	}
	if results[1].Err != nil || !results[1].Status.IsNew {
		t.Errorf("acme-gadget: %+v", results[1])
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		input   string
		want    Target
		wantErr bool
	}{
		{"", Primary, false},
		{"pypi", Primary, false},
		{"Staging", Staging, false},
		{"testpypi", Staging, false},
		{"nexus", Primary, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTarget(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTarget(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseTarget(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIdentity(t *testing.T) {
	id := Identity{Name: "acme-widget", Owner: "alice", Version: "1.0.1"}
	renamed := id.WithName("acme-gadget")

	if id.Name != "acme-widget" {
		t.Error("WithName mutated the receiver")
	}
	if renamed.Name != "acme-gadget" || renamed.Owner != "alice" {
		t.Errorf("renamed = %+v", renamed)
	}
	if got := id.PURL(); got != "pkg:pypi/acme-widget@1.0.1" {
		t.Errorf("PURL() = %q", got)
	}
	if err := (Identity{Name: "x"}).Validate(); err == nil {
		t.Error("Validate should reject a missing owner and version")
	}

	parsed, err := IdentityFromPURL("pkg:pypi/acme-widget@2.0.0", "alice", Staging)
	if err != nil {
		t.Fatalf("IdentityFromPURL failed: %v", err)
	}
	if parsed.Version != "2.0.0" || parsed.Target != Staging {
		t.Errorf("parsed = %+v", parsed)
	}
}
