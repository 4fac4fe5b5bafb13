package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-pkgs/pup/internal/manifest"
	"github.com/git-pkgs/pup/internal/toolchain"
	"github.com/git-pkgs/pup/internal/workflow"
	"github.com/git-pkgs/pup/prompt"
	"github.com/git-pkgs/pup/verify"
)

const ownedByAlice = `{
  "info": {"name": "acme-widget", "version": "1.0.0",
           "ownership": {"roles": [{"role": "Owner", "user": "alice"}]}},
  "releases": {"1.0.0": []}
}`

// env isolates config lookups and points both indexes at srv.
func env(t *testing.T, srvURL string) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"PUP_OWNER", "PUP_INDEX_TARGET", "PUP_AUTO_INCREMENT", "PUP_MAX_ROUNDS", "PUP_PROMPT"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	if srvURL != "" {
		t.Setenv("PUP_INDEX_PRIMARY_URL", srvURL)
		t.Setenv("PUP_INDEX_STAGING_URL", srvURL)
	}
	t.Chdir(t.TempDir())
}

func fakeIndex(t *testing.T, projects map[string]string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != 0 {
			w.WriteHeader(status)
			return
		}
		name := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/pypi/"), "/json")
		body, ok := projects[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd(strings.NewReader(""), &out, &errOut)
	code := run(context.Background(), root, args, &errOut)
	return code, out.String(), errOut.String()
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	root := NewRootCmd(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	for _, name := range []string{"config", "debug", "staging", "owner", "auto-increment", "max-rounds", "prompt"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), "missing --%s", name)
	}
	for _, name := range []string{"run", "check", "negotiate", "fix", "unfix", "build", "inspect", "config", "version"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestVersionCmd(t *testing.T) {
	code, out, _ := execute(t, "version")
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "pup dev")
}

func TestCheck_Available(t *testing.T) {
	env(t, fakeIndex(t, nil, 0).URL)

	code, out, errOut := execute(t, "check", "acme-widget==1.0.0", "--owner", "alice")
	assert.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, out, "pkg:pypi/acme-widget@1.0.0")
	assert.Contains(t, out, "is available and can be claimed")
}

func TestCheck_VersionTaken(t *testing.T) {
	env(t, fakeIndex(t, map[string]string{"acme-widget": ownedByAlice}, 0).URL)

	code, out, errOut := execute(t, "check", "pkg:pypi/acme-widget@1.0.0", "--owner", "alice")
	assert.Equal(t, ExitUnresolved, code)
	assert.Contains(t, out, "Version 1.0.0 of 'acme-widget' is already published.")
	assert.Contains(t, errOut, "Identity Conflict")
}

func TestCheck_IndexUnavailable(t *testing.T) {
	env(t, fakeIndex(t, nil, http.StatusInternalServerError).URL)

	code, _, errOut := execute(t, "check", "acme-widget", "--owner", "alice")
	assert.Equal(t, ExitUnavailable, code)
	assert.Contains(t, errOut, "Verification Unavailable")
}

func TestCheck_NoArgs(t *testing.T) {
	env(t, "")
	code, _, errOut := execute(t, "check")
	assert.Equal(t, ExitInvalidInput, code)
	assert.Contains(t, errOut, "Argument Error")
}

func TestUnknownFlag(t *testing.T) {
	code, _, errOut := execute(t, "check", "--no-such-flag")
	assert.Equal(t, ExitInvalidInput, code)
	assert.Contains(t, errOut, "--help")
}

func TestParseIdentityArg(t *testing.T) {
	tests := []struct {
		arg     string
		name    string
		version string
		wantErr bool
	}{
		{arg: "acme-widget", name: "acme-widget", version: manifest.DefaultVersion},
		{arg: "acme-widget==2.1", name: "acme-widget", version: "2.1"},
		{arg: "pkg:pypi/acme-widget@3.0", name: "acme-widget", version: "3.0"},
		{arg: "pkg:npm/left-pad@1.0.0", wantErr: true},
		{arg: "==1.0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			id, err := parseIdentityArg(tt.arg, "alice", verify.Staging)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, id.Name)
			assert.Equal(t, tt.version, id.Version)
			assert.Equal(t, "alice", id.Owner)
			assert.Equal(t, verify.Staging, id.Target)
		})
	}
}

func TestNegotiate_AutoIncrementUpdatesManifest(t *testing.T) {
	env(t, fakeIndex(t, map[string]string{"acme-widget": ownedByAlice}, 0).URL)
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "setup.py"),
		[]byte("setup(name='acme-widget', version='1.0.0')\n"), 0o644))

	code, out, errOut := execute(t, "negotiate", project, "--owner", "alice", "--auto-increment", "--prompt", "none")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, out, "acme-widget 1.0.1 is ready")

	m, err := manifest.Load(filepath.Join(project, "setup.py"))
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", m.Version)
}

func TestNegotiate_UnresolvedExitCode(t *testing.T) {
	env(t, fakeIndex(t, map[string]string{"acme-widget": ownedByAlice}, 0).URL)
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "setup.py"),
		[]byte("setup(name='acme-widget', version='1.0.0')\n"), 0o644))

	code, _, errOut := execute(t, "negotiate", project, "--owner", "mallory", "--prompt", "none", "--max-rounds", "2")
	assert.Equal(t, ExitUnresolved, code)
	assert.Contains(t, errOut, "Choose a different package name")
}

func TestNegotiate_MissingOwner(t *testing.T) {
	env(t, fakeIndex(t, nil, 0).URL)
	project := t.TempDir()

	code, _, errOut := execute(t, "negotiate", project, "--prompt", "none")
	assert.Equal(t, ExitInvalidInput, code)
	assert.Contains(t, errOut, "--owner")
}

func TestNegotiate_BadDirectory(t *testing.T) {
	env(t, "")
	code, _, _ := execute(t, "negotiate", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, ExitInvalidInput, code)
}

func TestFixAndUnfix(t *testing.T) {
	env(t, "")
	project := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(project, "acme"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "acme", "core.py"), nil, 0o644))

	code, out, errOut := execute(t, "fix", project)
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, out, "1 file(s) created")
	assert.FileExists(t, filepath.Join(project, "acme", "__init__.py"))

	code, out, errOut = execute(t, "unfix", project)
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, out, "1 file(s) removed")
	assert.NoFileExists(t, filepath.Join(project, "acme", "__init__.py"))
}

func TestInspect(t *testing.T) {
	env(t, "")
	path := filepath.Join(t.TempDir(), "acme_widget-1.0-py3-none-any.whl")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("acme_widget/__init__.py")
	require.NoError(t, err)
	_, _ = w.Write([]byte("x = 1\n"))
	w, err = zw.Create("acme_widget-1.0.dist-info/METADATA")
	require.NoError(t, err)
	_, _ = w.Write([]byte("Metadata-Version: 2.1\nName: acme-widget\nVersion: 1.0\n"))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	code, out, errOut := execute(t, "inspect", path)
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, out, "acme_widget/__init__.py")
	assert.Contains(t, out, "acme-widget")
	assert.Contains(t, out, "Import:")
	assert.Contains(t, out, "2 file(s)")

	code, _, _ = execute(t, "inspect")
	assert.Equal(t, ExitInvalidInput, code)
}

func TestConfigShow(t *testing.T) {
	env(t, "")
	require.NoError(t, os.WriteFile(".pup.yml", []byte("owner: from-project\n"), 0o644))

	code, out, errOut := execute(t, "config", "show", "--staging")
	require.Equal(t, ExitSuccess, code, errOut)
	assert.Contains(t, out, "owner: from-project")
	assert.Contains(t, out, "target: testpypi")
	assert.Contains(t, out, "max_rounds: 5")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category Category
		code     int
	}{
		{"transport", &verify.TransportError{Name: "x", Err: errors.New("dial")}, Verification, ExitUnavailable},
		{"ownership", &verify.ConflictError{Kind: verify.OwnershipConflict}, Conflict, ExitUnresolved},
		{"version", &verify.ConflictError{Kind: verify.VersionConflict}, Conflict, ExitUnresolved},
		{"token", fmt.Errorf("upload: %w", toolchain.ErrMissingToken), Configuration, ExitInvalidInput},
		{"owner", &workflow.StepError{Step: workflow.StepOptions, Err: workflow.ErrNoOwner}, Configuration, ExitInvalidInput},
		{"setup.py expression", fmt.Errorf("parsing setup.py: %w", manifest.ErrNonLiteral), Configuration, ExitInvalidInput},
		{"tool", &toolchain.CommandError{Name: "python", Err: errors.New("exit status 1")}, Tool, ExitToolFailure},
		{"interrupt", prompt.ErrInterrupted, Interrupted, ExitInterrupted},
		{"other", errors.New("boom"), Runtime, ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.code, got.Code)
		})
	}
}

func TestFormatError(t *testing.T) {
	msg := FormatError(&CLIError{Category: Conflict, Err: errors.New("taken"), Remediation: []string{"bump it"}})
	assert.Contains(t, msg, "Identity Conflict")
	assert.Contains(t, msg, "taken")
	assert.Contains(t, msg, "To fix this:")
	assert.Contains(t, msg, "bump it")
}
