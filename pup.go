// Package pup verifies that a Python package identity can be published to
// PyPI or Test PyPI and negotiates a corrected identity when it cannot.
//
// An identity is the (name, owner, version) tuple plus the index it targets.
// A single status query classifies it as new, owned by someone else, or owned
// with its version already taken:
//
//	v, err := pup.New(pup.Config{})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	id := pup.Identity{Name: "acme-widget", Owner: "alice", Version: "1.2.0"}
//	st, err := v.CheckStatus(context.Background(), id)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(st.Message)
//
// Negotiate repeats the query, asking a Prompter for corrections (or
// incrementing the version itself with AutoIncrement) until the identity is
// publishable or the correction rounds run out:
//
//	res, err := v.Negotiate(ctx, id, pup.Options{AutoIncrement: true, MaxRounds: 5})
//	if errors.Is(err, pup.ErrVersionConflict) {
//		// every proposed version was taken
//	}
//	fmt.Println(res.Identity.PURL())
package pup

import (
	"context"

	"github.com/git-pkgs/pup/client"
	"github.com/git-pkgs/pup/internal/core"
	"github.com/git-pkgs/pup/internal/version"
	"github.com/git-pkgs/pup/verify"
)

// Re-export types from verify
type (
	// Identity is the (name, owner, version, target) tuple under verification.
	Identity = verify.Identity

	// Target selects the primary or staging index.
	Target = verify.Target

	// Status is the classification of an identity at query time.
	Status = verify.Status

	// Verifier queries the indexes and negotiates corrections.
	Verifier = verify.Verifier

	// Config selects index URLs and transport settings for New.
	Config = verify.Config

	// Options controls a negotiation.
	Options = verify.Options

	// Result is the outcome of a negotiation.
	Result = verify.Result

	// Correction records one field changed during negotiation.
	Correction = verify.Correction

	// Prompter supplies corrections during negotiation.
	Prompter = verify.Prompter

	// PrompterFunc adapts a function to the Prompter interface.
	PrompterFunc = verify.PrompterFunc

	// CheckResult is one entry of a CheckAll report.
	CheckResult = verify.CheckResult
)

// Re-export types from internal/core
type (
	// Index is the interface implemented by index clients.
	Index = core.Index

	// Project is an index's view of a published project.
	Project = core.Project

	// Release is one published version of a project.
	Release = core.Release

	// File is one distribution file of a release.
	File = core.File

	// Owner is an account associated with a project.
	Owner = core.Owner
)

// Re-export types from client
type (
	// Client is an HTTP client with retry logic for index APIs.
	Client = client.Client

	// Option configures a Client.
	Option = client.Option

	// URLBuilder constructs URLs for an index.
	URLBuilder = client.URLBuilder
)

const (
	Primary = verify.Primary
	Staging = verify.Staging

	OwnershipConflict = verify.OwnershipConflict
	VersionConflict   = verify.VersionConflict
)

// Re-export errors
var (
	ErrVerificationUnavailable = verify.ErrVerificationUnavailable
	ErrUnresolved              = verify.ErrUnresolved
	ErrOwnershipConflict       = verify.ErrOwnershipConflict
	ErrVersionConflict         = verify.ErrVersionConflict
	ErrNotFound                = client.ErrNotFound
)

// Error types
type (
	TransportError        = verify.TransportError
	ConflictError         = verify.ConflictError
	UnparseableVersion    = verify.UnparseableVersion
	HTTPError             = client.HTTPError
	ResponseTooLargeError = client.ResponseTooLargeError
)

// New creates a Verifier for the primary and staging indexes.
// Empty URLs fall back to pypi.org and test.pypi.org.
func New(cfg Config) (*Verifier, error) {
	return verify.New(cfg)
}

// NewWithIndexes creates a Verifier over explicit index clients.
func NewWithIndexes(primary, staging Index) *Verifier {
	return verify.NewWithIndexes(primary, staging)
}

// CheckStatus classifies id against its index using a default Verifier.
func CheckStatus(ctx context.Context, id Identity) (Status, error) {
	v, err := New(Config{})
	if err != nil {
		return Status{}, err
	}
	return v.CheckStatus(ctx, id)
}

// DefaultOptions returns prompt-free negotiation options with the default
// round ceiling.
func DefaultOptions() Options {
	return verify.DefaultOptions()
}

// ParseTarget accepts "primary"/"pypi" and "staging"/"testpypi".
func ParseTarget(s string) (Target, error) {
	return verify.ParseTarget(s)
}

// IdentityFromPURL builds an identity from pkg:pypi/name@version.
func IdentityFromPURL(purl, owner string, t Target) (Identity, error) {
	return verify.IdentityFromPURL(purl, owner, t)
}

// ParsePURL splits a pypi package URL into name and optional version.
func ParsePURL(purl string) (name, version string, err error) {
	return core.ParsePURL(purl)
}

// BuildPURL returns the package URL for a name and optional version.
func BuildPURL(name, version string) string {
	return core.BuildPURL(name, version)
}

// NewIndex creates an index client for "pypi" or "testpypi".
// If baseURL is empty, the default URL is used.
// If c is nil, DefaultClient() is used.
func NewIndex(target, baseURL string, c *Client) (Index, error) {
	return core.New(target, baseURL, c)
}

// SupportedTargets returns the registered index identifiers.
func SupportedTargets() []string {
	return core.SupportedTargets()
}

// DefaultURL returns the default base URL for an index identifier.
func DefaultURL(target string) string {
	return core.DefaultURL(target)
}

// DefaultClient returns a client with sensible defaults:
// - 30s timeout
// - 5 retries with exponential backoff
// - Retry on 429 and 5xx responses
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// WithTimeout sets the HTTP client timeout.
var WithTimeout = client.WithTimeout

// WithMaxRetries sets the maximum number of retries.
var WithMaxRetries = client.WithMaxRetries

// NextVersion returns the version to propose after proposed was found taken
// and latest is the highest published version.
func NextVersion(proposed, latest string) (string, error) {
	return version.NextAfter(proposed, latest)
}
