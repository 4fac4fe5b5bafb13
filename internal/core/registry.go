package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Index is the interface implemented by every package index client.
type Index interface {
	// Target returns the index identifier (e.g., "pypi", "testpypi").
	Target() string
	// FetchProject retrieves project metadata, owners and releases.
	// A project that was never published yields a *NotFoundError.
	FetchProject(ctx context.Context, name string) (*Project, error)
	// FetchOwners retrieves the accounts associated with a project.
	FetchOwners(ctx context.Context, name string) ([]Owner, error)
	// URLs returns the URL builder for this index.
	URLs() URLBuilder
}

// Factory creates an index instance for a given base URL.
type Factory func(baseURL string, client *Client) Index

var (
	factories = make(map[string]Factory)
	defaults  = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds an index factory to the global registry.
// target is the index identifier (e.g., "pypi", "testpypi").
// defaultURL is the default base URL for the index.
func Register(target string, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[target] = factory
	defaults[target] = defaultURL
}

// New creates a new index client for the given target.
// If baseURL is empty, the default URL is used.
func New(target string, baseURL string, client *Client) (Index, error) {
	mu.RLock()
	factory, ok := factories[target]
	defaultURL := defaults[target]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown index: %s", target)
	}

	if baseURL == "" {
		baseURL = defaultURL
	}
	if client == nil {
		client = DefaultClient()
	}

	return factory(baseURL, client), nil
}

// SupportedTargets returns all registered index targets, sorted.
func SupportedTargets() []string {
	mu.RLock()
	defer mu.RUnlock()

	targets := make([]string, 0, len(factories))
	for t := range factories {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// DefaultURL returns the default base URL for an index target.
func DefaultURL(target string) string {
	mu.RLock()
	defer mu.RUnlock()
	return defaults[target]
}
