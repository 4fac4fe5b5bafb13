package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// tripAfter is the number of consecutive failures that opens a host's breaker.
const tripAfter = 5

// CircuitBreakerFetcher wraps a Fetcher with a circuit breaker per file host,
// so a publish confirmation that keeps hitting a failing host stops early.
type CircuitBreakerFetcher struct {
	fetcher  *Fetcher
	breakers map[string]*circuit.Breaker
	mu       sync.RWMutex
}

// NewCircuitBreakerFetcher creates a new circuit breaker wrapper for a fetcher.
func NewCircuitBreakerFetcher(f *Fetcher) *CircuitBreakerFetcher {
	return &CircuitBreakerFetcher{
		fetcher:  f,
		breakers: make(map[string]*circuit.Breaker),
	}
}

func (cbf *CircuitBreakerFetcher) breakerFor(host string) *circuit.Breaker {
	cbf.mu.RLock()
	b, exists := cbf.breakers[host]
	cbf.mu.RUnlock()

	if exists {
		return b
	}

	cbf.mu.Lock()
	defer cbf.mu.Unlock()

	if b, exists := cbf.breakers[host]; exists {
		return b
	}

	// half-open retries back off from 10s to a minute
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = 10 * time.Second
	retry.MaxInterval = time.Minute
	retry.Reset()

	b = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    retry,
		ShouldTrip: circuit.ConsecutiveTripFunc(tripAfter),
	})
	cbf.breakers[host] = b
	return b
}

// Fetch downloads fetchURL unless the breaker for its host is open.
func (cbf *CircuitBreakerFetcher) Fetch(ctx context.Context, fetchURL string) (*Artifact, error) {
	var artifact *Artifact
	err := cbf.call(fetchURL, func() error {
		var err error
		artifact, err = cbf.fetcher.Fetch(ctx, fetchURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// Head checks headURL unless the breaker for its host is open.
func (cbf *CircuitBreakerFetcher) Head(ctx context.Context, headURL string) (size int64, contentType string, err error) {
	err = cbf.call(headURL, func() error {
		var err error
		size, contentType, err = cbf.fetcher.Head(ctx, headURL)
		return err
	})
	return size, contentType, err
}

// call runs fn through the breaker for rawURL's host. A missing file is an
// answer from a healthy host and does not count towards tripping.
func (cbf *CircuitBreakerFetcher) call(rawURL string, fn func() error) error {
	host := extractHost(rawURL)
	b := cbf.breakerFor(host)
	if !b.Ready() {
		return fmt.Errorf("circuit breaker open for %s: %w", host, ErrUpstreamDown)
	}

	var notFound error
	err := b.Call(func() error {
		err := fn()
		if errors.Is(err, ErrNotFound) {
			notFound = err
			return nil
		}
		return err
	}, 0)
	if err != nil {
		return err
	}
	return notFound
}

// extractHost groups URLs by host; unparseable URLs fall back to a prefix.
func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		if len(rawURL) > 50 {
			return rawURL[:50]
		}
		return rawURL
	}
	return parsed.Host
}

// BreakerStates reports "open" or "closed" for every host seen so far.
func (cbf *CircuitBreakerFetcher) BreakerStates() map[string]string {
	cbf.mu.RLock()
	defer cbf.mu.RUnlock()

	states := make(map[string]string, len(cbf.breakers))
	for host, b := range cbf.breakers {
		if b.Tripped() {
			states[host] = "open"
		} else {
			states[host] = "closed"
		}
	}
	return states
}
