package core

import (
	"context"
	"sync"
)

const defaultConcurrency = 4

// FetchResult is the outcome of fetching a single project.
type FetchResult struct {
	Project *Project
	Err     error
}

// BulkFetchProjects fetches metadata for several project names in parallel.
// Every name gets an entry; failures are reported in FetchResult.Err.
func BulkFetchProjects(ctx context.Context, idx Index, names []string) map[string]FetchResult {
	return BulkFetchProjectsWithConcurrency(ctx, idx, names, defaultConcurrency)
}

// BulkFetchProjectsWithConcurrency fetches projects with a custom concurrency limit.
func BulkFetchProjectsWithConcurrency(ctx context.Context, idx Index, names []string, concurrency int) map[string]FetchResult {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make(map[string]FetchResult, len(names))
	var mu sync.Mutex
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, name := range names {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				results[n] = FetchResult{Err: ctx.Err()}
				mu.Unlock()
				return
			}

			project, err := idx.FetchProject(ctx, n)
			mu.Lock()
			results[n] = FetchResult{Project: project, Err: err}
			mu.Unlock()
		}(name)
	}

	wg.Wait()
	return results
}
