package resolver

import (
	"context"
	"sync"
)

// Cache memoizes the client of the last winning candidate. When a later
// resolution picks a different candidate the cached client is replaced.
// Cache is safe for concurrent use.
type Cache[C any] struct {
	mu          sync.Mutex
	candidateID string
	client      C
	valid       bool
}

// Get returns the cached client when the currently winning candidate is the
// one it was built from, and otherwise builds and caches a new client. The
// id of the winning candidate is returned alongside the client.
func (cache *Cache[C]) Get(ctx context.Context, resolver *Resolver[C], env Env) (C, string, error) {
	var zero C

	candidate, err := resolver.Select(env)
	if err != nil {
		return zero, "", err
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()

	// The explicit value may differ between calls, so it is never cached.
	if candidate.ID == ExplicitID {
		client, err := candidate.Build(ctx, env)
		return client, candidate.ID, err
	}
	if cache.valid && cache.candidateID == candidate.ID {
		return cache.client, candidate.ID, nil
	}

	client, candidateID, err := resolver.Resolve(ctx, env)
	if err != nil {
		return zero, candidateID, err
	}
	cache.client = client
	cache.candidateID = candidateID
	cache.valid = true
	return client, candidateID, nil
}

// CandidateID returns the id the cached client was built from, or "".
func (cache *Cache[C]) CandidateID() string {
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if !cache.valid {
		return ""
	}
	return cache.candidateID
}
