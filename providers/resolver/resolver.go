package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/aigoflow/core/config"
)

// ExplicitID is the candidate id of the explicitly wired value.
const ExplicitID = "explicit"

// Env is everything a candidate may inspect: the run's provider configuration
// and, when a node has one wired in, the explicitly connected value.
type Env struct {
	Config   config.Values
	Explicit any
}

// Candidate is one source of a capability.
type Candidate[C any] struct {
	// ID identifies the candidate in errors, logs and cache keys.
	ID string

	// Available reports whether the candidate's preconditions hold.
	Available func(env Env) bool

	// Build creates the client. It is only called when Available is true.
	Build func(ctx context.Context, env Env) (C, error)
}

// NoProviderAvailableError reports that no candidate could serve a capability.
type NoProviderAvailableError struct {
	Capability string
	Tried      []string
}

func (e *NoProviderAvailableError) Error() string {
	return fmt.Sprintf("no provider available for %s (tried: %s)", e.Capability, strings.Join(e.Tried, ", "))
}

// Resolver chooses among candidates in declaration order. It holds no state
// and is safe for concurrent use.
type Resolver[C any] struct {
	capability string
	candidates []Candidate[C]
}

// New creates a resolver for capability with the given candidate order.
func New[C any](capability string, candidates ...Candidate[C]) *Resolver[C] {
	return &Resolver[C]{
		capability: capability,
		candidates: candidates,
	}
}

// Capability returns the capability name.
func (resolver *Resolver[C]) Capability() string {
	return resolver.capability
}

// Select returns the first candidate whose preconditions hold.
func (resolver *Resolver[C]) Select(env Env) (Candidate[C], error) {
	tried := make([]string, 0, len(resolver.candidates))
	for _, candidate := range resolver.candidates {
		if candidate.Available == nil || candidate.Available(env) {
			return candidate, nil
		}
		tried = append(tried, candidate.ID)
	}
	return Candidate[C]{}, &NoProviderAvailableError{Capability: resolver.capability, Tried: tried}
}

// Resolve selects a candidate and builds its client, returning the winning
// candidate id alongside it. A build failure is returned as is: preconditions
// decide availability, so a failing build does not fall through.
func (resolver *Resolver[C]) Resolve(ctx context.Context, env Env) (C, string, error) {
	var zero C

	candidate, err := resolver.Select(env)
	if err != nil {
		return zero, "", err
	}

	client, err := candidate.Build(ctx, env)
	if err != nil {
		return zero, candidate.ID, fmt.Errorf("%s provider %q: %w", resolver.capability, candidate.ID, err)
	}
	return client, candidate.ID, nil
}

// Explicit is the candidate satisfied when Env.Explicit holds a C.
func Explicit[C any]() Candidate[C] {
	return Candidate[C]{
		ID: ExplicitID,
		Available: func(env Env) bool {
			_, ok := env.Explicit.(C)
			return ok
		},
		Build: func(_ context.Context, env Env) (C, error) {
			return env.Explicit.(C), nil
		},
	}
}

// RequireKeys is satisfied when every key is present and non-empty.
func RequireKeys(keys ...string) func(env Env) bool {
	return func(env Env) bool {
		for _, key := range keys {
			if value, ok := env.Config.Lookup(key); !ok || strings.TrimSpace(value) == "" {
				return false
			}
		}
		return true
	}
}

// RequireFlag is satisfied when flagKey is true and every key is present.
func RequireFlag(flagKey string, keys ...string) func(env Env) bool {
	requireKeys := RequireKeys(keys...)
	return func(env Env) bool {
		return env.Config.Bool(flagKey) && requireKeys(env)
	}
}
