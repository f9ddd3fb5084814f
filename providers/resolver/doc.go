// Package resolver selects a backend for an external capability (chat model,
// embedder, ...) from an ordered list of candidates.
//
// Each candidate states its preconditions against an explicit [Env]; the
// first one whose preconditions hold wins. The resolver never consults the
// process environment, so the same graph resolves identically for every run
// given the same configuration.
//
// A typical chat resolver tries an explicitly wired model first, then a
// self-hosted inference API when it is enabled, then the public API when a
// key is present:
//
//	chat := resolver.New("chat",
//	    resolver.Explicit[ai.Provider](),
//	    resolver.Candidate[ai.Provider]{
//	        ID:        "inference",
//	        Available: resolver.RequireFlag(config.KeyInferenceEnabled, config.KeyInferenceURL),
//	        Build:     buildInference,
//	    },
//	    resolver.Candidate[ai.Provider]{
//	        ID:        "openai",
//	        Available: resolver.RequireKeys(config.KeyOpenAIAPIKey),
//	        Build:     buildOpenAI,
//	    },
//	)
//
// [Cache] keeps the client built by the winning candidate and rebuilds it
// only when a different candidate wins.
package resolver
