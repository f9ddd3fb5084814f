package components

import (
	"context"

	"github.com/leofalp/aigoflow/core/config"
	"github.com/leofalp/aigoflow/providers/ai"
	"github.com/leofalp/aigoflow/providers/ai/anthropic"
	"github.com/leofalp/aigoflow/providers/ai/openai"
	"github.com/leofalp/aigoflow/providers/embedding"
	"github.com/leofalp/aigoflow/providers/resolver"
)

// Candidate ids reported by the resolvers.
const (
	CandidateInference = "inference"
	CandidateOpenAI    = "openai"
	CandidateAnthropic = "anthropic"
)

// ChatResolver resolves the "chat" capability: the explicitly wired
// provider first, then a self-hosted endpoint, then the public OpenAI API,
// then Anthropic.
var ChatResolver = resolver.New("chat",
	resolver.Explicit[ai.Provider](),
	resolver.Candidate[ai.Provider]{
		ID:        CandidateInference,
		Available: resolver.RequireFlag(config.KeyInferenceEnabled, config.KeyInferenceURL, config.KeyInferenceAPIKey),
		Build: func(_ context.Context, env resolver.Env) (ai.Provider, error) {
			return openai.FromConfig(env.Config, config.KeyInferenceAPIKey, config.KeyInferenceURL), nil
		},
	},
	resolver.Candidate[ai.Provider]{
		ID:        CandidateOpenAI,
		Available: resolver.RequireKeys(config.KeyOpenAIAPIKey),
		Build: func(_ context.Context, env resolver.Env) (ai.Provider, error) {
			return openai.FromConfig(env.Config, config.KeyOpenAIAPIKey, config.KeyOpenAIBaseURL), nil
		},
	},
	resolver.Candidate[ai.Provider]{
		ID:        CandidateAnthropic,
		Available: resolver.RequireKeys(config.KeyAnthropicAPIKey),
		Build: func(_ context.Context, env resolver.Env) (ai.Provider, error) {
			return anthropic.FromConfig(env.Config, config.KeyAnthropicAPIKey, config.KeyAnthropicBaseURL), nil
		},
	},
)

// EmbeddingResolver resolves the "embedding" capability with the explicit,
// inference and openai candidates of ChatResolver. Anthropic has no
// embeddings endpoint.
var EmbeddingResolver = resolver.New("embedding",
	resolver.Explicit[embedding.Embedder](),
	resolver.Candidate[embedding.Embedder]{
		ID:        CandidateInference,
		Available: resolver.RequireFlag(config.KeyInferenceEnabled, config.KeyInferenceURL, config.KeyInferenceAPIKey),
		Build: func(_ context.Context, env resolver.Env) (embedding.Embedder, error) {
			return embedding.FromConfig(env.Config, config.KeyInferenceAPIKey, config.KeyInferenceURL), nil
		},
	},
	resolver.Candidate[embedding.Embedder]{
		ID:        CandidateOpenAI,
		Available: resolver.RequireKeys(config.KeyOpenAIAPIKey),
		Build: func(_ context.Context, env resolver.Env) (embedding.Embedder, error) {
			return embedding.FromConfig(env.Config, config.KeyOpenAIAPIKey, config.KeyOpenAIBaseURL), nil
		},
	},
)
