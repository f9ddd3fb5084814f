package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/leofalp/aigoflow/core/config"
)

type fakeClient struct {
	source string
}

func chatResolver(builds map[string]*int) *Resolver[*fakeClient] {
	candidate := func(id string, available func(Env) bool) Candidate[*fakeClient] {
		return Candidate[*fakeClient]{
			ID:        id,
			Available: available,
			Build: func(ctx context.Context, env Env) (*fakeClient, error) {
				if counter := builds[id]; counter != nil {
					*counter++
				}
				return &fakeClient{source: id}, nil
			},
		}
	}
	return New("chat",
		Explicit[*fakeClient](),
		candidate("inference", RequireFlag(config.KeyInferenceEnabled, config.KeyInferenceURL)),
		candidate("openai", RequireKeys(config.KeyOpenAIAPIKey)),
	)
}

func TestResolve_FirstAvailableWins(testCase *testing.T) {
	resolver := chatResolver(nil)

	explicit := &fakeClient{source: "wired"}
	client, id, err := resolver.Resolve(context.Background(), Env{
		Config:   config.Values{config.KeyOpenAIAPIKey: "sk"},
		Explicit: explicit,
	})
	if err != nil || client != explicit || id != ExplicitID {
		testCase.Fatalf("expected explicit client, got %v %s %v", client, id, err)
	}

	client, id, err = resolver.Resolve(context.Background(), Env{Config: config.Values{
		config.KeyInferenceEnabled: "true",
		config.KeyInferenceURL:     "http://localhost:8000/v1",
		config.KeyOpenAIAPIKey:     "sk",
	}})
	if err != nil || id != "inference" || client.source != "inference" {
		testCase.Fatalf("expected inference client, got %v %s %v", client, id, err)
	}

	_, id, err = resolver.Resolve(context.Background(), Env{Config: config.Values{
		config.KeyInferenceEnabled: "false",
		config.KeyInferenceURL:     "http://localhost:8000/v1",
		config.KeyOpenAIAPIKey:     "sk",
	}})
	if err != nil || id != "openai" {
		testCase.Fatalf("expected disabled inference to fall through to openai, got %s %v", id, err)
	}
}

func TestResolve_NoProviderAvailable(testCase *testing.T) {
	_, _, err := chatResolver(nil).Resolve(context.Background(), Env{Config: config.Values{config.KeyOpenAIAPIKey: "  "}})

	var noProvider *NoProviderAvailableError
	if !errors.As(err, &noProvider) {
		testCase.Fatalf("expected NoProviderAvailableError, got %v", err)
	}
	if noProvider.Capability != "chat" || len(noProvider.Tried) != 3 {
		testCase.Errorf("unexpected error details %+v", noProvider)
	}
}

func TestResolve_BuildErrorDoesNotFallThrough(testCase *testing.T) {
	buildErr := errors.New("bad url")
	resolver := New("embedding",
		Candidate[string]{ID: "broken", Build: func(context.Context, Env) (string, error) { return "", buildErr }},
		Candidate[string]{ID: "fallback", Build: func(context.Context, Env) (string, error) { return "ok", nil }},
	)

	_, id, err := resolver.Resolve(context.Background(), Env{})
	if !errors.Is(err, buildErr) || id != "broken" {
		testCase.Errorf("expected build error from broken candidate, got %s %v", id, err)
	}
}

func TestCache_ReusesClientUntilCandidateChanges(testCase *testing.T) {
	inferenceBuilds, openaiBuilds := 0, 0
	resolver := chatResolver(map[string]*int{"inference": &inferenceBuilds, "openai": &openaiBuilds})
	cache := &Cache[*fakeClient]{}

	inferenceEnv := Env{Config: config.Values{config.KeyInferenceEnabled: "1", config.KeyInferenceURL: "http://local"}}
	first, id, err := cache.Get(context.Background(), resolver, inferenceEnv)
	if err != nil || id != "inference" {
		testCase.Fatalf("expected inference, got %s %v", id, err)
	}
	second, _, _ := cache.Get(context.Background(), resolver, inferenceEnv)
	if first != second || inferenceBuilds != 1 {
		testCase.Errorf("expected cached client, builds=%d", inferenceBuilds)
	}

	openaiEnv := Env{Config: config.Values{config.KeyOpenAIAPIKey: "sk"}}
	third, id, _ := cache.Get(context.Background(), resolver, openaiEnv)
	if third == first || third.source != "openai" || openaiBuilds != 1 {
		testCase.Errorf("expected candidate switch to rebuild, got %+v", third)
	}
	if id != "openai" || cache.CandidateID() != "openai" {
		testCase.Errorf("expected cache keyed by openai, got %s and %s", id, cache.CandidateID())
	}
}

func TestCache_ExplicitWinReportsExplicitID(testCase *testing.T) {
	resolver := chatResolver(nil)
	cache := &Cache[*fakeClient]{}
	openaiEnv := Env{Config: config.Values{config.KeyOpenAIAPIKey: "sk"}}

	if _, id, _ := cache.Get(context.Background(), resolver, openaiEnv); id != "openai" {
		testCase.Fatalf("expected openai first, got %s", id)
	}

	explicit := &fakeClient{source: "wired"}
	client, id, err := cache.Get(context.Background(), resolver, Env{Config: openaiEnv.Config, Explicit: explicit})
	if err != nil || client != explicit {
		testCase.Fatalf("expected the explicit client, got %v %v", client, err)
	}
	if id != ExplicitID {
		testCase.Errorf("expected %s, got %s", ExplicitID, id)
	}
	if cache.CandidateID() != "openai" {
		testCase.Errorf("explicit wins must not replace the cached candidate, got %s", cache.CandidateID())
	}
}
