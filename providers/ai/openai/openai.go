package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/leofalp/aigoflow/core/config"
	"github.com/leofalp/aigoflow/providers/ai"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = goopenai.GPT4oMini
)

// OpenAIProvider talks to an OpenAI-compatible chat completion endpoint.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

var (
	_ ai.Provider       = (*OpenAIProvider)(nil)
	_ ai.StreamProvider = (*OpenAIProvider)(nil)
)

// New creates a provider targeting the public OpenAI API with the default model.
func New() *OpenAIProvider {
	return &OpenAIProvider{
		baseURL: defaultBaseURL,
		model:   defaultModel,
	}
}

// FromConfig builds a provider from explicit configuration values, reading
// the API key and base URL from the given keys and the model from CHAT_MODEL.
func FromConfig(values config.Values, apiKeyName, baseURLName string) *OpenAIProvider {
	provider := New().WithAPIKey(values.Get(apiKeyName, ""))
	if baseURL, ok := values.Lookup(baseURLName); ok && baseURL != "" {
		provider = provider.WithBaseURL(baseURL)
	}
	if model, ok := values.Lookup(config.KeyChatModel); ok && model != "" {
		provider = provider.WithModel(model)
	}
	return provider
}

// WithAPIKey sets the API key used for authenticating requests.
func (provider *OpenAIProvider) WithAPIKey(apiKey string) *OpenAIProvider {
	provider.apiKey = apiKey
	return provider
}

// WithBaseURL overrides the API base URL (including the /v1 suffix).
func (provider *OpenAIProvider) WithBaseURL(baseURL string) *OpenAIProvider {
	provider.baseURL = baseURL
	return provider
}

// WithModel sets the model used when a request does not name one.
func (provider *OpenAIProvider) WithModel(model string) *OpenAIProvider {
	provider.model = model
	return provider
}

// WithHttpClient sets the HTTP client used for outbound requests.
func (provider *OpenAIProvider) WithHttpClient(httpClient *http.Client) *OpenAIProvider {
	provider.httpClient = httpClient
	return provider
}

// Model returns the default model of the provider.
func (provider *OpenAIProvider) Model() string {
	return provider.model
}

func (provider *OpenAIProvider) client() *goopenai.Client {
	clientConfig := goopenai.DefaultConfig(provider.apiKey)
	clientConfig.BaseURL = provider.baseURL
	if provider.httpClient != nil {
		clientConfig.HTTPClient = provider.httpClient
	}
	return goopenai.NewClientWithConfig(clientConfig)
}

// SendMessage implements ai.Provider.
func (provider *OpenAIProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if provider.apiKey == "" {
		return nil, fmt.Errorf("API key is not set")
	}

	response, err := provider.client().CreateChatCompletion(ctx, provider.toChatCompletion(request))
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	return fromChatCompletion(response), nil
}

// IsStopMessage reports whether the response requested no tool calls.
func (provider *OpenAIProvider) IsStopMessage(message *ai.ChatResponse) bool {
	if message == nil {
		return true
	}
	return len(message.ToolCalls) == 0
}

// StreamMessage implements ai.StreamProvider. The returned stream owns the
// HTTP response and closes it when iteration ends or is abandoned.
func (provider *OpenAIProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if provider.apiKey == "" {
		return nil, fmt.Errorf("API key is not set")
	}

	completionRequest := provider.toChatCompletion(request)
	completionRequest.Stream = true
	completionRequest.StreamOptions = &goopenai.StreamOptions{IncludeUsage: true}

	stream, err := provider.client().CreateChatCompletionStream(ctx, completionRequest)
	if err != nil {
		return nil, fmt.Errorf("chat completion stream failed: %w", err)
	}

	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		defer stream.Close()

		finishReason := ""
		for {
			chunk, recvErr := stream.Recv()
			if errors.Is(recvErr, io.EOF) {
				yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: finishReason}, nil)
				return
			}
			if recvErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("reading chat completion stream: %w", recvErr))
				return
			}

			for _, event := range streamChunkEvents(chunk) {
				if !yield(event, nil) {
					return
				}
			}
			for _, choice := range chunk.Choices {
				if choice.FinishReason != "" {
					finishReason = string(choice.FinishReason)
				}
			}
		}
	}), nil
}
