package anthropic

import (
	"context"
	"fmt"
	"net/http"

	"github.com/leofalp/aigoflow/core/config"
	"github.com/leofalp/aigoflow/internal/httpx"
	"github.com/leofalp/aigoflow/providers/ai"
	"github.com/leofalp/aigoflow/providers/observability"
)

const (
	defaultBaseURL   = "https://api.anthropic.com/v1"
	defaultModel     = "claude-3-5-haiku-latest"
	messagesEndpoint = "/messages"

	// anthropicVersion pins the wire format independently of the URL.
	anthropicVersion = "2023-06-01"

	providerName = "anthropic"
)

// AnthropicProvider talks to the Anthropic Messages API.
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

var (
	_ ai.Provider       = (*AnthropicProvider)(nil)
	_ ai.StreamProvider = (*AnthropicProvider)(nil)
)

// New creates a provider targeting the public API with the default model.
func New() *AnthropicProvider {
	return &AnthropicProvider{
		baseURL: defaultBaseURL,
		model:   defaultModel,
	}
}

// FromConfig builds a provider reading the API key and base URL from the
// given keys and the model from CHAT_MODEL.
func FromConfig(values config.Values, apiKeyName, baseURLName string) *AnthropicProvider {
	provider := New().WithAPIKey(values.Get(apiKeyName, ""))
	if baseURL, ok := values.Lookup(baseURLName); ok && baseURL != "" {
		provider = provider.WithBaseURL(baseURL)
	}
	if model, ok := values.Lookup(config.KeyChatModel); ok && model != "" {
		provider = provider.WithModel(model)
	}
	return provider
}

func (provider *AnthropicProvider) WithAPIKey(apiKey string) *AnthropicProvider {
	provider.apiKey = apiKey
	return provider
}

// WithBaseURL overrides the API base URL (including the /v1 suffix).
func (provider *AnthropicProvider) WithBaseURL(baseURL string) *AnthropicProvider {
	provider.baseURL = baseURL
	return provider
}

// WithModel sets the model used when a request does not name one.
func (provider *AnthropicProvider) WithModel(model string) *AnthropicProvider {
	provider.model = model
	return provider
}

func (provider *AnthropicProvider) WithHttpClient(httpClient *http.Client) *AnthropicProvider {
	provider.httpClient = httpClient
	return provider
}

// Model returns the default model of the provider.
func (provider *AnthropicProvider) Model() string {
	return provider.model
}

func (provider *AnthropicProvider) headers() []httpx.Header {
	return []httpx.Header{
		{Key: "x-api-key", Value: provider.apiKey},
		{Key: "anthropic-version", Value: anthropicVersion},
	}
}

func (provider *AnthropicProvider) annotate(ctx context.Context, model string) {
	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, providerName),
			observability.String(observability.AttrLLMModel, model),
		)
	}
}

// SendMessage implements ai.Provider.
func (provider *AnthropicProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	if provider.apiKey == "" {
		return nil, fmt.Errorf("API key is not set")
	}

	messagesReq, err := provider.toMessagesRequest(request)
	if err != nil {
		return nil, fmt.Errorf("failed to build messages request: %w", err)
	}
	provider.annotate(ctx, messagesReq.Model)

	response, err := httpx.PostJSON[messagesResponse](ctx, provider.httpClient, provider.baseURL+messagesEndpoint, messagesReq, provider.headers()...)
	if err != nil {
		return nil, fmt.Errorf("messages request failed: %w", err)
	}

	converted := fromMessagesResponse(*response)
	if converted.Model == "" {
		converted.Model = messagesReq.Model
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(
			observability.String(observability.AttrLLMFinishReason, converted.FinishReason),
			observability.Int(observability.AttrLLMTokensTotal, converted.Usage.TotalTokens),
		)
	}
	return converted, nil
}

// IsStopMessage reports whether the response requested no tool calls. Tool
// calls win over a terminal stop reason.
func (provider *AnthropicProvider) IsStopMessage(message *ai.ChatResponse) bool {
	if message == nil {
		return true
	}
	return len(message.ToolCalls) == 0
}
