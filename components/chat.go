package components

import (
	"context"
	"fmt"

	"github.com/leofalp/aigoflow/flow"
	"github.com/leofalp/aigoflow/providers/ai"
	"github.com/leofalp/aigoflow/providers/ai/middleware"
)

// ChatModel exposes a chat provider on its "model" output so that several
// nodes can share it. Without an explicit provider it resolves one from the
// run's provider configuration.
type ChatModel struct {
	provider    ai.Provider
	middlewares []middleware.Config
}

var _ flow.Component = (*ChatModel)(nil)

// ChatModelOption configures a ChatModel.
type ChatModelOption func(*ChatModel)

// WithMiddleware wraps the resolved provider with the given middlewares,
// outermost first.
func WithMiddleware(configs ...middleware.Config) ChatModelOption {
	return func(model *ChatModel) {
		model.middlewares = append(model.middlewares, configs...)
	}
}

// NewChatModel creates a ChatModel node. provider may be nil.
//
// Example:
//
//	model := components.NewChatModel(nil, components.WithMiddleware(
//	    middleware.NewTimeout(30*time.Second),
//	    middleware.NewLogging(observer, middleware.LogLevelStandard),
//	))
func NewChatModel(provider ai.Provider, opts ...ChatModelOption) *ChatModel {
	model := &ChatModel{provider: provider}
	for _, opt := range opts {
		opt(model)
	}
	return model
}

// Ports implements flow.Component.
func (model *ChatModel) Ports() flow.Ports {
	return flow.Ports{
		Description: "Provides a chat model client.",
		Outputs: []flow.OutputPort{
			{Name: "model", Types: []flow.TypeTag{flow.TagModel}},
		},
	}
}

// Execute implements flow.NodeExecutor.
func (model *ChatModel) Execute(ctx context.Context, input *flow.NodeInput) (*flow.NodeResult, error) {
	var explicit any
	if model.provider != nil {
		explicit = model.provider
	}

	provider, err := flow.ResolveCached(ctx, input, ChatResolver, explicit)
	if err != nil {
		return nil, err
	}
	return flow.NewResult("model", middleware.Wrap(provider, model.middlewares...)), nil
}

// Completion sends its prompt to a chat model and returns the answer. When
// the provider supports streaming the "text" output is a text stream.
//
// Config keys: "model_name" overrides the provider's default model,
// "max_tokens" and "temperature" tune generation.
type Completion struct{}

var _ flow.Component = Completion{}

// NewCompletion creates a Completion node.
func NewCompletion() Completion {
	return Completion{}
}

// Ports implements flow.Component.
func (Completion) Ports() flow.Ports {
	return flow.Ports{
		Description: "Answers a prompt with a chat model.",
		Inputs: []flow.InputPort{
			{Name: "prompt", Types: []flow.TypeTag{flow.TagText, flow.TagMessage}, Required: true, ToolEligible: true, Description: "The prompt to answer."},
			{Name: "system_prompt", Types: []flow.TypeTag{flow.TagText}},
			{Name: "model", Types: []flow.TypeTag{flow.TagModel}},
		},
		Outputs: []flow.OutputPort{
			{Name: "text", Types: []flow.TypeTag{flow.TagText, flow.TagMessage}},
		},
	}
}

// Execute implements flow.NodeExecutor.
func (Completion) Execute(ctx context.Context, input *flow.NodeInput) (*flow.NodeResult, error) {
	provider, err := flow.ResolveCached(ctx, input, ChatResolver, input.Inputs.Value("model"))
	if err != nil {
		return nil, err
	}

	request := chatRequest(input, []ai.Message{{Role: ai.RoleUser, Content: input.Inputs.String("prompt")}})

	if streamer, ok := provider.(ai.StreamProvider); ok {
		chatStream, err := streamer.StreamMessage(ctx, request)
		if err != nil {
			return nil, fmt.Errorf("starting completion: %w", err)
		}
		return flow.NewResult("text", flow.NewTextStream(chatStream.Text())), nil
	}

	response, err := provider.SendMessage(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}
	return &flow.NodeResult{
		Outputs:  map[string]any{"text": response.Content},
		Metadata: responseMetadata(response.Model, response.Usage),
	}, nil
}

// chatRequest builds a request from the node's system prompt and
// generation settings.
func chatRequest(input *flow.NodeInput, messages []ai.Message) ai.ChatRequest {
	request := ai.ChatRequest{
		Model:        input.ConfigString("model_name", ""),
		Messages:     messages,
		SystemPrompt: input.Inputs.String("system_prompt"),
	}

	maxTokens := input.ConfigInt("max_tokens", 0)
	temperature, hasTemperature := input.Config["temperature"].(float64)
	if maxTokens > 0 || hasTemperature {
		request.GenerationConfig = &ai.GenerationConfig{
			MaxTokens:   maxTokens,
			Temperature: float32(temperature),
		}
	}
	return request
}

func responseMetadata(model string, usage *ai.Usage) map[string]any {
	metadata := map[string]any{}
	if model != "" {
		metadata["model"] = model
	}
	if usage != nil {
		metadata["usage"] = *usage
	}
	return metadata
}
