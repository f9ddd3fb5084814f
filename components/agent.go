package components

import (
	"context"
	"errors"
	"fmt"

	"github.com/leofalp/aigoflow/flow"
	"github.com/leofalp/aigoflow/providers/ai"
	"github.com/leofalp/aigoflow/providers/observability"
	"github.com/leofalp/aigoflow/providers/tool"
)

// DefaultMaxIterations bounds the model round trips of one Agent execution.
const DefaultMaxIterations = 10

// ErrMaxIterations is returned when the model still requests tools after
// the last allowed iteration.
var ErrMaxIterations = errors.New("agent reached the maximum number of iterations")

// Agent answers its input with a chat model that may call the tools bound to
// its "tools" port. Each tool call runs the bound node on demand; a call the
// tool cannot serve is reported back to the model as an ai.ToolResult
// payload so the model can recover.
//
// Config keys: "max_iterations" (default DefaultMaxIterations), plus the
// generation keys understood by Completion.
type Agent struct{}

var _ flow.Component = Agent{}

// NewAgent creates an Agent node.
func NewAgent() Agent {
	return Agent{}
}

// Ports implements flow.Component.
func (Agent) Ports() flow.Ports {
	return flow.Ports{
		Description: "Answers a request using a chat model and the tools connected to it.",
		Inputs: []flow.InputPort{
			{Name: "input", Types: []flow.TypeTag{flow.TagText, flow.TagMessage}, Required: true, ToolEligible: true, Description: "The request for the agent."},
			{Name: "tools", Types: []flow.TypeTag{flow.TagTool}, Multi: true},
			{Name: "system_prompt", Types: []flow.TypeTag{flow.TagText}},
			{Name: "model", Types: []flow.TypeTag{flow.TagModel}},
		},
		Outputs: []flow.OutputPort{
			{Name: "response", Types: []flow.TypeTag{flow.TagText, flow.TagMessage}},
		},
	}
}

// Execute implements flow.NodeExecutor.
func (Agent) Execute(ctx context.Context, input *flow.NodeInput) (*flow.NodeResult, error) {
	provider, err := flow.ResolveCached(ctx, input, ChatResolver, input.Inputs.Value("model"))
	if err != nil {
		return nil, err
	}

	catalog, err := input.Tools("tools")
	if err != nil {
		return nil, err
	}

	maxIterations := input.ConfigInt("max_iterations", DefaultMaxIterations)
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	observer := input.Observer()
	messages := []ai.Message{{Role: ai.RoleUser, Content: input.Inputs.String("input")}}
	usage := &ai.Usage{}

	for iteration := 1; iteration <= maxIterations; iteration++ {
		iterationCtx, span := startIteration(ctx, observer, input.NodeID, iteration)

		request := chatRequest(input, messages)
		request.Tools = catalog.Descriptions()

		response, err := provider.SendMessage(iterationCtx, request)
		if err != nil {
			endIteration(span, err)
			return nil, fmt.Errorf("agent iteration %d: %w", iteration, err)
		}
		usage.Add(response.Usage)

		if len(response.ToolCalls) == 0 || provider.IsStopMessage(response) {
			endIteration(span, nil)
			metadata := responseMetadata(response.Model, usage)
			metadata["iterations"] = iteration
			return &flow.NodeResult{
				Outputs:  map[string]any{"response": response.Content},
				Metadata: metadata,
			}, nil
		}

		messages = append(messages, ai.Message{
			Role:      ai.RoleAssistant,
			Content:   response.Content,
			ToolCalls: response.ToolCalls,
		})

		for _, toolCall := range response.ToolCalls {
			output, err := callTool(iterationCtx, catalog, toolCall)
			if err != nil {
				endIteration(span, err)
				return nil, err
			}
			messages = append(messages, ai.Message{
				Role:       ai.RoleTool,
				Content:    output,
				ToolCallID: toolCall.ID,
				Name:       toolCall.Function.Name,
			})
		}
		endIteration(span, nil)
	}

	return nil, fmt.Errorf("%w (%d)", ErrMaxIterations, maxIterations)
}

// callTool runs one tool call. Only recursion overflow and cancellation
// abort the agent; every other failure becomes a payload for the model.
func callTool(ctx context.Context, catalog *tool.Catalog, toolCall ai.ToolCall) (string, error) {
	genericTool, exists := catalog.Get(toolCall.Function.Name)
	if !exists {
		return ai.NewToolResultError(ai.ToolErrorNotFound,
			fmt.Sprintf("tool %q is not available", toolCall.Function.Name)).ToJSON()
	}

	output, err := genericTool.Call(ctx, toolCall.Function.Arguments)
	if err == nil {
		return output, nil
	}

	var recursionErr *flow.RecursionLimitExceeded
	if errors.As(err, &recursionErr) || ctx.Err() != nil {
		return "", err
	}
	return ai.NewToolResultError(ai.ToolErrorExecutionFailed, err.Error()).ToJSON()
}

func startIteration(ctx context.Context, observer observability.Provider, nodeID string, iteration int) (context.Context, observability.Span) {
	if observer == nil {
		return ctx, nil
	}
	return observer.StartSpan(ctx, observability.SpanAgentIteration,
		observability.String(observability.AttrNodeID, nodeID),
		observability.Int(observability.AttrAgentIteration, iteration),
	)
}

func endIteration(span observability.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(observability.StatusError, err.Error())
	} else {
		span.SetStatus(observability.StatusOK, "")
	}
	span.End()
}
