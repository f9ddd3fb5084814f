package flow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/leofalp/aigoflow/core/parse"
	"github.com/leofalp/aigoflow/internal/jsonschema"
	"github.com/leofalp/aigoflow/internal/jsonx"
	"github.com/leofalp/aigoflow/providers/ai"
	"github.com/leofalp/aigoflow/providers/tool"
)

const maxToolNameLength = 64

var invalidToolNameCharacters = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Tool exposes a node as an on-demand callable. Each invocation resolves the
// node's inputs again with the caller's arguments taking precedence, runs
// the executor exactly once and returns the node's tool output. Invocations
// bypass the scheduler and may run concurrently.
type Tool struct {
	exec        *ExecutionContext
	node        *Node
	name        string
	description string
	parameters  *jsonschema.Schema
}

var _ tool.GenericTool = (*Tool)(nil)

func newTool(exec *ExecutionContext, node *Node) *Tool {
	return &Tool{
		exec:        exec,
		node:        node,
		name:        ToolName(node),
		description: toolDescription(node),
		parameters:  toolParameters(exec, node),
	}
}

// ToolName returns the name node is advertised under: its explicit tool
// name, or its id reduced to [A-Za-z0-9_-] and at most 64 characters.
func ToolName(node *Node) string {
	name := node.ToolName
	if name == "" {
		name = invalidToolNameCharacters.ReplaceAllString(node.ID, "_")
	}
	if len(name) > maxToolNameLength {
		name = name[:maxToolNameLength]
	}
	return name
}

func toolDescription(node *Node) string {
	switch {
	case node.ToolDescription != "":
		return node.ToolDescription
	case node.Description != "":
		return node.Description
	default:
		return fmt.Sprintf("Runs the %s node and returns its result.", node.ID)
	}
}

// toolParameters describes the tool-eligible inputs. A port is required from
// the caller only when nothing else could satisfy it: it is required, no
// edge is bound to it and no configuration value exists for it.
func toolParameters(exec *ExecutionContext, node *Node) *jsonschema.Schema {
	staticConfig, err := exec.NodeConfig(node.ID)
	if err != nil {
		// Invoke reports the merge failure; the schema uses the static config.
		staticConfig = node.Config
	}
	builder := jsonschema.NewObject("")

	for _, port := range node.Inputs {
		if !port.ToolEligible {
			continue
		}

		property := jsonschema.ForValue(port.Default, port.SchemaType)
		if port.Multi && property.Type != jsonschema.TypeArray {
			property = &jsonschema.Schema{Type: jsonschema.TypeArray, Items: property}
		}
		property.Description = port.Description
		property.Default = port.Default

		_, configured := staticConfig[port.Name]
		bound := len(exec.graph.incomingTo(node.ID, port.Name)) > 0
		builder.Property(port.Name, property, port.Required && !configured && !bound)
	}
	return builder.Build()
}

func (adapter *Tool) Name() string {
	return adapter.name
}

func (adapter *Tool) NodeID() string {
	return adapter.node.ID
}

// ToolInfo implements tool.GenericTool.
func (adapter *Tool) ToolInfo() ai.ToolDescription {
	return ai.ToolDescription{
		Name:        adapter.name,
		Description: adapter.description,
		Parameters:  adapter.parameters,
	}
}

// Invoke runs the node with args at the highest input precedence and
// returns its tool output, with streams drained. Exceeding the run's maximum
// tool depth fails with *RecursionLimitExceeded.
func (adapter *Tool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	depth := toolDepthFromContext(ctx) + 1
	if limit := adapter.exec.config.maxToolDepth; depth > limit {
		return nil, &RecursionLimitExceeded{Tool: adapter.name, Depth: depth, Limit: limit}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	invocation := ToolInvocation{
		ID:        uuid.NewString(),
		NodeID:    adapter.node.ID,
		Tool:      adapter.name,
		Depth:     depth,
		Arguments: args,
		StartedAt: time.Now(),
	}

	ctx = contextWithToolDepth(ctx, depth)
	ctx = adapter.exec.observeToolStart(ctx, invocation)

	output, err := adapter.invoke(ctx, args)

	invocation.Output = output
	invocation.Err = err
	invocation.Duration = time.Since(invocation.StartedAt)
	adapter.exec.logInvocation(invocation)
	adapter.exec.observeToolFinished(ctx, invocation)

	return output, err
}

func (adapter *Tool) invoke(ctx context.Context, args map[string]any) (any, error) {
	if timeout := adapter.exec.nodeTimeout(adapter.node); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	inputs, err := ValueRouter{}.Resolve(ctx, adapter.exec, adapter.node, args)
	if err != nil {
		return nil, err
	}

	nodeInput, err := adapter.exec.nodeInput(adapter.node, ModeTool, inputs)
	if err != nil {
		closeInputStreams(inputs)
		return nil, err
	}

	result, err := safeExecute(ctx, adapter.node, nodeInput)
	closeInputStreams(inputs)
	if err != nil {
		return nil, err
	}

	output, _ := result.Output(toolOutputPort(adapter.node))
	if stream, isStream := output.(*Stream); isStream {
		stream.bind(ctx)
		return stream.Collect(ctx)
	}
	return output, nil
}

// Call implements tool.GenericTool. Arguments are parsed leniently. Bad
// arguments and missing inputs are reported to the caller as a failed
// ai.ToolResult payload; other errors are returned.
func (adapter *Tool) Call(ctx context.Context, inputJson string) (string, error) {
	args, err := parse.ParseArguments(inputJson)
	if err != nil {
		return ai.NewToolResultError(ai.ToolErrorInvalidInput, err.Error()).ToJSON()
	}

	output, err := adapter.Invoke(ctx, args)
	var missing *MissingInputError
	if errors.As(err, &missing) {
		return ai.NewToolResultError(ai.ToolErrorInvalidInput, missing.Error()).ToJSON()
	}
	if err != nil {
		return "", err
	}

	switch value := output.(type) {
	case string:
		return value, nil
	case ai.ToolResult:
		return value.ToJSON()
	case *ai.ToolResult:
		return value.ToJSON()
	}
	encoded, err := jsonx.MarshalString(output)
	if err != nil {
		return "", fmt.Errorf("tool %q: encoding output: %w", adapter.name, err)
	}
	return encoded, nil
}

type toolDepthKey struct{}

func toolDepthFromContext(ctx context.Context) int {
	depth, _ := ctx.Value(toolDepthKey{}).(int)
	return depth
}

func contextWithToolDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, toolDepthKey{}, depth)
}

// closeInputStreams abandons the live streams an invocation received.
// Streams the executor consumed fully are already done.
func closeInputStreams(inputs Inputs) {
	for _, value := range inputs {
		if stream, isStream := value.(*Stream); isStream {
			stream.Close()
		}
	}
}
