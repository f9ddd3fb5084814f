package flow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/leofalp/aigoflow/core/config"
	"github.com/leofalp/aigoflow/providers/observability"
	"github.com/leofalp/aigoflow/providers/tool"
)

// Mode tells an executor how it was invoked.
type Mode string

const (
	// ModeFlow is the single structural execution driven by the scheduler.
	ModeFlow Mode = "flow"

	// ModeTool is an on-demand execution through the node's *Tool.
	ModeTool Mode = "tool"
)

// NodeResult contains the values a node produced, keyed by output port.
// Values may be a *Stream for outputs that are produced incrementally.
type NodeResult struct {
	Outputs map[string]any

	// Metadata carries arbitrary details such as token counts or the model used.
	Metadata map[string]any
}

// NewResult creates a result holding a single output value.
func NewResult(port string, value any) *NodeResult {
	return &NodeResult{Outputs: map[string]any{port: value}}
}

// Output returns the value of one output port.
func (result *NodeResult) Output(port string) (any, bool) {
	if result == nil {
		return nil, false
	}
	value, exists := result.Outputs[port]
	return value, exists
}

// NodeExecutor is the behavior of a node. The same executor serves the
// structural execution and every tool invocation of the node, so it must not
// keep per-invocation state on itself.
//
// Example:
//
//	upper := flow.NodeExecutorFunc(func(ctx context.Context, input *flow.NodeInput) (*flow.NodeResult, error) {
//	    return flow.NewResult("text", strings.ToUpper(input.Inputs.String("text"))), nil
//	})
type NodeExecutor interface {
	Execute(ctx context.Context, input *NodeInput) (*NodeResult, error)
}

// NodeExecutorFunc is an adapter that allows using an ordinary function as a
// NodeExecutor.
type NodeExecutorFunc func(ctx context.Context, input *NodeInput) (*NodeResult, error)

// Execute calls the underlying function, satisfying the NodeExecutor interface.
func (executorFunc NodeExecutorFunc) Execute(ctx context.Context, input *NodeInput) (*NodeResult, error) {
	return executorFunc(ctx, input)
}

// Ports is the static description a Component gives of itself.
type Ports struct {
	Inputs      []InputPort
	Outputs     []OutputPort
	ToolOutput  string
	Description string
}

// Component is a reusable node behavior that declares its own ports.
type Component interface {
	NodeExecutor
	Ports() Ports
}

// Inputs holds the resolved input values of one invocation, keyed by port.
// Ports that resolved to nothing are absent.
type Inputs map[string]any

// Has reports whether port resolved to a value.
func (inputs Inputs) Has(port string) bool {
	_, exists := inputs[port]
	return exists
}

// Value returns the raw value of port, or nil.
func (inputs Inputs) Value(port string) any {
	return inputs[port]
}

// String returns the value of port as text. Non-string values are formatted
// with fmt; absent ports yield "".
func (inputs Inputs) String(port string) string {
	value, exists := inputs[port]
	if !exists || value == nil {
		return ""
	}
	if text, ok := value.(string); ok {
		return text
	}
	return fmt.Sprint(value)
}

// Int returns the value of port as an int, or fallback when absent or not numeric.
func (inputs Inputs) Int(port string, fallback int) int {
	switch value := inputs[port].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	case string:
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// Values returns the value of a multi-valued port. A single value is
// returned as a one-element slice.
func (inputs Inputs) Values(port string) []any {
	value, exists := inputs[port]
	if !exists {
		return nil
	}
	if values, ok := value.([]any); ok {
		return values
	}
	return []any{value}
}

// Stream returns the live stream bound to a Streamed port.
func (inputs Inputs) Stream(port string) (*Stream, bool) {
	stream, ok := inputs[port].(*Stream)
	return stream, ok
}

// NodeInput is everything an executor sees during one invocation.
type NodeInput struct {
	NodeID string
	Mode   Mode

	// Inputs are the resolved port values. They do not change after resolution.
	Inputs Inputs

	// Config is the node's static configuration with run overrides applied.
	Config map[string]any

	// RunInput is the initial input value of the run.
	RunInput any

	// Settings is the run's provider configuration.
	Settings config.Values

	exec *ExecutionContext
	node *Node
}

// Execution returns the execution context of the run.
func (input *NodeInput) Execution() *ExecutionContext {
	return input.exec
}

// Observer returns the run's observability provider, or nil.
func (input *NodeInput) Observer() observability.Provider {
	if input.exec == nil {
		return nil
	}
	return input.exec.config.observer
}

// Self returns the running node wrapped as a tool, for executors that need
// to call themselves.
func (input *NodeInput) Self() *Tool {
	return input.exec.toolFor(input.node)
}

// ConfigString returns the configuration value for key as text, or fallback.
func (input *NodeInput) ConfigString(key, fallback string) string {
	value, exists := input.Config[key]
	if !exists || value == nil {
		return fallback
	}
	if text, ok := value.(string); ok {
		return text
	}
	return fmt.Sprint(value)
}

// ConfigInt returns the configuration value for key as an int, or fallback.
func (input *NodeInput) ConfigInt(key string, fallback int) int {
	return Inputs(input.Config).Int(key, fallback)
}

// Tools collects the tools bound to port into a catalog the node can hand
// to a model. Two tools sharing a name fail with *tool.DuplicateToolNameError.
// A port without tools yields an empty catalog.
func (input *NodeInput) Tools(port string) (*tool.Catalog, error) {
	var tools []tool.GenericTool
	for _, value := range input.Inputs.Values(port) {
		genericTool, ok := value.(tool.GenericTool)
		if !ok {
			return nil, fmt.Errorf("node %q: port %q carries %T, not a tool", input.NodeID, port, value)
		}
		tools = append(tools, genericTool)
	}

	catalog, err := tool.NewCatalogWithTools(tools...)
	if err != nil {
		return nil, fmt.Errorf("node %q: registering tools from port %q: %w", input.NodeID, port, err)
	}
	return catalog, nil
}

// safeExecute runs the executor, converting a panic into a *PanicError.
func safeExecute(ctx context.Context, node *Node, input *NodeInput) (result *NodeResult, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			result = nil
			err = &PanicError{NodeID: node.ID, Value: recovered}
		}
	}()

	result, err = node.Executor.Execute(ctx, input)
	if err == nil && result == nil {
		result = &NodeResult{}
	}
	return result, err
}
