package flow

import (
	"time"

	"github.com/leofalp/aigoflow/core/config"
	"github.com/leofalp/aigoflow/providers/observability"
)

// DefaultMaxToolDepth bounds nested tool invocations when WithMaxToolDepth
// is not given.
const DefaultMaxToolDepth = 8

// GraphOption configures a graph at builder construction.
type GraphOption func(*graphConfig)

// NodeOption configures one node. Node options are applied via
// GraphBuilder.AddNode and GraphBuilder.AddComponent.
type NodeOption func(*Node)

// RunOption configures one run.
type RunOption func(*runConfig)

type graphConfig struct {
	// outputNodes designates the terminal nodes. Empty means every sink.
	outputNodes []string
}

type runConfig struct {
	maxToolDepth   int
	nodeTimeout    time.Duration
	runTimeout     time.Duration
	maxConcurrency int
	settings       config.Values
	overrides      map[string]map[string]any
	observer       observability.Provider
}

func newRunConfig(opts ...RunOption) *runConfig {
	config := &runConfig{
		maxToolDepth: DefaultMaxToolDepth,
	}
	for _, opt := range opts {
		opt(config)
	}
	return config
}

// --- Graph Options ---

// WithOutputNodes designates the terminal output nodes. The first one that
// completes provides RunResult.Output, and the run is PartiallyFailed rather
// than Failed as long as one of them completes. By default every sink (a
// node without outgoing edges) is a terminal output node.
func WithOutputNodes(nodeIDs ...string) GraphOption {
	return func(config *graphConfig) {
		config.outputNodes = append(config.outputNodes, nodeIDs...)
	}
}

// --- Node Options ---

// WithInput declares an input port.
func WithInput(port InputPort) NodeOption {
	return func(node *Node) {
		node.Inputs = append(node.Inputs, port)
	}
}

// WithOutput declares a value output port.
func WithOutput(name string, types ...TypeTag) NodeOption {
	return func(node *Node) {
		node.Outputs = append(node.Outputs, OutputPort{Name: name, Types: types, Kind: OutputValue})
	}
}

// WithToolOutputPort declares a tool output port under a custom name.
func WithToolOutputPort(name string) NodeOption {
	return func(node *Node) {
		node.Outputs = append(node.Outputs, OutputPort{Name: name, Types: []TypeTag{TagTool}, Kind: OutputTool})
	}
}

// WithNodeConfig sets static configuration values. Keys matching an input
// port name are used as that port's static value.
func WithNodeConfig(values map[string]any) NodeOption {
	return func(node *Node) {
		if node.Config == nil {
			node.Config = make(map[string]any, len(values))
		}
		for key, value := range values {
			node.Config[key] = value
		}
	}
}

// WithNodeTimeout bounds each execution of the node, structural or as a
// tool. An expired timeout fails the node.
func WithNodeTimeout(timeout time.Duration) NodeOption {
	return func(node *Node) {
		node.Timeout = timeout
	}
}

// WithNodeDescription documents the node.
func WithNodeDescription(description string) NodeOption {
	return func(node *Node) {
		node.Description = description
	}
}

// WithToolName sets the name the node is advertised under when used as a tool.
func WithToolName(name string) NodeOption {
	return func(node *Node) {
		node.ToolName = name
	}
}

// WithToolDescription sets the description advertised to tool callers.
func WithToolDescription(description string) NodeOption {
	return func(node *Node) {
		node.ToolDescription = description
	}
}

// WithToolOutput selects the value output returned to tool callers.
func WithToolOutput(port string) NodeOption {
	return func(node *Node) {
		node.ToolOutput = port
	}
}

// --- Run Options ---

// WithMaxToolDepth bounds nested tool invocations. Values below 1 keep the default.
func WithMaxToolDepth(depth int) RunOption {
	return func(config *runConfig) {
		if depth > 0 {
			config.maxToolDepth = depth
		}
	}
}

// WithDefaultNodeTimeout sets the timeout of nodes without their own timeout.
func WithDefaultNodeTimeout(timeout time.Duration) RunOption {
	return func(config *runConfig) {
		config.nodeTimeout = timeout
	}
}

// WithRunTimeout bounds the whole run. When it expires, running nodes are
// cancelled and every unfinished node ends Skipped.
func WithRunTimeout(timeout time.Duration) RunOption {
	return func(config *runConfig) {
		config.runTimeout = timeout
	}
}

// WithMaxConcurrency limits how many nodes run at once. Zero means unlimited.
func WithMaxConcurrency(maxConcurrency int) RunOption {
	return func(config *runConfig) {
		config.maxConcurrency = maxConcurrency
	}
}

// WithProviderConfig supplies the configuration mapping provider resolvers
// read credentials and flags from.
func WithProviderConfig(values config.Values) RunOption {
	return func(config *runConfig) {
		config.settings = values
	}
}

// WithConfigOverrides merges per-node values over the static configuration
// for this run only. The graph itself is not modified.
//
// Example:
//
//	graph.Run(ctx, input, flow.WithConfigOverrides(map[string]map[string]any{
//	    "agent": {"system_prompt": "Answer in French."},
//	}))
func WithConfigOverrides(overrides map[string]map[string]any) RunOption {
	return func(config *runConfig) {
		if config.overrides == nil {
			config.overrides = make(map[string]map[string]any, len(overrides))
		}
		for nodeID, values := range overrides {
			config.overrides[nodeID] = values
		}
	}
}

// WithObserver enables tracing, metrics and logging for the run.
func WithObserver(observer observability.Provider) RunOption {
	return func(config *runConfig) {
		config.observer = observer
	}
}
