package flow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"dario.cat/mergo"
	"github.com/google/uuid"

	"github.com/leofalp/aigoflow/core/config"
	"github.com/leofalp/aigoflow/providers/resolver"
)

// NodeExecutionRecord is the state of one node within one run.
type NodeExecutionRecord struct {
	NodeID string
	State  NodeState
	Result *NodeResult
	Err    error

	// CausedBy names the failed node a skip was propagated from. It is empty
	// for nodes skipped by cancellation.
	CausedBy string

	StartedAt  time.Time
	FinishedAt time.Time
}

// ToolInvocation is the log entry of one tool call.
type ToolInvocation struct {
	ID        string
	NodeID    string
	Tool      string
	Depth     int
	Arguments map[string]any
	Output    any
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// ExecutionContext is the mutable state of one run: node records, the
// insert-once result table, the tool invocation log and the per-node
// provider client caches. It is created by Graph.NewExecution and never
// shared between runs.
type ExecutionContext struct {
	runID    string
	graph    *Graph
	input    any
	config   *runConfig
	settings config.Values
	started  atomic.Bool

	mu           sync.RWMutex
	records      map[string]*NodeExecutionRecord
	results      map[string]*NodeResult
	invocations  []ToolInvocation
	tools        map[string]*Tool
	clientCaches map[clientCacheKey]any
	nodeConfigs  map[string]map[string]any
}

type clientCacheKey struct {
	nodeID     string
	capability string
}

// NewExecution prepares a run of the graph without starting it. Use it to
// invoke nodes as tools directly, or call Execute to run the graph.
func (graph *Graph) NewExecution(input any, opts ...RunOption) *ExecutionContext {
	runConfig := newRunConfig(opts...)
	settings := runConfig.settings
	if settings == nil {
		settings = config.Values{}
	}

	return &ExecutionContext{
		runID:        uuid.NewString(),
		graph:        graph,
		input:        input,
		config:       runConfig,
		settings:     settings,
		records:      make(map[string]*NodeExecutionRecord),
		results:      make(map[string]*NodeResult),
		tools:        make(map[string]*Tool),
		clientCaches: make(map[clientCacheKey]any),
		nodeConfigs:  make(map[string]map[string]any),
	}
}

// Run executes the graph once with the given initial input.
//
// The returned error is reserved for conditions that abort the run as a
// whole. Node failures are reported per node in the RunResult, whose Status
// tells a partial success from a total failure.
func (graph *Graph) Run(ctx context.Context, input any, opts ...RunOption) (*RunResult, error) {
	return graph.NewExecution(input, opts...).Execute(ctx)
}

func (exec *ExecutionContext) RunID() string {
	return exec.runID
}

func (exec *ExecutionContext) Graph() *Graph {
	return exec.graph
}

func (exec *ExecutionContext) Input() any {
	return exec.input
}

func (exec *ExecutionContext) Settings() config.Values {
	return exec.settings
}

// Record returns a snapshot of the record of nodeID. Nodes the scheduler has
// not considered yet have no record.
func (exec *ExecutionContext) Record(nodeID string) (NodeExecutionRecord, bool) {
	exec.mu.RLock()
	defer exec.mu.RUnlock()
	record, exists := exec.records[nodeID]
	if !exists {
		return NodeExecutionRecord{}, false
	}
	return *record, true
}

// Result returns the stored result of nodeID.
func (exec *ExecutionContext) Result(nodeID string) (*NodeResult, bool) {
	exec.mu.RLock()
	defer exec.mu.RUnlock()
	result, exists := exec.results[nodeID]
	return result, exists
}

// Invocations returns a snapshot of the tool invocation log.
func (exec *ExecutionContext) Invocations() []ToolInvocation {
	exec.mu.RLock()
	defer exec.mu.RUnlock()
	return append([]ToolInvocation(nil), exec.invocations...)
}

// Tool returns nodeID wrapped as an invocable tool bound to this run.
func (exec *ExecutionContext) Tool(nodeID string) (*Tool, error) {
	node, exists := exec.graph.nodes[nodeID]
	if !exists {
		return nil, &StructuralError{Kind: KindUnknownNode, NodeID: nodeID, Detail: "no such node"}
	}
	return exec.toolFor(node), nil
}

// NodeConfig returns the static configuration of nodeID with this run's
// overrides merged on top. The returned map must not be modified.
func (exec *ExecutionContext) NodeConfig(nodeID string) (map[string]any, error) {
	exec.mu.RLock()
	cached, exists := exec.nodeConfigs[nodeID]
	exec.mu.RUnlock()
	if exists {
		return cached, nil
	}

	// Nested maps are cloned so merging never writes into the graph.
	var effective map[string]any
	if node, ok := exec.graph.nodes[nodeID]; ok {
		effective = cloneConfig(node.Config)
	} else {
		effective = make(map[string]any)
	}
	if override, ok := exec.config.overrides[nodeID]; ok && len(override) > 0 {
		if err := mergo.Merge(&effective, cloneConfig(override), mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("merging config overrides of node %q: %w", nodeID, err)
		}
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if cached, exists := exec.nodeConfigs[nodeID]; exists {
		return cached, nil
	}
	exec.nodeConfigs[nodeID] = effective
	return effective, nil
}

func cloneConfig(values map[string]any) map[string]any {
	cloned := make(map[string]any, len(values))
	for key, value := range values {
		cloned[key] = cloneConfigValue(value)
	}
	return cloned
}

func cloneConfigValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return cloneConfig(typed)
	case []any:
		cloned := make([]any, len(typed))
		for index, item := range typed {
			cloned[index] = cloneConfigValue(item)
		}
		return cloned
	default:
		return value
	}
}

// storeResult inserts the result of nodeID. The first writer wins; a second
// insert fails with ErrResultAlreadyStored.
func (exec *ExecutionContext) storeResult(nodeID string, result *NodeResult) error {
	exec.mu.Lock()
	defer exec.mu.Unlock()
	if _, exists := exec.results[nodeID]; exists {
		return ErrResultAlreadyStored
	}
	exec.results[nodeID] = result
	if record, exists := exec.records[nodeID]; exists {
		record.Result = result
	}
	return nil
}

// setState creates the record lazily and moves it to state.
func (exec *ExecutionContext) setState(nodeID string, state NodeState) {
	exec.mu.Lock()
	defer exec.mu.Unlock()
	record := exec.recordLocked(nodeID)
	record.State = state
	switch state {
	case StateRunning:
		record.StartedAt = time.Now()
	case StateCompleted, StateFailed, StateSkipped:
		record.FinishedAt = time.Now()
	}
}

// settle records a terminal failure or skip.
func (exec *ExecutionContext) settle(nodeID string, state NodeState, err error, causedBy string) {
	exec.mu.Lock()
	defer exec.mu.Unlock()
	record := exec.recordLocked(nodeID)
	record.State = state
	record.Err = err
	record.CausedBy = causedBy
	record.FinishedAt = time.Now()
}

func (exec *ExecutionContext) recordLocked(nodeID string) *NodeExecutionRecord {
	record, exists := exec.records[nodeID]
	if !exists {
		record = &NodeExecutionRecord{NodeID: nodeID, State: StatePending}
		exec.records[nodeID] = record
	}
	return record
}

func (exec *ExecutionContext) logInvocation(invocation ToolInvocation) {
	exec.mu.Lock()
	defer exec.mu.Unlock()
	exec.invocations = append(exec.invocations, invocation)
}

// toolFor returns the run's adapter for node, creating it once.
func (exec *ExecutionContext) toolFor(node *Node) *Tool {
	exec.mu.RLock()
	adapter, exists := exec.tools[node.ID]
	exec.mu.RUnlock()
	if exists {
		return adapter
	}

	// newTool reads the node configuration, which takes the lock itself.
	created := newTool(exec, node)

	exec.mu.Lock()
	defer exec.mu.Unlock()
	if adapter, exists := exec.tools[node.ID]; exists {
		return adapter
	}
	exec.tools[node.ID] = created
	return created
}

// nodeTimeout returns the timeout of one execution of node, zero for none.
func (exec *ExecutionContext) nodeTimeout(node *Node) time.Duration {
	if node.Timeout > 0 {
		return node.Timeout
	}
	return exec.config.nodeTimeout
}

func (exec *ExecutionContext) nodeInput(node *Node, mode Mode, inputs Inputs) (*NodeInput, error) {
	nodeConfig, err := exec.NodeConfig(node.ID)
	if err != nil {
		return nil, err
	}
	return &NodeInput{
		NodeID:   node.ID,
		Mode:     mode,
		Inputs:   inputs,
		Config:   nodeConfig,
		RunInput: exec.input,
		Settings: exec.settings,
		exec:     exec,
		node:     node,
	}, nil
}

// ResolveCached resolves a capability for the node behind input, reusing the
// client built for this node and capability earlier in the run as long as
// the same candidate wins. explicit is the value wired into the node for
// this capability, if any.
//
// Example:
//
//	provider, err := flow.ResolveCached(ctx, input, chatResolver, input.Inputs.Value("model"))
func ResolveCached[C any](ctx context.Context, input *NodeInput, capability *resolver.Resolver[C], explicit any) (C, error) {
	exec := input.exec
	key := clientCacheKey{nodeID: input.NodeID, capability: capability.Capability()}

	exec.mu.Lock()
	entry, exists := exec.clientCaches[key]
	if !exists {
		entry = &resolver.Cache[C]{}
		exec.clientCaches[key] = entry
	}
	exec.mu.Unlock()

	cache := entry.(*resolver.Cache[C])
	client, candidateID, err := cache.Get(ctx, capability, resolver.Env{Config: exec.settings, Explicit: explicit})
	if err == nil {
		exec.observeProviderResolved(ctx, input.NodeID, capability.Capability(), candidateID)
	}
	return client, err
}
