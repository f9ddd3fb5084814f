package flow

import (
	"slices"
	"time"
)

// TypeTag labels the kind of value a port carries. An edge may connect an
// output port to an input port only when their tag sets intersect.
type TypeTag string

const (
	TagData      TypeTag = "Data"
	TagText      TypeTag = "Text"
	TagTool      TypeTag = "Tool"
	TagEmbedding TypeTag = "Embedding"
	TagModel     TypeTag = "Model"
	TagMessage   TypeTag = "Message"
)

// ToolPort is the name of the tool output every node gets implicitly when it
// does not declare a tool output of its own.
const ToolPort = "tool"

// NodeState is the execution state of a node within one run.
type NodeState string

const (
	// StatePending indicates the node has not been considered yet.
	StatePending NodeState = "pending"

	// StateReady indicates all structural inputs are resolved and the node
	// waits for a dispatch slot.
	StateReady NodeState = "ready"

	// StateRunning indicates the node is executing. A node handing a live
	// stream to its consumer stays running until the stream ends.
	StateRunning NodeState = "running"

	// StateCompleted indicates the node produced its result.
	StateCompleted NodeState = "completed"

	// StateFailed indicates the node's own execution returned an error,
	// panicked or timed out.
	StateFailed NodeState = "failed"

	// StateSkipped indicates the node did not run because a required
	// upstream failed or the run was cancelled.
	StateSkipped NodeState = "skipped"
)

// InputPort declares one input of a node.
type InputPort struct {
	Name  string
	Types []TypeTag

	// Required inputs that resolve to no value fail the invocation with
	// *MissingInputError.
	Required bool

	// ToolEligible inputs are advertised in the tool parameter schema and may
	// be supplied by a tool caller.
	ToolEligible bool

	// Multi inputs accept any number of edges and resolve to a []any holding
	// every available upstream value in edge declaration order.
	Multi bool

	// Streamed inputs accept a live *Stream. Other inputs always receive
	// fully drained values.
	Streamed bool

	// Default is used for optional inputs that resolve to nothing else.
	Default any

	Description string

	// SchemaType is the JSON schema type advertised to tool callers. When
	// empty it is inferred from Default, falling back to "string".
	SchemaType string
}

// OutputKind distinguishes value outputs from tool outputs.
type OutputKind int

const (
	// OutputValue ports carry the result of the node's deterministic execution.
	OutputValue OutputKind = iota

	// OutputTool ports carry the node itself, wrapped as an invocable *Tool.
	OutputTool
)

func (kind OutputKind) String() string {
	if kind == OutputTool {
		return "tool"
	}
	return "value"
}

// OutputPort declares one output of a node.
type OutputPort struct {
	Name  string
	Types []TypeTag
	Kind  OutputKind
}

// Node is a typed unit of computation. Nodes are created by the
// GraphBuilder and must not be modified once the graph is built.
type Node struct {
	ID       string
	Inputs   []InputPort
	Outputs  []OutputPort
	Config   map[string]any
	Executor NodeExecutor

	// Description documents the node and is the tool description fallback.
	Description string

	// ToolName and ToolDescription override the derived tool identity.
	ToolName        string
	ToolDescription string

	// ToolOutput names the value output returned when the node is invoked as
	// a tool. Defaults to the first value output.
	ToolOutput string

	// Timeout bounds each execution of the node. Zero uses the run default.
	Timeout time.Duration

	index    int
	toolOnly bool
}

// Input returns the named input port.
func (node *Node) Input(name string) (InputPort, bool) {
	for _, port := range node.Inputs {
		if port.Name == name {
			return port, true
		}
	}
	return InputPort{}, false
}

// Output returns the named output port.
func (node *Node) Output(name string) (OutputPort, bool) {
	for _, port := range node.Outputs {
		if port.Name == name {
			return port, true
		}
	}
	return OutputPort{}, false
}

// Index returns the declaration index of the node.
func (node *Node) Index() int {
	return node.index
}

// Endpoint addresses one port of one node.
type Endpoint struct {
	Node string
	Port string
}

// Edge is a structural binding from an output port to an input port.
type Edge struct {
	From Endpoint
	To   Endpoint
}

// Graph is an immutable, validated DAG of nodes. It is safe for concurrent
// use by any number of runs.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []string
	edges     []Edge

	// outgoing and incoming hold edge indices per node, in declaration order.
	outgoing map[string][]int
	incoming map[string][]int

	topologicalOrder []string

	// outputNodes are the terminal nodes whose results decide the run status.
	outputNodes []string
}

// Nodes returns the nodes in declaration order.
func (graph *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(graph.nodeOrder))
	for _, nodeID := range graph.nodeOrder {
		nodes = append(nodes, graph.nodes[nodeID])
	}
	return nodes
}

// Node returns the node with the given id.
func (graph *Graph) Node(nodeID string) (*Node, bool) {
	node, exists := graph.nodes[nodeID]
	return node, exists
}

// Edges returns a copy of the structural edges in declaration order.
func (graph *Graph) Edges() []Edge {
	return slices.Clone(graph.edges)
}

// TopologicalOrder returns the node ids in a dependency-respecting order,
// breaking ties by declaration order.
func (graph *Graph) TopologicalOrder() []string {
	return slices.Clone(graph.topologicalOrder)
}

// OutputNodes returns the terminal output nodes of the graph.
func (graph *Graph) OutputNodes() []string {
	return slices.Clone(graph.outputNodes)
}

// Dependents returns the distinct ids of the nodes fed by nodeID, in edge
// declaration order.
func (graph *Graph) Dependents(nodeID string) []string {
	return graph.distinctEndpoints(graph.outgoing[nodeID], func(edge Edge) string { return edge.To.Node })
}

// Dependencies returns the distinct ids of the nodes feeding nodeID, in edge
// declaration order.
func (graph *Graph) Dependencies(nodeID string) []string {
	return graph.distinctEndpoints(graph.incoming[nodeID], func(edge Edge) string { return edge.From.Node })
}

func (graph *Graph) distinctEndpoints(edgeIndices []int, pick func(Edge) string) []string {
	if len(edgeIndices) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(edgeIndices))
	nodeIDs := make([]string, 0, len(edgeIndices))
	for _, edgeIndex := range edgeIndices {
		nodeID := pick(graph.edges[edgeIndex])
		if !seen[nodeID] {
			seen[nodeID] = true
			nodeIDs = append(nodeIDs, nodeID)
		}
	}
	return nodeIDs
}

// incomingTo returns the edges bound to one input port, in declaration order.
func (graph *Graph) incomingTo(nodeID, port string) []Edge {
	var edges []Edge
	for _, edgeIndex := range graph.incoming[nodeID] {
		if graph.edges[edgeIndex].To.Port == port {
			edges = append(edges, graph.edges[edgeIndex])
		}
	}
	return edges
}

// outgoingFrom returns the edges leaving one output port, in declaration order.
func (graph *Graph) outgoingFrom(nodeID, port string) []Edge {
	var edges []Edge
	for _, edgeIndex := range graph.outgoing[nodeID] {
		if graph.edges[edgeIndex].From.Port == port {
			edges = append(edges, graph.edges[edgeIndex])
		}
	}
	return edges
}

// toolOutputPort returns the value output a tool invocation of node returns.
func toolOutputPort(node *Node) string {
	if node.ToolOutput != "" {
		return node.ToolOutput
	}
	for _, port := range node.Outputs {
		if port.Kind == OutputValue {
			return port.Name
		}
	}
	return ""
}

func tagsIntersect(left, right []TypeTag) bool {
	for _, tag := range left {
		if slices.Contains(right, tag) {
			return true
		}
	}
	return false
}
