package flow

import (
	"errors"
	"fmt"
	"slices"
	"sort"
)

// GraphBuilder constructs a validated Graph using a fluent API. Problems
// found while adding nodes and edges are accumulated and reported by Build.
//
// Example:
//
//	graph, err := flow.NewGraphBuilder().
//	    AddComponent("input", components.NewInput()).
//	    AddComponent("search", components.NewSearch(documentStore)).
//	    AddComponent("output", components.NewOutput()).
//	    AddEdge("input", "text", "search", "query").
//	    AddEdge("search", "results", "output", "value").
//	    Build()
type GraphBuilder struct {
	config *graphConfig

	// nodes stores all registered nodes keyed by their ID.
	nodes map[string]*Node

	// nodeOrder preserves declaration order, used for every tie-break.
	nodeOrder []string

	edges []Edge

	// buildErrors accumulates problems found by AddNode and AddEdge.
	buildErrors []error
}

// NewGraphBuilder creates an empty builder.
func NewGraphBuilder(opts ...GraphOption) *GraphBuilder {
	config := &graphConfig{}
	for _, opt := range opts {
		opt(config)
	}

	return &GraphBuilder{
		config: config,
		nodes:  make(map[string]*Node),
	}
}

// AddNode registers a node with the given unique id and executor. Ports,
// configuration and tool identity are set with node options.
func (builder *GraphBuilder) AddNode(nodeID string, executor NodeExecutor, opts ...NodeOption) *GraphBuilder {
	if nodeID == "" {
		builder.buildErrors = append(builder.buildErrors, &StructuralError{Kind: KindInvalidNode, Detail: "node ID must not be empty"})
		return builder
	}

	if executor == nil {
		builder.buildErrors = append(builder.buildErrors, &StructuralError{Kind: KindInvalidNode, NodeID: nodeID, Detail: "executor must not be nil"})
		return builder
	}

	if _, exists := builder.nodes[nodeID]; exists {
		builder.buildErrors = append(builder.buildErrors, &StructuralError{Kind: KindDuplicateNode, NodeID: nodeID, Detail: "node ID already declared"})
		return builder
	}

	node := &Node{
		ID:       nodeID,
		Executor: executor,
		index:    len(builder.nodeOrder),
	}
	for _, opt := range opts {
		opt(node)
	}

	builder.nodes[nodeID] = node
	builder.nodeOrder = append(builder.nodeOrder, nodeID)

	return builder
}

// AddComponent registers a node whose ports and descriptions come from the
// component itself. Additional node options are applied afterwards and may
// override them.
func (builder *GraphBuilder) AddComponent(nodeID string, component Component, opts ...NodeOption) *GraphBuilder {
	if component == nil {
		builder.buildErrors = append(builder.buildErrors, &StructuralError{Kind: KindInvalidNode, NodeID: nodeID, Detail: "component must not be nil"})
		return builder
	}

	ports := component.Ports()
	componentOpts := []NodeOption{
		func(node *Node) {
			node.Inputs = append(node.Inputs, ports.Inputs...)
			node.Outputs = append(node.Outputs, ports.Outputs...)
			node.Description = ports.Description
			node.ToolOutput = ports.ToolOutput
		},
	}
	return builder.AddNode(nodeID, component, append(componentOpts, opts...)...)
}

// AddEdge binds an output port of one node to an input port of another.
// Endpoints are checked by Build.
func (builder *GraphBuilder) AddEdge(fromNode, fromPort, toNode, toPort string) *GraphBuilder {
	builder.edges = append(builder.edges, Edge{
		From: Endpoint{Node: fromNode, Port: fromPort},
		To:   Endpoint{Node: toNode, Port: toPort},
	})
	return builder
}

// Build validates the graph and returns it. All structural problems are
// reported together as *StructuralError values joined with errors.Join.
func (builder *GraphBuilder) Build() (*Graph, error) {
	if len(builder.buildErrors) > 0 {
		return nil, fmt.Errorf("graph build errors: %w", errors.Join(builder.buildErrors...))
	}

	if len(builder.nodes) == 0 {
		return nil, &StructuralError{Kind: KindInvalidNode, Detail: "graph must contain at least one node"}
	}

	graph := &Graph{
		nodes:     make(map[string]*Node, len(builder.nodes)),
		nodeOrder: slices.Clone(builder.nodeOrder),
		edges:     slices.Clone(builder.edges),
		outgoing:  make(map[string][]int),
		incoming:  make(map[string][]int),

		outputNodes: slices.Clone(builder.config.outputNodes),
	}
	for nodeID, node := range builder.nodes {
		graph.nodes[nodeID] = finalizeNode(node)
	}
	for edgeIndex, edge := range graph.edges {
		graph.outgoing[edge.From.Node] = append(graph.outgoing[edge.From.Node], edgeIndex)
		graph.incoming[edge.To.Node] = append(graph.incoming[edge.To.Node], edgeIndex)
	}

	if err := graph.Validate(); err != nil {
		return nil, err
	}

	graph.topologicalOrder, _ = graph.kahnTopologicalSort()
	if len(graph.outputNodes) == 0 {
		graph.outputNodes = graph.sinks()
	}
	graph.markToolOnlyNodes()

	return graph, nil
}

// finalizeNode copies node and adds the implicit tool output when the node
// does not declare one.
func finalizeNode(node *Node) *Node {
	finalized := *node
	finalized.Inputs = slices.Clone(node.Inputs)
	finalized.Outputs = slices.Clone(node.Outputs)

	hasToolOutput := false
	for index, port := range finalized.Outputs {
		if port.Kind == OutputTool {
			hasToolOutput = true
			if len(port.Types) == 0 {
				finalized.Outputs[index].Types = []TypeTag{TagTool}
			}
		}
	}
	if _, taken := finalized.Output(ToolPort); !hasToolOutput && !taken {
		finalized.Outputs = append(finalized.Outputs, OutputPort{Name: ToolPort, Types: []TypeTag{TagTool}, Kind: OutputTool})
	}
	return &finalized
}

// Validate checks the structural integrity of the graph: every edge must
// reference existing nodes and ports with intersecting type tags, a non-multi
// input accepts at most one edge, tool outputs and designated output nodes
// must exist, and the edges must not form a cycle.
func (graph *Graph) Validate() error {
	var problems []error

	for _, nodeID := range graph.nodeOrder {
		node := graph.nodes[nodeID]
		if node.ToolOutput != "" {
			if port, exists := node.Output(node.ToolOutput); !exists || port.Kind != OutputValue {
				problems = append(problems, &StructuralError{Kind: KindUnknownPort, NodeID: nodeID, Port: node.ToolOutput, Detail: "tool output must name a value output"})
			}
		}
	}

	bindings := make(map[Endpoint]int)
	for _, edge := range graph.edges {
		problems = append(problems, graph.validateEdge(edge, bindings)...)
	}

	for _, nodeID := range graph.outputNodes {
		if _, exists := graph.nodes[nodeID]; !exists {
			problems = append(problems, &StructuralError{Kind: KindUnknownNode, NodeID: nodeID, Detail: "designated output node does not exist"})
		}
	}

	if len(problems) > 0 {
		return errors.Join(problems...)
	}

	if _, err := graph.kahnTopologicalSort(); err != nil {
		return err
	}
	return nil
}

func (graph *Graph) validateEdge(edge Edge, bindings map[Endpoint]int) []error {
	source, sourceExists := graph.nodes[edge.From.Node]
	target, targetExists := graph.nodes[edge.To.Node]

	var problems []error
	if !sourceExists {
		problems = append(problems, &StructuralError{Kind: KindUnknownNode, NodeID: edge.From.Node, Detail: "edge source does not exist"})
	}
	if !targetExists {
		problems = append(problems, &StructuralError{Kind: KindUnknownNode, NodeID: edge.To.Node, Detail: "edge target does not exist"})
	}
	if len(problems) > 0 {
		return problems
	}

	outputPort, outputExists := source.Output(edge.From.Port)
	if !outputExists {
		problems = append(problems, &StructuralError{Kind: KindUnknownPort, NodeID: source.ID, Port: edge.From.Port, Detail: "output port does not exist"})
	}
	inputPort, inputExists := target.Input(edge.To.Port)
	if !inputExists {
		problems = append(problems, &StructuralError{Kind: KindUnknownPort, NodeID: target.ID, Port: edge.To.Port, Detail: "input port does not exist"})
	}
	if len(problems) > 0 {
		return problems
	}

	if !tagsIntersect(outputPort.Types, inputPort.Types) {
		problems = append(problems, &StructuralError{
			Kind:   KindIncompatibleTypes,
			NodeID: target.ID,
			Port:   inputPort.Name,
			Detail: fmt.Sprintf("%s.%s produces %v, port accepts %v", source.ID, outputPort.Name, outputPort.Types, inputPort.Types),
		})
	}

	bindings[edge.To]++
	if bindings[edge.To] == 2 && !inputPort.Multi {
		problems = append(problems, &StructuralError{Kind: KindDuplicateBinding, NodeID: target.ID, Port: inputPort.Name, Detail: "port is not multi-valued and already has an edge"})
	}
	return problems
}

// kahnTopologicalSort orders the nodes with Kahn's algorithm, picking ready
// nodes by declaration order. It fails with a cycle error naming the nodes
// left unprocessed.
func (graph *Graph) kahnTopologicalSort() ([]string, error) {
	inDegree := make(map[string]int, len(graph.nodes))
	for _, nodeID := range graph.nodeOrder {
		inDegree[nodeID] = len(graph.incoming[nodeID])
	}

	ready := make([]string, 0)
	for _, nodeID := range graph.nodeOrder {
		if inDegree[nodeID] == 0 {
			ready = append(ready, nodeID)
		}
	}

	order := make([]string, 0, len(graph.nodes))
	for len(ready) > 0 {
		nodeID := ready[0]
		ready = ready[1:]
		order = append(order, nodeID)

		for _, edgeIndex := range graph.outgoing[nodeID] {
			target := graph.edges[edgeIndex].To.Node
			inDegree[target]--
			if inDegree[target] == 0 {
				ready = graph.insertByDeclaration(ready, target)
			}
		}
	}

	if len(order) != len(graph.nodes) {
		cycleNodes := make([]string, 0)
		for _, nodeID := range graph.nodeOrder {
			if inDegree[nodeID] > 0 {
				cycleNodes = append(cycleNodes, nodeID)
			}
		}
		return nil, &StructuralError{Kind: KindCycle, NodeID: cycleNodes[0], Detail: fmt.Sprintf("cycle detected involving nodes: %v", cycleNodes)}
	}
	return order, nil
}

// insertByDeclaration inserts nodeID into the declaration-ordered slice.
func (graph *Graph) insertByDeclaration(ordered []string, nodeID string) []string {
	position := sort.Search(len(ordered), func(index int) bool {
		return graph.nodes[ordered[index]].index > graph.nodes[nodeID].index
	})
	return slices.Insert(ordered, position, nodeID)
}

// sinks returns the nodes without outgoing edges in declaration order.
func (graph *Graph) sinks() []string {
	sinks := make([]string, 0)
	for _, nodeID := range graph.nodeOrder {
		if len(graph.outgoing[nodeID]) == 0 {
			sinks = append(sinks, nodeID)
		}
	}
	return sinks
}

// markToolOnlyNodes flags nodes whose every outgoing edge leaves a tool
// output. Such nodes are never executed structurally.
func (graph *Graph) markToolOnlyNodes() {
	for _, node := range graph.nodes {
		outgoing := graph.outgoing[node.ID]
		if len(outgoing) == 0 {
			continue
		}
		toolOnly := true
		for _, edgeIndex := range outgoing {
			port, _ := node.Output(graph.edges[edgeIndex].From.Port)
			if port.Kind != OutputTool {
				toolOnly = false
				break
			}
		}
		node.toolOnly = toolOnly
	}
}
