// Package flow executes typed node graphs. A node declares input and output
// ports; edges bind an output port to a compatible input port. Every node is
// also usable as a tool, so an agent node can call other nodes on demand
// with arguments of its own choosing.
//
// A [Graph] is built once with [NewGraphBuilder], validated, and then run
// any number of times. Each run owns an [ExecutionContext] holding the node
// records, the insert-once result table and the tool invocation log, so
// concurrent runs of the same graph never share mutable state.
//
// The scheduler runs nodes in dependency order, dispatching ready nodes in
// declaration order and running independent nodes concurrently. A node that
// fails skips its dependents, except those that bind it through an optional
// port, and never affects unrelated branches. The run ends
// [RunSucceeded], [RunPartiallyFailed] or [RunFailed] depending on which
// terminal output nodes produced a result.
//
// Input values are resolved by the [ValueRouter] on every invocation. For a
// tool invocation the caller's arguments win over edge-bound values, which
// win over static configuration and then declared defaults.
//
// Example:
//
//	graph, err := flow.NewGraphBuilder().
//	    AddComponent("input", components.NewInput()).
//	    AddNode("upper", upperExecutor,
//	        flow.WithInput(flow.InputPort{Name: "text", Types: []flow.TypeTag{flow.TagText}, Required: true, ToolEligible: true}),
//	        flow.WithOutput("text", flow.TagText),
//	    ).
//	    AddComponent("output", components.NewOutput()).
//	    AddEdge("input", "text", "upper", "text").
//	    AddEdge("upper", "text", "output", "value").
//	    Build()
//
//	result, err := graph.Run(ctx, "hello")
//	fmt.Println(result.Status, result.Output)
//
//	// The same node, called as a tool with its own argument.
//	upper, _ := result.Execution.Tool("upper")
//	output, err := upper.Invoke(ctx, map[string]any{"text": "x"})
package flow
