package flow

import (
	"context"
	"fmt"
)

// ValueRouter computes the effective inputs of one node invocation. For each
// input port the first source holding a value wins:
//
//  1. runtime arguments, for tool-eligible ports of a tool invocation
//  2. the memoized output of the upstream node bound by an edge
//  3. the node's static configuration, with run overrides applied
//  4. the port's declared default, for optional ports
//
// A required port left without a value fails with *MissingInputError.
// Resolution is never cached: every invocation resolves again.
type ValueRouter struct{}

// Resolve returns the inputs of node for one invocation. args is nil for the
// structural execution.
func (router ValueRouter) Resolve(ctx context.Context, exec *ExecutionContext, node *Node, args map[string]any) (Inputs, error) {
	inputs := make(Inputs, len(node.Inputs))
	staticConfig, err := exec.NodeConfig(node.ID)
	if err != nil {
		return nil, err
	}

	for _, port := range node.Inputs {
		if port.ToolEligible && args != nil {
			if value, supplied := args[port.Name]; supplied {
				inputs[port.Name] = normalizeMulti(port, value)
				continue
			}
		}

		value, bound, err := router.resolveEdges(ctx, exec, node, port)
		if err != nil {
			return nil, err
		}
		if bound {
			inputs[port.Name] = value
			continue
		}

		if value, configured := staticConfig[port.Name]; configured {
			inputs[port.Name] = normalizeMulti(port, value)
			continue
		}

		if !port.Required {
			if port.Default != nil {
				inputs[port.Name] = port.Default
			}
			continue
		}

		return nil, &MissingInputError{NodeID: node.ID, Port: port.Name}
	}

	return inputs, nil
}

// resolveEdges reads the upstream values bound to port. Upstream nodes that
// have not produced a result (failed, skipped, or not run) contribute nothing.
func (router ValueRouter) resolveEdges(ctx context.Context, exec *ExecutionContext, node *Node, port InputPort) (any, bool, error) {
	var collected []any
	for _, edge := range exec.graph.incomingTo(node.ID, port.Name) {
		value, available, err := router.upstreamValue(ctx, exec, edge, port)
		if err != nil {
			return nil, false, err
		}
		if !available {
			continue
		}
		if !port.Multi {
			return value, true, nil
		}
		collected = append(collected, value)
	}

	if len(collected) == 0 {
		return nil, false, nil
	}
	return collected, true, nil
}

func (router ValueRouter) upstreamValue(ctx context.Context, exec *ExecutionContext, edge Edge, port InputPort) (any, bool, error) {
	source := exec.graph.nodes[edge.From.Node]

	// Tool outputs are derived from the graph itself, so they are available
	// even when the source never ran.
	if sourcePort, _ := source.Output(edge.From.Port); sourcePort.Kind == OutputTool {
		return exec.toolFor(source), true, nil
	}

	result, stored := exec.Result(source.ID)
	if !stored {
		return nil, false, nil
	}
	value, present := result.Output(edge.From.Port)
	if !present {
		return nil, false, nil
	}

	stream, isStream := value.(*Stream)
	if !isStream || port.Streamed {
		return value, true, nil
	}

	drained, err := stream.Collect(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("node %q: draining stream from %s.%s: %w", edge.To.Node, edge.From.Node, edge.From.Port, err)
	}
	return drained, true, nil
}

func normalizeMulti(port InputPort, value any) any {
	if !port.Multi {
		return value
	}
	if values, ok := value.([]any); ok {
		return values
	}
	return []any{value}
}
