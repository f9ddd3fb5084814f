package flow

import (
	"errors"
	"fmt"
	"time"

	"github.com/leofalp/aigoflow/core/parse"
)

// RunStatus summarizes a finished run.
type RunStatus string

const (
	// RunSucceeded means every node completed.
	RunSucceeded RunStatus = "succeeded"

	// RunPartiallyFailed means some node did not complete but at least one
	// terminal output node produced a result.
	RunPartiallyFailed RunStatus = "partially_failed"

	// RunFailed means no terminal output node produced a result.
	RunFailed RunStatus = "failed"
)

// RunResult reports the outcome of a run: the overall status, the output of
// the first terminal node that completed and the record of every node.
type RunResult struct {
	RunID  string
	Status RunStatus

	// Output is the first value output of OutputNodeID. It is nil when no
	// terminal output node completed.
	Output       any
	OutputNodeID string

	// Nodes holds one record per node in declaration order.
	Nodes []NodeExecutionRecord

	Duration time.Duration

	// Execution gives access to results and the tool invocation log.
	Execution *ExecutionContext
}

// Node returns the record of nodeID.
func (result *RunResult) Node(nodeID string) (NodeExecutionRecord, bool) {
	for _, record := range result.Nodes {
		if record.NodeID == nodeID {
			return record, true
		}
	}
	return NodeExecutionRecord{}, false
}

// Err joins the errors of every node that failed or was cancelled. It is nil
// for a fully successful run.
func (result *RunResult) Err() error {
	var errs []error
	for _, record := range result.Nodes {
		if record.Err != nil {
			errs = append(errs, &NodeError{NodeID: record.NodeID, State: record.State, Err: record.Err})
		}
	}
	return errors.Join(errs...)
}

func (exec *ExecutionContext) buildResult(duration time.Duration) *RunResult {
	result := &RunResult{
		RunID:     exec.runID,
		Duration:  duration,
		Execution: exec,
		Nodes:     make([]NodeExecutionRecord, 0, len(exec.graph.nodeOrder)),
	}

	allCompleted := true
	for _, nodeID := range exec.graph.nodeOrder {
		record, exists := exec.Record(nodeID)
		if !exists {
			record = NodeExecutionRecord{NodeID: nodeID, State: StatePending}
		}
		if record.State != StateCompleted {
			allCompleted = false
		}
		result.Nodes = append(result.Nodes, record)
	}

	for _, nodeID := range exec.graph.outputNodes {
		record, _ := result.Node(nodeID)
		if record.State != StateCompleted {
			continue
		}
		result.OutputNodeID = nodeID
		result.Output = firstValueOutput(exec.graph.nodes[nodeID], record.Result)
		break
	}

	switch {
	case allCompleted:
		result.Status = RunSucceeded
	case result.OutputNodeID != "":
		result.Status = RunPartiallyFailed
	default:
		result.Status = RunFailed
	}
	return result
}

func firstValueOutput(node *Node, nodeResult *NodeResult) any {
	for _, port := range node.Outputs {
		if port.Kind != OutputValue {
			continue
		}
		if value, present := nodeResult.Output(port.Name); present {
			return value
		}
	}
	return nil
}

// OutputAs converts the run output to T. Values already of type T are
// returned as is; text is parsed as a primitive or as JSON.
func OutputAs[T any](result *RunResult) (T, error) {
	var zero T
	if result == nil || result.OutputNodeID == "" {
		return zero, fmt.Errorf("run produced no output")
	}
	if typed, ok := result.Output.(T); ok {
		return typed, nil
	}
	if text, ok := result.Output.(string); ok {
		return parse.ParseStringAs[T](text)
	}
	return zero, fmt.Errorf("run output of node %q is %T, not %T", result.OutputNodeID, result.Output, zero)
}
