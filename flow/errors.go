package flow

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDeadlock reports that the scheduler ran out of ready and running
	// nodes while some nodes were still unresolved. It cannot happen for a
	// validated graph and indicates an internal error.
	ErrDeadlock = errors.New("flow: scheduler deadlock")

	// ErrResultAlreadyStored reports a second result insert for the same node
	// within one run.
	ErrResultAlreadyStored = errors.New("flow: node result already stored")

	// ErrStreamConsumed reports an attempt to iterate a stream that another
	// consumer already started.
	ErrStreamConsumed = errors.New("flow: stream already consumed")

	// ErrExecutionStarted reports a second Execute on the same ExecutionContext.
	ErrExecutionStarted = errors.New("flow: execution already started")
)

// StructuralErrorKind classifies a StructuralError.
type StructuralErrorKind string

const (
	KindInvalidNode       StructuralErrorKind = "invalid_node"
	KindDuplicateNode     StructuralErrorKind = "duplicate_node"
	KindUnknownNode       StructuralErrorKind = "unknown_node"
	KindUnknownPort       StructuralErrorKind = "unknown_port"
	KindIncompatibleTypes StructuralErrorKind = "incompatible_types"
	KindDuplicateBinding  StructuralErrorKind = "duplicate_binding"
	KindCycle             StructuralErrorKind = "cycle"
)

// StructuralError reports an invalid graph. Build and Validate return every
// structural error found, joined with errors.Join; use errors.As to inspect
// the first one.
type StructuralError struct {
	Kind   StructuralErrorKind
	NodeID string
	Port   string
	Detail string
}

func (e *StructuralError) Error() string {
	var builder strings.Builder
	builder.WriteString("structural error (")
	builder.WriteString(string(e.Kind))
	builder.WriteString(")")
	if e.NodeID != "" {
		fmt.Fprintf(&builder, ": node %q", e.NodeID)
		if e.Port != "" {
			fmt.Fprintf(&builder, " port %q", e.Port)
		}
	}
	if e.Detail != "" {
		builder.WriteString(": ")
		builder.WriteString(e.Detail)
	}
	return builder.String()
}

// MissingInputError reports a required input that resolved to no value.
type MissingInputError struct {
	NodeID string
	Port   string
}

func (e *MissingInputError) Error() string {
	return fmt.Sprintf("node %q: missing required input %q", e.NodeID, e.Port)
}

// RecursionLimitExceeded reports a tool invocation chain deeper than the
// configured maximum.
type RecursionLimitExceeded struct {
	Tool  string
	Depth int
	Limit int
}

func (e *RecursionLimitExceeded) Error() string {
	return fmt.Sprintf("tool %q: recursion depth %d exceeds limit %d", e.Tool, e.Depth, e.Limit)
}

// NodeError attaches a node id to the error recorded for it.
type NodeError struct {
	NodeID string
	State  NodeState
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q %s: %v", e.NodeID, e.State, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// PanicError wraps a value recovered from a panicking node executor.
type PanicError struct {
	NodeID string
	Value  any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("node %q panicked: %v", e.NodeID, e.Value)
}
