package flow

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Execute runs the graph once. Every node runs at most once structurally;
// ready nodes run concurrently up to the configured limit. A failed node
// skips its dependents unless they bind it through an optional port, and
// never affects nodes that do not depend on it.
//
// Execute may only be called once per ExecutionContext. The error is
// reserved for run-level faults; node failures are reported in the result.
func (exec *ExecutionContext) Execute(ctx context.Context) (*RunResult, error) {
	if !exec.started.CompareAndSwap(false, true) {
		return nil, ErrExecutionStarted
	}

	if exec.config.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, exec.config.runTimeout)
		defer cancel()
	}

	startTime := time.Now()
	ctx = exec.observeRunStart(ctx)

	schedulerErr := newScheduler(exec).run(ctx)
	result := exec.buildResult(time.Since(startTime))

	if schedulerErr != nil {
		exec.observeRunFailed(ctx, schedulerErr, result.Duration)
		return result, schedulerErr
	}
	exec.observeRunCompleted(ctx, result)
	return result, nil
}

// nodeEvent is sent by a node goroutine to the scheduler loop. A released
// event hands a live stream to its consumer before the producer has ended.
type nodeEvent struct {
	nodeID   string
	state    NodeState
	err      error
	released bool

	stream       *Stream
	streamTarget string
}

type scheduler struct {
	exec  *ExecutionContext
	graph *Graph

	inDegree map[string]int
	ready    []string
	inFlight int

	// streaming counts producers that handed over a live stream. They no
	// longer hold a concurrency slot but still owe a terminal event.
	streaming int

	settled  map[string]bool
	released map[string]bool

	// liveStreams holds the streams handed to each consumer, closed when the
	// consumer settles.
	liveStreams map[string][]*Stream

	events chan nodeEvent
	fatal  error
}

func newScheduler(exec *ExecutionContext) *scheduler {
	graph := exec.graph
	sched := &scheduler{
		exec:        exec,
		graph:       graph,
		inDegree:    make(map[string]int, len(graph.nodes)),
		settled:     make(map[string]bool, len(graph.nodes)),
		released:    make(map[string]bool),
		liveStreams: make(map[string][]*Stream),
		// Each node sends at most a release and a terminal event, so senders never block.
		events: make(chan nodeEvent, 2*len(graph.nodes)),
	}

	for _, nodeID := range graph.nodeOrder {
		sched.inDegree[nodeID] = len(graph.incoming[nodeID])
		if sched.inDegree[nodeID] == 0 {
			sched.ready = append(sched.ready, nodeID)
			exec.setState(nodeID, StateReady)
		}
	}
	return sched
}

func (sched *scheduler) run(ctx context.Context) error {
	for {
		sched.dispatch(ctx)
		if sched.inFlight == 0 && sched.streaming == 0 {
			break
		}
		sched.handle(ctx, <-sched.events)
	}

	if sched.fatal != nil {
		return sched.fatal
	}

	var unresolved []string
	for _, nodeID := range sched.graph.nodeOrder {
		if !sched.settled[nodeID] {
			unresolved = append(unresolved, nodeID)
		}
	}
	if len(unresolved) > 0 {
		return fmt.Errorf("%w: unresolved nodes %v", ErrDeadlock, unresolved)
	}
	return nil
}

// dispatch starts ready nodes in declaration order while the concurrency
// limit allows. Cancellation is checked before each node.
func (sched *scheduler) dispatch(ctx context.Context) {
	limit := sched.exec.config.maxConcurrency
	for len(sched.ready) > 0 && (limit <= 0 || sched.inFlight < limit) {
		nodeID := sched.ready[0]
		sched.ready = sched.ready[1:]
		node := sched.graph.nodes[nodeID]

		if err := ctx.Err(); err != nil {
			sched.settle(nodeID, StateSkipped, err, "")
			sched.exec.observeNodeSkipped(ctx, nodeID, "", err)
			sched.propagate(ctx, nodeID, "")
			continue
		}

		if node.toolOnly {
			sched.completeToolOnly(ctx, node)
			continue
		}

		sched.inFlight++
		sched.exec.setState(nodeID, StateRunning)
		go sched.runNode(ctx, node)
	}
}

// completeToolOnly settles a node whose only consumers take it as a tool.
// Its executor runs only when the tool is invoked.
func (sched *scheduler) completeToolOnly(ctx context.Context, node *Node) {
	result := &NodeResult{Outputs: make(map[string]any)}
	sched.attachTools(node, result)
	if err := sched.exec.storeResult(node.ID, result); err != nil {
		sched.fail(err)
	}
	sched.exec.setState(node.ID, StateCompleted)
	sched.settled[node.ID] = true
	sched.exec.observeToolOnlyNode(ctx, node.ID)
	sched.release(node.ID)
}

func (sched *scheduler) handle(ctx context.Context, event nodeEvent) {
	if event.released {
		if event.stream != nil {
			if sched.settled[event.streamTarget] {
				event.stream.Close()
			} else {
				sched.liveStreams[event.streamTarget] = append(sched.liveStreams[event.streamTarget], event.stream)
			}
		}
		// The producer waits on its consumer, so it gives up its slot.
		sched.inFlight--
		sched.streaming++
		sched.released[event.nodeID] = true
		sched.release(event.nodeID)
		return
	}

	if sched.released[event.nodeID] {
		sched.streaming--
	} else {
		sched.inFlight--
	}
	if errors.Is(event.err, ErrResultAlreadyStored) {
		sched.fail(event.err)
	}

	if event.state == StateCompleted {
		sched.exec.setState(event.nodeID, StateCompleted)
	} else {
		sched.exec.settle(event.nodeID, event.state, event.err, "")
	}
	sched.settled[event.nodeID] = true
	sched.abandonStreams(event.nodeID)

	// Dependents of a released node were already handed its outputs.
	if sched.released[event.nodeID] {
		return
	}
	if event.state == StateCompleted {
		sched.release(event.nodeID)
		return
	}
	// Skips from cancellation have no failed root.
	root := event.nodeID
	if event.state == StateSkipped {
		root = ""
	}
	sched.propagate(ctx, event.nodeID, root)
}

// release counts the outgoing edges of a completed node as resolved.
func (sched *scheduler) release(nodeID string) {
	for _, edgeIndex := range sched.graph.outgoing[nodeID] {
		sched.resolveEdge(sched.graph.edges[edgeIndex])
	}
}

func (sched *scheduler) resolveEdge(edge Edge) {
	target := edge.To.Node
	if sched.settled[target] {
		return
	}
	sched.inDegree[target]--
	if sched.inDegree[target] == 0 {
		sched.exec.setState(target, StateReady)
		sched.ready = sched.graph.insertByDeclaration(sched.ready, target)
	}
}

// propagate skips the dependents of a node that did not complete. Optional
// ports and tool bindings only resolve the edge, so their node still runs.
func (sched *scheduler) propagate(ctx context.Context, nodeID, root string) {
	source := sched.graph.nodes[nodeID]
	for _, edgeIndex := range sched.graph.outgoing[nodeID] {
		edge := sched.graph.edges[edgeIndex]
		target := edge.To.Node
		if sched.settled[target] {
			continue
		}

		sourcePort, _ := source.Output(edge.From.Port)
		targetPort, _ := sched.graph.nodes[target].Input(edge.To.Port)
		if sourcePort.Kind == OutputTool || !targetPort.Required {
			sched.resolveEdge(edge)
			continue
		}

		sched.settle(target, StateSkipped, nil, root)
		sched.exec.observeNodeSkipped(ctx, target, root, nil)
		sched.propagate(ctx, target, root)
	}
}

func (sched *scheduler) settle(nodeID string, state NodeState, err error, causedBy string) {
	sched.exec.settle(nodeID, state, err, causedBy)
	sched.settled[nodeID] = true
	sched.ready = removeID(sched.ready, nodeID)
	sched.abandonStreams(nodeID)
}

func (sched *scheduler) abandonStreams(nodeID string) {
	for _, stream := range sched.liveStreams[nodeID] {
		stream.Close()
	}
	delete(sched.liveStreams, nodeID)
}

func (sched *scheduler) fail(err error) {
	if sched.fatal == nil {
		sched.fatal = err
	}
}

// runNode performs the structural execution of one node and reports its
// outcome on the events channel.
func (sched *scheduler) runNode(ctx context.Context, node *Node) {
	exec := sched.exec
	startTime := time.Now()

	nodeCtx := exec.observeNodeStart(ctx, node, ModeFlow)
	timeout := exec.nodeTimeout(node)
	if timeout > 0 {
		var cancel context.CancelFunc
		nodeCtx, cancel = context.WithTimeout(nodeCtx, timeout)
		// Held until the node ends, including any live stream it hands over.
		defer cancel()
	}

	finish := func(state NodeState, err error) {
		if err != nil && ctx.Err() != nil {
			state = StateSkipped
		} else if err != nil && timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("node %q timed out after %s: %w", node.ID, timeout, err)
		}
		exec.observeNodeFinished(nodeCtx, node.ID, state, err, time.Since(startTime))
		sched.events <- nodeEvent{nodeID: node.ID, state: state, err: err}
	}

	result, err := sched.executeNode(nodeCtx, node)
	if err != nil {
		finish(StateFailed, err)
		return
	}

	liveStream, streamTarget, err := sched.prepareOutputs(nodeCtx, node, result)
	if err != nil {
		finish(StateFailed, err)
		return
	}

	if err := exec.storeResult(node.ID, result); err != nil {
		finish(StateFailed, err)
		return
	}

	if liveStream == nil {
		finish(StateCompleted, nil)
		return
	}

	sched.events <- nodeEvent{nodeID: node.ID, released: true, stream: liveStream, streamTarget: streamTarget}
	select {
	case <-liveStream.Done():
		if streamErr := liveStream.Err(); streamErr != nil {
			finish(StateFailed, streamErr)
			return
		}
		finish(StateCompleted, nil)
	case <-nodeCtx.Done():
		liveStream.Close()
		finish(StateFailed, nodeCtx.Err())
	}
}

func (sched *scheduler) executeNode(ctx context.Context, node *Node) (*NodeResult, error) {
	exec := sched.exec
	inputs, err := ValueRouter{}.Resolve(ctx, exec, node, nil)
	if err != nil {
		return nil, err
	}

	nodeInput, err := exec.nodeInput(node, ModeFlow, inputs)
	if err != nil {
		closeInputStreams(inputs)
		return nil, err
	}

	result, err := safeExecute(ctx, node, nodeInput)
	if err != nil || !hasStreamOutput(result) {
		// A stream output may still be reading its inputs.
		closeInputStreams(inputs)
	}
	return result, err
}

// prepareOutputs adds the tool adapters of the node to its result and
// decides for each stream output whether it goes live to a single Streamed
// consumer or is drained now. At most one stream per node goes live.
func (sched *scheduler) prepareOutputs(ctx context.Context, node *Node, result *NodeResult) (*Stream, string, error) {
	if result.Outputs == nil {
		result.Outputs = make(map[string]any)
	}
	sched.attachTools(node, result)

	var liveStream *Stream
	var streamTarget string
	for _, port := range node.Outputs {
		stream, isStream := result.Outputs[port.Name].(*Stream)
		if !isStream {
			continue
		}

		if liveStream == nil {
			if target, live := sched.liveConsumer(node.ID, port.Name); live {
				stream.bind(ctx)
				liveStream, streamTarget = stream, target
				continue
			}
		}

		stream.bind(ctx)
		drained, err := stream.Collect(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("node %q: draining stream output %q: %w", node.ID, port.Name, err)
		}
		result.Outputs[port.Name] = drained
	}
	return liveStream, streamTarget, nil
}

// liveConsumer returns the node a stream on port can be handed to: the
// target of the only edge leaving port, when that input is Streamed.
func (sched *scheduler) liveConsumer(nodeID, port string) (string, bool) {
	edges := sched.graph.outgoingFrom(nodeID, port)
	if len(edges) != 1 {
		return "", false
	}
	targetPort, _ := sched.graph.nodes[edges[0].To.Node].Input(edges[0].To.Port)
	return edges[0].To.Node, targetPort.Streamed
}

func (sched *scheduler) attachTools(node *Node, result *NodeResult) {
	for _, port := range node.Outputs {
		if port.Kind == OutputTool {
			result.Outputs[port.Name] = sched.exec.toolFor(node)
		}
	}
}

func hasStreamOutput(result *NodeResult) bool {
	if result == nil {
		return false
	}
	for _, value := range result.Outputs {
		if _, isStream := value.(*Stream); isStream {
			return true
		}
	}
	return false
}

func removeID(ids []string, nodeID string) []string {
	for index, id := range ids {
		if id == nodeID {
			return append(ids[:index], ids[index+1:]...)
		}
	}
	return ids
}
