package flow

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leofalp/aigoflow/providers/observability"
)

// --- Port Helpers ---

func textInput(name string) InputPort {
	return InputPort{Name: name, Types: []TypeTag{TagText}, Required: true}
}

func optionalTextInput(name string) InputPort {
	return InputPort{Name: name, Types: []TypeTag{TagText}}
}

func toolEligibleInput(name string) InputPort {
	return InputPort{Name: name, Types: []TypeTag{TagText}, Required: true, ToolEligible: true}
}

// --- Executors ---

// constantExecutor returns an executor producing value on port.
func constantExecutor(port string, value any) NodeExecutorFunc {
	return func(_ context.Context, _ *NodeInput) (*NodeResult, error) {
		return NewResult(port, value), nil
	}
}

// failingExecutor returns an executor that always fails with err.
func failingExecutor(err error) NodeExecutorFunc {
	return func(_ context.Context, _ *NodeInput) (*NodeResult, error) {
		return nil, err
	}
}

// joinExecutor concatenates the text of every input port, in port order,
// and writes it to "text".
func joinExecutor(ports ...string) NodeExecutorFunc {
	return func(_ context.Context, input *NodeInput) (*NodeResult, error) {
		parts := make([]string, 0, len(ports))
		for _, port := range ports {
			if input.Inputs.Has(port) {
				parts = append(parts, input.Inputs.String(port))
			}
		}
		return NewResult("text", strings.Join(parts, "+")), nil
	}
}

// blockingExecutor waits for ctx to end.
func blockingExecutor() NodeExecutorFunc {
	return func(ctx context.Context, _ *NodeInput) (*NodeResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
}

// executionTracker counts executions per node.
type executionTracker struct {
	mu     sync.Mutex
	counts map[string]int
	order  []string
}

func newExecutionTracker() *executionTracker {
	return &executionTracker{counts: make(map[string]int)}
}

func (tracker *executionTracker) wrap(nodeID string, executor NodeExecutor) NodeExecutorFunc {
	return func(ctx context.Context, input *NodeInput) (*NodeResult, error) {
		tracker.mu.Lock()
		tracker.counts[nodeID]++
		tracker.order = append(tracker.order, nodeID)
		tracker.mu.Unlock()
		return executor.Execute(ctx, input)
	}
}

func (tracker *executionTracker) count(nodeID string) int {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.counts[nodeID]
}

func (tracker *executionTracker) position(nodeID string) int {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	for index, id := range tracker.order {
		if id == nodeID {
			return index
		}
	}
	return -1
}

// --- Graph Helpers ---

// mustBuild builds the graph or fails the test.
func mustBuild(testingHelper *testing.T, builder *GraphBuilder) *Graph {
	testingHelper.Helper()
	graph, err := builder.Build()
	if err != nil {
		testingHelper.Fatalf("build error: %v", err)
	}
	return graph
}

// mustRun runs the graph with a generous timeout or fails the test.
func mustRun(testingHelper *testing.T, graph *Graph, input any, opts ...RunOption) *RunResult {
	testingHelper.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := graph.Run(ctx, input, opts...)
	if err != nil {
		testingHelper.Fatalf("run error: %v", err)
	}
	return result
}

func assertState(testingHelper *testing.T, result *RunResult, nodeID string, expected NodeState) NodeExecutionRecord {
	testingHelper.Helper()
	record, exists := result.Node(nodeID)
	if !exists {
		testingHelper.Fatalf("no record for node %q", nodeID)
	}
	if record.State != expected {
		testingHelper.Errorf("node %q: expected state %s, got %s (err: %v)", nodeID, expected, record.State, record.Err)
	}
	return record
}

// --- Observability Mock ---

// testObserver implements observability.Provider for verifying observe calls.
type testObserver struct {
	mu       sync.Mutex
	spans    []string
	logs     []string
	counters map[string]int64
}

var _ observability.Provider = (*testObserver)(nil)

func newTestObserver() *testObserver {
	return &testObserver{counters: make(map[string]int64)}
}

func (observer *testObserver) StartSpan(ctx context.Context, name string, _ ...observability.Attribute) (context.Context, observability.Span) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	observer.spans = append(observer.spans, name)
	return ctx, &testSpan{}
}

func (observer *testObserver) log(msg string) {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	observer.logs = append(observer.logs, msg)
}

func (observer *testObserver) Trace(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) Debug(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) Info(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) Warn(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) Error(_ context.Context, msg string, _ ...observability.Attribute) {
	observer.log(msg)
}

func (observer *testObserver) Counter(name string) observability.Counter {
	return &testCounter{name: name, observer: observer}
}

func (observer *testObserver) Histogram(string) observability.Histogram {
	return testHistogram{}
}

func (observer *testObserver) hasSpan(name string) bool {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	for _, span := range observer.spans {
		if span == name {
			return true
		}
	}
	return false
}

func (observer *testObserver) hasLog(msg string) bool {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	for _, logged := range observer.logs {
		if logged == msg {
			return true
		}
	}
	return false
}

func (observer *testObserver) counter(name string) int64 {
	observer.mu.Lock()
	defer observer.mu.Unlock()
	return observer.counters[name]
}

type testSpan struct{}

func (span *testSpan) End()                                            {}
func (span *testSpan) SetAttributes(_ ...observability.Attribute)      {}
func (span *testSpan) SetStatus(_ observability.StatusCode, _ string)  {}
func (span *testSpan) RecordError(error)                               {}
func (span *testSpan) AddEvent(_ string, _ ...observability.Attribute) {}

type testCounter struct {
	name     string
	observer *testObserver
}

func (counter *testCounter) Add(_ context.Context, value int64, _ ...observability.Attribute) {
	counter.observer.mu.Lock()
	defer counter.observer.mu.Unlock()
	counter.observer.counters[counter.name] += value
}

type testHistogram struct{}

func (testHistogram) Record(context.Context, float64, ...observability.Attribute) {}
