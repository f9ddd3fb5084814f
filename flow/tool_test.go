package flow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/leofalp/aigoflow/internal/jsonx"
	"github.com/leofalp/aigoflow/providers/ai"
	"github.com/leofalp/aigoflow/providers/tool"
)

// searchGraph builds input -> search -> output where search reports the
// query it received.
func searchGraph(testingHelper *testing.T, tracker *executionTracker) *Graph {
	testingHelper.Helper()
	return mustBuild(testingHelper, NewGraphBuilder().
		AddNode("input", constantExecutor("text", "edge default"), WithOutput("text", TagText)).
		AddNode("search", tracker.wrap("search", NodeExecutorFunc(func(_ context.Context, input *NodeInput) (*NodeResult, error) {
			return NewResult("results", "results for "+input.Inputs.String("query")), nil
		})),
			WithInput(InputPort{Name: "query", Types: []TypeTag{TagText}, Required: true, ToolEligible: true, Description: "What to look for."}),
			WithOutput("results", TagText),
			WithNodeDescription("Searches the knowledge base."),
		).
		AddNode("output", joinExecutor("value"), WithInput(textInput("value")), WithOutput("text", TagText)).
		AddEdge("input", "text", "search", "query").
		AddEdge("search", "results", "output", "value"))
}

func TestTool_DirectInvocationUsesArgument(testCase *testing.T) {
	tracker := newExecutionTracker()
	graph := searchGraph(testCase, tracker)
	result := mustRun(testCase, graph, nil)

	if result.Output != "results for edge default" {
		testCase.Fatalf("unexpected structural output %v", result.Output)
	}

	search, err := result.Execution.Tool("search")
	if err != nil {
		testCase.Fatalf("tool: %v", err)
	}
	output, err := search.Invoke(context.Background(), map[string]any{"query": "x"})
	if err != nil {
		testCase.Fatalf("invoke: %v", err)
	}
	if output != "results for x" {
		testCase.Errorf("expected the argument to win over the edge value, got %v", output)
	}

	stored, _ := result.Execution.Result("search")
	if value, _ := stored.Output("results"); value != "results for edge default" {
		testCase.Errorf("tool invocations must not touch the memoized result, got %v", value)
	}
	if tracker.count("search") != 2 {
		testCase.Errorf("expected one structural and one tool execution, got %d", tracker.count("search"))
	}

	invocations := result.Execution.Invocations()
	if len(invocations) != 1 || invocations[0].Depth != 1 || invocations[0].Output != "results for x" {
		testCase.Errorf("unexpected invocation log %+v", invocations)
	}
}

func TestTool_InvocationWithoutArgumentUsesEdgeValue(testCase *testing.T) {
	graph := searchGraph(testCase, newExecutionTracker())
	result := mustRun(testCase, graph, nil)

	search, _ := result.Execution.Tool("search")
	output, err := search.Invoke(context.Background(), map[string]any{})
	if err != nil || output != "results for edge default" {
		testCase.Errorf("expected edge value, got %v (%v)", output, err)
	}
}

func TestTool_InvokeBeforeRun(testCase *testing.T) {
	graph := searchGraph(testCase, newExecutionTracker())
	exec := graph.NewExecution(nil)

	search, _ := exec.Tool("search")
	output, err := search.Invoke(context.Background(), map[string]any{"query": "early"})
	if err != nil || output != "results for early" {
		testCase.Errorf("expected direct invocation to work without a run, got %v (%v)", output, err)
	}

	_, err = search.Invoke(context.Background(), nil)
	var missing *MissingInputError
	if !errors.As(err, &missing) {
		testCase.Errorf("expected MissingInputError before upstream ran, got %v", err)
	}
}

func TestTool_CallReturnsPayloads(testCase *testing.T) {
	graph := searchGraph(testCase, newExecutionTracker())
	exec := graph.NewExecution(nil)
	search, _ := exec.Tool("search")

	output, err := search.Call(context.Background(), `{"query": "json"}`)
	if err != nil || output != "results for json" {
		testCase.Errorf("expected text output, got %q (%v)", output, err)
	}

	for _, arguments := range []string{`{}`, `[1, 2]`} {
		output, err = search.Call(context.Background(), arguments)
		if err != nil {
			testCase.Fatalf("bad arguments must be reported in the payload, got error %v", err)
		}
		var payload ai.ToolResult
		if err := jsonx.Unmarshal([]byte(output), &payload); err != nil {
			testCase.Fatalf("payload is not a tool result: %q", output)
		}
		if payload.Success || payload.Error != ai.ToolErrorInvalidInput {
			testCase.Errorf("arguments %s: expected invalid_input payload, got %+v", arguments, payload)
		}
	}
}

func TestTool_CallEncodesStructuredOutput(testCase *testing.T) {
	graph := mustBuild(testCase, NewGraphBuilder().
		AddNode("lookup", NodeExecutorFunc(func(context.Context, *NodeInput) (*NodeResult, error) {
			return NewResult("data", map[string]any{"hits": 2}), nil
		}), WithOutput("data", TagData)).
		AddNode("report", NodeExecutorFunc(func(context.Context, *NodeInput) (*NodeResult, error) {
			return NewResult("result", ai.NewToolResultError(ai.ToolErrorNoContent, "nothing stored")), nil
		}), WithOutput("result", TagData)))
	exec := graph.NewExecution(nil)

	lookup, _ := exec.Tool("lookup")
	output, err := lookup.Call(context.Background(), "")
	if err != nil || output != `{"hits":2}` {
		testCase.Errorf("expected JSON encoding, got %q (%v)", output, err)
	}

	report, _ := exec.Tool("report")
	output, err = report.Call(context.Background(), "")
	if err != nil || !strings.Contains(output, ai.ToolErrorNoContent) {
		testCase.Errorf("expected domain failure in the payload, got %q (%v)", output, err)
	}
}

func TestTool_Naming(testCase *testing.T) {
	longID := strings.Repeat("n", 80)
	graph := mustBuild(testCase, NewGraphBuilder().
		AddNode("web search!", constantExecutor("text", "x"), WithOutput("text", TagText)).
		AddNode(longID, constantExecutor("text", "x"), WithOutput("text", TagText)).
		AddNode("renamed", constantExecutor("text", "x"), WithOutput("text", TagText), WithToolName("lookup"), WithToolDescription("Looks things up.")))
	exec := graph.NewExecution(nil)

	sanitized, _ := exec.Tool("web search!")
	if sanitized.Name() != "web_search_" {
		testCase.Errorf("expected sanitized name, got %q", sanitized.Name())
	}
	if !strings.Contains(sanitized.ToolInfo().Description, "web search!") {
		testCase.Errorf("expected fallback description to name the node, got %q", sanitized.ToolInfo().Description)
	}

	long, _ := exec.Tool(longID)
	if len(long.Name()) != 64 {
		testCase.Errorf("expected name truncated to 64 characters, got %d", len(long.Name()))
	}

	renamed, _ := exec.Tool("renamed")
	if renamed.Name() != "lookup" || renamed.ToolInfo().Description != "Looks things up." || renamed.NodeID() != "renamed" {
		testCase.Errorf("unexpected identity %q / %q", renamed.Name(), renamed.ToolInfo().Description)
	}

	if _, err := exec.Tool("ghost"); err == nil {
		testCase.Error("expected error for unknown node")
	}
}

func TestTool_ParameterSchema(testCase *testing.T) {
	limit := InputPort{Name: "limit", Types: []TypeTag{TagData}, ToolEligible: true, Default: 5, Description: "Maximum results."}
	graph := mustBuild(testCase, NewGraphBuilder().
		AddNode("input", constantExecutor("text", "x"), WithOutput("text", TagText)).
		AddNode("search", joinExecutor("query"),
			WithInput(toolEligibleInput("query")),
			WithInput(toolEligibleInput("bound")),
			WithInput(toolEligibleInput("configured")),
			WithInput(limit),
			WithInput(textInput("hidden")),
			WithNodeConfig(map[string]any{"configured": "yes", "hidden": "h"}),
			WithOutput("text", TagText)).
		AddEdge("input", "text", "search", "bound"))

	search, _ := graph.NewExecution(nil).Tool("search")
	schema := search.ToolInfo().Parameters

	if !slices.Equal(schema.Required, []string{"query"}) {
		testCase.Errorf("only unsatisfiable ports are required, got %v", schema.Required)
	}
	if _, exposed := schema.Properties["hidden"]; exposed {
		testCase.Error("non tool-eligible ports must not be advertised")
	}
	if len(schema.Properties) != 4 {
		testCase.Errorf("expected four advertised ports, got %d", len(schema.Properties))
	}
	limitSchema := schema.Properties["limit"]
	if limitSchema.Type != "integer" || limitSchema.Default != 5 || limitSchema.Description != "Maximum results." {
		testCase.Errorf("unexpected limit schema %+v", limitSchema)
	}
}

func TestTool_DuplicateNamesRejected(testCase *testing.T) {
	graph := mustBuild(testCase, NewGraphBuilder().
		AddNode("first", constantExecutor("text", "1"), WithOutput("text", TagText), WithToolName("lookup")).
		AddNode("second", constantExecutor("text", "2"), WithOutput("text", TagText), WithToolName("Lookup")).
		AddNode("agent", NodeExecutorFunc(func(_ context.Context, input *NodeInput) (*NodeResult, error) {
			if _, err := input.Tools("tools"); err != nil {
				return nil, err
			}
			return NewResult("text", "registered"), nil
		}), WithInput(InputPort{Name: "tools", Types: []TypeTag{TagTool}, Multi: true}), WithOutput("text", TagText)).
		AddEdge("first", "tool", "agent", "tools").
		AddEdge("second", "tool", "agent", "tools"))

	result := mustRun(testCase, graph, nil)

	record := assertState(testCase, result, "agent", StateFailed)
	var duplicate *tool.DuplicateToolNameError
	if !errors.As(record.Err, &duplicate) {
		testCase.Fatalf("expected DuplicateToolNameError, got %v", record.Err)
	}
}

// recursiveExecutor calls itself through its tool until the depth limit
// stops it.
func recursiveExecutor() NodeExecutorFunc {
	return func(ctx context.Context, input *NodeInput) (*NodeResult, error) {
		output, err := input.Self().Invoke(ctx, map[string]any{})
		if err != nil {
			return nil, fmt.Errorf("nested call: %w", err)
		}
		return NewResult("text", output), nil
	}
}

func TestTool_RecursionLimit(testCase *testing.T) {
	tracker := newExecutionTracker()
	graph := mustBuild(testCase, NewGraphBuilder().
		AddNode("recurse", tracker.wrap("recurse", recursiveExecutor()), WithOutput("text", TagText)))
	exec := graph.NewExecution(nil, WithMaxToolDepth(3))

	recurse, _ := exec.Tool("recurse")
	_, err := recurse.Invoke(context.Background(), nil)

	var limit *RecursionLimitExceeded
	if !errors.As(err, &limit) {
		testCase.Fatalf("expected RecursionLimitExceeded, got %v", err)
	}
	if limit.Depth != 4 || limit.Limit != 3 {
		testCase.Errorf("expected depth 4 over limit 3, got %d/%d", limit.Depth, limit.Limit)
	}
	if tracker.count("recurse") != 3 {
		testCase.Errorf("expected three executions within the limit, got %d", tracker.count("recurse"))
	}
}

func TestTool_RecursionLimitFailsStructuralNode(testCase *testing.T) {
	graph := mustBuild(testCase, NewGraphBuilder().
		AddNode("recurse", recursiveExecutor(), WithOutput("text", TagText)).
		AddNode("sibling", constantExecutor("text", "fine"), WithOutput("text", TagText)))

	result := mustRun(testCase, graph, nil, WithMaxToolDepth(2))

	record := assertState(testCase, result, "recurse", StateFailed)
	var limit *RecursionLimitExceeded
	if !errors.As(record.Err, &limit) {
		testCase.Errorf("expected RecursionLimitExceeded, got %v", record.Err)
	}
	assertState(testCase, result, "sibling", StateCompleted)
}

func TestTool_ConcurrentInvocations(testCase *testing.T) {
	graph := searchGraph(testCase, newExecutionTracker())
	exec := graph.NewExecution(nil)
	search, _ := exec.Tool("search")

	var waitGroup sync.WaitGroup
	outputs := make([]any, 10)
	for index := range outputs {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			outputs[index], _ = search.Invoke(context.Background(), map[string]any{"query": fmt.Sprint(index)})
		}()
	}
	waitGroup.Wait()

	for index, output := range outputs {
		if output != fmt.Sprintf("results for %d", index) {
			testCase.Errorf("invocation %d got %v", index, output)
		}
	}
	if len(exec.Invocations()) != 10 {
		testCase.Errorf("expected ten logged invocations, got %d", len(exec.Invocations()))
	}
}

func TestTool_StreamOutputIsDrained(testCase *testing.T) {
	graph := mustBuild(testCase, NewGraphBuilder().
		AddNode("words", NodeExecutorFunc(func(context.Context, *NodeInput) (*NodeResult, error) {
			return NewResult("text", NewTextStream(textChunks("a", "b", "c"))), nil
		}), WithOutput("text", TagText)))
	words, _ := graph.NewExecution(nil).Tool("words")

	output, err := words.Invoke(context.Background(), nil)
	if err != nil || output != "abc" {
		testCase.Errorf("expected drained text, got %v (%v)", output, err)
	}
}

func TestTool_ObservedInvocation(testCase *testing.T) {
	observer := newTestObserver()
	graph := searchGraph(testCase, newExecutionTracker())
	search, _ := graph.NewExecution(nil, WithObserver(observer)).Tool("search")

	if _, err := search.Invoke(context.Background(), map[string]any{"query": "x"}); err != nil {
		testCase.Fatalf("invoke: %v", err)
	}
	if !observer.hasSpan("flow.tool.invoke") || observer.counter("aigoflow.tool.invocations") != 1 {
		testCase.Errorf("expected a tool span and counter, got spans %v", observer.spans)
	}
}
