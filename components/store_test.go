package components

import (
	"context"
	"strings"
	"testing"

	"github.com/leofalp/aigoflow/flow"
	"github.com/leofalp/aigoflow/providers/ai"
	"github.com/leofalp/aigoflow/providers/embedding"
	"github.com/leofalp/aigoflow/providers/store"
)

func TestStoreDocuments_ThenSearch(testCase *testing.T) {
	hashing := embedding.NewHashing(64)
	documents := store.NewMemory()

	ingest := mustBuild(testCase, flow.NewGraphBuilder().
		AddComponent("first", NewInput()).
		AddComponent("second", NewInput(), flow.WithNodeConfig(map[string]any{"value": "Sourdough bread rises slowly"})).
		AddComponent("embeddings", NewEmbeddings(hashing)).
		AddComponent("ingest", NewStoreDocuments(documents)).
		AddEdge("first", "text", "ingest", "content").
		AddEdge("second", "text", "ingest", "content").
		AddEdge("embeddings", "embedder", "ingest", "embedder"))

	result := mustRun(testCase, ingest, "Goroutines are cheap threads")
	stored, ok := result.Output.(ai.ToolResult)
	if !ok || !stored.Success {
		testCase.Fatalf("expected a successful tool result, got %#v", result.Output)
	}
	if count, _ := documents.Count(context.Background()); count != 2 {
		testCase.Fatalf("expected two stored documents, got %d", count)
	}

	search := mustBuild(testCase, flow.NewGraphBuilder().
		AddComponent("query", NewInput()).
		AddComponent("embeddings", NewEmbeddings(hashing)).
		AddComponent("search", NewSearch(documents), flow.WithNodeConfig(map[string]any{"limit": 1})).
		AddEdge("query", "text", "search", "query").
		AddEdge("embeddings", "embedder", "search", "embedder"),
	)

	found := mustRun(testCase, search, "bread")
	text, _ := found.Output.(string)
	if !strings.HasPrefix(text, "1. Sourdough bread rises slowly") || strings.Contains(text, "Goroutines") {
		testCase.Errorf("unexpected search results %q", text)
	}

	record := assertState(testCase, found, "search", flow.StateCompleted)
	matches, _ := record.Result.Output("matches")
	if typed, ok := matches.([]store.Match); !ok || len(typed) != 1 {
		testCase.Errorf("expected one raw match, got %#v", matches)
	}
}

func TestStoreDocuments_EmptyContentIsDomainFailure(testCase *testing.T) {
	graph := mustBuild(testCase, flow.NewGraphBuilder().
		AddComponent("ingest", NewStoreDocuments(store.NewMemory()),
			flow.WithNodeConfig(map[string]any{"content": "   "})))

	result := mustRun(testCase, graph, nil)
	if result.Status != flow.RunSucceeded {
		testCase.Fatalf("domain failures must not fail the node, got %s", result.Status)
	}
	payload, ok := result.Output.(ai.ToolResult)
	if !ok || payload.Success || payload.Error != ai.ToolErrorNoContent {
		testCase.Errorf("expected a no_content payload, got %#v", result.Output)
	}
}

func TestStoreDocuments_AsTool(testCase *testing.T) {
	documents := store.NewMemory()
	graph := mustBuild(testCase, flow.NewGraphBuilder().
		AddComponent("embeddings", NewEmbeddings(embedding.NewHashing(16))).
		AddComponent("remember", NewStoreDocuments(documents), flow.WithNodeConfig(map[string]any{"content": "seed"})).
		AddEdge("embeddings", "embedder", "remember", "embedder"))

	result := mustRun(testCase, graph, nil)
	remember, err := result.Execution.Tool("remember")
	if err != nil {
		testCase.Fatalf("tool: %v", err)
	}

	parameters := remember.ToolInfo().Parameters
	if content := parameters.Properties["content"]; content == nil || content.Type != "array" {
		testCase.Errorf("expected content to be advertised as an array, got %+v", content)
	}

	payload, err := remember.Call(context.Background(), `{"content": ["alpha", "beta"]}`)
	if err != nil {
		testCase.Fatalf("call: %v", err)
	}
	if !strings.Contains(payload, `"success":true`) || !strings.Contains(payload, `"stored":2`) {
		testCase.Errorf("unexpected payload %s", payload)
	}
	if count, _ := documents.Count(context.Background()); count != 3 {
		testCase.Errorf("expected the seed and two tool documents, got %d", count)
	}
}

func TestSearch_EmptyStore(testCase *testing.T) {
	graph := mustBuild(testCase, flow.NewGraphBuilder().
		AddComponent("search", NewSearch(store.NewMemory()), flow.WithNodeConfig(map[string]any{"query": "anything"})).
		AddComponent("embeddings", NewEmbeddings(embedding.NewHashing(16))).
		AddEdge("embeddings", "embedder", "search", "embedder"))

	result := mustRun(testCase, graph, nil)
	if result.Output != "No documents matched the query." {
		testCase.Errorf("unexpected output %v", result.Output)
	}
}
