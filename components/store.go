package components

import (
	"context"
	"fmt"
	"strings"

	"github.com/leofalp/aigoflow/flow"
	"github.com/leofalp/aigoflow/internal/jsonschema"
	"github.com/leofalp/aigoflow/providers/ai"
	"github.com/leofalp/aigoflow/providers/embedding"
	"github.com/leofalp/aigoflow/providers/store"
)

// DefaultSearchLimit is the number of matches Search returns by default.
const DefaultSearchLimit = 3

// StoreDocuments embeds its "content" values and writes them to a store.
// Its "result" output is an ai.ToolResult; empty content is reported as a
// no_content failure instead of an error.
type StoreDocuments struct {
	store store.Store
}

var _ flow.Component = (*StoreDocuments)(nil)

// NewStoreDocuments creates a StoreDocuments node writing to documentStore.
func NewStoreDocuments(documentStore store.Store) *StoreDocuments {
	return &StoreDocuments{store: documentStore}
}

// Ports implements flow.Component.
func (storeDocuments *StoreDocuments) Ports() flow.Ports {
	return flow.Ports{
		Description: "Stores texts in the document store so they can be searched later.",
		Inputs: []flow.InputPort{
			{Name: "content", Types: []flow.TypeTag{flow.TagText, flow.TagData}, Required: true, ToolEligible: true, Multi: true, Description: "Texts to store."},
			{Name: "embedder", Types: []flow.TypeTag{flow.TagEmbedding}},
		},
		Outputs: []flow.OutputPort{
			{Name: "result", Types: []flow.TypeTag{flow.TagData}},
		},
	}
}

// Execute implements flow.NodeExecutor.
func (storeDocuments *StoreDocuments) Execute(ctx context.Context, input *flow.NodeInput) (*flow.NodeResult, error) {
	texts := contentTexts(input.Inputs.Values("content"))
	if len(texts) == 0 {
		return flow.NewResult("result", ai.NewToolResultError(ai.ToolErrorNoContent, "there is no content to store")), nil
	}

	embedder, err := flow.ResolveCached(ctx, input, EmbeddingResolver, input.Inputs.Value("embedder"))
	if err != nil {
		return nil, err
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding content: %w", err)
	}

	documents := make([]store.Document, len(texts))
	for index, text := range texts {
		documents[index] = store.Document{
			Content:   text,
			Metadata:  map[string]any{"source_node": input.NodeID, "run_id": input.Execution().RunID()},
			Embedding: vectors[index],
		}
	}

	ids, err := storeDocuments.store.Put(ctx, documents...)
	if err != nil {
		return nil, fmt.Errorf("storing documents: %w", err)
	}
	return flow.NewResult("result", ai.NewToolResultSuccess(map[string]any{"ids": ids, "stored": len(ids)})), nil
}

// contentTexts flattens content values into non-blank texts.
func contentTexts(values []any) []string {
	texts := make([]string, 0, len(values))
	for _, value := range values {
		switch typed := value.(type) {
		case nil:
		case string:
			if strings.TrimSpace(typed) != "" {
				texts = append(texts, typed)
			}
		case []any:
			texts = append(texts, contentTexts(typed)...)
		case []string:
			for _, text := range typed {
				if strings.TrimSpace(text) != "" {
					texts = append(texts, text)
				}
			}
		default:
			texts = append(texts, fmt.Sprint(typed))
		}
	}
	return texts
}

// Search finds the stored documents closest to a query. Its "results" output
// is a readable list, also returned when the node is invoked as a tool, and
// "matches" carries the raw store.Match values.
type Search struct {
	store store.Store
}

var _ flow.Component = (*Search)(nil)

// NewSearch creates a Search node reading from documentStore.
func NewSearch(documentStore store.Store) *Search {
	return &Search{store: documentStore}
}

// Ports implements flow.Component.
func (search *Search) Ports() flow.Ports {
	return flow.Ports{
		Description: "Searches the document store for texts related to a query.",
		Inputs: []flow.InputPort{
			{Name: "query", Types: []flow.TypeTag{flow.TagText, flow.TagMessage}, Required: true, ToolEligible: true, Description: "What to search for."},
			{Name: "limit", Types: []flow.TypeTag{flow.TagData}, ToolEligible: true, Default: DefaultSearchLimit, SchemaType: jsonschema.TypeInteger, Description: "Maximum number of results."},
			{Name: "embedder", Types: []flow.TypeTag{flow.TagEmbedding}},
		},
		Outputs: []flow.OutputPort{
			{Name: "results", Types: []flow.TypeTag{flow.TagText}},
			{Name: "matches", Types: []flow.TypeTag{flow.TagData}},
		},
		ToolOutput: "results",
	}
}

// Execute implements flow.NodeExecutor.
func (search *Search) Execute(ctx context.Context, input *flow.NodeInput) (*flow.NodeResult, error) {
	query := strings.TrimSpace(input.Inputs.String("query"))
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}

	embedder, err := flow.ResolveCached(ctx, input, EmbeddingResolver, input.Inputs.Value("embedder"))
	if err != nil {
		return nil, err
	}
	matches, err := searchStore(ctx, search.store, embedder, query, input.Inputs.Int("limit", DefaultSearchLimit))
	if err != nil {
		return nil, err
	}

	return &flow.NodeResult{
		Outputs: map[string]any{
			"results": formatMatches(matches),
			"matches": matches,
		},
		Metadata: map[string]any{"match_count": len(matches)},
	}, nil
}

func searchStore(ctx context.Context, documentStore store.Store, embedder embedding.Embedder, query string, limit int) ([]store.Match, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	vectors, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected one query embedding, got %d", len(vectors))
	}

	matches, err := documentStore.Search(ctx, vectors[0], limit)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	return matches, nil
}

func formatMatches(matches []store.Match) string {
	if len(matches) == 0 {
		return "No documents matched the query."
	}

	var builder strings.Builder
	for index, match := range matches {
		if index > 0 {
			builder.WriteString("\n")
		}
		fmt.Fprintf(&builder, "%d. %s (score %.2f)", index+1, match.Content, match.Score)
	}
	return builder.String()
}
