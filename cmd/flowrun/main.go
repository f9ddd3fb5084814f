// Command flowrun indexes a small corpus into a document store and answers a
// question over it with a flow graph.
//
// With -offline the flow uses a local hashing embedder and returns the search
// results directly. Otherwise an agent answers the question, calling the
// search node as a tool; the chat and embedding providers are resolved from
// the .env file (an INFERENCE_API_* endpoint, OPENAI_API_KEY or, for chat
// only, ANTHROPIC_API_KEY).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/leofalp/aigoflow/components"
	"github.com/leofalp/aigoflow/core/config"
	"github.com/leofalp/aigoflow/flow"
	"github.com/leofalp/aigoflow/providers/ai/middleware"
	"github.com/leofalp/aigoflow/providers/embedding"
	"github.com/leofalp/aigoflow/providers/observability"
	"github.com/leofalp/aigoflow/providers/observability/slogobs"
	"github.com/leofalp/aigoflow/providers/store"
)

var corpus = []string{
	"Goroutines are lightweight threads managed by the Go runtime.",
	"Channels let goroutines communicate by passing values.",
	"A context carries deadlines and cancellation signals across API boundaries.",
	"Sourdough bread is leavened with a fermented starter instead of yeast.",
}

func main() {
	envFile := flag.String("env", ".env", "dotenv file holding provider configuration")
	dataDir := flag.String("data", "", "badger directory for the document store (in memory when empty)")
	question := flag.String("question", "How do goroutines communicate?", "question to answer")
	offline := flag.Bool("offline", false, "search only, with a local embedder and no chat model")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall run timeout")
	flag.Parse()

	values, err := config.Load(*envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Fatalf("loading configuration: %v", err)
		}
		values = config.Values{}
	}

	observer := slogobs.New(slogobs.WithConfig(values))

	documents, err := openStore(*dataDir)
	if err != nil {
		log.Fatalf("opening document store: %v", err)
	}
	defer func() {
		if err := documents.Close(); err != nil {
			log.Printf("closing document store: %v", err)
		}
	}()

	var embedder embedding.Embedder
	if *offline {
		embedder = embedding.NewHashing(256)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	runOpts := []flow.RunOption{
		flow.WithProviderConfig(values),
		flow.WithObserver(observer),
		flow.WithDefaultNodeTimeout(time.Minute),
	}

	if err := index(ctx, documents, embedder, runOpts); err != nil {
		log.Fatalf("indexing corpus: %v", err)
	}

	graph, err := answerGraph(documents, embedder, observer, *offline)
	if err != nil {
		log.Fatalf("building flow: %v", err)
	}

	result, err := graph.Run(ctx, *question, runOpts...)
	if err != nil {
		log.Fatalf("running flow: %v", err)
	}

	fmt.Printf("run %s %s in %s\n\n", result.RunID, result.Status, result.Duration.Round(time.Millisecond))
	if result.Status != flow.RunSucceeded {
		fmt.Fprintln(os.Stderr, result.Err())
	}
	fmt.Println(result.Output)
	for _, invocation := range result.Execution.Invocations() {
		fmt.Printf("\ntool %s (depth %d) took %s\n", invocation.Tool, invocation.Depth, invocation.Duration.Round(time.Millisecond))
	}
	if result.Status == flow.RunFailed {
		os.Exit(1)
	}
}

func openStore(directory string) (store.Store, error) {
	if directory == "" {
		return store.OpenBadgerInMemory()
	}
	return store.OpenBadger(directory)
}

// index stores the corpus unless the store already holds documents.
func index(ctx context.Context, documents store.Store, embedder embedding.Embedder, runOpts []flow.RunOption) error {
	count, err := documents.Count(ctx)
	if err != nil || count > 0 {
		return err
	}

	graph, err := flow.NewGraphBuilder().
		AddComponent("corpus", components.NewInput()).
		AddComponent("embeddings", components.NewEmbeddings(embedder)).
		AddComponent("ingest", components.NewStoreDocuments(documents)).
		AddEdge("corpus", "text", "ingest", "content").
		AddEdge("embeddings", "embedder", "ingest", "embedder").
		Build()
	if err != nil {
		return err
	}

	result, err := graph.Run(ctx, corpus, runOpts...)
	if err != nil {
		return err
	}
	return result.Err()
}

func answerGraph(documents store.Store, embedder embedding.Embedder, logger observability.Logger, offline bool) (*flow.Graph, error) {
	builder := flow.NewGraphBuilder().
		AddComponent("question", components.NewInput()).
		AddComponent("embeddings", components.NewEmbeddings(embedder)).
		AddComponent("search", components.NewSearch(documents),
			flow.WithToolDescription("Searches the knowledge base and returns the most relevant passages.")).
		AddEdge("embeddings", "embedder", "search", "embedder")

	if offline {
		return builder.
			AddComponent("answer", components.NewOutput()).
			AddEdge("question", "text", "search", "query").
			AddEdge("search", "results", "answer", "value").
			Build()
	}

	return builder.
		AddComponent("model", components.NewChatModel(nil, components.WithMiddleware(
			middleware.NewTimeout(45*time.Second),
			middleware.NewLogging(logger, middleware.LogLevelStandard),
		))).
		AddComponent("agent", components.NewAgent(), flow.WithNodeConfig(map[string]any{
			"system_prompt":  "Answer using only the knowledge base. Search it before answering.",
			"max_iterations": 5,
		})).
		AddComponent("answer", components.NewOutput()).
		AddEdge("model", "model", "agent", "model").
		AddEdge("search", flow.ToolPort, "agent", "tools").
		AddEdge("question", "text", "agent", "input").
		AddEdge("agent", "response", "answer", "value").
		Build()
}
