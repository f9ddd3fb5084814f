package components

import (
	"context"

	"github.com/leofalp/aigoflow/flow"
	"github.com/leofalp/aigoflow/providers/embedding"
)

// Embeddings exposes an embedder on its "embedder" output. Without an
// explicit embedder it resolves one from the run's provider configuration.
type Embeddings struct {
	embedder embedding.Embedder
}

var _ flow.Component = (*Embeddings)(nil)

// NewEmbeddings creates an Embeddings node. embedder may be nil.
func NewEmbeddings(embedder embedding.Embedder) *Embeddings {
	return &Embeddings{embedder: embedder}
}

// Ports implements flow.Component.
func (embeddings *Embeddings) Ports() flow.Ports {
	return flow.Ports{
		Description: "Provides a text embedding client.",
		Outputs: []flow.OutputPort{
			{Name: "embedder", Types: []flow.TypeTag{flow.TagEmbedding}},
		},
	}
}

// Execute implements flow.NodeExecutor.
func (embeddings *Embeddings) Execute(ctx context.Context, input *flow.NodeInput) (*flow.NodeResult, error) {
	var explicit any
	if embeddings.embedder != nil {
		explicit = embeddings.embedder
	}

	embedder, err := flow.ResolveCached(ctx, input, EmbeddingResolver, explicit)
	if err != nil {
		return nil, err
	}
	return flow.NewResult("embedder", embedder), nil
}
