package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"strings"
	"unicode"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/leofalp/aigoflow/core/config"
)

// Embedder converts texts to vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

const defaultEmbeddingModel = string(goopenai.SmallEmbedding3)

// OpenAIEmbedder embeds texts with an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAI creates an embedder targeting the public OpenAI API.
func NewOpenAI(apiKey string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		apiKey:  apiKey,
		baseURL: "https://api.openai.com/v1",
		model:   defaultEmbeddingModel,
	}
}

// FromConfig builds an embedder reading the API key and base URL from the
// given keys and the model from EMBEDDING_MODEL.
func FromConfig(values config.Values, apiKeyName, baseURLName string) *OpenAIEmbedder {
	embedder := NewOpenAI(values.Get(apiKeyName, ""))
	if baseURL, ok := values.Lookup(baseURLName); ok && baseURL != "" {
		embedder.baseURL = baseURL
	}
	if model, ok := values.Lookup(config.KeyEmbeddingModel); ok && model != "" {
		embedder.model = model
	}
	return embedder
}

// WithBaseURL overrides the API base URL (including the /v1 suffix).
func (embedder *OpenAIEmbedder) WithBaseURL(baseURL string) *OpenAIEmbedder {
	embedder.baseURL = baseURL
	return embedder
}

// WithModel sets the embedding model.
func (embedder *OpenAIEmbedder) WithModel(model string) *OpenAIEmbedder {
	embedder.model = model
	return embedder
}

// WithHttpClient sets the HTTP client used for outbound requests.
func (embedder *OpenAIEmbedder) WithHttpClient(httpClient *http.Client) *OpenAIEmbedder {
	embedder.httpClient = httpClient
	return embedder
}

// Embed implements Embedder.
func (embedder *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if embedder.apiKey == "" {
		return nil, fmt.Errorf("API key is not set")
	}

	clientConfig := goopenai.DefaultConfig(embedder.apiKey)
	clientConfig.BaseURL = embedder.baseURL
	if embedder.httpClient != nil {
		clientConfig.HTTPClient = embedder.httpClient
	}
	client := goopenai.NewClientWithConfig(clientConfig)

	response, err := client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Input: texts,
		Model: goopenai.EmbeddingModel(embedder.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(response.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(response.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range response.Data {
		if item.Index < 0 || item.Index >= len(vectors) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// Hashing is a bag-of-words embedder that hashes lowercase words into a
// fixed number of buckets and L2-normalizes the result.
type Hashing struct {
	Dimensions int
}

var _ Embedder = Hashing{}

// NewHashing creates a hashing embedder. Non-positive dimensions default to 256.
func NewHashing(dimensions int) Hashing {
	if dimensions <= 0 {
		dimensions = 256
	}
	return Hashing{Dimensions: dimensions}
}

// Embed implements Embedder. It never fails.
func (hashing Hashing) Embed(_ context.Context, texts []string) ([][]float32, error) {
	dimensions := hashing.Dimensions
	if dimensions <= 0 {
		dimensions = 256
	}

	vectors := make([][]float32, len(texts))
	for position, text := range texts {
		vector := make([]float32, dimensions)
		words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, word := range words {
			hasher := fnv.New32a()
			_, _ = hasher.Write([]byte(word))
			vector[hasher.Sum32()%uint32(dimensions)]++
		}

		var norm float64
		for _, component := range vector {
			norm += float64(component * component)
		}
		if norm > 0 {
			scale := float32(1 / math.Sqrt(norm))
			for index := range vector {
				vector[index] *= scale
			}
		}
		vectors[position] = vector
	}
	return vectors, nil
}
