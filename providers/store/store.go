package store

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a document id is unknown.
var ErrNotFound = errors.New("document not found")

// Document is a piece of text with its embedding.
type Document struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// Match is a search hit.
type Match struct {
	Document
	Score float64 `json:"score"`
}

// Store is a document store with vector search.
type Store interface {
	// Put stores documents, assigning ids to those without one, and returns
	// the ids in input order. Existing ids are overwritten.
	Put(ctx context.Context, documents ...Document) ([]string, error)

	// Get returns a document by id, or ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)

	// Search returns up to limit documents ordered by decreasing cosine
	// similarity to embedding. Documents without an embedding are ignored.
	Search(ctx context.Context, embedding []float32, limit int) ([]Match, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	Close() error
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when
// either is a zero vector or their lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for index := range a {
		dot += float64(a[index]) * float64(b[index])
		normA += float64(a[index]) * float64(a[index])
		normB += float64(b[index]) * float64(b[index])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func assignIDs(documents []Document) []string {
	ids := make([]string, len(documents))
	for index := range documents {
		if documents[index].ID == "" {
			documents[index].ID = uuid.NewString()
		}
		ids[index] = documents[index].ID
	}
	return ids
}

// rank scores candidates and keeps the best limit of them. Ties keep
// candidate order.
func rank(candidates []Document, embedding []float32, limit int) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, candidate := range candidates {
		if len(candidate.Embedding) == 0 {
			continue
		}
		matches = append(matches, Match{Document: candidate, Score: CosineSimilarity(candidate.Embedding, embedding)})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
