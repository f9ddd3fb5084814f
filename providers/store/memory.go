package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store.
type Memory struct {
	mu        sync.RWMutex
	documents []Document
	index     map[string]int
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{index: make(map[string]int)}
}

func (memory *Memory) Put(_ context.Context, documents ...Document) ([]string, error) {
	documents = append([]Document(nil), documents...)
	ids := assignIDs(documents)

	memory.mu.Lock()
	defer memory.mu.Unlock()
	for _, document := range documents {
		if position, exists := memory.index[document.ID]; exists {
			memory.documents[position] = document
			continue
		}
		memory.index[document.ID] = len(memory.documents)
		memory.documents = append(memory.documents, document)
	}
	return ids, nil
}

func (memory *Memory) Get(_ context.Context, id string) (Document, error) {
	memory.mu.RLock()
	defer memory.mu.RUnlock()
	position, exists := memory.index[id]
	if !exists {
		return Document{}, ErrNotFound
	}
	return memory.documents[position], nil
}

func (memory *Memory) Search(_ context.Context, embedding []float32, limit int) ([]Match, error) {
	memory.mu.RLock()
	snapshot := append([]Document(nil), memory.documents...)
	memory.mu.RUnlock()
	return rank(snapshot, embedding, limit), nil
}

func (memory *Memory) Count(context.Context) (int, error) {
	memory.mu.RLock()
	defer memory.mu.RUnlock()
	return len(memory.documents), nil
}

func (memory *Memory) Close() error {
	return nil
}
