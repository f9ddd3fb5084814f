// Package store persists documents with their embeddings and answers
// similarity queries over them.
//
// Two implementations are provided: [Memory], a mutex-guarded slice, and
// [Badger], backed by github.com/dgraph-io/badger/v3 (on disk or in memory).
// Documents are encoded with the module's JSON codec and keyed by id.
package store
