package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/leofalp/aigoflow/internal/jsonx"
)

const documentPrefix = "doc:"

// Badger is a Store persisted in a badger key-value database.
type Badger struct {
	db *badger.DB
}

var _ Store = (*Badger)(nil)

// OpenBadger opens (or creates) a store in directory.
func OpenBadger(directory string) (*Badger, error) {
	return openBadger(badger.DefaultOptions(directory).WithLoggingLevel(badger.ERROR))
}

// OpenBadgerInMemory opens a store that lives only as long as the process.
func OpenBadgerInMemory() (*Badger, error) {
	return openBadger(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
}

func openBadger(options badger.Options) (*Badger, error) {
	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("opening badger store: %w", err)
	}
	return &Badger{db: db}, nil
}

func documentKey(id string) []byte {
	return []byte(documentPrefix + id)
}

func (store *Badger) Put(ctx context.Context, documents ...Document) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	documents = append([]Document(nil), documents...)
	ids := assignIDs(documents)

	err := store.db.Update(func(txn *badger.Txn) error {
		for _, document := range documents {
			encoded, err := jsonx.Marshal(document)
			if err != nil {
				return fmt.Errorf("encoding document %s: %w", document.ID, err)
			}
			if err := txn.Set(documentKey(document.ID), encoded); err != nil {
				return fmt.Errorf("writing document %s: %w", document.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (store *Badger) Get(_ context.Context, id string) (Document, error) {
	var document Document
	err := store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(documentKey(id))
		if err != nil {
			return err
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return jsonx.Unmarshal(value, &document)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("reading document %s: %w", id, err)
	}
	return document, nil
}

func (store *Badger) Search(ctx context.Context, embedding []float32, limit int) ([]Match, error) {
	var candidates []Document
	err := store.scan(ctx, func(document Document) {
		candidates = append(candidates, document)
	})
	if err != nil {
		return nil, err
	}
	return rank(candidates, embedding, limit), nil
}

func (store *Badger) Count(ctx context.Context) (int, error) {
	count := 0
	err := store.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		iterator := txn.NewIterator(options)
		defer iterator.Close()

		prefix := []byte(documentPrefix)
		for iterator.Seek(prefix); iterator.ValidForPrefix(prefix); iterator.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

func (store *Badger) Close() error {
	return store.db.Close()
}

func (store *Badger) scan(ctx context.Context, visit func(Document)) error {
	return store.db.View(func(txn *badger.Txn) error {
		iterator := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iterator.Close()

		prefix := []byte(documentPrefix)
		for iterator.Seek(prefix); iterator.ValidForPrefix(prefix); iterator.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			value, err := iterator.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			var document Document
			if err := jsonx.Unmarshal(value, &document); err != nil {
				return fmt.Errorf("decoding %s: %w", iterator.Item().Key(), err)
			}
			visit(document)
		}
		return nil
	})
}
