// Package blobstore keeps uploaded attachment bytes in an in-memory Badger
// database. Nothing is written to disk.
package blobstore

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when a key has no stored blob.
var ErrNotFound = errors.New("blob not found")

// Store wraps an in-memory Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Key builds the storage key of the n-th attachment stored for a draft in
// upload generation gen. Keys are never reused across generations.
func Key(sessionID, draftID string, gen uint64, n int) []byte {
	return fmt.Appendf(nil, "%s/%s/%d/%d", sessionID, draftID, gen, n)
}

// GenerationPrefix is the key prefix of one upload generation of a draft.
func GenerationPrefix(sessionID, draftID string, gen uint64) []byte {
	return fmt.Appendf(nil, "%s/%s/%d/", sessionID, draftID, gen)
}

// DraftPrefix is the key prefix shared by every attachment of a draft.
func DraftPrefix(sessionID, draftID string) []byte {
	return []byte(sessionID + "/" + draftID + "/")
}

// SessionPrefix is the key prefix shared by every attachment of a session.
func SessionPrefix(sessionID string) []byte {
	return []byte(sessionID + "/")
}

// New opens an in-memory store.
func New(logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil // Disable Badger's internal logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("In-memory blob store opened")
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the database and everything held in it.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing blob store")
	}
	return s.db.Close()
}

// Shutdown implements do.Shutdowner.
func (s *Store) Shutdown() error {
	return s.Close()
}

// Put stores data under key, replacing any previous value.
func (s *Store) Put(key, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// Get returns a copy of the blob stored under key.
func (s *Store) Get(key []byte) ([]byte, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return data, nil
}

// Delete removes a single key. Deleting a missing key is not an error.
func (s *Store) Delete(key []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// DropPrefix removes every key starting with prefix.
func (s *Store) DropPrefix(prefix []byte) error {
	if err := s.db.DropPrefix(prefix); err != nil {
		return fmt.Errorf("drop prefix %s: %w", prefix, err)
	}
	return nil
}

// Count returns the number of keys under prefix.
func (s *Store) Count(prefix []byte) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
