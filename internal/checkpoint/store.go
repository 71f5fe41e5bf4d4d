// Package checkpoint persists generator progress and completed-fingerprint
// claims in a local badger database. Losing this state silently would lose
// resumability, so writes are synchronous and write failures are treated as
// fatal by the caller.
package checkpoint

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

const (
	cursorKey   = "cursors"
	claimPrefix = "fp/"
)

// Store wraps the badger database.
type Store struct {
	db  *badger.DB
	log *logrus.Logger
}

// OpenStore opens (or creates) the checkpoint database at dir.
func OpenStore(dir string, log *logrus.Logger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	// Cursor durability is the whole point of this store.
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint store: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutCursors durably writes the cursor snapshot blob.
func (s *Store) PutCursors(blob []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(cursorKey), blob)
	})
	if err != nil {
		return fmt.Errorf("writing cursor snapshot: %w", err)
	}
	return nil
}

// GetCursors returns the last cursor snapshot, or nil on first run.
func (s *Store) GetCursors() ([]byte, error) {
	var blob []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cursorKey))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cursor snapshot: %w", err)
	}
	return blob, nil
}

// MarkDone records a completed fingerprint. Reports whether this call was
// the first writer.
func (s *Store) MarkDone(fp string) (bool, error) {
	first := false
	err := s.db.Update(func(txn *badger.Txn) error {
		key := []byte(claimPrefix + fp)
		_, err := txn.Get(key)
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		first = true
		return txn.Set(key, nil)
	})
	if err != nil {
		return false, fmt.Errorf("marking fingerprint done: %w", err)
	}
	return first, nil
}

// IsDone reports whether fp was completed by any run.
func (s *Store) IsDone(fp string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(claimPrefix + fp))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking fingerprint: %w", err)
	}
	return true, nil
}

// EachDone visits every completed fingerprint.
func (s *Store) EachDone(fn func(fp string) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(claimPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			key := it.Item().Key()
			if err := fn(string(key[len(claimPrefix):])); err != nil {
				return err
			}
		}
		return nil
	})
}
