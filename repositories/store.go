package repositories

import (
	"context"
	"estate-match/errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// Store runs read-write transactions against BadgerDB.
// Badger transactions are serializable snapshot isolated: a commit fails with
// badger.ErrConflict when a key read by the transaction was written by another
// one in the meantime. Update replays the whole closure in that case, which is
// how uniqueness and quota checks stay correct under concurrent requests.
type Store struct {
	db         *badger.DB
	log        *slog.Logger
	maxRetries int
}

func NewStore(db *badger.DB, log *slog.Logger, maxRetries int) *Store {
	return &Store{db: db, log: log, maxRetries: maxRetries}
}

// Update executes fn in a read-write transaction, retrying on conflict.
// fn must be free of side effects outside the transaction since it can run several times.
func (s *Store) Update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debug("Transaction conflict, retrying", "attempt", attempt+1)
	}
	return errors.ErrTxConflict
}

func (s *Store) View(fn func(txn *badger.Txn) error) error {
	return s.db.View(fn)
}

func put(txn *badger.Txn, key string, v any) error {
	data, err := encode(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	return txn.Set([]byte(key), data)
}

// get loads key into v, mapping a missing key to errors.ErrNotFound.
func get(txn *badger.Txn, key string, v any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%s: %w", key, errors.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return decode(val, v)
	})
}

// exists also registers the key in the transaction read set.
func exists(txn *badger.Txn, key string) (bool, error) {
	_, err := txn.Get([]byte(key))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

func getString(txn *badger.Txn, key string) (string, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", fmt.Errorf("%s: %w", key, errors.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	return string(val), err
}

// scanPrefix calls fn with every key/value under prefix, in key order.
func scanPrefix(txn *badger.Txn, prefix string, fn func(key string, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		item := it.Item()
		key := string(item.KeyCopy(nil))
		err := item.Value(func(val []byte) error {
			return fn(key, val)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// scanKeys collects keys only, without loading values.
func scanKeys(txn *badger.Txn, prefix string) ([]string, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()
	var keys []string
	p := []byte(prefix)
	for it.Seek(p); it.ValidForPrefix(p); it.Next() {
		keys = append(keys, string(it.Item().KeyCopy(nil)))
	}
	return keys, nil
}
