package publish

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// pointerState is the persisted bookkeeping for one mutable pointer: the
// highest sequence this session has ever used, and the last-known CID
// observed from a signature-verified resolve (used as the cached-fallback
// value when the routing layer is unavailable or a resolve's signature
// fails to verify).
type pointerState struct {
	Sequence  int64  `json:"sequence"`
	LastValue string `json:"lastValue"`
}

// Store is the local, persistent per-pointer sequence and last-known-CID
// cache, owned by the session with explicit init/teardown.
// Implementations must be safe for
// concurrent use; callers additionally serialize writes per-pointer via
// the Pipeline's per-pointer mutex.
type Store interface {
	// Get returns the cached state for pointerID, and whether any state
	// has ever been recorded for it.
	Get(pointerID string) (pointerState, bool, error)

	// Put overwrites the cached state for pointerID.
	Put(pointerID string, state pointerState) error

	// Close releases any resources held by the store.
	Close() error
}

// BadgerStore persists pointer state in an embedded Badger database, so
// the sequence cache and last-known CIDs survive process restarts.
type BadgerStore struct {
	db *badger.DB
}

const badgerKeyPrefix = "pointer/"

// OpenBadgerStore opens (creating if necessary) a Badger database at dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("publish: failed to open pointer store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(pointerID string) []byte {
	return []byte(badgerKeyPrefix + pointerID)
}

// Get implements Store.
func (s *BadgerStore) Get(pointerID string) (pointerState, bool, error) {
	var state pointerState
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(pointerID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if err != nil {
		return pointerState{}, false, fmt.Errorf("publish: failed to read pointer state: %w", err)
	}
	return state, found, nil
}

// Put implements Store.
func (s *BadgerStore) Put(pointerID string, state pointerState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("publish: failed to encode pointer state: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(pointerID), data)
	})
	if err != nil {
		return fmt.Errorf("publish: failed to write pointer state: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BadgerStore)(nil)

// MemStore is an in-memory Store, used by tests and by short-lived
// sessions (e.g. a CLI invocation) that don't want a database file on
// disk.
type MemStore struct {
	states map[string]pointerState
}

// NewMemStore creates an empty in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{states: make(map[string]pointerState)}
}

// Get implements Store.
func (s *MemStore) Get(pointerID string) (pointerState, bool, error) {
	state, ok := s.states[pointerID]
	return state, ok, nil
}

// Put implements Store.
func (s *MemStore) Put(pointerID string, state pointerState) error {
	s.states[pointerID] = state
	return nil
}

// Close implements Store.
func (s *MemStore) Close() error { return nil }

var _ Store = (*MemStore)(nil)
