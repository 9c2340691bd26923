package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"escrowd/storage"
)

// Manager provides typed, RLP-encoded accessors over the raw key-value store.
// It is the single owner of the engine's durable state: escrow records, the
// platform configuration singleton, the collected-fee ledger and the asset
// balance ledger.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// kvPut stores the provided value under the supplied logical key using RLP
// encoding. The key is hashed with keccak256 before it reaches the store.
func (m *Manager) kvPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("state: key must not be empty")
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(hashKey(key), encoded)
}

// kvGet retrieves the value stored under the supplied logical key and decodes
// it into the provided destination. The boolean return reports whether the
// key existed.
func (m *Manager) kvGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("state: key must not be empty")
	}
	data, err := m.db.Get(hashKey(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}
