package artifacts

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// HandleStore persists operation resume tokens under short ids so that a
// later process can resume observing an operation. It never stores artifacts.
type HandleStore interface {
	Save(ctx context.Context, id, token string) error
	Load(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// HandleStoreType represents the type of handle store backend.
type HandleStoreType string

const (
	// HandleStoreMemory keeps handles for the lifetime of the process.
	HandleStoreMemory HandleStoreType = "memory"

	// HandleStoreNATS keeps handles in a NATS JetStream key-value bucket.
	HandleStoreNATS HandleStoreType = "nats"
)

// HandleStoreConfig configures a handle store backend.
type HandleStoreConfig struct {
	// Type is the handle store backend type
	Type HandleStoreType

	// NATS KV configuration
	NATS *NATSKVConfig
}

// NewHandleStoreFromConfig creates a handle store from configuration.
func NewHandleStoreFromConfig(ctx context.Context, config *HandleStoreConfig) (HandleStore, error) {
	if config == nil {
		return NewMemoryHandleStore(), nil
	}

	switch config.Type {
	case HandleStoreMemory, "":
		return NewMemoryHandleStore(), nil

	case HandleStoreNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		store, err := NewNATSHandleStore(ctx, config.NATS)
		if err != nil {
			return nil, err
		}

		return store, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedHandleStore, config.Type)
	}
}

// NewHandleID returns a fresh id for a stored handle.
func NewHandleID() string {
	return uuid.NewString()
}

// MemoryHandleStore is an in-process HandleStore.
type MemoryHandleStore struct {
	mu      sync.RWMutex
	handles map[string]string
}

// NewMemoryHandleStore creates an empty in-memory store.
func NewMemoryHandleStore() *MemoryHandleStore {
	return &MemoryHandleStore{handles: make(map[string]string)}
}

// Save implements HandleStore.
func (s *MemoryHandleStore) Save(ctx context.Context, id, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.handles[id] = token

	return nil
}

// Load implements HandleStore.
func (s *MemoryHandleStore) Load(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	token, ok := s.handles[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrHandleNotFound, id)
	}

	return token, nil
}

// Delete implements HandleStore.
func (s *MemoryHandleStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.handles, id)

	return nil
}

// Close implements HandleStore.
func (s *MemoryHandleStore) Close() error {
	return nil
}
