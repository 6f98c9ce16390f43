package memory

import (
	"context"
	"sync"

	"github.com/dvir/roombill-client/internal/store"
)

// Store is an in-memory implementation of both store tiers. It backs unit
// tests and the demo client, where nothing needs to survive a restart.
type Store struct {
	mu      sync.RWMutex
	secrets map[string]string
	blobs   map[string][]byte
}

var (
	_ store.SecureStore  = (*Store)(nil)
	_ store.GeneralStore = generalView{}
)

func New() *Store {
	return &Store{
		secrets: make(map[string]string),
		blobs:   make(map[string][]byte),
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.secrets[key], nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[key] = value
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, key)
	return nil
}

// Blobs returns a GeneralStore view over the same instance.
func (s *Store) Blobs() store.GeneralStore { return generalView{s} }

type generalView struct{ s *Store }

func (v generalView) Get(ctx context.Context, key string) ([]byte, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	b, ok := v.s.blobs[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (v generalView) Set(ctx context.Context, key string, value []byte) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	b := make([]byte, len(value))
	copy(b, value)
	v.s.blobs[key] = b
	return nil
}

func (v generalView) Remove(ctx context.Context, key string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	delete(v.s.blobs, key)
	return nil
}
