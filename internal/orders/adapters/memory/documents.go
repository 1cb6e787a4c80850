package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/navi/orderflow/internal/orders/ports"
)

type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string][]byte)}
}

// Put stores body under name, overwriting any earlier upload. The returned ref
// is the name itself.
func (s *DocumentStore) Put(_ context.Context, name, _ string, body []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[name] = slices.Clone(body)
	return name, nil
}

func (s *DocumentStore) Get(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.docs[ref]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", ports.ErrNotFound, ref)
	}
	return slices.Clone(body), nil
}
