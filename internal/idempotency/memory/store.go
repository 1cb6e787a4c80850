package memory

import (
	"context"
	"sync"
	"time"

	"github.com/navi/orderflow/internal/orders/ports"
)

const defaultReservationTTL = 2 * time.Minute

type scopedKey struct {
	userID string
	key    string
}

type entry struct {
	response   *ports.StoredResponse
	reservedAt time.Time
}

// Store retains create-order responses so a resubmitted request replays the
// first result instead of authorizing a second payment.
type Store struct {
	mu    sync.Mutex
	items map[scopedKey]entry
	ttl   time.Duration
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		items: make(map[scopedKey]entry),
		ttl:   defaultReservationTTL,
		now:   time.Now,
	}
}

// Reserve claims key for the caller, or returns the response already saved
// under it.
func (s *Store) Reserve(_ context.Context, userID, key string) (*ports.StoredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := scopedKey{userID, key}
	now := s.now()
	if e, ok := s.items[k]; ok {
		if e.response != nil {
			return clone(*e.response), nil
		}
		if now.Sub(e.reservedAt) < s.ttl {
			return nil, ports.ErrIdempotencyKeyInUse
		}
	}
	s.items[k] = entry{reservedAt: now}
	return nil, nil
}

// Get returns nil when the caller has no completed response under key.
func (s *Store) Get(_ context.Context, userID, key string) (*ports.StoredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[scopedKey{userID, key}]
	if !ok || e.response == nil {
		return nil, nil
	}
	return clone(*e.response), nil
}

// Save keeps the first response recorded for a key.
func (s *Store) Save(_ context.Context, userID, key string, response ports.StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := scopedKey{userID, key}
	if e, ok := s.items[k]; ok && e.response != nil {
		return nil
	}
	s.items[k] = entry{response: clone(response), reservedAt: s.now()}
	return nil
}

// Release drops a reservation that never produced a response.
func (s *Store) Release(_ context.Context, userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := scopedKey{userID, key}
	if e, ok := s.items[k]; ok && e.response == nil {
		delete(s.items, k)
	}
	return nil
}

func clone(r ports.StoredResponse) *ports.StoredResponse {
	r.Body = append([]byte(nil), r.Body...)
	return &r
}
