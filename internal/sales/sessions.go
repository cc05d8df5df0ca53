package sales

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Sessions keeps the open checkouts of the till. Carts are ephemeral and are
// never persisted.
type Sessions struct {
	catalog CatalogReader

	mu   sync.Mutex
	byID map[string]*Checkout
}

func NewSessions(catalog CatalogReader) *Sessions {
	return &Sessions{catalog: catalog, byID: map[string]*Checkout{}}
}

func (s *Sessions) Open() *Checkout {
	c := NewCheckout(uuid.NewString(), s.catalog)
	s.mu.Lock()
	s.byID[c.ID] = c
	s.mu.Unlock()
	return c
}

func (s *Sessions) Get(id string) (*Checkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return c, nil
}

// Close abandons a checkout and drops its cart.
func (s *Sessions) Close(id string) {
	s.mu.Lock()
	delete(s.byID, id)
	s.mu.Unlock()
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
