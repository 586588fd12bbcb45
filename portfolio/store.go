package portfolio

import (
	"context"
	"sync"
)

// Store persists positions. Save must write all positions or none.
type Store interface {
	Load(ctx context.Context, symbol string) ([]Position, error)
	List(ctx context.Context) ([]Position, error)
	Save(ctx context.Context, positions ...Position) error
}

// MemoryStore keeps positions in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]Position
	order []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Position)}
}

func (s *MemoryStore) Load(ctx context.Context, symbol string) ([]Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Position
	for _, id := range s.order {
		if p := s.byID[id]; p.Symbol == symbol {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Position, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, positions ...Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range positions {
		if _, ok := s.byID[p.ID]; !ok {
			s.order = append(s.order, p.ID)
		}
		s.byID[p.ID] = p
	}
	return nil
}
