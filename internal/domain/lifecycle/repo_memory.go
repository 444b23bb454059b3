package lifecycle

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is the in-memory Repository used in development mode and tests.
type MemoryRepo struct {
	mu       sync.RWMutex
	entities map[uuid.UUID]*Entity
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{entities: make(map[uuid.UUID]*Entity)}
}

func (r *MemoryRepo) Create(_ context.Context, e *Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *e
	r.entities[e.ID] = &stored
	return nil
}

func (r *MemoryRepo) Get(_ context.Context, id uuid.UUID) (*Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *MemoryRepo) UpdateState(_ context.Context, id uuid.UUID, state State, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[id]
	if !ok {
		return ErrNotFound
	}
	e.State = state
	e.UpdatedAt = updatedAt
	return nil
}

func (r *MemoryRepo) List(_ context.Context, filter ListFilter) ([]*Entity, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Entity
	for _, e := range r.entities {
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if filter.State != "" && e.State != filter.State {
			continue
		}
		if filter.PatientID != uuid.Nil && e.PatientID != filter.PatientID {
			continue
		}
		copied := *e
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	if filter.Offset >= total {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}
