package auditlog

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepo is the in-memory Repository used in development mode and tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	seq    int64
	events map[uuid.UUID][]*Event
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{events: make(map[uuid.UUID][]*Event)}
}

func (r *MemoryRepo) Append(_ context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.seq++
	e.Seq = r.seq
	stored := *e
	r.events[e.EntityID] = append(r.events[e.EntityID], &stored)
	return nil
}

func (r *MemoryRepo) ListByEntity(_ context.Context, entityID uuid.UUID) ([]*Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.events[entityID]
	out := make([]*Event, len(src))
	for i, e := range src {
		copied := *e
		out[i] = &copied
	}
	return out, nil
}
