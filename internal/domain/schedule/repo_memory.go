package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is the in-memory Repository used in development mode and tests.
type MemoryRepo struct {
	mu          sync.RWMutex
	rules       map[uuid.UUID]*Rule
	resolutions map[uuid.UUID]*Resolution
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		rules:       make(map[uuid.UUID]*Rule),
		resolutions: make(map[uuid.UUID]*Resolution),
	}
}

func (r *MemoryRepo) SaveRule(_ context.Context, rule *Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *rule
	r.rules[rule.EntityID] = &stored
	return nil
}

func (r *MemoryRepo) GetRule(_ context.Context, entityID uuid.UUID) (*Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[entityID]
	if !ok {
		return nil, ErrRuleNotFound
	}
	copied := *rule
	return &copied, nil
}

func (r *MemoryRepo) ListActiveRules(_ context.Context) ([]*Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Rule
	for _, rule := range r.rules {
		if rule.Active {
			copied := *rule
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *MemoryRepo) SetRuleActive(_ context.Context, entityID uuid.UUID, active bool, notBefore *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[entityID]
	if !ok {
		return ErrRuleNotFound
	}
	rule.Active = active
	if notBefore != nil {
		rule.NotBefore = notBefore
	}
	return nil
}

func (r *MemoryRepo) SaveResolution(_ context.Context, res *Resolution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.resolutions[res.OccurrenceID]; exists {
		return ErrAlreadyResolved
	}
	stored := *res
	r.resolutions[res.OccurrenceID] = &stored
	return nil
}

func (r *MemoryRepo) GetResolution(_ context.Context, occurrenceID uuid.UUID) (*Resolution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resolutions[occurrenceID]
	if !ok {
		return nil, nil
	}
	copied := *res
	return &copied, nil
}

func (r *MemoryRepo) ListResolutionsByEntity(_ context.Context, entityID uuid.UUID) ([]*Resolution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Resolution
	for _, res := range r.resolutions {
		if res.EntityID == entityID {
			copied := *res
			out = append(out, &copied)
		}
	}
	return out, nil
}
