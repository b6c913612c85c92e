package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"bloodbank/internal/stock/models"
	"bloodbank/pkg/domain"
	"bloodbank/pkg/platform/sentinel"
	"bloodbank/pkg/platform/tx"
)

// InMemoryStore keeps one entry per blood group. Reads return copies so a
// caller's mutation is only visible after Save.
type InMemoryStore struct {
	mu      sync.RWMutex
	byGroup map[domain.BloodGroup]*models.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byGroup: make(map[domain.BloodGroup]*models.Entry)}
}

func (s *InMemoryStore) FindByGroup(_ context.Context, group domain.BloodGroup) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byGroup[group]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(e), nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.StockID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e := s.findByIDLocked(id); e != nil {
		return clone(e), nil
	}
	return nil, sentinel.ErrNotFound
}

// GetOrCreateForUpdate returns the group's entry, creating an empty one first if needed.
// Callers serialize through the in-memory transaction runner.
func (s *InMemoryStore) GetOrCreateForUpdate(ctx context.Context, group domain.BloodGroup, now time.Time) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.byGroup[group]; ok {
		return clone(e), nil
	}
	e, err := models.NewEntry(domain.NewStockID(), group, now)
	if err != nil {
		return nil, err
	}
	s.byGroup[group] = e
	tx.OnRollback(ctx, func() { s.restore(group, nil) })
	return clone(e), nil
}

func (s *InMemoryStore) Save(ctx context.Context, entry *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.findByIDLocked(entry.ID)
	if existing == nil {
		return sentinel.ErrNotFound
	}
	if existing.BloodGroup != entry.BloodGroup {
		return sentinel.ErrInvalidState
	}
	tx.OnRollback(ctx, func() { s.restore(existing.BloodGroup, existing) })
	s.byGroup[entry.BloodGroup] = clone(entry)
	return nil
}

// ListAll returns every entry in canonical blood group order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Entry, 0, len(s.byGroup))
	for _, e := range s.byGroup {
		out = append(out, clone(e))
	}
	SortCanonical(out)
	return out, nil
}

// Execute validates and mutates one entry under the store lock.
func (s *InMemoryStore) Execute(ctx context.Context, id domain.StockID, validate func(*models.Entry) error, mutate func(*models.Entry)) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.findByIDLocked(id)
	if existing == nil {
		return nil, sentinel.ErrNotFound
	}
	working := clone(existing)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	tx.OnRollback(ctx, func() { s.restore(existing.BloodGroup, existing) })
	s.byGroup[working.BloodGroup] = working
	return clone(working), nil
}

func (s *InMemoryStore) Delete(ctx context.Context, id domain.StockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.findByIDLocked(id)
	if existing == nil {
		return sentinel.ErrNotFound
	}
	delete(s.byGroup, existing.BloodGroup)
	tx.OnRollback(ctx, func() { s.restore(existing.BloodGroup, existing) })
	return nil
}

// restore puts back the entry a failed unit of work replaced. A nil entry
// removes one the unit of work created.
func (s *InMemoryStore) restore(group domain.BloodGroup, e *models.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e == nil {
		delete(s.byGroup, group)
		return
	}
	s.byGroup[group] = e
}

func (s *InMemoryStore) findByIDLocked(id domain.StockID) *models.Entry {
	for _, e := range s.byGroup {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// SortCanonical orders entries A+, A-, B+, B-, AB+, AB-, O+, O-.
func SortCanonical(entries []*models.Entry) {
	slices.SortFunc(entries, func(a, b *models.Entry) int {
		return a.BloodGroup.Order() - b.BloodGroup.Order()
	})
}

func clone(e *models.Entry) *models.Entry {
	c := *e
	return &c
}
