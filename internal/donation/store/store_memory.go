package store

import (
	"context"
	"slices"
	"sync"

	"bloodbank/internal/donation/models"
	"bloodbank/pkg/domain"
	"bloodbank/pkg/platform/sentinel"
	"bloodbank/pkg/platform/tx"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	offers map[domain.DonationID]*models.Offer
	order  []domain.DonationID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{offers: make(map[domain.DonationID]*models.Offer)}
}

func (s *InMemoryStore) Create(ctx context.Context, o *models.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[o.ID]; ok {
		return sentinel.ErrConflict
	}
	s.offers[o.ID] = clone(o)
	s.order = append(s.order, o.ID)
	id := o.ID
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.offers, id)
		s.order = slices.DeleteFunc(s.order, func(x domain.DonationID) bool { return x == id })
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.DonationID) (*models.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.offers[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(o), nil
}

// FindForUpdate is FindByID. Callers hold the in-memory transaction lock.
func (s *InMemoryStore) FindForUpdate(ctx context.Context, id domain.DonationID) (*models.Offer, error) {
	return s.FindByID(ctx, id)
}

func (s *InMemoryStore) Save(ctx context.Context, o *models.Offer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.offers[o.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.offers[o.ID] = clone(o)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.offers[prev.ID] = prev
	})
	return nil
}

// List returns matching offers newest first.
func (s *InMemoryStore) List(_ context.Context, f models.Filter) ([]*models.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Offer
	for i := len(s.order) - 1; i >= 0; i-- {
		if o := s.offers[s.order[i]]; f.Matches(o) {
			out = append(out, clone(o))
		}
	}
	slices.SortStableFunc(out, func(a, b *models.Offer) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context, f models.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, o := range s.offers {
		if f.Matches(o) {
			n++
		}
	}
	return n, nil
}

// Delete removes matching offers and returns their ids.
func (s *InMemoryStore) Delete(ctx context.Context, f models.Filter) ([]domain.DonationID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prevOrder := slices.Clone(s.order)
	removed := make(map[domain.DonationID]*models.Offer)
	var deleted []domain.DonationID
	kept := s.order[:0]
	for _, id := range s.order {
		if f.Matches(s.offers[id]) {
			deleted = append(deleted, id)
			removed[id] = s.offers[id]
			delete(s.offers, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for id, o := range removed {
			s.offers[id] = o
		}
		s.order = prevOrder
	})
	return deleted, nil
}

func clone(o *models.Offer) *models.Offer {
	cp := *o
	if o.LastDonationDate != nil {
		d := *o.LastDonationDate
		cp.LastDonationDate = &d
	}
	if o.LastReceiptDate != nil {
		d := *o.LastReceiptDate
		cp.LastReceiptDate = &d
	}
	if o.ApprovedBy != nil {
		by := *o.ApprovedBy
		cp.ApprovedBy = &by
	}
	return &cp
}
