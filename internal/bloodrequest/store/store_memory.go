package store

import (
	"context"
	"slices"
	"sync"

	"bloodbank/internal/bloodrequest/models"
	"bloodbank/pkg/domain"
	"bloodbank/pkg/platform/sentinel"
	"bloodbank/pkg/platform/tx"
)

// InMemoryStore keeps requests in insertion order.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[domain.BloodRequestID]*models.BloodRequest
	order []domain.BloodRequestID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[domain.BloodRequestID]*models.BloodRequest)}
}

func (s *InMemoryStore) Create(ctx context.Context, r *models.BloodRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[r.ID]; ok {
		return sentinel.ErrConflict
	}
	s.byID[r.ID] = clone(r)
	s.order = append(s.order, r.ID)
	id := r.ID
	tx.OnRollback(ctx, func() { s.drop(id) })
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.BloodRequestID) (*models.BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(r), nil
}

// FindForUpdate is FindByID. Callers hold the in-memory transaction lock.
func (s *InMemoryStore) FindForUpdate(ctx context.Context, id domain.BloodRequestID) (*models.BloodRequest, error) {
	return s.FindByID(ctx, id)
}

func (s *InMemoryStore) FindByOffer(_ context.Context, offerID domain.DonationID) (*models.BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.order {
		r := s.byID[id]
		if r.DonationOfferID != nil && *r.DonationOfferID == offerID {
			return clone(r), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) Save(ctx context.Context, r *models.BloodRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.byID[r.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.byID[r.ID] = clone(r)
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.byID[prev.ID] = prev
	})
	return nil
}

func (s *InMemoryStore) drop(id domain.BloodRequestID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, id)
	s.order = slices.DeleteFunc(s.order, func(o domain.BloodRequestID) bool { return o == id })
}

// List returns matching requests newest first.
func (s *InMemoryStore) List(_ context.Context, f models.Filter) ([]*models.BloodRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.BloodRequest
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.byID[s.order[i]]
		if f.Matches(r) {
			out = append(out, clone(r))
		}
	}
	slices.SortStableFunc(out, func(a, b *models.BloodRequest) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context, f models.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.byID {
		if f.Matches(r) {
			n++
		}
	}
	return n, nil
}

// DetachOffers clears the offer link of every request pointing at one of ids.
func (s *InMemoryStore) DetachOffers(ctx context.Context, ids []domain.DonationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var prev []*models.BloodRequest
	for id, r := range s.byID {
		if r.DonationOfferID != nil && slices.Contains(ids, *r.DonationOfferID) {
			prev = append(prev, r)
			detached := clone(r)
			detached.DonationOfferID = nil
			s.byID[id] = detached
		}
	}
	tx.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, r := range prev {
			s.byID[r.ID] = r
		}
	})
	return nil
}

func clone(r *models.BloodRequest) *models.BloodRequest {
	cp := *r
	if r.UserID != nil {
		uid := *r.UserID
		cp.UserID = &uid
	}
	if r.DonationOfferID != nil {
		oid := *r.DonationOfferID
		cp.DonationOfferID = &oid
	}
	return &cp
}
