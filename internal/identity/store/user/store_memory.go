package user

import (
	"context"
	"slices"
	"strings"
	"sync"

	"bloodbank/internal/identity/models"
	"bloodbank/pkg/domain"
	"bloodbank/pkg/platform/sentinel"
)

// InMemoryStore keeps users and their credentials in maps.
type InMemoryStore struct {
	mu          sync.RWMutex
	users       map[domain.UserID]*models.User
	byUsername  map[string]domain.UserID
	credentials map[domain.UserID]models.Credential
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:       make(map[domain.UserID]*models.User),
		byUsername:  make(map[string]domain.UserID),
		credentials: make(map[domain.UserID]models.Credential),
	}
}

func (s *InMemoryStore) Create(_ context.Context, u *models.User, cred models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Username)
	if _, taken := s.byUsername[key]; taken {
		return sentinel.ErrConflict
	}
	cp := *u
	s.users[u.ID] = &cp
	s.byUsername[key] = u.ID
	s.credentials[u.ID] = cred
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *InMemoryStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.users[id]
	return &cp, nil
}

func (s *InMemoryStore) FindCredential(_ context.Context, id domain.UserID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &c, nil
}

// ListByRole returns accounts holding role ordered by username.
func (s *InMemoryStore) ListByRole(_ context.Context, role domain.Role) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Account
	for id, c := range s.credentials {
		if c.Role != role {
			continue
		}
		cp := *s.users[id]
		out = append(out, &models.Account{User: &cp, Role: c.Role})
	}
	slices.SortFunc(out, func(a, b *models.Account) int {
		return strings.Compare(strings.ToLower(a.User.Username), strings.ToLower(b.User.Username))
	})
	return out, nil
}
