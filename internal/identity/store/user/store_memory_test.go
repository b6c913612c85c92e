package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bloodbank/internal/identity/models"
	"bloodbank/pkg/domain"
	"bloodbank/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemoryUserStoreSuite) create(username string, role domain.Role) *models.User {
	u := &models.User{ID: domain.NewUserID(), Username: username, PasswordHash: "h", CreatedAt: time.Now()}
	s.Require().NoError(s.store.Create(s.ctx, u, models.Credential{UserID: u.ID, Role: role}))
	return u
}

func (s *InMemoryUserStoreSuite) TestUsernameIsCaseInsensitive() {
	u := s.create("Alice", domain.RoleDonor)

	found, err := s.store.FindByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(u.ID, found.ID)

	dup := &models.User{ID: domain.NewUserID(), Username: "ALICE"}
	err = s.store.Create(s.ctx, dup, models.Credential{UserID: dup.ID, Role: domain.RolePatient})
	s.ErrorIs(err, sentinel.ErrConflict)
}

func (s *InMemoryUserStoreSuite) TestFindCredential() {
	u := s.create("bob", domain.RoleHospital)

	cred, err := s.store.FindCredential(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal(domain.RoleHospital, cred.Role)

	_, err = s.store.FindCredential(s.ctx, domain.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryUserStoreSuite) TestReturnsCopies() {
	u := s.create("carol", domain.RoleDonor)

	found, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	found.Email = "changed@example.com"

	again, err := s.store.FindByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Empty(again.Email)
}

func (s *InMemoryUserStoreSuite) TestListByRole() {
	s.create("zed", domain.RoleDonor)
	s.create("amy", domain.RoleDonor)
	s.create("pat", domain.RolePatient)

	donors, err := s.store.ListByRole(s.ctx, domain.RoleDonor)
	s.Require().NoError(err)
	s.Require().Len(donors, 2)
	s.Equal("amy", donors[0].User.Username)
	s.Equal("zed", donors[1].User.Username)

	hospitals, err := s.store.ListByRole(s.ctx, domain.RoleHospital)
	s.Require().NoError(err)
	s.Empty(hospitals)
}
