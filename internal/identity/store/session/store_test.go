package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"bloodbank/internal/identity/models"
	"bloodbank/pkg/domain"
	"bloodbank/pkg/platform/sentinel"
)

type store interface {
	Create(ctx context.Context, sess *models.Session) error
	FindByID(ctx context.Context, id domain.SessionID) (*models.Session, error)
	Delete(ctx context.Context, id domain.SessionID) error
}

// SessionStoreSuite runs the same contract against both implementations.
type SessionStoreSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	store   store
	advance func(d time.Duration)
	newImpl func(s *SessionStoreSuite) (store, func(time.Duration))
}

func TestInMemorySessionStore(t *testing.T) {
	suite.Run(t, &SessionStoreSuite{newImpl: func(s *SessionStoreSuite) (store, func(time.Duration)) {
		st := NewInMemoryStore()
		clock := s.now
		st.now = func() time.Time { return clock }
		return st, func(d time.Duration) { clock = clock.Add(d) }
	}})
}

func TestRedisSessionStore(t *testing.T) {
	suite.Run(t, &SessionStoreSuite{newImpl: func(s *SessionStoreSuite) (store, func(time.Duration)) {
		mr := miniredis.RunT(s.T())
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		s.T().Cleanup(func() { _ = client.Close() })
		st := NewRedis(client)
		clock := s.now
		st.now = func() time.Time { return clock }
		return st, func(d time.Duration) {
			clock = clock.Add(d)
			mr.FastForward(d)
		}
	}})
}

func (s *SessionStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	s.store, s.advance = s.newImpl(s)
}

func (s *SessionStoreSuite) session(ttl time.Duration) *models.Session {
	return &models.Session{
		ID:        domain.NewSessionID(),
		UserID:    domain.NewUserID(),
		Username:  "alice",
		Email:     "alice@example.com",
		Role:      domain.RoleDonor,
		CreatedAt: s.now,
		ExpiresAt: s.now.Add(ttl),
	}
}

func (s *SessionStoreSuite) TestCreateAndFind() {
	sess := s.session(time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, sess))

	found, err := s.store.FindByID(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Equal(sess.UserID, found.UserID)
	s.Equal(domain.RoleDonor, found.Role)
	s.Equal("alice", found.Principal().Username)
}

func (s *SessionStoreSuite) TestUnknownSession() {
	_, err := s.store.FindByID(s.ctx, domain.NewSessionID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *SessionStoreSuite) TestExpiry() {
	sess := s.session(time.Minute)
	s.Require().NoError(s.store.Create(s.ctx, sess))

	s.advance(2 * time.Minute)

	_, err := s.store.FindByID(s.ctx, sess.ID)
	s.Error(err)
	s.True(err == sentinel.ErrNotFound || err == sentinel.ErrExpired)
}

func (s *SessionStoreSuite) TestDelete() {
	sess := s.session(time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, sess))

	s.Require().NoError(s.store.Delete(s.ctx, sess.ID))
	_, err := s.store.FindByID(s.ctx, sess.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Delete(s.ctx, sess.ID), sentinel.ErrNotFound)
}
