package bucket

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type RedisBucketStoreSuite struct {
	suite.Suite
	mr    *miniredis.Miniredis
	store *RedisBucketStore
	clock time.Time
	ctx   context.Context
}

func TestRedisBucketStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisBucketStoreSuite))
}

func (s *RedisBucketStoreSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })

	s.clock = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.store = NewRedisBucketStore(client)
	s.store.now = func() time.Time { return s.clock }
	s.ctx = context.Background()
}

func (s *RedisBucketStoreSuite) TestAllowUpToLimit() {
	for i := range 3 {
		result, err := s.store.Allow(s.ctx, "rl:ip", 3, time.Minute)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(3-(i+1), result.Remaining)
		s.clock = s.clock.Add(time.Second)
	}

	result, err := s.store.Allow(s.ctx, "rl:ip", 3, time.Minute)
	s.Require().NoError(err)
	s.False(result.Allowed)
	s.Equal(0, result.Remaining)
	s.Equal(57, result.RetryAfter)
	s.True(s.mr.Exists("rl:ip"))
}

func (s *RedisBucketStoreSuite) TestWindowSlides() {
	for range 2 {
		_, err := s.store.Allow(s.ctx, "rl:slide", 2, time.Minute)
		s.Require().NoError(err)
	}
	s.clock = s.clock.Add(61 * time.Second)

	result, err := s.store.Allow(s.ctx, "rl:slide", 2, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
	s.Equal(1, result.Remaining)
}

func (s *RedisBucketStoreSuite) TestReset() {
	_, err := s.store.Allow(s.ctx, "rl:reset", 1, time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Reset(s.ctx, "rl:reset"))

	result, err := s.store.Allow(s.ctx, "rl:reset", 1, time.Minute)
	s.Require().NoError(err)
	s.True(result.Allowed)
}
