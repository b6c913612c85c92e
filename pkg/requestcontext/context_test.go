package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"bloodbank/pkg/domain"
)

func TestPrincipalRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, ok := Principal(ctx)
	assert.False(t, ok)
	assert.True(t, UserID(ctx).IsNil())

	p := &domain.Principal{UserID: domain.NewUserID(), Username: "ada", Role: domain.RoleDonor}
	ctx = WithPrincipal(ctx, p)
	got, ok := Principal(ctx)
	assert.True(t, ok)
	assert.Equal(t, p, got)
	assert.Equal(t, p.UserID, UserID(ctx))
}

func TestNilPrincipalIsAnonymous(t *testing.T) {
	ctx := WithPrincipal(context.Background(), nil)
	_, ok := Principal(ctx)
	assert.False(t, ok)
}

func TestToday(t *testing.T) {
	fixed := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	ctx := WithTime(context.Background(), fixed)
	assert.Equal(t, fixed, Now(ctx))
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), Today(ctx))
}

func TestMetadata(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithClientIP(ctx, "10.0.0.1")
	sid := domain.NewSessionID()
	ctx = WithSessionID(ctx, sid)

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, sid, SessionID(ctx))
}
