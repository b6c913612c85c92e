package testutil

import (
	"context"
	"net/http"
	"time"

	"bloodbank/pkg/domain"
	"bloodbank/pkg/requestcontext"
)

// WithPrincipal attaches an authenticated caller to the request, as the auth
// middleware would after validating a bearer token.
func WithPrincipal(req *http.Request, p *domain.Principal) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), p))
}

// As attaches a freshly generated principal acting in role and returns it.
func As(req *http.Request, role domain.Role) (*http.Request, *domain.Principal) {
	p := &domain.Principal{
		UserID:   domain.NewUserID(),
		Username: string(role) + "-user",
		Email:    string(role) + "@example.com",
		Role:     role,
	}
	return WithPrincipal(req, p), p
}

// WithTime pins the request clock.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// ContextAt returns a background context whose request clock is pinned to t.
func ContextAt(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}
