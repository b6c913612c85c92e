package auth

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/platform/httputil"
	"bloodbank/pkg/requestcontext"
)

// Authenticator resolves a bearer token to a live session principal.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.Principal, domain.SessionID, error)
}

const bearerPrefix = "Bearer "

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}
			authed, ok := authenticate(w, r, authn, logger, token)
			if !ok {
				return
			}
			next.ServeHTTP(w, authed)
		})
	}
}

// OptionalAuth attaches the principal when a token is sent and lets anonymous
// callers through. A token that is sent but invalid is still rejected.
func OptionalAuth(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			authed, ok := authenticate(w, r, authn, logger, token)
			if !ok {
				return
			}
			next.ServeHTTP(w, authed)
		})
	}
}

// RequireRole admits only principals acting in one of roles. Mount after RequireAuth.
func RequireRole(logger *slog.Logger, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p, ok := requestcontext.Principal(ctx)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !slices.Contains(roles, p.Role) {
				logger.WarnContext(ctx, "forbidden - role not allowed",
					"request_id", requestcontext.RequestID(ctx),
					"user_id", p.UserID,
					"role", p.Role,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "this page is not available for your role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	token = strings.TrimSpace(token)
	return token, ok && token != ""
}

func authenticate(w http.ResponseWriter, r *http.Request, authn Authenticator, logger *slog.Logger, token string) (*http.Request, bool) {
	ctx := r.Context()
	principal, sessionID, err := authn.Authenticate(ctx, token)
	if err != nil {
		logger.WarnContext(ctx, "unauthorized access - invalid token",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			httputil.WriteError(w, err)
		} else {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
		}
		return nil, false
	}
	ctx = requestcontext.WithPrincipal(ctx, principal)
	ctx = requestcontext.WithSessionID(ctx, sessionID)
	return r.WithContext(ctx), true
}
