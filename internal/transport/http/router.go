// Package httptransport assembles the public HTTP surface from the feature handlers.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	approvalhandler "bloodbank/internal/approval/handler"
	requesthandler "bloodbank/internal/bloodrequest/handler"
	dashboardhandler "bloodbank/internal/dashboard/handler"
	donationhandler "bloodbank/internal/donation/handler"
	identityhandler "bloodbank/internal/identity/handler"
	platformmetrics "bloodbank/internal/platform/metrics"
	ratelimitmw "bloodbank/internal/ratelimit/middleware"
	ratelimitmodels "bloodbank/internal/ratelimit/models"
	stockhandler "bloodbank/internal/stock/handler"
	"bloodbank/pkg/domain"
	"bloodbank/pkg/platform/httputil"
	"bloodbank/pkg/platform/middleware/auth"
	"bloodbank/pkg/platform/middleware/metadata"
	"bloodbank/pkg/platform/middleware/request"
	"bloodbank/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators the router mounts. RateLimiter, Metrics and
// Gatherer are optional. Without TrustedProxies the client address is the TCP peer.
type Deps struct {
	Logger         *slog.Logger
	TrustedProxies metadata.TrustedProxies
	Authenticator  auth.Authenticator
	RateLimiter    *ratelimitmw.Middleware
	Metrics        *platformmetrics.Metrics
	Gatherer       prometheus.Gatherer
	HealthChecks   map[string]HealthCheck

	Identity  *identityhandler.Handler
	Stock     *stockhandler.Handler
	Requests  *requesthandler.Handler
	Donations *donationhandler.Handler
	Approval  *approvalhandler.Handler
	Dashboard *dashboardhandler.Handler
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata(d.TrustedProxies))
	r.Use(requesttime.Middleware)
	r.Use(request.Recovery(d.Logger))
	r.Use(request.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(request.Latency(d.Metrics))
	}

	r.Get("/healthz", healthz(d.HealthChecks))
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	limit := func(class ratelimitmodels.EndpointClass) func(http.Handler) http.Handler {
		if d.RateLimiter == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return d.RateLimiter.RateLimit(class)
	}

	r.Group(func(r chi.Router) {
		r.Use(limit(ratelimitmodels.ClassAuth))
		d.Identity.RegisterPublic(r)
	})
	d.Stock.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(limit(ratelimitmodels.ClassIntake))
		r.Use(auth.OptionalAuth(d.Authenticator, d.Logger))
		d.Requests.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.Authenticator, d.Logger))
		d.Identity.RegisterAuthenticated(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(d.Logger, domain.RolePatient))
			d.Requests.RegisterPatient(r)
			d.Dashboard.RegisterPatient(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(d.Logger, domain.RoleDonor))
			d.Donations.RegisterDonor(r)
			d.Dashboard.RegisterDonor(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(d.Logger, domain.RoleHospital))
			d.Requests.RegisterHospital(r)
			d.Stock.RegisterHospital(r)
			d.Dashboard.RegisterHospital(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(d.Logger, domain.RoleAdmin))
			d.Identity.RegisterAdmin(r)
			d.Stock.RegisterAdmin(r)
			d.Requests.RegisterAdmin(r)
			d.Donations.RegisterAdmin(r)
			d.Approval.RegisterAdmin(r)
			d.Dashboard.RegisterAdmin(r)
		})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthz(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for name, check := range checks {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(checks))
			}
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
