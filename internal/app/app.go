// Package app wires stores, services and handlers into one HTTP application.
// The process entrypoint picks the stores; everything above them is shared.
package app

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	approvalhandler "bloodbank/internal/approval/handler"
	approvalmetrics "bloodbank/internal/approval/metrics"
	approvalservice "bloodbank/internal/approval/service"
	requesthandler "bloodbank/internal/bloodrequest/handler"
	requestmetrics "bloodbank/internal/bloodrequest/metrics"
	requestmodels "bloodbank/internal/bloodrequest/models"
	requestservice "bloodbank/internal/bloodrequest/service"
	requeststore "bloodbank/internal/bloodrequest/store"
	dashboardhandler "bloodbank/internal/dashboard/handler"
	dashboardservice "bloodbank/internal/dashboard/service"
	donationhandler "bloodbank/internal/donation/handler"
	donationmetrics "bloodbank/internal/donation/metrics"
	donationmodels "bloodbank/internal/donation/models"
	donationservice "bloodbank/internal/donation/service"
	donationstore "bloodbank/internal/donation/store"
	identityhandler "bloodbank/internal/identity/handler"
	identitymetrics "bloodbank/internal/identity/metrics"
	identityservice "bloodbank/internal/identity/service"
	sessionstore "bloodbank/internal/identity/store/session"
	userstore "bloodbank/internal/identity/store/user"
	jwttoken "bloodbank/internal/jwt_token"
	"bloodbank/internal/platform/config"
	platformmetrics "bloodbank/internal/platform/metrics"
	"bloodbank/internal/platform/postgres"
	ratelimitmetrics "bloodbank/internal/ratelimit/metrics"
	ratelimitmw "bloodbank/internal/ratelimit/middleware"
	"bloodbank/internal/ratelimit/store/bucket"
	stockhandler "bloodbank/internal/stock/handler"
	stockmetrics "bloodbank/internal/stock/metrics"
	stockservice "bloodbank/internal/stock/service"
	stockstore "bloodbank/internal/stock/store"
	httptransport "bloodbank/internal/transport/http"
	"bloodbank/pkg/domain"
	"bloodbank/pkg/platform/middleware/metadata"
	"bloodbank/pkg/platform/tx"
)

const (
	tokenIssuer   = "bloodbank"
	tokenAudience = "bloodbank-api"
)

// RequestStore is the queue as every service sees it.
type RequestStore interface {
	Create(ctx context.Context, r *requestmodels.BloodRequest) error
	FindByID(ctx context.Context, id domain.BloodRequestID) (*requestmodels.BloodRequest, error)
	FindForUpdate(ctx context.Context, id domain.BloodRequestID) (*requestmodels.BloodRequest, error)
	FindByOffer(ctx context.Context, offerID domain.DonationID) (*requestmodels.BloodRequest, error)
	Save(ctx context.Context, r *requestmodels.BloodRequest) error
	List(ctx context.Context, f requestmodels.Filter) ([]*requestmodels.BloodRequest, error)
	Count(ctx context.Context, f requestmodels.Filter) (int, error)
	DetachOffers(ctx context.Context, ids []domain.DonationID) error
}

type OfferStore interface {
	Create(ctx context.Context, o *donationmodels.Offer) error
	FindByID(ctx context.Context, id domain.DonationID) (*donationmodels.Offer, error)
	FindForUpdate(ctx context.Context, id domain.DonationID) (*donationmodels.Offer, error)
	Save(ctx context.Context, o *donationmodels.Offer) error
	List(ctx context.Context, f donationmodels.Filter) ([]*donationmodels.Offer, error)
	Count(ctx context.Context, f donationmodels.Filter) (int, error)
	Delete(ctx context.Context, f donationmodels.Filter) ([]domain.DonationID, error)
}

type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

// Stores is the persistence the application runs on. Tx must cover every store.
type Stores struct {
	Tx       StoreTx
	Users    identityservice.UserStore
	Sessions identityservice.SessionStore
	Stock    stockservice.Store
	Requests RequestStore
	Offers   OfferStore
	Buckets  ratelimitmw.BucketStore
}

// MemoryStores keeps everything in process, serialized by one mutex.
func MemoryStores() Stores {
	return Stores{
		Tx:       tx.NewInMemoryRunner(),
		Users:    userstore.NewInMemoryStore(),
		Sessions: sessionstore.NewInMemoryStore(),
		Stock:    stockstore.NewInMemoryStore(),
		Requests: requeststore.NewInMemoryStore(),
		Offers:   donationstore.NewInMemoryStore(),
		Buckets:  bucket.NewInMemoryBucketStore(),
	}
}

// PostgresStores keeps the domain in PostgreSQL. Sessions and rate-limit
// buckets stay in memory until WithRedis moves them.
func PostgresStores(db *sql.DB) Stores {
	return Stores{
		Tx:       postgres.NewTxRunner(db),
		Users:    userstore.NewPostgres(db),
		Sessions: sessionstore.NewInMemoryStore(),
		Stock:    stockstore.NewPostgres(db),
		Requests: requeststore.NewPostgres(db),
		Offers:   donationstore.NewPostgres(db),
		Buckets:  bucket.NewInMemoryBucketStore(),
	}
}

// WithRedis moves sessions and rate-limit buckets to Redis.
func (s Stores) WithRedis(client redis.UniversalClient) Stores {
	s.Sessions = sessionstore.NewRedis(client)
	s.Buckets = bucket.NewRedisBucketStore(client)
	return s
}

// App is the assembled application.
type App struct {
	Router   http.Handler
	Identity *identityservice.Service
	Registry *prometheus.Registry
}

// New builds every service over st and mounts them on one router.
func New(cfg config.Server, st Stores, logger *slog.Logger, checks map[string]httptransport.HealthCheck) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = identityservice.DefaultSessionTTL
	}
	identity := identityservice.New(st.Users, st.Sessions,
		jwttoken.NewJWTService(cfg.JWTSigningKey, tokenIssuer, tokenAudience),
		identityservice.WithTx(st.Tx),
		identityservice.WithSessionTTL(ttl),
		identityservice.WithLogger(logger),
		identityservice.WithMetrics(identitymetrics.New(reg)),
	)
	stock := stockservice.New(st.Stock,
		stockservice.WithTx(st.Tx),
		stockservice.WithLogger(logger),
		stockservice.WithMetrics(stockmetrics.New(reg)),
	)
	requests := requestservice.New(st.Requests,
		requestservice.WithTx(st.Tx),
		requestservice.WithLogger(logger),
		requestservice.WithMetrics(requestmetrics.New(reg)),
	)
	donations := donationservice.New(st.Offers, st.Requests,
		donationservice.WithTx(st.Tx),
		donationservice.WithLogger(logger),
		donationservice.WithMetrics(donationmetrics.New(reg)),
	)
	engine := approvalservice.New(st.Requests, st.Offers, stock,
		approvalservice.WithTx(st.Tx),
		approvalservice.WithLogger(logger),
		approvalservice.WithMetrics(approvalmetrics.New(reg)),
	)
	dashboard := dashboardservice.New(stock, donations, requests, dashboardservice.WithLogger(logger))

	limiter := ratelimitmw.New(st.Buckets, cfg.RateLimit.PerMinute, logger,
		ratelimitmw.WithDisabled(cfg.RateLimit.Disabled),
		ratelimitmw.WithMetrics(ratelimitmetrics.New(reg)),
		ratelimitmw.WithWindow(time.Minute),
	)

	trusted, err := metadata.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		logger.Warn("ignoring invalid trusted proxies", "error", err)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         logger,
		TrustedProxies: trusted,
		Authenticator:  identity,
		RateLimiter:    limiter,
		Metrics:        platformmetrics.New(reg),
		Gatherer:       reg,
		HealthChecks:   checks,
		Identity:       identityhandler.New(identity, logger),
		Stock:          stockhandler.New(stock, logger),
		Requests:       requesthandler.New(requests, logger),
		Donations:      donationhandler.New(donations, logger),
		Approval:       approvalhandler.New(engine, logger),
		Dashboard:      dashboardhandler.New(dashboard, logger),
	})
	return &App{Router: router, Identity: identity, Registry: reg}
}
