package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	identitymetrics "bloodbank/internal/identity/metrics"
	"bloodbank/internal/identity/models"
	"bloodbank/internal/identity/secrets"
	"bloodbank/pkg/domain"
	dErrors "bloodbank/pkg/domain-errors"
	"bloodbank/pkg/platform/sentinel"
	"bloodbank/pkg/platform/tx"
	"bloodbank/pkg/requestcontext"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User, cred models.Credential) error
	FindByID(ctx context.Context, id domain.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindCredential(ctx context.Context, id domain.UserID) (*models.Credential, error)
	ListByRole(ctx context.Context, role domain.Role) ([]*models.Account, error)
}

type SessionStore interface {
	Create(ctx context.Context, sess *models.Session) error
	FindByID(ctx context.Context, id domain.SessionID) (*models.Session, error)
	Delete(ctx context.Context, id domain.SessionID) error
}

// TokenIssuer signs and parses access tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID domain.UserID, sessionID domain.SessionID, role domain.Role, expiresIn time.Duration) (string, error)
	ParseSession(token string) (domain.UserID, domain.SessionID, error)
}

// PasswordHasher hashes and checks passwords. DummyHash supplies a hash to
// verify against when the account does not exist.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) error
	DummyHash() string
}

type StoreTx interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

const (
	DefaultSessionTTL = 24 * time.Hour

	msgInvalidCredentials = "invalid username or password"
	msgRoleMismatch       = "selected role doesn't match your account"
)

// Service owns registration, login and session lookup.
type Service struct {
	users      UserStore
	sessions   SessionStore
	tokens     TokenIssuer
	hasher     PasswordHasher
	tx         StoreTx
	sessionTTL time.Duration
	logger     *slog.Logger
	metrics    *identitymetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *identitymetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTx(runner StoreTx) Option {
	return func(s *Service) { s.tx = runner }
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithHashCost sets the bcrypt cost. Tests pass bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.hasher = secrets.NewHasher(cost) }
}

func WithHasher(h PasswordHasher) Option {
	return func(s *Service) { s.hasher = h }
}

func New(users UserStore, sessions SessionStore, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		users:      users,
		sessions:   sessions,
		tokens:     tokens,
		sessionTTL: DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hasher == nil {
		s.hasher = secrets.NewHasher(bcrypt.DefaultCost)
	}
	if s.tx == nil {
		s.tx = tx.NewInMemoryRunner()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Register creates an account for a self-registrable role.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*domain.Principal, error) {
	role, err := domain.ParseRole(req.Role)
	if err != nil || !role.IsSelfRegistrable() {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be one of Donor, Patient, Hospital")
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		ID:           domain.NewUserID(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.createAccount(ctx, u, role); err != nil {
		return nil, err
	}

	s.metrics.IncrementRegistration(string(role))
	s.logger.InfoContext(ctx, "account registered",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", u.ID.String(),
		"role", string(role),
	)
	return &domain.Principal{UserID: u.ID, Username: u.Username, Email: u.Email, Role: role}, nil
}

// Login checks credentials and the selected role, then opens a session.
// A superuser may select Admin; everyone else must select their registered role.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResult, error) {
	selected, err := domain.ParseRole(req.Role)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be one of Donor, Patient, Hospital, Admin")
	}

	u, err := s.users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// same bcrypt work as a wrong password, so timing doesn't reveal the username
			_ = s.hasher.Verify(req.Password, s.hasher.DummyHash())
			s.metrics.IncrementLogin("bad_credentials")
			return nil, dErrors.New(dErrors.CodeUnauthorized, msgInvalidCredentials)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if err := s.hasher.Verify(req.Password, u.PasswordHash); err != nil {
		if errors.Is(err, secrets.ErrMismatch) {
			s.metrics.IncrementLogin("bad_credentials")
			return nil, dErrors.New(dErrors.CodeUnauthorized, msgInvalidCredentials)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}

	role, err := s.resolveRole(ctx, u, selected)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	sess := &models.Session{
		ID:        domain.NewSessionID(),
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}
	token, err := s.tokens.GenerateAccessToken(u.ID, sess.ID, role, s.sessionTTL)
	if err != nil {
		_ = s.sessions.Delete(ctx, sess.ID)
		return nil, err
	}

	s.metrics.IncrementLogin("success")
	s.logger.InfoContext(ctx, "user logged in",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", u.ID.String(),
		"role", string(role),
	)
	return &models.LoginResult{AccessToken: token, ExpiresIn: s.sessionTTL, Principal: sess.Principal()}, nil
}

func (s *Service) resolveRole(ctx context.Context, u *models.User, selected domain.Role) (domain.Role, error) {
	if selected == domain.RoleAdmin && u.IsSuperuser {
		return domain.RoleAdmin, nil
	}
	cred, err := s.users.FindCredential(ctx, u.ID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	if cred == nil || cred.Role != selected {
		s.metrics.IncrementLogin("role_mismatch")
		return "", dErrors.New(dErrors.CodeUnauthorized, msgRoleMismatch)
	}
	return cred.Role, nil
}

// Authenticate resolves a bearer token to the principal of its live session.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.Principal, domain.SessionID, error) {
	userID, sessionID, err := s.tokens.ParseSession(token)
	if err != nil {
		return nil, domain.SessionID{}, err
	}
	sess, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return nil, domain.SessionID{}, dErrors.New(dErrors.CodeUnauthorized, "session expired or logged out")
		}
		return nil, domain.SessionID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if sess.UserID != userID {
		return nil, domain.SessionID{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return sess.Principal(), sess.ID, nil
}

// Logout ends the session. Ending an already closed session is not an error.
func (s *Service) Logout(ctx context.Context, sessionID domain.SessionID) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to end session")
	}
	s.logger.InfoContext(ctx, "user logged out",
		"request_id", requestcontext.RequestID(ctx),
		"session_id", sessionID.String(),
	)
	return nil
}

// ListUsers lists the accounts registered under one self-registrable role.
func (s *Service) ListUsers(ctx context.Context, role domain.Role) ([]*models.Account, error) {
	if !role.IsSelfRegistrable() {
		return nil, dErrors.New(dErrors.CodeValidation, "role must be one of Donor, Patient, Hospital")
	}
	accounts, err := s.users.ListByRole(ctx, role)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return accounts, nil
}

// SeedAdmin creates the bootstrap superuser when it does not exist yet.
// An empty username or password disables seeding.
func (s *Service) SeedAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	_, err := s.users.FindByUsername(ctx, username)
	if err == nil {
		s.logger.InfoContext(ctx, "admin account already present", "username", username)
		return nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up admin")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	u := &models.User{
		ID:           domain.NewUserID(),
		Username:     username,
		PasswordHash: hash,
		IsSuperuser:  true,
		CreatedAt:    requestcontext.Now(ctx),
	}
	if err := s.createAccount(ctx, u, domain.RoleAdmin); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "admin account seeded", "username", username)
	return nil
}

func (s *Service) createAccount(ctx context.Context, u *models.User, role domain.Role) error {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		return s.users.Create(txCtx, u, models.Credential{UserID: u.ID, Role: role})
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "username already taken")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}
	return nil
}
