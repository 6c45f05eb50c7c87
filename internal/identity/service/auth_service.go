package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	identitydomain "mini-iam/backend/internal/identity/domain"
	"mini-iam/backend/internal/security"
	sessiondomain "mini-iam/backend/internal/session/domain"
	"mini-iam/backend/internal/telemetry"
)

const instrumentationName = "mini-iam/backend/internal/identity/service"

// DefaultIdleTimeout is the sliding session window used when none is configured.
const DefaultIdleTimeout = 20 * time.Minute

// AuthResult holds the outcome of Login or Refresh.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	UserID       string
	SessionID    string
}

// Principal is the caller identified by a valid access token.
type Principal struct {
	UserID    string
	SessionID string
}

// CredentialRepo is the minimal credential repository needed by the auth service.
type CredentialRepo interface {
	FindCredentialByEmail(ctx context.Context, login string) (*identitydomain.Credential, error)
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	FindSessionByAccessToken(ctx context.Context, token string) (*sessiondomain.Session, error)
	FindSessionByRefreshToken(ctx context.Context, token string) (*sessiondomain.Session, error)
	CreateSession(ctx context.Context, s *sessiondomain.Session, accessToken, refreshToken string) error
	UpdateSessionTokens(ctx context.Context, id, presentedRefresh, accessToken, refreshToken string, at time.Time) (bool, error)
	DeactivateSession(ctx context.Context, id string, at time.Time) error
	FindExpiredSessionsForUser(ctx context.Context, userID string, window time.Duration, now time.Time) ([]*sessiondomain.Session, error)
}

// RevocationList is the minimal revocation cache needed by the auth service.
type RevocationList interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
	Revoke(ctx context.Context, token string) error
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithClock replaces time.Now as the source of session timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		if now != nil {
			s.now = func() time.Time { return now().UTC() }
		}
	}
}

// WithEventEmitter sets the sink for auth events.
func WithEventEmitter(e telemetry.EventEmitter) Option {
	return func(s *AuthService) { s.events = e }
}

// WithTracerProvider overrides the global TracerProvider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *AuthService) { s.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider overrides the global MeterProvider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *AuthService) { s.meter = mp.Meter(instrumentationName) }
}

// AuthService implements login, refresh, logout and bearer authentication over server-side sessions.
type AuthService struct {
	credentials CredentialRepo
	sessions    SessionRepo
	revocations RevocationList
	hasher      *security.Hasher
	tokens      *security.TokenProvider
	idleTimeout time.Duration
	logger      *zap.Logger
	events      telemetry.EventEmitter
	tracer      trace.Tracer
	meter       metric.Meter
	operations  metric.Int64Counter
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService returns an AuthService with the given dependencies.
// idleTimeout <= 0 selects DefaultIdleTimeout; a nil logger discards logs.
func NewAuthService(
	credentials CredentialRepo,
	sessions SessionRepo,
	revocations RevocationList,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	idleTimeout time.Duration,
	logger *zap.Logger,
	opts ...Option,
) *AuthService {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuthService{
		credentials: credentials,
		sessions:    sessions,
		revocations: revocations,
		hasher:      hasher,
		tokens:      tokens,
		idleTimeout: idleTimeout,
		logger:      logger.Named("auth_service"),
		tracer:      otel.Tracer(instrumentationName),
		meter:       otel.Meter(instrumentationName),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	counter, err := s.meter.Int64Counter("auth.operations",
		metric.WithDescription("Authentication operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		s.logger.Warn("auth.operations counter unavailable", zap.Error(err))
		counter, _ = noop.NewMeterProvider().Meter(instrumentationName).Int64Counter("auth.operations")
	}
	s.operations = counter
	return s
}

// IdleTimeout returns the sliding session expiration window.
func (s *AuthService) IdleTimeout() time.Duration { return s.idleTimeout }

// Login verifies email/password, deactivates the user's expired sessions, and opens a new session.
// Unknown login and wrong password both yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (res *AuthResult, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer func() { s.finish(ctx, span, "login", err) }()

	login := strings.TrimSpace(email)
	if login == "" || password == "" {
		s.emit(ctx, &telemetry.Event{Type: telemetry.EventLoginFailure, Reason: "missing_credentials"})
		return nil, ErrInvalidCredentials
	}
	cred, err := s.credentials.FindCredentialByEmail(ctx, login)
	if err != nil {
		s.logger.Error("find credential failed", zap.Error(err))
		return nil, storageErr(err)
	}
	if cred == nil {
		// Unknown logins still pay for a bcrypt comparison.
		s.hasher.Verify(password, s.unknownUserHash())
		s.emit(ctx, &telemetry.Event{Type: telemetry.EventLoginFailure, Reason: "invalid_credentials"})
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, cred.PasswordHash) {
		s.emit(ctx, &telemetry.Event{Type: telemetry.EventLoginFailure, UserID: cred.UserID, Reason: "invalid_credentials"})
		return nil, ErrInvalidCredentials
	}
	span.SetAttributes(attribute.String("user.id", cred.UserID))

	now := s.now()
	s.deactivateExpired(ctx, cred.UserID, now)

	sessionID := uuid.NewString()
	refreshToken, err := security.NewRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	accessToken, expiresAt, err := s.issue(cred.UserID, sessionID)
	if err != nil {
		return nil, err
	}
	sess := &sessiondomain.Session{
		ID:              sessionID,
		UserID:          cred.UserID,
		StartedAt:       now,
		LastRefreshedAt: now,
		IsActive:        true,
	}
	if err := s.sessions.CreateSession(ctx, sess, accessToken, refreshToken); err != nil {
		s.logger.Error("create session failed", zap.String("user_id", cred.UserID), zap.String("session_id", sessionID), zap.Error(err))
		return nil, storageErr(err)
	}
	span.SetAttributes(attribute.String("session.id", sessionID))
	s.logger.Info("login succeeded", zap.String("user_id", cred.UserID), zap.String("session_id", sessionID))
	s.emit(ctx, &telemetry.Event{Type: telemetry.EventLoginSuccess, UserID: cred.UserID, SessionID: sessionID})
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		UserID:       cred.UserID,
		SessionID:    sessionID,
	}, nil
}

// Logout deactivates the session bound to accessToken (if any) and revokes the token.
// The token only has to be well formed and correctly signed; expired tokens are accepted.
// Logging out twice succeeds both times. Returns the logout instant.
func (s *AuthService) Logout(ctx context.Context, accessToken string) (loggedOutAt time.Time, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Logout")
	defer func() { s.finish(ctx, span, "logout", err) }()

	if err := s.tokens.Validate(accessToken); err != nil {
		if errors.Is(err, security.ErrMissingSigningKey) {
			return time.Time{}, configErr(err)
		}
		return time.Time{}, ErrInvalidToken
	}
	now := s.now()

	sess, err := s.sessions.FindSessionByAccessToken(ctx, accessToken)
	if err != nil {
		s.logger.Error("find session by access token failed", zap.Error(err))
		return time.Time{}, storageErr(err)
	}
	var userID, sessionID string
	if sess != nil {
		userID, sessionID = sess.UserID, sess.ID
		span.SetAttributes(attribute.String("session.id", sessionID))
		if sess.IsActive {
			if err := s.sessions.DeactivateSession(ctx, sess.ID, now); err != nil {
				s.logger.Error("deactivate session failed", zap.String("session_id", sess.ID), zap.Error(err))
				return time.Time{}, storageErr(err)
			}
		}
	}
	if err := s.revocations.Revoke(ctx, accessToken); err != nil {
		s.logger.Error("revoke token failed", zap.String("session_id", sessionID), zap.Error(err))
		return time.Time{}, storageErr(err)
	}
	s.logger.Info("logout", zap.String("user_id", userID), zap.String("session_id", sessionID))
	s.emit(ctx, &telemetry.Event{Type: telemetry.EventLogout, UserID: userID, SessionID: sessionID})
	return now, nil
}

// Authenticate resolves a bearer access token to its principal. The token must pass full validation,
// must not be revoked, and must still occupy the access slot of an active session that is within
// its idle window. An idled-out session yields ErrSessionExpired and is left for Refresh or Login to close.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (p *Principal, err error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Authenticate")
	defer func() { s.finish(ctx, span, "authenticate", err) }()

	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		if errors.Is(err, security.ErrMissingSigningKey) {
			return nil, configErr(err)
		}
		return nil, ErrInvalidToken
	}
	revoked, err := s.revocations.IsRevoked(ctx, accessToken)
	if err != nil {
		s.logger.Error("revocation lookup failed", zap.Error(err))
		return nil, storageErr(err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	sess, err := s.sessions.FindSessionByAccessToken(ctx, accessToken)
	if err != nil {
		s.logger.Error("find session by access token failed", zap.Error(err))
		return nil, storageErr(err)
	}
	if sess == nil || sess.ID != claims.SessionID || sess.UserID != claims.Subject {
		return nil, ErrSessionNotFound
	}
	if !sess.IsActive {
		return nil, ErrSessionInactive
	}
	// The access token may outlive the idle window; the session must not.
	if sess.IsExpired(s.now(), s.idleTimeout) {
		return nil, ErrSessionExpired
	}
	return &Principal{UserID: sess.UserID, SessionID: sess.ID}, nil
}

// deactivateExpired closes the user's sessions that passed the idle window. Failures are logged, not returned.
func (s *AuthService) deactivateExpired(ctx context.Context, userID string, now time.Time) {
	expired, err := s.sessions.FindExpiredSessionsForUser(ctx, userID, s.idleTimeout, now)
	if err != nil {
		s.logger.Warn("find expired sessions failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	for _, sess := range expired {
		if err := s.sessions.DeactivateSession(ctx, sess.ID, now); err != nil {
			s.logger.Warn("deactivate expired session failed", zap.String("user_id", userID), zap.String("session_id", sess.ID), zap.Error(err))
			continue
		}
		s.logger.Debug("expired session deactivated", zap.String("user_id", userID), zap.String("session_id", sess.ID))
	}
}

func (s *AuthService) issue(userID, sessionID string) (string, time.Time, error) {
	token, expiresAt, err := s.tokens.Issue(userID, sessionID)
	if err != nil {
		if errors.Is(err, security.ErrMissingSigningKey) {
			s.logger.Error("token signing key not configured")
			return "", time.Time{}, configErr(err)
		}
		s.logger.Error("issue access token failed", zap.String("user_id", userID), zap.Error(err))
		return "", time.Time{}, fmt.Errorf("issue access token: %w", err)
	}
	return token, expiresAt, nil
}

func (s *AuthService) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash([]byte(uuid.NewString()))
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func (s *AuthService) emit(ctx context.Context, event *telemetry.Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}
	telemetry.EmitAsync(ctx, s.events, event)
}

func (s *AuthService) finish(ctx context.Context, span trace.Span, operation string, err error) {
	result := outcome(err)
	span.SetAttributes(attribute.String("auth.outcome", result))
	if unexpected(err) {
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	span.End()
	s.operations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", result),
	))
}
