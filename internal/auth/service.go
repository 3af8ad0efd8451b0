package auth

import (
	"context"
	"errors"
	"time"

	"github.com/2beens/orderbox/internal/telemetry/metrics"
	"github.com/2beens/orderbox/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrWrongCredentials = errors.New("wrong credentials")
	ErrSessionNotFound  = errors.New("session not found")
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Service struct {
	admins   *AdminStore
	sessions *SessionRegistry
	metrics  *metrics.Manager
}

func NewAuthService(
	admins *AdminStore,
	sessions *SessionRegistry,
	metricsManager *metrics.Manager,
) *Service {
	return &Service{
		admins:   admins,
		sessions: sessions,
		metrics:  metricsManager,
	}
}

// Login checks the credentials and opens a new session, returning its token.
func (s *Service) Login(ctx context.Context, creds Credentials, now time.Time) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "authService.login")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if !s.admins.Verify(ctx, creds.Username, creds.Password) {
		s.metrics.CounterLoginAttempts.WithLabelValues("wrong-credentials").Inc()
		return "", ErrWrongCredentials
	}

	token, err := s.sessions.Create(creds.Username, now)
	if err != nil {
		s.metrics.CounterLoginAttempts.WithLabelValues("error").Inc()
		return "", err
	}

	s.metrics.CounterLoginAttempts.WithLabelValues("ok").Inc()
	s.metrics.GaugeSessions.Set(float64(s.sessions.Len()))

	return token, nil
}

// Logout revokes the session behind token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) {
	_, span := tracing.GlobalTracer.Start(ctx, "authService.logout")
	defer span.End()

	if _, ok := s.sessions.Lookup(token); !ok {
		log.Tracef("logout for unknown session token")
	}
	s.sessions.Revoke(token)
	s.metrics.GaugeSessions.Set(float64(s.sessions.Len()))
	span.SetStatus(codes.Ok, "ok")
}

func (s *Service) Session(ctx context.Context, token string) (*Session, error) {
	_, span := tracing.GlobalTracer.Start(ctx, "authService.session")
	defer span.End()

	session, ok := s.sessions.Lookup(token)
	if !ok {
		span.SetStatus(codes.Error, "not-found")
		return nil, ErrSessionNotFound
	}

	span.SetStatus(codes.Ok, "ok")
	return &session, nil
}
