package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"boostclics/internal/domain"
	"boostclics/internal/logger"
	"boostclics/internal/telegram"
)

// ErrAuthFailed wraps every initData rejection.
var ErrAuthFailed = errors.New("authentication failed")

type InitDataVerifier interface {
	Verify(initData string) (*telegram.Identity, error)
}

type SessionExchanger interface {
	Exchange(ctx context.Context, id *telegram.Identity) (*domain.Session, error)
}

type LoginRecorder interface {
	RecordLogin(ctx context.Context, u *domain.User) error
}

type LoginResult struct {
	Identity *telegram.Identity
	Session  *domain.Session
	// User is nil when login bookkeeping is disabled or failed.
	User *domain.User
}

type AuthService struct {
	verifier  InitDataVerifier
	exchanger SessionExchanger
	users     LoginRecorder
	maxAge    time.Duration
	now       func() time.Time
}

// NewAuthService wires the login flow. users may be nil.
func NewAuthService(v InitDataVerifier, ex SessionExchanger, users LoginRecorder, maxAge time.Duration) *AuthService {
	return &AuthService{
		verifier:  v,
		exchanger: ex,
		users:     users,
		maxAge:    maxAge,
		now:       time.Now,
	}
}

// Login verifies initData and exchanges the asserted identity for a session.
func (s *AuthService) Login(ctx context.Context, initData string) (*LoginResult, error) {
	log := logger.WithContext(ctx)

	id, err := s.verifier.Verify(initData)
	if err == nil {
		err = telegram.CheckFreshness(id, s.now(), s.maxAge)
	}
	if err != nil {
		reason := telegram.Reason(err)
		AuthAttempts.WithLabelValues(reason).Inc()
		log.Warn("init data rejected", "reason", reason)
		return nil, fmt.Errorf("%w: %w", ErrAuthFailed, err)
	}

	session, err := s.exchanger.Exchange(ctx, id)
	if err != nil {
		AuthAttempts.WithLabelValues("exchange_failed").Inc()
		log.Error("session exchange failed", "user_id", id.UserID, "error", err)
		return nil, fmt.Errorf("exchange session: %w", err)
	}

	res := &LoginResult{Identity: id, Session: session}
	if s.users != nil {
		res.User = s.recordLogin(ctx, id)
	}

	AuthAttempts.WithLabelValues("ok").Inc()
	log.Info("user logged in", "user_id", id.UserID)
	return res, nil
}

func (s *AuthService) recordLogin(ctx context.Context, id *telegram.Identity) *domain.User {
	tgID, err := strconv.ParseInt(id.UserID, 10, 64)
	if err != nil {
		return nil
	}

	u := &domain.User{
		TgID:      tgID,
		Username:  id.Username,
		FirstName: id.User.FirstName,
	}
	if err := s.users.RecordLogin(ctx, u); err != nil {
		logger.WithContext(ctx).Warn("failed to record login", "user_id", id.UserID, "error", err)
		return nil
	}
	return u
}
