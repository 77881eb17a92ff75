package service

import (
	"context"
	"fmt"
	"time"

	"kovorka/internal/domain"
	"kovorka/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionManager owns the session lifecycle: login mints a token against the
// authority's credentials, resolve turns a token back into an identity, and
// logout drops it. Identity travels as an explicit Session value, never as
// process state.
type SessionManager struct {
	authority domain.Authority
	repo      domain.SessionRepository
	ttl       time.Duration
	logger    *zerolog.Logger
}

func NewSessionManager(authority domain.Authority, repo domain.SessionRepository, ttl time.Duration, logger *zerolog.Logger) *SessionManager {
	if ttl <= 0 {
		ttl = time.Duration(models.DefaultSessionTTL) * time.Second
	}
	return &SessionManager{authority: authority, repo: repo, ttl: ttl, logger: logger}
}

// Login verifies credentials with the authority and stores a fresh session.
func (m *SessionManager) Login(ctx context.Context, username, password string) (*models.Session, error) {
	if username == "" || password == "" {
		return nil, &models.ValidationError{Reason: "username and password are required"}
	}
	userID, name, isAdmin, err := m.authority.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &models.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Name:      name,
		IsAdmin:   isAdmin,
		CreatedAt: now,
		LastSeen:  now,
	}
	if err := m.repo.SetSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	m.logger.Info().Int64("user_id", userID).Bool("is_admin", isAdmin).Msg("user logged in")
	return sess, nil
}

// Resolve maps a token to its session and refreshes the activity mark. An
// unknown or expired token resolves to ErrUnauthorized.
func (m *SessionManager) Resolve(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, models.ErrUnauthorized
	}
	sess, err := m.repo.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, models.ErrUnauthorized
	}

	sess.LastSeen = time.Now()
	if err := m.repo.SetSession(ctx, sess); err != nil {
		m.logger.Warn().Err(err).Msg("failed to refresh session activity")
	}
	return sess, nil
}

// Logout removes the session. Logging out an unknown token succeeds.
func (m *SessionManager) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.repo.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// CheckRateLimit applies the per-session request budget.
func (m *SessionManager) CheckRateLimit(ctx context.Context, token string, limit int, window time.Duration) (bool, error) {
	return m.repo.CheckRateLimit(ctx, token, limit, window)
}
