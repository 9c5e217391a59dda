// Package usecase wires the domain pipeline: session lifecycle, microphone
// capture, query submission and answer playback.
package usecase

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/lazypandaa/gramvaani-client/domain/entities"
	"github.com/lazypandaa/gramvaani-client/domain/repositories"
)

// SessionService owns the single process-wide session. It is the only writer
// of the bearer token; the request client reads it through the TokenSource
// interface.
type SessionService struct {
	backend repositories.Backend
	store   repositories.TokenStore
	logger  *zap.Logger

	mu      sync.RWMutex
	session entities.Session
}

// Ensure SessionService implements the TokenSource interface
var _ repositories.TokenSource = (*SessionService)(nil)

func NewSessionService(backend repositories.Backend, store repositories.TokenStore, logger *zap.Logger) *SessionService {
	return &SessionService{
		backend: backend,
		store:   store,
		logger:  logger,
	}
}

// Token returns the current bearer token, or "" when logged out.
func (s *SessionService) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

// Authenticated reports whether a validated session is active.
func (s *SessionService) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Authenticated
}

// CurrentUser returns a copy of the authenticated profile, or nil.
func (s *SessionService) CurrentUser() *entities.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session.User == nil {
		return nil
	}
	user := *s.session.User
	return &user
}

// Validate restores the session from the persisted token. A missing token or
// a failed profile fetch leaves the service logged out with the stale token
// cleared.
func (s *SessionService) Validate(ctx context.Context) (*entities.User, error) {
	token, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load stored token: %w", err)
	}
	if token == "" {
		return nil, entities.ErrNotAuthenticated
	}

	s.setToken(token)
	user, err := s.backend.Me(ctx)
	if err != nil {
		s.logger.Info("Stored token rejected, clearing session", zap.Error(err))
		s.clear()
		if clearErr := s.store.Clear(); clearErr != nil {
			s.logger.Warn("Failed to clear stored token", zap.Error(clearErr))
		}
		return nil, err
	}

	s.setUser(user)
	s.logger.Info("Session restored", zap.String("email", user.Email))
	return user, nil
}

// Login exchanges credentials for a token, fetches the profile and persists
// the token on success.
func (s *SessionService) Login(ctx context.Context, creds entities.Credentials) (*entities.User, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	token, err := s.backend.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, token)
}

// Signup registers a new profile and establishes the session like Login.
func (s *SessionService) Signup(ctx context.Context, profile entities.SignupProfile) (*entities.User, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	token, err := s.backend.Signup(ctx, profile)
	if err != nil {
		return nil, err
	}
	return s.establish(ctx, token)
}

func (s *SessionService) establish(ctx context.Context, token string) (*entities.User, error) {
	s.setToken(token)
	user, err := s.backend.Me(ctx)
	if err != nil {
		s.clear()
		return nil, err
	}
	s.setUser(user)
	if err := s.store.Save(token); err != nil {
		s.logger.Warn("Failed to persist token", zap.Error(err))
	}
	s.logger.Info("Session established", zap.String("email", user.Email))
	return user, nil
}

// UpdateProfile saves profile changes and refreshes the cached user.
func (s *SessionService) UpdateProfile(ctx context.Context, user entities.User) (*entities.User, error) {
	if !s.Authenticated() {
		return nil, entities.ErrNotAuthenticated
	}
	updated, err := s.backend.UpdateProfile(ctx, user)
	if err != nil {
		return nil, err
	}
	s.setUser(updated)
	return updated, nil
}

// QueryHistory returns the user's past queries, newest first as served by the
// backend.
func (s *SessionService) QueryHistory(ctx context.Context) ([]entities.QueryRecord, error) {
	if !s.Authenticated() {
		return nil, entities.ErrNotAuthenticated
	}
	return s.backend.UserQueries(ctx)
}

// Logout clears the session and removes the persisted token.
func (s *SessionService) Logout() error {
	s.clear()
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear stored token: %w", err)
	}
	s.logger.Info("Logged out")
	return nil
}

// Invalidate drops the session after the backend rejected its token. The
// persisted copy is removed so restart does not resurrect it.
func (s *SessionService) Invalidate() {
	s.clear()
	if err := s.store.Clear(); err != nil {
		s.logger.Warn("Failed to clear stored token", zap.Error(err))
	}
	s.logger.Info("Session invalidated")
}

func (s *SessionService) setToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = entities.Session{Token: token}
}

func (s *SessionService) setUser(user *entities.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.User = user
	s.session.Authenticated = true
}

func (s *SessionService) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = entities.Session{}
}
