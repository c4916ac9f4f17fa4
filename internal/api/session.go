package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jmagar/bookbeat-cli/internal/model"
)

// TokenStore persists the session token between runs. Save is called after
// every successful login or refresh.
type TokenStore interface {
	Load() (*model.AuthToken, error)
	Save(token model.AuthToken) error
}

// SessionManager acquires, restores and refreshes session tokens.
type SessionManager struct {
	client *Client
	store  TokenStore
	logger *slog.Logger
	now    func() time.Time
}

// NewSessionManager returns a manager that persists tokens to store.
// store and logger may be nil.
func NewSessionManager(client *Client, store TokenStore, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = discardLogger()
	}
	return &SessionManager{
		client: client,
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Session holds the one live token of an authenticated client. It is safe
// for concurrent use: readers never observe a half-replaced token and
// concurrent refreshes collapse into one.
type Session struct {
	manager *SessionManager

	mu    sync.RWMutex
	token model.AuthToken

	refreshMu sync.Mutex
}

// Login checks the service status and exchanges credentials for a token.
// No login request is sent when the status is not healthy.
func (m *SessionManager) Login(ctx context.Context, creds model.Credentials) (*Session, error) {
	state, err := m.status(ctx)
	if err != nil {
		return nil, err
	}
	if state != model.StatusHealthy {
		m.logger.Warn("service unhealthy, login skipped", "state", state)
		return nil, &StatusError{State: state}
	}

	now := m.now()
	resp, err := call[model.LoginResponse](ctx, m.client, request{
		label:  "login",
		method: http.MethodPost,
		url:    m.client.endpoints.Login,
		body:   model.LoginRequest{Username: creds.Username, Password: creds.Password},
	})
	if err != nil {
		return nil, fmt.Errorf("login as %s: %w", creds.Username, err)
	}

	s := &Session{manager: m, token: model.NewAuthToken(resp, now)}
	m.logger.Info("logged in", "username", creds.Username, "expires", s.token.Expiration)
	m.persist(s.token)
	return s, nil
}

// Restore wraps a previously persisted token without logging in. An expired
// token is refreshed exactly once before Restore returns.
func (m *SessionManager) Restore(ctx context.Context, token model.AuthToken) (*Session, error) {
	s := &Session{manager: m, token: token}
	if token.Valid(m.now()) {
		m.logger.Debug("restored session", "expires", token.Expiration)
		return s, nil
	}
	m.logger.Info("stored token expired, refreshing", "expired", token.Expiration)
	if err := m.Refresh(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh exchanges the session's refresh token for a new token and replaces
// the current one as a whole. Failures are returned, never retried.
func (m *SessionManager) Refresh(ctx context.Context, s *Session) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return m.refreshLocked(ctx, s)
}

func (m *SessionManager) refreshLocked(ctx context.Context, s *Session) error {
	current := s.Token()
	now := m.now()
	resp, err := call[model.LoginResponse](ctx, m.client, request{
		label:  "refresh",
		method: http.MethodPost,
		url:    m.client.endpoints.Refresh,
		body:   model.RefreshRequest{RefreshToken: current.RefreshToken},
	})
	if err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	token := model.NewAuthToken(resp, now)

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	m.logger.Info("token refreshed", "expires", token.Expiration)
	m.persist(token)
	return nil
}

func (m *SessionManager) status(ctx context.Context) (string, error) {
	st, err := call[model.Status](ctx, m.client, request{
		label:  "status",
		method: http.MethodGet,
		url:    m.client.endpoints.Status,
	})
	if err != nil {
		return "", fmt.Errorf("service status: %w", err)
	}
	return st.Type, nil
}

func (m *SessionManager) persist(token model.AuthToken) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(token); err != nil {
		m.logger.Warn("failed to persist token", "error", err)
	}
}

// Token returns a snapshot of the current token.
func (s *Session) Token() model.AuthToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authorize returns the Authorization header value to use right now,
// refreshing first if the token has expired.
func (s *Session) Authorize(ctx context.Context) (string, error) {
	token := s.Token()
	if token.Valid(s.manager.now()) {
		return token.Token, nil
	}
	if err := s.refreshFrom(ctx, token.Token); err != nil {
		return "", err
	}
	return s.Token().Token, nil
}

// refreshFrom refreshes unless another caller already replaced the stale
// bearer with a valid one while we waited for the lock.
func (s *Session) refreshFrom(ctx context.Context, stale string) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	current := s.Token()
	if current.Token != stale && current.Valid(s.manager.now()) {
		return nil
	}
	return s.manager.refreshLocked(ctx, s)
}

// authGet issues an authenticated GET. A 401 answer triggers one refresh and
// exactly one retry of the request.
func authGet[T any](ctx context.Context, s *Session, label, rawURL string, query url.Values) (*T, error) {
	bearer, err := s.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	r := request{
		label:         label,
		method:        http.MethodGet,
		url:           rawURL,
		query:         query,
		authorization: bearer,
	}
	obj, err := call[T](ctx, s.manager.client, r)
	if err == nil || !IsAuthRejected(err) {
		return obj, err
	}

	s.manager.logger.Info("request rejected as unauthorized, refreshing once", "label", label)
	if rerr := s.refreshFrom(ctx, bearer); rerr != nil {
		return nil, rerr
	}
	r.authorization = s.Token().Token
	return call[T](ctx, s.manager.client, r)
}
