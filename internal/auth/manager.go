// Package auth manages login sessions and the Google OAuth token proxy.
//
// Sessions are uuid-keyed bearer tokens with a TTL, held in memory and
// persisted to sessions.json under the home directory so a restart keeps
// active logins. All session access goes through the single Manager.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yosihaf/wikibook/internal/users"
)

// ErrInvalidCredentials is returned for a bad username or password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrNotAuthenticated is returned for a missing, unknown, or expired
// session token.
var ErrNotAuthenticated = errors.New("not authenticated")

// DefaultSessionTTL is how long a session stays valid.
const DefaultSessionTTL = 24 * time.Hour

// Manager owns all login sessions for the process.
type Manager struct {
	users  *users.Manager
	path   string
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager. path is the sessions.json
// location; Init must be called before use.
func NewManager(userMgr *users.Manager, path string, ttl time.Duration, logger *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{
		users:    userMgr,
		path:     path,
		ttl:      ttl,
		logger:   logger.With("component", "auth"),
		sessions: make(map[string]*Session),
	}
}

// HashPassword returns the hex SHA-256 digest of a password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Init loads persisted sessions, dropping any that expired while the
// process was down.
func (m *Manager) Init() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading sessions file: %w", err)
	}

	var stored []*Session
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parsing sessions file: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	loaded := 0
	for _, s := range stored {
		if s.Expired() {
			continue
		}
		m.sessions[s.Token] = s
		loaded++
	}
	if loaded > 0 {
		m.logger.Info("restored sessions", "count", loaded)
	}
	return nil
}

// Login authenticates a user and issues a new session.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := m.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	hash := HashPassword(password)
	if subtle.ConstantTimeCompare([]byte(hash), []byte(user.PasswordHash)) != 1 {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	session := &Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[session.Token] = session
	err = m.persistLocked()
	m.mu.Unlock()
	if err != nil {
		m.logger.Warn("failed to persist sessions", "error", err)
	}

	if err := m.users.TouchLastLogin(ctx, user.ID); err != nil {
		m.logger.Warn("failed to record last login", "user", username, "error", err)
	}

	m.logger.Info("user logged in", "user", username)
	return session, nil
}

// Logout invalidates a session token. Unknown tokens are a no-op.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	session, ok := m.sessions[token]
	if ok {
		delete(m.sessions, token)
	}
	err := m.persistLocked()
	m.mu.Unlock()
	if err != nil {
		m.logger.Warn("failed to persist sessions", "error", err)
	}
	if ok {
		m.logger.Info("user logged out", "user", session.Username)
	}
}

// Session returns the live session for a token.
func (m *Manager) Session(token string) (*Session, error) {
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	m.mu.RLock()
	session, ok := m.sessions[token]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	if session.Expired() {
		m.mu.Lock()
		delete(m.sessions, token)
		err := m.persistLocked()
		m.mu.Unlock()
		if err != nil {
			m.logger.Warn("failed to persist sessions", "error", err)
		}
		return nil, ErrNotAuthenticated
	}
	return session, nil
}

// UserFor resolves a session token to its full user record.
func (m *Manager) UserFor(ctx context.Context, token string) (*users.User, error) {
	session, err := m.Session(token)
	if err != nil {
		return nil, err
	}
	user, err := m.users.Get(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolving session user: %w", err)
	}
	return user, nil
}

// persistLocked writes all sessions to disk. Callers hold m.mu.
func (m *Manager) persistLocked() error {
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o600)
}
