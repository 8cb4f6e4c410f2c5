package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"vendorrisk/internal/models"

	"go.uber.org/zap"
)

// Session is the immutable login state handed to request-issuing code.
// The zero value is the signed-out session.
type Session struct {
	Token string       `json:"token,omitempty"`
	User  *models.User `json:"user,omitempty"`
}

// Authenticated reports whether the session carries a token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Storage persists the session between runs.
type Storage interface {
	Load() (Session, error)
	Save(Session) error
	Clear() error
}

// MemoryStorage keeps the session in process memory.
type MemoryStorage struct {
	mu      sync.Mutex
	session Session
}

func (s *MemoryStorage) Load() (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, nil
}

func (s *MemoryStorage) Save(session Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	return nil
}

func (s *MemoryStorage) Clear() error {
	return s.Save(Session{})
}

// FileStorage keeps the session as a JSON document readable only by the
// owner.
type FileStorage struct {
	Path string
}

// Load reads the stored session. A missing file is the signed-out session;
// an unreadable one is discarded.
func (s FileStorage) Load() (Session, error) {
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Session{}, nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}
	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return Session{}, s.Clear()
	}
	return session, nil
}

func (s FileStorage) Save(session Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(s.Path, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s FileStorage) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// SessionManager owns the current session. Login, Register, Refresh and
// Invalidate are the only ways to change it.
type SessionManager struct {
	baseURL   string
	storage   Storage
	logger    *zap.Logger
	clientFor func(Session) *Client

	mu      sync.RWMutex
	current Session
}

// NewSessionManager restores the stored session, if any.
func NewSessionManager(baseURL string, storage Storage, logger *zap.Logger) (*SessionManager, error) {
	session, err := storage.Load()
	if err != nil {
		return nil, err
	}
	m := &SessionManager{
		baseURL: baseURL,
		storage: storage,
		logger:  logger,
		current: session,
	}
	m.clientFor = func(s Session) *Client { return NewClient(m.baseURL, s) }
	return m, nil
}

// Current returns the active session.
func (m *SessionManager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Client returns an API client bound to the active session.
func (m *SessionManager) Client() *Client {
	return m.clientFor(m.Current())
}

// Login signs in and stores the new session.
func (m *SessionManager) Login(ctx context.Context, email, password string) (Session, error) {
	res, err := m.clientFor(Session{}).Login(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return m.replace(Session{Token: res.Token, User: &res.User})
}

// Register creates an account and signs in as it.
func (m *SessionManager) Register(ctx context.Context, email, password string) (Session, error) {
	res, err := m.clientFor(Session{}).Register(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return m.replace(Session{Token: res.Token, User: &res.User})
}

// Refresh re-validates the token against the server and updates the stored
// profile. A rejected token signs the session out.
func (m *SessionManager) Refresh(ctx context.Context) (Session, error) {
	current := m.Current()
	if !current.Authenticated() {
		return current, nil
	}
	user, err := m.clientFor(current).Me(ctx)
	if errors.Is(err, ErrUnauthorized) {
		m.logger.Info("stored session rejected, signing out")
		if clearErr := m.Invalidate(); clearErr != nil {
			return Session{}, clearErr
		}
		return Session{}, err
	}
	if err != nil {
		return current, err
	}
	return m.replace(Session{Token: current.Token, User: user})
}

// Invalidate signs out.
func (m *SessionManager) Invalidate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = Session{}
	return m.storage.Clear()
}

func (m *SessionManager) replace(s Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.storage.Save(s); err != nil {
		return Session{}, err
	}
	m.current = s
	return s, nil
}
