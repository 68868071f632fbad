package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aafarian/hantibink-sub003/internal/api"
	"github.com/aafarian/hantibink-sub003/internal/domain/model"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Store persists the session between launches (the device-storage slot).
type Store interface {
	Save(session model.Session) error
	Load() (model.Session, bool, error)
	Clear() error
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (api.SessionPayload, error)
	Me(ctx context.Context) (api.ProfileRecord, error)
}

// Manager is the app-wide auth state, passed to whoever needs identity
// instead of living in an ambient singleton.
type Manager struct {
	auth  Authenticator
	store Store
	log   *zap.Logger
	now   func() time.Time

	mu      sync.RWMutex
	current model.Session
	profile model.Profile
}

func NewManager(auth Authenticator, store Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		auth:  auth,
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Restore loads a persisted session, if any. It does not hit the network.
func (m *Manager) Restore() (bool, error) {
	if m.store == nil {
		return false, nil
	}
	session, ok, err := m.store.Load()
	if err != nil {
		return false, fmt.Errorf("load persisted session: %w", err)
	}
	if !ok || !session.Valid() {
		return false, nil
	}

	m.mu.Lock()
	m.current = session
	m.mu.Unlock()
	return true, nil
}

func (m *Manager) LogIn(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return ErrValidation
	}

	payload, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return m.Adopt(payload)
}

// Adopt installs a freshly issued session (login or completed registration)
// and persists it.
func (m *Manager) Adopt(payload api.SessionPayload) error {
	session := model.Session{
		UserID:       payload.UserID,
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		IssuedAt:     m.now(),
	}
	if !session.Valid() {
		return fmt.Errorf("%w: session payload missing user or token", ErrValidation)
	}

	m.mu.Lock()
	m.current = session
	m.profile = profileFromRecord(payload.User)
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Save(session); err != nil {
			m.log.Warn("persist session failed", zap.Error(err))
		}
	}
	return nil
}

// RefreshProfile re-reads the signed-in user's profile from the backend.
func (m *Manager) RefreshProfile(ctx context.Context) error {
	m.mu.RLock()
	authed := m.current.Valid()
	m.mu.RUnlock()
	if !authed {
		return ErrNotAuthenticated
	}

	record, err := m.auth.Me(ctx)
	if err != nil {
		return fmt.Errorf("fetch own profile: %w", err)
	}

	m.mu.Lock()
	m.profile = profileFromRecord(record)
	m.mu.Unlock()
	return nil
}

func (m *Manager) LogOut() error {
	m.mu.Lock()
	m.current = model.Session{}
	m.profile = model.Profile{}
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}
	return nil
}

func (m *Manager) Current() (model.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.current.Valid()
}

func (m *Manager) Profile() model.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile
}

func (m *Manager) UserID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.UserID
}

// AccessToken satisfies api.TokenSource.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.AccessToken
}

func profileFromRecord(record api.ProfileRecord) model.Profile {
	photos := make([]model.Photo, 0, len(record.Photos))
	for _, photo := range record.Photos {
		photos = append(photos, model.Photo{URL: photo.URL, IsMain: photo.IsMain})
	}
	return model.Profile{
		ID:       record.ID,
		Name:     record.Name,
		Age:      record.Age,
		Location: record.Location,
		Bio:      record.Bio,
		Photos:   photos,
	}
}
