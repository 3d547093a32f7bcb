package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/BearBump/DriverPortal/internal/cache"
	"github.com/BearBump/DriverPortal/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const DefaultKey = "portal:session"

type AuthClient interface {
	Login(ctx context.Context, c models.Credentials) (models.Session, error)
}

// Store holds the driver session of this portal instance. The session lives in
// memory and is mirrored to storage so it survives restarts (see Restore).
type Store struct {
	auth    AuthClient
	storage cache.BytesCache
	key     string
	ttl     time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	current *models.Session
}

func New(auth AuthClient, storage cache.BytesCache, key string, ttl time.Duration) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{auth: auth, storage: storage, key: key, ttl: ttl, now: time.Now}
}

// Restore loads a previously stored session. A missing or unreadable record leaves the store logged out.
func (s *Store) Restore(ctx context.Context) error {
	if s.storage == nil {
		return nil
	}
	b, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		return errors.Wrap(err, "load session")
	}
	if !ok {
		s.reset()
		return nil
	}
	var st storedSession
	if err := json.Unmarshal(b, &st); err != nil || st.AccessToken == "" {
		slog.Warn("stored session is unreadable, ignoring", "key", s.key)
		s.reset()
		return nil
	}
	sess := st.toModel()

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	return nil
}

func (s *Store) Login(ctx context.Context, c models.Credentials) (models.Session, error) {
	if err := Validate(c); err != nil {
		return models.Session{}, err
	}
	sess, err := s.auth.Login(ctx, c)
	if err != nil {
		return models.Session{}, err
	}
	if sess.AccessToken == "" {
		return models.Session{}, errors.Wrap(ErrRejected, "empty access token")
	}
	if sess.TenantID == "" {
		sess.TenantID = c.TenantID
	}
	sess.LoggedInAt = s.now().UTC()

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()

	if s.storage != nil {
		if err := s.persist(ctx, sess); err != nil {
			// сессия всё равно рабочая, просто не переживёт рестарт
			slog.Warn("persist session", "error", err.Error())
		}
	}
	return sess, nil
}

func (s *Store) persist(ctx context.Context, sess models.Session) error {
	b, err := json.Marshal(fromModel(sess))
	if err != nil {
		return errors.Wrap(err, "marshal session")
	}
	return errors.Wrap(s.storage.Set(ctx, s.key, b, s.ttl), "store session")
}

// Logout forgets the session in memory first, then removes the stored copy.
func (s *Store) Logout(ctx context.Context) error {
	s.reset()

	if s.storage == nil {
		return nil
	}
	return errors.Wrap(s.storage.Delete(ctx, s.key), "delete session")
}

func (s *Store) reset() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

func (s *Store) GetAccessToken() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.current.AccessToken == "" {
		return "", false
	}
	return s.current.AccessToken, true
}

// IsAuthenticated is true when a token is present and, for JWTs with an exp claim, not expired.
// Opaque tokens are trusted until logout.
func (s *Store) IsAuthenticated() bool {
	tok, ok := s.GetAccessToken()
	if !ok {
		return false
	}
	exp, ok := tokenExpiry(tok)
	if !ok {
		return true
	}
	return s.now().Before(exp)
}

func (s *Store) Current() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.Session{}, false
	}
	return *s.current, true
}

// tokenExpiry reads exp without verifying the signature: the portal API owns the key.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

type storedSession struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	TenantID     string       `json:"tenant_id"`
	Driver       storedDriver `json:"user"`
	LoggedInAt   time.Time    `json:"logged_in_at"`
}

type storedDriver struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
	Code   string `json:"code"`
	Gender string `json:"gender"`
}

func fromModel(s models.Session) storedSession {
	return storedSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TenantID:     s.TenantID,
		Driver:       storedDriver(s.Driver),
		LoggedInAt:   s.LoggedInAt,
	}
}

func (s storedSession) toModel() models.Session {
	return models.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TenantID:     s.TenantID,
		Driver:       models.Driver(s.Driver),
		LoggedInAt:   s.LoggedInAt,
	}
}
