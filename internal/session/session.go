// Package session manages the admin session that gates the monitoring
// dashboard. The session is an explicit object with its own lifecycle —
// created on login, destroyed on logout — and survives restarts as a signed
// token in the local database.
package session

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/cardiacai/riskengine/internal/pkg/logger"
)

var ErrInvalidCredentials = errors.New("invalid admin credentials")
var ErrNotLoggedIn = errors.New("no active admin session")

// Credentials is the external identity collaborator: the engine only asks
// whether an email/password pair identifies the admin.
type Credentials interface {
	Verify(email, password string) bool
}

type bcryptCredentials struct {
	email        string
	passwordHash string
}

// NewCredentials returns a Credentials backed by a bcrypt password hash.
// An empty email or hash denies everything.
func NewCredentials(email, passwordHash string) Credentials {
	return &bcryptCredentials{
		email:        strings.TrimSpace(strings.ToLower(email)),
		passwordHash: strings.TrimSpace(passwordHash),
	}
}

func (c *bcryptCredentials) Verify(email, password string) bool {
	if c.email == "" || c.passwordHash == "" {
		return false
	}
	supplied := strings.TrimSpace(strings.ToLower(email))
	emailOK := subtle.ConstantTimeCompare([]byte(supplied), []byte(c.email)) == 1
	passOK := bcrypt.CompareHashAndPassword([]byte(c.passwordHash), []byte(password)) == nil
	return emailOK && passOK
}

// Session represents one active admin login.
type Session struct {
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (s *Session) Active() bool {
	return s != nil && time.Now().Before(s.ExpiresAt)
}

// record is the persisted form: a single-row table holding the signed token.
type record struct {
	Key       string `gorm:"primaryKey"`
	Token     string
	UpdatedAt time.Time
}

func (record) TableName() string { return "admin_session" }

const recordKey = "admin_session"

// Manager owns the current session and its persistence.
type Manager struct {
	db     *gorm.DB
	creds  Credentials
	secret []byte
	ttl    time.Duration
	log    *logger.Logger

	mu      sync.Mutex
	current *Session
}

func NewManager(db *gorm.DB, creds Credentials, secret string, ttl time.Duration, log *logger.Logger) (*Manager, error) {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}

	if err := db.AutoMigrate(&record{}); err != nil {
		return nil, fmt.Errorf("migrate session table: %w", err)
	}

	m := &Manager{
		db:     db,
		creds:  creds,
		secret: []byte(secret),
		ttl:    ttl,
		log:    log.With("component", "session"),
	}
	m.hydrate()
	return m, nil
}

// hydrate restores a persisted session. Anything malformed, unsigned, or
// expired is treated as logged out; hydration never fails startup.
func (m *Manager) hydrate() {
	var rec record
	if err := m.db.First(&rec, "key = ?", recordKey).Error; err != nil {
		return
	}

	sess, err := m.parseToken(rec.Token)
	if err != nil {
		m.log.Warn("discarding persisted admin session", "error", err)
		m.db.Delete(&record{}, "key = ?", recordKey)
		return
	}
	m.current = sess
	m.log.Info("restored admin session", "email", sess.Email, "expires_at", sess.ExpiresAt)
}

// Login verifies credentials and establishes a fresh session, replacing any
// previous one. The session is persisted before it becomes visible.
func (m *Manager) Login(email, password string) (*Session, error) {
	if !m.creds.Verify(email, password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	sess := &Session{
		Email:     strings.TrimSpace(strings.ToLower(email)),
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sess.Email,
		IssuedAt:  jwt.NewNumericDate(sess.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	rec := record{Key: recordKey, Token: signed, UpdatedAt: now}
	if err := m.db.Save(&rec).Error; err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	m.mu.Lock()
	m.current = sess
	m.mu.Unlock()
	m.log.Info("admin login", "email", sess.Email)
	return sess, nil
}

// Logout destroys the current session and its persisted token.
func (m *Manager) Logout() error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := m.db.Delete(&record{}, "key = ?", recordKey).Error; err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}
	m.log.Info("admin logout")
	return nil
}

// Current returns the active session, or nil when logged out or expired.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && !m.current.Active() {
		m.current = nil
	}
	return m.current
}

func (m *Manager) parseToken(raw string) (*Session, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.ExpiresAt == nil {
		return nil, errors.New("token invalid")
	}

	sess := &Session{
		Email:     claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		sess.IssuedAt = claims.IssuedAt.Time
	}
	if !sess.Active() {
		return nil, errors.New("token expired")
	}
	return sess, nil
}
