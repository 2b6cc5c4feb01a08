package session

import (
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cardiacai/riskengine/internal/pkg/logger"
)

const testSecret = "test-secret"

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "session.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func testCredentials(t *testing.T) Credentials {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("health123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return NewCredentials("admin@cardiacai.local", string(hash))
}

func TestLoginAndLogout(t *testing.T) {
	m, err := NewManager(testDB(t), testCredentials(t), testSecret, time.Hour, logger.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if m.Current() != nil {
		t.Fatal("fresh manager should be logged out")
	}

	if _, err := m.Login("admin@cardiacai.local", "wrong"); err != ErrInvalidCredentials {
		t.Fatalf("err=%v want ErrInvalidCredentials", err)
	}

	sess, err := m.Login("Admin@CardiacAI.local", "health123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !sess.Active() {
		t.Fatal("session should be active")
	}
	if m.Current() == nil {
		t.Fatal("Current should return the session")
	}

	if err := m.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if m.Current() != nil {
		t.Fatal("session should be destroyed after logout")
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	db := testDB(t)
	creds := testCredentials(t)

	m1, err := NewManager(db, creds, testSecret, time.Hour, logger.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m1.Login("admin@cardiacai.local", "health123"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	// Same database, new process.
	m2, err := NewManager(db, creds, testSecret, time.Hour, logger.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	sess := m2.Current()
	if sess == nil {
		t.Fatal("session should hydrate from storage")
	}
	if sess.Email != "admin@cardiacai.local" {
		t.Fatalf("email=%q", sess.Email)
	}
}

func TestMalformedPersistedTokenIsDiscarded(t *testing.T) {
	db := testDB(t)

	if _, err := NewManager(db, testCredentials(t), testSecret, time.Hour, logger.Nop()); err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := db.Exec(
		`INSERT OR REPLACE INTO admin_session (key, token, updated_at) VALUES ('admin_session', 'garbage-token', '2025-01-01')`,
	).Error; err != nil {
		t.Fatalf("insert garbage: %v", err)
	}

	m, err := NewManager(db, testCredentials(t), testSecret, time.Hour, logger.Nop())
	if err != nil {
		t.Fatalf("NewManager must tolerate garbage tokens: %v", err)
	}
	if m.Current() != nil {
		t.Fatal("garbage token must hydrate as logged out")
	}
}

func TestTokenSignedWithDifferentSecretRejected(t *testing.T) {
	db := testDB(t)
	creds := testCredentials(t)

	m1, err := NewManager(db, creds, "other-secret", time.Hour, logger.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := m1.Login("admin@cardiacai.local", "health123"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	m2, err := NewManager(db, creds, testSecret, time.Hour, logger.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m2.Current() != nil {
		t.Fatal("token signed with a different secret must not hydrate")
	}
}

func TestEmptyCredentialsDenyEverything(t *testing.T) {
	creds := NewCredentials("", "")
	if creds.Verify("", "") || creds.Verify("a@b.c", "pw") {
		t.Fatal("empty credentials must deny all logins")
	}
}
