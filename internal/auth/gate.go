// Package auth is the single shared admin password with a time-boxed session.
package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/game-schedule/schedule-backend/internal/logging"
	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
)

const (
	// DefaultPassword applies until an override is stored.
	DefaultPassword = "admin123"
	// SessionTTL is how long a stamped session stays valid.
	SessionTTL = 24 * time.Hour
)

// SessionStore keeps the password override and the session stamp. The local
// cache satisfies it.
type SessionStore interface {
	AdminPassword(ctx context.Context) (string, bool)
	SetAdminPassword(ctx context.Context, password string) error
	SessionStamp(ctx context.Context) (time.Time, bool)
	SetSessionStamp(ctx context.Context, t time.Time) error
	ClearSession(ctx context.Context) error
}

type Gate struct {
	store SessionStore
	now   func() time.Time
	log   *logging.Logger
}

func NewGate(store SessionStore) *Gate {
	return &Gate{
		store: store,
		now:   time.Now,
		log:   logging.New("auth"),
	}
}

// WithClock overrides the clock, for tests.
func (g *Gate) WithClock(now func() time.Time) *Gate {
	g.now = now
	return g
}

// Authenticate stamps a fresh session when password matches the stored
// override (or the default). A mismatch leaves the session untouched.
func (g *Gate) Authenticate(ctx context.Context, password string) error {
	expected := g.currentPassword(ctx)
	if subtle.ConstantTimeCompare([]byte(password), []byte(expected)) != 1 {
		g.log.FromContext(ctx).LogWarn("authenticate", "rejected admin password")
		return domain.ErrInvalidPassword
	}
	if err := g.store.SetSessionStamp(ctx, g.now()); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	g.log.FromContext(ctx).LogInfo("authenticate", "admin session started")
	return nil
}

// IsAuthenticated reports whether a session was stamped within SessionTTL.
// An expired stamp is removed.
func (g *Gate) IsAuthenticated(ctx context.Context) bool {
	stamp, ok := g.store.SessionStamp(ctx)
	if !ok {
		return false
	}
	if g.now().Sub(stamp) > SessionTTL {
		_ = g.store.ClearSession(ctx)
		return false
	}
	return true
}

// ExpiresAt returns when the current session lapses, or false without one.
func (g *Gate) ExpiresAt(ctx context.Context) (time.Time, bool) {
	if !g.IsAuthenticated(ctx) {
		return time.Time{}, false
	}
	stamp, ok := g.store.SessionStamp(ctx)
	if !ok {
		return time.Time{}, false
	}
	return stamp.Add(SessionTTL), true
}

func (g *Gate) Logout(ctx context.Context) error {
	return g.store.ClearSession(ctx)
}

// SetPassword stores a new override. It is kept in plain text; blank
// passwords are rejected.
func (g *Gate) SetPassword(ctx context.Context, password string) error {
	if strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: password must not be empty", domain.ErrInvalidPassword)
	}
	return g.store.SetAdminPassword(ctx, password)
}

func (g *Gate) HasCustomPassword(ctx context.Context) bool {
	pw, ok := g.store.AdminPassword(ctx)
	return ok && pw != ""
}

func (g *Gate) DefaultPassword() string { return DefaultPassword }

func (g *Gate) currentPassword(ctx context.Context) string {
	if pw, ok := g.store.AdminPassword(ctx); ok && pw != "" {
		return pw
	}
	return DefaultPassword
}
