package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/game-schedule/schedule-backend/internal/logging"
	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
)

// Cache is the best-effort local store. Failures are logged and reported as
// absent values; writes additionally return the error for callers that care.
type Cache struct {
	db   *sql.DB
	keys KeySet
	log  *logging.Logger
	now  func() time.Time
}

// NewCache wraps db. With a remote backend configured the cache runs on the
// fallback key set and mirrors every write to the primary set.
func NewCache(db *sql.DB, remoteConfigured bool) *Cache {
	keys := PrimaryKeys
	if remoteConfigured {
		keys = FallbackKeys
	}
	return &Cache{
		db:   db,
		keys: keys,
		log:  logging.New("local_cache"),
		now:  time.Now,
	}
}

// WithClock overrides the clock used for owner ids.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Keys returns the active key set.
func (c *Cache) Keys() KeySet { return c.keys }

// SaveProject serializes p (dates as ISO-8601) under the project key.
func (c *Cache) SaveProject(ctx context.Context, p *domain.Project) error {
	if p == nil {
		return domain.ErrNoProject
	}
	data, err := json.Marshal(p)
	if err != nil {
		c.log.LogError("save_project", err)
		return fmt.Errorf("failed to marshal project: %w", err)
	}
	if err := c.putMirrored(ctx, c.keys.Project, PrimaryKeys.Project, string(data)); err != nil {
		c.log.FromContext(ctx).LogError("save_project", err)
		return err
	}
	return nil
}

// LoadProject returns the cached project, or false when absent or unreadable.
func (c *Cache) LoadProject(ctx context.Context) (*domain.Project, bool) {
	raw, ok := c.getMirrored(ctx, "load_project", c.keys.Project, PrimaryKeys.Project)
	if !ok {
		return nil, false
	}
	var p domain.Project
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		c.log.FromContext(ctx).LogErrorf("load_project", "cached project is not valid JSON: %v", err)
		return nil, false
	}
	normalize(&p)
	return &p, true
}

// SaveSettings stores the settings blob.
func (c *Cache) SaveSettings(ctx context.Context, s domain.Settings) error {
	data, err := json.Marshal(s)
	if err != nil {
		c.log.LogError("save_settings", err)
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := c.putMirrored(ctx, c.keys.Settings, PrimaryKeys.Settings, string(data)); err != nil {
		c.log.FromContext(ctx).LogError("save_settings", err)
		return err
	}
	return nil
}

// LoadSettings returns the stored settings blob, or false.
func (c *Cache) LoadSettings(ctx context.Context) (domain.Settings, bool) {
	raw, ok := c.getMirrored(ctx, "load_settings", c.keys.Settings, PrimaryKeys.Settings)
	if !ok {
		return domain.Settings{}, false
	}
	var s domain.Settings
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		c.log.FromContext(ctx).LogErrorf("load_settings", "cached settings are not valid JSON: %v", err)
		return domain.Settings{}, false
	}
	return s, true
}

// SetAdminPassword stores the admin password override in plain text.
func (c *Cache) SetAdminPassword(ctx context.Context, password string) error {
	if err := c.putMirrored(ctx, c.keys.AdminPassword, PrimaryKeys.AdminPassword, password); err != nil {
		c.log.FromContext(ctx).LogError("set_admin_password", err)
		return err
	}
	return nil
}

// AdminPassword returns the override, or false when none is set.
func (c *Cache) AdminPassword(ctx context.Context) (string, bool) {
	return c.getMirrored(ctx, "get_admin_password", c.keys.AdminPassword, PrimaryKeys.AdminPassword)
}

// OwnerID returns the per-device owner identifier, creating it on first use.
func (c *Cache) OwnerID(ctx context.Context) string {
	if id, ok, err := c.get(ctx, OwnerIDKey); err == nil && ok && id != "" {
		return id
	} else if err != nil {
		c.log.FromContext(ctx).LogError("owner_id", err)
	}

	id, err := domain.NewOwnerID(c.now())
	if err != nil {
		c.log.FromContext(ctx).LogError("owner_id", err)
		id = fmt.Sprintf("owner_%d", c.now().UnixNano())
	}
	if err := c.put(ctx, OwnerIDKey, id); err != nil {
		c.log.FromContext(ctx).LogError("owner_id", err)
	}
	return id
}

type sessionStamp struct {
	Timestamp int64 `json:"timestamp"`
}

// SetSessionStamp records an admin session started at t.
func (c *Cache) SetSessionStamp(ctx context.Context, t time.Time) error {
	data, _ := json.Marshal(sessionStamp{Timestamp: t.UnixMilli()})
	if err := c.put(ctx, SessionKey, string(data)); err != nil {
		c.log.FromContext(ctx).LogError("set_session", err)
		return err
	}
	return nil
}

// SessionStamp returns when the current session was stamped, or false.
func (c *Cache) SessionStamp(ctx context.Context) (time.Time, bool) {
	raw, ok, err := c.get(ctx, SessionKey)
	if err != nil {
		c.log.FromContext(ctx).LogError("get_session", err)
		return time.Time{}, false
	}
	if !ok {
		return time.Time{}, false
	}
	var s sessionStamp
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		c.log.FromContext(ctx).LogErrorf("get_session", "session stamp is not valid JSON: %v", err)
		return time.Time{}, false
	}
	return time.UnixMilli(s.Timestamp).UTC(), true
}

// ClearSession removes the session stamp.
func (c *Cache) ClearSession(ctx context.Context) error {
	return c.remove(ctx, "clear_session", SessionKey)
}

// GenerateShareID returns a fresh 12-character share identifier.
func (c *Cache) GenerateShareID() (string, error) {
	return domain.NewShareID()
}

// ClearAll removes every managed key of both key sets, the owner id and the
// admin session.
func (c *Cache) ClearAll(ctx context.Context) error {
	keys := append(PrimaryKeys.all(), FallbackKeys.all()...)
	keys = append(keys, OwnerIDKey, SessionKey)
	return c.remove(ctx, "clear_all", keys...)
}

func (c *Cache) putMirrored(ctx context.Context, key, mirror, value string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache write: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, k := range uniqueKeys(key, mirror) {
		if _, err := tx.ExecContext(ctx, upsertSQL, k, value); err != nil {
			return fmt.Errorf("failed to write %s: %w", k, err)
		}
	}
	return tx.Commit()
}

func (c *Cache) getMirrored(ctx context.Context, op, key, mirror string) (string, bool) {
	for _, k := range uniqueKeys(key, mirror) {
		v, ok, err := c.get(ctx, k)
		if err != nil {
			c.log.FromContext(ctx).LogError(op, err)
			return "", false
		}
		if ok {
			return v, true
		}
	}
	return "", false
}

const upsertSQL = `
INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
`

func (c *Cache) put(ctx context.Context, key, value string) error {
	if _, err := c.db.ExecContext(ctx, upsertSQL, key, value); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (c *Cache) get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return v, true, nil
}

func (c *Cache) remove(ctx context.Context, op string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]interface{}, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM kv WHERE key IN (`+placeholders+`)`, args...); err != nil {
		c.log.FromContext(ctx).LogError(op, err)
		return fmt.Errorf("failed to remove keys: %w", err)
	}
	return nil
}

func uniqueKeys(key, mirror string) []string {
	if key == mirror {
		return []string{key}
	}
	return []string{key, mirror}
}

func normalize(p *domain.Project) {
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if p.Tasks == nil {
		p.Tasks = []domain.Task{}
	}
	for i := range p.Tasks {
		p.Tasks[i].Deadline = p.Tasks[i].Deadline.UTC()
		p.Tasks[i].CreatedAt = p.Tasks[i].CreatedAt.UTC()
		p.Tasks[i].UpdatedAt = p.Tasks[i].UpdatedAt.UTC()
	}
}
