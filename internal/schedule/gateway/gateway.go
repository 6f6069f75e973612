// Package gateway keeps the project durable across the remote database and
// the local cache. Every remote failure is logged and downgraded to the local
// path; callers see the outcome, never the failure.
package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/game-schedule/schedule-backend/internal/logging"
	"github.com/game-schedule/schedule-backend/internal/realtime"
	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
	"github.com/game-schedule/schedule-backend/internal/schedule/exchange"
	"github.com/game-schedule/schedule-backend/internal/storage/local"
)

// RemoteRepository is the remote table store. Lookups return
// domain.ErrNotFound when nothing matches.
type RemoteRepository interface {
	Save(ctx context.Context, ownerID string, p *domain.Project) error
	LatestByOwner(ctx context.Context, ownerID string) (*domain.Project, error)
	ByShareID(ctx context.Context, shareID string) (*domain.Project, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
	Ping(ctx context.Context) error
}

// Backend names where a write landed.
type Backend string

const (
	BackendRemote Backend = "remote"
	BackendLocal  Backend = "local"
	BackendNone   Backend = "none"
)

// WriteOutcome reports which backend served a write and the errors that were
// swallowed along the way.
type WriteOutcome struct {
	Backend   Backend
	RemoteErr error
	LocalErr  error
}

// Persisted reports whether the write reached at least one backend.
func (o WriteOutcome) Persisted() bool {
	switch o.Backend {
	case BackendRemote:
		return true
	case BackendLocal:
		return o.LocalErr == nil
	}
	return false
}

// Source names where a loaded project came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceNone   Source = "none"
)

// refreshTimeout bounds the reload triggered by a change event.
const refreshTimeout = 10 * time.Second

var warnLocalOnly sync.Once

type Gateway struct {
	remote RemoteRepository
	cache  *local.Cache
	feed   realtime.Feed
	log    *logging.Logger
}

// New builds a gateway. A nil remote puts it in local-only mode for the life
// of the process; a nil feed disables subscriptions.
func New(cache *local.Cache, remote RemoteRepository, feed realtime.Feed) *Gateway {
	g := &Gateway{
		remote: remote,
		cache:  cache,
		feed:   feed,
		log:    logging.New("gateway"),
	}
	if remote == nil {
		warnLocalOnly.Do(func() {
			g.log.LogWarn("init", "remote database not configured, running in local-only mode")
		})
	}
	return g
}

// RemoteConfigured reports whether a remote backend is in use.
func (g *Gateway) RemoteConfigured() bool { return g.remote != nil }

// Mode is "remote" or "local-only".
func (g *Gateway) Mode() string {
	if g.remote != nil {
		return "remote"
	}
	return "local-only"
}

// Ping checks the remote backend. Local-only mode has nothing to ping.
func (g *Gateway) Ping(ctx context.Context) error {
	if g.remote == nil {
		return domain.ErrRemoteNotConfigured
	}
	return g.remote.Ping(ctx)
}

// Cache exposes the local store for collaborators that keep device state in
// it, such as the auth gate.
func (g *Gateway) Cache() *local.Cache { return g.cache }

// SaveProject writes p remotely (project upsert plus task replace-all) and
// always mirrors it into the cache.
func (g *Gateway) SaveProject(ctx context.Context, p *domain.Project) WriteOutcome {
	lg := g.log.FromContext(ctx)
	if p == nil {
		return WriteOutcome{Backend: BackendNone, LocalErr: domain.ErrNoProject}
	}

	out := WriteOutcome{Backend: BackendLocal}
	if g.remote != nil {
		projectOp := realtime.OpUpdate
		if prev, ok := g.cache.LoadProject(ctx); !ok || prev.ID != p.ID {
			projectOp = realtime.OpInsert
		}
		if err := g.remote.Save(ctx, g.cache.OwnerID(ctx), p); err != nil {
			lg.LogErrorf("save_project", "remote save failed, keeping local copy: %v", err)
			out.RemoteErr = err
		} else {
			out.Backend = BackendRemote
			g.notify(ctx, p.ID, projectOp, realtime.OpUpdate)
		}
	}

	if err := g.cache.SaveProject(ctx, p); err != nil {
		out.LocalErr = err
	}
	return out
}

// LoadProject returns the owner's most recently updated remote project,
// falling back to the cached one.
func (g *Gateway) LoadProject(ctx context.Context) (*domain.Project, Source) {
	lg := g.log.FromContext(ctx)
	if g.remote != nil {
		p, err := g.remote.LatestByOwner(ctx, g.cache.OwnerID(ctx))
		switch {
		case err == nil:
			_ = g.cache.SaveProject(ctx, p)
			return p, SourceRemote
		case errors.Is(err, domain.ErrNotFound):
			lg.LogDebugf("load_project", "no remote project for this device, trying cache")
		default:
			lg.LogErrorf("load_project", "remote load failed, trying cache: %v", err)
		}
	}

	if p, ok := g.cache.LoadProject(ctx); ok {
		return p, SourceLocal
	}
	return nil, SourceNone
}

// LoadProjectByShareID returns the project published under shareID, or nil.
// In local-only mode only the cached project can match.
func (g *Gateway) LoadProjectByShareID(ctx context.Context, shareID string) *domain.Project {
	if shareID == "" {
		return nil
	}
	if g.remote == nil {
		p, ok := g.cache.LoadProject(ctx)
		if ok && p.ShareID == shareID {
			return p
		}
		return nil
	}

	p, err := g.remote.ByShareID(ctx, shareID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			g.log.FromContext(ctx).LogErrorf("load_by_share_id", "remote lookup failed: %v", err)
		}
		return nil
	}
	return p
}

// GenerateShareID returns a fresh share identifier.
func (g *Gateway) GenerateShareID() (string, error) {
	return domain.NewShareID()
}

// SubscribeToProject reloads the owner's project on every change event for
// projectID and hands the result to cb. It returns nil when no remote backend
// or change feed is configured, or when subscribing fails.
func (g *Gateway) SubscribeToProject(ctx context.Context, projectID string, cb func(*domain.Project)) *realtime.Subscription {
	return g.subscribe(ctx, projectID, func(rctx context.Context) *domain.Project {
		p, _ := g.LoadProject(rctx)
		return p
	}, cb)
}

// SubscribeToShare is SubscribeToProject for read-only share views: the
// refresh goes through the share id instead of the device owner.
func (g *Gateway) SubscribeToShare(ctx context.Context, project *domain.Project, cb func(*domain.Project)) *realtime.Subscription {
	if project == nil || project.ShareID == "" {
		return nil
	}
	shareID := project.ShareID
	return g.subscribe(ctx, project.ID, func(rctx context.Context) *domain.Project {
		return g.LoadProjectByShareID(rctx, shareID)
	}, cb)
}

func (g *Gateway) subscribe(ctx context.Context, projectID string, reload func(context.Context) *domain.Project, cb func(*domain.Project)) *realtime.Subscription {
	if g.remote == nil || g.feed == nil || projectID == "" {
		return nil
	}
	lg := g.log.FromContext(ctx)
	sub, err := g.feed.Subscribe(ctx, projectID, func(ev realtime.ChangeEvent) {
		rctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		lg.LogDebugf("subscription", "%s %s on project %s", ev.Op, ev.Table, ev.ProjectID)
		if p := reload(rctx); p != nil {
			cb(p)
		}
	})
	if err != nil {
		lg.LogErrorf("subscribe", "change feed unavailable: %v", err)
		return nil
	}
	return sub
}

// MigrateFromLocalStorage copies the cached project up to the remote store.
// Without a remote backend or a cached project it does nothing.
func (g *Gateway) MigrateFromLocalStorage(ctx context.Context) WriteOutcome {
	if g.remote == nil {
		return WriteOutcome{Backend: BackendNone}
	}
	p, ok := g.cache.LoadProject(ctx)
	if !ok {
		return WriteOutcome{Backend: BackendNone}
	}
	out := g.SaveProject(ctx, p)
	if out.Backend == BackendRemote {
		g.log.FromContext(ctx).LogInfof("migrate", "migrated cached project %s to remote", p.ID)
	}
	return out
}

// ClearAll deletes the owner's remote projects (tasks cascade) and then every
// local key, the owner id included.
func (g *Gateway) ClearAll(ctx context.Context) WriteOutcome {
	lg := g.log.FromContext(ctx)
	out := WriteOutcome{Backend: BackendLocal}
	if g.remote != nil {
		cached, hadProject := g.cache.LoadProject(ctx)
		n, err := g.remote.DeleteByOwner(ctx, g.cache.OwnerID(ctx))
		if err != nil {
			lg.LogErrorf("clear_all", "remote delete failed: %v", err)
			out.RemoteErr = err
		} else {
			out.Backend = BackendRemote
			lg.LogInfof("clear_all", "deleted %d remote projects", n)
			if hadProject {
				g.notify(ctx, cached.ID, realtime.OpDelete, realtime.OpDelete)
			}
		}
	}
	out.LocalErr = g.cache.ClearAll(ctx)
	return out
}

// ExportProject renders the current project. No project yields ErrNoProject.
func (g *Gateway) ExportProject(ctx context.Context, f exchange.Format) ([]byte, error) {
	p, _ := g.LoadProject(ctx)
	if p == nil {
		return nil, domain.ErrNoProject
	}
	return exchange.Encode(p, f)
}

// ImportProject parses data and saves the result through SaveProject.
// Malformed input yields ErrInvalidProjectData and nothing is written.
func (g *Gateway) ImportProject(ctx context.Context, data []byte, f exchange.Format) (*domain.Project, WriteOutcome, error) {
	p, err := exchange.Decode(data, f)
	if err != nil {
		return nil, WriteOutcome{Backend: BackendNone}, err
	}
	return p, g.SaveProject(ctx, p), nil
}

func (g *Gateway) SaveSettings(ctx context.Context, s domain.Settings) error {
	return g.cache.SaveSettings(ctx, s)
}

func (g *Gateway) LoadSettings(ctx context.Context) (domain.Settings, bool) {
	return g.cache.LoadSettings(ctx)
}

func (g *Gateway) SetAdminPassword(ctx context.Context, password string) error {
	return g.cache.SetAdminPassword(ctx, password)
}

func (g *Gateway) AdminPassword(ctx context.Context) (string, bool) {
	return g.cache.AdminPassword(ctx)
}

// notify announces a projects row change followed by the tasks change.
func (g *Gateway) notify(ctx context.Context, projectID string, projectOp, tasksOp realtime.Op) {
	if g.feed == nil {
		return
	}
	now := time.Now().UTC()
	changes := []struct {
		table realtime.Table
		op    realtime.Op
	}{
		{realtime.TableProjects, projectOp},
		{realtime.TableTasks, tasksOp},
	}
	for _, ch := range changes {
		table := ch.table
		ev := realtime.ChangeEvent{Table: table, Op: ch.op, ProjectID: projectID, At: now}
		if err := g.feed.Publish(ctx, ev); err != nil {
			g.log.FromContext(ctx).LogErrorf("notify", "failed to publish %s change: %v", table, err)
		}
	}
}
