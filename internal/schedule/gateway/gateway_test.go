package gateway

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/game-schedule/schedule-backend/internal/logging"
	"github.com/game-schedule/schedule-backend/internal/realtime"
	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
	"github.com/game-schedule/schedule-backend/internal/schedule/exchange"
	"github.com/game-schedule/schedule-backend/internal/storage/local"
)

func TestMain(m *testing.M) {
	logging.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// fakeRemote is an in-memory RemoteRepository keyed by owner.
type fakeRemote struct {
	mu      sync.Mutex
	byOwner map[string]*domain.Project
	err     error
	saves   int
	deleted int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{byOwner: map[string]*domain.Project{}}
}

func (f *fakeRemote) Save(_ context.Context, ownerID string, p *domain.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saves++
	f.byOwner[ownerID] = p.Clone()
	return nil
}

func (f *fakeRemote) LatestByOwner(_ context.Context, ownerID string) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byOwner[ownerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (f *fakeRemote) ByShareID(_ context.Context, shareID string) (*domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range f.byOwner {
		if p.ShareID == shareID {
			return p.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeRemote) DeleteByOwner(_ context.Context, ownerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	if _, ok := f.byOwner[ownerID]; !ok {
		return 0, nil
	}
	delete(f.byOwner, ownerID)
	f.deleted++
	return 1, nil
}

func (f *fakeRemote) Ping(context.Context) error { return f.err }

func (f *fakeRemote) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// recordingFeed captures published events.
type recordingFeed struct {
	mu        sync.Mutex
	published []realtime.ChangeEvent
}

func (r *recordingFeed) Publish(_ context.Context, ev realtime.ChangeEvent) error {
	r.mu.Lock()
	r.published = append(r.published, ev)
	r.mu.Unlock()
	return nil
}

func (r *recordingFeed) Subscribe(context.Context, string, realtime.Handler) (*realtime.Subscription, error) {
	return nil, errors.New("not supported")
}

func newCache(t *testing.T, remoteConfigured bool) *local.Cache {
	t.Helper()
	db, err := local.OpenDB(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return local.NewCache(db, remoteConfigured)
}

func sampleProject() *domain.Project {
	created := time.Date(2026, 10, 1, 9, 0, 0, 555123000, time.UTC)
	return &domain.Project{
		ID:      "p-1",
		Name:    "Demo",
		ShareID: "Qw3rTy7uI9oP",
		Tasks: []domain.Task{{
			ID: "t-1", Title: "Art pass", Description: "sprites",
			Deadline: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
			Progress: 50, Priority: domain.PriorityHigh, Category: domain.CategoryGraphics,
			Status: domain.StatusInProgress, CreatedAt: created, UpdatedAt: created,
		}},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestGateway_LocalOnlyRoundTrip(t *testing.T) {
	ctx := context.Background()
	g := New(newCache(t, false), nil, nil)
	assert.Equal(t, "local-only", g.Mode())
	assert.ErrorIs(t, g.Ping(ctx), domain.ErrRemoteNotConfigured)

	p := sampleProject()
	out := g.SaveProject(ctx, p)
	assert.Equal(t, BackendLocal, out.Backend)
	assert.True(t, out.Persisted())

	got, src := g.LoadProject(ctx)
	assert.Equal(t, SourceLocal, src)
	assert.Equal(t, p, got)
}

func TestGateway_SaveProject_RemoteSuccessMirrorsAndNotifies(t *testing.T) {
	ctx := context.Background()
	cache := newCache(t, true)
	remote := newFakeRemote()
	feed := &recordingFeed{}
	g := New(cache, remote, feed)

	p := sampleProject()
	out := g.SaveProject(ctx, p)
	assert.Equal(t, BackendRemote, out.Backend)
	assert.NoError(t, out.RemoteErr)

	stored, err := remote.LatestByOwner(ctx, cache.OwnerID(ctx))
	require.NoError(t, err)
	assert.Equal(t, p, stored)

	cached, ok := cache.LoadProject(ctx)
	require.True(t, ok)
	assert.Equal(t, p, cached)

	require.Len(t, feed.published, 2)
	assert.Equal(t, realtime.TableProjects, feed.published[0].Table)
	assert.Equal(t, realtime.OpInsert, feed.published[0].Op)
	assert.Equal(t, realtime.TableTasks, feed.published[1].Table)
	assert.Equal(t, realtime.OpUpdate, feed.published[1].Op)
	assert.Equal(t, "p-1", feed.published[1].ProjectID)

	p.Name = "Renamed"
	g.SaveProject(ctx, p)
	require.Len(t, feed.published, 4)
	assert.Equal(t, realtime.OpUpdate, feed.published[2].Op)
}

func TestGateway_SaveProject_RemoteFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	cache := newCache(t, true)
	remote := newFakeRemote()
	remote.fail(errors.New("connection refused"))
	feed := &recordingFeed{}
	g := New(cache, remote, feed)

	out := g.SaveProject(ctx, sampleProject())
	assert.Equal(t, BackendLocal, out.Backend)
	assert.EqualError(t, out.RemoteErr, "connection refused")
	assert.True(t, out.Persisted())
	assert.Empty(t, feed.published)

	got, src := g.LoadProject(ctx)
	assert.Equal(t, SourceLocal, src)
	assert.Equal(t, "Demo", got.Name)
}

func TestGateway_SaveProject_Nil(t *testing.T) {
	out := New(newCache(t, false), nil, nil).SaveProject(context.Background(), nil)
	assert.Equal(t, BackendNone, out.Backend)
	assert.ErrorIs(t, out.LocalErr, domain.ErrNoProject)
	assert.False(t, out.Persisted())
}

func TestGateway_LoadProject(t *testing.T) {
	ctx := context.Background()

	t.Run("remote wins and is mirrored", func(t *testing.T) {
		cache := newCache(t, true)
		remote := newFakeRemote()
		remote.byOwner[cache.OwnerID(ctx)] = sampleProject()
		g := New(cache, remote, nil)

		got, src := g.LoadProject(ctx)
		assert.Equal(t, SourceRemote, src)
		assert.Equal(t, sampleProject(), got)

		cached, ok := cache.LoadProject(ctx)
		require.True(t, ok)
		assert.Equal(t, got, cached)
	})

	t.Run("nothing remote falls back to cache", func(t *testing.T) {
		cache := newCache(t, true)
		require.NoError(t, cache.SaveProject(ctx, sampleProject()))
		g := New(cache, newFakeRemote(), nil)

		got, src := g.LoadProject(ctx)
		assert.Equal(t, SourceLocal, src)
		assert.Equal(t, "p-1", got.ID)
	})

	t.Run("remote error falls back to cache", func(t *testing.T) {
		cache := newCache(t, true)
		require.NoError(t, cache.SaveProject(ctx, sampleProject()))
		remote := newFakeRemote()
		remote.fail(errors.New("timeout"))
		g := New(cache, remote, nil)

		got, src := g.LoadProject(ctx)
		assert.Equal(t, SourceLocal, src)
		assert.Equal(t, "p-1", got.ID)
	})

	t.Run("nothing anywhere", func(t *testing.T) {
		g := New(newCache(t, true), newFakeRemote(), nil)
		got, src := g.LoadProject(ctx)
		assert.Nil(t, got)
		assert.Equal(t, SourceNone, src)
	})
}

func TestGateway_LoadProjectByShareID(t *testing.T) {
	ctx := context.Background()

	t.Run("remote", func(t *testing.T) {
		remote := newFakeRemote()
		remote.byOwner["someone-else"] = sampleProject()
		g := New(newCache(t, true), remote, nil)

		got := g.LoadProjectByShareID(ctx, "Qw3rTy7uI9oP")
		require.NotNil(t, got)
		assert.Equal(t, "Demo", got.Name)

		assert.Nil(t, g.LoadProjectByShareID(ctx, "nonexistent12"))
		assert.Nil(t, g.LoadProjectByShareID(ctx, ""))

		remote.fail(errors.New("boom"))
		assert.Nil(t, g.LoadProjectByShareID(ctx, "Qw3rTy7uI9oP"))
	})

	t.Run("local only matches cached project", func(t *testing.T) {
		cache := newCache(t, false)
		require.NoError(t, cache.SaveProject(ctx, sampleProject()))
		g := New(cache, nil, nil)

		assert.NotNil(t, g.LoadProjectByShareID(ctx, "Qw3rTy7uI9oP"))
		assert.Nil(t, g.LoadProjectByShareID(ctx, "AAAAAAAAAAAA"))
	})
}

func TestGateway_SubscribeWithoutRemote(t *testing.T) {
	g := New(newCache(t, false), nil, nil)
	assert.Nil(t, g.SubscribeToProject(context.Background(), "p-1", func(*domain.Project) {}))

	g = New(newCache(t, true), newFakeRemote(), nil)
	assert.Nil(t, g.SubscribeToProject(context.Background(), "p-1", func(*domain.Project) {}))
}

func TestGateway_SubscribeToProject_ReloadsOnChange(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	defer client.Close()

	cache := newCache(t, true)
	g := New(cache, newFakeRemote(), realtime.NewRedisFeed(client, 100))

	got := make(chan *domain.Project, 4)
	sub := g.SubscribeToProject(ctx, "p-1", func(p *domain.Project) { got <- p })
	require.NotNil(t, sub)
	defer sub.Cancel()

	p := sampleProject()
	p.Name = "Renamed"
	require.Equal(t, BackendRemote, g.SaveProject(ctx, p).Backend)

	select {
	case refreshed := <-got:
		assert.Equal(t, "Renamed", refreshed.Name)
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh delivered")
	}
}

func TestGateway_SubscribeToShare_RefreshesByShareID(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), Protocol: 2})
	defer client.Close()

	remote := newFakeRemote()
	feed := realtime.NewRedisFeed(client, 100)
	viewer := New(newCache(t, true), remote, feed)
	admin := New(newCache(t, true), remote, feed)

	p := sampleProject()
	require.Equal(t, BackendRemote, admin.SaveProject(ctx, p).Backend)

	assert.Nil(t, viewer.SubscribeToShare(ctx, &domain.Project{ID: "p-1"}, func(*domain.Project) {}))

	got := make(chan *domain.Project, 4)
	sub := viewer.SubscribeToShare(ctx, p, func(p *domain.Project) { got <- p })
	require.NotNil(t, sub)
	defer sub.Cancel()

	p.Tasks = append(p.Tasks, domain.Task{ID: "t-2", Title: "Music", Priority: domain.PriorityLow,
		Category: domain.CategorySound, Status: domain.StatusNotStarted})
	require.Equal(t, BackendRemote, admin.SaveProject(ctx, p).Backend)

	select {
	case refreshed := <-got:
		assert.Len(t, refreshed.Tasks, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("no refresh delivered")
	}
}

func TestGateway_MigrateFromLocalStorage(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, BackendNone, New(newCache(t, false), nil, nil).MigrateFromLocalStorage(ctx).Backend)

	cache := newCache(t, true)
	remote := newFakeRemote()
	g := New(cache, remote, nil)
	assert.Equal(t, BackendNone, g.MigrateFromLocalStorage(ctx).Backend)

	require.NoError(t, cache.SaveProject(ctx, sampleProject()))
	out := g.MigrateFromLocalStorage(ctx)
	assert.Equal(t, BackendRemote, out.Backend)
	assert.Equal(t, 1, remote.saves)
}

func TestGateway_ClearAll(t *testing.T) {
	ctx := context.Background()
	cache := newCache(t, true)
	remote := newFakeRemote()
	g := New(cache, remote, nil)

	require.Equal(t, BackendRemote, g.SaveProject(ctx, sampleProject()).Backend)
	owner := cache.OwnerID(ctx)

	out := g.ClearAll(ctx)
	assert.Equal(t, BackendRemote, out.Backend)
	assert.NoError(t, out.LocalErr)
	assert.Equal(t, 1, remote.deleted)

	_, ok := cache.LoadProject(ctx)
	assert.False(t, ok)
	assert.NotEqual(t, owner, cache.OwnerID(ctx))
}

func TestGateway_ClearAll_PublishesDelete(t *testing.T) {
	ctx := context.Background()
	cache := newCache(t, true)
	feed := &recordingFeed{}
	g := New(cache, newFakeRemote(), feed)

	require.Equal(t, BackendRemote, g.SaveProject(ctx, sampleProject()).Backend)
	feed.published = nil

	g.ClearAll(ctx)
	require.Len(t, feed.published, 2)
	for _, ev := range feed.published {
		assert.Equal(t, realtime.OpDelete, ev.Op)
		assert.Equal(t, "p-1", ev.ProjectID)
	}
	assert.Equal(t, realtime.TableProjects, feed.published[0].Table)
}

func TestGateway_ClearAll_FailedDeletePublishesNothing(t *testing.T) {
	ctx := context.Background()
	cache := newCache(t, true)
	remote := newFakeRemote()
	feed := &recordingFeed{}
	g := New(cache, remote, feed)

	require.Equal(t, BackendRemote, g.SaveProject(ctx, sampleProject()).Backend)
	feed.published = nil

	remote.fail(errors.New("down"))
	g.ClearAll(ctx)
	assert.Empty(t, feed.published)
}

func TestGateway_ClearAll_RemoteFailureStillClearsLocal(t *testing.T) {
	ctx := context.Background()
	cache := newCache(t, true)
	remote := newFakeRemote()
	g := New(cache, remote, nil)
	require.NoError(t, cache.SaveProject(ctx, sampleProject()))

	remote.fail(errors.New("down"))
	out := g.ClearAll(ctx)
	assert.Equal(t, BackendLocal, out.Backend)
	assert.Error(t, out.RemoteErr)

	_, ok := cache.LoadProject(ctx)
	assert.False(t, ok)
}

func TestGateway_ExportImport(t *testing.T) {
	ctx := context.Background()
	g := New(newCache(t, false), nil, nil)

	_, err := g.ExportProject(ctx, exchange.FormatJSON)
	assert.ErrorIs(t, err, domain.ErrNoProject)

	_, out, err := g.ImportProject(ctx, []byte(`{"id":"x","name":"Broken"}`), exchange.FormatJSON)
	assert.ErrorIs(t, err, domain.ErrInvalidProjectData)
	assert.Equal(t, BackendNone, out.Backend)
	_, src := g.LoadProject(ctx)
	assert.Equal(t, SourceNone, src)

	p := sampleProject()
	g.SaveProject(ctx, p)
	data, err := g.ExportProject(ctx, exchange.FormatJSON)
	require.NoError(t, err)

	g2 := New(newCache(t, false), nil, nil)
	imported, out, err := g2.ImportProject(ctx, data, exchange.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, BackendLocal, out.Backend)
	assert.Equal(t, p, imported)

	reloaded, _ := g2.LoadProject(ctx)
	assert.Equal(t, p, reloaded)
}

func TestGateway_SettingsPassThrough(t *testing.T) {
	ctx := context.Background()
	g := New(newCache(t, false), nil, nil)

	require.NoError(t, g.SaveSettings(ctx, domain.Settings{Theme: domain.ThemeDark}))
	s, ok := g.LoadSettings(ctx)
	require.True(t, ok)
	assert.Equal(t, domain.ThemeDark, s.Theme)

	require.NoError(t, g.SetAdminPassword(ctx, "s3cret"))
	pw, ok := g.AdminPassword(ctx)
	require.True(t, ok)
	assert.Equal(t, "s3cret", pw)
}
