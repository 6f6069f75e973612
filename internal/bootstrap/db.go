package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/game-schedule/schedule-backend/config"
	"github.com/game-schedule/schedule-backend/internal/logging"
	"github.com/game-schedule/schedule-backend/internal/realtime"
	"github.com/game-schedule/schedule-backend/internal/schedule/gateway"
	"github.com/game-schedule/schedule-backend/internal/schedule/repository"
	"github.com/game-schedule/schedule-backend/internal/storage/local"
	"github.com/game-schedule/schedule-backend/internal/storage/postgres"
)

var log = logging.New("bootstrap")

// Backends holds every open storage handle. Remote fields are nil in
// local-only mode; Redis is nil when REDIS_URL is unset.
type Backends struct {
	Cache    *local.Cache
	Projects *repository.ProjectRepository
	Feed     realtime.Feed
	Redis    *redis.Client

	cacheDB *sql.DB
	remote  *sql.DB
	pool    *pgxpool.Pool
}

// OpenBackends opens the local cache and, when configured, the remote
// database, its change feed and Redis. A remote that cannot be reached is
// logged and the process continues on the local cache only.
func OpenBackends(ctx context.Context, cfg *config.Config) (*Backends, error) {
	cacheDB, err := local.OpenDB(ctx, cfg.Local.CachePath)
	if err != nil {
		return nil, err
	}

	b := &Backends{cacheDB: cacheDB}

	if cfg.RemoteConfigured() {
		if err := b.openRemote(ctx, cfg); err != nil {
			log.LogErrorf("open_backends", "remote unavailable, continuing local-only: %v", err)
			b.closeRemote()
		}
	}

	b.Cache = local.NewCache(cacheDB, b.Projects != nil)

	if cfg.Redis.URL != "" {
		client, err := openRedis(ctx, cfg.Redis.URL)
		if err != nil {
			log.LogErrorf("open_backends", "redis unavailable: %v", err)
		} else {
			b.Redis = client
		}
	}

	switch {
	case b.Projects == nil:
	case b.Redis != nil:
		b.Feed = realtime.NewRedisFeed(b.Redis, cfg.Realtime.EventsPerSecond)
	case b.pool != nil:
		b.Feed = realtime.NewPGFeed(b.pool, cfg.Realtime.EventsPerSecond)
	}

	return b, nil
}

func (b *Backends) openRemote(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewConnection(ctx, &cfg.Remote)
	if err != nil {
		return err
	}
	b.remote = db

	mctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := postgres.Migrate(mctx, db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	pool, err := postgres.NewPool(ctx, &cfg.Remote)
	if err != nil {
		return err
	}
	b.pool = pool
	b.Projects = repository.NewProjectRepository(db)
	return nil
}

func (b *Backends) closeRemote() {
	if b.pool != nil {
		b.pool.Close()
		b.pool = nil
	}
	if b.remote != nil {
		_ = b.remote.Close()
		b.remote = nil
	}
	b.Projects = nil
}

// Remote returns the project repository as the gateway's interface. The
// result is a nil interface in local-only mode.
func (b *Backends) Remote() gateway.RemoteRepository {
	if b.Projects == nil {
		return nil
	}
	return b.Projects
}

func (b *Backends) Close() {
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
	b.closeRemote()
	_ = b.cacheDB.Close()
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
