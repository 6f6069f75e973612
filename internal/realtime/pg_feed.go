package realtime

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/game-schedule/schedule-backend/internal/logging"
)

// PGChannel is the LISTEN/NOTIFY channel shared by all projects.
const PGChannel = "schedule_changes"

// PGFeed delivers change events with Postgres LISTEN/NOTIFY. It is used when
// a remote database is configured but no Redis is available.
type PGFeed struct {
	pool            *pgxpool.Pool
	eventsPerSecond int
	log             *logging.Logger
}

func NewPGFeed(pool *pgxpool.Pool, eventsPerSecond int) *PGFeed {
	return &PGFeed{
		pool:            pool,
		eventsPerSecond: eventsPerSecond,
		log:             logging.New("realtime_pg"),
	}
}

func (f *PGFeed) Publish(ctx context.Context, ev ChangeEvent) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}
	if _, err := f.pool.Exec(ctx, `SELECT pg_notify($1, $2)`, PGChannel, string(data)); err != nil {
		return fmt.Errorf("failed to notify change event: %w", err)
	}
	return nil
}

// Subscribe holds a dedicated pool connection in LISTEN mode for the lifetime
// of the subscription.
func (f *PGFeed) Subscribe(ctx context.Context, projectID string, h Handler) (*Subscription, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{PGChannel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", PGChannel, err)
	}

	events := make(chan ChangeEvent, 16)
	sub, subCtx := newSubscription(projectID, f.eventsPerSecond, events, h, nil)

	go func() {
		defer close(events)
		defer func() {
			if _, err := conn.Exec(context.Background(), "UNLISTEN *"); err != nil {
				// A connection in an unknown state must not go back to the pool.
				_ = conn.Conn().Close(context.Background())
			}
			conn.Release()
		}()
		for {
			n, err := conn.Conn().WaitForNotification(subCtx)
			if err != nil {
				if subCtx.Err() == nil {
					f.log.LogError("listen", err)
				}
				return
			}
			ev, err := decodeEvent(n.Payload)
			if err != nil {
				f.log.LogErrorf("listen", "dropping malformed notification: %v", err)
				continue
			}
			if ev.ProjectID != projectID {
				continue
			}
			offer(events, ev)
		}
	}()

	f.log.LogInfof("subscribe", "listening for project %s", projectID)
	return sub, nil
}
