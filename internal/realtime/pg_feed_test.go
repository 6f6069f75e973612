package realtime

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPGFeed_PublishSubscribe(t *testing.T) {
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	feed := NewPGFeed(pool, 100)
	rec := newRecorder()
	sub, err := feed.Subscribe(ctx, "p1", rec.handle)
	require.NoError(t, err)
	defer sub.Cancel()

	require.NoError(t, feed.Publish(ctx, ChangeEvent{Table: TableTasks, Op: OpUpdate, ProjectID: "p2"}))
	require.NoError(t, feed.Publish(ctx, ChangeEvent{Table: TableTasks, Op: OpUpdate, ProjectID: "p1"}))

	ev := rec.next(t)
	assert.Equal(t, "p1", ev.ProjectID)
}
