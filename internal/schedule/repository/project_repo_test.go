package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
)

func setupProjectRepo(t *testing.T) (*ProjectRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewProjectRepository(db), mock, db
}

var created = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func demoProject() *domain.Project {
	return &domain.Project{
		ID:      "p-1",
		Name:    "Demo",
		ShareID: "AbCdEf123456",
		Tasks: []domain.Task{
			{
				ID: "t-1", Title: "Art pass", Description: "sprites",
				Deadline: created.Add(24 * time.Hour), Priority: domain.PriorityHigh,
				Category: domain.CategoryGraphics, Status: domain.StatusNotStarted,
				CreatedAt: created, UpdatedAt: created,
			},
			{
				ID: "t-2", Title: "Jump physics", Description: "tune gravity",
				Deadline: created.Add(72 * time.Hour), Progress: 50, Priority: domain.PriorityMedium,
				Category: domain.CategoryProgramming, Status: domain.StatusInProgress,
				Notes: "see GDD", CreatedAt: created, UpdatedAt: created,
			},
		},
		CreatedAt: created,
		UpdatedAt: created.Add(time.Minute),
	}
}

func TestProjectRepository_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts project and replaces tasks", func(t *testing.T) {
		repo, mock, db := setupProjectRepo(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO projects`).
			WithArgs("p-1", "Demo", "owner_1", "AbCdEf123456", true,
				"2026-10-01T09:00:00Z", "2026-10-01T09:01:00Z").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM tasks WHERE project_id`).
			WithArgs("p-1").
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(`INSERT INTO tasks`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, repo.Save(ctx, "owner_1", demoProject()))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("skips task insert for empty project", func(t *testing.T) {
		repo, mock, db := setupProjectRepo(t)
		defer db.Close()

		p := demoProject()
		p.Tasks = []domain.Task{}
		p.ShareID = ""

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO projects`).
			WithArgs("p-1", "Demo", "owner_1", nil, false, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM tasks`).
			WithArgs("p-1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		require.NoError(t, repo.Save(ctx, "owner_1", p))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps share id unique violation", func(t *testing.T) {
		repo, mock, db := setupProjectRepo(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO projects`).
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
		mock.ExpectRollback()

		err := repo.Save(ctx, "owner_1", demoProject())
		assert.ErrorIs(t, err, domain.ErrShareIDConflict)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when task insert fails", func(t *testing.T) {
		repo, mock, db := setupProjectRepo(t)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO projects`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM tasks`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(`INSERT INTO tasks`).WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err := repo.Save(ctx, "owner_1", demoProject())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert tasks")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInsertTasksQuery(t *testing.T) {
	query, args := insertTasksQuery(demoProject())
	assert.Contains(t, query, "($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)")
	assert.Contains(t, query, "($15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)")
	require.Len(t, args, 28)
	assert.Equal(t, "t-2", args[14])
	assert.Equal(t, "p-1", args[15])
	assert.Equal(t, 1, args[25])
}

var projectCols = []string{"id", "name", "share_id", "created_at", "updated_at"}
var taskCols = []string{
	"id", "title", "description", "deadline", "progress", "priority", "category",
	"status", "notes", "image_url", "created_at", "updated_at",
}

func TestProjectRepository_LatestByOwner(t *testing.T) {
	ctx := context.Background()

	t.Run("loads project with ordered tasks", func(t *testing.T) {
		repo, mock, db := setupProjectRepo(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, name, share_id`).
			WithArgs("owner_1").
			WillReturnRows(sqlmock.NewRows(projectCols).
				AddRow("p-1", "Demo", "AbCdEf123456", created, created.Add(time.Minute)))
		mock.ExpectQuery(`FROM tasks`).
			WithArgs("p-1").
			WillReturnRows(sqlmock.NewRows(taskCols).
				AddRow("t-1", "Art pass", "sprites", created.Add(24*time.Hour), 0, "high", "graphics",
					"not-started", nil, nil, created, created).
				AddRow("t-2", "Jump physics", "tune gravity", created.Add(72*time.Hour), 50, "medium", "programming",
					"in-progress", "see GDD", nil, created, created))

		p, err := repo.LatestByOwner(ctx, "owner_1")
		require.NoError(t, err)

		want := demoProject()
		assert.Equal(t, want, p)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found when owner has no project", func(t *testing.T) {
		repo, mock, db := setupProjectRepo(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, name, share_id`).
			WithArgs("owner_2").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.LatestByOwner(ctx, "owner_2")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProjectRepository_ByShareID(t *testing.T) {
	ctx := context.Background()
	repo, mock, db := setupProjectRepo(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE share_id = \$1`).
		WithArgs("AbCdEf123456").
		WillReturnRows(sqlmock.NewRows(projectCols).
			AddRow("p-1", "Demo", "AbCdEf123456", created, created))
	mock.ExpectQuery(`FROM tasks`).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows(taskCols))

	p, err := repo.ByShareID(ctx, "AbCdEf123456")
	require.NoError(t, err)
	assert.Equal(t, "Demo", p.Name)
	assert.Empty(t, p.Tasks)

	mock.ExpectQuery(`WHERE share_id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.ByShareID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProjectRepository_DeleteByOwner(t *testing.T) {
	repo, mock, db := setupProjectRepo(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM projects WHERE owner_id`).
		WithArgs("owner_1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.DeleteByOwner(context.Background(), "owner_1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, mock.ExpectationsWereMet())
}
