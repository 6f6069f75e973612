// Package repository persists projects and their tasks in the remote
// Postgres database (tables projects 1-N tasks).
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/game-schedule/schedule-backend/internal/schedule/domain"
)

const uniqueViolation = "23505"

// ProjectRepository provides persistence operations for projects
type ProjectRepository struct {
	db *sql.DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Ping checks the remote database is reachable.
func (r *ProjectRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Save upserts the project row, then replaces its task rows wholesale
// (delete-then-insert) inside one transaction.
func (r *ProjectRepository) Save(ctx context.Context, ownerID string, p *domain.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `
INSERT INTO projects (id, name, owner_id, share_id, is_public, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	owner_id = EXCLUDED.owner_id,
	share_id = EXCLUDED.share_id,
	is_public = EXCLUDED.is_public,
	updated_at = EXCLUDED.updated_at;
`
	_, err = tx.ExecContext(ctx, upsert,
		p.ID,
		p.Name,
		ownerID,
		nullString(p.ShareID),
		p.ShareID != "",
		isoTime(p.CreatedAt),
		isoTime(p.UpdatedAt),
	)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && string(pgErr.Code) == uniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrShareIDConflict, p.ShareID)
		}
		return fmt.Errorf("failed to upsert project: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = $1`, p.ID); err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}

	if len(p.Tasks) > 0 {
		query, args := insertTasksQuery(p)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert tasks: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project: %w", err)
	}
	return nil
}

var taskColumns = []string{
	"id", "project_id", "title", "description", "deadline", "progress", "priority",
	"category", "status", "notes", "image_url", "position", "created_at", "updated_at",
}

func insertTasksQuery(p *domain.Project) (string, []interface{}) {
	var b strings.Builder
	b.WriteString("INSERT INTO tasks (")
	b.WriteString(strings.Join(taskColumns, ", "))
	b.WriteString(") VALUES ")

	args := make([]interface{}, 0, len(p.Tasks)*len(taskColumns))
	for i, t := range p.Tasks {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range taskColumns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "$%d", len(args)+j+1)
		}
		b.WriteString(")")

		args = append(args,
			t.ID,
			p.ID,
			t.Title,
			t.Description,
			isoTime(t.Deadline),
			t.Progress,
			string(t.Priority),
			string(t.Category),
			string(t.Status),
			nullString(t.Notes),
			nullString(t.ImageURL),
			i,
			isoTime(t.CreatedAt),
			isoTime(t.UpdatedAt),
		)
	}
	return b.String(), args
}

// LatestByOwner returns the most recently updated project of the owner.
func (r *ProjectRepository) LatestByOwner(ctx context.Context, ownerID string) (*domain.Project, error) {
	const q = `
SELECT id, name, share_id, created_at, updated_at
FROM projects
WHERE owner_id = $1
ORDER BY updated_at DESC
LIMIT 1;
`
	return r.loadOne(ctx, q, ownerID)
}

// ByShareID returns the project published under shareID.
func (r *ProjectRepository) ByShareID(ctx context.Context, shareID string) (*domain.Project, error) {
	const q = `
SELECT id, name, share_id, created_at, updated_at
FROM projects
WHERE share_id = $1
LIMIT 1;
`
	return r.loadOne(ctx, q, shareID)
}

// DeleteByOwner removes every project of the owner; tasks cascade.
func (r *ProjectRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete projects: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *ProjectRepository) loadOne(ctx context.Context, q string, arg string) (*domain.Project, error) {
	var (
		p       domain.Project
		shareID sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, arg).Scan(&p.ID, &p.Name, &shareID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	p.ShareID = shareID.String
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	tasks, err := r.listTasks(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Tasks = tasks
	return &p, nil
}

func (r *ProjectRepository) listTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	const q = `
SELECT id, title, description, deadline, progress, priority, category, status, notes, image_url, created_at, updated_at
FROM tasks
WHERE project_id = $1
ORDER BY position ASC, created_at ASC;
`
	rows, err := r.db.QueryContext(ctx, q, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Task, 0, 16)
	for rows.Next() {
		var (
			t                            domain.Task
			description, notes, imageURL sql.NullString
			priority, category, status   string
		)
		if err := rows.Scan(
			&t.ID, &t.Title, &description, &t.Deadline, &t.Progress,
			&priority, &category, &status, &notes, &imageURL,
			&t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Description = description.String
		t.Notes = notes.String
		t.ImageURL = imageURL.String
		t.Priority = domain.Priority(priority)
		t.Category = domain.Category(category)
		t.Status = domain.Status(status)
		t.Deadline = t.Deadline.UTC()
		t.CreatedAt = t.CreatedAt.UTC()
		t.UpdatedAt = t.UpdatedAt.UTC()
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// isoTime renders timestamps as ISO-8601 strings for the wire.
func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
