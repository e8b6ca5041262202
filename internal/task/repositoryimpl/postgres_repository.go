package repositoryimpl

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/kazz187/eisenhower/internal/task"
	"github.com/kazz187/eisenhower/pkg/cerr"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
	id                       TEXT PRIMARY KEY,
	user_id                  TEXT NOT NULL,
	title                    TEXT NOT NULL DEFAULT '',
	description              TEXT NOT NULL DEFAULT '',
	type                     TEXT NOT NULL DEFAULT 'deadline',
	category                 TEXT NOT NULL DEFAULT '',
	task_date                TIMESTAMPTZ,
	start_date               TIMESTAMPTZ,
	end_date                 TIMESTAMPTZ,
	priority                 TEXT NOT NULL DEFAULT '',
	in_group_rank            INTEGER,
	prioritized_at           TIMESTAMPTZ,
	priority_reasoning       TEXT NOT NULL DEFAULT '',
	is_done                  BOOLEAN NOT NULL DEFAULT FALSE,
	ai_schedule_locked       BOOLEAN NOT NULL DEFAULT FALSE,
	scheduled_at             TIMESTAMPTZ,
	schedule_reasoning       TEXT NOT NULL DEFAULT '',
	google_calendar_event_id TEXT NOT NULL DEFAULT '',
	google_calendar_synced   BOOLEAN NOT NULL DEFAULT FALSE,
	created_at               TIMESTAMPTZ NOT NULL,
	updated_at               TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS tasks_user_id_idx ON tasks (user_id, created_at, id);
`

const columns = `id, user_id, title, description, type, category,
	task_date, start_date, end_date,
	priority, in_group_rank, prioritized_at, priority_reasoning,
	is_done, ai_schedule_locked, scheduled_at, schedule_reasoning,
	google_calendar_event_id, google_calendar_synced, created_at, updated_at`

// PostgresRepository stores tasks in a single tasks table.
type PostgresRepository struct {
	db  *sql.DB
	now func() time.Time
}

// OpenPostgres connects and pings, the way the rest of the service expects a
// ready handle.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

func (r *PostgresRepository) WithClock(now func() time.Time) *PostgresRepository {
	r.now = now
	return r
}

func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create tasks schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var (
		t                                               task.Task
		taskDate, startDate, endDate, prioritizedAt, sa sql.NullTime
		rank                                            sql.NullInt64
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &t.Description, &t.Type, &t.Category,
		&taskDate, &startDate, &endDate,
		&t.Priority, &rank, &prioritizedAt, &t.PriorityReasoning,
		&t.IsDone, &t.AIScheduleLocked, &sa, &t.ScheduleReasoning,
		&t.GoogleCalendarEventID, &t.GoogleCalendarSynced, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.TaskDate = fromNullTime(taskDate)
	t.StartDate = fromNullTime(startDate)
	t.EndDate = fromNullTime(endDate)
	t.PrioritizedAt = fromNullTime(prioritizedAt)
	t.ScheduledAt = fromNullTime(sa)
	if rank.Valid {
		v := int(rank.Int64)
		t.InGroupRank = &v
	}
	return &t, nil
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time.UTC()
	return &v
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func toNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func values(t *task.Task) []any {
	return []any{
		t.ID, t.UserID, t.Title, t.Description, string(t.Type), t.Category,
		toNullTime(t.TaskDate), toNullTime(t.StartDate), toNullTime(t.EndDate),
		string(t.Priority), toNullInt(t.InGroupRank), toNullTime(t.PrioritizedAt), t.PriorityReasoning,
		t.IsDone, t.AIScheduleLocked, toNullTime(t.ScheduledAt), t.ScheduleReasoning,
		t.GoogleCalendarEventID, t.GoogleCalendarSynced, t.CreatedAt, t.UpdatedAt,
	}
}

func (r *PostgresRepository) Create(ctx context.Context, t *task.Task) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO tasks (`+columns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		values(t)...)
	if err != nil {
		return cerr.WrapPostgresWriteError("task", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*task.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, `SELECT `+columns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return nil, cerr.WrapPostgresReadError("task", err)
	}
	return t, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cerr.WrapPostgresReadError("tasks", err)
	}
	defer rows.Close()
	var out []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, cerr.WrapPostgresReadError("tasks", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, cerr.WrapPostgresReadError("tasks", err)
	}
	return out, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*task.Task, error) {
	return r.list(ctx, `SELECT `+columns+` FROM tasks WHERE user_id = $1 ORDER BY created_at, id`, userID)
}

func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*task.Task, error) {
	return r.list(ctx, `SELECT `+columns+` FROM tasks WHERE user_id = $1 AND NOT is_done ORDER BY created_at, id`, userID)
}

// Update locks the row, applies the patch in Go and writes every column back.
func (r *PostgresRepository) Update(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, cerr.WrapPostgresWriteError("task", err)
	}
	defer tx.Rollback() //nolint:errcheck

	t, err := scanTask(tx.QueryRowContext(ctx, `SELECT `+columns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, cerr.WrapPostgresReadError("task", err)
	}
	patch.Apply(t, r.now())

	_, err = tx.ExecContext(ctx, `UPDATE tasks SET
		user_id = $2, title = $3, description = $4, type = $5, category = $6,
		task_date = $7, start_date = $8, end_date = $9,
		priority = $10, in_group_rank = $11, prioritized_at = $12, priority_reasoning = $13,
		is_done = $14, ai_schedule_locked = $15, scheduled_at = $16, schedule_reasoning = $17,
		google_calendar_event_id = $18, google_calendar_synced = $19, created_at = $20, updated_at = $21
		WHERE id = $1`, values(t)...)
	if err != nil {
		return nil, cerr.WrapPostgresWriteError("task", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, cerr.WrapPostgresWriteError("task", err)
	}
	return t, nil
}
