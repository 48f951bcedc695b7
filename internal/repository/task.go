package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hiroki-koketsu/task-tracker/internal/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/task-tracker/internal/repository")

// Dialect selects the SQL flavour spoken by the underlying driver.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// rebind rewrites ? placeholders into the dialect's bind syntax.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

const (
	listTasksSQL  = `SELECT id, task, description, start_date, end_date FROM tasks ORDER BY id DESC`
	getTaskSQL    = `SELECT id, task, description, start_date, end_date FROM tasks WHERE id = ?`
	insertTaskSQL = `INSERT INTO tasks (task, description, start_date, end_date) VALUES (?, ?, ?, ?) RETURNING id`
	updateTaskSQL = `UPDATE tasks SET task = ?, description = ?, start_date = ?, end_date = ? WHERE id = ?`
	deleteTaskSQL = `DELETE FROM tasks WHERE id = ?`
	countTasksSQL = `SELECT COUNT(*) FROM tasks`
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task TEXT NOT NULL,
	description TEXT NOT NULL,
	start_date DATE NOT NULL,
	end_date DATE NOT NULL
)`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tasks (
	id BIGSERIAL PRIMARY KEY,
	task TEXT NOT NULL,
	description TEXT NOT NULL,
	start_date DATE NOT NULL,
	end_date DATE NOT NULL
)`

// TaskRepository persists tasks in the tasks table.
type TaskRepository struct {
	db      *sql.DB
	dialect Dialect
}

// NewTaskRepository creates a new TaskRepository over an open database handle.
func NewTaskRepository(db *sql.DB, dialect Dialect) *TaskRepository {
	return &TaskRepository{
		db:      db,
		dialect: dialect,
	}
}

// EnsureSchema creates the tasks table when it does not exist yet.
func (r *TaskRepository) EnsureSchema(ctx context.Context) error {
	ddl := sqliteSchema
	if r.dialect == DialectPostgres {
		ddl = postgresSchema
	}
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create tasks table: %w", err)
	}
	return nil
}

// Create inserts a new task and returns it with its generated ID.
func (r *TaskRepository) Create(ctx context.Context, in *model.TaskInput) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.Create",
		trace.WithAttributes(attribute.String("task.name", in.Task)),
	)
	defer span.End()

	var id int64
	err := r.db.QueryRowContext(ctx, r.dialect.rebind(insertTaskSQL),
		in.Task, in.Description, in.StartDate, in.EndDate,
	).Scan(&id)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to insert task: %w", err))
	}

	span.SetAttributes(attribute.Int64("task.id", id))
	return &model.Task{
		ID:          id,
		Task:        in.Task,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	}, nil
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.GetByID",
		trace.WithAttributes(attribute.Int64("task.id", id)),
	)
	defer span.End()

	row := r.db.QueryRowContext(ctx, r.dialect.rebind(getTaskSQL), id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetAttributes(attribute.Bool("task.found", false))
		return nil, model.ErrTaskNotFound
	}
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to get task %d: %w", id, err))
	}

	span.SetAttributes(attribute.Bool("task.found", true))
	return task, nil
}

// List returns all tasks, newest first.
func (r *TaskRepository) List(ctx context.Context) ([]*model.Task, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.List")
	defer span.End()

	rows, err := r.db.QueryContext(ctx, listTasksSQL)
	if err != nil {
		return nil, fail(span, fmt.Errorf("failed to list tasks: %w", err))
	}
	defer rows.Close()

	tasks := make([]*model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fail(span, fmt.Errorf("failed to scan task: %w", err))
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("failed to list tasks: %w", err))
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// Update overwrites every field of an existing task and reports how many
// rows were affected.
func (r *TaskRepository) Update(ctx context.Context, id int64, in *model.TaskInput) (int64, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.Update",
		trace.WithAttributes(attribute.Int64("task.id", id)),
	)
	defer span.End()

	res, err := r.db.ExecContext(ctx, r.dialect.rebind(updateTaskSQL),
		in.Task, in.Description, in.StartDate, in.EndDate, id,
	)
	if err != nil {
		return 0, fail(span, fmt.Errorf("failed to update task %d: %w", id, err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fail(span, fmt.Errorf("failed to update task %d: %w", id, err))
	}

	span.SetAttributes(attribute.Bool("task.found", n > 0))
	return n, nil
}

// Delete removes a task and reports how many rows were affected.
func (r *TaskRepository) Delete(ctx context.Context, id int64) (int64, error) {
	ctx, span := tracer.Start(ctx, "TaskRepository.Delete",
		trace.WithAttributes(attribute.Int64("task.id", id)),
	)
	defer span.End()

	res, err := r.db.ExecContext(ctx, r.dialect.rebind(deleteTaskSQL), id)
	if err != nil {
		return 0, fail(span, fmt.Errorf("failed to delete task %d: %w", id, err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fail(span, fmt.Errorf("failed to delete task %d: %w", id, err))
	}

	span.SetAttributes(attribute.Bool("task.found", n > 0))
	return n, nil
}

// Count returns the current number of tasks.
func (r *TaskRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, countTasksSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	return n, nil
}

// Ping verifies the database is reachable.
func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*model.Task, error) {
	var (
		task       model.Task
		start, end dateColumn
	)
	if err := s.Scan(&task.ID, &task.Task, &task.Description, &start, &end); err != nil {
		return nil, err
	}
	task.StartDate = string(start)
	task.EndDate = string(end)
	return &task, nil
}

// dateColumn normalises DATE values to YYYY-MM-DD. Drivers hand them back
// either as time.Time or as text depending on the engine.
type dateColumn string

func (d *dateColumn) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = dateColumn(v.Format(model.DateLayout))
	case string:
		*d = dateColumn(truncateDate(v))
	case []byte:
		*d = dateColumn(truncateDate(string(v)))
	case nil:
		*d = ""
	default:
		return fmt.Errorf("unsupported date value %T", src)
	}
	return nil
}

func truncateDate(s string) string {
	if len(s) > len(model.DateLayout) {
		return s[:len(model.DateLayout)]
	}
	return s
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
