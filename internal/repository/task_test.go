package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/hiroki-koketsu/task-tracker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// setupTestRepo opens a SQLite database in a temporary directory and
// creates the tasks table.
func setupTestRepo(t *testing.T) (*TaskRepository, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewTaskRepository(db, DialectSQLite)
	require.NoError(t, repo.EnsureSchema(context.Background()))

	return repo, db
}

func newInput(name string) *model.TaskInput {
	return &model.TaskInput{
		Task:        name,
		Description: "description of " + name,
		StartDate:   "2024-01-01",
		EndDate:     "2024-01-02",
	}
}

func TestDialect_Rebind(t *testing.T) {
	assert.Equal(t, updateTaskSQL, DialectSQLite.rebind(updateTaskSQL))
	assert.Equal(t,
		"UPDATE tasks SET task = $1, description = $2, start_date = $3, end_date = $4 WHERE id = $5",
		DialectPostgres.rebind(updateTaskSQL),
	)
}

func TestTaskRepository_EnsureSchemaIsRepeatable(t *testing.T) {
	repo, _ := setupTestRepo(t)

	assert.NoError(t, repo.EnsureSchema(context.Background()))
}

func TestTaskRepository_Create(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	first, err := repo.Create(ctx, newInput("Buy milk"))
	require.NoError(t, err)
	second, err := repo.Create(ctx, newInput("Walk dog"))
	require.NoError(t, err)

	assert.Positive(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "Buy milk", first.Task)
	assert.Equal(t, "description of Buy milk", first.Description)
	assert.Equal(t, "2024-01-01", first.StartDate)
	assert.Equal(t, "2024-01-02", first.EndDate)
}

func TestTaskRepository_GetByID(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, newInput("Buy milk"))
	require.NoError(t, err)

	t.Run("existing task", func(t *testing.T) {
		found, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, found)
	})

	t.Run("non-existent task", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 999999)
		assert.ErrorIs(t, err, model.ErrTaskNotFound)
	})
}

func TestTaskRepository_List(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	t.Run("empty table", func(t *testing.T) {
		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	})

	t.Run("newest first", func(t *testing.T) {
		var ids []int64
		for _, name := range []string{"one", "two", "three"} {
			task, err := repo.Create(ctx, newInput(name))
			require.NoError(t, err)
			ids = append(ids, task.ID)
		}

		tasks, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, ids[2], tasks[0].ID)
		assert.Equal(t, ids[1], tasks[1].ID)
		assert.Equal(t, ids[0], tasks[2].ID)
		assert.Equal(t, "three", tasks[0].Task)
	})
}

func TestTaskRepository_Update(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, newInput("Buy milk"))
	require.NoError(t, err)

	t.Run("existing task", func(t *testing.T) {
		in := &model.TaskInput{
			Task:        "Buy oat milk",
			Description: "1L",
			StartDate:   "2024-03-01",
			EndDate:     "2024-03-05",
		}
		n, err := repo.Update(ctx, created.ID, in)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		found, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Buy oat milk", found.Task)
		assert.Equal(t, "1L", found.Description)
		assert.Equal(t, "2024-03-01", found.StartDate)
		assert.Equal(t, "2024-03-05", found.EndDate)
	})

	t.Run("non-existent task creates nothing", func(t *testing.T) {
		n, err := repo.Update(ctx, 999999, newInput("ghost"))
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		count, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func TestTaskRepository_Delete(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, newInput("Buy milk"))
	require.NoError(t, err)

	n, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, model.ErrTaskNotFound)
}

func TestTaskRepository_Count(t *testing.T) {
	repo, _ := setupTestRepo(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		_, err := repo.Create(ctx, newInput(name))
		require.NoError(t, err)
	}

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestTaskRepository_ClosedDatabase(t *testing.T) {
	repo, db := setupTestRepo(t)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := repo.List(ctx)
	assert.Error(t, err)

	_, err = repo.GetByID(ctx, 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, model.ErrTaskNotFound)

	_, err = repo.Create(ctx, newInput("x"))
	assert.Error(t, err)

	assert.Error(t, repo.Ping(ctx))
}

func TestDateColumn_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want string
	}{
		{"time", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "2024-01-01"},
		{"text", "2024-01-01", "2024-01-01"},
		{"text with time", "2024-01-01T00:00:00Z", "2024-01-01"},
		{"bytes", []byte("2024-05-06"), "2024-05-06"},
		{"null", nil, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var d dateColumn
			require.NoError(t, d.Scan(tc.src))
			assert.Equal(t, tc.want, string(d))
		})
	}

	var d dateColumn
	assert.Error(t, d.Scan(42))
}
