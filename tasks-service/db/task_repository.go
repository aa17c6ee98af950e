package db

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/chepyr/session-tasks/internal/logger"
	"github.com/chepyr/session-tasks/internal/metrics"
	"github.com/chepyr/session-tasks/shared/models"
)

// ErrTaskNotFound covers both a missing row and a row owned by another user.
var ErrTaskNotFound = errors.New("task not found or not owned")

// defines methods for task db operations
type TaskRepositoryInterface interface {
	ListByUserID(ctx context.Context, userID string) ([]*models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	UpdateCompletion(ctx context.Context, id int64, userID string, completed bool) error
	Delete(ctx context.Context, id int64, userID string) error
}

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const (
	listTasksQuery = `SELECT id, text, completed, user_id, created_at FROM tasks
	 WHERE user_id = $1 ORDER BY created_at ASC, id ASC`
	createTaskQuery = `INSERT INTO tasks (text, completed, user_id, created_at)
	 VALUES ($1, $2, $3, $4) RETURNING id`
	updateCompletionQuery = `UPDATE tasks SET completed = $1 WHERE id = $2 AND user_id = $3`
	deleteTaskQuery       = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`
)

func (r *TaskRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Task, error) {
	log := logger.With("op", "list", "userId", userID)
	log.Info("fetching tasks")
	started := time.Now()

	rows, err := r.db.QueryContext(ctx, listTasksQuery, userID)
	if err != nil {
		log.Error("fetch tasks failed", "query", listTasksQuery, "error", err)
		metrics.ObserveStore("list", metrics.OutcomeError, started)
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task := &models.Task{}
		if err := rows.Scan(&task.ID, &task.Text, &task.Completed, &task.UserID, &task.CreatedAt); err != nil {
			log.Error("scan task failed", "error", err)
			metrics.ObserveStore("list", metrics.OutcomeError, started)
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("iterate tasks failed", "error", err)
		metrics.ObserveStore("list", metrics.OutcomeError, started)
		return nil, err
	}

	log.Info("fetched tasks", "count", len(tasks))
	metrics.ObserveStore("list", metrics.OutcomeOK, started)
	return tasks, nil
}

// Create inserts the task and sets task.ID to the generated id.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	log := logger.With("op", "create", "userId", task.UserID)
	log.Info("adding task", "text", task.Text, "createdAt", task.CreatedAt)
	started := time.Now()

	err := r.db.QueryRowContext(
		ctx, createTaskQuery, task.Text, task.Completed, task.UserID, task.CreatedAt,
	).Scan(&task.ID)
	if err != nil {
		log.Error("add task failed", "query", createTaskQuery, "text", task.Text, "error", err)
		metrics.ObserveStore("create", metrics.OutcomeError, started)
		return err
	}

	log.Info("task added", "id", task.ID)
	metrics.ObserveStore("create", metrics.OutcomeOK, started)
	return nil
}

func (r *TaskRepository) UpdateCompletion(ctx context.Context, id int64, userID string, completed bool) error {
	log := logger.With("op", "update", "id", id, "userId", userID)
	log.Info("updating task", "completed", completed)
	return r.execOwned(ctx, log, "update", updateCompletionQuery, completed, id, userID)
}

func (r *TaskRepository) Delete(ctx context.Context, id int64, userID string) error {
	log := logger.With("op", "delete", "id", id, "userId", userID)
	log.Info("deleting task")
	return r.execOwned(ctx, log, "delete", deleteTaskQuery, id, userID)
}

// runs a single-row statement filtered by id and owner, zero rows means ErrTaskNotFound
func (r *TaskRepository) execOwned(ctx context.Context, log *slog.Logger, op, query string, args ...any) error {
	started := time.Now()

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error(op+" task failed", "query", query, "error", err)
		metrics.ObserveStore(op, metrics.OutcomeError, started)
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		log.Error(op+" task failed", "query", query, "error", err)
		metrics.ObserveStore(op, metrics.OutcomeError, started)
		return err
	}
	if affected == 0 {
		log.Warn("task not found or does not belong to user")
		metrics.ObserveStore(op, metrics.OutcomeNotFound, started)
		return ErrTaskNotFound
	}

	log.Info(op + " task succeeded")
	metrics.ObserveStore(op, metrics.OutcomeOK, started)
	return nil
}
