package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hiroki-koketsu/task-tracker/internal/model"
	"github.com/hiroki-koketsu/task-tracker/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/hiroki-koketsu/task-tracker/internal/handler")

const (
	routeTasks    = "/tasks"
	routeTaskByID = "/tasks/{id}"
)

// TaskStore is the persistence the handler needs.
type TaskStore interface {
	List(ctx context.Context) ([]*model.Task, error)
	GetByID(ctx context.Context, id int64) (*model.Task, error)
	Create(ctx context.Context, in *model.TaskInput) (*model.Task, error)
	Update(ctx context.Context, id int64, in *model.TaskInput) (int64, error)
	Delete(ctx context.Context, id int64) (int64, error)
	Ping(ctx context.Context) error
}

// TaskHandler handles HTTP requests for tasks.
type TaskHandler struct {
	store    TaskStore
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	basePath string
}

// NewTaskHandler creates a new TaskHandler. basePath is the prefix the task
// routes are mounted under and is only used to label metrics.
func NewTaskHandler(store TaskStore, logger *slog.Logger, metrics *telemetry.Metrics, basePath string) *TaskHandler {
	return &TaskHandler{
		store:    store,
		logger:   logger,
		metrics:  metrics,
		basePath: basePath,
	}
}

// Routes returns the chi router with task routes.
func (h *TaskHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)

	return r
}

// List returns all tasks.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.List")
	defer span.End()

	h.logger.InfoContext(ctx, "listing all tasks")

	tasks, err := h.store.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list tasks", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch tasks.")
		h.recordMetrics(ctx, http.MethodGet, routeTasks, http.StatusInternalServerError, start)
		return
	}

	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	h.logger.InfoContext(ctx, "tasks listed", slog.Int("count", len(tasks)))

	h.respondJSON(w, http.StatusOK, tasks)
	h.recordMetrics(ctx, http.MethodGet, routeTasks, http.StatusOK, start)
}

// Create adds a new task.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	ctx, span := tracer.Start(ctx, "TaskHandler.Create")
	defer span.End()

	in, ok := h.decodeTask(ctx, w, r)
	if !ok {
		h.recordMetrics(ctx, http.MethodPost, routeTasks, http.StatusBadRequest, start)
		return
	}

	h.logger.InfoContext(ctx, "creating task", slog.String("task", in.Task))

	task, err := h.store.Create(ctx, in)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create task", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to add task.")
		h.recordMetrics(ctx, http.MethodPost, routeTasks, http.StatusInternalServerError, start)
		return
	}

	span.SetAttributes(attribute.Int64("task.id", task.ID))
	h.logger.InfoContext(ctx, "task created", slog.Int64("id", task.ID))

	h.respondJSON(w, http.StatusCreated, task)
	h.recordMetrics(ctx, http.MethodPost, routeTasks, http.StatusCreated, start)
}

// GetByID returns a task by ID.
func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	rawID := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.GetByID",
		trace.WithAttributes(attribute.String("task.id", rawID)),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "getting task", slog.String("id", rawID))

	id, ok := parseID(rawID)
	if !ok {
		h.notFound(ctx, w, rawID)
		h.recordMetrics(ctx, http.MethodGet, routeTaskByID, http.StatusNotFound, start)
		return
	}

	task, err := h.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			h.notFound(ctx, w, rawID)
			h.recordMetrics(ctx, http.MethodGet, routeTaskByID, http.StatusNotFound, start)
			return
		}
		h.logger.ErrorContext(ctx, "failed to get task", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to fetch task.")
		h.recordMetrics(ctx, http.MethodGet, routeTaskByID, http.StatusInternalServerError, start)
		return
	}

	h.logger.InfoContext(ctx, "task retrieved", slog.Int64("id", id))

	h.respondJSON(w, http.StatusOK, task)
	h.recordMetrics(ctx, http.MethodGet, routeTaskByID, http.StatusOK, start)
}

// Update replaces every field of an existing task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	rawID := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.Update",
		trace.WithAttributes(attribute.String("task.id", rawID)),
	)
	defer span.End()

	in, ok := h.decodeTask(ctx, w, r)
	if !ok {
		h.recordMetrics(ctx, http.MethodPut, routeTaskByID, http.StatusBadRequest, start)
		return
	}

	id, ok := parseID(rawID)
	if !ok {
		h.notFound(ctx, w, rawID)
		h.recordMetrics(ctx, http.MethodPut, routeTaskByID, http.StatusNotFound, start)
		return
	}

	h.logger.InfoContext(ctx, "updating task", slog.Int64("id", id))

	n, err := h.store.Update(ctx, id, in)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to update task", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to update task.")
		h.recordMetrics(ctx, http.MethodPut, routeTaskByID, http.StatusInternalServerError, start)
		return
	}
	if n == 0 {
		h.notFound(ctx, w, rawID)
		h.recordMetrics(ctx, http.MethodPut, routeTaskByID, http.StatusNotFound, start)
		return
	}

	h.logger.InfoContext(ctx, "task updated", slog.Int64("id", id))

	h.respondJSON(w, http.StatusOK, &model.Task{
		ID:          id,
		Task:        in.Task,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
	})
	h.recordMetrics(ctx, http.MethodPut, routeTaskByID, http.StatusOK, start)
}

// Delete removes a task.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	rawID := chi.URLParam(r, "id")

	ctx, span := tracer.Start(ctx, "TaskHandler.Delete",
		trace.WithAttributes(attribute.String("task.id", rawID)),
	)
	defer span.End()

	h.logger.InfoContext(ctx, "deleting task", slog.String("id", rawID))

	id, ok := parseID(rawID)
	if !ok {
		h.notFound(ctx, w, rawID)
		h.recordMetrics(ctx, http.MethodDelete, routeTaskByID, http.StatusNotFound, start)
		return
	}

	n, err := h.store.Delete(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to delete task", slog.Any("error", err))
		h.respondError(w, http.StatusInternalServerError, "Failed to delete task.")
		h.recordMetrics(ctx, http.MethodDelete, routeTaskByID, http.StatusInternalServerError, start)
		return
	}
	if n == 0 {
		h.notFound(ctx, w, rawID)
		h.recordMetrics(ctx, http.MethodDelete, routeTaskByID, http.StatusNotFound, start)
		return
	}

	h.logger.InfoContext(ctx, "task deleted", slog.Int64("id", id))

	w.WriteHeader(http.StatusNoContent)
	h.recordMetrics(ctx, http.MethodDelete, routeTaskByID, http.StatusNoContent, start)
}

// Health reports whether the database is reachable.
func (h *TaskHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "health check failed", slog.Any("error", err))
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeTask reads and validates a task body, writing the 400 response
// itself when the body is unusable.
func (h *TaskHandler) decodeTask(ctx context.Context, w http.ResponseWriter, r *http.Request) (*model.TaskInput, bool) {
	var req model.TaskRequest
	// An empty body carries no fields, which validation reports as missing.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.WarnContext(ctx, "invalid request body", slog.Any("error", err))
		h.respondError(w, http.StatusBadRequest, "Invalid request body.")
		return nil, false
	}

	in, err := req.Validate()
	if err != nil {
		h.logger.WarnContext(ctx, "validation failed", slog.Any("error", err))
		h.respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	return in, true
}

func (h *TaskHandler) notFound(ctx context.Context, w http.ResponseWriter, id string) {
	h.logger.WarnContext(ctx, "task not found", slog.String("id", id))
	h.respondError(w, http.StatusNotFound, model.ErrTaskNotFound.Error())
}

// parseID accepts positive integer ids. Anything else can match no row.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (h *TaskHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *TaskHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func (h *TaskHandler) recordMetrics(ctx context.Context, method, route string, status int, start time.Time) {
	duration := time.Since(start).Seconds()

	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", h.basePath+route),
		attribute.Int("http.status_code", status),
	)

	h.metrics.RequestCounter.Add(ctx, 1, attrs)
	h.metrics.RequestDuration.Record(ctx, duration, attrs)
}
