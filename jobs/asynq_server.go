package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-reports/internal/platform/httpx"
)

// Worker wraps the Asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if len(cfg.Handlers) == 0 {
		return nil, errors.New("worker: no handlers registered")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	logger := cfg.Logger
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueExports: 3,
			QueueDefault: 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("task failed", slog.String("type", task.Type()), slog.Any("error", err))
		}),
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}
	return &Worker{server: srv, mux: mux, logger: logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueTrialBalanceExport enqueues an asynchronous trial balance export.
func (c *Client) EnqueueTrialBalanceExport(ctx context.Context, payload TrialBalanceExportPayload) (*asynq.TaskInfo, error) {
	task, err := NewTrialBalanceExportTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3), asynq.Retention(24*time.Hour))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// QueueStats summarises the current state of one queue.
type QueueStats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Completed int    `json:"completed"`
}

// Inspect reports the stats of the export and default queues. Queues that
// have never received a task are reported empty.
func Inspect(inspector *asynq.Inspector) ([]QueueStats, error) {
	if inspector == nil {
		return nil, errors.New("jobs: inspector not configured")
	}
	known, err := inspector.Queues()
	if err != nil {
		return nil, err
	}
	exists := make(map[string]bool, len(known))
	for _, q := range known {
		exists[q] = true
	}
	out := make([]QueueStats, 0, 2)
	for _, q := range []string{QueueExports, QueueDefault} {
		stats := QueueStats{Queue: q}
		if exists[q] {
			info, err := inspector.GetQueueInfo(q)
			if err != nil {
				return nil, err
			}
			stats.Pending = info.Pending
			stats.Active = info.Active
			stats.Scheduled = info.Scheduled
			stats.Retry = info.Retry
			stats.Completed = info.Completed
		}
		out = append(out, stats)
	}
	return out, nil
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector *asynq.Inspector
	logger    *slog.Logger
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector *asynq.Inspector, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/exports/{id}", h.exportStatus)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"queues": []QueueStats{{Queue: QueueExports}, {Queue: QueueDefault}}})
		return
	}
	stats, err := Inspect(h.inspector)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"queues": stats})
}

// ExportStatus is the public view of an export task.
type ExportStatus struct {
	ID        string     `json:"id"`
	State     string     `json:"state"`
	Retried   int        `json:"retried"`
	LastError string     `json:"last_error,omitempty"`
	DoneAt    *time.Time `json:"completed_at,omitempty"`
}

func (h *Handler) exportStatus(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	id := chi.URLParam(r, "id")
	info, err := h.inspector.GetTaskInfo(QueueExports, id)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "unknown export job")
			return
		}
		h.logger.Warn("export status", slog.String("id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "")
		return
	}
	status := ExportStatus{ID: info.ID, State: info.State.String(), Retried: info.Retried, LastError: info.LastErr}
	if !info.CompletedAt.IsZero() {
		done := info.CompletedAt
		status.DoneAt = &done
	}
	httpx.JSON(w, http.StatusOK, status)
}
