package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/unifiedsync/syncd/domain/task"
	"github.com/unifiedsync/syncd/internal/log"
)

// Handler executes a specific task operation.
type Handler interface {
	Execute(ctx context.Context, payload map[string]any) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, payload map[string]any) error

// Execute calls f.
func (f HandlerFunc) Execute(ctx context.Context, payload map[string]any) error {
	return f(ctx, payload)
}

// Registry manages task handlers for different operations.
type Registry struct {
	handlers map[task.Operation]Handler
	mu       sync.RWMutex
}

// NewRegistry creates a new handler registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[task.Operation]Handler),
	}
}

// Register registers a handler for an operation.
func (r *Registry) Register(operation task.Operation, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[operation] = handler
}

// Handler returns the handler for an operation.
func (r *Registry) Handler(operation task.Operation) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[operation]
	return handler, ok
}

// HasHandler reports whether a handler is registered for the operation.
func (r *Registry) HasHandler(operation task.Operation) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[operation]
	return ok
}

// Operations returns all registered operations, sorted.
func (r *Registry) Operations() []task.Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]task.Operation, 0, len(r.handlers))
	for op := range r.handlers {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}

// Worker processes tasks from the queue.
type Worker struct {
	store      task.TaskStore
	registry   *Registry
	logger     *slog.Logger
	pollPeriod time.Duration
	count      int

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewWorker creates a new queue worker.
func NewWorker(store task.TaskStore, registry *Registry, logger *slog.Logger) *Worker {
	return &Worker{
		store:      store,
		registry:   registry,
		logger:     logger,
		pollPeriod: time.Second,
		count:      1,
	}
}

// WithPollPeriod sets the poll period for checking new tasks.
func (w *Worker) WithPollPeriod(d time.Duration) *Worker {
	w.pollPeriod = d
	return w
}

// WithCount sets how many tasks are processed concurrently.
func (w *Worker) WithCount(n int) *Worker {
	if n > 0 {
		w.count = n
	}
	return w
}

// Start begins processing tasks from the queue.
// The worker loops run in goroutines and can be stopped with Stop().
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, w.cancel = context.WithCancel(ctx)
	for range w.count {
		w.wg.Go(func() {
			w.run(ctx)
		})
	}

	w.logger.Info("queue worker started", slog.Int("count", w.count))
}

// Stop gracefully shuts down the worker.
// It waits for the current tasks to complete before returning.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
	w.logger.Info("queue worker stopped")
}

func (w *Worker) run(ctx context.Context) {
	ticker := time.NewTicker(w.pollPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				w.logger.Error("error processing task",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// drain processes tasks until the queue is empty.
func (w *Worker) drain(ctx context.Context) error {
	for ctx.Err() == nil {
		found, err := w.ProcessOne(ctx)
		if err != nil || !found {
			return err
		}
	}
	return nil
}

// ProcessOne dequeues and processes a single task. It reports whether a task
// was found. Handler failures are logged, not returned.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	t, found, err := w.store.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	w.processTask(ctx, t)
	return true, nil
}

// processTask runs the handler for a dequeued task. Dequeue has already
// removed the task, so failures are not retried; the schedule runs it again.
func (w *Worker) processTask(ctx context.Context, t task.Task) {
	start := time.Now()
	ctx = log.WithCorrelationID(ctx, fmt.Sprintf("task-%d", t.ID()))

	w.logger.InfoContext(ctx, "processing task",
		slog.Int64("task_id", t.ID()),
		slog.String("operation", t.Operation().String()),
	)

	h, ok := w.registry.Handler(t.Operation())
	if !ok {
		w.logger.ErrorContext(ctx, "no handler for operation",
			slog.Int64("task_id", t.ID()),
			slog.String("operation", t.Operation().String()),
		)
		return
	}

	if err := w.executeWithRecovery(ctx, h, t); err != nil {
		w.logger.ErrorContext(ctx, "task execution failed",
			slog.Int64("task_id", t.ID()),
			slog.String("operation", t.Operation().String()),
			slog.String("error", err.Error()),
		)
		return
	}

	w.logger.InfoContext(ctx, "task completed",
		slog.Int64("task_id", t.ID()),
		slog.String("operation", t.Operation().String()),
		slog.Duration("duration", time.Since(start)),
	)
}

func (w *Worker) executeWithRecovery(ctx context.Context, h Handler, t task.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Execute(ctx, t.Payload())
}
