package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/unifiedsync/syncd/domain/entity"
	"github.com/unifiedsync/syncd/domain/task"
)

// Scheduler runs named jobs on cron expressions.
type Scheduler struct {
	cron    *cron.Cron
	entries map[string]scheduledJob
	logger  *slog.Logger
	ctx     context.Context
	running bool
	mu      sync.Mutex
}

type scheduledJob struct {
	expr string
	id   cron.EntryID
}

// NewScheduler creates a stopped Scheduler using five-field cron expressions.
func NewScheduler(logger *slog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		entries: make(map[string]scheduledJob),
		logger:  logger,
		ctx:     context.Background(),
	}
}

// Register schedules fn under name. Registering the same name and
// expression again does nothing; a different expression replaces the entry.
func (s *Scheduler) Register(name, expr string, fn func(ctx context.Context)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[name]; ok {
		if existing.expr == expr {
			return nil
		}
		s.cron.Remove(existing.id)
		delete(s.entries, name)
	}

	id, err := s.cron.AddFunc(expr, func() {
		fn(s.context())
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.entries[name] = scheduledJob{expr: expr, id: id}

	s.logger.Debug("job scheduled", slog.String("job", name), slog.String("cron", expr))
	return nil
}

// Jobs returns the registered job names and their expressions.
func (s *Scheduler) Jobs() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.entries))
	for name, e := range s.entries {
		out[name] = e.expr
	}
	return out
}

// Run invokes the job registered under name immediately.
func (s *Scheduler) Run(name string) bool {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.cron.Entry(e.id).WrappedJob.Run()
	return true
}

// Start begins firing jobs. Jobs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.ctx = ctx
	s.running = true
	s.cron.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.entries)))
}

// Stop stops firing jobs and waits for running ones to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// ScheduleSyncs registers one job per descriptor that enqueues a
// background sync of its entity type. override, when set, replaces every
// descriptor's expression.
func ScheduleSyncs(s *Scheduler, catalog entity.Catalog, queue *Queue, override string) error {
	for _, desc := range catalog.All() {
		expr := desc.Cron
		if override != "" {
			expr = override
		}
		if expr == "" {
			expr = entity.DefaultCron
		}
		name := desc.JobName
		if name == "" {
			name = desc.Type.String()
		}

		t := desc.Type
		err := s.Register(name, expr, func(ctx context.Context) {
			if _, err := queue.EnqueueSync(ctx, SyncRequest{EntityType: t}, task.PriorityBackground); err != nil {
				s.logger.ErrorContext(ctx, "scheduled sync enqueue failed",
					slog.String("job", name),
					slog.String("error", err.Error()),
				)
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
