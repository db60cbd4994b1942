// Package worker runs periodic maintenance tasks for the server: expired
// session cleanup and recovery of videos stuck in processing.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Worker runs each registered task on its own ticker.
type Worker struct {
	tasks  map[string]Task
	config Config
	logger *slog.Logger

	wg     sync.WaitGroup
	stopCh chan struct{}
	once   sync.Once
}

// New creates a Worker. Register tasks, then call Start and Stop.
func New(config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		tasks:  make(map[string]Task),
		config: config,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Register adds a task. Call this before Start.
func (w *Worker) Register(task Task) {
	name := task.Name()
	if _, exists := w.tasks[name]; exists {
		w.logger.Warn("Overwriting existing task", "task", name)
	}
	w.tasks[name] = task
	w.logger.Debug("Registered task", "task", name)
}

// Start runs every task once and then every Interval until Stop or ctx ends.
func (w *Worker) Start(ctx context.Context) {
	for _, task := range w.tasks {
		w.wg.Add(1)
		go w.runTask(ctx, task)
	}
	w.logger.Info("Worker started", "tasks", len(w.tasks), "interval", w.config.Interval)
}

// Stop signals all tasks to stop and waits up to ShutdownTimeout.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.stopCh) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Worker stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("Worker shutdown timeout exceeded, some tasks may still be running")
	}
}

func (w *Worker) runTask(ctx context.Context, task Task) {
	defer w.wg.Done()

	logger := w.logger.With("task", task.Name())
	if !w.runOnce(ctx, task, logger) {
		return
	}

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !w.runOnce(ctx, task, logger) {
				return
			}
		}
	}
}

// runOnce reports whether the task should keep being scheduled.
func (w *Worker) runOnce(ctx context.Context, task Task, logger *slog.Logger) bool {
	taskCtx, cancel := context.WithTimeout(ctx, w.config.TaskTimeout)
	defer cancel()

	start := time.Now()
	err := task.Run(taskCtx)
	if err == nil {
		logger.Debug("Task completed", "duration_ms", time.Since(start).Milliseconds())
		return true
	}
	if IsPermanent(err) {
		logger.Error("Task failed permanently, not rescheduling", "error", err)
		return false
	}
	logger.Error("Task failed", "error", err)
	return true
}
