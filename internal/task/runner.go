package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Runner dispatches background tasks. Each submission runs in its own
// goroutine with no upper bound on in-flight tasks: dispatch is
// deliberately fire-and-forget, with every job driven by exactly one
// task started at submission time. The runner tracks goroutines only so
// shutdown can drain them.
type Runner struct {
	baseCtx    context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	logger     *slog.Logger
	errHandler func(task Task, err error)

	mu      sync.Mutex
	stopped bool
}

// NewRunner creates a Runner ready to accept submissions.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		baseCtx:    ctx,
		cancelFunc: cancel,
		logger:     logger,
		errHandler: func(task Task, err error) {
			// Default error handler just logs the error; the task has
			// already written the failure into the record store.
			logger.Error("task execution failed",
				"task_id", task.ID(),
				"task_type", task.Type(),
				"error", err)
		},
	}
}

// SetErrorHandler allows setting a custom error handler function.
func (r *Runner) SetErrorHandler(handler func(task Task, err error)) {
	r.errHandler = handler
}

// Submit launches the task in the background and returns immediately.
// The task runs on the runner's own context, not the caller's: the
// request that triggered it does not need to outlive the work.
func (r *Runner) Submit(_ context.Context, task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return fmt.Errorf("runner is stopped, rejecting task %s", task.ID())
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(task)
	}()

	return nil
}

// run executes a single task and routes failures to the error handler.
func (r *Runner) run(task Task) {
	logger := r.logger.With(
		"task_id", task.ID(),
		"task_type", task.Type(),
	)

	defer func() {
		if p := recover(); p != nil {
			logger.Error("task panicked", "panic", p)
		}
	}()

	logger.Debug("processing task")

	if err := task.Execute(r.baseCtx); err != nil {
		r.errHandler(task, err)
		return
	}

	logger.Debug("task completed")
}

// Stop rejects further submissions and waits for in-flight tasks to
// finish, up to the deadline on ctx. In-flight recognitions are allowed
// to run to their terminal state rather than being aborted.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancelFunc()
		return nil
	case <-ctx.Done():
		// Give up waiting; cancel the base context so abandoned tasks
		// stop as soon as their next suspension point notices.
		r.cancelFunc()
		return fmt.Errorf("runner drain interrupted: %w", ctx.Err())
	}
}
