package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

// Handler delivers one task. Returning an error schedules a retry unless it
// is wrapped with Permanent.
type Handler func(ctx context.Context, task *models.OutboxTask) error

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// decodePayload unmarshals a task payload; a malformed payload is permanent.
func decodePayload(task *models.OutboxTask, v any) error {
	if err := json.Unmarshal([]byte(task.Payload), v); err != nil {
		return Permanent(fmt.Errorf("decode %s payload: %w", task.Kind, err))
	}
	return nil
}

type WorkerConfig struct {
	PollInterval time.Duration
	Lease        time.Duration
	MaxAttempts  int
	BaseBackoff  time.Duration
	MaxBackoff   time.Duration
	TaskTimeout  time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.Lease <= 0 {
		c.Lease = time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 5 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Minute
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 30 * time.Second
	}
	return c
}

type Worker struct {
	repo     store.OutboxRepository
	cfg      WorkerConfig
	mu       sync.RWMutex
	handlers map[string]Handler
	now      func() time.Time
}

func NewWorker(repo store.OutboxRepository, cfg WorkerConfig) *Worker {
	return &Worker{
		repo:     repo,
		cfg:      cfg.withDefaults(),
		handlers: make(map[string]Handler),
		now:      time.Now,
	}
}

func (w *Worker) Register(kind string, h Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[kind] = h
}

// Run polls for due tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("[OUTBOX] [INFO] worker started, polling every %s", w.cfg.PollInterval)
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx)
		select {
		case <-ctx.Done():
			log.Println("[OUTBOX] [INFO] worker stopped")
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		processed, err := w.ProcessOnce(ctx)
		if err != nil {
			log.Println("[OUTBOX] [ERROR] process:", err)
			return
		}
		if !processed {
			return
		}
	}
}

// ProcessOnce claims and runs a single due task. It reports false when
// nothing was due.
func (w *Worker) ProcessOnce(ctx context.Context) (bool, error) {
	task, err := w.repo.ClaimDue(ctx, w.now().UTC(), w.cfg.Lease)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	w.mu.RLock()
	handler, ok := w.handlers[task.Kind]
	w.mu.RUnlock()

	var runErr error
	if !ok {
		runErr = Permanent(fmt.Errorf("no handler for task kind %q", task.Kind))
	} else {
		runErr = w.run(ctx, handler, task)
	}

	now := w.now().UTC()
	if runErr == nil {
		outboxTasks.WithLabelValues(task.Kind, "done").Inc()
		return true, w.repo.Complete(ctx, task.ID, now)
	}

	attempts := task.Attempts + 1
	if isPermanent(runErr) || attempts >= w.cfg.MaxAttempts {
		log.Printf("[OUTBOX] [ERROR] task %s (%s) failed after %d attempt(s): %v", task.ID.Hex(), task.Kind, attempts, runErr)
		outboxTasks.WithLabelValues(task.Kind, "failed").Inc()
		return true, w.repo.Fail(ctx, task.ID, attempts, runErr.Error(), now)
	}

	next := now.Add(w.backoff(attempts))
	log.Printf("[OUTBOX] [WARN] task %s (%s) attempt %d failed, retrying at %s: %v", task.ID.Hex(), task.Kind, attempts, next.Format(time.RFC3339), runErr)
	outboxTasks.WithLabelValues(task.Kind, "retry").Inc()
	return true, w.repo.Reschedule(ctx, task.ID, attempts, next, runErr.Error())
}

func (w *Worker) run(ctx context.Context, handler Handler, task *models.OutboxTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	taskCtx, cancel := context.WithTimeout(ctx, w.cfg.TaskTimeout)
	defer cancel()
	return handler(taskCtx, task)
}

// backoff doubles from BaseBackoff per attempt, capped at MaxBackoff.
func (w *Worker) backoff(attempts int) time.Duration {
	d := w.cfg.BaseBackoff
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= w.cfg.MaxBackoff {
			return w.cfg.MaxBackoff
		}
	}
	return d
}
