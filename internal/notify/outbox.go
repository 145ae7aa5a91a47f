// Package notify queues side effects in the outbox and delivers them from a
// background worker with retry.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

var outboxTasks = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pureplatter_outbox_tasks_total",
		Help: "Outbox tasks by kind and outcome",
	},
	[]string{"kind", "result"},
)

// Outbox records tasks for the worker.
type Outbox struct {
	repo store.OutboxRepository
	now  func() time.Time
}

func NewOutbox(repo store.OutboxRepository) *Outbox {
	return &Outbox{repo: repo, now: time.Now}
}

// Enqueue stores a pending task due now. Failures are logged and dropped so
// the calling workflow is never failed by a notification.
func (o *Outbox) Enqueue(ctx context.Context, kind string, payload any) {
	if err := o.Add(context.WithoutCancel(ctx), kind, payload); err != nil {
		log.Printf("[OUTBOX] [ERROR] enqueue %s: %v", kind, err)
	}
}

// Add stores a pending task due now and reports failure. Called with a
// transaction ctx, the task commits or rolls back with the rest of the
// transaction.
func (o *Outbox) Add(ctx context.Context, kind string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		outboxTasks.WithLabelValues(kind, "enqueue_error").Inc()
		return fmt.Errorf("encode %s payload: %w", kind, err)
	}

	now := o.now().UTC()
	task := &models.OutboxTask{
		Kind:          kind,
		Payload:       string(body),
		Status:        models.TaskPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := o.repo.Enqueue(ctx, task); err != nil {
		outboxTasks.WithLabelValues(kind, "enqueue_error").Inc()
		return err
	}
	outboxTasks.WithLabelValues(kind, "enqueued").Inc()
	return nil
}
