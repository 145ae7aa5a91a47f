package memstore

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type outboxRepo struct{ d *db }

func (r outboxRepo) Enqueue(_ context.Context, task *models.OutboxTask) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	r.d.outbox[task.ID] = *task
	return nil
}

// ClaimDue treats a processing task whose lease has run out as due again.
func (r outboxRepo) ClaimDue(_ context.Context, now time.Time, lease time.Duration) (*models.OutboxTask, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	var picked *models.OutboxTask
	for _, task := range r.d.outbox {
		if task.Status != models.TaskPending && task.Status != models.TaskProcessing {
			continue
		}
		if task.NextAttemptAt.After(now) {
			continue
		}
		if picked == nil || task.NextAttemptAt.Before(picked.NextAttemptAt) {
			t := task
			picked = &t
		}
	}
	if picked == nil {
		return nil, store.ErrNotFound
	}
	picked.Status = models.TaskProcessing
	picked.NextAttemptAt = now.Add(lease)
	picked.UpdatedAt = now
	r.d.outbox[picked.ID] = *picked
	return picked, nil
}

func (r outboxRepo) Complete(_ context.Context, id primitive.ObjectID, at time.Time) error {
	return r.update(id, func(task *models.OutboxTask) {
		task.Status = models.TaskDone
		task.LastError = ""
		task.UpdatedAt = at
	})
}

func (r outboxRepo) Reschedule(_ context.Context, id primitive.ObjectID, attempts int, next time.Time, lastErr string) error {
	return r.update(id, func(task *models.OutboxTask) {
		task.Status = models.TaskPending
		task.Attempts = attempts
		task.NextAttemptAt = next
		task.LastError = lastErr
		task.UpdatedAt = time.Now()
	})
}

func (r outboxRepo) Fail(_ context.Context, id primitive.ObjectID, attempts int, lastErr string, at time.Time) error {
	return r.update(id, func(task *models.OutboxTask) {
		task.Status = models.TaskFailed
		task.Attempts = attempts
		task.LastError = lastErr
		task.UpdatedAt = at
	})
}

func (r outboxRepo) List(_ context.Context, status string) ([]models.OutboxTask, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	tasks := make([]models.OutboxTask, 0)
	for _, task := range r.d.outbox {
		if status != "" && task.Status != status {
			continue
		}
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks, nil
}

// Retry puts a failed task back in the queue with a fresh attempt budget.
func (r outboxRepo) Retry(_ context.Context, id primitive.ObjectID, at time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	task, ok := r.d.outbox[id]
	if !ok || task.Status != models.TaskFailed {
		return store.ErrNotFound
	}
	task.Status = models.TaskPending
	task.Attempts = 0
	task.NextAttemptAt = at
	task.UpdatedAt = at
	r.d.outbox[id] = task
	return nil
}

func (r outboxRepo) update(id primitive.ObjectID, apply func(*models.OutboxTask)) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	task, ok := r.d.outbox[id]
	if !ok {
		return store.ErrNotFound
	}
	apply(&task)
	r.d.outbox[id] = task
	return nil
}
