package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type outboxRepo struct {
	coll *mongo.Collection
}

func (r outboxRepo) Enqueue(ctx context.Context, task *models.OutboxTask) error {
	if task.ID.IsZero() {
		task.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, task)
	return translate(err)
}

// ClaimDue also picks up processing rows whose lease ran out, which covers a
// worker that died mid-task.
func (r outboxRepo) ClaimDue(ctx context.Context, now time.Time, lease time.Duration) (*models.OutboxTask, error) {
	var task models.OutboxTask
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{
			"status":          bson.M{"$in": bson.A{models.TaskPending, models.TaskProcessing}},
			"next_attempt_at": bson.M{"$lte": now},
		},
		bson.M{"$set": bson.M{
			"status":          models.TaskProcessing,
			"next_attempt_at": now.Add(lease),
			"updated_at":      now,
		}},
		options.FindOneAndUpdate().
			SetSort(bson.D{{Key: "next_attempt_at", Value: 1}}).
			SetReturnDocument(options.After),
	).Decode(&task)
	if err != nil {
		return nil, translate(err)
	}
	return &task, nil
}

func (r outboxRepo) Complete(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	return r.set(ctx, id, bson.M{
		"status":     models.TaskDone,
		"last_error": "",
		"updated_at": at,
	})
}

func (r outboxRepo) Reschedule(ctx context.Context, id primitive.ObjectID, attempts int, next time.Time, lastErr string) error {
	return r.set(ctx, id, bson.M{
		"status":          models.TaskPending,
		"attempts":        attempts,
		"next_attempt_at": next,
		"last_error":      lastErr,
		"updated_at":      time.Now(),
	})
}

func (r outboxRepo) Fail(ctx context.Context, id primitive.ObjectID, attempts int, lastErr string, at time.Time) error {
	return r.set(ctx, id, bson.M{
		"status":     models.TaskFailed,
		"attempts":   attempts,
		"last_error": lastErr,
		"updated_at": at,
	})
}

func (r outboxRepo) List(ctx context.Context, status string) ([]models.OutboxTask, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(200))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tasks := make([]models.OutboxTask, 0)
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r outboxRepo) Retry(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "status": models.TaskFailed}, bson.M{"$set": bson.M{
		"status":          models.TaskPending,
		"attempts":        0,
		"next_attempt_at": at,
		"updated_at":      at,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r outboxRepo) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
