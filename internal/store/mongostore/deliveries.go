package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

// deliveryRepo relies on the partial unique index over confirmation_code
// for unconfirmed rows.
type deliveryRepo struct {
	coll *mongo.Collection
}

func (r deliveryRepo) Insert(ctx context.Context, confirmation *models.DeliveryConfirmation) error {
	if confirmation.ID.IsZero() {
		confirmation.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, confirmation)
	return translate(err)
}

func (r deliveryRepo) CodeOutstanding(ctx context.Context, code string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"confirmation_code": code, "confirmed": false})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r deliveryRepo) FindOutstandingByOrder(ctx context.Context, orderID primitive.ObjectID) (*models.DeliveryConfirmation, error) {
	var confirmation models.DeliveryConfirmation
	err := r.coll.FindOne(ctx, bson.M{"order_id": orderID, "confirmed": false}).Decode(&confirmation)
	if err != nil {
		return nil, translate(err)
	}
	return &confirmation, nil
}

func (r deliveryRepo) FindOutstanding(ctx context.Context, orderID, userID primitive.ObjectID, code string) (*models.DeliveryConfirmation, error) {
	var confirmation models.DeliveryConfirmation
	err := r.coll.FindOne(ctx, bson.M{
		"order_id":          orderID,
		"user_id":           userID,
		"confirmation_code": code,
		"confirmed":         false,
	}).Decode(&confirmation)
	if err != nil {
		return nil, translate(err)
	}
	return &confirmation, nil
}

func (r deliveryRepo) MarkConfirmed(ctx context.Context, id primitive.ObjectID, method string, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "confirmed": false}, bson.M{"$set": bson.M{
		"confirmed":           true,
		"confirmed_at":        at,
		"confirmation_method": method,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
