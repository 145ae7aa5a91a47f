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

type orderRepo struct {
	orders *mongo.Collection
	items  *mongo.Collection
}

func (r orderRepo) Insert(ctx context.Context, order *models.Order) error {
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	_, err := r.orders.InsertOne(ctx, order)
	return translate(err)
}

func (r orderRepo) InsertItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(items))
	for i := range items {
		if items[i].ID.IsZero() {
			items[i].ID = primitive.NewObjectID()
		}
		items[i].SchemaVersion = models.OrderItemSchemaVersion
		docs = append(docs, items[i])
	}
	_, err := r.items.InsertMany(ctx, docs)
	return translate(err)
}

func (r orderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	if err := r.orders.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r orderRepo) FindByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error) {
	var order models.Order
	err := r.orders.FindOne(ctx, bson.M{"user_id": userID, "idempotency_key": key}).Decode(&order)
	if err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r orderRepo) List(ctx context.Context, userID *primitive.ObjectID) ([]models.Order, error) {
	filter := bson.M{}
	if userID != nil {
		filter["user_id"] = *userID
	}
	cursor, err := r.orders.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r orderRepo) Items(ctx context.Context, orderIDs []primitive.ObjectID) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0)
	if len(orderIDs) == 0 {
		return items, nil
	}
	cursor, err := r.items.Find(ctx, bson.M{"order_id": bson.M{"$in": orderIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r orderRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, update models.StatusUpdate) (*models.Order, error) {
	set := bson.M{
		"status":     update.Status,
		"updated_at": update.UpdatedAt,
	}
	if update.AdminNotes != nil {
		set["admin_notes"] = *update.AdminNotes
	}
	if update.TrackingNumber != nil {
		set["tracking_number"] = *update.TrackingNumber
	}
	if update.ConfirmedDeliveryAt != nil {
		set["confirmed_delivery_at"] = *update.ConfirmedDeliveryAt
	}
	if update.DeliveryConfirmationMethod != "" {
		set["delivery_confirmation_method"] = update.DeliveryConfirmationMethod
	}

	var order models.Order
	err := r.orders.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&order)
	if err == nil {
		return &order, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	// Distinguish a missing order from one that moved on.
	count, countErr := r.orders.CountDocuments(ctx, bson.M{"_id": id})
	if countErr != nil {
		return nil, countErr
	}
	if count == 0 {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrConflict
}

func (r orderRepo) SetPaymentStatus(ctx context.Context, id primitive.ObjectID, status string, at time.Time) error {
	res, err := r.orders.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"payment_status": status,
		"updated_at":     at,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
