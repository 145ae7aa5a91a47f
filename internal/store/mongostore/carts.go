package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type cartRepo struct {
	coll *mongo.Collection
}

func cartKey(userID primitive.ObjectID, productID string) bson.M {
	return bson.M{"user_id": userID, "product_id": productID}
}

func (r cartRepo) List(ctx context.Context, userID primitive.ObjectID) ([]models.CartItem, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID}, options.Find().SetSort(bson.D{{Key: "added_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	items := make([]models.CartItem, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r cartRepo) Insert(ctx context.Context, item *models.CartItem) error {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, item)
	return translate(err)
}

func (r cartRepo) InsertMany(ctx context.Context, items []models.CartItem) error {
	if len(items) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(items))
	for i := range items {
		if items[i].ID.IsZero() {
			items[i].ID = primitive.NewObjectID()
		}
		docs = append(docs, items[i])
	}
	_, err := r.coll.InsertMany(ctx, docs)
	return translate(err)
}

func (r cartRepo) Increment(ctx context.Context, userID primitive.ObjectID, productID string, delta int) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, cartKey(userID, productID), bson.M{"$inc": bson.M{"quantity": delta}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r cartRepo) SetQuantity(ctx context.Context, userID primitive.ObjectID, productID string, quantity int) error {
	res, err := r.coll.UpdateOne(ctx, cartKey(userID, productID), bson.M{"$set": bson.M{"quantity": quantity}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r cartRepo) Delete(ctx context.Context, userID primitive.ObjectID, productID string) error {
	_, err := r.coll.DeleteOne(ctx, cartKey(userID, productID))
	return err
}

func (r cartRepo) DeleteAll(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
