package mongostore

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type productRepo struct {
	coll *mongo.Collection
}

func (r productRepo) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	query := bson.M{"is_deleted": bson.M{"$ne": true}}
	if !filter.IncludeHidden {
		query["is_active"] = true
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"description": pattern},
		}
	}

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		findOpts.SetSkip((page - 1) * filter.Limit).SetLimit(filter.Limit)
	}

	cursor, err := r.coll.Find(ctx, query, findOpts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r productRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "is_deleted": bson.M{"$ne": true}}).Decode(&product)
	if err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r productRepo) Insert(ctx context.Context, product *models.Product) error {
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, product)
	return translate(err)
}

func (r productRepo) Replace(ctx context.Context, product *models.Product) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": product.ID, "is_deleted": bson.M{"$ne": true}}, product)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r productRepo) SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Product, error) {
	var previous models.Product
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id, "is_deleted": bson.M{"$ne": true}},
		bson.M{"$set": bson.M{
			"is_deleted": true,
			"is_active":  false,
			"deleted_at": at,
			"updated_at": at,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&previous)
	if err != nil {
		return nil, translate(err)
	}
	return &previous, nil
}
