package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func indexPlan() []collectionIndexes {
	return []collectionIndexes{
		{
			collection: "products",
			models: []mongo.IndexModel{{
				Keys:    bson.D{{Key: "is_deleted", Value: 1}, {Key: "is_active", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("listing_index"),
			}},
		},
		{
			collection: "customers",
			models: []mongo.IndexModel{{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetName("email_unique").SetUnique(true),
			}},
		},
		{
			collection: "orders",
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
					Options: options.Index().SetName("user_id_index"),
				},
				{
					Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
					Options: options.Index().
						SetName("idempotency_key_unique").
						SetUnique(true).
						SetPartialFilterExpression(bson.M{
							"idempotency_key": bson.M{"$exists": true},
						}),
				},
				{
					Keys: bson.D{{Key: "payment_reference", Value: 1}},
					Options: options.Index().
						SetName("payment_reference_unique").
						SetUnique(true).
						SetPartialFilterExpression(bson.M{
							"payment_reference": bson.M{"$type": "string"},
						}),
				},
			},
		},
		{
			collection: "order_items",
			models: []mongo.IndexModel{{
				Keys:    bson.D{{Key: "order_id", Value: 1}},
				Options: options.Index().SetName("order_id_index"),
			}},
		},
		{
			collection: "cart_items",
			models: []mongo.IndexModel{{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "product_id", Value: 1}},
				Options: options.Index().SetName("user_product_unique").SetUnique(true),
			}},
		},
		{
			collection: "delivery_confirmations",
			models: []mongo.IndexModel{
				{
					Keys: bson.D{{Key: "confirmation_code", Value: 1}},
					Options: options.Index().
						SetName("outstanding_code_unique").
						SetUnique(true).
						SetPartialFilterExpression(bson.M{"confirmed": false}),
				},
				{
					Keys:    bson.D{{Key: "order_id", Value: 1}},
					Options: options.Index().SetName("order_id_index"),
				},
			},
		},
		{
			collection: "reviews",
			models: []mongo.IndexModel{{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "order_id", Value: 1}, {Key: "product_id", Value: 1}},
				Options: options.Index().SetName("user_order_product_unique").SetUnique(true),
			}},
		},
		{
			collection: "refresh_tokens",
			models: []mongo.IndexModel{{
				Keys:    bson.D{{Key: "token_hash", Value: 1}},
				Options: options.Index().SetName("token_hash_index"),
			}},
		},
		{
			collection: "outbox",
			models: []mongo.IndexModel{{
				Keys:    bson.D{{Key: "status", Value: 1}, {Key: "next_attempt_at", Value: 1}},
				Options: options.Index().SetName("due_index"),
			}},
		},
	}
}

// EnsureIndexes creates every index the repositories rely on. Unique indexes
// back the duplicate checks, so a failure here is returned to the caller.
func EnsureIndexes(db *mongo.Database) error {
	for _, plan := range indexPlan() {
		if err := ensureCollectionIndexes(db, plan); err != nil {
			return err
		}
	}
	return nil
}

func ensureCollectionIndexes(db *mongo.Database, plan collectionIndexes) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log.Printf("EnsureIndexes: creating %d index(es) on %s", len(plan.models), plan.collection)
	names, err := db.Collection(plan.collection).Indexes().CreateMany(ctx, plan.models)
	if err != nil {
		log.Printf("EnsureIndexes: %s index error: %v", plan.collection, err)
		return err
	}
	log.Printf("EnsureIndexes: %s indexes ready: %v", plan.collection, names)
	return nil
}
