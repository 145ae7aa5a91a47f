// Package mongostore implements the repositories on MongoDB. Every method
// uses the ctx it is given, so calls made inside WithTransaction join the
// session carried by that ctx.
package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"pureplatter/internal/store"
)

const (
	productsCollection      = "products"
	cartItemsCollection     = "cart_items"
	ordersCollection        = "orders"
	orderItemsCollection    = "order_items"
	deliveriesCollection    = "delivery_confirmations"
	customersCollection     = "customers"
	refreshTokensCollection = "refresh_tokens"
	reviewsCollection       = "reviews"
	outboxCollection        = "outbox"
)

type transactor struct {
	client *mongo.Client
}

// New wires every repository to db.
func New(db *mongo.Database) *store.Store {
	return &store.Store{
		Transactor:    transactor{client: db.Client()},
		Products:      productRepo{coll: db.Collection(productsCollection)},
		Carts:         cartRepo{coll: db.Collection(cartItemsCollection)},
		Orders:        orderRepo{orders: db.Collection(ordersCollection), items: db.Collection(orderItemsCollection)},
		Deliveries:    deliveryRepo{coll: db.Collection(deliveriesCollection)},
		Customers:     customerRepo{coll: db.Collection(customersCollection)},
		RefreshTokens: tokenRepo{coll: db.Collection(refreshTokensCollection)},
		Reviews:       reviewRepo{coll: db.Collection(reviewsCollection)},
		Outbox:        outboxRepo{coll: db.Collection(outboxCollection)},
	}
}

func (t transactor) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}
