// Package memstore keeps every repository in process memory. It backs
// STORE_DRIVER=memory and the service tests.
package memstore

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type txKey struct{}

type db struct {
	mu   sync.Mutex
	txMu sync.Mutex

	products   map[primitive.ObjectID]models.Product
	carts      []models.CartItem
	orders     map[primitive.ObjectID]models.Order
	orderItems []models.OrderItem
	deliveries map[primitive.ObjectID]models.DeliveryConfirmation
	customers  map[primitive.ObjectID]models.Customer
	tokens     map[primitive.ObjectID]models.RefreshToken
	reviews    map[primitive.ObjectID]models.Review
	outbox     map[primitive.ObjectID]models.OutboxTask
}

// New returns an empty store.
func New() *store.Store {
	d := &db{
		products:   map[primitive.ObjectID]models.Product{},
		orders:     map[primitive.ObjectID]models.Order{},
		deliveries: map[primitive.ObjectID]models.DeliveryConfirmation{},
		customers:  map[primitive.ObjectID]models.Customer{},
		tokens:     map[primitive.ObjectID]models.RefreshToken{},
		reviews:    map[primitive.ObjectID]models.Review{},
		outbox:     map[primitive.ObjectID]models.OutboxTask{},
	}
	return &store.Store{
		Transactor:    d,
		Products:      productRepo{d},
		Carts:         cartRepo{d},
		Orders:        orderRepo{d},
		Deliveries:    deliveryRepo{d},
		Customers:     customerRepo{d},
		RefreshTokens: tokenRepo{d},
		Reviews:       reviewRepo{d},
		Outbox:        outboxRepo{d},
	}
}

// WithTransaction serializes transactions and restores the pre-transaction
// state when fn fails. Nested calls join the outer transaction.
func (d *db) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	d.txMu.Lock()
	defer d.txMu.Unlock()

	d.mu.Lock()
	snap := d.snapshot()
	d.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		d.mu.Lock()
		d.restore(snap)
		d.mu.Unlock()
		return err
	}
	return nil
}

type snapshot struct {
	products   map[primitive.ObjectID]models.Product
	carts      []models.CartItem
	orders     map[primitive.ObjectID]models.Order
	orderItems []models.OrderItem
	deliveries map[primitive.ObjectID]models.DeliveryConfirmation
	customers  map[primitive.ObjectID]models.Customer
	tokens     map[primitive.ObjectID]models.RefreshToken
	reviews    map[primitive.ObjectID]models.Review
	outbox     map[primitive.ObjectID]models.OutboxTask
}

func (d *db) snapshot() snapshot {
	customers := make(map[primitive.ObjectID]models.Customer, len(d.customers))
	for id, c := range d.customers {
		customers[id] = cloneCustomer(c)
	}
	return snapshot{
		products:   cloneMap(d.products),
		carts:      append([]models.CartItem(nil), d.carts...),
		orders:     cloneMap(d.orders),
		orderItems: append([]models.OrderItem(nil), d.orderItems...),
		deliveries: cloneMap(d.deliveries),
		customers:  customers,
		tokens:     cloneMap(d.tokens),
		reviews:    cloneMap(d.reviews),
		outbox:     cloneMap(d.outbox),
	}
}

func (d *db) restore(s snapshot) {
	d.products = s.products
	d.carts = s.carts
	d.orders = s.orders
	d.orderItems = s.orderItems
	d.deliveries = s.deliveries
	d.customers = s.customers
	d.tokens = s.tokens
	d.reviews = s.reviews
	d.outbox = s.outbox
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneCustomer(c models.Customer) models.Customer {
	c.Addresses = append([]models.Address(nil), c.Addresses...)
	return c
}
