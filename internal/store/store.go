// Package store declares the data-access interfaces shared by every workflow.
// mongostore is the production implementation; memstore keeps the same
// contracts in memory for local runs and tests.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict means a conditional write found the record in another state.
	ErrConflict = errors.New("record changed concurrently")
)

// Transactor runs fn so that every repository call made with the ctx it
// receives commits or rolls back together.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ProductRepository interface {
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	Insert(ctx context.Context, product *models.Product) error
	Replace(ctx context.Context, product *models.Product) error
	SoftDelete(ctx context.Context, id primitive.ObjectID, at time.Time) (*models.Product, error)
}

// CartRepository stores the remote copy of authenticated carts, one row per
// (user, product).
type CartRepository interface {
	List(ctx context.Context, userID primitive.ObjectID) ([]models.CartItem, error)
	Insert(ctx context.Context, item *models.CartItem) error
	InsertMany(ctx context.Context, items []models.CartItem) error
	// Increment adds delta to an existing row and reports whether one matched.
	Increment(ctx context.Context, userID primitive.ObjectID, productID string, delta int) (bool, error)
	SetQuantity(ctx context.Context, userID primitive.ObjectID, productID string, quantity int) error
	Delete(ctx context.Context, userID primitive.ObjectID, productID string) error
	DeleteAll(ctx context.Context, userID primitive.ObjectID) error
}

type OrderRepository interface {
	// Insert fails with ErrDuplicate when the user's idempotency key or the
	// payment reference is already taken.
	Insert(ctx context.Context, order *models.Order) error
	InsertItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	FindByIdempotencyKey(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error)
	// List returns newest first; a nil userID lists every order.
	List(ctx context.Context, userID *primitive.ObjectID) ([]models.Order, error)
	Items(ctx context.Context, orderIDs []primitive.ObjectID) ([]models.OrderItem, error)
	// UpdateStatus applies update only while the order is still in status from.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from models.OrderStatus, update models.StatusUpdate) (*models.Order, error)
	SetPaymentStatus(ctx context.Context, id primitive.ObjectID, status string, at time.Time) error
}

type DeliveryRepository interface {
	// Insert fails with ErrDuplicate when the code is already outstanding.
	Insert(ctx context.Context, confirmation *models.DeliveryConfirmation) error
	CodeOutstanding(ctx context.Context, code string) (bool, error)
	FindOutstandingByOrder(ctx context.Context, orderID primitive.ObjectID) (*models.DeliveryConfirmation, error)
	FindOutstanding(ctx context.Context, orderID, userID primitive.ObjectID, code string) (*models.DeliveryConfirmation, error)
	// MarkConfirmed only matches a row that is still outstanding.
	MarkConfirmed(ctx context.Context, id primitive.ObjectID, method string, at time.Time) error
}

type CustomerRepository interface {
	Insert(ctx context.Context, customer *models.Customer) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error)
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	List(ctx context.Context) ([]models.Customer, error)
	Update(ctx context.Context, id primitive.ObjectID, update models.CustomerUpdate, at time.Time) (*models.Customer, error)
	SetAddresses(ctx context.Context, id primitive.ObjectID, addresses []models.Address, at time.Time) error
}

type RefreshTokenRepository interface {
	Insert(ctx context.Context, token *models.RefreshToken) error
	FindActive(ctx context.Context, hash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error
	RevokeByHash(ctx context.Context, hash string) (bool, error)
}

type ReviewRepository interface {
	// Insert fails with ErrDuplicate for a second review of the same product on an order.
	Insert(ctx context.Context, review *models.Review) error
	List(ctx context.Context, featuredOnly bool) ([]models.Review, error)
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, task *models.OutboxTask) error
	// ClaimDue leases the oldest due task, returning ErrNotFound when none is due.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration) (*models.OutboxTask, error)
	Complete(ctx context.Context, id primitive.ObjectID, at time.Time) error
	Reschedule(ctx context.Context, id primitive.ObjectID, attempts int, next time.Time, lastErr string) error
	Fail(ctx context.Context, id primitive.ObjectID, attempts int, lastErr string, at time.Time) error
	List(ctx context.Context, status string) ([]models.OutboxTask, error)
	Retry(ctx context.Context, id primitive.ObjectID, at time.Time) error
}

// Store bundles the repositories behind one transactor.
type Store struct {
	Transactor
	Products      ProductRepository
	Carts         CartRepository
	Orders        OrderRepository
	Deliveries    DeliveryRepository
	Customers     CustomerRepository
	RefreshTokens RefreshTokenRepository
	Reviews       ReviewRepository
	Outbox        OutboxRepository
}
