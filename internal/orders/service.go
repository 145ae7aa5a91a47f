// Package orders implements order creation, listing, and the admin status
// workflow.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/events"
	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

// Enqueuer queues a durable side effect. Enqueue logs its own failures so
// callers never fail because of them. Add reports the failure instead, for
// tasks that must commit with a transaction.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any)
	Add(ctx context.Context, kind string, payload any) error
}

type Service struct {
	store  *store.Store
	outbox Enqueuer
	events events.Publisher
	now    func() time.Time
}

func NewService(s *store.Store, outbox Enqueuer, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{store: s, outbox: outbox, events: publisher, now: time.Now}
}

// CreateInput is everything needed to place an order for one customer.
type CreateInput struct {
	UserID         primitive.ObjectID
	Items          []models.CartItem
	Details        models.DeliveryDetails
	IdempotencyKey string
}

// CreateOrder writes the order, its line items, the removal of the
// customer's remote cart rows and the order's outbox tasks in one
// transaction. With an idempotency key a replay returns the order created by
// the first call and replayed is true, whatever items this call carries.
func (s *Service) CreateOrder(ctx context.Context, in CreateInput) (order *models.Order, replayed bool, err error) {
	key := strings.TrimSpace(in.IdempotencyKey)
	if existing, err := s.Replay(ctx, in.UserID, key); err != nil || existing != nil {
		return existing, existing != nil, err
	}

	total, err := validateItems(in.Items)
	if err != nil {
		return nil, false, err
	}

	now := s.now().UTC()
	order = &models.Order{
		UserID:           in.UserID,
		TotalAmount:      total.InexactFloat64(),
		Status:           models.StatusPending,
		PaymentStatus:    models.PaymentPending,
		UserEmail:        strings.ToLower(strings.TrimSpace(in.Details.Email)),
		UserFullName:     strings.TrimSpace(in.Details.FullName),
		UserPhone:        strings.TrimSpace(in.Details.Phone),
		DeliveryAddress:  strings.TrimSpace(in.Details.Address),
		DeliveryCity:     strings.TrimSpace(in.Details.City),
		DeliveryNotes:    strings.TrimSpace(in.Details.Notes),
		PaymentReference: strings.TrimSpace(in.Details.PaymentReference),
		IdempotencyKey:   key,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		order.ID = primitive.NilObjectID
		if err := s.store.Orders.Insert(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		order.Items = lineItems(order.ID, in.Items)
		if err := s.store.Orders.InsertItems(ctx, order.Items); err != nil {
			return fmt.Errorf("insert order items: %w", err)
		}
		if err := s.store.Carts.DeleteAll(ctx, in.UserID); err != nil {
			return fmt.Errorf("clear remote cart: %w", err)
		}
		return s.queueCreated(ctx, order)
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			if key != "" {
				// Another request with the same key won the race.
				existing, findErr := s.Replay(ctx, in.UserID, key)
				if findErr == nil && existing != nil {
					return existing, true, nil
				}
			}
			if order.PaymentReference != "" {
				return nil, false, fmt.Errorf("%w: %s", ErrPaymentReferenceUsed, order.PaymentReference)
			}
		}
		return nil, false, err
	}

	log.Printf("[ORDER] [INFO] order %s created for user %s total=%s", order.ID.Hex(), in.UserID.Hex(), total.StringFixed(2))
	s.publish(ctx, events.OrderCreated, order)
	return order, false, nil
}

func (s *Service) queueCreated(ctx context.Context, order *models.Order) error {
	ref := models.OrderRef{OrderID: order.ID.Hex()}
	if err := s.outbox.Add(ctx, models.TaskAdminNewOrder, ref); err != nil {
		return fmt.Errorf("queue admin notification: %w", err)
	}
	if err := s.outbox.Add(ctx, models.TaskDeliveryCode, ref); err != nil {
		return fmt.Errorf("queue delivery code: %w", err)
	}
	if order.PaymentReference == "" {
		return nil
	}
	err := s.outbox.Add(ctx, models.TaskPaymentVerification, models.PaymentPayload{
		OrderID:   order.ID.Hex(),
		Reference: order.PaymentReference,
	})
	if err != nil {
		return fmt.Errorf("queue payment verification: %w", err)
	}
	return nil
}

// Replay returns the order an earlier request with the same idempotency key
// created, or nil when there is none.
func (s *Service) Replay(ctx context.Context, userID primitive.ObjectID, key string) (*models.Order, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	existing, err := s.store.Orders.FindByIdempotencyKey(ctx, userID, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.attachItems(ctx, []*models.Order{existing}); err != nil {
		return nil, err
	}
	return existing, nil
}

// validateItems rejects empty carts, bad lines, and a non-positive total.
func validateItems(items []models.CartItem) (decimal.Decimal, error) {
	if len(items) == 0 {
		return decimal.Zero, ErrEmptyOrder
	}
	total := decimal.Zero
	for _, item := range items {
		if item.Quantity < 1 || item.UnitPrice < 0 || strings.TrimSpace(item.ProductID) == "" {
			return decimal.Zero, invalidItemError{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			}
		}
		total = total.Add(lineTotal(item.UnitPrice, item.Quantity))
	}
	if !total.IsPositive() {
		return decimal.Zero, ErrNonPositiveTotal
	}
	return total, nil
}

func lineTotal(unitPrice float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity)))
}

// lineItems snapshots each cart line so later product edits do not change
// the order.
func lineItems(orderID primitive.ObjectID, items []models.CartItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderItem{
			OrderID:       orderID,
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			WeightLabel:   item.WeightLabel,
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			TotalPrice:    lineTotal(item.UnitPrice, item.Quantity).InexactFloat64(),
			SchemaVersion: models.OrderItemSchemaVersion,
		})
	}
	return out
}

// ListOrders returns the customer's orders, newest first, with items.
func (s *Service) ListOrders(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.list(ctx, &userID)
}

// ListAllOrders returns every order, newest first, with items.
func (s *Service) ListAllOrders(ctx context.Context) ([]models.Order, error) {
	return s.list(ctx, nil)
}

func (s *Service) list(ctx context.Context, userID *primitive.ObjectID) ([]models.Order, error) {
	orders, err := s.store.Orders.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	refs := make([]*models.Order, len(orders))
	for i := range orders {
		refs[i] = &orders[i]
	}
	if err := s.attachItems(ctx, refs); err != nil {
		return nil, err
	}
	return orders, nil
}

// Get loads one order. A non-nil userID restricts it to that customer.
func (s *Service) Get(ctx context.Context, id primitive.ObjectID, userID *primitive.ObjectID) (*models.Order, error) {
	order, err := s.store.Orders.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if userID != nil && order.UserID != *userID {
		return nil, ErrOrderNotFound
	}
	if err := s.attachItems(ctx, []*models.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) attachItems(ctx context.Context, orders []*models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]primitive.ObjectID, 0, len(orders))
	byID := make(map[primitive.ObjectID]*models.Order, len(orders))
	for _, order := range orders {
		order.Items = []models.OrderItem{}
		ids = append(ids, order.ID)
		byID[order.ID] = order
	}

	items, err := s.store.Orders.Items(ctx, ids)
	if err != nil {
		return err
	}
	for _, item := range items {
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	return nil
}

func (s *Service) publish(ctx context.Context, kind string, order *models.Order) {
	if err := s.events.Publish(ctx, events.NewOrderEvent(kind, order)); err != nil {
		log.Printf("[ORDER] [WARN] publish %s for %s failed: %v", kind, order.ID.Hex(), err)
	}
}
