package memstore

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type orderRepo struct{ d *db }

func (r orderRepo) Insert(_ context.Context, order *models.Order) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if order.IdempotencyKey != "" {
		for _, existing := range r.d.orders {
			if existing.UserID == order.UserID && existing.IdempotencyKey == order.IdempotencyKey {
				return store.ErrDuplicate
			}
		}
	}
	if order.PaymentReference != "" {
		for _, existing := range r.d.orders {
			if existing.PaymentReference == order.PaymentReference {
				return store.ErrDuplicate
			}
		}
	}
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	stored := *order
	stored.Items = nil
	r.d.orders[order.ID] = stored
	return nil
}

func (r orderRepo) InsertItems(_ context.Context, items []models.OrderItem) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for i := range items {
		if _, ok := r.d.orders[items[i].OrderID]; !ok {
			return store.ErrNotFound
		}
		if items[i].ID.IsZero() {
			items[i].ID = primitive.NewObjectID()
		}
	}
	r.d.orderItems = append(r.d.orderItems, items...)
	return nil
}

func (r orderRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	order, ok := r.d.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &order, nil
}

func (r orderRepo) FindByIdempotencyKey(_ context.Context, userID primitive.ObjectID, key string) (*models.Order, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, order := range r.d.orders {
		if order.UserID == userID && order.IdempotencyKey == key {
			found := order
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r orderRepo) List(_ context.Context, userID *primitive.ObjectID) ([]models.Order, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	orders := make([]models.Order, 0)
	for _, order := range r.d.orders {
		if userID != nil && order.UserID != *userID {
			continue
		}
		orders = append(orders, order)
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID.Hex() > orders[j].ID.Hex()
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r orderRepo) Items(_ context.Context, orderIDs []primitive.ObjectID) ([]models.OrderItem, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	wanted := make(map[primitive.ObjectID]bool, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = true
	}
	items := make([]models.OrderItem, 0)
	for _, item := range r.d.orderItems {
		if wanted[item.OrderID] {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r orderRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, from models.OrderStatus, update models.StatusUpdate) (*models.Order, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	order, ok := r.d.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if order.Status != from {
		return nil, store.ErrConflict
	}

	order.Status = update.Status
	order.UpdatedAt = update.UpdatedAt
	if update.AdminNotes != nil {
		order.AdminNotes = *update.AdminNotes
	}
	if update.TrackingNumber != nil {
		order.TrackingNumber = *update.TrackingNumber
	}
	if update.ConfirmedDeliveryAt != nil {
		at := *update.ConfirmedDeliveryAt
		order.ConfirmedDeliveryAt = &at
	}
	if update.DeliveryConfirmationMethod != "" {
		order.DeliveryConfirmationMethod = update.DeliveryConfirmationMethod
	}
	r.d.orders[id] = order
	return &order, nil
}

func (r orderRepo) SetPaymentStatus(_ context.Context, id primitive.ObjectID, status string, at time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	order, ok := r.d.orders[id]
	if !ok {
		return store.ErrNotFound
	}
	order.PaymentStatus = status
	order.UpdatedAt = at
	r.d.orders[id] = order
	return nil
}
