package memstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type deliveryRepo struct{ d *db }

func (r deliveryRepo) Insert(_ context.Context, confirmation *models.DeliveryConfirmation) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, existing := range r.d.deliveries {
		if !existing.Confirmed && existing.ConfirmationCode == confirmation.ConfirmationCode {
			return store.ErrDuplicate
		}
	}
	if confirmation.ID.IsZero() {
		confirmation.ID = primitive.NewObjectID()
	}
	r.d.deliveries[confirmation.ID] = *confirmation
	return nil
}

func (r deliveryRepo) CodeOutstanding(_ context.Context, code string) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, existing := range r.d.deliveries {
		if !existing.Confirmed && existing.ConfirmationCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r deliveryRepo) FindOutstandingByOrder(_ context.Context, orderID primitive.ObjectID) (*models.DeliveryConfirmation, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, existing := range r.d.deliveries {
		if !existing.Confirmed && existing.OrderID == orderID {
			found := existing
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r deliveryRepo) FindOutstanding(_ context.Context, orderID, userID primitive.ObjectID, code string) (*models.DeliveryConfirmation, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, existing := range r.d.deliveries {
		if !existing.Confirmed &&
			existing.OrderID == orderID &&
			existing.UserID == userID &&
			existing.ConfirmationCode == code {
			found := existing
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r deliveryRepo) MarkConfirmed(_ context.Context, id primitive.ObjectID, method string, at time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	existing, ok := r.d.deliveries[id]
	if !ok || existing.Confirmed {
		return store.ErrNotFound
	}
	existing.Confirmed = true
	existing.ConfirmedAt = &at
	existing.ConfirmationMethod = method
	r.d.deliveries[id] = existing
	return nil
}
