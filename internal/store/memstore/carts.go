package memstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type cartRepo struct{ d *db }

func (r cartRepo) List(_ context.Context, userID primitive.ObjectID) ([]models.CartItem, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	items := make([]models.CartItem, 0)
	for _, item := range r.d.carts {
		if item.UserID == userID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r cartRepo) Insert(_ context.Context, item *models.CartItem) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	return r.insertLocked(item)
}

func (r cartRepo) insertLocked(item *models.CartItem) error {
	if r.indexLocked(item.UserID, item.ProductID) >= 0 {
		return store.ErrDuplicate
	}
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	r.d.carts = append(r.d.carts, *item)
	return nil
}

func (r cartRepo) InsertMany(_ context.Context, items []models.CartItem) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for i := range items {
		if err := r.insertLocked(&items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r cartRepo) Increment(_ context.Context, userID primitive.ObjectID, productID string, delta int) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	idx := r.indexLocked(userID, productID)
	if idx < 0 {
		return false, nil
	}
	r.d.carts[idx].Quantity += delta
	return true, nil
}

func (r cartRepo) SetQuantity(_ context.Context, userID primitive.ObjectID, productID string, quantity int) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	idx := r.indexLocked(userID, productID)
	if idx < 0 {
		return store.ErrNotFound
	}
	r.d.carts[idx].Quantity = quantity
	return nil
}

func (r cartRepo) Delete(_ context.Context, userID primitive.ObjectID, productID string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if idx := r.indexLocked(userID, productID); idx >= 0 {
		r.d.carts = append(r.d.carts[:idx:idx], r.d.carts[idx+1:]...)
	}
	return nil
}

func (r cartRepo) DeleteAll(_ context.Context, userID primitive.ObjectID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	kept := make([]models.CartItem, 0, len(r.d.carts))
	for _, item := range r.d.carts {
		if item.UserID != userID {
			kept = append(kept, item)
		}
	}
	r.d.carts = kept
	return nil
}

func (r cartRepo) indexLocked(userID primitive.ObjectID, productID string) int {
	for i, item := range r.d.carts {
		if item.UserID == userID && item.ProductID == productID {
			return i
		}
	}
	return -1
}
