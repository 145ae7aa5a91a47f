package memstore

import (
	"context"
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type reviewRepo struct{ d *db }

func (r reviewRepo) Insert(_ context.Context, review *models.Review) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, existing := range r.d.reviews {
		if existing.UserID == review.UserID &&
			existing.OrderID == review.OrderID &&
			existing.ProductID == review.ProductID {
			return store.ErrDuplicate
		}
	}
	if review.ID.IsZero() {
		review.ID = primitive.NewObjectID()
	}
	r.d.reviews[review.ID] = *review
	return nil
}

func (r reviewRepo) List(_ context.Context, featuredOnly bool) ([]models.Review, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	reviews := make([]models.Review, 0)
	for _, review := range r.d.reviews {
		if featuredOnly && !review.IsFeatured {
			continue
		}
		reviews = append(reviews, review)
	}
	sort.Slice(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	return reviews, nil
}
