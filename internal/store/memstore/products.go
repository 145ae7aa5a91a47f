package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type productRepo struct{ d *db }

func (r productRepo) List(_ context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]models.Product, 0, len(r.d.products))
	for _, p := range r.d.products {
		if p.IsDeleted {
			continue
		}
		if !filter.IncludeHidden && !p.IsActive {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		matched = append(matched, p)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.Hex() > matched[j].ID.Hex()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.Limit
		if start >= total {
			return []models.Product{}, total, nil
		}
		end := start + filter.Limit
		if end > total {
			end = total
		}
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (r productRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	p, ok := r.d.products[id]
	if !ok || p.IsDeleted {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (r productRepo) Insert(_ context.Context, product *models.Product) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	r.d.products[product.ID] = *product
	return nil
}

func (r productRepo) Replace(_ context.Context, product *models.Product) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	existing, ok := r.d.products[product.ID]
	if !ok || existing.IsDeleted {
		return store.ErrNotFound
	}
	r.d.products[product.ID] = *product
	return nil
}

func (r productRepo) SoftDelete(_ context.Context, id primitive.ObjectID, at time.Time) (*models.Product, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	p, ok := r.d.products[id]
	if !ok || p.IsDeleted {
		return nil, store.ErrNotFound
	}
	previous := p
	p.IsDeleted = true
	p.IsActive = false
	p.DeletedAt = &at
	r.d.products[id] = p
	return &previous, nil
}
