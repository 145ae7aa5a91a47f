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

type customerRepo struct{ d *db }

func (r customerRepo) Insert(_ context.Context, customer *models.Customer) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, existing := range r.d.customers {
		if strings.EqualFold(existing.Email, customer.Email) {
			return store.ErrDuplicate
		}
	}
	if customer.ID.IsZero() {
		customer.ID = primitive.NewObjectID()
	}
	r.d.customers[customer.ID] = cloneCustomer(*customer)
	return nil
}

func (r customerRepo) FindByID(_ context.Context, id primitive.ObjectID) (*models.Customer, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	customer, ok := r.d.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	customer = cloneCustomer(customer)
	return &customer, nil
}

func (r customerRepo) FindByEmail(_ context.Context, email string) (*models.Customer, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, existing := range r.d.customers {
		if strings.EqualFold(existing.Email, email) {
			found := cloneCustomer(existing)
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r customerRepo) List(_ context.Context) ([]models.Customer, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	customers := make([]models.Customer, 0, len(r.d.customers))
	for _, c := range r.d.customers {
		customers = append(customers, cloneCustomer(c))
	}
	sort.Slice(customers, func(i, j int) bool {
		return customers[i].CreatedAt.After(customers[j].CreatedAt)
	})
	return customers, nil
}

func (r customerRepo) Update(_ context.Context, id primitive.ObjectID, update models.CustomerUpdate, at time.Time) (*models.Customer, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	customer, ok := r.d.customers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if update.FullName != nil {
		customer.FullName = *update.FullName
	}
	if update.Phone != nil {
		customer.Phone = *update.Phone
	}
	if update.IsActive != nil {
		customer.IsActive = *update.IsActive
	}
	customer.UpdatedAt = at
	r.d.customers[id] = customer
	out := cloneCustomer(customer)
	return &out, nil
}

func (r customerRepo) SetAddresses(_ context.Context, id primitive.ObjectID, addresses []models.Address, at time.Time) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	customer, ok := r.d.customers[id]
	if !ok {
		return store.ErrNotFound
	}
	customer.Addresses = append([]models.Address(nil), addresses...)
	customer.UpdatedAt = at
	r.d.customers[id] = customer
	return nil
}
