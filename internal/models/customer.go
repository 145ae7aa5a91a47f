package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Customer is a registered storefront account.
type Customer struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName     string             `bson:"full_name" json:"fullName"`
	Email        string             `bson:"email" json:"email"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	IsActive     bool               `bson:"is_active" json:"isActive"`
	Addresses    []Address          `bson:"addresses" json:"addresses"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}

// CustomerUpdate lists the profile fields an administrator may edit.
type CustomerUpdate struct {
	FullName *string `json:"fullName"`
	Phone    *string `json:"phone"`
	IsActive *bool   `json:"isActive"`
}

// CustomerSummary is the per-customer order aggregate computed on read.
type CustomerSummary struct {
	Customer
	OrderCount          int        `json:"orderCount"`
	CompletedOrderCount int        `json:"completedOrderCount"`
	PendingOrderCount   int        `json:"pendingOrderCount"`
	AverageOrderValue   float64    `json:"averageOrderValue"`
	LastOrderDate       *time.Time `json:"lastOrderDate"`
}
