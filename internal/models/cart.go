package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartItem is one product line in a cart. Identity is ProductID.
// UserID is only set on remote rows.
type CartItem struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID      primitive.ObjectID `bson:"user_id,omitempty" json:"-"`
	ProductID   string             `bson:"product_id" json:"productId"`
	ProductName string             `bson:"product_name" json:"productName"`
	UnitPrice   float64            `bson:"unit_price" json:"unitPrice"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	WeightLabel string             `bson:"weight_label,omitempty" json:"weightLabel,omitempty"`
	ImageURL    string             `bson:"image_url,omitempty" json:"imageUrl,omitempty"`
	AddedAt     time.Time          `bson:"added_at" json:"addedAt"`
}

// CartSnapshot is the locally held copy of a cart.
// Dirty marks a remote write that failed and must be healed by reconciliation.
type CartSnapshot struct {
	Items     []CartItem `json:"items"`
	Dirty     bool       `json:"dirty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
