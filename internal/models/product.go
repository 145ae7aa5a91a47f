package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64            `bson:"price" json:"price"`
	SaleEnabled bool               `bson:"sale_enabled" json:"saleEnabled"`
	SalePrice   float64            `bson:"sale_price" json:"salePrice"`
	IsOnSale    bool               `bson:"-" json:"isOnSale"`
	WeightLabel string             `bson:"weight_label,omitempty" json:"weightLabel,omitempty"`
	ImagePath   string             `bson:"image_path,omitempty" json:"imagePath,omitempty"`
	Stock       int                `bson:"stock" json:"stock"`
	InStock     bool               `bson:"-" json:"inStock"`
	IsActive    bool               `bson:"is_active" json:"isActive"`
	IsDeleted   bool               `bson:"is_deleted" json:"isDeleted,omitempty"`
	DeletedAt   *time.Time         `bson:"deleted_at,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// ProductFilter narrows catalogue listings.
type ProductFilter struct {
	Search        string
	IncludeHidden bool
	Page          int64
	Limit         int64
}
