package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Review struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"userId"`
	OrderID    primitive.ObjectID `bson:"order_id" json:"orderId"`
	ProductID  string             `bson:"product_id" json:"productId"`
	Rating     int                `bson:"rating" json:"rating"`
	ReviewText string             `bson:"review_text,omitempty" json:"reviewText,omitempty"`
	UserName   string             `bson:"user_name" json:"userName"`
	UserEmail  string             `bson:"user_email" json:"-"`
	IsVerified bool               `bson:"is_verified" json:"isVerified"`
	IsFeatured bool               `bson:"is_featured" json:"isFeatured"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
}
