package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RefreshToken struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID  `bson:"user_id" json:"userId"`
	TokenHash       string              `bson:"token_hash" json:"tokenHash"`
	ExpiresAt       time.Time           `bson:"expires_at" json:"expiresAt"`
	Revoked         bool                `bson:"revoked" json:"revoked"`
	CreatedAt       time.Time           `bson:"created_at" json:"createdAt"`
	ReplacedByToken *primitive.ObjectID `bson:"replaced_by_token,omitempty" json:"replacedByToken,omitempty"`
}
