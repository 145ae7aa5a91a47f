package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// ConfirmationMethodCode is recorded on the confirmation row when a customer submits the code.
	ConfirmationMethodCode = "code"
	// DeliveredByCustomerCode is recorded on the order it confirms.
	DeliveredByCustomerCode = "customer_code"
)

// DeliveryConfirmation binds a short code to an order until the customer confirms receipt.
type DeliveryConfirmation struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID            primitive.ObjectID `bson:"order_id" json:"orderId"`
	UserID             primitive.ObjectID `bson:"user_id" json:"userId"`
	ConfirmationCode   string             `bson:"confirmation_code" json:"confirmationCode"`
	Confirmed          bool               `bson:"confirmed" json:"confirmed"`
	ConfirmedAt        *time.Time         `bson:"confirmed_at,omitempty" json:"confirmedAt,omitempty"`
	ConfirmationMethod string             `bson:"confirmation_method,omitempty" json:"confirmationMethod,omitempty"`
	CreatedAt          time.Time          `bson:"created_at" json:"createdAt"`
}
