package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment states recorded on an order.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"
)

// OrderItemSchemaVersion marks line items written with unit and total prices.
const OrderItemSchemaVersion = 2

// OrderItem is a denormalized snapshot of one product at purchase time.
type OrderItem struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderID       primitive.ObjectID `bson:"order_id" json:"orderId"`
	ProductID     string             `bson:"product_id" json:"productId"`
	ProductName   string             `bson:"product_name" json:"productName"`
	WeightLabel   string             `bson:"weight_label,omitempty" json:"weightLabel,omitempty"`
	UnitPrice     float64            `bson:"unit_price" json:"unitPrice"`
	Quantity      int                `bson:"quantity" json:"quantity"`
	TotalPrice    float64            `bson:"total_price" json:"totalPrice"`
	SchemaVersion int                `bson:"schema_version" json:"-"`
}

// UnmarshalBSON upgrades legacy rows that only stored a single price column,
// so every reader sees unit and total prices.
func (i *OrderItem) UnmarshalBSON(data []byte) error {
	type plain OrderItem
	var doc struct {
		Fields      plain    `bson:",inline"`
		LegacyPrice *float64 `bson:"price,omitempty"`
	}
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}

	*i = OrderItem(doc.Fields)
	if i.SchemaVersion < OrderItemSchemaVersion && doc.LegacyPrice != nil {
		if i.UnitPrice == 0 {
			i.UnitPrice = *doc.LegacyPrice
		}
		if i.TotalPrice == 0 {
			i.TotalPrice = i.UnitPrice * float64(i.Quantity)
		}
	}
	i.SchemaVersion = OrderItemSchemaVersion
	return nil
}

// DeliveryDetails holds the contact and destination captured at checkout.
type DeliveryDetails struct {
	Email            string `json:"email" binding:"required,email"`
	FullName         string `json:"fullName" binding:"required"`
	Phone            string `json:"phone" binding:"required"`
	Address          string `json:"address" binding:"required"`
	City             string `json:"city" binding:"required"`
	Notes            string `json:"notes"`
	PaymentReference string `json:"paymentReference"`
}

// Order defines the persisted order document.
type Order struct {
	ID                         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID                     primitive.ObjectID `bson:"user_id" json:"userId"`
	TotalAmount                float64            `bson:"total_amount" json:"totalAmount"`
	Status                     OrderStatus        `bson:"status" json:"status"`
	PaymentStatus              string             `bson:"payment_status" json:"paymentStatus"`
	UserEmail                  string             `bson:"user_email" json:"userEmail"`
	UserFullName               string             `bson:"user_full_name" json:"userFullName"`
	UserPhone                  string             `bson:"user_phone" json:"userPhone"`
	DeliveryAddress            string             `bson:"delivery_address" json:"deliveryAddress"`
	DeliveryCity               string             `bson:"delivery_city" json:"deliveryCity"`
	DeliveryNotes              string             `bson:"delivery_notes,omitempty" json:"deliveryNotes,omitempty"`
	PaymentReference           string             `bson:"payment_reference,omitempty" json:"paymentReference,omitempty"`
	TrackingNumber             string             `bson:"tracking_number,omitempty" json:"trackingNumber,omitempty"`
	AdminNotes                 string             `bson:"admin_notes,omitempty" json:"adminNotes,omitempty"`
	IdempotencyKey             string             `bson:"idempotency_key,omitempty" json:"-"`
	ConfirmedDeliveryAt        *time.Time         `bson:"confirmed_delivery_at,omitempty" json:"confirmedDeliveryAt,omitempty"`
	DeliveryConfirmationMethod string             `bson:"delivery_confirmation_method,omitempty" json:"deliveryConfirmationMethod,omitempty"`
	CreatedAt                  time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt                  time.Time          `bson:"updated_at" json:"updatedAt"`

	Items []OrderItem `bson:"-" json:"items"`
}

// StatusUpdate describes the fields an order status change may write.
type StatusUpdate struct {
	Status                     OrderStatus
	AdminNotes                 *string
	TrackingNumber             *string
	ConfirmedDeliveryAt        *time.Time
	DeliveryConfirmationMethod string
	UpdatedAt                  time.Time
}
