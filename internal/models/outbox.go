package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Outbox task states.
const (
	TaskPending    = "pending"
	TaskProcessing = "processing"
	TaskDone       = "done"
	TaskFailed     = "failed"
)

// Outbox task kinds.
const (
	TaskAdminNewOrder       = "admin_new_order"
	TaskOrderStatusEmail    = "order_status_email"
	TaskDeliveryCode        = "delivery_code"
	TaskPaymentVerification = "payment_verification"
	TaskContactMessage      = "contact_message"
	TaskQuoteRequest        = "quote_request"
)

// OutboxTask is a durable side effect queued by a workflow and delivered by the worker.
type OutboxTask struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind          string             `bson:"kind" json:"kind"`
	Payload       string             `bson:"payload" json:"payload"`
	Status        string             `bson:"status" json:"status"`
	Attempts      int                `bson:"attempts" json:"attempts"`
	NextAttemptAt time.Time          `bson:"next_attempt_at" json:"nextAttemptAt"`
	LastError     string             `bson:"last_error,omitempty" json:"lastError,omitempty"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`
}

// OrderRef is the payload of tasks that only need to reload an order.
type OrderRef struct {
	OrderID string `json:"orderId"`
}

// StatusEmailPayload asks for a status-change email for an order.
type StatusEmailPayload struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// PaymentPayload asks the worker to verify a gateway reference for an order.
type PaymentPayload struct {
	OrderID   string `json:"orderId"`
	Reference string `json:"reference"`
}

// ContactMessage is a storefront contact form submission.
type ContactMessage struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
	Subject   string `json:"subject"`
	Message   string `json:"message" binding:"required"`
}

// QuoteRequest is a bulk purchase enquiry.
type QuoteRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Quantity string `json:"quantity" binding:"required"`
	Message  string `json:"message"`
}

// OrderEvent is published to the message broker on lifecycle changes.
type OrderEvent struct {
	OrderID  string    `json:"order_id"`
	UserID   string    `json:"user_id"`
	Type     string    `json:"type"`
	Status   string    `json:"status"`
	Total    float64   `json:"total"`
	Occurred time.Time `json:"occurred"`
}
