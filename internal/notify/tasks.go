package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/delivery"
	"pureplatter/internal/mailer"
	"pureplatter/internal/models"
	"pureplatter/internal/payment"
	"pureplatter/internal/store"
)

// ErrPaymentPending is returned while the gateway has not settled a
// transaction, so the verification is retried later.
var ErrPaymentPending = errors.New("payment not settled yet")

// Verifier looks up a gateway transaction.
type Verifier interface {
	Verify(ctx context.Context, reference string) (*payment.Verification, error)
}

// CodeIssuer issues delivery codes for an order.
type CodeIssuer interface {
	GenerateCode(ctx context.Context, orderID primitive.ObjectID, userID *primitive.ObjectID) (*models.DeliveryConfirmation, error)
}

// Tasks holds the dependencies of the built-in task handlers.
type Tasks struct {
	Store    *store.Store
	Sender   mailer.Sender
	Composer mailer.Composer
	Codes    CodeIssuer
	Payments Verifier
	// Currency is the only currency a payment may settle in.
	Currency string
	now      func() time.Time
}

// Register installs a handler for every task kind.
func (t *Tasks) Register(w *Worker) {
	if t.now == nil {
		t.now = time.Now
	}
	w.Register(models.TaskAdminNewOrder, t.adminNewOrder)
	w.Register(models.TaskOrderStatusEmail, t.orderStatusEmail)
	w.Register(models.TaskDeliveryCode, t.deliveryCode)
	w.Register(models.TaskPaymentVerification, t.paymentVerification)
	w.Register(models.TaskContactMessage, t.contactMessage)
	w.Register(models.TaskQuoteRequest, t.quoteRequest)
}

func (t *Tasks) loadOrder(ctx context.Context, hex string) (*models.Order, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, Permanent(fmt.Errorf("invalid order id %q", hex))
	}
	order, err := t.Store.Orders.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, Permanent(fmt.Errorf("order %s not found", hex))
	}
	if err != nil {
		return nil, err
	}
	items, err := t.Store.Orders.Items(ctx, []primitive.ObjectID{id})
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

func (t *Tasks) send(ctx context.Context, msg mailer.Message) error {
	err := t.Sender.Send(ctx, msg)
	if errors.Is(err, mailer.ErrNoRecipient) {
		return Permanent(err)
	}
	return err
}

func (t *Tasks) adminNewOrder(ctx context.Context, task *models.OutboxTask) error {
	var ref models.OrderRef
	if err := decodePayload(task, &ref); err != nil {
		return err
	}
	if t.Composer.AdminTo == "" {
		log.Printf("[OUTBOX] [WARN] no admin address configured, skipping new-order mail for %s", ref.OrderID)
		return nil
	}
	order, err := t.loadOrder(ctx, ref.OrderID)
	if err != nil {
		return err
	}
	msg, err := t.Composer.AdminNewOrder(order)
	if err != nil {
		return Permanent(err)
	}
	return t.send(ctx, msg)
}

func (t *Tasks) orderStatusEmail(ctx context.Context, task *models.OutboxTask) error {
	var p models.StatusEmailPayload
	if err := decodePayload(task, &p); err != nil {
		return err
	}
	order, err := t.loadOrder(ctx, p.OrderID)
	if err != nil {
		return err
	}
	msg, err := t.Composer.StatusChanged(order, models.OrderStatus(p.Status))
	if err != nil {
		return Permanent(err)
	}
	return t.send(ctx, msg)
}

func (t *Tasks) deliveryCode(ctx context.Context, task *models.OutboxTask) error {
	var ref models.OrderRef
	if err := decodePayload(task, &ref); err != nil {
		return err
	}
	order, err := t.loadOrder(ctx, ref.OrderID)
	if err != nil {
		return err
	}

	confirmation, err := t.Codes.GenerateCode(ctx, order.ID, nil)
	switch {
	case errors.Is(err, delivery.ErrOrderClosed), errors.Is(err, delivery.ErrOrderNotFound):
		return Permanent(err)
	case err != nil:
		return err
	}

	msg, err := t.Composer.DeliveryCode(order, confirmation.ConfirmationCode)
	if err != nil {
		return Permanent(err)
	}
	return t.send(ctx, msg)
}

func (t *Tasks) paymentVerification(ctx context.Context, task *models.OutboxTask) error {
	var p models.PaymentPayload
	if err := decodePayload(task, &p); err != nil {
		return err
	}
	if t.Payments == nil {
		return Permanent(payment.ErrNotConfigured)
	}
	order, err := t.loadOrder(ctx, p.OrderID)
	if err != nil {
		return err
	}
	if order.PaymentReference != p.Reference {
		return Permanent(fmt.Errorf("reference %q is not bound to order %s", p.Reference, p.OrderID))
	}
	if order.PaymentStatus == models.PaymentPaid {
		return nil
	}

	v, err := t.Payments.Verify(ctx, p.Reference)
	if errors.Is(err, payment.ErrNotConfigured) {
		return Permanent(err)
	}
	if err != nil {
		return err
	}

	status := models.PaymentFailed
	switch v.Status {
	case payment.StatusSuccess:
		if reason := t.paymentMismatch(order, p.Reference, v); reason != "" {
			log.Printf("[OUTBOX] [WARN] payment %s rejected for order %s: %s", p.Reference, p.OrderID, reason)
		} else {
			status = models.PaymentPaid
		}
	case payment.StatusFailed, payment.StatusAbandoned:
	default:
		return ErrPaymentPending
	}

	log.Printf("[OUTBOX] [INFO] payment %s for order %s: %s", p.Reference, p.OrderID, status)
	return t.Store.Orders.SetPaymentStatus(ctx, order.ID, status, t.now().UTC())
}

// paymentMismatch explains why a successful transaction cannot settle order,
// or returns "".
func (t *Tasks) paymentMismatch(order *models.Order, reference string, v *payment.Verification) string {
	if v.Reference != "" && v.Reference != reference {
		return fmt.Sprintf("gateway returned reference %s", v.Reference)
	}
	if t.Currency != "" && !strings.EqualFold(v.Currency, t.Currency) {
		return fmt.Sprintf("paid in %q, expected %s", v.Currency, t.Currency)
	}
	if owner, ok := v.Metadata["userId"]; ok && owner != order.UserID.Hex() {
		return fmt.Sprintf("set up by customer %s", owner)
	}
	if v.AmountMinorUnits < payment.ToMinorUnits(order.TotalAmount) {
		return fmt.Sprintf("underpaid: got %d", v.AmountMinorUnits)
	}
	return ""
}

func (t *Tasks) contactMessage(ctx context.Context, task *models.OutboxTask) error {
	var m models.ContactMessage
	if err := decodePayload(task, &m); err != nil {
		return err
	}
	msg, err := t.Composer.Contact(m)
	if err != nil {
		return Permanent(err)
	}
	return t.send(ctx, msg)
}

func (t *Tasks) quoteRequest(ctx context.Context, task *models.OutboxTask) error {
	var q models.QuoteRequest
	if err := decodePayload(task, &q); err != nil {
		return err
	}
	admin, customer, err := t.Composer.Quote(q)
	if err != nil {
		return Permanent(err)
	}
	if err := t.send(ctx, admin); err != nil {
		return err
	}
	if err := t.send(ctx, customer); err != nil {
		// the admin copy already went out, a retry would duplicate it
		log.Printf("[OUTBOX] [WARN] quote acknowledgement to %s not sent: %v", q.Email, err)
	}
	return nil
}
