// Package delivery issues short confirmation codes for orders and lets the
// customer confirm receipt with them.
package delivery

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/events"
	"pureplatter/internal/models"
	"pureplatter/internal/orders"
	"pureplatter/internal/store"
)

var (
	ErrInvalidCode     = errors.New("invalid confirmation code or order already confirmed")
	ErrOrderNotFound   = errors.New("order not found")
	ErrOrderClosed     = errors.New("order is already delivered or cancelled")
	ErrNotShipped      = errors.New("order has not been shipped yet")
	ErrCodesExhausted  = errors.New("could not generate a unique confirmation code")
	ErrNoOutstandingQR = errors.New("no outstanding confirmation code for order")
)

type Service struct {
	store  *store.Store
	outbox orders.Enqueuer
	events events.Publisher
	appURL string
	random io.Reader
	now    func() time.Time
}

func NewService(s *store.Store, outbox orders.Enqueuer, publisher events.Publisher, appURL string) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		store:  s,
		outbox: outbox,
		events: publisher,
		appURL: strings.TrimRight(appURL, "/"),
		random: rand.Reader,
		now:    time.Now,
	}
}

// GenerateCode returns the outstanding code for the order, issuing one if
// none exists. A non-nil userID restricts it to the order's owner.
func (s *Service) GenerateCode(ctx context.Context, orderID primitive.ObjectID, userID *primitive.ObjectID) (*models.DeliveryConfirmation, error) {
	order, err := s.loadOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, ErrOrderClosed
	}

	existing, err := s.store.Deliveries.FindOutstandingByOrder(ctx, orderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := newCode(s.random)
		if err != nil {
			return nil, err
		}
		taken, err := s.store.Deliveries.CodeOutstanding(ctx, code)
		if err != nil {
			return nil, err
		}
		if taken {
			log.Printf("[DELIVERY] [WARN] code collision on attempt %d for order %s", attempt+1, orderID.Hex())
			continue
		}
		confirmation := &models.DeliveryConfirmation{
			OrderID:          orderID,
			UserID:           order.UserID,
			ConfirmationCode: code,
			CreatedAt:        s.now().UTC(),
		}
		err = s.store.Deliveries.Insert(ctx, confirmation)
		if errors.Is(err, store.ErrDuplicate) {
			log.Printf("[DELIVERY] [WARN] code collision on attempt %d for order %s", attempt+1, orderID.Hex())
			continue
		}
		if err != nil {
			return nil, err
		}
		log.Printf("[DELIVERY] [INFO] confirmation code issued for order %s", orderID.Hex())
		return confirmation, nil
	}
	return nil, ErrCodesExhausted
}

// ConfirmDelivery checks the code against the customer's outstanding
// confirmation and marks both the confirmation and the order delivered in
// one transaction.
func (s *Service) ConfirmDelivery(ctx context.Context, orderID, userID primitive.ObjectID, code string) (*models.Order, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !validCode(code) {
		return nil, ErrInvalidCode
	}

	var delivered *models.Order
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		confirmation, err := s.store.Deliveries.FindOutstanding(ctx, orderID, userID, code)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCode
		}
		if err != nil {
			return err
		}

		order, err := s.store.Orders.FindByID(ctx, orderID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if order.Status != models.StatusShipped {
			return fmt.Errorf("%w: status is %s", ErrNotShipped, order.Status)
		}

		now := s.now().UTC()
		if err := s.store.Deliveries.MarkConfirmed(ctx, confirmation.ID, models.ConfirmationMethodCode, now); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidCode
			}
			return err
		}
		delivered, err = s.store.Orders.UpdateStatus(ctx, orderID, models.StatusShipped, models.StatusUpdate{
			Status:                     models.StatusDelivered,
			ConfirmedDeliveryAt:        &now,
			DeliveryConfirmationMethod: models.DeliveredByCustomerCode,
			UpdatedAt:                  now,
		})
		if errors.Is(err, store.ErrConflict) {
			return ErrNotShipped
		}
		if err != nil {
			return err
		}
		return s.outbox.Add(ctx, models.TaskOrderStatusEmail, models.StatusEmailPayload{
			OrderID: orderID.Hex(),
			Status:  string(models.StatusDelivered),
		})
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[DELIVERY] [INFO] order %s confirmed delivered by customer", orderID.Hex())
	if err := s.events.Publish(ctx, events.NewOrderEvent(events.OrderDelivered, delivered)); err != nil {
		log.Printf("[DELIVERY] [WARN] publish delivered event for %s failed: %v", orderID.Hex(), err)
	}
	return delivered, nil
}

// QRCode renders the outstanding code of the customer's order as a PNG.
func (s *Service) QRCode(ctx context.Context, orderID, userID primitive.ObjectID, size int) ([]byte, error) {
	if _, err := s.loadOrder(ctx, orderID, &userID); err != nil {
		return nil, err
	}
	confirmation, err := s.store.Deliveries.FindOutstandingByOrder(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoOutstandingQR
	}
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(s.qrPayload(orderID, confirmation.ConfirmationCode), qrcode.Medium, size)
}

func (s *Service) qrPayload(orderID primitive.ObjectID, code string) string {
	if s.appURL == "" {
		return code
	}
	return fmt.Sprintf("%s/delivery/confirm?orderId=%s&code=%s", s.appURL, orderID.Hex(), code)
}

func (s *Service) loadOrder(ctx context.Context, orderID primitive.ObjectID, userID *primitive.ObjectID) (*models.Order, error) {
	order, err := s.store.Orders.FindByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if userID != nil && order.UserID != *userID {
		return nil, ErrOrderNotFound
	}
	return order, nil
}
