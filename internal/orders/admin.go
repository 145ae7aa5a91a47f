package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/events"
	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

// StatusChange is an administrator's edit of an order.
type StatusChange struct {
	Status         string
	AdminNotes     *string
	TrackingNumber *string
}

// UpdateStatus moves an order along the lifecycle and queues the customer
// email in the same transaction. Re-submitting the current status of an open order only edits notes
// and tracking and sends nothing.
func (s *Service) UpdateStatus(ctx context.Context, id primitive.ObjectID, change StatusChange) (*models.Order, error) {
	next, ok := models.ParseOrderStatus(strings.TrimSpace(change.Status))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, change.Status)
	}

	current, err := s.store.Orders.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := models.CheckTransition(current.Status, next); err != nil {
		return nil, err
	}

	update := models.StatusUpdate{
		Status:         next,
		AdminNotes:     trimmed(change.AdminNotes),
		TrackingNumber: trimmed(change.TrackingNumber),
		UpdatedAt:      s.now().UTC(),
	}
	var updated *models.Order
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.store.Orders.UpdateStatus(ctx, id, current.Status, update)
		if err != nil || current.Status == next {
			return err
		}
		return s.outbox.Add(ctx, models.TaskOrderStatusEmail, models.StatusEmailPayload{
			OrderID: id.Hex(),
			Status:  string(next),
		})
	})
	if errors.Is(err, store.ErrConflict) {
		return nil, fmt.Errorf("%w: order changed while updating", models.ErrInvalidTransition)
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachItems(ctx, []*models.Order{updated}); err != nil {
		return nil, err
	}

	if current.Status != next {
		log.Printf("[ORDER] [INFO] order %s moved %s -> %s", id.Hex(), current.Status, next)
		kind := events.OrderStatusChanged
		if next == models.StatusDelivered {
			kind = events.OrderDelivered
		}
		s.publish(ctx, kind, updated)
	}
	return updated, nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}

// CustomerSummaries joins every customer with their orders. Completed means
// delivered; pending counts pending, confirmed and shipped orders.
func (s *Service) CustomerSummaries(ctx context.Context) ([]models.CustomerSummary, error) {
	customers, err := s.store.Customers.List(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := s.store.Orders.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	byUser := make(map[primitive.ObjectID][]models.Order)
	for _, order := range orders {
		byUser[order.UserID] = append(byUser[order.UserID], order)
	}

	summaries := make([]models.CustomerSummary, 0, len(customers))
	for _, customer := range customers {
		summaries = append(summaries, Summarize(customer, byUser[customer.ID]))
	}
	return summaries, nil
}

// Summarize computes the order statistics for one customer.
func Summarize(customer models.Customer, orders []models.Order) models.CustomerSummary {
	summary := models.CustomerSummary{Customer: customer, OrderCount: len(orders)}
	if len(orders) == 0 {
		return summary
	}

	total := 0.0
	for i, order := range orders {
		total += order.TotalAmount
		switch {
		case order.Status == models.StatusDelivered:
			summary.CompletedOrderCount++
		case order.Status == models.StatusPending, order.Status == models.StatusConfirmed, order.Status == models.StatusShipped:
			summary.PendingOrderCount++
		}
		if summary.LastOrderDate == nil || order.CreatedAt.After(*summary.LastOrderDate) {
			created := orders[i].CreatedAt
			summary.LastOrderDate = &created
		}
	}
	summary.AverageOrderValue = total / float64(len(orders))
	return summary
}
