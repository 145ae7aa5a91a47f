package cart

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

var ErrItemNotFound = errors.New("item not in cart")

// Item describes a product being added to the cart.
type Item struct {
	ProductID   string
	ProductName string
	UnitPrice   float64
	WeightLabel string
	ImageURL    string
}

// Service is one session's cart. Local writes always land; remote writes
// for an authenticated session are best effort and a failure marks the
// snapshot dirty so the next reconcile heals it.
type Service struct {
	manager   *Manager
	sessionID string
	userID    *primitive.ObjectID

	mu   sync.Mutex
	snap models.CartSnapshot
}

func (s *Service) SessionID() string { return s.sessionID }

func (s *Service) Authenticated() bool { return s.userID != nil }

// Items returns a copy of the cart lines in insertion order.
func (s *Service) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.CartItem{}, s.snap.Items...)
}

func (s *Service) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TotalItems(s.snap.Items)
}

func (s *Service) TotalAmount() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return TotalAmount(s.snap.Items)
}

// Add increments an existing line by one, or inserts the item with qty.
func (s *Service) Add(ctx context.Context, item Item, qty int) error {
	if qty < 1 {
		qty = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(item.ProductID)
	if idx >= 0 {
		s.snap.Items[idx].Quantity++
	} else {
		s.snap.Items = append(s.snap.Items, models.CartItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    qty,
			WeightLabel: item.WeightLabel,
			ImageURL:    item.ImageURL,
			AddedAt:     s.manager.now(),
		})
		idx = len(s.snap.Items) - 1
	}
	line := s.snap.Items[idx]

	s.mirrorLocked(ctx, "add", func(userID primitive.ObjectID) error {
		matched, err := s.manager.remote.Increment(ctx, userID, line.ProductID, 1)
		if err != nil || matched {
			return err
		}
		row := line
		row.UserID = userID
		err = s.manager.remote.Insert(ctx, &row)
		if errors.Is(err, store.ErrDuplicate) {
			_, err = s.manager.remote.Increment(ctx, userID, line.ProductID, 1)
		}
		return err
	})
	return s.saveLocked(ctx)
}

// UpdateQuantity sets the quantity of a line; n <= 0 removes it.
func (s *Service) UpdateQuantity(ctx context.Context, productID string, n int) error {
	if n <= 0 {
		return s.Remove(ctx, productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(productID)
	if idx < 0 {
		return ErrItemNotFound
	}
	s.snap.Items[idx].Quantity = n
	line := s.snap.Items[idx]

	s.mirrorLocked(ctx, "update", func(userID primitive.ObjectID) error {
		err := s.manager.remote.SetQuantity(ctx, userID, productID, n)
		if errors.Is(err, store.ErrNotFound) {
			row := line
			row.UserID = userID
			err = s.manager.remote.Insert(ctx, &row)
		}
		return err
	})
	return s.saveLocked(ctx)
}

func (s *Service) Remove(ctx context.Context, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexLocked(productID); idx >= 0 {
		s.snap.Items = append(s.snap.Items[:idx:idx], s.snap.Items[idx+1:]...)
	}
	s.mirrorLocked(ctx, "remove", func(userID primitive.ObjectID) error {
		return s.manager.remote.Delete(ctx, userID, productID)
	})
	return s.saveLocked(ctx)
}

// Clear empties the cart in both tiers.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Items = []models.CartItem{}
	s.mirrorLocked(ctx, "clear", func(userID primitive.ObjectID) error {
		return s.manager.remote.DeleteAll(ctx, userID)
	})
	return s.saveLocked(ctx)
}

// ClearOnOrderSuccess empties only the local tier. Order creation already
// removed the remote rows inside its transaction.
func (s *Service) ClearOnOrderSuccess(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.Items = []models.CartItem{}
	s.snap.Dirty = false
	return s.saveLocked(ctx)
}

// Reconcile merges the local and remote tiers. A non-empty or dirty local
// cart replaces the remote rows; otherwise the remote rows become the local
// cart. It reports false when the per-user throttle skipped the run.
func (s *Service) Reconcile(ctx context.Context) (bool, error) {
	if s.userID == nil {
		return false, nil
	}
	userID := *s.userID
	if !s.manager.throttle.allow(userID.Hex()) {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snap.Items) > 0 || s.snap.Dirty {
		rows := make([]models.CartItem, 0, len(s.snap.Items))
		for _, item := range s.snap.Items {
			item.ID = primitive.NilObjectID
			item.UserID = userID
			rows = append(rows, item)
		}
		err := s.manager.tx.WithTransaction(ctx, func(ctx context.Context) error {
			if err := s.manager.remote.DeleteAll(ctx, userID); err != nil {
				return err
			}
			return s.manager.remote.InsertMany(ctx, rows)
		})
		if err != nil {
			return true, err
		}
		s.snap.Dirty = false
		return true, s.saveLocked(ctx)
	}

	rows, err := s.manager.remote.List(ctx, userID)
	if err != nil {
		return true, err
	}
	if len(rows) == 0 {
		return true, nil
	}
	s.snap.Items = rows
	return true, s.saveLocked(ctx)
}

// mirrorLocked applies a remote write for an authenticated session. A
// failure is logged and leaves the snapshot dirty.
func (s *Service) mirrorLocked(ctx context.Context, op string, write func(userID primitive.ObjectID) error) {
	if s.userID == nil {
		return
	}
	if err := write(*s.userID); err != nil {
		log.Printf("[CART] [ERROR] remote %s failed for user %s: %v", op, s.userID.Hex(), err)
		s.snap.Dirty = true
	}
}

func (s *Service) saveLocked(ctx context.Context) error {
	s.snap.UpdatedAt = s.manager.now()
	return s.manager.local.Save(ctx, s.sessionID, s.snap)
}

func (s *Service) indexLocked(productID string) int {
	for i, item := range s.snap.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// TotalItems is the sum of quantities.
func TotalItems(items []models.CartItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}

// TotalAmount is the sum of unit price times quantity.
func TotalAmount(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}
