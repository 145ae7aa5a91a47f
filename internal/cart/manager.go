// Package cart implements the two-tier shopping cart: a per-session local
// snapshot that exists without sign-in, mirrored to the remote cart rows of
// an authenticated customer and reconciled on sign-in.
package cart

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/store"
)

// Manager builds a Service for each cart session.
type Manager struct {
	local    LocalStore
	remote   store.CartRepository
	tx       store.Transactor
	throttle *throttle
	now      func() time.Time
}

func NewManager(local LocalStore, remote store.CartRepository, tx store.Transactor, syncInterval time.Duration) *Manager {
	return &Manager{
		local:    local,
		remote:   remote,
		tx:       tx,
		throttle: newThrottle(syncInterval),
		now:      time.Now,
	}
}

// Session loads the cart for sessionID. With a userID the service mirrors
// writes to the remote rows, and a dirty or empty local copy is reconciled
// straight away.
func (m *Manager) Session(ctx context.Context, sessionID string, userID *primitive.ObjectID) (*Service, error) {
	snap, err := m.local.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		manager:   m,
		sessionID: sessionID,
		userID:    userID,
		snap:      snap,
	}
	if userID != nil && (snap.Dirty || len(snap.Items) == 0) {
		if _, err := svc.Reconcile(ctx); err != nil {
			log.Println("[CART] [WARN] reconcile on load failed:", err)
		}
	}
	return svc, nil
}

// RunJanitor trims idle throttle entries until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.throttle.forget()
		}
	}
}
