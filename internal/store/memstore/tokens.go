package memstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type tokenRepo struct{ d *db }

func (r tokenRepo) Insert(_ context.Context, token *models.RefreshToken) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	r.d.tokens[token.ID] = *token
	return nil
}

func (r tokenRepo) FindActive(_ context.Context, hash string) (*models.RefreshToken, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, token := range r.d.tokens {
		if token.TokenHash == hash && !token.Revoked {
			found := token
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r tokenRepo) Revoke(_ context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	token, ok := r.d.tokens[id]
	if !ok {
		return store.ErrNotFound
	}
	token.Revoked = true
	token.ReplacedByToken = replacedBy
	r.d.tokens[id] = token
	return nil
}

func (r tokenRepo) RevokeByHash(_ context.Context, hash string) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for id, token := range r.d.tokens {
		if token.TokenHash == hash && !token.Revoked {
			token.Revoked = true
			r.d.tokens[id] = token
			return true, nil
		}
	}
	return false, nil
}
