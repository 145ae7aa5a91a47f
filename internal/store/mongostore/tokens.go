package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type tokenRepo struct {
	coll *mongo.Collection
}

func (r tokenRepo) Insert(ctx context.Context, token *models.RefreshToken) error {
	if token.ID.IsZero() {
		token.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, token)
	return translate(err)
}

func (r tokenRepo) FindActive(ctx context.Context, hash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.coll.FindOne(ctx, bson.M{"token_hash": hash, "revoked": false}).Decode(&token)
	if err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (r tokenRepo) Revoke(ctx context.Context, id primitive.ObjectID, replacedBy *primitive.ObjectID) error {
	set := bson.M{"revoked": true}
	if replacedBy != nil {
		set["replaced_by_token"] = *replacedBy
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r tokenRepo) RevokeByHash(ctx context.Context, hash string) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, bson.M{"token_hash": hash, "revoked": false}, bson.M{"$set": bson.M{"revoked": true}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}
