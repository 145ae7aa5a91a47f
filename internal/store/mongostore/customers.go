package mongostore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pureplatter/internal/models"
	"pureplatter/internal/store"
)

type customerRepo struct {
	coll *mongo.Collection
}

func (r customerRepo) Insert(ctx context.Context, customer *models.Customer) error {
	if customer.ID.IsZero() {
		customer.ID = primitive.NewObjectID()
	}
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	if customer.Addresses == nil {
		customer.Addresses = []models.Address{}
	}
	_, err := r.coll.InsertOne(ctx, customer)
	return translate(err)
}

func (r customerRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&customer); err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

func (r customerRepo) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := r.coll.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&customer)
	if err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

func (r customerRepo) List(ctx context.Context) ([]models.Customer, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	customers := make([]models.Customer, 0)
	if err := cursor.All(ctx, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

func (r customerRepo) Update(ctx context.Context, id primitive.ObjectID, update models.CustomerUpdate, at time.Time) (*models.Customer, error) {
	set := bson.M{"updated_at": at}
	if update.FullName != nil {
		set["full_name"] = *update.FullName
	}
	if update.Phone != nil {
		set["phone"] = *update.Phone
	}
	if update.IsActive != nil {
		set["is_active"] = *update.IsActive
	}

	var customer models.Customer
	err := r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&customer)
	if err != nil {
		return nil, translate(err)
	}
	return &customer, nil
}

func (r customerRepo) SetAddresses(ctx context.Context, id primitive.ObjectID, addresses []models.Address, at time.Time) error {
	if addresses == nil {
		addresses = []models.Address{}
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"addresses":  addresses,
		"updated_at": at,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
