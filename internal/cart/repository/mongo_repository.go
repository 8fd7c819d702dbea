package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const cartTTL = 90 * 24 * time.Hour

type MongoRepository struct {
	collection *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoRepository) GetCart(ctx context.Context, userID string) (*domain.Cart, error) {
	var cart domain.Cart

	err := m.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return &cart, nil
}

// UpsertCart replaces the stored line items with cart.Items. Concurrent
// writers for one user race and the last write wins.
func (m *MongoRepository) UpsertCart(ctx context.Context, cart *domain.Cart) error {
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}

	filter := bson.M{"user_id": cart.UserID}
	// _id is immutable, so the document is never $set as a whole
	update := bson.M{
		"$set": bson.M{
			"items":      cart.Items,
			"updated_at": cart.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"created_at": cart.CreatedAt,
		},
	}

	_, err := m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	return nil
}

func (m *MongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(cartTTL.Seconds())),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
