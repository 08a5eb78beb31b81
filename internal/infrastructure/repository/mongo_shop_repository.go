package repository

import (
	"context"
	"fmt"
	"time"

	"cardmint-shopify-app/internal/domain"
	"cardmint-shopify-app/internal/infrastructure/repository/entity"
	"cardmint-shopify-app/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoShopRepository implements ShopRepository using MongoDB
type MongoShopRepository struct {
	collection *mongo.Collection
}

// NewMongoShopRepository creates a new MongoDB shop repository
func NewMongoShopRepository(db *mongo.Database) ports.ShopRepository {
	return &MongoShopRepository{
		collection: db.Collection("shops"),
	}
}

// SaveShop saves or updates a shop keyed by its myshopify domain
func (r *MongoShopRepository) SaveShop(ctx context.Context, shop *domain.Shop) error {
	doc := entity.MongoShopDocFromDomain(shop)
	doc.UpdatedAt = time.Now()
	if doc.InstalledAt.IsZero() {
		doc.InstalledAt = time.Now()
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"domain": shop.Domain}
	update := bson.M{"$set": bson.M{
		"domain":      doc.Domain,
		"accessToken": doc.AccessToken,
		"scopes":      doc.Scopes,
		"currency":    doc.Currency,
		"updatedAt":   doc.UpdatedAt,
	}, "$setOnInsert": bson.M{
		"installedAt": doc.InstalledAt,
	}}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save shop: %w", err)
	}

	return nil
}

// GetShop retrieves a shop by domain
func (r *MongoShopRepository) GetShop(ctx context.Context, shopDomain string) (*domain.Shop, error) {
	var doc entity.MongoShopDoc
	filter := bson.M{"domain": shopDomain}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shop: %w", err)
	}

	return doc.ToDomain(), nil
}

// ListShops retrieves all installed shops
func (r *MongoShopRepository) ListShops(ctx context.Context) ([]*domain.Shop, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list shops: %w", err)
	}
	defer cursor.Close(ctx)

	var shops []*domain.Shop
	for cursor.Next(ctx) {
		var doc entity.MongoShopDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode shop: %w", err)
		}
		shops = append(shops, doc.ToDomain())
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return shops, nil
}
