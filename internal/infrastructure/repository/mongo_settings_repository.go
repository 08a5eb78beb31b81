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

// MongoSettingsRepository implements SettingsRepository using MongoDB.
// One document per shop; trigger variants live in the document as a set
// maintained with $addToSet / $pull so membership updates never rewrite
// the whole document.
type MongoSettingsRepository struct {
	collection *mongo.Collection
}

// NewMongoSettingsRepository creates a new MongoDB settings repository
func NewMongoSettingsRepository(db *mongo.Database) ports.SettingsRepository {
	return &MongoSettingsRepository{
		collection: db.Collection("shop_settings"),
	}
}

// Get retrieves a shop's settings. Returns nil when the shop has none yet.
func (r *MongoSettingsRepository) Get(ctx context.Context, shop string) (*domain.ShopSettings, error) {
	var doc entity.MongoSettingsDoc
	filter := bson.M{"shop": shop}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return doc.ToDomain(), nil
}

// Save upserts the scalar settings fields for a shop. The trigger variant
// set is managed separately and is only written on first insert.
func (r *MongoSettingsRepository) Save(ctx context.Context, settings *domain.ShopSettings) error {
	doc := entity.MongoSettingsDocFromDomain(settings)
	doc.UpdatedAt = time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"shop": settings.Shop}
	update := bson.M{
		"$set": bson.M{
			"sendEmailNotification": doc.SendEmailNotification,
			"printedOverhead":       doc.PrintedOverhead,
			"updatedAt":             doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"shop":            doc.Shop,
			"triggerVariants": doc.TriggerVariants,
			"createdAt":       doc.CreatedAt,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	return nil
}

// AddTriggerVariant adds a variant to the shop's trigger set. Uniqueness
// is enforced by $addToSet.
func (r *MongoSettingsRepository) AddTriggerVariant(ctx context.Context, shop string, variantID string) error {
	opts := options.Update().SetUpsert(true)
	filter := bson.M{"shop": shop}
	update := bson.M{
		"$addToSet": bson.M{"triggerVariants": variantID},
		"$set":      bson.M{"updatedAt": time.Now()},
		"$setOnInsert": bson.M{
			"shop":                  shop,
			"sendEmailNotification": true,
			"printedOverhead":       "0.00",
			"createdAt":             time.Now(),
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to add trigger variant: %w", err)
	}

	return nil
}

// RemoveTriggerVariant removes a variant from the shop's trigger set
func (r *MongoSettingsRepository) RemoveTriggerVariant(ctx context.Context, shop string, variantID string) error {
	filter := bson.M{"shop": shop}
	update := bson.M{
		"$pull": bson.M{"triggerVariants": variantID},
		"$set":  bson.M{"updatedAt": time.Now()},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove trigger variant: %w", err)
	}

	return nil
}
