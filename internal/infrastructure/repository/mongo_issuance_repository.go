package repository

import (
	"context"
	"fmt"
	"time"

	"cardmint-shopify-app/internal/domain"
	"cardmint-shopify-app/internal/infrastructure/repository/entity"
	"cardmint-shopify-app/internal/ports"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoIssuanceRepository implements IssuanceRepository using MongoDB
type MongoIssuanceRepository struct {
	giftCards *mongo.Collection
	orderRuns *mongo.Collection
}

// NewMongoIssuanceRepository creates a new MongoDB issuance repository
func NewMongoIssuanceRepository(db *mongo.Database) *MongoIssuanceRepository {
	return &MongoIssuanceRepository{
		giftCards: db.Collection("gift_cards"),
		orderRuns: db.Collection("order_runs"),
	}
}

// EnsureIndexes creates the indexes the repository relies on. The unique
// index on (shop, orderId, lineItemId, unitIndex) turns a concurrent
// duplicate delivery into an insert error instead of a duplicate record.
func (r *MongoIssuanceRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.giftCards.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "shop", Value: 1},
				{Key: "orderId", Value: 1},
				{Key: "lineItemId", Value: 1},
				{Key: "unitIndex", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "shop", Value: 1}, {Key: "createdAt", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "shop", Value: 1}, {Key: "orderId", Value: 1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create gift card indexes: %w", err)
	}

	_, err = r.orderRuns.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "shop", Value: 1}, {Key: "orderId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create order run index: %w", err)
	}

	return nil
}

// InsertGiftCard appends one issuance record
func (r *MongoIssuanceRepository) InsertGiftCard(ctx context.Context, record *domain.GiftCardRecord) error {
	doc := entity.MongoGiftCardDocFromDomain(record)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	_, err := r.giftCards.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to insert gift card record: %w", err)
	}

	record.ID = doc.ID.Hex()
	record.CreatedAt = doc.CreatedAt
	return nil
}

// GetGiftCard retrieves one record by id, scoped to the shop
func (r *MongoIssuanceRepository) GetGiftCard(ctx context.Context, shop string, id string) (*domain.GiftCardRecord, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid gift card record id: %w", err)
	}

	var doc entity.MongoGiftCardDoc
	filter := bson.M{"_id": objID, "shop": shop}

	err = r.giftCards.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gift card record: %w", err)
	}

	return doc.ToDomain(), nil
}

// ListGiftCards retrieves the shop's records newest first, paginated, plus
// the total record count.
func (r *MongoIssuanceRepository) ListGiftCards(ctx context.Context, shop string, page, perPage int64) ([]*domain.GiftCardRecord, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 25
	}

	filter := bson.M{"shop": shop}

	total, err := r.giftCards.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count gift card records: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip((page - 1) * perPage).
		SetLimit(perPage)

	cursor, err := r.giftCards.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list gift card records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*domain.GiftCardRecord
	for cursor.Next(ctx) {
		var doc entity.MongoGiftCardDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, fmt.Errorf("failed to decode gift card record: %w", err)
		}
		records = append(records, doc.ToDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("cursor error: %w", err)
	}

	return records, total, nil
}

// ListGiftCardsByOrder retrieves all records for one order in creation order
func (r *MongoIssuanceRepository) ListGiftCardsByOrder(ctx context.Context, shop string, orderID int64) ([]*domain.GiftCardRecord, error) {
	filter := bson.M{"shop": shop, "orderId": orderID}
	opts := options.Find().SetSort(bson.D{{Key: "lineItemId", Value: 1}, {Key: "unitIndex", Value: 1}})

	cursor, err := r.giftCards.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list gift card records for order: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*domain.GiftCardRecord
	for cursor.Next(ctx) {
		var doc entity.MongoGiftCardDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode gift card record: %w", err)
		}
		records = append(records, doc.ToDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return records, nil
}

// CountByOrder counts the records already persisted for an order
func (r *MongoIssuanceRepository) CountByOrder(ctx context.Context, shop string, orderID int64) (int64, error) {
	count, err := r.giftCards.CountDocuments(ctx, bson.M{"shop": shop, "orderId": orderID})
	if err != nil {
		return 0, fmt.Errorf("failed to count gift card records for order: %w", err)
	}
	return count, nil
}

// SetPrinted sets or clears the printedAt timestamp of one record
func (r *MongoIssuanceRepository) SetPrinted(ctx context.Context, shop string, id string, printedAt *time.Time) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid gift card record id: %w", err)
	}

	filter := bson.M{"_id": objID, "shop": shop}
	var update bson.M
	if printedAt != nil {
		update = bson.M{"$set": bson.M{"printedAt": *printedAt}}
	} else {
		update = bson.M{"$unset": bson.M{"printedAt": ""}}
	}

	result, err := r.giftCards.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update printed state: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("gift card record not found: %s", id)
	}

	return nil
}

// RecordOrderRun saves the outcome of one order's pipeline run. The unique
// (shop, orderId) index makes the first writer win on concurrent delivery.
func (r *MongoIssuanceRepository) RecordOrderRun(ctx context.Context, run *domain.OrderRun) error {
	doc := entity.MongoOrderRunDocFromDomain(run)
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	_, err := r.orderRuns.InsertOne(ctx, doc)
	if err != nil {
		return fmt.Errorf("failed to record order run: %w", err)
	}

	run.ID = doc.ID.Hex()
	run.CreatedAt = doc.CreatedAt
	return nil
}

// GetOrderRun retrieves the run outcome for one order, nil when absent
func (r *MongoIssuanceRepository) GetOrderRun(ctx context.Context, shop string, orderID int64) (*domain.OrderRun, error) {
	var doc entity.MongoOrderRunDoc
	filter := bson.M{"shop": shop, "orderId": orderID}

	err := r.orderRuns.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order run: %w", err)
	}

	return doc.ToDomain(), nil
}

// DashboardStats aggregates the shop's issuance records
func (r *MongoIssuanceRepository) DashboardStats(ctx context.Context, shop string) (*ports.DashboardStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"shop": shop}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"cards":   bson.M{"$sum": 1},
			"orders":  bson.M{"$addToSet": "$orderId"},
			"value":   bson.M{"$sum": bson.M{"$toDecimal": "$value"}},
			"printed": bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$ifNull": bson.A{"$printedAt", false}}, 1, 0}}},
		}}},
	}

	cursor, err := r.giftCards.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate dashboard stats: %w", err)
	}
	defer cursor.Close(ctx)

	stats := &ports.DashboardStats{TotalValue: decimal.Zero.StringFixed(2)}
	if cursor.Next(ctx) {
		var row struct {
			Cards   int64                `bson:"cards"`
			Orders  []int64              `bson:"orders"`
			Value   primitive.Decimal128 `bson:"value"`
			Printed int64                `bson:"printed"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode dashboard stats: %w", err)
		}
		stats.TotalCards = row.Cards
		stats.TotalOrders = int64(len(row.Orders))
		stats.PrintedCards = row.Printed
		if value, err := decimal.NewFromString(row.Value.String()); err == nil {
			stats.TotalValue = value.StringFixed(2)
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	return stats, nil
}
