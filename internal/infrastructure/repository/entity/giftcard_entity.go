package entity

import (
	"time"

	"cardmint-shopify-app/internal/domain"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoGiftCardDoc represents one issuance record in MongoDB. Value is a
// decimal string; the code field carries the full, sensitive code.
type MongoGiftCardDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	Shop          string             `bson:"shop"`
	OrderID       int64              `bson:"orderId"`
	OrderName     string             `bson:"orderName"`
	LineItemID    int64              `bson:"lineItemId"`
	UnitIndex     int                `bson:"unitIndex"`
	GiftCardID    string             `bson:"giftCardId"`
	Code          string             `bson:"code"`
	MaskedCode    string             `bson:"maskedCode"`
	Value         string             `bson:"value"`
	Currency      string             `bson:"currency"`
	CustomerID    int64              `bson:"customerId,omitempty"`
	CustomerName  string             `bson:"customerName,omitempty"`
	CustomerEmail string             `bson:"customerEmail,omitempty"`
	PrintedAt     *time.Time         `bson:"printedAt,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoGiftCardDoc) ToDomain() *domain.GiftCardRecord {
	value, err := decimal.NewFromString(d.Value)
	if err != nil {
		value = decimal.Zero
	}
	return &domain.GiftCardRecord{
		ID:            d.ID.Hex(),
		Shop:          d.Shop,
		OrderID:       d.OrderID,
		OrderName:     d.OrderName,
		LineItemID:    d.LineItemID,
		UnitIndex:     d.UnitIndex,
		GiftCardID:    d.GiftCardID,
		Code:          d.Code,
		MaskedCode:    d.MaskedCode,
		Value:         value,
		Currency:      d.Currency,
		CustomerID:    d.CustomerID,
		CustomerName:  d.CustomerName,
		CustomerEmail: d.CustomerEmail,
		PrintedAt:     d.PrintedAt,
		CreatedAt:     d.CreatedAt,
	}
}

// MongoGiftCardDocFromDomain converts a domain entity to a MongoDB document
func MongoGiftCardDocFromDomain(record *domain.GiftCardRecord) *MongoGiftCardDoc {
	doc := &MongoGiftCardDoc{
		Shop:          record.Shop,
		OrderID:       record.OrderID,
		OrderName:     record.OrderName,
		LineItemID:    record.LineItemID,
		UnitIndex:     record.UnitIndex,
		GiftCardID:    record.GiftCardID,
		Code:          record.Code,
		MaskedCode:    record.MaskedCode,
		Value:         record.Value.StringFixed(2),
		Currency:      record.Currency,
		CustomerID:    record.CustomerID,
		CustomerName:  record.CustomerName,
		CustomerEmail: record.CustomerEmail,
		PrintedAt:     record.PrintedAt,
		CreatedAt:     record.CreatedAt,
	}

	if record.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(record.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}

// MongoOrderRunDoc represents the processing outcome of one paid order
type MongoOrderRunDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Shop      string             `bson:"shop"`
	OrderID   int64              `bson:"orderId"`
	Status    string             `bson:"status"`
	Requested int                `bson:"requested"`
	Issued    int                `bson:"issued"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoOrderRunDoc) ToDomain() *domain.OrderRun {
	return &domain.OrderRun{
		ID:        d.ID.Hex(),
		Shop:      d.Shop,
		OrderID:   d.OrderID,
		Status:    d.Status,
		Requested: d.Requested,
		Issued:    d.Issued,
		CreatedAt: d.CreatedAt,
	}
}

// MongoOrderRunDocFromDomain converts a domain entity to a MongoDB document
func MongoOrderRunDocFromDomain(run *domain.OrderRun) *MongoOrderRunDoc {
	doc := &MongoOrderRunDoc{
		Shop:      run.Shop,
		OrderID:   run.OrderID,
		Status:    run.Status,
		Requested: run.Requested,
		Issued:    run.Issued,
		CreatedAt: run.CreatedAt,
	}

	if run.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(run.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
