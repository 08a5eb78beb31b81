package entity

import (
	"time"

	"cardmint-shopify-app/internal/domain"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoSettingsDoc represents per-shop gift card settings in MongoDB.
// PrintedOverhead is stored as a decimal string to avoid float drift.
type MongoSettingsDoc struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	Shop                  string             `bson:"shop"`
	SendEmailNotification bool               `bson:"sendEmailNotification"`
	PrintedOverhead       string             `bson:"printedOverhead"`
	TriggerVariants       []string           `bson:"triggerVariants"`
	CreatedAt             time.Time          `bson:"createdAt"`
	UpdatedAt             time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoSettingsDoc) ToDomain() *domain.ShopSettings {
	overhead, err := decimal.NewFromString(d.PrintedOverhead)
	if err != nil {
		overhead = decimal.Zero
	}
	variants := d.TriggerVariants
	if variants == nil {
		variants = []string{}
	}
	return &domain.ShopSettings{
		ID:                    d.ID.Hex(),
		Shop:                  d.Shop,
		SendEmailNotification: d.SendEmailNotification,
		PrintedOverhead:       overhead,
		TriggerVariants:       variants,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
	}
}

// MongoSettingsDocFromDomain converts a domain entity to a MongoDB document
func MongoSettingsDocFromDomain(settings *domain.ShopSettings) *MongoSettingsDoc {
	doc := &MongoSettingsDoc{
		Shop:                  settings.Shop,
		SendEmailNotification: settings.SendEmailNotification,
		PrintedOverhead:       settings.PrintedOverhead.StringFixed(2),
		TriggerVariants:       settings.TriggerVariants,
		CreatedAt:             settings.CreatedAt,
		UpdatedAt:             settings.UpdatedAt,
	}

	if settings.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(settings.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
