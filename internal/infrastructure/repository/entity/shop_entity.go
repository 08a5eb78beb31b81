package entity

import (
	"time"

	"cardmint-shopify-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoShopDoc represents an installed shop in MongoDB
type MongoShopDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Domain      string             `bson:"domain"`
	AccessToken string             `bson:"accessToken"`
	Scopes      []string           `bson:"scopes"`
	Currency    string             `bson:"currency"`
	InstalledAt time.Time          `bson:"installedAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoShopDoc) ToDomain() *domain.Shop {
	return &domain.Shop{
		ID:          d.ID.Hex(),
		Domain:      d.Domain,
		AccessToken: d.AccessToken,
		Scopes:      d.Scopes,
		Currency:    d.Currency,
		InstalledAt: d.InstalledAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoShopDocFromDomain converts a domain entity to a MongoDB document
func MongoShopDocFromDomain(shop *domain.Shop) *MongoShopDoc {
	doc := &MongoShopDoc{
		Domain:      shop.Domain,
		AccessToken: shop.AccessToken,
		Scopes:      shop.Scopes,
		Currency:    shop.Currency,
		InstalledAt: shop.InstalledAt,
		UpdatedAt:   shop.UpdatedAt,
	}

	if shop.ID != "" {
		if objID, err := primitive.ObjectIDFromHex(shop.ID); err == nil {
			doc.ID = objID
		}
	}

	return doc
}
