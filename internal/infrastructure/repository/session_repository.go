package repository

import (
	"context"
	"fmt"
	"time"

	"cardmint-shopify-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// SessionRepository persists short-lived OAuth state sessions in MongoDB
type SessionRepository struct {
	collection *mongo.Collection
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{
		collection: db.Collection("oauth_sessions"),
	}
}

// CreateSession stores a new OAuth session
func (r *SessionRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	if session.ID == "" {
		session.ID = primitive.NewObjectID().Hex()
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetSession retrieves a session by its state value. Expired sessions are
// treated as absent.
func (r *SessionRepository) GetSession(ctx context.Context, state string) (*domain.Session, error) {
	var session domain.Session
	filter := bson.M{"state": state}

	err := r.collection.FindOne(ctx, filter).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		return nil, nil
	}

	return &session, nil
}

// DeleteSession removes a session by state
func (r *SessionRepository) DeleteSession(ctx context.Context, state string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"state": state})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}
