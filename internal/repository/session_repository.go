package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"progress-service/internal/models"
)

// SessionRepository archives terminal session summaries. Active sessions
// never live here; only their immutable end-of-session output does.
type SessionRepository struct {
	Col *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) *SessionRepository {
	return &SessionRepository{Col: db.Collection("study_sessions")}
}

func (r *SessionRepository) Save(ctx context.Context, summary *models.SessionSummary) error {
	if summary.ID == "" {
		summary.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.Col.InsertOne(ctx, summary); err != nil {
		return fmt.Errorf("%w: insert session summary: %v", models.ErrStorage, err)
	}
	return nil
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string, limit int64) ([]models.SessionSummary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "ended_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.Col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list session summaries: %v", models.ErrStorage, err)
	}
	defer cur.Close(ctx)

	var summaries []models.SessionSummary
	if err := cur.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("%w: decode session summaries: %v", models.ErrStorage, err)
	}
	return summaries, nil
}
