package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"progress-service/internal/models"
)

// deltaRetries bounds the internal retry on upsert races before the
// failure escapes as a storage error.
const deltaRetries = 3

// AggregateRepository owns the category_statistics collection. All writes
// go through ApplyDelta, a single atomic increment-and-upsert, so two
// concurrent writers on the same (exam_category, category) row can never
// lose an update.
type AggregateRepository struct {
	Col *mongo.Collection
}

func NewAggregateRepository(db *mongo.Database) *AggregateRepository {
	r := &AggregateRepository{Col: db.Collection("category_statistics")}
	r.ensureIndexes()
	return r
}

func (r *AggregateRepository) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = r.Col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "exam_category", Value: 1}, {Key: "category", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
}

// Get returns the aggregate row for the key, or nil when absent.
func (r *AggregateRepository) Get(ctx context.Context, examCategory, category string) (*models.CategoryAggregate, error) {
	var agg models.CategoryAggregate
	err := r.Col.FindOne(ctx, bson.M{"exam_category": examCategory, "category": category}).Decode(&agg)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get aggregate: %v", models.ErrStorage, err)
	}
	return &agg, nil
}

// ApplyDelta merges one increment into the aggregate row, creating it on
// first sight of the key. Two racing first-sight upserts can collide on
// the unique index; the loser retries and lands as a plain increment.
func (r *AggregateRepository) ApplyDelta(ctx context.Context, d models.AggregateDelta) error {
	filter := bson.M{"exam_category": d.ExamCategory, "category": d.Category}
	update := bson.M{
		"$inc": bson.M{
			"total_questions":       d.Total,
			"correct_answers":       d.Correct,
			"incorrect_answers":     d.Incorrect,
			"response_time_total":   d.ResponseTimeTotal,
			"response_time_samples": d.ResponseTimeCount,
		},
		"$set": bson.M{
			"last_study_date": d.StudyDate,
			"updated_at":      d.StudyDate,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID().Hex(),
			"created_at": d.StudyDate,
		},
	}

	var lastErr error
	for attempt := 0; attempt < deltaRetries; attempt++ {
		_, err := r.Col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
		if err == nil {
			return nil
		}
		lastErr = err
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: apply aggregate delta: %v", models.ErrStorage, err)
		}
	}
	return fmt.Errorf("%w: %w: aggregate %s/%s: %v", models.ErrStorage, models.ErrConflict, d.ExamCategory, d.Category, lastErr)
}

// List returns aggregate rows, optionally restricted to one exam category,
// ordered by exam category then category.
func (r *AggregateRepository) List(ctx context.Context, examCategory string) ([]models.CategoryAggregate, error) {
	filter := bson.M{}
	if examCategory != "" {
		filter["exam_category"] = examCategory
	}
	opts := options.Find().SetSort(bson.D{{Key: "exam_category", Value: 1}, {Key: "category", Value: 1}})
	cur, err := r.Col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list aggregates: %v", models.ErrStorage, err)
	}
	defer cur.Close(ctx)

	var aggs []models.CategoryAggregate
	if err := cur.All(ctx, &aggs); err != nil {
		return nil, fmt.Errorf("%w: decode aggregates: %v", models.ErrStorage, err)
	}
	return aggs, nil
}

// WeakAreas returns aggregate rows with at least minAttempts answers,
// worst accuracy first, better-sampled rows winning ties.
func (r *AggregateRepository) WeakAreas(ctx context.Context, examCategory string, minAttempts, limit int) ([]models.CategoryAggregate, error) {
	match := bson.M{"total_questions": bson.M{"$gte": minAttempts}}
	if examCategory != "" {
		match["exam_category"] = examCategory
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.M{
			"correct_rate_calc": bson.M{"$divide": bson.A{"$correct_answers", "$total_questions"}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "correct_rate_calc", Value: 1}, {Key: "total_questions", Value: -1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cur, err := r.Col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: weak areas pipeline: %v", models.ErrStorage, err)
	}
	defer cur.Close(ctx)

	var aggs []models.CategoryAggregate
	if err := cur.All(ctx, &aggs); err != nil {
		return nil, fmt.Errorf("%w: decode weak areas: %v", models.ErrStorage, err)
	}
	return aggs, nil
}
