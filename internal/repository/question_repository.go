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

// QuestionRepository is the catalog the aggregation engine resolves
// (exam_category, category, difficulty) from.
type QuestionRepository struct {
	Col *mongo.Collection
}

func NewQuestionRepository(db *mongo.Database) *QuestionRepository {
	r := &QuestionRepository{Col: db.Collection("questions")}
	r.ensureIndexes()
	return r
}

func (r *QuestionRepository) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = r.Col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "exam_category", Value: 1}, {Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "exam_category", Value: 1}, {Key: "year", Value: -1}}},
	})
}

func (r *QuestionRepository) Create(ctx context.Context, q *models.Question) error {
	if q.ID == "" {
		q.ID = primitive.NewObjectID().Hex()
	}
	now := time.Now()
	q.CreatedAt = now
	q.UpdatedAt = now
	if q.DifficultyLevel == 0 {
		q.DifficultyLevel = models.DefaultDifficulty
	}
	if _, err := r.Col.InsertOne(ctx, q); err != nil {
		return fmt.Errorf("%w: insert question: %v", models.ErrStorage, err)
	}
	return nil
}

// Lookup resolves a question by ID. Missing entries surface as
// models.ErrUnknownQuestion; the engine treats that as a soft skip.
func (r *QuestionRepository) Lookup(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	err := r.Col.FindOne(ctx, bson.M{"_id": id}).Decode(&q)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownQuestion, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: lookup question %s: %v", models.ErrStorage, id, err)
	}
	return &q, nil
}

// List returns catalog entries, optionally filtered by exam and category.
func (r *QuestionRepository) List(ctx context.Context, examCategory, category string, limit int64) ([]models.Question, error) {
	filter := bson.M{}
	if examCategory != "" {
		filter["exam_category"] = examCategory
	}
	if category != "" {
		filter["category"] = category
	}
	opts := options.Find().SetSort(bson.D{{Key: "year", Value: -1}, {Key: "question_number", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.Col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: list questions: %v", models.ErrStorage, err)
	}
	defer cur.Close(ctx)

	var questions []models.Question
	if err := cur.All(ctx, &questions); err != nil {
		return nil, fmt.Errorf("%w: decode questions: %v", models.ErrStorage, err)
	}
	return questions, nil
}
