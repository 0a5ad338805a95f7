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

// RecordRepository persists the append-only answer log. Records are never
// updated; the only deletion path is retention cleanup.
type RecordRepository struct {
	Col *mongo.Collection
}

func NewRecordRepository(db *mongo.Database) *RecordRepository {
	r := &RecordRepository{Col: db.Collection("learning_records")}
	r.ensureIndexes()
	return r
}

func (r *RecordRepository) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = r.Col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "question_id", Value: 1}}},
		{Keys: bson.D{{Key: "attempt_timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "exam_category", Value: 1}, {Key: "attempt_timestamp", Value: -1}}},
	})
}

// Append stores one record and fills in its ID.
func (r *RecordRepository) Append(ctx context.Context, rec *models.AnswerRecord) error {
	if rec.ID == "" {
		rec.ID = primitive.NewObjectID().Hex()
	}
	if _, err := r.Col.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("%w: insert learning record: %v", models.ErrStorage, err)
	}
	return nil
}

// AppendBatch stores records as an ordered batch. When run inside a
// transaction the batch is all-or-nothing.
func (r *RecordRepository) AppendBatch(ctx context.Context, recs []*models.AnswerRecord) error {
	if len(recs) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(recs))
	for _, rec := range recs {
		if rec.ID == "" {
			rec.ID = primitive.NewObjectID().Hex()
		}
		docs = append(docs, rec)
	}
	if _, err := r.Col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true)); err != nil {
		return fmt.Errorf("%w: insert learning records: %v", models.ErrStorage, err)
	}
	return nil
}

// Query returns records matching the filter, newest first.
func (r *RecordRepository) Query(ctx context.Context, f models.RecordFilter) ([]models.AnswerRecord, error) {
	filter := bson.M{}
	if f.QuestionID != "" {
		filter["question_id"] = f.QuestionID
	}
	if f.ExamCategory != "" {
		filter["exam_category"] = f.ExamCategory
	}
	timeRange := bson.M{}
	if !f.Since.IsZero() {
		timeRange["$gte"] = f.Since
	}
	if !f.Until.IsZero() {
		timeRange["$lte"] = f.Until
	}
	if len(timeRange) > 0 {
		filter["attempt_timestamp"] = timeRange
	}

	opts := options.Find().SetSort(bson.D{{Key: "attempt_timestamp", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cur, err := r.Col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: query learning records: %v", models.ErrStorage, err)
	}
	defer cur.Close(ctx)

	var records []models.AnswerRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("%w: decode learning records: %v", models.ErrStorage, err)
	}
	return records, nil
}

// DeleteBefore removes records older than cutoff and reports how many went.
func (r *RecordRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.Col.DeleteMany(ctx, bson.M{"attempt_timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("%w: cleanup learning records: %v", models.ErrStorage, err)
	}
	return res.DeletedCount, nil
}

// DailyProgress groups the last N days of records into per-day totals.
func (r *RecordRepository) DailyProgress(ctx context.Context, examCategory string, days int) ([]models.DailyProgress, error) {
	since := time.Now().AddDate(0, 0, -days)
	match := bson.M{"attempt_timestamp": bson.M{"$gte": since}}
	if examCategory != "" {
		match["exam_category"] = examCategory
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":             bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$attempt_timestamp"}},
			"total_questions": bson.M{"$sum": 1},
			"correct_answers": bson.M{"$sum": bson.M{"$cond": bson.A{"$is_correct", 1, 0}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := r.Col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("%w: daily progress pipeline: %v", models.ErrStorage, err)
	}
	defer cur.Close(ctx)

	var daily []models.DailyProgress
	if err := cur.All(ctx, &daily); err != nil {
		return nil, fmt.Errorf("%w: decode daily progress: %v", models.ErrStorage, err)
	}
	for i := range daily {
		if daily[i].TotalQuestions > 0 {
			daily[i].CorrectRate = models.RoundRate(float64(daily[i].CorrectAnswers) * 100 / float64(daily[i].TotalQuestions))
		}
	}
	return daily, nil
}
