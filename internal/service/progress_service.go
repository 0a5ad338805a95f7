package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"progress-service/internal/models"
)

// RecordStore is the append-only answer log contract.
type RecordStore interface {
	Append(ctx context.Context, rec *models.AnswerRecord) error
	AppendBatch(ctx context.Context, recs []*models.AnswerRecord) error
	Query(ctx context.Context, f models.RecordFilter) ([]models.AnswerRecord, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
	DailyProgress(ctx context.Context, examCategory string, days int) ([]models.DailyProgress, error)
}

// AggregateStore is the per-category running-totals contract. ApplyDelta
// must be safe against concurrent writers on the same key.
type AggregateStore interface {
	Get(ctx context.Context, examCategory, category string) (*models.CategoryAggregate, error)
	ApplyDelta(ctx context.Context, d models.AggregateDelta) error
	List(ctx context.Context, examCategory string) ([]models.CategoryAggregate, error)
	WeakAreas(ctx context.Context, examCategory string, minAttempts, limit int) ([]models.CategoryAggregate, error)
}

// QuestionCatalog resolves a question's classification. A missing entry is
// reported as models.ErrUnknownQuestion.
type QuestionCatalog interface {
	Lookup(ctx context.Context, id string) (*models.Question, error)
}

// SessionStore archives terminal session summaries.
type SessionStore interface {
	Save(ctx context.Context, summary *models.SessionSummary) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.SessionSummary, error)
}

// Transactor makes a record write and its aggregate update one unit.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// StatsCache is the optional read cache in front of the statistics
// queries. Writes through the engine invalidate it.
type StatsCache interface {
	GetJSON(ctx context.Context, key string, v interface{}) bool
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, groups ...string)
}

// Cache key groups invalidated on every successful write.
var statsCacheGroups = []string{"stats", "weak", "progress"}

// ProgressService is the aggregation engine: it persists answer records
// and keeps the category aggregates consistent with them. The single and
// batch entry points produce identical final aggregate state for the same
// answers.
type ProgressService struct {
	Records    RecordStore
	Aggregates AggregateStore
	Catalog    QuestionCatalog
	Tx         Transactor
	Cache      StatsCache
}

func NewProgressService(records RecordStore, aggregates AggregateStore, catalog QuestionCatalog, tx Transactor, cache StatsCache) *ProgressService {
	return &ProgressService{
		Records:    records,
		Aggregates: aggregates,
		Catalog:    catalog,
		Tx:         tx,
		Cache:      cache,
	}
}

// RecordAnswer evaluates, persists and aggregates one answer. Correctness
// is fixed at write time; later catalog edits never change it. An unknown
// question still produces a record (the audit trail wins) but skips the
// aggregate update.
func (s *ProgressService) RecordAnswer(ctx context.Context, sub models.AnswerSubmission) (*models.AnswerResult, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	rec := &models.AnswerRecord{
		QuestionID:          sub.QuestionID,
		UserAnswer:          sub.UserAnswer,
		CorrectAnswer:       sub.CorrectAnswer,
		IsCorrect:           sub.UserAnswer == sub.CorrectAnswer,
		ResponseTimeSeconds: sub.ResponseTimeSeconds,
		StudyMode:           sub.StudyMode,
		Notes:               sub.Notes,
		AttemptTimestamp:    now,
	}

	question, delta := s.classify(ctx, rec, now)

	write := func(ctx context.Context) error {
		if err := s.Records.Append(ctx, rec); err != nil {
			return err
		}
		if delta != nil {
			return s.Aggregates.ApplyDelta(ctx, *delta)
		}
		return nil
	}

	var err error
	if s.Tx != nil {
		err = s.Tx.WithinTransaction(ctx, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)

	result := &models.AnswerResult{
		QuestionID:          rec.QuestionID,
		UserAnswer:          rec.UserAnswer,
		CorrectAnswer:       rec.CorrectAnswer,
		IsCorrect:           rec.IsCorrect,
		Category:            rec.Category,
		DifficultyLevel:     models.DefaultDifficulty,
		ResponseTimeSeconds: rec.ResponseTimeSeconds,
		AnsweredAt:          now,
	}
	if question != nil {
		result.DifficultyLevel = question.DifficultyLevel
	}
	return result, nil
}

// BulkRecordAnswers persists a batch as one unit and merges the grouped
// deltas into the aggregates. Validation failures reject the whole batch
// before any write; unknown questions are soft-skipped per element.
// Returns the stored record IDs in submission order.
func (s *ProgressService) BulkRecordAnswers(ctx context.Context, subs []models.AnswerSubmission) ([]string, error) {
	if len(subs) == 0 {
		return []string{}, nil
	}
	for i := range subs {
		if err := subs[i].Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	now := time.Now()
	recs := make([]*models.AnswerRecord, 0, len(subs))
	deltas := make(map[string]*models.AggregateDelta)
	var order []string

	for _, sub := range subs {
		rec := &models.AnswerRecord{
			QuestionID:          sub.QuestionID,
			UserAnswer:          sub.UserAnswer,
			CorrectAnswer:       sub.CorrectAnswer,
			IsCorrect:           sub.UserAnswer == sub.CorrectAnswer,
			ResponseTimeSeconds: sub.ResponseTimeSeconds,
			StudyMode:           sub.StudyMode,
			Notes:               sub.Notes,
			AttemptTimestamp:    now,
		}
		recs = append(recs, rec)

		_, delta := s.classify(ctx, rec, now)
		if delta == nil {
			continue
		}

		key := delta.ExamCategory + "\x00" + delta.Category
		merged, ok := deltas[key]
		if !ok {
			deltas[key] = delta
			order = append(order, key)
			continue
		}
		merged.Total += delta.Total
		merged.Correct += delta.Correct
		merged.Incorrect += delta.Incorrect
		merged.ResponseTimeTotal += delta.ResponseTimeTotal
		merged.ResponseTimeCount += delta.ResponseTimeCount
	}

	write := func(ctx context.Context) error {
		if err := s.Records.AppendBatch(ctx, recs); err != nil {
			return err
		}
		for _, key := range order {
			if err := s.Aggregates.ApplyDelta(ctx, *deltas[key]); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	if s.Tx != nil {
		err = s.Tx.WithinTransaction(ctx, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		return nil, err
	}

	s.invalidateCache(ctx)

	ids := make([]string, len(recs))
	for i, rec := range recs {
		ids[i] = rec.ID
	}
	return ids, nil
}

// classify resolves the record's category key from the catalog and builds
// the aggregate delta for it. Unknown questions get the degraded category
// and no delta.
func (s *ProgressService) classify(ctx context.Context, rec *models.AnswerRecord, now time.Time) (*models.Question, *models.AggregateDelta) {
	question, err := s.Catalog.Lookup(ctx, rec.QuestionID)
	if err != nil {
		if errors.Is(err, models.ErrUnknownQuestion) {
			log.Printf("question %s not in catalog, recording without aggregation", rec.QuestionID)
		} else {
			log.Printf("catalog lookup for %s failed (%v), recording without aggregation", rec.QuestionID, err)
		}
		rec.Category = models.CategoryUnknown
		return nil, nil
	}

	rec.ExamCategory = question.ExamCategory
	rec.Category = question.Category
	if rec.Category == "" {
		rec.Category = models.CategoryUncategorized
	}

	delta := &models.AggregateDelta{
		ExamCategory: rec.ExamCategory,
		Category:     rec.Category,
		Total:        1,
		StudyDate:    now,
	}
	if rec.IsCorrect {
		delta.Correct = 1
	} else {
		delta.Incorrect = 1
	}
	if rec.ResponseTimeSeconds != nil {
		delta.ResponseTimeTotal = int64(*rec.ResponseTimeSeconds)
		delta.ResponseTimeCount = 1
	}
	return question, delta
}

// RecentActivity returns the newest records, for the progress page.
func (s *ProgressService) RecentActivity(ctx context.Context, examCategory string, limit int64) ([]models.AnswerRecord, error) {
	return s.Records.Query(ctx, models.RecordFilter{ExamCategory: examCategory, Limit: limit})
}

// CleanupOldRecords drops records older than the retention window.
func (s *ProgressService) CleanupOldRecords(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("%w: retention days must be positive, got %d", models.ErrValidation, days)
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	deleted, err := s.Records.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		log.Printf("retention cleanup removed %d records older than %d days", deleted, days)
		s.invalidateCache(ctx)
	}
	return deleted, nil
}

func (s *ProgressService) invalidateCache(ctx context.Context) {
	if s.Cache != nil {
		s.Cache.Invalidate(ctx, statsCacheGroups...)
	}
}
