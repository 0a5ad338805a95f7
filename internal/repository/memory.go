package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"progress-service/internal/models"
)

// In-memory counterparts of the Mongo repositories. They back unit tests
// of the aggregation engine and ranker without a running database, and keep
// the same contracts: append-only records, lost-update-safe deltas,
// all-or-nothing batches.

// MemoryRecordStore is a mutex-guarded answer log.
type MemoryRecordStore struct {
	mu      sync.Mutex
	records []models.AnswerRecord
	nextID  int
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{nextID: 1}
}

func (s *MemoryRecordStore) Append(ctx context.Context, rec *models.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = strconv.Itoa(s.nextID)
		s.nextID++
	}
	s.records = append(s.records, *rec)
	return nil
}

func (s *MemoryRecordStore) AppendBatch(ctx context.Context, recs []*models.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		if rec.ID == "" {
			rec.ID = strconv.Itoa(s.nextID)
			s.nextID++
		}
		s.records = append(s.records, *rec)
	}
	return nil
}

func (s *MemoryRecordStore) Query(ctx context.Context, f models.RecordFilter) ([]models.AnswerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.AnswerRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if f.QuestionID != "" && rec.QuestionID != f.QuestionID {
			continue
		}
		if f.ExamCategory != "" && rec.ExamCategory != f.ExamCategory {
			continue
		}
		if !f.Since.IsZero() && rec.AttemptTimestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && rec.AttemptTimestamp.After(f.Until) {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && int64(len(out)) >= f.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryRecordStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, rec := range s.records {
		if rec.AttemptTimestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return deleted, nil
}

func (s *MemoryRecordStore) DailyProgress(ctx context.Context, examCategory string, days int) ([]models.DailyProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	since := time.Now().AddDate(0, 0, -days)
	byDay := make(map[string]*models.DailyProgress)
	for _, rec := range s.records {
		if rec.AttemptTimestamp.Before(since) {
			continue
		}
		if examCategory != "" && rec.ExamCategory != examCategory {
			continue
		}
		day := rec.AttemptTimestamp.Format("2006-01-02")
		d, ok := byDay[day]
		if !ok {
			d = &models.DailyProgress{StudyDate: day}
			byDay[day] = d
		}
		d.TotalQuestions++
		if rec.IsCorrect {
			d.CorrectAnswers++
		}
	}

	daily := make([]models.DailyProgress, 0, len(byDay))
	for _, d := range byDay {
		if d.TotalQuestions > 0 {
			d.CorrectRate = models.RoundRate(float64(d.CorrectAnswers) * 100 / float64(d.TotalQuestions))
		}
		daily = append(daily, *d)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].StudyDate < daily[j].StudyDate })
	return daily, nil
}

// MemoryAggregateStore holds aggregate rows in a map. ApplyDelta holds the
// mutex across the whole read-modify-write, so concurrent writers on one
// key serialize instead of losing increments.
type MemoryAggregateStore struct {
	mu         sync.Mutex
	aggregates map[string]*models.CategoryAggregate
}

func NewMemoryAggregateStore() *MemoryAggregateStore {
	return &MemoryAggregateStore{aggregates: make(map[string]*models.CategoryAggregate)}
}

func aggregateKey(examCategory, category string) string {
	return examCategory + "\x00" + category
}

func (s *MemoryAggregateStore) Get(ctx context.Context, examCategory, category string) (*models.CategoryAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.aggregates[aggregateKey(examCategory, category)]
	if !ok {
		return nil, nil
	}
	copied := *agg
	return &copied, nil
}

func (s *MemoryAggregateStore) ApplyDelta(ctx context.Context, d models.AggregateDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := aggregateKey(d.ExamCategory, d.Category)
	agg, ok := s.aggregates[key]
	if !ok {
		agg = &models.CategoryAggregate{
			ExamCategory: d.ExamCategory,
			Category:     d.Category,
			CreatedAt:    d.StudyDate,
		}
		s.aggregates[key] = agg
	}
	agg.TotalQuestions += d.Total
	agg.CorrectAnswers += d.Correct
	agg.IncorrectAnswers += d.Incorrect
	agg.ResponseTimeTotal += d.ResponseTimeTotal
	agg.ResponseTimeSamples += d.ResponseTimeCount
	agg.LastStudyDate = d.StudyDate
	agg.UpdatedAt = d.StudyDate
	return nil
}

func (s *MemoryAggregateStore) List(ctx context.Context, examCategory string) ([]models.CategoryAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var aggs []models.CategoryAggregate
	for _, agg := range s.aggregates {
		if examCategory != "" && agg.ExamCategory != examCategory {
			continue
		}
		aggs = append(aggs, *agg)
	}
	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].ExamCategory != aggs[j].ExamCategory {
			return aggs[i].ExamCategory < aggs[j].ExamCategory
		}
		return aggs[i].Category < aggs[j].Category
	})
	return aggs, nil
}

func (s *MemoryAggregateStore) WeakAreas(ctx context.Context, examCategory string, minAttempts, limit int) ([]models.CategoryAggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var aggs []models.CategoryAggregate
	for _, agg := range s.aggregates {
		if examCategory != "" && agg.ExamCategory != examCategory {
			continue
		}
		if agg.TotalQuestions < minAttempts {
			continue
		}
		aggs = append(aggs, *agg)
	}
	sort.Slice(aggs, func(i, j int) bool {
		ri, rj := aggs[i].CorrectRate(), aggs[j].CorrectRate()
		if ri != rj {
			return ri < rj
		}
		return aggs[i].TotalQuestions > aggs[j].TotalQuestions
	})
	if limit > 0 && len(aggs) > limit {
		aggs = aggs[:limit]
	}
	return aggs, nil
}

// MemoryCatalog is a map-backed question catalog.
type MemoryCatalog struct {
	mu        sync.Mutex
	questions map[string]models.Question
}

func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{questions: make(map[string]models.Question)}
}

func (c *MemoryCatalog) Put(q models.Question) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.questions[q.ID] = q
}

func (c *MemoryCatalog) Lookup(ctx context.Context, id string) (*models.Question, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.questions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownQuestion, id)
	}
	return &q, nil
}

// MemorySessionStore archives session summaries in memory.
type MemorySessionStore struct {
	mu        sync.Mutex
	summaries []models.SessionSummary
	nextID    int
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{nextID: 1}
}

func (s *MemorySessionStore) Save(ctx context.Context, summary *models.SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if summary.ID == "" {
		summary.ID = strconv.Itoa(s.nextID)
		s.nextID++
	}
	s.summaries = append(s.summaries, *summary)
	return nil
}

func (s *MemorySessionStore) ListByUser(ctx context.Context, userID string, limit int64) ([]models.SessionSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.SessionSummary
	for i := len(s.summaries) - 1; i >= 0; i-- {
		if s.summaries[i].UserID != userID {
			continue
		}
		out = append(out, s.summaries[i])
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

// MemoryTransactor snapshots both stores before running the callback and
// restores them when it fails, giving the batch path the same
// all-or-nothing behavior the Mongo transaction provides.
type MemoryTransactor struct {
	Records    *MemoryRecordStore
	Aggregates *MemoryAggregateStore
}

func NewMemoryTransactor(records *MemoryRecordStore, aggregates *MemoryAggregateStore) *MemoryTransactor {
	return &MemoryTransactor{Records: records, Aggregates: aggregates}
}

func (t *MemoryTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.Records.mu.Lock()
	recordsSnap := make([]models.AnswerRecord, len(t.Records.records))
	copy(recordsSnap, t.Records.records)
	idSnap := t.Records.nextID
	t.Records.mu.Unlock()

	t.Aggregates.mu.Lock()
	aggSnap := make(map[string]*models.CategoryAggregate, len(t.Aggregates.aggregates))
	for k, v := range t.Aggregates.aggregates {
		copied := *v
		aggSnap[k] = &copied
	}
	t.Aggregates.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.Records.mu.Lock()
		t.Records.records = recordsSnap
		t.Records.nextID = idSnap
		t.Records.mu.Unlock()

		t.Aggregates.mu.Lock()
		t.Aggregates.aggregates = aggSnap
		t.Aggregates.mu.Unlock()
		return err
	}
	return nil
}
