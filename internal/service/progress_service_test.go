package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"progress-service/internal/models"
	"progress-service/internal/repository"
)

func intPtr(v int) *int { return &v }

type engineFixture struct {
	records    *repository.MemoryRecordStore
	aggregates *repository.MemoryAggregateStore
	catalog    *repository.MemoryCatalog
	cache      *fakeCache
	service    *ProgressService
}

func newEngine(t *testing.T) *engineFixture {
	t.Helper()
	records := repository.NewMemoryRecordStore()
	aggregates := repository.NewMemoryAggregateStore()
	catalog := repository.NewMemoryCatalog()
	cache := &fakeCache{}
	tx := repository.NewMemoryTransactor(records, aggregates)

	catalog.Put(models.Question{ID: "q-net-1", ExamCategory: "network-specialist", Category: "routing", CorrectAnswer: 1, DifficultyLevel: 3})
	catalog.Put(models.Question{ID: "q-net-2", ExamCategory: "network-specialist", Category: "routing", CorrectAnswer: 2, DifficultyLevel: 2})
	catalog.Put(models.Question{ID: "q-sec-1", ExamCategory: "network-specialist", Category: "security", CorrectAnswer: 1, DifficultyLevel: 4})
	catalog.Put(models.Question{ID: "q-bare", ExamCategory: "network-specialist", Category: "", CorrectAnswer: 1, DifficultyLevel: 1})

	return &engineFixture{
		records:    records,
		aggregates: aggregates,
		catalog:    catalog,
		cache:      cache,
		service:    NewProgressService(records, aggregates, catalog, tx, cache),
	}
}

// fakeCache records invalidations so tests can assert write-through behavior.
type fakeCache struct {
	mu          sync.Mutex
	invalidated int
	groupsSeen  map[string]bool
	entries     map[string]bool
}

func (c *fakeCache) GetJSON(ctx context.Context, key string, v interface{}) bool { return false }

func (c *fakeCache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string]bool)
	}
	c.entries[key] = true
}

func (c *fakeCache) Invalidate(ctx context.Context, groups ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated++
	if c.groupsSeen == nil {
		c.groupsSeen = make(map[string]bool)
	}
	for _, g := range groups {
		c.groupsSeen[g] = true
	}
}

func TestRecordAnswerUpdatesAggregate(t *testing.T) {
	fx := newEngine(t)
	ctx := context.Background()

	result, err := fx.service.RecordAnswer(ctx, models.AnswerSubmission{
		QuestionID:          "q-net-1",
		UserAnswer:          1,
		CorrectAnswer:       1,
		ResponseTimeSeconds: intPtr(25),
	})
	if err != nil {
		t.Fatalf("RecordAnswer failed: %v", err)
	}
	if !result.IsCorrect {
		t.Error("matching answers must be correct")
	}
	if result.Category != "routing" || result.DifficultyLevel != 3 {
		t.Errorf("result classification = %q/%d, want routing/3", result.Category, result.DifficultyLevel)
	}

	agg, err := fx.aggregates.Get(ctx, "network-specialist", "routing")
	if err != nil || agg == nil {
		t.Fatalf("aggregate missing after write: %v", err)
	}
	if agg.TotalQuestions != 1 || agg.CorrectAnswers != 1 || agg.IncorrectAnswers != 0 {
		t.Errorf("aggregate = %d/%d/%d, want 1/1/0", agg.TotalQuestions, agg.CorrectAnswers, agg.IncorrectAnswers)
	}
	if agg.ResponseTimeTotal != 25 || agg.ResponseTimeSamples != 1 {
		t.Errorf("response time counters = %d/%d, want 25/1", agg.ResponseTimeTotal, agg.ResponseTimeSamples)
	}

	if fx.cache.invalidated == 0 {
		t.Error("a successful write must invalidate the stats cache")
	}
	for _, group := range statsCacheGroups {
		if !fx.cache.groupsSeen[group] {
			t.Errorf("cache group %q was not invalidated", group)
		}
	}
}

func TestRecordAnswerValidation(t *testing.T) {
	fx := newEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		sub  models.AnswerSubmission
	}{
		{"missing question id", models.AnswerSubmission{UserAnswer: 1, CorrectAnswer: 1}},
		{"zero user answer", models.AnswerSubmission{QuestionID: "q-net-1", UserAnswer: 0, CorrectAnswer: 1}},
		{"negative correct answer", models.AnswerSubmission{QuestionID: "q-net-1", UserAnswer: 1, CorrectAnswer: -2}},
		{"negative response time", models.AnswerSubmission{QuestionID: "q-net-1", UserAnswer: 1, CorrectAnswer: 1, ResponseTimeSeconds: intPtr(-5)}},
		{"unknown study mode", models.AnswerSubmission{QuestionID: "q-net-1", UserAnswer: 1, CorrectAnswer: 1, StudyMode: "cramming"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fx.service.RecordAnswer(ctx, tt.sub); !errors.Is(err, models.ErrValidation) {
				t.Errorf("RecordAnswer = %v, want ErrValidation", err)
			}
		})
	}

	recs, _ := fx.records.Query(ctx, models.RecordFilter{})
	if len(recs) != 0 {
		t.Errorf("%d records written by rejected submissions", len(recs))
	}
}

func TestUnknownQuestionRecordsWithoutAggregation(t *testing.T) {
	fx := newEngine(t)
	ctx := context.Background()

	result, err := fx.service.RecordAnswer(ctx, models.AnswerSubmission{
		QuestionID:    "q-missing",
		UserAnswer:    2,
		CorrectAnswer: 2,
	})
	if err != nil {
		t.Fatalf("unknown question must not fail the write: %v", err)
	}
	if result.Category != models.CategoryUnknown {
		t.Errorf("result category = %q, want %q", result.Category, models.CategoryUnknown)
	}

	recs, _ := fx.records.Query(ctx, models.RecordFilter{QuestionID: "q-missing"})
	if len(recs) != 1 {
		t.Fatalf("record count = %d, want 1", len(recs))
	}
	if recs[0].Category != models.CategoryUnknown {
		t.Errorf("stored category = %q, want %q", recs[0].Category, models.CategoryUnknown)
	}

	aggs, _ := fx.aggregates.List(ctx, "")
	if len(aggs) != 0 {
		t.Errorf("unknown question produced aggregates: %+v", aggs)
	}
}

func TestEmptyCategoryAggregatesAsUncategorized(t *testing.T) {
	fx := newEngine(t)
	ctx := context.Background()

	if _, err := fx.service.RecordAnswer(ctx, models.AnswerSubmission{
		QuestionID: "q-bare", UserAnswer: 1, CorrectAnswer: 1,
	}); err != nil {
		t.Fatalf("RecordAnswer failed: %v", err)
	}

	agg, err := fx.aggregates.Get(ctx, "network-specialist", models.CategoryUncategorized)
	if err != nil || agg == nil {
		t.Fatalf("uncategorized aggregate missing: %v", err)
	}
	if agg.TotalQuestions != 1 {
		t.Errorf("uncategorized total = %d, want 1", agg.TotalQuestions)
	}
}

func TestCorrectnessFixedAtWriteTime(t *testing.T) {
	fx := newEngine(t)
	ctx := context.Background()

	if _, err := fx.service.RecordAnswer(ctx, models.AnswerSubmission{
		QuestionID: "q-net-1", UserAnswer: 1, CorrectAnswer: 1,
	}); err != nil {
		t.Fatalf("RecordAnswer failed: %v", err)
	}

	// A later catalog edit must not rewrite history.
	fx.catalog.Put(models.Question{ID: "q-net-1", ExamCategory: "network-specialist", Category: "routing", CorrectAnswer: 4, DifficultyLevel: 3})

	recs, _ := fx.records.Query(ctx, models.RecordFilter{QuestionID: "q-net-1"})
	if len(recs) != 1 {
		t.Fatalf("record count = %d, want 1", len(recs))
	}
	if !recs[0].IsCorrect {
		t.Error("stored correctness changed after catalog edit")
	}
}

func TestBatchMatchesSingleRecording(t *testing.T) {
	subs := []models.AnswerSubmission{
		{QuestionID: "q-net-1", UserAnswer: 1, CorrectAnswer: 1, ResponseTimeSeconds: intPtr(10)},
		{QuestionID: "q-net-2", UserAnswer: 1, CorrectAnswer: 2, ResponseTimeSeconds: intPtr(40)},
		{QuestionID: "q-net-2", UserAnswer: 2, CorrectAnswer: 2},
		{QuestionID: "q-sec-1", UserAnswer: 1, CorrectAnswer: 1, ResponseTimeSeconds: intPtr(55)},
		{QuestionID: "q-sec-1", UserAnswer: 3, CorrectAnswer: 1, ResponseTimeSeconds: intPtr(5)},
	}
	ctx := context.Background()

	single := newEngine(t)
	for _, sub := range subs {
		if _, err := single.service.RecordAnswer(ctx, sub); err != nil {
			t.Fatalf("single path failed: %v", err)
		}
	}

	batch := newEngine(t)
	ids, err := batch.service.BulkRecordAnswers(ctx, subs)
	if err != nil {
		t.Fatalf("batch path failed: %v", err)
	}
	if len(ids) != len(subs) {
		t.Fatalf("batch returned %d ids, want %d", len(ids), len(subs))
	}

	singleAggs, _ := single.aggregates.List(ctx, "")
	batchAggs, _ := batch.aggregates.List(ctx, "")
	if len(singleAggs) != len(batchAggs) {
		t.Fatalf("aggregate row counts differ: single %d, batch %d", len(singleAggs), len(batchAggs))
	}
	for i := range singleAggs {
		s, b := singleAggs[i], batchAggs[i]
		if s.ExamCategory != b.ExamCategory || s.Category != b.Category {
			t.Fatalf("aggregate keys diverge at %d: %s/%s vs %s/%s", i, s.ExamCategory, s.Category, b.ExamCategory, b.Category)
		}
		if s.TotalQuestions != b.TotalQuestions || s.CorrectAnswers != b.CorrectAnswers ||
			s.IncorrectAnswers != b.IncorrectAnswers ||
			s.ResponseTimeTotal != b.ResponseTimeTotal || s.ResponseTimeSamples != b.ResponseTimeSamples {
			t.Errorf("aggregate %s/%s diverges:\nsingle %+v\nbatch  %+v", s.ExamCategory, s.Category, s, b)
		}
	}
}

func TestAverageWeightsTimedAnswersOnly(t *testing.T) {
	fx := newEngine(t)
	ctx := context.Background()

	times := []*int{intPtr(10), intPtr(20), nil, intPtr(30)}
	for _, rt := range times {
		if _, err := fx.service.RecordAnswer(ctx, models.AnswerSubmission{
			QuestionID: "q-net-1", UserAnswer: 1, CorrectAnswer: 1, ResponseTimeSeconds: rt,
		}); err != nil {
			t.Fatalf("RecordAnswer failed: %v", err)
		}
	}

	agg, _ := fx.aggregates.Get(ctx, "network-specialist", "routing")
	if agg == nil {
		t.Fatal("aggregate missing")
	}
	if agg.ResponseTimeSamples != 3 {
		t.Errorf("ResponseTimeSamples = %d, want 3", agg.ResponseTimeSamples)
	}
	if got := agg.AverageResponseTime(); got != 20 {
		t.Errorf("AverageResponseTime = %v, want 20", got)
	}
}

func TestBulkRejectsWholeBatchOnInvalidElement(t *testing.T) {
	fx := newEngine(t)
	ctx := context.Background()

	_, err := fx.service.BulkRecordAnswers(ctx, []models.AnswerSubmission{
		{QuestionID: "q-net-1", UserAnswer: 1, CorrectAnswer: 1},
		{QuestionID: "q-net-2", UserAnswer: 0, CorrectAnswer: 2},
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("BulkRecordAnswers = %v, want ErrValidation", err)
	}

	recs, _ := fx.records.Query(ctx, models.RecordFilter{})
	if len(recs) != 0 {
		t.Errorf("%d records written by a rejected batch", len(recs))
	}
	aggs, _ := fx.aggregates.List(ctx, "")
	if len(aggs) != 0 {
		t.Errorf("%d aggregates written by a rejected batch", len(aggs))
	}
}

// failingAggregates fails ApplyDelta for one category to force a mid-batch
// storage error.
type failingAggregates struct {
	*repository.MemoryAggregateStore
	failCategory string
}

func (f *failingAggregates) ApplyDelta(ctx context.Context, d models.AggregateDelta) error {
	if d.Category == f.failCategory {
		return fmt.Errorf("%w: simulated aggregate failure", models.ErrStorage)
	}
	return f.MemoryAggregateStore.ApplyDelta(ctx, d)
}

func TestBatchRollsBackOnStorageFailure(t *testing.T) {
	records := repository.NewMemoryRecordStore()
	aggregates := repository.NewMemoryAggregateStore()
	catalog := repository.NewMemoryCatalog()
	catalog.Put(models.Question{ID: "q-net-1", ExamCategory: "network-specialist", Category: "routing", CorrectAnswer: 1})
	catalog.Put(models.Question{ID: "q-sec-1", ExamCategory: "network-specialist", Category: "security", CorrectAnswer: 1})

	tx := repository.NewMemoryTransactor(records, aggregates)
	svc := NewProgressService(records, &failingAggregates{aggregates, "security"}, catalog, tx, nil)
	ctx := context.Background()

	_, err := svc.BulkRecordAnswers(ctx, []models.AnswerSubmission{
		{QuestionID: "q-net-1", UserAnswer: 1, CorrectAnswer: 1},
		{QuestionID: "q-sec-1", UserAnswer: 1, CorrectAnswer: 1},
	})
	if !errors.Is(err, models.ErrStorage) {
		t.Fatalf("BulkRecordAnswers = %v, want ErrStorage", err)
	}

	recs, _ := records.Query(ctx, models.RecordFilter{})
	if len(recs) != 0 {
		t.Errorf("failed batch left %d records behind", len(recs))
	}
	agg, _ := aggregates.Get(ctx, "network-specialist", "routing")
	if agg != nil {
		t.Errorf("failed batch left a partial aggregate behind: %+v", agg)
	}
}

func TestConcurrentWritersLoseNoIncrements(t *testing.T) {
	fx := newEngine(t)
	ctx := context.Background()

	const perWriter = 50
	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := fx.service.RecordAnswer(ctx, models.AnswerSubmission{
					QuestionID: "q-net-1", UserAnswer: 1, CorrectAnswer: 1,
				}); err != nil {
					t.Errorf("concurrent RecordAnswer failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	agg, _ := fx.aggregates.Get(ctx, "network-specialist", "routing")
	if agg == nil || agg.TotalQuestions != 2*perWriter {
		var total int
		if agg != nil {
			total = agg.TotalQuestions
		}
		t.Errorf("TotalQuestions = %d, want %d", total, 2*perWriter)
	}
}

func TestCleanupOldRecords(t *testing.T) {
	fx := newEngine(t)
	ctx := context.Background()

	if _, err := fx.service.CleanupOldRecords(ctx, 0); !errors.Is(err, models.ErrValidation) {
		t.Errorf("CleanupOldRecords(0) = %v, want ErrValidation", err)
	}

	old := &models.AnswerRecord{QuestionID: "q-net-1", UserAnswer: 1, CorrectAnswer: 1, AttemptTimestamp: time.Now().AddDate(0, 0, -120)}
	fresh := &models.AnswerRecord{QuestionID: "q-net-1", UserAnswer: 1, CorrectAnswer: 1, AttemptTimestamp: time.Now()}
	if err := fx.records.AppendBatch(ctx, []*models.AnswerRecord{old, fresh}); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	deleted, err := fx.service.CleanupOldRecords(ctx, 90)
	if err != nil {
		t.Fatalf("CleanupOldRecords failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
	recs, _ := fx.records.Query(ctx, models.RecordFilter{})
	if len(recs) != 1 {
		t.Errorf("remaining records = %d, want 1", len(recs))
	}
}

func TestEmptyBatchIsANoOp(t *testing.T) {
	fx := newEngine(t)
	ids, err := fx.service.BulkRecordAnswers(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty batch failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("empty batch returned ids: %v", ids)
	}
}
