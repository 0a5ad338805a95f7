package service

import (
	"context"
	"testing"
	"time"

	"progress-service/internal/models"
	"progress-service/internal/repository"
)

func seedAggregate(t *testing.T, store *repository.MemoryAggregateStore, category string, total, correct int) {
	t.Helper()
	for i := 0; i < total; i++ {
		d := models.AggregateDelta{
			ExamCategory: "network-specialist",
			Category:     category,
			Total:        1,
			StudyDate:    time.Now(),
		}
		if i < correct {
			d.Correct = 1
		} else {
			d.Incorrect = 1
		}
		if err := store.ApplyDelta(context.Background(), d); err != nil {
			t.Fatalf("seed %s failed: %v", category, err)
		}
	}
}

func TestGetWeakAreas(t *testing.T) {
	aggregates := repository.NewMemoryAggregateStore()
	records := repository.NewMemoryRecordStore()
	svc := NewStatsService(aggregates, records, nil)
	ctx := context.Background()

	seedAggregate(t, aggregates, "scripting", 2, 0)  // under the attempt gate
	seedAggregate(t, aggregates, "routing", 3, 1)    // 33.3%
	seedAggregate(t, aggregates, "security", 10, 4)  // 40.0%
	seedAggregate(t, aggregates, "databases", 10, 5) // 50.0%, better sampled
	seedAggregate(t, aggregates, "storage", 4, 2)    // 50.0%
	seedAggregate(t, aggregates, "hardware", 5, 5)   // strong, still listed last if limit allows

	weak, err := svc.GetWeakAreas(ctx, "network-specialist", 0)
	if err != nil {
		t.Fatalf("GetWeakAreas failed: %v", err)
	}

	wantOrder := []string{"routing", "security", "databases", "storage", "hardware"}
	if len(weak) != len(wantOrder) {
		t.Fatalf("weak area count = %d, want %d (%+v)", len(weak), len(wantOrder), weak)
	}
	for i, category := range wantOrder {
		if weak[i].Category != category {
			t.Errorf("weak[%d] = %q, want %q", i, weak[i].Category, category)
		}
	}
	for _, area := range weak {
		if area.Category == "scripting" {
			t.Error("category with two attempts must not be ranked")
		}
	}
	if weak[0].CorrectRate != 33.3 {
		t.Errorf("weak[0].CorrectRate = %v, want 33.3", weak[0].CorrectRate)
	}
}

func TestGetWeakAreasLimit(t *testing.T) {
	aggregates := repository.NewMemoryAggregateStore()
	svc := NewStatsService(aggregates, repository.NewMemoryRecordStore(), nil)

	seedAggregate(t, aggregates, "a", 4, 0)
	seedAggregate(t, aggregates, "b", 4, 1)
	seedAggregate(t, aggregates, "c", 4, 2)

	weak, err := svc.GetWeakAreas(context.Background(), "", 2)
	if err != nil {
		t.Fatalf("GetWeakAreas failed: %v", err)
	}
	if len(weak) != 2 {
		t.Fatalf("limit ignored: got %d entries", len(weak))
	}
	if weak[0].Category != "a" || weak[1].Category != "b" {
		t.Errorf("order = [%s %s], want [a b]", weak[0].Category, weak[1].Category)
	}
}

func TestGetStatisticsRoundsRates(t *testing.T) {
	aggregates := repository.NewMemoryAggregateStore()
	svc := NewStatsService(aggregates, repository.NewMemoryRecordStore(), nil)

	seedAggregate(t, aggregates, "routing", 3, 1)

	stats, err := svc.GetStatistics(context.Background(), "network-specialist")
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("stats count = %d, want 1", len(stats))
	}
	if stats[0].CorrectRate != 33.3 {
		t.Errorf("CorrectRate = %v, want 33.3", stats[0].CorrectRate)
	}
}

func TestGetRecommendations(t *testing.T) {
	t.Run("low volume and weak areas", func(t *testing.T) {
		aggregates := repository.NewMemoryAggregateStore()
		svc := NewStatsService(aggregates, repository.NewMemoryRecordStore(), nil)
		seedAggregate(t, aggregates, "routing", 5, 1)

		recommendations, err := svc.GetRecommendations(context.Background(), "")
		if err != nil {
			t.Fatalf("GetRecommendations failed: %v", err)
		}
		if !hasRecommendation(recommendations, "weak_area") {
			t.Errorf("missing weak_area recommendation: %+v", recommendations)
		}
		if !hasRecommendation(recommendations, "volume") {
			t.Errorf("missing volume recommendation: %+v", recommendations)
		}
		if hasRecommendation(recommendations, "difficulty") {
			t.Errorf("difficulty recommendation at 20%% accuracy: %+v", recommendations)
		}
	})

	t.Run("high accuracy suggests a mock exam", func(t *testing.T) {
		aggregates := repository.NewMemoryAggregateStore()
		svc := NewStatsService(aggregates, repository.NewMemoryRecordStore(), nil)
		seedAggregate(t, aggregates, "routing", 60, 55)
		seedAggregate(t, aggregates, "security", 60, 52)

		recommendations, err := svc.GetRecommendations(context.Background(), "")
		if err != nil {
			t.Fatalf("GetRecommendations failed: %v", err)
		}
		if !hasRecommendation(recommendations, "difficulty") {
			t.Errorf("missing difficulty recommendation: %+v", recommendations)
		}
		if hasRecommendation(recommendations, "volume") {
			t.Errorf("volume recommendation at 120 questions: %+v", recommendations)
		}
	})
}

func TestGetOverallProgress(t *testing.T) {
	aggregates := repository.NewMemoryAggregateStore()
	records := repository.NewMemoryRecordStore()
	svc := NewStatsService(aggregates, records, nil)
	ctx := context.Background()

	seedAggregate(t, aggregates, "routing", 4, 3)
	seedAggregate(t, aggregates, "security", 4, 1)
	if err := records.Append(ctx, &models.AnswerRecord{
		QuestionID: "q1", UserAnswer: 1, CorrectAnswer: 1, IsCorrect: true,
		ExamCategory: "network-specialist", Category: "routing", AttemptTimestamp: time.Now(),
	}); err != nil {
		t.Fatalf("seed record failed: %v", err)
	}

	overall, err := svc.GetOverallProgress(ctx, "network-specialist", 30)
	if err != nil {
		t.Fatalf("GetOverallProgress failed: %v", err)
	}
	if overall.TotalQuestions != 8 || overall.TotalCorrect != 4 {
		t.Errorf("totals = %d/%d, want 8/4", overall.TotalQuestions, overall.TotalCorrect)
	}
	if overall.OverallCorrectRate != 50.0 {
		t.Errorf("OverallCorrectRate = %v, want 50.0", overall.OverallCorrectRate)
	}
	if overall.CategoriesStudied != 2 {
		t.Errorf("CategoriesStudied = %d, want 2", overall.CategoriesStudied)
	}
	if len(overall.RecentActivity) != 1 {
		t.Errorf("RecentActivity = %d entries, want 1", len(overall.RecentActivity))
	}
	if len(overall.ProgressOverTime) != 1 {
		t.Errorf("ProgressOverTime = %d days, want 1", len(overall.ProgressOverTime))
	}
}

func TestStatsServedFromCache(t *testing.T) {
	aggregates := repository.NewMemoryAggregateStore()
	cache := &fakeCache{}
	svc := NewStatsService(aggregates, repository.NewMemoryRecordStore(), cache)
	ctx := context.Background()

	seedAggregate(t, aggregates, "routing", 3, 2)

	if _, err := svc.GetStatistics(ctx, "network-specialist"); err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if !cache.entries["stats:network-specialist"] {
		t.Errorf("statistics result was not cached: %v", cache.entries)
	}
}

func hasRecommendation(list []models.Recommendation, typ string) bool {
	for _, r := range list {
		if r.Type == typ {
			return true
		}
	}
	return false
}
