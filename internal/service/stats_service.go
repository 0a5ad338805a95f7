package service

import (
	"context"
	"fmt"
	"time"

	"progress-service/internal/models"
)

const (
	// Categories with fewer attempts than this are never reported weak;
	// tiny samples are noise, not signal.
	weakAreaMinAttempts = 3

	defaultWeakAreaLimit = 5
	defaultProgressDays  = 30
	recentActivityLimit  = 10
)

// Cache TTLs are a backstop only; writes invalidate these entries eagerly.
const (
	statsCacheTTL    = 5 * time.Minute
	weakCacheTTL     = 10 * time.Minute
	progressCacheTTL = 30 * time.Minute
)

// StatsService is the read side: category statistics, the weak-area
// ranking, the progress time series and the derived recommendations.
// It never writes aggregates.
type StatsService struct {
	Aggregates AggregateStore
	Records    RecordStore
	Cache      StatsCache
}

func NewStatsService(aggregates AggregateStore, records RecordStore, cache StatsCache) *StatsService {
	return &StatsService{Aggregates: aggregates, Records: records, Cache: cache}
}

// GetStatistics returns the per-category read models, optionally limited
// to one exam category.
func (s *StatsService) GetStatistics(ctx context.Context, examCategory string) ([]models.CategoryStatistics, error) {
	cacheKey := "stats:" + examCategory
	var cached []models.CategoryStatistics
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	aggs, err := s.Aggregates.List(ctx, examCategory)
	if err != nil {
		return nil, err
	}
	stats := make([]models.CategoryStatistics, 0, len(aggs))
	for i := range aggs {
		stats = append(stats, models.StatisticsView(&aggs[i]))
	}

	s.cacheSet(ctx, cacheKey, stats, statsCacheTTL)
	return stats, nil
}

// GetWeakAreas ranks categories below their peers: at least three
// attempts, worst accuracy first, ties broken toward the better-sampled
// category. Returns at most limit entries (default 5).
func (s *StatsService) GetWeakAreas(ctx context.Context, examCategory string, limit int) ([]models.WeakArea, error) {
	if limit <= 0 {
		limit = defaultWeakAreaLimit
	}

	cacheKey := fmt.Sprintf("weak:%s:%d", examCategory, limit)
	var cached []models.WeakArea
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	aggs, err := s.Aggregates.WeakAreas(ctx, examCategory, weakAreaMinAttempts, limit)
	if err != nil {
		return nil, err
	}
	weak := make([]models.WeakArea, 0, len(aggs))
	for i := range aggs {
		agg := &aggs[i]
		weak = append(weak, models.WeakArea{
			ExamCategory:   agg.ExamCategory,
			Category:       agg.Category,
			TotalQuestions: agg.TotalQuestions,
			CorrectAnswers: agg.CorrectAnswers,
			CorrectRate:    models.RoundRate(agg.CorrectRate() * 100),
		})
	}

	s.cacheSet(ctx, cacheKey, weak, weakCacheTTL)
	return weak, nil
}

// GetProgressOverTime returns the per-day series for the last N days
// (default 30).
func (s *StatsService) GetProgressOverTime(ctx context.Context, examCategory string, days int) ([]models.DailyProgress, error) {
	if days <= 0 {
		days = defaultProgressDays
	}

	cacheKey := fmt.Sprintf("progress:%s:%d", examCategory, days)
	var cached []models.DailyProgress
	if s.cacheGet(ctx, cacheKey, &cached) {
		return cached, nil
	}

	daily, err := s.Records.DailyProgress(ctx, examCategory, days)
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, daily, progressCacheTTL)
	return daily, nil
}

// GetRecommendations derives rule-based study suggestions from the weak
// areas and overall volume.
func (s *StatsService) GetRecommendations(ctx context.Context, examCategory string) ([]models.Recommendation, error) {
	weak, err := s.GetWeakAreas(ctx, examCategory, 3)
	if err != nil {
		return nil, err
	}
	stats, err := s.GetStatistics(ctx, examCategory)
	if err != nil {
		return nil, err
	}

	recommendations := []models.Recommendation{}

	for _, area := range weak {
		recommendations = append(recommendations, models.Recommendation{
			Type:        "weak_area",
			Priority:    "high",
			Title:       fmt.Sprintf("Focus on %s", area.Category),
			Description: fmt.Sprintf("Accuracy in %s is %.1f%%. Targeted practice is recommended.", area.Category, area.CorrectRate),
			Action:      "category:" + area.Category,
		})
	}

	totalQuestions := 0
	for _, st := range stats {
		totalQuestions += st.TotalQuestions
	}
	if totalQuestions < 100 {
		recommendations = append(recommendations, models.Recommendation{
			Type:        "volume",
			Priority:    "medium",
			Title:       "Increase study volume",
			Description: fmt.Sprintf("%d questions answered so far. Aim for 100.", totalQuestions),
			Action:      "increase_volume",
		})
	}

	if len(stats) > 0 {
		var rateSum float64
		counted := 0
		for _, st := range stats {
			if st.TotalQuestions > 0 {
				rateSum += float64(st.CorrectAnswers) / float64(st.TotalQuestions)
				counted++
			}
		}
		if counted > 0 && rateSum/float64(counted) >= 0.8 {
			recommendations = append(recommendations, models.Recommendation{
				Type:        "difficulty",
				Priority:    "low",
				Title:       "Try a mock exam",
				Description: "Accuracy is consistently high. A timed mock exam is a good next step.",
				Action:      "mock_exam",
			})
		}
	}

	return recommendations, nil
}

// GetOverallProgress assembles the progress-page payload in one call.
func (s *StatsService) GetOverallProgress(ctx context.Context, examCategory string, days int) (*models.OverallProgress, error) {
	stats, err := s.GetStatistics(ctx, examCategory)
	if err != nil {
		return nil, err
	}
	weak, err := s.GetWeakAreas(ctx, examCategory, defaultWeakAreaLimit)
	if err != nil {
		return nil, err
	}
	daily, err := s.GetProgressOverTime(ctx, examCategory, days)
	if err != nil {
		return nil, err
	}
	recent, err := s.Records.Query(ctx, models.RecordFilter{ExamCategory: examCategory, Limit: recentActivityLimit})
	if err != nil {
		return nil, err
	}
	recommendations, err := s.GetRecommendations(ctx, examCategory)
	if err != nil {
		return nil, err
	}

	overall := &models.OverallProgress{
		CategoryStatistics: stats,
		ProgressOverTime:   daily,
		WeakAreas:          weak,
		RecentActivity:     recent,
		Recommendations:    recommendations,
	}
	for _, st := range stats {
		overall.TotalQuestions += st.TotalQuestions
		overall.TotalCorrect += st.CorrectAnswers
	}
	overall.CategoriesStudied = len(stats)
	if overall.TotalQuestions > 0 {
		overall.OverallCorrectRate = models.RoundRate(float64(overall.TotalCorrect) * 100 / float64(overall.TotalQuestions))
	}
	return overall, nil
}

func (s *StatsService) cacheGet(ctx context.Context, key string, v interface{}) bool {
	return s.Cache != nil && s.Cache.GetJSON(ctx, key, v)
}

func (s *StatsService) cacheSet(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if s.Cache != nil {
		s.Cache.SetJSON(ctx, key, v, ttl)
	}
}
