package models

import (
	"math"
	"time"
)

// CategoryAggregate is the running per-(exam_category, category) summary.
// Response times are kept as a sum plus a sample count so the mean only
// weights records that actually carried a time. The average itself is
// derived on read, which keeps the single-record and batch update paths
// bit-identical on the stored counters.
type CategoryAggregate struct {
	ID                  string    `bson:"_id,omitempty" json:"-"`
	ExamCategory        string    `bson:"exam_category" json:"exam_category"`
	Category            string    `bson:"category" json:"category"`
	TotalQuestions      int       `bson:"total_questions" json:"total_questions"`
	CorrectAnswers      int       `bson:"correct_answers" json:"correct_answers"`
	IncorrectAnswers    int       `bson:"incorrect_answers" json:"incorrect_answers"`
	ResponseTimeTotal   int64     `bson:"response_time_total" json:"-"`
	ResponseTimeSamples int       `bson:"response_time_samples" json:"-"`
	LastStudyDate       time.Time `bson:"last_study_date" json:"last_study_date"`
	CreatedAt           time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time `bson:"updated_at" json:"updated_at"`
}

// CorrectRate returns correct/total in [0,1], 0 when nothing was answered.
func (a *CategoryAggregate) CorrectRate() float64 {
	if a.TotalQuestions == 0 {
		return 0
	}
	return float64(a.CorrectAnswers) / float64(a.TotalQuestions)
}

// AverageResponseTime is the mean over time-bearing records only.
func (a *CategoryAggregate) AverageResponseTime() float64 {
	if a.ResponseTimeSamples == 0 {
		return 0
	}
	return float64(a.ResponseTimeTotal) / float64(a.ResponseTimeSamples)
}

// AggregateDelta is one increment against a CategoryAggregate, either a
// single answer or a pre-merged batch group for the same key.
type AggregateDelta struct {
	ExamCategory      string
	Category          string
	Total             int
	Correct           int
	Incorrect         int
	ResponseTimeTotal int64
	ResponseTimeCount int
	StudyDate         time.Time
}

// CategoryStatistics is the read model handed to reporting consumers, with
// the derived rates filled in. correct_rate is a percentage rounded to one
// decimal, matching the progress reports.
type CategoryStatistics struct {
	ExamCategory        string    `json:"exam_category"`
	Category            string    `json:"category"`
	TotalQuestions      int       `json:"total_questions"`
	CorrectAnswers      int       `json:"correct_answers"`
	IncorrectAnswers    int       `json:"incorrect_answers"`
	CorrectRate         float64   `json:"correct_rate"`
	AverageResponseTime float64   `json:"average_response_time"`
	LastStudyDate       time.Time `json:"last_study_date"`
}

// StatisticsView builds the read model from an aggregate row.
func StatisticsView(a *CategoryAggregate) CategoryStatistics {
	return CategoryStatistics{
		ExamCategory:        a.ExamCategory,
		Category:            a.Category,
		TotalQuestions:      a.TotalQuestions,
		CorrectAnswers:      a.CorrectAnswers,
		IncorrectAnswers:    a.IncorrectAnswers,
		CorrectRate:         RoundRate(a.CorrectRate() * 100),
		AverageResponseTime: a.AverageResponseTime(),
		LastStudyDate:       a.LastStudyDate,
	}
}

// WeakArea is one entry of the ranked weak-area list.
type WeakArea struct {
	ExamCategory   string  `json:"exam_category"`
	Category       string  `json:"category"`
	TotalQuestions int     `json:"total_questions"`
	CorrectAnswers int     `json:"correct_answers"`
	CorrectRate    float64 `json:"correct_rate"`
}

// DailyProgress is one day of the progress-over-time series.
type DailyProgress struct {
	StudyDate      string  `bson:"_id" json:"study_date"`
	TotalQuestions int     `bson:"total_questions" json:"total_questions"`
	CorrectAnswers int     `bson:"correct_answers" json:"correct_answers"`
	CorrectRate    float64 `bson:"-" json:"correct_rate"`
}

// Recommendation is one rule-derived study suggestion.
type Recommendation struct {
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
}

// OverallProgress bundles the progress-page payload.
type OverallProgress struct {
	TotalQuestions     int                  `json:"total_questions"`
	TotalCorrect       int                  `json:"total_correct"`
	OverallCorrectRate float64              `json:"overall_correct_rate"`
	CategoriesStudied  int                  `json:"categories_studied"`
	CategoryStatistics []CategoryStatistics `json:"category_statistics"`
	ProgressOverTime   []DailyProgress      `json:"progress_over_time"`
	WeakAreas          []WeakArea           `json:"weak_areas"`
	RecentActivity     []AnswerRecord       `json:"recent_activity"`
	Recommendations    []Recommendation     `json:"recommendations"`
}

// RoundRate rounds a percentage to one decimal place.
func RoundRate(v float64) float64 {
	return math.Round(v*10) / 10
}
