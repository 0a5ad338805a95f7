package progress

import (
	"fmt"
	"time"

	"progress-service/internal/models"
)

// Tracker accumulates the answers of one active study session and produces
// the terminal SessionSummary. It is a plain value with no storage of its
// own; the owning service decides how trackers are keyed and kept.
type Tracker struct {
	userID          string
	sessionName     string
	examCategory    string
	studyMode       models.StudyMode
	targetQuestions int

	state     State
	startedAt time.Time
	results   []models.AnswerResult
}

// NewTracker opens a session in the Active state.
func NewTracker(userID string, req models.StartSessionRequest, now time.Time) *Tracker {
	mode := req.StudyMode
	if mode == "" {
		mode = models.ModePractice
	}
	return &Tracker{
		userID:          userID,
		sessionName:     req.SessionName,
		examCategory:    req.ExamCategory,
		studyMode:       mode,
		targetQuestions: req.TargetQuestions,
		state:           StateActive,
		startedAt:       now,
	}
}

// State returns the tracker lifecycle state.
func (t *Tracker) State() State {
	return t.state
}

// StartedAt returns the session start time.
func (t *Tracker) StartedAt() time.Time {
	return t.startedAt
}

// Answered returns how many answers have been recorded so far.
func (t *Tracker) Answered() int {
	return len(t.results)
}

// Record appends one answered question. Only valid while Active.
func (t *Tracker) Record(r models.AnswerResult) error {
	if t.state != StateActive {
		return fmt.Errorf("%w: session already ended", models.ErrNoActiveSession)
	}
	t.results = append(t.results, r)
	return nil
}

// End transitions Active -> Ended and returns the summary. Ending twice
// fails; a stale summary is never replayed.
func (t *Tracker) End(now time.Time) (*models.SessionSummary, error) {
	if t.state != StateActive {
		return nil, fmt.Errorf("%w: end called twice", models.ErrNoActiveSession)
	}
	t.state = StateEnded
	return t.summarize(now), nil
}

func (t *Tracker) summarize(now time.Time) *models.SessionSummary {
	summary := &models.SessionSummary{
		UserID:            t.userID,
		SessionName:       t.sessionName,
		ExamCategory:      t.examCategory,
		StudyMode:         t.studyMode,
		CategoriesStudied: []string{},
		WeakAreas:         []string{},
		Achievements:      []string{},
		StartedAt:         t.startedAt,
		EndedAt:           now,
	}
	summary.TotalElapsedSeconds = int(now.Sub(t.startedAt).Seconds())

	total := len(t.results)
	if total == 0 {
		return summary
	}

	correct := 0
	for _, r := range t.results {
		if r.IsCorrect {
			correct++
		}
	}

	summary.TotalQuestions = total
	summary.CorrectAnswers = correct
	summary.IncorrectAnswers = total - correct
	summary.CorrectRate = float64(correct) / float64(total)
	summary.AverageResponseTime, _ = averageResponseTime(t.results)
	summary.CategoriesStudied = categoriesStudied(t.results)
	summary.WeakAreas = sessionWeakAreas(t.results)
	summary.Achievements = identifyAchievements(t.results, summary.CorrectRate)

	return summary
}

// averageResponseTime means over time-bearing answers only. The count of
// time-bearing answers is returned so callers can tell "no samples" apart
// from a genuine zero mean.
func averageResponseTime(results []models.AnswerResult) (float64, int) {
	sum, count := 0, 0
	for _, r := range results {
		if r.ResponseTimeSeconds != nil {
			sum += *r.ResponseTimeSeconds
			count++
		}
	}
	if count == 0 {
		return 0, 0
	}
	return float64(sum) / float64(count), count
}

// categoriesStudied deduplicates touched categories in first-seen order.
func categoriesStudied(results []models.AnswerResult) []string {
	seen := make(map[string]bool)
	categories := []string{}
	for _, r := range results {
		if r.Category == "" || seen[r.Category] {
			continue
		}
		seen[r.Category] = true
		categories = append(categories, r.Category)
	}
	return categories
}

// sessionWeakAreas applies the global weak-area rule (>=3 attempts, rate
// below 0.6) to this session's own answers, in first-seen category order.
func sessionWeakAreas(results []models.AnswerResult) []string {
	type tally struct{ correct, total int }
	stats := make(map[string]*tally)
	order := []string{}

	for _, r := range results {
		if r.Category == "" {
			continue
		}
		s, ok := stats[r.Category]
		if !ok {
			s = &tally{}
			stats[r.Category] = s
			order = append(order, r.Category)
		}
		s.total++
		if r.IsCorrect {
			s.correct++
		}
	}

	weak := []string{}
	for _, category := range order {
		s := stats[category]
		if s.total < weakAreaMinAttempts {
			continue
		}
		if float64(s.correct)/float64(s.total) < weakAreaMaxRate {
			weak = append(weak, category)
		}
	}
	return weak
}

// identifyAchievements derives badges in a fixed priority order. The rate
// badges are mutually exclusive (highest threshold wins), as are the two
// streak badges.
func identifyAchievements(results []models.AnswerResult, correctRate float64) []string {
	achievements := []string{}
	if len(results) == 0 {
		return achievements
	}

	switch {
	case correctRate >= excellentRate:
		achievements = append(achievements, AchievementExcellent)
	case correctRate >= goodRate:
		achievements = append(achievements, AchievementGood)
	case correctRate >= standardRate:
		achievements = append(achievements, AchievementStandard)
	}

	streak := maxStreak(results)
	if streak >= longStreak {
		achievements = append(achievements, AchievementStreak10)
	} else if streak >= shortStreak {
		achievements = append(achievements, AchievementStreak5)
	}

	hardCorrect := 0
	for _, r := range results {
		if r.DifficultyLevel >= hardDifficulty && r.IsCorrect {
			hardCorrect++
		}
	}
	if hardCorrect >= hardCorrectMin {
		achievements = append(achievements, AchievementHardQuest)
	}

	if avg, samples := averageResponseTime(results); samples > 0 && avg <= speedMasterSeconds {
		achievements = append(achievements, AchievementSpeed)
	}

	return achievements
}

// maxStreak returns the longest run of consecutive correct answers.
func maxStreak(results []models.AnswerResult) int {
	max, current := 0, 0
	for _, r := range results {
		if r.IsCorrect {
			current++
			if current > max {
				max = current
			}
		} else {
			current = 0
		}
	}
	return max
}
