package progress

// State is the lifecycle of a study session tracker.
type State string

const (
	StateActive State = "active"
	StateEnded  State = "ended"
)

// Achievement badge identifiers. The route layer maps these to display text.
const (
	AchievementExcellent = "excellent"
	AchievementGood      = "good"
	AchievementStandard  = "standard"
	AchievementStreak10  = "streak-10"
	AchievementStreak5   = "streak-5"
	AchievementHardQuest = "hard-question-challenge"
	AchievementSpeed     = "speed-master"
)

// Thresholds for summary derivation.
const (
	// Rate badges, highest threshold wins, at most one awarded.
	excellentRate = 0.9
	goodRate      = 0.8
	standardRate  = 0.7

	// Streak badges, only the higher one awarded.
	longStreak  = 10
	shortStreak = 5

	// Hard-question badge: at least this many correct answers at
	// difficulty >= hardDifficulty.
	hardDifficulty = 3
	hardCorrectMin = 3

	// Speed badge: mean response time at or under this many seconds,
	// over time-bearing answers only.
	speedMasterSeconds = 30.0

	// Session weak areas: same gate as the global ranker.
	weakAreaMinAttempts = 3
	weakAreaMaxRate     = 0.6
)
