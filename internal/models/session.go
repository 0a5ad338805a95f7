package models

import "time"

// AnswerResult is one answered question as seen by the session summarizer.
type AnswerResult struct {
	QuestionID          string    `json:"question_id"`
	UserAnswer          int       `json:"user_answer"`
	CorrectAnswer       int       `json:"correct_answer"`
	IsCorrect           bool      `json:"is_correct"`
	Category            string    `json:"category"`
	DifficultyLevel     int       `json:"difficulty_level"`
	ResponseTimeSeconds *int      `json:"response_time_seconds,omitempty"`
	AnsweredAt          time.Time `json:"answered_at"`
}

// SessionSummary is the immutable terminal output of a study session.
type SessionSummary struct {
	ID                  string    `bson:"_id,omitempty" json:"id,omitempty"`
	UserID              string    `bson:"user_id" json:"user_id"`
	SessionName         string    `bson:"session_name" json:"session_name"`
	ExamCategory        string    `bson:"exam_category" json:"exam_category"`
	StudyMode           StudyMode `bson:"study_mode" json:"study_mode"`
	TotalQuestions      int       `bson:"total_questions" json:"total_questions"`
	CorrectAnswers      int       `bson:"correct_answers" json:"correct_answers"`
	IncorrectAnswers    int       `bson:"incorrect_answers" json:"incorrect_answers"`
	CorrectRate         float64   `bson:"correct_rate" json:"correct_rate"`
	AverageResponseTime float64   `bson:"average_response_time" json:"average_response_time"`
	TotalElapsedSeconds int       `bson:"total_elapsed_seconds" json:"total_elapsed_seconds"`
	CategoriesStudied   []string  `bson:"categories_studied" json:"categories_studied"`
	WeakAreas           []string  `bson:"weak_areas" json:"weak_areas"`
	Achievements        []string  `bson:"achievements" json:"achievements"`
	StartedAt           time.Time `bson:"started_at" json:"started_at"`
	EndedAt             time.Time `bson:"ended_at" json:"ended_at"`
}

// StartSessionRequest opens a new study session for a user.
type StartSessionRequest struct {
	SessionName     string    `json:"session_name"`
	ExamCategory    string    `json:"exam_category"`
	StudyMode       StudyMode `json:"study_mode"`
	TargetQuestions int       `json:"target_questions"`
}
