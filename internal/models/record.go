package models

import (
	"fmt"
	"time"
)

// StudyMode classifies how an answer was produced.
type StudyMode string

const (
	ModePractice StudyMode = "practice"
	ModeMockExam StudyMode = "mock_exam"
	ModeReview   StudyMode = "review"
	ModeWeakArea StudyMode = "weak_area"
)

// Valid reports whether the mode is one of the known study modes.
func (m StudyMode) Valid() bool {
	switch m {
	case ModePractice, ModeMockExam, ModeReview, ModeWeakArea:
		return true
	}
	return false
}

// CategoryUnknown is recorded when the question catalog has no entry for
// the answered question. Records carrying it never contribute to aggregates.
const CategoryUnknown = "unknown"

// CategoryUncategorized groups answers to known questions that have no
// subject category. It aggregates separately and is never merged with
// typed categories.
const CategoryUncategorized = "uncategorized"

// AnswerRecord is one row of the append-only answer log. Records are
// immutable once written; IsCorrect is evaluated at write time and never
// recomputed from the catalog.
type AnswerRecord struct {
	ID                  string    `bson:"_id,omitempty" json:"id"`
	QuestionID          string    `bson:"question_id" json:"question_id"`
	UserAnswer          int       `bson:"user_answer" json:"user_answer"`
	CorrectAnswer       int       `bson:"correct_answer" json:"correct_answer"`
	IsCorrect           bool      `bson:"is_correct" json:"is_correct"`
	ResponseTimeSeconds *int      `bson:"response_time_seconds,omitempty" json:"response_time_seconds,omitempty"`
	ExamCategory        string    `bson:"exam_category" json:"exam_category"`
	Category            string    `bson:"category" json:"category"`
	StudyMode           StudyMode `bson:"study_mode" json:"study_mode"`
	Notes               string    `bson:"notes,omitempty" json:"notes,omitempty"`
	AttemptTimestamp    time.Time `bson:"attempt_timestamp" json:"attempt_timestamp"`
}

// AnswerSubmission is the write request for a single answer.
type AnswerSubmission struct {
	QuestionID          string    `json:"question_id"`
	UserAnswer          int       `json:"user_answer"`
	CorrectAnswer       int       `json:"correct_answer"`
	ResponseTimeSeconds *int      `json:"response_time_seconds,omitempty"`
	StudyMode           StudyMode `json:"study_mode"`
	Notes               string    `json:"notes,omitempty"`
}

// Validate rejects out-of-range answer indexes, negative response times and
// unknown study modes before anything touches storage.
func (s *AnswerSubmission) Validate() error {
	if s.QuestionID == "" {
		return fmt.Errorf("%w: question_id is required", ErrValidation)
	}
	if s.UserAnswer < 1 {
		return fmt.Errorf("%w: user_answer must be a positive choice index, got %d", ErrValidation, s.UserAnswer)
	}
	if s.CorrectAnswer < 1 {
		return fmt.Errorf("%w: correct_answer must be a positive choice index, got %d", ErrValidation, s.CorrectAnswer)
	}
	if s.ResponseTimeSeconds != nil && *s.ResponseTimeSeconds < 0 {
		return fmt.Errorf("%w: response_time_seconds must be non-negative, got %d", ErrValidation, *s.ResponseTimeSeconds)
	}
	if s.StudyMode == "" {
		s.StudyMode = ModePractice
	}
	if !s.StudyMode.Valid() {
		return fmt.Errorf("%w: unknown study_mode %q", ErrValidation, s.StudyMode)
	}
	return nil
}

// RecordFilter narrows answer-log queries.
type RecordFilter struct {
	QuestionID   string
	ExamCategory string
	Since        time.Time
	Until        time.Time
	Limit        int64
}
