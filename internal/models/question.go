package models

import "time"

// Question is a catalog entry. The progress core only reads the
// classification fields; answering itself happens at the route layer.
type Question struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	ExamCategory    string    `bson:"exam_category" json:"exam_category"`
	Category        string    `bson:"category" json:"category"`
	Subcategory     string    `bson:"subcategory,omitempty" json:"subcategory,omitempty"`
	Year            int       `bson:"year,omitempty" json:"year,omitempty"`
	QuestionNumber  int       `bson:"question_number,omitempty" json:"question_number,omitempty"`
	Content         string    `bson:"content" json:"content"`
	Choices         []string  `bson:"choices" json:"choices"`
	CorrectAnswer   int       `bson:"correct_answer" json:"correct_answer"`
	Explanation     string    `bson:"explanation,omitempty" json:"explanation,omitempty"`
	DifficultyLevel int       `bson:"difficulty_level" json:"difficulty_level"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}

// DefaultDifficulty is assumed when a catalog entry carries no level.
const DefaultDifficulty = 2
