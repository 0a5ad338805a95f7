package service

import (
	"context"

	"progress-service/internal/models"
	"progress-service/internal/repository"
)

// QuestionService fronts the question catalog.
type QuestionService struct {
	Repo *repository.QuestionRepository
}

func NewQuestionService(repo *repository.QuestionRepository) *QuestionService {
	return &QuestionService{Repo: repo}
}

func (s *QuestionService) CreateQuestion(ctx context.Context, q *models.Question) error {
	return s.Repo.Create(ctx, q)
}

func (s *QuestionService) GetQuestion(ctx context.Context, id string) (*models.Question, error) {
	return s.Repo.Lookup(ctx, id)
}

func (s *QuestionService) ListQuestions(ctx context.Context, examCategory, category string, limit int64) ([]models.Question, error) {
	return s.Repo.List(ctx, examCategory, category, limit)
}
