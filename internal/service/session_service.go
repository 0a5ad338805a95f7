package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"progress-service/internal/models"
	"progress-service/internal/progress"
)

// SessionStatus is the live view of an active session.
type SessionStatus struct {
	Active    bool      `json:"active"`
	Answered  int       `json:"answered"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// SessionService keeps at most one active study session per user. Session
// state lives server-side; callers address it by user ID. Answers recorded
// through a session also flow through the aggregation engine, so the
// durable history and the session summary stay in step.
type SessionService struct {
	Progress *ProgressService
	Sessions SessionStore

	mu     sync.Mutex
	active map[string]*progress.Tracker
}

func NewSessionService(progressSvc *ProgressService, sessions SessionStore) *SessionService {
	return &SessionService{
		Progress: progressSvc,
		Sessions: sessions,
		active:   make(map[string]*progress.Tracker),
	}
}

// Start opens a session for the user. An already-active session is ended
// first: its partial summary is computed and archived, never dropped.
func (s *SessionService) Start(ctx context.Context, userID string, req models.StartSessionRequest) error {
	if userID == "" {
		return fmt.Errorf("%w: user id is required", models.ErrValidation)
	}
	if req.StudyMode != "" && !req.StudyMode.Valid() {
		return fmt.Errorf("%w: unknown study_mode %q", models.ErrValidation, req.StudyMode)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.active[userID]; ok {
		summary, err := current.End(time.Now())
		if err == nil {
			log.Printf("user %s started a new session with one active, ending previous (%d answers)", userID, summary.TotalQuestions)
			s.archive(ctx, summary)
		}
		delete(s.active, userID)
	}

	s.active[userID] = progress.NewTracker(userID, req, time.Now())
	return nil
}

// RecordAnswer routes one answer through the aggregation engine and feeds
// the result into the user's active session.
func (s *SessionService) RecordAnswer(ctx context.Context, userID string, sub models.AnswerSubmission) (*models.AnswerResult, error) {
	s.mu.Lock()
	tracker, ok := s.active[userID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: user %s has no active session", models.ErrNoActiveSession, userID)
	}

	result, err := s.Progress.RecordAnswer(ctx, sub)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := tracker.Record(*result); err != nil {
		// The session ended between the aggregate write and here. The
		// durable record stands; only the session attribution is lost.
		log.Printf("answer for user %s recorded after session end: %v", userID, err)
	}
	return result, nil
}

// End closes the user's active session and returns its summary. Ending
// without an active session fails; a summary is never replayed.
func (s *SessionService) End(ctx context.Context, userID string) (*models.SessionSummary, error) {
	s.mu.Lock()
	tracker, ok := s.active[userID]
	if ok {
		delete(s.active, userID)
	}
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: user %s", models.ErrNoActiveSession, userID)
	}

	summary, err := tracker.End(time.Now())
	if err != nil {
		return nil, err
	}
	s.archive(ctx, summary)
	return summary, nil
}

// Status reports whether the user has an active session and how far along
// it is.
func (s *SessionService) Status(userID string) SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	tracker, ok := s.active[userID]
	if !ok {
		return SessionStatus{}
	}
	return SessionStatus{
		Active:    true,
		Answered:  tracker.Answered(),
		StartedAt: tracker.StartedAt(),
	}
}

// History lists the user's archived session summaries, newest first.
func (s *SessionService) History(ctx context.Context, userID string, limit int64) ([]models.SessionSummary, error) {
	return s.Sessions.ListByUser(ctx, userID, limit)
}

func (s *SessionService) archive(ctx context.Context, summary *models.SessionSummary) {
	if s.Sessions == nil {
		return
	}
	if err := s.Sessions.Save(ctx, summary); err != nil {
		log.Printf("archiving session summary for user %s failed: %v", summary.UserID, err)
	}
}
