// Package lifecycle implements the interview session state machine.
//
// All functions operate on a loaded *models.InterviewSession and mutate it in
// place; persisting the result is the caller's job. A function that returns an
// error leaves the session untouched.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
)

var (
	ErrNotAccessible     = errors.New("session is not accessible at this time")
	ErrAlreadyStarted    = errors.New("session has already started")
	ErrNotInProgress     = errors.New("session is not in progress")
	ErrInvalidTransition = errors.New("invalid session status transition")
)

var transitions = map[models.SessionStatus][]models.SessionStatus{
	models.StatusScheduled: {
		models.StatusInProgress,
		models.StatusMissed,
		models.StatusCancelled,
		models.StatusTerminated,
	},
	models.StatusInProgress: {
		models.StatusCompleted,
		models.StatusMissed,
		models.StatusCancelled,
		models.StatusTerminated,
	},
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to models.SessionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func transition(s *models.InterviewSession, to models.SessionStatus) error {
	if !CanTransition(s.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.Status, to)
	}
	s.Status = to
	return nil
}

// IsAccessible is true iff scheduledAt <= now <= endAt and the session is
// scheduled or in progress. Both boundary instants are accessible.
func IsAccessible(s *models.InterviewSession, now time.Time) bool {
	if s.Status != models.StatusScheduled && s.Status != models.StatusInProgress {
		return false
	}
	return !now.Before(s.ScheduledAt) && !now.After(s.EndAt)
}

func Start(s *models.InterviewSession, now time.Time) error {
	if s.Status == models.StatusInProgress {
		return ErrAlreadyStarted
	}
	if !IsAccessible(s, now) {
		return ErrNotAccessible
	}
	if err := transition(s, models.StatusInProgress); err != nil {
		return err
	}
	t := now
	s.StartedAt = &t
	return nil
}

// EnsureAnswerable rejects answers outside an in-progress session window.
func EnsureAnswerable(s *models.InterviewSession, now time.Time) error {
	if s.Status != models.StatusInProgress {
		return ErrNotInProgress
	}
	if now.After(s.EndAt) {
		return ErrNotAccessible
	}
	return nil
}

func Complete(s *models.InterviewSession, now time.Time) error {
	if s.Status != models.StatusInProgress {
		return fmt.Errorf("%w: %w", ErrNotInProgress, ErrInvalidTransition)
	}
	if err := transition(s, models.StatusCompleted); err != nil {
		return err
	}
	t := now
	s.CompletedAt = &t
	return nil
}

// Cancel invalidates a session on behalf of its teacher.
func Cancel(s *models.InterviewSession, reason string) error {
	if err := transition(s, models.StatusCancelled); err != nil {
		return err
	}
	if reason == "" {
		reason = "cancelled by teacher"
	}
	s.IsSessionValid = false
	s.TerminationReason = reason
	return nil
}

// MarkMissed moves a scheduled session whose window has fully elapsed to missed.
// It reports whether the session changed.
func MarkMissed(s *models.InterviewSession, now time.Time) bool {
	if s.Status != models.StatusScheduled || !now.After(s.EndAt) {
		return false
	}
	s.Status = models.StatusMissed
	return true
}

// TimeRemaining returns the whole minutes left, floored; 0 unless in progress.
func TimeRemaining(s *models.InterviewSession, now time.Time) int {
	if s.Status != models.StatusInProgress {
		return 0
	}
	left := s.EndAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(left / time.Minute)
}
