package lifecycle

import (
	"testing"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
)

func TestValidate(t *testing.T) {
	inside := t0.Add(15 * time.Minute)

	tests := []struct {
		name   string
		mutate func(s *models.InterviewSession)
		now    time.Time
		valid  bool
		reason string
	}{
		{name: "valid scheduled", now: inside, valid: true},
		{name: "not started", now: t0.Add(-time.Minute), reason: ReasonNotStarted},
		{name: "expired", now: t0.Add(2 * time.Hour), reason: ReasonExpired},
		{
			name:   "completed",
			mutate: func(s *models.InterviewSession) { s.Status = models.StatusCompleted },
			now:    inside, reason: ReasonCompleted,
		},
		{
			name: "terminated",
			mutate: func(s *models.InterviewSession) {
				s.Status = models.StatusTerminated
				s.IsSessionValid = false
			},
			now: inside, reason: ReasonTerminated,
		},
		{
			name:   "cancelled",
			mutate: func(s *models.InterviewSession) { s.Status = models.StatusCancelled },
			now:    inside, reason: ReasonCancelled,
		},
		{
			name:   "invalidated",
			mutate: func(s *models.InterviewSession) { s.IsSessionValid = false },
			now:    inside, reason: ReasonInvalidated,
		},
		{
			name: "too many events",
			mutate: func(s *models.InterviewSession) {
				for i := 0; i < 10; i++ {
					s.SecurityViolations = append(s.SecurityViolations, models.SecurityViolation{Type: models.EventWindowBlur})
				}
			},
			now: inside, reason: ReasonTooManyEvents,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(models.StatusScheduled)
			if tt.mutate != nil {
				tt.mutate(s)
			}
			got := Validate(s, tt.now, DefaultMaxEventsLimit)
			if got.Valid != tt.valid || got.Reason != tt.reason {
				t.Fatalf("Validate = %+v, want valid=%v reason=%q", got, tt.valid, tt.reason)
			}
		})
	}
}

func TestValidateRemainingSeconds(t *testing.T) {
	s := newSession(models.StatusInProgress)
	got := Validate(s, s.EndAt.Add(-90*time.Second), 0)
	if !got.Valid || got.RemainingSeconds != 90 {
		t.Fatalf("got %+v", got)
	}
}
