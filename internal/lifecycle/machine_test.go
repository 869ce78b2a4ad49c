package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newSession(status models.SessionStatus) *models.InterviewSession {
	return &models.InterviewSession{
		ID:              "s1",
		Status:          status,
		ScheduledAt:     t0,
		EndAt:           t0.Add(60 * time.Minute),
		DurationMinutes: 60,
		IsSessionValid:  true,
		InterviewType:   models.InterviewTechnical,
		Difficulty:      models.DifficultyMedium,
	}
}

func TestIsAccessibleBoundaries(t *testing.T) {
	s := newSession(models.StatusScheduled)

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"strictly before", t0.Add(-time.Nanosecond), false},
		{"at scheduledAt", t0, true},
		{"inside window", t0.Add(30 * time.Minute), true},
		{"at endAt", s.EndAt, true},
		{"strictly after", s.EndAt.Add(time.Nanosecond), false},
	}
	for _, c := range cases {
		if got := IsAccessible(s, c.now); got != c.want {
			t.Errorf("%s: IsAccessible = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestIsAccessibleRequiresLiveStatus(t *testing.T) {
	for _, st := range []models.SessionStatus{
		models.StatusCompleted, models.StatusMissed, models.StatusCancelled, models.StatusTerminated,
	} {
		if IsAccessible(newSession(st), t0.Add(time.Minute)) {
			t.Errorf("status %s should not be accessible", st)
		}
	}
	if !IsAccessible(newSession(models.StatusInProgress), t0.Add(time.Minute)) {
		t.Errorf("in_progress inside window should be accessible")
	}
}

func TestStart(t *testing.T) {
	s := newSession(models.StatusScheduled)
	now := t0.Add(5 * time.Minute)

	if err := Start(s, now); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Status != models.StatusInProgress {
		t.Fatalf("status = %s", s.Status)
	}
	if s.StartedAt == nil || !s.StartedAt.Equal(now) {
		t.Fatalf("startedAt = %v", s.StartedAt)
	}

	if err := Start(s, now); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Start: got %v, want ErrAlreadyStarted", err)
	}
}

func TestStartOutsideWindow(t *testing.T) {
	s := newSession(models.StatusScheduled)
	if err := Start(s, t0.Add(-time.Second)); !errors.Is(err, ErrNotAccessible) {
		t.Fatalf("early start: got %v", err)
	}
	if s.Status != models.StatusScheduled || s.StartedAt != nil {
		t.Fatalf("failed start mutated session: %+v", s)
	}

	done := newSession(models.StatusCompleted)
	if err := Start(done, t0.Add(time.Minute)); !errors.Is(err, ErrNotAccessible) {
		t.Fatalf("start completed session: got %v", err)
	}
}

func TestComplete(t *testing.T) {
	s := newSession(models.StatusScheduled)
	if err := Complete(s, t0); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("complete scheduled: got %v", err)
	}

	s.Status = models.StatusInProgress
	now := t0.Add(40 * time.Minute)
	if err := Complete(s, now); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if s.Status != models.StatusCompleted || s.CompletedAt == nil || !s.CompletedAt.Equal(now) {
		t.Fatalf("unexpected session after complete: %+v", s)
	}
	if err := Complete(s, now); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("complete twice: got %v", err)
	}
}

func TestNoTransitionOutOfTerminal(t *testing.T) {
	terminal := []models.SessionStatus{
		models.StatusCompleted, models.StatusMissed, models.StatusCancelled, models.StatusTerminated,
	}
	all := append([]models.SessionStatus{models.StatusScheduled, models.StatusInProgress}, terminal...)
	for _, from := range terminal {
		for _, to := range all {
			if CanTransition(from, to) {
				t.Errorf("unexpected edge %s -> %s", from, to)
			}
		}
	}
	if CanTransition(models.StatusScheduled, models.StatusCompleted) {
		t.Errorf("scheduled must not complete directly")
	}
}

func TestCancel(t *testing.T) {
	s := newSession(models.StatusInProgress)
	if err := Cancel(s, ""); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if s.Status != models.StatusCancelled || s.IsSessionValid || s.TerminationReason == "" {
		t.Fatalf("unexpected session: %+v", s)
	}
	if err := Cancel(s, "again"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("cancel twice: got %v", err)
	}
}

func TestMarkMissed(t *testing.T) {
	s := newSession(models.StatusScheduled)
	if MarkMissed(s, s.EndAt) {
		t.Fatalf("endAt itself is still inside the window")
	}
	if !MarkMissed(s, s.EndAt.Add(time.Second)) || s.Status != models.StatusMissed {
		t.Fatalf("expected missed, got %s", s.Status)
	}

	running := newSession(models.StatusInProgress)
	if MarkMissed(running, running.EndAt.Add(time.Hour)) {
		t.Fatalf("in-progress sessions are not swept")
	}
}

func TestTimeRemaining(t *testing.T) {
	s := newSession(models.StatusScheduled)
	if got := TimeRemaining(s, t0); got != 0 {
		t.Fatalf("scheduled: got %d", got)
	}

	s.Status = models.StatusInProgress
	if got := TimeRemaining(s, t0.Add(30*time.Minute+30*time.Second)); got != 29 {
		t.Fatalf("got %d, want 29 (floored)", got)
	}
	if got := TimeRemaining(s, s.EndAt.Add(time.Minute)); got != 0 {
		t.Fatalf("past end: got %d", got)
	}
}

func TestEnsureAnswerable(t *testing.T) {
	s := newSession(models.StatusScheduled)
	if err := EnsureAnswerable(s, t0); !errors.Is(err, ErrNotInProgress) {
		t.Fatalf("got %v", err)
	}
	s.Status = models.StatusInProgress
	if err := EnsureAnswerable(s, t0.Add(time.Minute)); err != nil {
		t.Fatalf("got %v", err)
	}
	if err := EnsureAnswerable(s, s.EndAt.Add(time.Second)); !errors.Is(err, ErrNotAccessible) {
		t.Fatalf("got %v", err)
	}
}
