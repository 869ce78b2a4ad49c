package lifecycle

import (
	"testing"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
)

func TestTabSwitchThresholdTerminatesOnce(t *testing.T) {
	s := newSession(models.StatusInProgress)
	p := DefaultPolicy()
	now := t0.Add(10 * time.Minute)

	for i := 1; i <= 3; i++ {
		out := RecordSecurityEvent(s, models.EventTabSwitch, nil, p, now)
		if !out.Recorded || out.ViolationDetected {
			t.Fatalf("event %d: %+v", i, out)
		}
	}
	if s.Status != models.StatusInProgress {
		t.Fatalf("status after 3 switches = %s", s.Status)
	}

	fourth := t0.Add(11 * time.Minute)
	out := RecordSecurityEvent(s, models.EventTabSwitch, nil, p, fourth)
	if !out.Recorded || !out.ViolationDetected || out.Status != models.StatusTerminated {
		t.Fatalf("4th event: %+v", out)
	}
	if s.IsSessionValid {
		t.Fatalf("isSessionValid should be false")
	}
	if !s.EndAt.Equal(fourth) || s.TerminatedAt == nil || s.TerminationReason == "" {
		t.Fatalf("termination not stamped: %+v", s)
	}

	snapshot := *s
	fifth := RecordSecurityEvent(s, models.EventTabSwitch, nil, p, t0.Add(12*time.Minute))
	if fifth.Recorded || fifth.ViolationDetected || fifth.Status != models.StatusTerminated {
		t.Fatalf("5th event should be a no-op: %+v", fifth)
	}
	if s.TabSwitches != 4 || len(s.SecurityViolations) != 4 || !s.EndAt.Equal(snapshot.EndAt) {
		t.Fatalf("terminated session was mutated: %+v", s)
	}

	if changed, _ := EnforcePolicy(s, p, t0.Add(time.Hour)); changed {
		t.Fatalf("re-evaluating a terminated session must be a no-op")
	}
}

func TestWarningThreshold(t *testing.T) {
	s := newSession(models.StatusInProgress)
	p := DefaultPolicy()
	for i := 0; i < 5; i++ {
		RecordSecurityEvent(s, models.EventWarning, nil, p, t0.Add(time.Minute))
	}
	if s.Status != models.StatusInProgress || s.WarningCount != 5 {
		t.Fatalf("5 warnings must not terminate: %s %d", s.Status, s.WarningCount)
	}
	out := RecordSecurityEvent(s, models.EventWarning, map[string]any{"msg": "face not visible"}, p, t0.Add(2*time.Minute))
	if !out.ViolationDetected {
		t.Fatalf("6th warning should terminate")
	}
}

func TestDevToolsTerminatesImmediately(t *testing.T) {
	s := newSession(models.StatusInProgress)
	out := RecordSecurityEvent(s, models.EventDevTools, nil, DefaultPolicy(), t0.Add(time.Minute))
	if !out.ViolationDetected || s.Status != models.StatusTerminated {
		t.Fatalf("dev tools should terminate: %+v", out)
	}
}

func TestCopyPasteOnlyInHardenedMode(t *testing.T) {
	relaxed := newSession(models.StatusInProgress)
	out := RecordSecurityEvent(relaxed, models.EventPasteAttempt, nil, DefaultPolicy(), t0.Add(time.Minute))
	if out.ViolationDetected {
		t.Fatalf("paste outside hardened mode should only be recorded")
	}

	hardened := newSession(models.StatusInProgress)
	hardened.HardenedMode = true
	out = RecordSecurityEvent(hardened, models.EventCopyAttempt, nil, DefaultPolicy(), t0.Add(time.Minute))
	if !out.ViolationDetected {
		t.Fatalf("copy in hardened mode should terminate")
	}
}

func TestDisabledLimits(t *testing.T) {
	p := Policy{TabSwitchLimit: -1, WarningLimit: -1}
	s := newSession(models.StatusInProgress)
	for i := 0; i < 20; i++ {
		RecordSecurityEvent(s, models.EventTabSwitch, nil, p, t0.Add(time.Minute))
		RecordSecurityEvent(s, models.EventDevTools, nil, p, t0.Add(time.Minute))
	}
	if s.Status != models.StatusInProgress {
		t.Fatalf("disabled policy terminated the session")
	}
}

func TestTerminationBeforeScheduledKeepsEndAt(t *testing.T) {
	s := newSession(models.StatusScheduled)
	end := s.EndAt
	RecordSecurityEvent(s, models.EventDevTools, nil, DefaultPolicy(), t0.Add(-time.Minute))
	if s.Status != models.StatusTerminated {
		t.Fatalf("status = %s", s.Status)
	}
	if !s.EndAt.Equal(end) || !s.EndAt.After(s.ScheduledAt) {
		t.Fatalf("endAt must stay after scheduledAt: %v", s.EndAt)
	}
}
