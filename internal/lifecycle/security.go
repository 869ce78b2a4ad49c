package lifecycle

import (
	"fmt"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
)

// Policy holds the termination thresholds. A negative limit disables that check.
type Policy struct {
	TabSwitchLimit       int
	WarningLimit         int
	TerminateOnDevTools  bool
	TerminateOnCopyPaste bool // applies to hardened sessions only
}

func DefaultPolicy() Policy {
	return Policy{
		TabSwitchLimit:       3,
		WarningLimit:         5,
		TerminateOnDevTools:  true,
		TerminateOnCopyPaste: true,
	}
}

type SecurityOutcome struct {
	Recorded          bool
	ViolationDetected bool
	Reason            string
	Status            models.SessionStatus
}

// RecordSecurityEvent appends the event to the session log, bumps the
// matching counter and then evaluates the policy. Sessions already in a
// terminal status are left as they are.
func RecordSecurityEvent(s *models.InterviewSession, eventType string, payload map[string]any, p Policy, now time.Time) SecurityOutcome {
	if s.Status.Terminal() {
		return SecurityOutcome{Status: s.Status, Reason: s.TerminationReason}
	}

	s.SecurityViolations = append(s.SecurityViolations, models.SecurityViolation{
		Type:       eventType,
		Payload:    payload,
		RecordedAt: now,
	})
	switch eventType {
	case models.EventTabSwitch:
		s.TabSwitches++
	case models.EventWarning:
		s.WarningCount++
	}

	out := SecurityOutcome{Recorded: true}
	if terminated, reason := EnforcePolicy(s, p, now); terminated {
		out.ViolationDetected = true
		out.Reason = reason
	}
	out.Status = s.Status
	return out
}

// EnforcePolicy terminates s when any threshold is exceeded. It only reads
// the recorded state, so evaluating it again is harmless; a session that is
// already terminal is never touched.
func EnforcePolicy(s *models.InterviewSession, p Policy, now time.Time) (bool, string) {
	if s.Status.Terminal() {
		return false, ""
	}
	reason := Breach(s, p)
	if reason == "" {
		return false, ""
	}
	terminate(s, reason, now)
	return true, reason
}

// Breach returns the first exceeded threshold, or "".
func Breach(s *models.InterviewSession, p Policy) string {
	if p.TabSwitchLimit >= 0 && s.TabSwitches > p.TabSwitchLimit {
		return fmt.Sprintf("too many tab switches (%d, limit %d)", s.TabSwitches, p.TabSwitchLimit)
	}
	if p.WarningLimit >= 0 && s.WarningCount > p.WarningLimit {
		return fmt.Sprintf("too many warnings (%d, limit %d)", s.WarningCount, p.WarningLimit)
	}
	for _, v := range s.SecurityViolations {
		switch v.Type {
		case models.EventDevTools:
			if p.TerminateOnDevTools {
				return "developer tools opened"
			}
		case models.EventCopyAttempt, models.EventPasteAttempt:
			if p.TerminateOnCopyPaste && s.HardenedMode {
				return "copy/paste attempt in hardened mode"
			}
		}
	}
	return ""
}

func terminate(s *models.InterviewSession, reason string, now time.Time) {
	s.Status = models.StatusTerminated
	// endAt must stay after scheduledAt.
	if now.After(s.ScheduledAt) {
		s.EndAt = now
	}
	t := now
	s.TerminatedAt = &t
	s.IsSessionValid = false
	s.TerminationReason = reason
}
