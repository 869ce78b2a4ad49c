package lifecycle

import (
	"time"

	"github.com/yoockh/yoointerview/internal/models"
)

const (
	ReasonCompleted       = "Interview is already completed"
	ReasonTerminated      = "Interview was terminated due to security violations"
	ReasonCancelled       = "Interview was cancelled"
	ReasonMissed          = "Interview was missed"
	ReasonInvalidated     = "Interview session has been invalidated"
	ReasonNotStarted      = "Interview has not started yet"
	ReasonExpired         = "Interview session has expired"
	ReasonTooManyEvents   = "Too many security violations"
	DefaultMaxEventsLimit = 10
)

type Validation struct {
	Valid            bool                 `json:"valid"`
	Reason           string               `json:"reason,omitempty"`
	RemainingSeconds int                  `json:"remaining_seconds,omitempty"`
	Status           models.SessionStatus `json:"status"`
}

// Validate reports whether the student may continue in s at now.
// maxEvents <= 0 disables the recorded-event ceiling.
func Validate(s *models.InterviewSession, now time.Time, maxEvents int) Validation {
	out := Validation{Status: s.Status}

	switch s.Status {
	case models.StatusCompleted:
		out.Reason = ReasonCompleted
	case models.StatusTerminated:
		out.Reason = ReasonTerminated
	case models.StatusCancelled:
		out.Reason = ReasonCancelled
	case models.StatusMissed:
		out.Reason = ReasonMissed
	}
	if out.Reason != "" {
		return out
	}

	switch {
	case !s.IsSessionValid:
		out.Reason = ReasonInvalidated
	case now.Before(s.ScheduledAt):
		out.Reason = ReasonNotStarted
	case now.After(s.EndAt):
		out.Reason = ReasonExpired
	case maxEvents > 0 && len(s.SecurityViolations) >= maxEvents:
		out.Reason = ReasonTooManyEvents
	default:
		out.Valid = true
		out.RemainingSeconds = int(s.EndAt.Sub(now) / time.Second)
	}
	return out
}
