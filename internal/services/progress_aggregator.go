package services

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	pgrepo "github.com/yoockh/yoointerview/internal/repositories/postgres"
	"github.com/yoockh/yoointerview/internal/scoring"
	"github.com/yoockh/yoointerview/internal/utils"
)

const (
	trendWindow     = 6
	improvingFactor = 1.05
	decliningFactor = 0.95
	hoursPerDay     = 24 * time.Hour
)

// ProgressAggregator owns the StudentProgress row. Callers serialize runs
// per student and check liveness first; see Recomputer.
type ProgressAggregator interface {
	// EnsureAndRecompute creates the row if absent and replaces every field
	// with values derived from the student's current sessions and feedback.
	EnsureAndRecompute(ctx context.Context, studentID string) (*models.StudentProgress, error)
}

type progressAggregator struct {
	sessions pgrepo.SessionRepository
	feedback pgrepo.FeedbackRepository
	progress pgrepo.ProgressRepository
	now      func() time.Time
}

func NewProgressAggregator(sessions pgrepo.SessionRepository, feedback pgrepo.FeedbackRepository, progress pgrepo.ProgressRepository, now func() time.Time) ProgressAggregator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &progressAggregator{sessions: sessions, feedback: feedback, progress: progress, now: now}
}

func (a *progressAggregator) EnsureAndRecompute(ctx context.Context, studentID string) (*models.StudentProgress, error) {
	const op = "ProgressAggregator.EnsureAndRecompute"

	if studentID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "student_id is required", nil)
	}

	sessions, err := a.sessions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load sessions", err)
	}
	var rows []models.FeedbackWithSession
	if countCompleted(sessions) > 0 {
		rows, err = a.feedback.ListForCompletedSessions(ctx, studentID)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to load feedback", err)
		}
	}

	next := ComputeProgress(studentID, sessions, rows)

	prev, err := a.progress.Get(ctx, studentID)
	switch {
	case err == nil && sameProgress(prev, &next):
		// Nothing moved; keep the stored row untouched.
		return prev, nil
	case err != nil && !errors.Is(err, utils.ErrNotFound):
		return nil, utils.E(utils.CodeInternal, op, "failed to read progress", err)
	}

	next.CalculatedAt = a.now()
	if err := a.progress.Upsert(ctx, &next); err != nil {
		if utils.IsReferentialViolation(err) {
			return nil, err
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to persist progress", err)
	}
	return &next, nil
}

func countCompleted(sessions []models.InterviewSession) int {
	n := 0
	for i := range sessions {
		if sessions[i].Status == models.StatusCompleted {
			n++
		}
	}
	return n
}

// ComputeProgress derives a student's progress. feedback must be ordered by
// session completion time, most recent first. CalculatedAt is left zero.
func ComputeProgress(studentID string, sessions []models.InterviewSession, feedback []models.FeedbackWithSession) models.StudentProgress {
	out := models.StudentProgress{StudentID: studentID, ScoreTrend: models.TrendStable}

	completed := countCompleted(sessions)
	if completed == 0 {
		return out
	}
	out.TotalInterviews = len(sessions)
	out.CompletedInterviews = completed

	overall := make([]float64, 0, len(feedback))
	skills := map[models.InterviewType][]float64{}
	for _, f := range feedback {
		overall = append(overall, float64(f.OverallScore))
		if v := skillScore(f); v != nil {
			skills[f.InterviewType] = append(skills[f.InterviewType], float64(*v))
		}
	}
	out.AverageScore = scoring.Round2(scoring.Mean(overall))
	out.TechnicalAverage = scoring.Round2(scoring.Mean(skills[models.InterviewTechnical]))
	out.CommunicationAverage = scoring.Round2(scoring.Mean(skills[models.InterviewCommunication]))
	out.AptitudeAverage = scoring.Round2(scoring.Mean(skills[models.InterviewAptitude]))

	out.ScoreTrend, out.ImprovementPercentage = scoreTrend(overall)

	var completions []time.Time
	for i := range sessions {
		s := &sessions[i]
		if s.Status != models.StatusCompleted || s.CompletedAt == nil {
			continue
		}
		completions = append(completions, s.CompletedAt.UTC())
		if out.LastInterviewDate == nil || s.CompletedAt.After(*out.LastInterviewDate) {
			t := s.CompletedAt.UTC()
			out.LastInterviewDate = &t
		}
	}
	out.StreakDays = streakDays(completions, out.LastInterviewDate)
	return out
}

// skillScore picks the skill field that the session's interview type measures.
func skillScore(f models.FeedbackWithSession) *int {
	switch f.InterviewType {
	case models.InterviewTechnical:
		return f.TechnicalScore
	case models.InterviewCommunication:
		return f.CommunicationScore
	case models.InterviewAptitude:
		return f.ProblemSolvingScore
	}
	return nil
}

// scoreTrend compares the newest three scores with the three before them.
// Fewer than six scores is always stable.
func scoreTrend(newestFirst []float64) (models.ScoreTrend, float64) {
	if len(newestFirst) < trendWindow {
		return models.TrendStable, 0
	}
	recent := scoring.Mean(newestFirst[:3])
	previous := scoring.Mean(newestFirst[3:trendWindow])

	var trend models.ScoreTrend
	switch {
	case recent > previous*improvingFactor:
		trend = models.TrendImproving
	case recent < previous*decliningFactor:
		trend = models.TrendDeclining
	default:
		return models.TrendStable, 0
	}
	if previous == 0 {
		return trend, 0
	}
	return trend, scoring.Round2((recent - previous) / previous * 100)
}

// streakDays counts consecutive UTC days with a completion, ending on the
// day of last.
func streakDays(completions []time.Time, last *time.Time) int {
	if last == nil {
		return 0
	}
	days := map[time.Time]bool{}
	for _, c := range completions {
		days[c.UTC().Truncate(hoursPerDay)] = true
	}
	n := 0
	for d := last.UTC().Truncate(hoursPerDay); days[d]; d = d.Add(-hoursPerDay) {
		n++
	}
	return n
}

func sameProgress(a, b *models.StudentProgress) bool {
	if a.StudentID != b.StudentID ||
		a.TotalInterviews != b.TotalInterviews ||
		a.CompletedInterviews != b.CompletedInterviews ||
		a.AverageScore != b.AverageScore ||
		a.TechnicalAverage != b.TechnicalAverage ||
		a.CommunicationAverage != b.CommunicationAverage ||
		a.AptitudeAverage != b.AptitudeAverage ||
		a.ScoreTrend != b.ScoreTrend ||
		a.ImprovementPercentage != b.ImprovementPercentage ||
		a.StreakDays != b.StreakDays {
		return false
	}
	switch {
	case a.LastInterviewDate == nil && b.LastInterviewDate == nil:
		return true
	case a.LastInterviewDate == nil || b.LastInterviewDate == nil:
		return false
	}
	return a.LastInterviewDate.Equal(*b.LastInterviewDate)
}
