package services

import (
	"context"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	pgrepo "github.com/yoockh/yoointerview/internal/repositories/postgres"
	"github.com/yoockh/yoointerview/internal/scoring"
	"github.com/yoockh/yoointerview/internal/utils"
)

// FleetAggregator owns the TeacherStats row.
type FleetAggregator interface {
	EnsureAndRecompute(ctx context.Context, teacherID string) (*models.TeacherStats, error)
}

type fleetAggregator struct {
	links    pgrepo.TeacherStudentRepository
	sessions pgrepo.SessionRepository
	stats    pgrepo.TeacherStatsRepository
	window   time.Duration
	now      func() time.Time
}

// NewFleetAggregator counts activity within window (30 days when zero).
func NewFleetAggregator(links pgrepo.TeacherStudentRepository, sessions pgrepo.SessionRepository, stats pgrepo.TeacherStatsRepository, window time.Duration, now func() time.Time) FleetAggregator {
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &fleetAggregator{links: links, sessions: sessions, stats: stats, window: window, now: now}
}

func (a *fleetAggregator) EnsureAndRecompute(ctx context.Context, teacherID string) (*models.TeacherStats, error) {
	const op = "FleetAggregator.EnsureAndRecompute"

	if teacherID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "teacher_id is required", nil)
	}

	assigned, err := a.links.CountActiveStudents(ctx, teacherID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to count students", err)
	}
	sessions, err := a.sessions.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to load sessions", err)
	}

	now := a.now()
	st := ComputeTeacherStats(teacherID, int(assigned), sessions, now, a.window)
	st.UpdatedAt = now

	if err := a.stats.Upsert(ctx, &st); err != nil {
		if utils.IsReferentialViolation(err) {
			return nil, err
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to persist teacher stats", err)
	}
	return &st, nil
}

// ComputeTeacherStats derives a teacher's stats from their sessions as of now.
func ComputeTeacherStats(teacherID string, assigned int, sessions []models.InterviewSession, now time.Time, window time.Duration) models.TeacherStats {
	out := models.TeacherStats{
		TeacherID:                teacherID,
		TotalStudents:            assigned,
		TotalInterviewsConducted: len(sessions),
	}

	since := now.Add(-window)
	mid := now.Add(-window / 2)
	active := map[string]struct{}{}

	var (
		resolved     []float64
		completed    int
		withFeedback int
		firstHalf    []float64
		secondHalf   []float64
	)
	for i := range sessions {
		s := &sessions[i]

		if !s.CreatedAt.Before(since) {
			out.InterviewsThisMonth++
			active[s.StudentID] = struct{}{}
		}
		if out.LastActivityDate == nil || s.CreatedAt.After(*out.LastActivityDate) {
			t := s.CreatedAt
			out.LastActivityDate = &t
		}

		if s.Status != models.StatusCompleted {
			continue
		}
		completed++
		if s.Feedback != nil {
			withFeedback++
		}

		score := scoring.Resolve(s)
		if score <= 0 {
			continue
		}
		resolved = append(resolved, score)

		if s.CompletedAt == nil || s.CompletedAt.Before(since) || s.CompletedAt.After(now) {
			continue
		}
		if s.CompletedAt.Before(mid) {
			firstHalf = append(firstHalf, score)
		} else {
			secondHalf = append(secondHalf, score)
		}
	}

	out.ActiveStudents = len(active)
	out.AverageStudentScore = scoring.Round2(scoring.Mean(resolved))
	if completed > 0 {
		out.FeedbackCompletionRate = scoring.Round2(float64(withFeedback) / float64(completed) * 100)
	}
	if len(firstHalf) > 0 && len(secondHalf) > 0 {
		first := scoring.Mean(firstHalf)
		if first > 0 {
			out.StudentImprovementRate = scoring.Round2((scoring.Mean(secondHalf) - first) / first * 100)
		}
	}
	return out
}
