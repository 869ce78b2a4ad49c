package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/cache"
	"github.com/yoockh/yoointerview/internal/models"
	pgrepo "github.com/yoockh/yoointerview/internal/repositories/postgres"
	"github.com/yoockh/yoointerview/internal/utils"
)

type DashboardService interface {
	// GetStudentProgress reads the materialized row and never recomputes.
	GetStudentProgress(ctx context.Context, studentID string) (*models.StudentProgress, error)
	// GetTeacherStats recomputes when the row is missing, stale or older
	// than the staleness window. Recompute failures fall back to the last
	// persisted snapshot.
	GetTeacherStats(ctx context.Context, teacherID string) (*models.TeacherStats, error)
	Achievements(ctx context.Context, studentID string) ([]models.Achievement, error)
	TopPerformers(ctx context.Context, limit int) ([]models.StudentProgress, error)
}

type DashboardDeps struct {
	Users      pgrepo.UserRepository
	Sessions   pgrepo.SessionRepository
	Progress   pgrepo.ProgressRepository
	Stats      pgrepo.TeacherStatsRepository
	Recomputer *Recomputer
	Cache      cache.Cache
	Log        logrus.FieldLogger
}

type DashboardConfig struct {
	Staleness time.Duration
	CacheTTL  time.Duration
}

type dashboardService struct {
	d   DashboardDeps
	cfg DashboardConfig
	now func() time.Time
}

const highAchieverScore = 90

func NewDashboardService(d DashboardDeps, cfg DashboardConfig, now func() time.Time) DashboardService {
	if cfg.Staleness <= 0 {
		cfg.Staleness = time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &dashboardService{d: d, cfg: cfg, now: now}
}

func (s *dashboardService) GetStudentProgress(ctx context.Context, studentID string) (*models.StudentProgress, error) {
	const op = "DashboardService.GetStudentProgress"

	if studentID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "student_id is required", nil)
	}

	var cached models.StudentProgress
	if hit, err := s.d.Cache.GetJSON(ctx, cache.ProgressKey(studentID), &cached); err == nil && hit {
		return &cached, nil
	} else if err != nil {
		s.d.Log.WithField("student_id", studentID).WithError(err).Warn("progress cache read failed")
	}

	p, err := s.d.Progress.Get(ctx, studentID)
	switch {
	case err == nil:
	case errors.Is(err, utils.ErrNotFound):
		ok, err := s.d.Users.Exists(ctx, studentID)
		if err != nil {
			return nil, utils.E(utils.CodeInternal, op, "failed to check student", err)
		}
		if !ok {
			return nil, utils.E(utils.CodeNotFound, op, "student not found", nil)
		}
		// Not derived yet; nothing is cached so the first recompute shows up.
		return &models.StudentProgress{StudentID: studentID, ScoreTrend: models.TrendStable}, nil
	default:
		return nil, utils.E(utils.CodeInternal, op, "failed to load progress", err)
	}

	if err := s.d.Cache.SetJSON(ctx, cache.ProgressKey(studentID), p, s.cfg.CacheTTL); err != nil {
		s.d.Log.WithField("student_id", studentID).WithError(err).Warn("progress cache write failed")
	}
	return p, nil
}

func (s *dashboardService) GetTeacherStats(ctx context.Context, teacherID string) (*models.TeacherStats, error) {
	const op = "DashboardService.GetTeacherStats"

	if teacherID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "teacher_id is required", nil)
	}
	log := s.d.Log.WithField("teacher_id", teacherID)

	var cached models.TeacherStats
	if hit, err := s.d.Cache.GetJSON(ctx, cache.TeacherStatsKey(teacherID), &cached); err == nil && hit && s.fresh(&cached) {
		return &cached, nil
	}

	last, err := s.d.Stats.Get(ctx, teacherID)
	if err != nil && !errors.Is(err, utils.ErrNotFound) {
		return nil, utils.E(utils.CodeInternal, op, "failed to load teacher stats", err)
	}
	if last != nil && !last.Stale && s.fresh(last) {
		s.store(ctx, log, last)
		return last, nil
	}

	st, ran, err := s.d.Recomputer.RecomputeTeacher(ctx, teacherID)
	if err == nil && ran && st != nil {
		s.store(ctx, log, st)
		return st, nil
	}
	if err != nil {
		log.WithError(err).Warn("serving last teacher stats snapshot")
	}
	if last != nil {
		return last, nil
	}

	ok, exErr := s.d.Users.Exists(ctx, teacherID)
	if exErr != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to check teacher", exErr)
	}
	if !ok {
		return nil, utils.E(utils.CodeNotFound, op, "teacher not found", nil)
	}
	return &models.TeacherStats{TeacherID: teacherID}, nil
}

func (s *dashboardService) fresh(st *models.TeacherStats) bool {
	return s.now().Sub(st.UpdatedAt) < s.cfg.Staleness
}

func (s *dashboardService) store(ctx context.Context, log logrus.FieldLogger, st *models.TeacherStats) {
	if err := s.d.Cache.SetJSON(ctx, cache.TeacherStatsKey(st.TeacherID), st, s.cfg.CacheTTL); err != nil {
		log.WithError(err).Warn("teacher stats cache write failed")
	}
}

func (s *dashboardService) Achievements(ctx context.Context, studentID string) ([]models.Achievement, error) {
	const op = "DashboardService.Achievements"

	if studentID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "student_id is required", nil)
	}
	sessions, err := s.d.Sessions.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list sessions", err)
	}

	var completed []models.InterviewSession
	for _, sess := range sessions {
		if sess.Status == models.StatusCompleted && sess.CompletedAt != nil {
			completed = append(completed, sess)
		}
	}
	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].CompletedAt.Before(*completed[j].CompletedAt)
	})

	out := []models.Achievement{}
	if len(completed) >= 1 {
		out = append(out, models.Achievement{
			Title:       "First Interview Completed",
			Description: "Completed your first interview",
			Icon:        "trophy",
			EarnedAt:    *completed[0].CompletedAt,
		})
	}
	if len(completed) >= 5 {
		out = append(out, models.Achievement{
			Title:       "Interview Veteran",
			Description: "Completed 5 interviews",
			Icon:        "star",
			EarnedAt:    *completed[4].CompletedAt,
		})
	}
	for _, sess := range completed {
		if hasScoreAtLeast(sess.Questions, highAchieverScore) {
			out = append(out, models.Achievement{
				Title:       "High Achiever",
				Description: "Scored 90+ in an interview",
				Icon:        "award",
				EarnedAt:    *sess.CompletedAt,
			})
			break
		}
	}
	return out, nil
}

func hasScoreAtLeast(qs []models.Question, min int) bool {
	for _, q := range qs {
		if q.Response != nil && q.Response.Score != nil && *q.Response.Score >= min {
			return true
		}
	}
	return false
}

func (s *dashboardService) TopPerformers(ctx context.Context, limit int) ([]models.StudentProgress, error) {
	const op = "DashboardService.TopPerformers"

	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	out, err := s.d.Progress.TopPerformers(ctx, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list top performers", err)
	}
	return out, nil
}
