package services

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/cache"
	"github.com/yoockh/yoointerview/internal/consistency"
	"github.com/yoockh/yoointerview/internal/events"
	"github.com/yoockh/yoointerview/internal/lock"
	"github.com/yoockh/yoointerview/internal/models"
	pgrepo "github.com/yoockh/yoointerview/internal/repositories/postgres"
)

type RecomputeMode string

const (
	ModeSync  RecomputeMode = "sync"
	ModeAsync RecomputeMode = "async"
)

const (
	JobStudentProgress = "student_progress"
	JobTeacherStats    = "teacher_stats"
)

type RecomputeJob struct {
	Kind    string `json:"kind"`
	OwnerID string `json:"owner_id"`
}

// RecomputeQueue hands jobs to the async worker.
type RecomputeQueue interface {
	Enqueue(ctx context.Context, job RecomputeJob) error
}

type RecomputerDeps struct {
	Guard    *consistency.Guard
	Locker   lock.Locker
	Progress ProgressAggregator
	Fleet    FleetAggregator
	Stats    pgrepo.TeacherStatsRepository
	Cache    cache.Cache
	Queue    RecomputeQueue // async mode only
	Log      logrus.FieldLogger
}

type RecomputerConfig struct {
	Mode     RecomputeMode
	LockWait time.Duration
}

// Recomputer is the only path that writes aggregates: per-owner lock, then
// liveness, then EnsureAndRecompute, then cache invalidation.
type Recomputer struct {
	d   RecomputerDeps
	cfg RecomputerConfig
	log logrus.FieldLogger
}

func NewRecomputer(d RecomputerDeps, cfg RecomputerConfig) *Recomputer {
	if cfg.LockWait <= 0 {
		cfg.LockWait = 2 * time.Second
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSync
	}
	if d.Cache == nil {
		d.Cache = cache.Noop{}
	}
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recomputer{d: d, cfg: cfg, log: log}
}

// Register subscribes the recompute handlers. Student progress runs before
// teacher invalidation for every event.
func (r *Recomputer) Register(bus *events.Bus) {
	events.On(bus, "progress.session_deleted", func(ctx context.Context, ev events.EntityDeleted) error {
		if ev.Entity != events.EntitySession {
			return nil
		}
		return r.triggerStudent(ctx, ev.StudentID)
	})
	events.On(bus, "teacher_stats.session_deleted", func(ctx context.Context, ev events.EntityDeleted) error {
		return r.InvalidateTeacher(ctx, ev.TeacherID)
	})
	events.On(bus, "progress.feedback_saved", func(ctx context.Context, ev events.FeedbackSaved) error {
		return r.triggerStudent(ctx, ev.StudentID)
	})
	events.On(bus, "teacher_stats.feedback_saved", func(ctx context.Context, ev events.FeedbackSaved) error {
		return r.InvalidateTeacher(ctx, ev.TeacherID)
	})
	events.On(bus, "progress.feedback_deleted", func(ctx context.Context, ev events.FeedbackDeleted) error {
		return r.triggerStudent(ctx, ev.StudentID)
	})
	events.On(bus, "teacher_stats.feedback_deleted", func(ctx context.Context, ev events.FeedbackDeleted) error {
		return r.InvalidateTeacher(ctx, ev.TeacherID)
	})
}

func (r *Recomputer) triggerStudent(ctx context.Context, studentID string) error {
	if studentID == "" || consistency.CascadeInProgress(ctx, studentID) {
		r.log.WithField("student_id", studentID).Debug("student being deleted, progress recompute skipped")
		return nil
	}

	if r.cfg.Mode == ModeAsync && r.d.Queue != nil {
		err := r.d.Queue.Enqueue(ctx, RecomputeJob{Kind: JobStudentProgress, OwnerID: studentID})
		if err == nil {
			return nil
		}
		r.log.WithField("student_id", studentID).WithError(err).Warn("enqueue failed, recomputing inline")
	}

	_, _, err := r.RecomputeStudent(ctx, studentID)
	return err
}

// Run executes a queued job.
func (r *Recomputer) Run(ctx context.Context, job RecomputeJob) error {
	switch job.Kind {
	case JobStudentProgress:
		_, _, err := r.RecomputeStudent(ctx, job.OwnerID)
		return err
	case JobTeacherStats:
		_, _, err := r.RecomputeTeacher(ctx, job.OwnerID)
		return err
	default:
		r.log.WithField("kind", job.Kind).Warn("unknown recompute job dropped")
		return nil
	}
}

// RecomputeStudent refreshes one student's progress. ran is false when the
// run was skipped: lock wait exceeded or the student is not live.
func (r *Recomputer) RecomputeStudent(ctx context.Context, studentID string) (*models.StudentProgress, bool, error) {
	var out *models.StudentProgress
	ran, err := r.locked(ctx, "progress:"+studentID, studentID, func(ctx context.Context) error {
		p, err := r.d.Progress.EnsureAndRecompute(ctx, studentID)
		out = p
		return err
	})
	if err != nil {
		r.log.WithField("student_id", studentID).WithError(err).Error("progress recompute failed")
		return nil, false, err
	}
	if ran {
		r.dropCache(ctx, cache.ProgressKey(studentID))
	}
	return out, ran, nil
}

func (r *Recomputer) RecomputeTeacher(ctx context.Context, teacherID string) (*models.TeacherStats, bool, error) {
	var out *models.TeacherStats
	ran, err := r.locked(ctx, "teacher_stats:"+teacherID, teacherID, func(ctx context.Context) error {
		st, err := r.d.Fleet.EnsureAndRecompute(ctx, teacherID)
		out = st
		return err
	})
	if err != nil {
		r.log.WithField("teacher_id", teacherID).WithError(err).Error("teacher stats recompute failed")
		return nil, false, err
	}
	if ran {
		r.dropCache(ctx, cache.TeacherStatsKey(teacherID))
	}
	return out, ran, nil
}

// InvalidateTeacher marks the teacher's stats stale so the next read
// recomputes them.
func (r *Recomputer) InvalidateTeacher(ctx context.Context, teacherID string) error {
	if teacherID == "" || consistency.CascadeInProgress(ctx, teacherID) {
		return nil
	}
	if err := r.d.Stats.MarkStale(ctx, teacherID); err != nil {
		r.log.WithField("teacher_id", teacherID).WithError(err).Error("failed to mark teacher stats stale")
		return err
	}
	r.dropCache(ctx, cache.TeacherStatsKey(teacherID))
	return nil
}

func (r *Recomputer) locked(ctx context.Context, key, ownerID string, fn func(context.Context) error) (bool, error) {
	release, err := r.d.Locker.Acquire(ctx, key, r.cfg.LockWait)
	if errors.Is(err, lock.ErrTimeout) {
		r.log.WithFields(logrus.Fields{"lock": key, "owner_id": ownerID}).Warn("recompute lock wait exceeded, skipped")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer release()

	return r.d.Guard.Run(ctx, ownerID, fn)
}

func (r *Recomputer) dropCache(ctx context.Context, key string) {
	if err := r.d.Cache.Del(ctx, key); err != nil {
		r.log.WithField("key", key).WithError(err).Warn("cache invalidation failed")
	}
}
