package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/cache"
	"github.com/yoockh/yoointerview/internal/consistency"
	"github.com/yoockh/yoointerview/internal/models"
	pgrepo "github.com/yoockh/yoointerview/internal/repositories/postgres"
	"github.com/yoockh/yoointerview/internal/utils"
)

type AccountService interface {
	// Register mirrors an identity-provider account locally.
	Register(ctx context.Context, u *models.User) (*models.User, error)
	AssignStudent(ctx context.Context, teacherID, studentID string) error
	// DeleteAccount removes the user and everything they own. Aggregate
	// handlers triggered along the way see the cascade marker and skip.
	DeleteAccount(ctx context.Context, userID string) error
}

type accountService struct {
	users      pgrepo.UserRepository
	links      pgrepo.TeacherStudentRepository
	sessions   pgrepo.SessionRepository
	interviews InterviewService
	recomputer *Recomputer
	cache      cache.Cache
	log        logrus.FieldLogger
}

func NewAccountService(
	users pgrepo.UserRepository,
	links pgrepo.TeacherStudentRepository,
	sessions pgrepo.SessionRepository,
	interviews InterviewService,
	recomputer *Recomputer,
	c cache.Cache,
	log logrus.FieldLogger,
) AccountService {
	if c == nil {
		c = cache.Noop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &accountService{
		users:      users,
		links:      links,
		sessions:   sessions,
		interviews: interviews,
		recomputer: recomputer,
		cache:      c,
		log:        log,
	}
}

func (s *accountService) Register(ctx context.Context, u *models.User) (*models.User, error) {
	const op = "AccountService.Register"

	if u == nil || strings.TrimSpace(u.Email) == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "email is required", nil)
	}
	switch u.Role {
	case models.RoleStudent, models.RoleTeacher, models.RoleAdmin:
	default:
		return nil, utils.E(utils.CodeInvalidArgument, op, "role must be student, teacher or admin", nil)
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = time.Now().UTC()

	if err := s.users.Create(ctx, u); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create user", err)
	}
	return u, nil
}

func (s *accountService) AssignStudent(ctx context.Context, teacherID, studentID string) error {
	const op = "AccountService.AssignStudent"

	if teacherID == "" || studentID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "teacher_id and student_id are required", nil)
	}
	err := s.links.Assign(ctx, &models.TeacherStudent{
		ID:         uuid.NewString(),
		TeacherID:  teacherID,
		StudentID:  studentID,
		IsActive:   true,
		AssignedAt: time.Now().UTC(),
	})
	if err != nil {
		if utils.IsReferentialViolation(err) {
			return utils.E(utils.CodeNotFound, op, "teacher or student not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to assign student", err)
	}
	if s.recomputer != nil {
		if err := s.recomputer.InvalidateTeacher(ctx, teacherID); err != nil {
			s.log.WithField("teacher_id", teacherID).WithError(err).Warn("teacher stats not invalidated after assignment")
		}
	}
	return nil
}

func (s *accountService) DeleteAccount(ctx context.Context, userID string) error {
	const op = "AccountService.DeleteAccount"

	if userID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return notFoundOr(op, "user", err)
	}

	ctx = consistency.WithCascadeDelete(ctx, userID)
	log := s.log.WithFields(logrus.Fields{"user_id": userID, "role": u.Role})

	var owned []models.InterviewSession
	switch u.Role {
	case models.RoleStudent:
		owned, err = s.sessions.ListByStudent(ctx, userID)
	case models.RoleTeacher:
		owned, err = s.sessions.ListByTeacher(ctx, userID)
	}
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to list sessions", err)
	}

	teachers := map[string]struct{}{}
	if u.Role == models.RoleStudent {
		ids, err := s.links.TeacherIDsForStudent(ctx, userID)
		if err != nil {
			return utils.E(utils.CodeInternal, op, "failed to list teachers", err)
		}
		for _, id := range ids {
			teachers[id] = struct{}{}
		}
	}

	for _, sess := range owned {
		teachers[sess.TeacherID] = struct{}{}
		if err := s.interviews.Delete(ctx, sess.ID, ""); err != nil {
			switch {
			case utils.IsCode(err, utils.CodeNotFound):
			case errors.Is(err, ErrAggregatesNotRefreshed):
				log.WithField("session_id", sess.ID).WithError(err).Warn("session deleted with handler errors")
			default:
				return err
			}
		}
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return notFoundOr(op, "user", err)
	}
	delete(teachers, userID)

	for id := range teachers {
		if s.recomputer == nil {
			break
		}
		if err := s.recomputer.InvalidateTeacher(ctx, id); err != nil {
			log.WithField("teacher_id", id).WithError(err).Warn("teacher stats not invalidated")
		}
	}
	if err := s.cache.Del(ctx, cache.ProgressKey(userID), cache.TeacherStatsKey(userID)); err != nil {
		log.WithError(err).Warn("cache invalidation failed")
	}

	log.WithField("sessions", len(owned)).Info("account deleted")
	return nil
}
