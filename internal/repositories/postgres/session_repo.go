package postgres

import (
	"context"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.InterviewSession) error
	// GetByID loads the session row only.
	GetByID(ctx context.Context, id string) (*models.InterviewSession, error)
	// GetWithChildren also loads questions (ordered), their responses and the feedback.
	GetWithChildren(ctx context.Context, id string) (*models.InterviewSession, error)
	// Save writes the session's own columns; children are left alone.
	Save(ctx context.Context, s *models.InterviewSession) error
	// Delete removes the session; questions, responses, feedback and
	// analytics cascade in the database.
	Delete(ctx context.Context, id string) error
	// ListByStudent and ListByTeacher return sessions with children, oldest first.
	ListByStudent(ctx context.Context, studentID string) ([]models.InterviewSession, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.InterviewSession, error)
	ListOverdueScheduled(ctx context.Context, now time.Time, limit int) ([]models.InterviewSession, error)
}

type sessionRepo struct {
	db *gorm.DB
}

func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Questions", func(tx *gorm.DB) *gorm.DB { return tx.Order("order_index ASC") }).
		Preload("Questions.Response").
		Preload("Feedback")
}

func (r *sessionRepo) Create(ctx context.Context, s *models.InterviewSession) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(s).Error)
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*models.InterviewSession, error) {
	var s models.InterviewSession
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *sessionRepo) GetWithChildren(ctx context.Context, id string) (*models.InterviewSession, error) {
	var s models.InterviewSession
	if err := withChildren(r.db.WithContext(ctx)).Where("id = ?", id).Take(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *sessionRepo) Save(ctx context.Context, s *models.InterviewSession) error {
	res := r.db.WithContext(ctx).
		Model(&models.InterviewSession{}).
		Where("id = ?", s.ID).
		Omit(clause.Associations, "id", "created_at").
		Select("*").
		Updates(s)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.InterviewSession{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) ListByStudent(ctx context.Context, studentID string) ([]models.InterviewSession, error) {
	var rows []models.InterviewSession
	err := withChildren(r.db.WithContext(ctx)).
		Where("student_id = ?", studentID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, translate(err)
}

func (r *sessionRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.InterviewSession, error) {
	var rows []models.InterviewSession
	err := withChildren(r.db.WithContext(ctx)).
		Where("teacher_id = ?", teacherID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, translate(err)
}

func (r *sessionRepo) ListOverdueScheduled(ctx context.Context, now time.Time, limit int) ([]models.InterviewSession, error) {
	if limit <= 0 {
		limit = 200
	}
	var rows []models.InterviewSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_at < ?", models.StatusScheduled, now).
		Order("end_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, translate(err)
}
