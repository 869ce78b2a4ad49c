package postgres

import (
	"context"
	"errors"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FeedbackRepository interface {
	GetBySession(ctx context.Context, sessionID string) (*models.Feedback, error)
	// Upsert creates or replaces the session's feedback and reports which.
	Upsert(ctx context.Context, f *models.Feedback) (created bool, err error)
	DeleteBySession(ctx context.Context, sessionID string) error
	// ListForCompletedSessions returns the student's feedback on completed
	// sessions, most recently completed first.
	ListForCompletedSessions(ctx context.Context, studentID string) ([]models.FeedbackWithSession, error)
}

type feedbackRepo struct {
	db *gorm.DB
}

func NewFeedbackRepo(db *gorm.DB) FeedbackRepository {
	return &feedbackRepo{db: db}
}

func (r *feedbackRepo) GetBySession(ctx context.Context, sessionID string) (*models.Feedback, error) {
	var f models.Feedback
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&f).Error; err != nil {
		return nil, translate(err)
	}
	return &f, nil
}

func (r *feedbackRepo) Upsert(ctx context.Context, f *models.Feedback) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Feedback
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ?", f.SessionID).
			Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			return tx.Create(f).Error
		case err != nil:
			return err
		}
		f.ID = existing.ID
		f.CreatedAt = existing.CreatedAt
		return tx.Save(f).Error
	})
	return created, translate(err)
}

func (r *feedbackRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	res := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&models.Feedback{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *feedbackRepo) ListForCompletedSessions(ctx context.Context, studentID string) ([]models.FeedbackWithSession, error) {
	var rows []models.FeedbackWithSession
	err := r.db.WithContext(ctx).
		Table("interview_feedback AS f").
		Select("f.*, s.interview_type, s.completed_at").
		Joins("JOIN interview_sessions AS s ON s.id = f.session_id").
		Where("s.student_id = ? AND s.status = ?", studentID, models.StatusCompleted).
		Order("s.completed_at DESC, f.created_at DESC").
		Scan(&rows).Error
	return rows, translate(err)
}
