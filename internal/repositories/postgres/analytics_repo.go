package postgres

import (
	"context"

	"github.com/yoockh/yoointerview/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AnalyticsRepository interface {
	Upsert(ctx context.Context, a *models.InterviewAnalytics) error
	GetBySession(ctx context.Context, sessionID string) (*models.InterviewAnalytics, error)
}

type analyticsRepo struct {
	db *gorm.DB
}

func NewAnalyticsRepo(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepo{db: db}
}

func (r *analyticsRepo) Upsert(ctx context.Context, a *models.InterviewAnalytics) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_questions", "questions_answered", "average_response_time",
				"completion_percentage", "performance_trend", "generated_at",
			}),
		}).
		Create(a).Error)
}

func (r *analyticsRepo) GetBySession(ctx context.Context, sessionID string) (*models.InterviewAnalytics, error) {
	var a models.InterviewAnalytics
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}
