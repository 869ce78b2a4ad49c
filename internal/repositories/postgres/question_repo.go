package postgres

import (
	"context"

	"github.com/yoockh/yoointerview/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuestionRepository interface {
	// CreateBatch inserts the whole set or nothing.
	CreateBatch(ctx context.Context, qs []models.Question) error
	ListBySession(ctx context.Context, sessionID string) ([]models.Question, error)
	GetByID(ctx context.Context, id string) (*models.Question, error)
	// UpsertResponse keeps at most one response per question.
	UpsertResponse(ctx context.Context, resp *models.Response) error
}

type questionRepo struct {
	db *gorm.DB
}

func NewQuestionRepo(db *gorm.DB) QuestionRepository {
	return &questionRepo{db: db}
}

func (r *questionRepo) CreateBatch(ctx context.Context, qs []models.Question) error {
	if len(qs) == 0 {
		return nil
	}
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&qs).Error
	}))
}

func (r *questionRepo) ListBySession(ctx context.Context, sessionID string) ([]models.Question, error) {
	var rows []models.Question
	err := r.db.WithContext(ctx).
		Preload("Response").
		Where("session_id = ?", sessionID).
		Order("order_index ASC").
		Find(&rows).Error
	return rows, translate(err)
}

func (r *questionRepo) GetByID(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	if err := r.db.WithContext(ctx).Preload("Response").Where("id = ?", id).Take(&q).Error; err != nil {
		return nil, translate(err)
	}
	return &q, nil
}

func (r *questionRepo) UpsertResponse(ctx context.Context, resp *models.Response) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"answer_text", "audio_path", "score", "ai_feedback", "scored_by", "time_taken_seconds", "submitted_at",
			}),
		}).
		Create(resp).Error)
}
