package postgres

import (
	"context"

	"github.com/yoockh/yoointerview/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository interface {
	Get(ctx context.Context, studentID string) (*models.StudentProgress, error)
	// Upsert replaces every column of the row in one statement.
	Upsert(ctx context.Context, p *models.StudentProgress) error
	TopPerformers(ctx context.Context, limit int) ([]models.StudentProgress, error)
}

type TeacherStatsRepository interface {
	Get(ctx context.Context, teacherID string) (*models.TeacherStats, error)
	Upsert(ctx context.Context, s *models.TeacherStats) error
	// MarkStale forces the next read to recompute. A missing row is not an error.
	MarkStale(ctx context.Context, teacherID string) error
}

type progressRepo struct {
	db *gorm.DB
}

func NewProgressRepo(db *gorm.DB) ProgressRepository {
	return &progressRepo{db: db}
}

func (r *progressRepo) Get(ctx context.Context, studentID string) (*models.StudentProgress, error) {
	var p models.StudentProgress
	if err := r.db.WithContext(ctx).Where("student_id = ?", studentID).Take(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *progressRepo) Upsert(ctx context.Context, p *models.StudentProgress) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}},
			UpdateAll: true,
		}).
		Create(p).Error)
}

func (r *progressRepo) TopPerformers(ctx context.Context, limit int) ([]models.StudentProgress, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.StudentProgress
	err := r.db.WithContext(ctx).
		Where("completed_interviews > 0").
		Order("average_score DESC, student_id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, translate(err)
}

type teacherStatsRepo struct {
	db *gorm.DB
}

func NewTeacherStatsRepo(db *gorm.DB) TeacherStatsRepository {
	return &teacherStatsRepo{db: db}
}

func (r *teacherStatsRepo) Get(ctx context.Context, teacherID string) (*models.TeacherStats, error) {
	var s models.TeacherStats
	if err := r.db.WithContext(ctx).Where("teacher_id = ?", teacherID).Take(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *teacherStatsRepo) Upsert(ctx context.Context, s *models.TeacherStats) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "teacher_id"}},
			UpdateAll: true,
		}).
		Create(s).Error)
}

func (r *teacherStatsRepo) MarkStale(ctx context.Context, teacherID string) error {
	return translate(r.db.WithContext(ctx).
		Model(&models.TeacherStats{}).
		Where("teacher_id = ?", teacherID).
		Update("stale", true).Error)
}
