package postgres

import (
	"context"

	"github.com/yoockh/yoointerview/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TeacherStudentRepository interface {
	Assign(ctx context.Context, m *models.TeacherStudent) error
	CountActiveStudents(ctx context.Context, teacherID string) (int64, error)
	TeacherIDsForStudent(ctx context.Context, studentID string) ([]string, error)
}

type teacherStudentRepo struct {
	db *gorm.DB
}

func NewTeacherStudentRepo(db *gorm.DB) TeacherStudentRepository {
	return &teacherStudentRepo{db: db}
}

func (r *teacherStudentRepo) Assign(ctx context.Context, m *models.TeacherStudent) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "teacher_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_active", "assigned_at"}),
		}).
		Create(m).Error)
}

func (r *teacherStudentRepo) CountActiveStudents(ctx context.Context, teacherID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.TeacherStudent{}).
		Where("teacher_id = ? AND is_active = ?", teacherID, true).
		Count(&n).Error
	return n, translate(err)
}

func (r *teacherStudentRepo) TeacherIDsForStudent(ctx context.Context, studentID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.TeacherStudent{}).
		Where("student_id = ?", studentID).
		Distinct().
		Pluck("teacher_id", &ids).Error
	return ids, translate(err)
}
