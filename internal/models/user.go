package models

import "time"

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// User mirrors the auth provider account; only the fields the interview core reads.
type User struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"column:email;type:text;uniqueIndex" json:"email"`
	FullName  string    `gorm:"column:full_name;type:text" json:"full_name"`
	Role      UserRole  `gorm:"column:role;type:text;index" json:"role"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz" json:"created_at"`
}

func (User) TableName() string { return "users" }

// TeacherStudent assigns a student to a teacher. Only active rows count toward TeacherStats.
type TeacherStudent struct {
	ID         string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	TeacherID  string    `gorm:"column:teacher_id;type:uuid;uniqueIndex:uniq_teacher_student" json:"teacher_id"`
	StudentID  string    `gorm:"column:student_id;type:uuid;uniqueIndex:uniq_teacher_student;index" json:"student_id"`
	IsActive   bool      `gorm:"column:is_active" json:"is_active"`
	AssignedAt time.Time `gorm:"column:assigned_at;type:timestamptz" json:"assigned_at"`
}

func (TeacherStudent) TableName() string { return "teacher_students" }
