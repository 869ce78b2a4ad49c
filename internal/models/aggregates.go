package models

import "time"

type ScoreTrend string

const (
	TrendImproving ScoreTrend = "improving"
	TrendDeclining ScoreTrend = "declining"
	TrendStable    ScoreTrend = "stable"
)

// StudentProgress is derived only by the progress aggregator, never edited by hand.
type StudentProgress struct {
	StudentID             string     `gorm:"column:student_id;type:uuid;primaryKey" json:"student_id"`
	TotalInterviews       int        `gorm:"column:total_interviews" json:"total_interviews"`
	CompletedInterviews   int        `gorm:"column:completed_interviews" json:"completed_interviews"`
	AverageScore          float64    `gorm:"column:average_score" json:"average_score"`
	TechnicalAverage      float64    `gorm:"column:technical_average" json:"technical_average"`
	CommunicationAverage  float64    `gorm:"column:communication_average" json:"communication_average"`
	AptitudeAverage       float64    `gorm:"column:aptitude_average" json:"aptitude_average"`
	ScoreTrend            ScoreTrend `gorm:"column:score_trend;type:text" json:"score_trend"`
	ImprovementPercentage float64    `gorm:"column:improvement_percentage" json:"improvement_percentage"`
	LastInterviewDate     *time.Time `gorm:"column:last_interview_date;type:timestamptz" json:"last_interview_date"`
	StreakDays            int        `gorm:"column:streak_days" json:"streak_days"`
	CalculatedAt          time.Time  `gorm:"column:calculated_at;type:timestamptz" json:"calculated_at"`
}

func (StudentProgress) TableName() string { return "student_progress" }

type TeacherStats struct {
	TeacherID                string     `gorm:"column:teacher_id;type:uuid;primaryKey" json:"teacher_id"`
	TotalStudents            int        `gorm:"column:total_students" json:"total_students"`
	ActiveStudents           int        `gorm:"column:active_students" json:"active_students"`
	TotalInterviewsConducted int        `gorm:"column:total_interviews_conducted" json:"total_interviews_conducted"`
	InterviewsThisMonth      int        `gorm:"column:interviews_this_month" json:"interviews_this_month"`
	AverageStudentScore      float64    `gorm:"column:average_student_score" json:"average_student_score"`
	FeedbackCompletionRate   float64    `gorm:"column:feedback_completion_rate" json:"feedback_completion_rate"`
	StudentImprovementRate   float64    `gorm:"column:student_improvement_rate" json:"student_improvement_rate"`
	LastActivityDate         *time.Time `gorm:"column:last_activity_date;type:timestamptz" json:"last_activity_date"`
	Stale                    bool       `gorm:"column:stale" json:"-"`
	UpdatedAt                time.Time  `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (TeacherStats) TableName() string { return "teacher_stats" }

type Achievement struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	EarnedAt    time.Time `json:"earned_at"`
}
