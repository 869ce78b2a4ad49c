package models

import (
	"time"

	"github.com/lib/pq"
)

// Feedback is the holistic post-completion evaluation of a session and
// the authoritative score source once it exists.
type Feedback struct {
	ID                  string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID           string         `gorm:"column:session_id;type:uuid;uniqueIndex" json:"session_id"`
	OverallScore        int            `gorm:"column:overall_score" json:"overall_score"`
	TechnicalScore      *int           `gorm:"column:technical_score" json:"technical_score"`
	CommunicationScore  *int           `gorm:"column:communication_score" json:"communication_score"`
	ProblemSolvingScore *int           `gorm:"column:problem_solving_score" json:"problem_solving_score"`
	Summary             string         `gorm:"column:summary;type:text" json:"summary"`
	Strengths           pq.StringArray `gorm:"column:strengths;type:text[]" json:"strengths"`
	Weaknesses          pq.StringArray `gorm:"column:weaknesses;type:text[]" json:"weaknesses"`
	Recommendations     pq.StringArray `gorm:"column:recommendations;type:text[]" json:"recommendations"`
	GeneratedBy         string         `gorm:"column:generated_by;type:text" json:"generated_by"` // ai|fallback|teacher
	CreatedAt           time.Time      `gorm:"column:created_at;type:timestamptz" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Feedback) TableName() string { return "interview_feedback" }

// FeedbackWithSession is a feedback row joined with the session columns the
// progress aggregate needs.
type FeedbackWithSession struct {
	Feedback      `gorm:"embedded"`
	InterviewType InterviewType `gorm:"column:interview_type" json:"interview_type"`
	CompletedAt   *time.Time    `gorm:"column:completed_at" json:"completed_at"`
}

type InterviewAnalytics struct {
	ID                   string     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID            string     `gorm:"column:session_id;type:uuid;uniqueIndex" json:"session_id"`
	TotalQuestions       int        `gorm:"column:total_questions" json:"total_questions"`
	QuestionsAnswered    int        `gorm:"column:questions_answered" json:"questions_answered"`
	AverageResponseTime  float64    `gorm:"column:average_response_time" json:"average_response_time"` // seconds
	CompletionPercentage float64    `gorm:"column:completion_percentage" json:"completion_percentage"`
	PerformanceTrend     ScoreTrend `gorm:"column:performance_trend;type:text" json:"performance_trend"`
	GeneratedAt          time.Time  `gorm:"column:generated_at;type:timestamptz" json:"generated_at"`
}

func (InterviewAnalytics) TableName() string { return "interview_analytics" }
