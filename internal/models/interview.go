package models

import (
	"time"

	"gorm.io/datatypes"
)

type InterviewType string

const (
	InterviewTechnical     InterviewType = "technical"
	InterviewCommunication InterviewType = "communication"
	InterviewAptitude      InterviewType = "aptitude"
)

func (t InterviewType) Valid() bool {
	switch t {
	case InterviewTechnical, InterviewCommunication, InterviewAptitude:
		return true
	}
	return false
}

type SessionStatus string

const (
	StatusScheduled  SessionStatus = "scheduled"
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusMissed     SessionStatus = "missed"
	StatusCancelled  SessionStatus = "cancelled"
	StatusTerminated SessionStatus = "terminated"
)

// Terminal reports whether no further transition is allowed out of s.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusMissed, StatusCancelled, StatusTerminated:
		return true
	}
	return false
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Security event types reported by the exam client.
const (
	EventTabSwitch      = "tab_switch"
	EventWarning        = "warning"
	EventDevTools       = "dev_tools"
	EventCopyAttempt    = "copy_attempt"
	EventPasteAttempt   = "paste_attempt"
	EventWindowBlur     = "window_blur"
	EventFullscreenExit = "fullscreen_exit"
)

type SecurityViolation struct {
	Type       string         `json:"type"`
	Payload    map[string]any `json:"payload,omitempty"`
	RecordedAt time.Time      `json:"recorded_at"`
}

type InterviewSession struct {
	ID            string        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	StudentID     string        `gorm:"column:student_id;type:uuid;index" json:"student_id"`
	TeacherID     string        `gorm:"column:teacher_id;type:uuid;index" json:"teacher_id"`
	Title         string        `gorm:"column:title;type:text" json:"title"`
	InterviewType InterviewType `gorm:"column:interview_type;type:text" json:"interview_type"`
	Difficulty    Difficulty    `gorm:"column:difficulty;type:text" json:"difficulty"`
	HardenedMode  bool          `gorm:"column:hardened_mode" json:"hardened_mode"`
	Status        SessionStatus `gorm:"column:status;type:text;index" json:"status"`

	ScheduledAt     time.Time  `gorm:"column:scheduled_at;type:timestamptz" json:"scheduled_at"`
	EndAt           time.Time  `gorm:"column:end_at;type:timestamptz" json:"end_at"`
	DurationMinutes int        `gorm:"column:duration_minutes" json:"duration_minutes"`
	StartedAt       *time.Time `gorm:"column:started_at;type:timestamptz" json:"started_at,omitempty"`
	CompletedAt     *time.Time `gorm:"column:completed_at;type:timestamptz" json:"completed_at,omitempty"`

	TabSwitches        int                                    `gorm:"column:tab_switches" json:"tab_switches"`
	WarningCount       int                                    `gorm:"column:warning_count" json:"warning_count"`
	SecurityViolations datatypes.JSONSlice[SecurityViolation] `gorm:"column:security_violations;type:jsonb" json:"security_violations"`
	IsSessionValid     bool                                   `gorm:"column:is_session_valid" json:"is_session_valid"`
	TerminationReason  string                                 `gorm:"column:termination_reason;type:text" json:"termination_reason,omitempty"`
	TerminatedAt       *time.Time                             `gorm:"column:terminated_at;type:timestamptz" json:"terminated_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`

	Questions []Question          `gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"questions,omitempty"`
	Feedback  *Feedback           `gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"feedback,omitempty"`
	Analytics *InterviewAnalytics `gorm:"foreignKey:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"analytics,omitempty"`
}

func (InterviewSession) TableName() string { return "interview_sessions" }

type Question struct {
	ID               string     `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	SessionID        string     `gorm:"column:session_id;type:uuid;uniqueIndex:uniq_session_order" json:"session_id"`
	OrderIndex       int        `gorm:"column:order_index;uniqueIndex:uniq_session_order" json:"order_index"`
	Text             string     `gorm:"column:text;type:text" json:"text"`
	Difficulty       Difficulty `gorm:"column:difficulty;type:text" json:"difficulty"`
	Category         string     `gorm:"column:category;type:text" json:"category"`
	TimeLimitSeconds int        `gorm:"column:time_limit_seconds" json:"time_limit_seconds"`
	ExpectedLength   string     `gorm:"column:expected_length;type:text" json:"expected_length"`
	Source           string     `gorm:"column:source;type:text" json:"source"` // ai|fallback
	CreatedAt        time.Time  `gorm:"column:created_at;type:timestamptz" json:"created_at"`

	Response *Response `gorm:"foreignKey:QuestionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"response,omitempty"`
}

func (Question) TableName() string { return "interview_questions" }

type Response struct {
	ID               string    `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	QuestionID       string    `gorm:"column:question_id;type:uuid;uniqueIndex" json:"question_id"`
	AnswerText       string    `gorm:"column:answer_text;type:text" json:"answer_text"`
	AudioPath        string    `gorm:"column:audio_path;type:text" json:"audio_path,omitempty"`
	Score            *int      `gorm:"column:score" json:"score"`
	AIFeedback       string    `gorm:"column:ai_feedback;type:text" json:"ai_feedback"`
	ScoredBy         string    `gorm:"column:scored_by;type:text" json:"scored_by"` // ai|fallback
	TimeTakenSeconds int       `gorm:"column:time_taken_seconds" json:"time_taken_seconds"`
	SubmittedAt      time.Time `gorm:"column:submitted_at;type:timestamptz" json:"submitted_at"`
}

func (Response) TableName() string { return "interview_responses" }
