package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SecurityAuditEntry is one recorded security event, kept in mongo for teacher review.
type SecurityAuditEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	SessionID string             `bson:"session_id" json:"session_id"`
	StudentID string             `bson:"student_id" json:"student_id"`
	TeacherID string             `bson:"teacher_id" json:"teacher_id"`

	EventType string         `bson:"event_type" json:"event_type"`
	Payload   map[string]any `bson:"payload,omitempty" json:"payload,omitempty"`

	Recorded          bool          `bson:"recorded" json:"recorded"`
	ViolationDetected bool          `bson:"violation_detected" json:"violation_detected"`
	Reason            string        `bson:"reason,omitempty" json:"reason,omitempty"`
	SessionStatus     SessionStatus `bson:"session_status" json:"session_status"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
