// Package events is the in-process bus that connects session and feedback
// mutations to aggregate recomputation.
package events

type Kind string

const (
	KindEntityDeleted   Kind = "entity_deleted"
	KindFeedbackSaved   Kind = "feedback_saved"
	KindFeedbackDeleted Kind = "feedback_deleted"
)

type Event interface {
	Kind() Kind
}

type Entity string

const (
	EntitySession  Entity = "session"
	EntityQuestion Entity = "question"
	EntityResponse Entity = "response"
)

// EntityDeleted is published after a row has been removed. StudentID and
// TeacherID are the owners captured before the delete.
type EntityDeleted struct {
	Entity    Entity
	ID        string
	SessionID string
	StudentID string
	TeacherID string
}

func (EntityDeleted) Kind() Kind { return KindEntityDeleted }

type FeedbackSaved struct {
	SessionID string
	StudentID string
	TeacherID string
	Created   bool
}

func (FeedbackSaved) Kind() Kind { return KindFeedbackSaved }

type FeedbackDeleted struct {
	SessionID string
	StudentID string
	TeacherID string
}

func (FeedbackDeleted) Kind() Kind { return KindFeedbackDeleted }
