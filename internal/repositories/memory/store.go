// Package memory is an in-process implementation of the postgres
// repositories. It enforces the same foreign keys and ON DELETE CASCADE
// rules as the schema in migrations/, so services behave identically
// against it. Used by tests and by the server when database.driver=memory.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
)

type Store struct {
	mu sync.RWMutex

	users     map[string]models.User
	links     map[string]models.TeacherStudent // teacherID|studentID
	sessions  map[string]models.InterviewSession
	questions map[string]models.Question
	responses map[string]models.Response // by question id
	feedback  map[string]models.Feedback // by session id
	analytics map[string]models.InterviewAnalytics
	progress  map[string]models.StudentProgress
	stats     map[string]models.TeacherStats
	profiles  map[string]models.Profile
	audit     []models.SecurityAuditEntry

	// BeforeProgressUpsert, when set, runs before a progress row is written
	// and outside the store lock.
	BeforeProgressUpsert func(studentID string)

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:     map[string]models.User{},
		links:     map[string]models.TeacherStudent{},
		sessions:  map[string]models.InterviewSession{},
		questions: map[string]models.Question{},
		responses: map[string]models.Response{},
		feedback:  map[string]models.Feedback{},
		analytics: map[string]models.InterviewAnalytics{},
		progress:  map[string]models.StudentProgress{},
		stats:     map[string]models.TeacherStats{},
		profiles:  map[string]models.Profile{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func violation(constraint string) error {
	return &utils.ReferentialViolation{Constraint: constraint}
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

// deleteUserLocked cascades through everything a user owns.
func (s *Store) deleteUserLocked(id string) {
	delete(s.users, id)
	for k, l := range s.links {
		if l.TeacherID == id || l.StudentID == id {
			delete(s.links, k)
		}
	}
	for sid, sess := range s.sessions {
		if sess.StudentID == id || sess.TeacherID == id {
			s.deleteSessionLocked(sid)
		}
	}
	delete(s.progress, id)
	delete(s.stats, id)
	delete(s.profiles, id)
}

func (s *Store) deleteSessionLocked(id string) {
	delete(s.sessions, id)
	for qid, q := range s.questions {
		if q.SessionID == id {
			delete(s.questions, qid)
			delete(s.responses, qid)
		}
	}
	delete(s.feedback, id)
	delete(s.analytics, id)
}

// sessionWithChildrenLocked returns a copy of the session with ordered
// questions, their responses and the feedback attached.
func (s *Store) sessionWithChildrenLocked(sess models.InterviewSession) models.InterviewSession {
	out := copySession(sess)
	out.Questions = s.questionsForLocked(sess.ID)
	if f, ok := s.feedback[sess.ID]; ok {
		fc := copyFeedback(f)
		out.Feedback = &fc
	}
	return out
}

func (s *Store) questionsForLocked(sessionID string) []models.Question {
	var qs []models.Question
	for _, q := range s.questions {
		if q.SessionID != sessionID {
			continue
		}
		qc := q
		if r, ok := s.responses[q.ID]; ok {
			rc := copyResponse(r)
			qc.Response = &rc
		}
		qs = append(qs, qc)
	}
	sort.Slice(qs, func(i, j int) bool { return qs[i].OrderIndex < qs[j].OrderIndex })
	return qs
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyStrings(a pq.StringArray) pq.StringArray {
	if a == nil {
		return nil
	}
	return append(pq.StringArray(nil), a...)
}

func copyPayload(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copySession(in models.InterviewSession) models.InterviewSession {
	out := in
	out.StartedAt = copyTime(in.StartedAt)
	out.CompletedAt = copyTime(in.CompletedAt)
	out.TerminatedAt = copyTime(in.TerminatedAt)
	if in.SecurityViolations != nil {
		out.SecurityViolations = make([]models.SecurityViolation, len(in.SecurityViolations))
		for i, v := range in.SecurityViolations {
			v.Payload = copyPayload(v.Payload)
			out.SecurityViolations[i] = v
		}
	}
	out.Questions = nil
	out.Feedback = nil
	out.Analytics = nil
	return out
}

func copyResponse(in models.Response) models.Response {
	out := in
	out.Score = copyInt(in.Score)
	return out
}

func copyFeedback(in models.Feedback) models.Feedback {
	out := in
	out.TechnicalScore = copyInt(in.TechnicalScore)
	out.CommunicationScore = copyInt(in.CommunicationScore)
	out.ProblemSolvingScore = copyInt(in.ProblemSolvingScore)
	out.Strengths = copyStrings(in.Strengths)
	out.Weaknesses = copyStrings(in.Weaknesses)
	out.Recommendations = copyStrings(in.Recommendations)
	return out
}

func copyProgress(in models.StudentProgress) models.StudentProgress {
	out := in
	out.LastInterviewDate = copyTime(in.LastInterviewDate)
	return out
}

func copyStats(in models.TeacherStats) models.TeacherStats {
	out := in
	out.LastActivityDate = copyTime(in.LastActivityDate)
	return out
}
