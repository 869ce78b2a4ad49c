package memory

import (
	"context"
	"sort"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/repositories/postgres"
	"github.com/yoockh/yoointerview/internal/utils"
)

type sessionView struct{ s *Store }

type questionView struct{ s *Store }

type feedbackView struct{ s *Store }

type analyticsView struct{ s *Store }

func (s *Store) Sessions() postgres.SessionRepository    { return sessionView{s} }
func (s *Store) Questions() postgres.QuestionRepository  { return questionView{s} }
func (s *Store) Feedback() postgres.FeedbackRepository   { return feedbackView{s} }
func (s *Store) Analytics() postgres.AnalyticsRepository { return analyticsView{s} }

func (v sessionView) Create(_ context.Context, sess *models.InterviewSession) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.users[sess.StudentID]; !ok {
		return violation("interview_sessions_student_id_fkey")
	}
	if _, ok := v.s.users[sess.TeacherID]; !ok {
		return violation("interview_sessions_teacher_id_fkey")
	}
	sess.ID = newID(sess.ID)
	now := v.s.now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = now
	}
	v.s.sessions[sess.ID] = copySession(*sess)
	return nil
}

func (v sessionView) GetByID(_ context.Context, id string) (*models.InterviewSession, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	sess, ok := v.s.sessions[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	out := copySession(sess)
	return &out, nil
}

func (v sessionView) GetWithChildren(_ context.Context, id string) (*models.InterviewSession, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	sess, ok := v.s.sessions[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	out := v.s.sessionWithChildrenLocked(sess)
	return &out, nil
}

func (v sessionView) Save(_ context.Context, sess *models.InterviewSession) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	prev, ok := v.s.sessions[sess.ID]
	if !ok {
		return utils.ErrNotFound
	}
	if _, ok := v.s.users[sess.StudentID]; !ok {
		return violation("interview_sessions_student_id_fkey")
	}
	if _, ok := v.s.users[sess.TeacherID]; !ok {
		return violation("interview_sessions_teacher_id_fkey")
	}
	sess.CreatedAt = prev.CreatedAt
	sess.UpdatedAt = v.s.now()
	v.s.sessions[sess.ID] = copySession(*sess)
	return nil
}

func (v sessionView) Delete(_ context.Context, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.sessions[id]; !ok {
		return utils.ErrNotFound
	}
	v.s.deleteSessionLocked(id)
	return nil
}

func (v sessionView) list(match func(models.InterviewSession) bool) []models.InterviewSession {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []models.InterviewSession
	for _, sess := range v.s.sessions {
		if match(sess) {
			out = append(out, v.s.sessionWithChildrenLocked(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (v sessionView) ListByStudent(_ context.Context, studentID string) ([]models.InterviewSession, error) {
	return v.list(func(s models.InterviewSession) bool { return s.StudentID == studentID }), nil
}

func (v sessionView) ListByTeacher(_ context.Context, teacherID string) ([]models.InterviewSession, error) {
	return v.list(func(s models.InterviewSession) bool { return s.TeacherID == teacherID }), nil
}

func (v sessionView) ListOverdueScheduled(_ context.Context, now time.Time, limit int) ([]models.InterviewSession, error) {
	if limit <= 0 {
		limit = 200
	}
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []models.InterviewSession
	for _, sess := range v.s.sessions {
		if sess.Status == models.StatusScheduled && sess.EndAt.Before(now) {
			out = append(out, copySession(sess))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndAt.Before(out[j].EndAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v questionView) CreateBatch(_ context.Context, qs []models.Question) error {
	if len(qs) == 0 {
		return nil
	}
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	taken := map[int]bool{}
	for _, q := range v.s.questions {
		if q.SessionID == qs[0].SessionID {
			taken[q.OrderIndex] = true
		}
	}
	for i := range qs {
		if _, ok := v.s.sessions[qs[i].SessionID]; !ok {
			return violation("interview_questions_session_id_fkey")
		}
		if taken[qs[i].OrderIndex] && qs[i].SessionID == qs[0].SessionID {
			return utils.E(utils.CodeConflict, "memory.Questions.CreateBatch", "duplicate order index", nil)
		}
		taken[qs[i].OrderIndex] = true
	}
	now := v.s.now()
	for i := range qs {
		qs[i].ID = newID(qs[i].ID)
		if qs[i].CreatedAt.IsZero() {
			qs[i].CreatedAt = now
		}
		q := qs[i]
		q.Response = nil
		v.s.questions[q.ID] = q
	}
	return nil
}

func (v questionView) ListBySession(_ context.Context, sessionID string) ([]models.Question, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	return v.s.questionsForLocked(sessionID), nil
}

func (v questionView) GetByID(_ context.Context, id string) (*models.Question, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	q, ok := v.s.questions[id]
	if !ok {
		return nil, utils.ErrNotFound
	}
	if r, ok := v.s.responses[id]; ok {
		rc := copyResponse(r)
		q.Response = &rc
	}
	return &q, nil
}

func (v questionView) UpsertResponse(_ context.Context, resp *models.Response) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.questions[resp.QuestionID]; !ok {
		return violation("interview_responses_question_id_fkey")
	}
	if prev, ok := v.s.responses[resp.QuestionID]; ok {
		resp.ID = prev.ID
	}
	resp.ID = newID(resp.ID)
	if resp.SubmittedAt.IsZero() {
		resp.SubmittedAt = v.s.now()
	}
	v.s.responses[resp.QuestionID] = copyResponse(*resp)
	return nil
}

func (v feedbackView) GetBySession(_ context.Context, sessionID string) (*models.Feedback, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	f, ok := v.s.feedback[sessionID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	out := copyFeedback(f)
	return &out, nil
}

func (v feedbackView) Upsert(_ context.Context, f *models.Feedback) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.sessions[f.SessionID]; !ok {
		return false, violation("interview_feedback_session_id_fkey")
	}
	now := v.s.now()
	prev, exists := v.s.feedback[f.SessionID]
	if exists {
		f.ID = prev.ID
		f.CreatedAt = prev.CreatedAt
	} else {
		f.ID = newID(f.ID)
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
	}
	f.UpdatedAt = now
	v.s.feedback[f.SessionID] = copyFeedback(*f)
	return !exists, nil
}

func (v feedbackView) DeleteBySession(_ context.Context, sessionID string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.feedback[sessionID]; !ok {
		return utils.ErrNotFound
	}
	delete(v.s.feedback, sessionID)
	return nil
}

func (v feedbackView) ListForCompletedSessions(_ context.Context, studentID string) ([]models.FeedbackWithSession, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var out []models.FeedbackWithSession
	for sid, f := range v.s.feedback {
		sess, ok := v.s.sessions[sid]
		if !ok || sess.StudentID != studentID || sess.Status != models.StatusCompleted {
			continue
		}
		out = append(out, models.FeedbackWithSession{
			Feedback:      copyFeedback(f),
			InterviewType: sess.InterviewType,
			CompletedAt:   copyTime(sess.CompletedAt),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].CompletedAt, out[j].CompletedAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a == nil && b != nil:
			return false
		case a != nil && b == nil:
			return true
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (v analyticsView) Upsert(_ context.Context, a *models.InterviewAnalytics) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.sessions[a.SessionID]; !ok {
		return violation("interview_analytics_session_id_fkey")
	}
	if prev, ok := v.s.analytics[a.SessionID]; ok {
		a.ID = prev.ID
	}
	a.ID = newID(a.ID)
	v.s.analytics[a.SessionID] = *a
	return nil
}

func (v analyticsView) GetBySession(_ context.Context, sessionID string) (*models.InterviewAnalytics, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	a, ok := v.s.analytics[sessionID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return &a, nil
}
