package services

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/events"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/providers/ai"
	pgrepo "github.com/yoockh/yoointerview/internal/repositories/postgres"
	"github.com/yoockh/yoointerview/internal/scoring"
	"github.com/yoockh/yoointerview/internal/utils"
)

const GeneratedByTeacher = "teacher"

type FeedbackInput struct {
	OverallScore        int      `json:"overall_score"`
	TechnicalScore      *int     `json:"technical_score"`
	CommunicationScore  *int     `json:"communication_score"`
	ProblemSolvingScore *int     `json:"problem_solving_score"`
	Summary             string   `json:"summary"`
	Strengths           []string `json:"strengths"`
	Weaknesses          []string `json:"weaknesses"`
	Recommendations     []string `json:"recommendations"`
}

type FeedbackService interface {
	// Save creates or replaces a completed session's feedback as its teacher.
	Save(ctx context.Context, sessionID, teacherID string, in FeedbackInput) (*models.Feedback, error)
	Delete(ctx context.Context, sessionID, teacherID string) error
	// Generate writes the automatic post-completion feedback for s, which
	// must be completed and loaded with its questions.
	Generate(ctx context.Context, s *models.InterviewSession) (*models.Feedback, error)
}

type feedbackService struct {
	sessions pgrepo.SessionRepository
	feedback pgrepo.FeedbackRepository
	writer   ai.FeedbackWriter
	bus      events.Publisher
	log      logrus.FieldLogger
}

func NewFeedbackService(sessions pgrepo.SessionRepository, feedback pgrepo.FeedbackRepository, writer ai.FeedbackWriter, bus events.Publisher, log logrus.FieldLogger) FeedbackService {
	return &feedbackService{sessions: sessions, feedback: feedback, writer: writer, bus: bus, log: log}
}

func validScore(v *int) bool {
	return v == nil || (*v >= 0 && *v <= 100)
}

func (s *feedbackService) Save(ctx context.Context, sessionID, teacherID string, in FeedbackInput) (*models.Feedback, error) {
	const op = "FeedbackService.Save"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	if !validScore(&in.OverallScore) || !validScore(in.TechnicalScore) || !validScore(in.CommunicationScore) || !validScore(in.ProblemSolvingScore) {
		return nil, utils.E(utils.CodeInvalidArgument, op, "scores must be between 0 and 100", nil)
	}

	sess, err := s.completedSession(ctx, op, sessionID, teacherID)
	if err != nil {
		return nil, err
	}

	f := &models.Feedback{
		ID:                  uuid.NewString(),
		SessionID:           sess.ID,
		OverallScore:        in.OverallScore,
		TechnicalScore:      in.TechnicalScore,
		CommunicationScore:  in.CommunicationScore,
		ProblemSolvingScore: in.ProblemSolvingScore,
		Summary:             in.Summary,
		Strengths:           pq.StringArray(in.Strengths),
		Weaknesses:          pq.StringArray(in.Weaknesses),
		Recommendations:     pq.StringArray(in.Recommendations),
		GeneratedBy:         GeneratedByTeacher,
	}
	return s.persist(ctx, op, sess, f)
}

func (s *feedbackService) Delete(ctx context.Context, sessionID, teacherID string) error {
	const op = "FeedbackService.Delete"

	if sessionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return notFoundOr(op, "session", err)
	}
	if teacherID != "" && sess.TeacherID != teacherID {
		return utils.E(utils.CodeForbidden, op, "session belongs to another teacher", nil)
	}

	if err := s.feedback.DeleteBySession(ctx, sessionID); err != nil {
		return notFoundOr(op, "feedback", err)
	}

	ev := events.FeedbackDeleted{SessionID: sess.ID, StudentID: sess.StudentID, TeacherID: sess.TeacherID}
	if err := s.bus.Publish(ctx, ev); err != nil {
		return utils.E(utils.CodeInternal, op, "feedback deleted but aggregates were not refreshed", errors.Join(ErrAggregatesNotRefreshed, err))
	}
	return nil
}

func (s *feedbackService) Generate(ctx context.Context, sess *models.InterviewSession) (*models.Feedback, error) {
	const op = "FeedbackService.Generate"

	if sess == nil || sess.Status != models.StatusCompleted {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "session is not completed", nil)
	}

	overall := int(math.Round(scoring.ResponseAverage(sess.Questions)))
	req := ai.FeedbackRequest{InterviewType: sess.InterviewType, OverallScore: overall}
	for _, q := range sess.Questions {
		if q.Response == nil {
			continue
		}
		pair := ai.QAPair{Question: q.Text, Answer: q.Response.AnswerText}
		if q.Response.Score != nil {
			pair.Score = *q.Response.Score
		}
		req.QA = append(req.QA, pair)
	}

	draft, err := s.writer.Write(ctx, req)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "feedback writer failed", err)
	}

	f := &models.Feedback{
		ID:              uuid.NewString(),
		SessionID:       sess.ID,
		OverallScore:    overall,
		Summary:         draft.Summary,
		Strengths:       pq.StringArray(draft.Strengths),
		Weaknesses:      pq.StringArray(draft.Weaknesses),
		Recommendations: pq.StringArray(draft.Recommendations),
		GeneratedBy:     draft.Source,
	}
	skill := overall
	switch sess.InterviewType {
	case models.InterviewTechnical:
		f.TechnicalScore = &skill
	case models.InterviewCommunication:
		f.CommunicationScore = &skill
	case models.InterviewAptitude:
		f.ProblemSolvingScore = &skill
	}
	return s.persist(ctx, op, sess, f)
}

func (s *feedbackService) completedSession(ctx context.Context, op, sessionID, teacherID string) (*models.InterviewSession, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, notFoundOr(op, "session", err)
	}
	if teacherID != "" && sess.TeacherID != teacherID {
		return nil, utils.E(utils.CodeForbidden, op, "session belongs to another teacher", nil)
	}
	if sess.Status != models.StatusCompleted {
		return nil, utils.E(utils.CodeFailedPrecondition, op, "feedback requires a completed session", nil)
	}
	return sess, nil
}

func (s *feedbackService) persist(ctx context.Context, op string, sess *models.InterviewSession, f *models.Feedback) (*models.Feedback, error) {
	now := time.Now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now

	created, err := s.feedback.Upsert(ctx, f)
	if err != nil {
		if utils.IsReferentialViolation(err) {
			return nil, utils.E(utils.CodeNotFound, op, "session no longer exists", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to save feedback", err)
	}
	if s.log != nil {
		s.log.WithFields(logrus.Fields{
			"session_id":   sess.ID,
			"student_id":   sess.StudentID,
			"generated_by": f.GeneratedBy,
			"created":      created,
		}).Info("feedback saved")
	}

	ev := events.FeedbackSaved{SessionID: sess.ID, StudentID: sess.StudentID, TeacherID: sess.TeacherID, Created: created}
	if err := s.bus.Publish(ctx, ev); err != nil {
		return f, utils.E(utils.CodeInternal, op, "feedback saved but aggregates were not refreshed", errors.Join(ErrAggregatesNotRefreshed, err))
	}
	return f, nil
}

// notFoundOr maps a storage error to NOT_FOUND or INTERNAL.
func notFoundOr(op, what string, err error) error {
	if errors.Is(err, utils.ErrNotFound) {
		return utils.E(utils.CodeNotFound, op, what+" not found", err)
	}
	return utils.E(utils.CodeInternal, op, "failed to load "+what, err)
}
