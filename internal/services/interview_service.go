package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/events"
	"github.com/yoockh/yoointerview/internal/lifecycle"
	"github.com/yoockh/yoointerview/internal/lock"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/providers/ai"
	"github.com/yoockh/yoointerview/internal/providers/stt"
	mongorepo "github.com/yoockh/yoointerview/internal/repositories/mongo"
	pgrepo "github.com/yoockh/yoointerview/internal/repositories/postgres"
	"github.com/yoockh/yoointerview/internal/scoring"
	"github.com/yoockh/yoointerview/internal/storage"
	"github.com/yoockh/yoointerview/internal/utils"
)

// ErrAggregatesNotRefreshed marks a mutation that committed while one of
// its event handlers failed.
var ErrAggregatesNotRefreshed = errors.New("aggregates were not refreshed")

type ScheduleInput struct {
	StudentID       string               `json:"student_id"`
	TeacherID       string               `json:"-"`
	Title           string               `json:"title"`
	InterviewType   models.InterviewType `json:"interview_type"`
	Difficulty      models.Difficulty    `json:"difficulty"`
	HardenedMode    bool                 `json:"hardened_mode"`
	ScheduledAt     time.Time            `json:"scheduled_at"`
	DurationMinutes int                  `json:"duration_minutes"`
}

type AnswerInput struct {
	SessionID        string `json:"-"`
	StudentID        string `json:"-"`
	QuestionID       string `json:"question_id"`
	AnswerText       string `json:"answer_text"`
	TimeTakenSeconds int    `json:"time_taken_seconds"`
}

type SpokenAnswerInput struct {
	AnswerInput
	ContentType string
	Language    string
	Audio       io.Reader
}

type SecurityReport struct {
	Recorded          bool                 `json:"recorded"`
	ViolationDetected bool                 `json:"violation_detected"`
	Reason            string               `json:"reason,omitempty"`
	Status            models.SessionStatus `json:"status"`
}

type CompletionResult struct {
	OverallScore float64              `json:"overall_score"`
	Status       models.SessionStatus `json:"status"`
}

// InterviewService drives sessions through the lifecycle. A non-empty
// studentID or teacherID argument must match the session's owner.
type InterviewService interface {
	Schedule(ctx context.Context, in ScheduleInput) (*models.InterviewSession, error)
	Get(ctx context.Context, sessionID string) (*models.InterviewSession, error)
	GenerateQuestions(ctx context.Context, sessionID, actorID string) ([]models.Question, error)
	Start(ctx context.Context, sessionID, studentID string) (*models.InterviewSession, error)
	SubmitAnswer(ctx context.Context, in AnswerInput) (*models.Response, error)
	SubmitSpokenAnswer(ctx context.Context, in SpokenAnswerInput) (*models.Response, error)
	ReportSecurityEvent(ctx context.Context, sessionID, studentID, eventType string, payload map[string]any) (*SecurityReport, error)
	ValidateSession(ctx context.Context, sessionID string, now time.Time) (*lifecycle.Validation, error)
	TimeRemaining(ctx context.Context, sessionID string) (int, error)
	CompleteSession(ctx context.Context, sessionID, studentID string) (*CompletionResult, error)
	Cancel(ctx context.Context, sessionID, teacherID, reason string) (*models.InterviewSession, error)
	Delete(ctx context.Context, sessionID, teacherID string) error
	SweepMissed(ctx context.Context) (int, error)
	AuditTrail(ctx context.Context, sessionID, teacherID string) ([]models.SecurityAuditEntry, error)
}

type InterviewDeps struct {
	Users     pgrepo.UserRepository
	Sessions  pgrepo.SessionRepository
	Questions pgrepo.QuestionRepository
	Analytics pgrepo.AnalyticsRepository
	Progress  pgrepo.ProgressRepository
	Profiles  pgrepo.ProfileRepository
	Audit     mongorepo.SecurityAuditRepository
	Feedback  FeedbackService
	Generator ai.QuestionGenerator
	Scorer    ai.AnswerScorer
	Speech    stt.Provider     // optional
	Uploader  storage.Uploader // optional
	Locker    lock.Locker
	Bus       events.Publisher
	Log       logrus.FieldLogger
}

type InterviewConfig struct {
	Policy          lifecycle.Policy
	MaxEvents       int
	LockWait        time.Duration
	MaxAudioBytes   int64
	SweepBatchLimit int
}

type interviewService struct {
	d   InterviewDeps
	cfg InterviewConfig
	now func() time.Time
}

func NewInterviewService(d InterviewDeps, cfg InterviewConfig, now func() time.Time) InterviewService {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = 2 * time.Second
	}
	if cfg.MaxAudioBytes <= 0 {
		cfg.MaxAudioBytes = 10 << 20
	}
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	return &interviewService{d: d, cfg: cfg, now: now}
}

// lifecycleErr wraps a state machine rejection so errors.Is still sees the sentinel.
func lifecycleErr(op string, err error) error {
	return utils.E(utils.CodeFailedPrecondition, op, err.Error(), err)
}

// withSession serializes mutations of one session.
func (s *interviewService) withSession(ctx context.Context, op, sessionID string, fn func() error) error {
	release, err := s.d.Locker.Acquire(ctx, "session:"+sessionID, s.cfg.LockWait)
	if errors.Is(err, lock.ErrTimeout) {
		return utils.E(utils.CodeConflict, op, "session is busy, retry", err)
	}
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "failed to lock session", err)
	}
	defer release()
	return fn()
}

func (s *interviewService) load(ctx context.Context, op, sessionID string, children bool) (*models.InterviewSession, error) {
	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	var (
		sess *models.InterviewSession
		err  error
	)
	if children {
		sess, err = s.d.Sessions.GetWithChildren(ctx, sessionID)
	} else {
		sess, err = s.d.Sessions.GetByID(ctx, sessionID)
	}
	if err != nil {
		return nil, notFoundOr(op, "session", err)
	}
	return sess, nil
}

func checkOwner(op, want, got, role string) error {
	if got != "" && want != got {
		return utils.E(utils.CodeForbidden, op, "session belongs to another "+role, nil)
	}
	return nil
}

func (s *interviewService) Schedule(ctx context.Context, in ScheduleInput) (*models.InterviewSession, error) {
	const op = "InterviewService.Schedule"

	if in.StudentID == "" || in.TeacherID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "student_id and teacher_id are required", nil)
	}
	if !in.InterviewType.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "interview_type must be technical, communication or aptitude", nil)
	}
	if in.Difficulty == "" {
		in.Difficulty = models.DifficultyMedium
	}
	if !in.Difficulty.Valid() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "difficulty must be easy, medium or hard", nil)
	}
	if in.DurationMinutes <= 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "duration_minutes must be > 0", nil)
	}
	if in.ScheduledAt.IsZero() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "scheduled_at is required", nil)
	}

	student, err := s.d.Users.GetByID(ctx, in.StudentID)
	if err != nil {
		return nil, notFoundOr(op, "student", err)
	}
	if student.Role != models.RoleStudent {
		return nil, utils.E(utils.CodeInvalidArgument, op, "student_id does not refer to a student", nil)
	}

	title := in.Title
	if title == "" {
		title = fmt.Sprintf("%s interview", in.InterviewType)
	}
	start := in.ScheduledAt.UTC()
	sess := &models.InterviewSession{
		ID:              uuid.NewString(),
		StudentID:       in.StudentID,
		TeacherID:       in.TeacherID,
		Title:           title,
		InterviewType:   in.InterviewType,
		Difficulty:      in.Difficulty,
		HardenedMode:    in.HardenedMode,
		Status:          models.StatusScheduled,
		ScheduledAt:     start,
		EndAt:           start.Add(time.Duration(in.DurationMinutes) * time.Minute),
		DurationMinutes: in.DurationMinutes,
		IsSessionValid:  true,
	}
	if err := s.d.Sessions.Create(ctx, sess); err != nil {
		if utils.IsReferentialViolation(err) {
			return nil, utils.E(utils.CodeNotFound, op, "student or teacher no longer exists", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}

	s.d.Log.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"student_id": sess.StudentID,
		"teacher_id": sess.TeacherID,
	}).Info("session scheduled")
	return sess, nil
}

func (s *interviewService) Get(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	const op = "InterviewService.Get"
	return s.load(ctx, op, sessionID, true)
}

func (s *interviewService) GenerateQuestions(ctx context.Context, sessionID, actorID string) ([]models.Question, error) {
	const op = "InterviewService.GenerateQuestions"

	var out []models.Question
	err := s.withSession(ctx, op, sessionID, func() error {
		sess, err := s.load(ctx, op, sessionID, false)
		if err != nil {
			return err
		}
		if actorID != "" && actorID != sess.StudentID && actorID != sess.TeacherID {
			return utils.E(utils.CodeForbidden, op, "not a participant of this session", nil)
		}

		existing, err := s.d.Questions.ListBySession(ctx, sessionID)
		if err != nil {
			return utils.E(utils.CodeInternal, op, "failed to list questions", err)
		}
		if len(existing) > 0 {
			out = existing
			return nil
		}
		if sess.Status.Terminal() {
			return lifecycleErr(op, lifecycle.ErrNotAccessible)
		}

		window := lifecycle.PlanningWindow(sess, s.now())
		count := lifecycle.QuestionCount(window, sess.Difficulty)
		limit := lifecycle.QuestionTimeLimit(window, count, sess.Difficulty)

		generated, err := s.d.Generator.Generate(ctx, ai.QuestionRequest{
			Profile:          s.profileText(ctx, sess.StudentID),
			InterviewType:    sess.InterviewType,
			Count:            count,
			Difficulty:       sess.Difficulty,
			TimeLimitSeconds: int(limit / time.Second),
		})
		if err != nil || len(generated) == 0 {
			generated = ai.FallbackQuestions(ai.QuestionRequest{
				InterviewType: sess.InterviewType, Count: count, Difficulty: sess.Difficulty, TimeLimitSeconds: int(limit / time.Second),
			})
		}

		now := s.now()
		qs := make([]models.Question, 0, len(generated))
		for i, g := range generated {
			qs = append(qs, models.Question{
				ID:               uuid.NewString(),
				SessionID:        sess.ID,
				OrderIndex:       i,
				Text:             g.Text,
				Difficulty:       g.Difficulty,
				Category:         g.Category,
				TimeLimitSeconds: g.TimeLimitSeconds,
				ExpectedLength:   g.ExpectedLength,
				Source:           g.Source,
				CreatedAt:        now,
			})
		}
		if err := s.d.Questions.CreateBatch(ctx, qs); err != nil {
			if utils.IsReferentialViolation(err) {
				return utils.E(utils.CodeNotFound, op, "session no longer exists", err)
			}
			return utils.E(utils.CodeInternal, op, "failed to store questions", err)
		}
		out = qs
		return nil
	})
	return out, err
}

// profileText is the resume material handed to the generator; a missing
// profile yields an empty prompt section.
func (s *interviewService) profileText(ctx context.Context, studentID string) string {
	if s.d.Profiles == nil {
		return ""
	}
	p, err := s.d.Profiles.GetByUserID(ctx, studentID)
	if err != nil {
		if !errors.Is(err, utils.ErrNotFound) {
			s.d.Log.WithField("student_id", studentID).WithError(err).Warn("profile lookup failed")
		}
		return ""
	}
	var b bytes.Buffer
	if p.TargetRole != "" {
		fmt.Fprintf(&b, "Target role: %s\n", p.TargetRole)
	}
	if len(p.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %v\n", []string(p.Skills))
	}
	b.WriteString(p.CVText)
	return b.String()
}

func (s *interviewService) Start(ctx context.Context, sessionID, studentID string) (*models.InterviewSession, error) {
	const op = "InterviewService.Start"

	var out *models.InterviewSession
	err := s.withSession(ctx, op, sessionID, func() error {
		sess, err := s.load(ctx, op, sessionID, false)
		if err != nil {
			return err
		}
		if err := checkOwner(op, sess.StudentID, studentID, "student"); err != nil {
			return err
		}
		if err := lifecycle.Start(sess, s.now()); err != nil {
			return lifecycleErr(op, err)
		}
		if err := s.d.Sessions.Save(ctx, sess); err != nil {
			return utils.E(utils.CodeInternal, op, "failed to save session", err)
		}
		out = sess
		return nil
	})
	if err == nil {
		s.d.Log.WithFields(logrus.Fields{"session_id": sessionID, "student_id": out.StudentID}).Info("session started")
	}
	return out, err
}

func (s *interviewService) SubmitAnswer(ctx context.Context, in AnswerInput) (*models.Response, error) {
	const op = "InterviewService.SubmitAnswer"

	if in.QuestionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "question_id is required", nil)
	}
	if in.TimeTakenSeconds < 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "time_taken_seconds must be >= 0", nil)
	}

	var out *models.Response
	err := s.withSession(ctx, op, in.SessionID, func() error {
		sess, q, err := s.answerable(ctx, op, in)
		if err != nil {
			return err
		}
		resp, err := s.scoreAndStore(ctx, op, sess, q, in, "")
		out = resp
		return err
	})
	return out, err
}

func (s *interviewService) SubmitSpokenAnswer(ctx context.Context, in SpokenAnswerInput) (*models.Response, error) {
	const op = "InterviewService.SubmitSpokenAnswer"

	if s.d.Speech == nil || s.d.Uploader == nil {
		return nil, utils.E(utils.CodeUnavailable, op, "spoken answers are not configured", nil)
	}
	if in.QuestionID == "" || in.Audio == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "question_id and audio are required", nil)
	}

	audio, err := io.ReadAll(io.LimitReader(in.Audio, s.cfg.MaxAudioBytes+1))
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "failed to read audio", err)
	}
	if int64(len(audio)) > s.cfg.MaxAudioBytes {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio too large", nil)
	}
	if len(audio) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "audio is empty", nil)
	}

	var out *models.Response
	err = s.withSession(ctx, op, in.SessionID, func() error {
		sess, q, err := s.answerable(ctx, op, in.AnswerInput)
		if err != nil {
			return err
		}

		object := storage.RecordingObject(sess.ID, q.ID, in.ContentType)
		stored, err := s.d.Uploader.Upload(ctx, object, in.ContentType, bytes.NewReader(audio))
		if err != nil {
			return utils.E(utils.CodeUnavailable, op, "failed to store recording", err)
		}
		text, _, err := s.d.Speech.Transcribe(ctx, audio, in.ContentType, in.Language)
		if err != nil {
			return utils.E(utils.CodeUnavailable, op, "failed to transcribe recording", err)
		}

		ans := in.AnswerInput
		ans.AnswerText = text
		resp, err := s.scoreAndStore(ctx, op, sess, q, ans, stored)
		out = resp
		return err
	})
	return out, err
}

func (s *interviewService) answerable(ctx context.Context, op string, in AnswerInput) (*models.InterviewSession, *models.Question, error) {
	sess, err := s.load(ctx, op, in.SessionID, false)
	if err != nil {
		return nil, nil, err
	}
	if err := checkOwner(op, sess.StudentID, in.StudentID, "student"); err != nil {
		return nil, nil, err
	}
	if err := lifecycle.EnsureAnswerable(sess, s.now()); err != nil {
		return nil, nil, lifecycleErr(op, err)
	}
	q, err := s.d.Questions.GetByID(ctx, in.QuestionID)
	if err != nil {
		return nil, nil, notFoundOr(op, "question", err)
	}
	if q.SessionID != sess.ID {
		return nil, nil, utils.E(utils.CodeInvalidArgument, op, "question does not belong to this session", nil)
	}
	return sess, q, nil
}

func (s *interviewService) scoreAndStore(ctx context.Context, op string, sess *models.InterviewSession, q *models.Question, in AnswerInput, audioPath string) (*models.Response, error) {
	sc, err := s.d.Scorer.Score(ctx, q.Text, in.AnswerText, sess.InterviewType)
	if err != nil {
		sc = ai.HeuristicScore(in.AnswerText)
	}
	value := sc.Value

	resp := &models.Response{
		ID:               uuid.NewString(),
		QuestionID:       q.ID,
		AnswerText:       in.AnswerText,
		AudioPath:        audioPath,
		Score:            &value,
		AIFeedback:       sc.Feedback,
		ScoredBy:         sc.Source,
		TimeTakenSeconds: in.TimeTakenSeconds,
		SubmittedAt:      s.now(),
	}
	if err := s.d.Questions.UpsertResponse(ctx, resp); err != nil {
		if utils.IsReferentialViolation(err) {
			return nil, utils.E(utils.CodeNotFound, op, "question no longer exists", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to store response", err)
	}
	return resp, nil
}

func (s *interviewService) ReportSecurityEvent(ctx context.Context, sessionID, studentID, eventType string, payload map[string]any) (*SecurityReport, error) {
	const op = "InterviewService.ReportSecurityEvent"

	if eventType == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "event_type is required", nil)
	}

	var (
		out  *SecurityReport
		sess *models.InterviewSession
	)
	err := s.withSession(ctx, op, sessionID, func() error {
		var err error
		sess, err = s.load(ctx, op, sessionID, false)
		if err != nil {
			return err
		}
		if err := checkOwner(op, sess.StudentID, studentID, "student"); err != nil {
			return err
		}

		res := lifecycle.RecordSecurityEvent(sess, eventType, payload, s.cfg.Policy, s.now())
		if res.Recorded {
			if err := s.d.Sessions.Save(ctx, sess); err != nil {
				return utils.E(utils.CodeInternal, op, "failed to save security event", err)
			}
		}
		out = &SecurityReport{
			Recorded:          res.Recorded,
			ViolationDetected: res.ViolationDetected,
			Reason:            res.Reason,
			Status:            res.Status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"session_id": sess.ID, "student_id": sess.StudentID, "event": eventType}
	if out.ViolationDetected {
		s.d.Log.WithFields(fields).WithField("reason", out.Reason).Warn("session terminated by security policy")
	}
	s.audit(ctx, sess, eventType, payload, out)
	return out, nil
}

// audit is best effort; the session row is the source of truth.
func (s *interviewService) audit(ctx context.Context, sess *models.InterviewSession, eventType string, payload map[string]any, r *SecurityReport) {
	if s.d.Audit == nil {
		return
	}
	entry := &models.SecurityAuditEntry{
		SessionID:         sess.ID,
		StudentID:         sess.StudentID,
		TeacherID:         sess.TeacherID,
		EventType:         eventType,
		Payload:           payload,
		Recorded:          r.Recorded,
		ViolationDetected: r.ViolationDetected,
		Reason:            r.Reason,
		SessionStatus:     r.Status,
		Timestamp:         s.now(),
	}
	if err := s.d.Audit.Insert(ctx, entry); err != nil {
		s.d.Log.WithField("session_id", sess.ID).WithError(err).Warn("security audit insert failed")
	}
}

func (s *interviewService) ValidateSession(ctx context.Context, sessionID string, now time.Time) (*lifecycle.Validation, error) {
	const op = "InterviewService.ValidateSession"

	sess, err := s.load(ctx, op, sessionID, false)
	if err != nil {
		return nil, err
	}
	if now.IsZero() {
		now = s.now()
	}
	v := lifecycle.Validate(sess, now, s.cfg.MaxEvents)
	return &v, nil
}

func (s *interviewService) TimeRemaining(ctx context.Context, sessionID string) (int, error) {
	const op = "InterviewService.TimeRemaining"

	sess, err := s.load(ctx, op, sessionID, false)
	if err != nil {
		return 0, err
	}
	return lifecycle.TimeRemaining(sess, s.now()), nil
}

func (s *interviewService) CompleteSession(ctx context.Context, sessionID, studentID string) (*CompletionResult, error) {
	const op = "InterviewService.CompleteSession"

	var sess *models.InterviewSession
	err := s.withSession(ctx, op, sessionID, func() error {
		var err error
		sess, err = s.load(ctx, op, sessionID, true)
		if err != nil {
			return err
		}
		if err := checkOwner(op, sess.StudentID, studentID, "student"); err != nil {
			return err
		}
		if err := lifecycle.Complete(sess, s.now()); err != nil {
			return lifecycleErr(op, err)
		}
		if err := s.d.Sessions.Save(ctx, sess); err != nil {
			return utils.E(utils.CodeInternal, op, "failed to save session", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := s.d.Log.WithFields(logrus.Fields{"session_id": sess.ID, "student_id": sess.StudentID})

	// Completion artifacts never fail the completion itself.
	if fb, err := s.d.Feedback.Generate(ctx, sess); err != nil {
		log.WithError(err).Warn("feedback generation failed")
		if fb != nil {
			sess.Feedback = fb
		}
	} else {
		sess.Feedback = fb
	}
	if err := s.writeAnalytics(ctx, sess); err != nil {
		log.WithError(err).Warn("analytics generation failed")
	}

	res := &CompletionResult{OverallScore: scoring.Resolve(sess), Status: sess.Status}
	log.WithField("overall_score", res.OverallScore).Info("session completed")
	return res, nil
}

func (s *interviewService) writeAnalytics(ctx context.Context, sess *models.InterviewSession) error {
	var (
		answered  int
		timeTaken []float64
	)
	for _, q := range sess.Questions {
		if q.Response == nil {
			continue
		}
		answered++
		timeTaken = append(timeTaken, float64(q.Response.TimeTakenSeconds))
	}

	a := &models.InterviewAnalytics{
		ID:                  uuid.NewString(),
		SessionID:           sess.ID,
		TotalQuestions:      len(sess.Questions),
		QuestionsAnswered:   answered,
		AverageResponseTime: scoring.Round2(scoring.Mean(timeTaken)),
		PerformanceTrend:    models.TrendStable,
		GeneratedAt:         s.now(),
	}
	if a.TotalQuestions > 0 {
		a.CompletionPercentage = scoring.Round2(float64(answered) / float64(a.TotalQuestions) * 100)
	}
	if p, err := s.d.Progress.Get(ctx, sess.StudentID); err == nil && p.ScoreTrend != "" {
		a.PerformanceTrend = p.ScoreTrend
	}
	return s.d.Analytics.Upsert(ctx, a)
}

func (s *interviewService) Cancel(ctx context.Context, sessionID, teacherID, reason string) (*models.InterviewSession, error) {
	const op = "InterviewService.Cancel"

	var out *models.InterviewSession
	err := s.withSession(ctx, op, sessionID, func() error {
		sess, err := s.load(ctx, op, sessionID, false)
		if err != nil {
			return err
		}
		if err := checkOwner(op, sess.TeacherID, teacherID, "teacher"); err != nil {
			return err
		}
		if err := lifecycle.Cancel(sess, reason); err != nil {
			return lifecycleErr(op, err)
		}
		if err := s.d.Sessions.Save(ctx, sess); err != nil {
			return utils.E(utils.CodeInternal, op, "failed to save session", err)
		}
		out = sess
		return nil
	})
	return out, err
}

// Delete removes a session with its owned rows and publishes EntityDeleted.
func (s *interviewService) Delete(ctx context.Context, sessionID, teacherID string) error {
	const op = "InterviewService.Delete"

	var sess *models.InterviewSession
	err := s.withSession(ctx, op, sessionID, func() error {
		var err error
		sess, err = s.load(ctx, op, sessionID, false)
		if err != nil {
			return err
		}
		if err := checkOwner(op, sess.TeacherID, teacherID, "teacher"); err != nil {
			return err
		}
		if err := s.d.Sessions.Delete(ctx, sessionID); err != nil {
			return notFoundOr(op, "session", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.d.Log.WithFields(logrus.Fields{"session_id": sess.ID, "student_id": sess.StudentID}).Info("session deleted")

	ev := events.EntityDeleted{
		Entity:    events.EntitySession,
		ID:        sess.ID,
		SessionID: sess.ID,
		StudentID: sess.StudentID,
		TeacherID: sess.TeacherID,
	}
	if err := s.d.Bus.Publish(ctx, ev); err != nil {
		return utils.E(utils.CodeInternal, op, "session deleted but aggregates were not refreshed", errors.Join(ErrAggregatesNotRefreshed, err))
	}
	return nil
}

func (s *interviewService) SweepMissed(ctx context.Context) (int, error) {
	const op = "InterviewService.SweepMissed"

	now := s.now()
	overdue, err := s.d.Sessions.ListOverdueScheduled(ctx, now, s.cfg.SweepBatchLimit)
	if err != nil {
		return 0, utils.E(utils.CodeInternal, op, "failed to list overdue sessions", err)
	}

	n := 0
	for _, o := range overdue {
		err := s.withSession(ctx, op, o.ID, func() error {
			sess, err := s.d.Sessions.GetByID(ctx, o.ID)
			if err != nil {
				return err
			}
			if !lifecycle.MarkMissed(sess, now) {
				return nil
			}
			if err := s.d.Sessions.Save(ctx, sess); err != nil {
				return err
			}
			n++
			return nil
		})
		if err != nil && !errors.Is(err, utils.ErrNotFound) {
			s.d.Log.WithField("session_id", o.ID).WithError(err).Warn("failed to mark session missed")
		}
	}
	return n, nil
}

func (s *interviewService) AuditTrail(ctx context.Context, sessionID, teacherID string) ([]models.SecurityAuditEntry, error) {
	const op = "InterviewService.AuditTrail"

	sess, err := s.load(ctx, op, sessionID, false)
	if err != nil {
		return nil, err
	}
	if err := checkOwner(op, sess.TeacherID, teacherID, "teacher"); err != nil {
		return nil, err
	}
	if s.d.Audit == nil {
		return nil, nil
	}
	out, err := s.d.Audit.ListBySession(ctx, sessionID, 0)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list audit trail", err)
	}
	return out, nil
}
