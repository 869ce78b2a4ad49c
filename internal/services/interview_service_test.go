package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yoockh/yoointerview/internal/lifecycle"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/providers/ai"
	"github.com/yoockh/yoointerview/internal/utils"
)

// slowGenerator never answers within the collaborator timeout.
type slowGenerator struct{ ai.Fallback }

func (slowGenerator) Generate(ctx context.Context, _ ai.QuestionRequest) ([]ai.GeneratedQuestion, error) {
	select {
	case <-time.After(2 * time.Second):
		return []ai.GeneratedQuestion{{Text: "late", Source: ai.SourceAI}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestScheduleValidates(t *testing.T) {
	h := newHarness(t, nil)
	student := h.user(t, "s1", models.RoleStudent)
	teacher := h.user(t, "t1", models.RoleTeacher)
	ctx := context.Background()

	cases := []struct {
		name string
		in   ScheduleInput
	}{
		{"zero duration", ScheduleInput{StudentID: student, TeacherID: teacher, InterviewType: models.InterviewTechnical, ScheduledAt: h.clock.Now()}},
		{"unknown type", ScheduleInput{StudentID: student, TeacherID: teacher, InterviewType: "essay", ScheduledAt: h.clock.Now(), DurationMinutes: 30}},
		{"teacher as student", ScheduleInput{StudentID: teacher, TeacherID: teacher, InterviewType: models.InterviewTechnical, ScheduledAt: h.clock.Now(), DurationMinutes: 30}},
	}
	for _, tc := range cases {
		if _, err := h.interviews.Schedule(ctx, tc.in); !utils.IsCode(err, utils.CodeInvalidArgument) {
			t.Errorf("%s: expected INVALID_ARGUMENT, got %v", tc.name, err)
		}
	}

	sess := h.scheduleNow(t, student, teacher, models.InterviewTechnical)
	if got := sess.EndAt.Sub(sess.ScheduledAt); got != time.Hour {
		t.Fatalf("endAt - scheduledAt = %v, want 1h", got)
	}
	if sess.Status != models.StatusScheduled || !sess.IsSessionValid {
		t.Fatalf("unexpected initial state: %+v", sess)
	}
}

func TestGenerateQuestionsFallsBackOnTimeoutAndIsIdempotent(t *testing.T) {
	h := newHarness(t, slowGenerator{})
	student := h.user(t, "s1", models.RoleStudent)
	teacher := h.user(t, "t1", models.RoleTeacher)
	sess := h.scheduleNow(t, student, teacher, models.InterviewCommunication)
	ctx := context.Background()

	start := time.Now()
	qs, err := h.interviews.GenerateQuestions(ctx, sess.ID, student)
	if err != nil {
		t.Fatalf("GenerateQuestions: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("generation blocked on the slow collaborator")
	}
	if len(qs) < 3 || len(qs) > 12 {
		t.Fatalf("question count %d outside [3,12]", len(qs))
	}
	for i, q := range qs {
		if q.Source != ai.SourceFallback {
			t.Fatalf("question %d source = %q, want fallback", i, q.Source)
		}
		if q.OrderIndex != i {
			t.Fatalf("question %d has order %d", i, q.OrderIndex)
		}
	}

	again, err := h.interviews.GenerateQuestions(ctx, sess.ID, teacher)
	if err != nil {
		t.Fatalf("second GenerateQuestions: %v", err)
	}
	if len(again) != len(qs) || again[0].ID != qs[0].ID {
		t.Fatalf("second call generated a new set")
	}

	if _, err := h.interviews.GenerateQuestions(ctx, sess.ID, "stranger"); !utils.IsCode(err, utils.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for a stranger, got %v", err)
	}
}

func TestStartRejectsInvalidTransitions(t *testing.T) {
	h := newHarness(t, nil)
	student := h.user(t, "s1", models.RoleStudent)
	teacher := h.user(t, "t1", models.RoleTeacher)
	sess := h.scheduleNow(t, student, teacher, models.InterviewTechnical)
	ctx := context.Background()

	if _, err := h.interviews.Start(ctx, sess.ID, "someone-else"); !utils.IsCode(err, utils.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
	started, err := h.interviews.Start(ctx, sess.ID, student)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if started.Status != models.StatusInProgress || started.StartedAt == nil {
		t.Fatalf("unexpected state after start: %+v", started)
	}

	_, err = h.interviews.Start(ctx, sess.ID, student)
	if !utils.IsCode(err, utils.CodeFailedPrecondition) || !errors.Is(err, lifecycle.ErrAlreadyStarted) {
		t.Fatalf("expected FAILED_PRECONDITION wrapping ErrAlreadyStarted, got %v", err)
	}
	if utils.HTTPStatus(err) != 409 {
		t.Fatalf("status = %d, want 409", utils.HTTPStatus(err))
	}
}

func TestSubmitAnswerOnlyWhileInProgress(t *testing.T) {
	h := newHarness(t, nil)
	student := h.user(t, "s1", models.RoleStudent)
	teacher := h.user(t, "t1", models.RoleTeacher)
	sess := h.scheduleNow(t, student, teacher, models.InterviewTechnical)
	ctx := context.Background()

	qs, err := h.interviews.GenerateQuestions(ctx, sess.ID, student)
	if err != nil {
		t.Fatal(err)
	}
	in := AnswerInput{SessionID: sess.ID, StudentID: student, QuestionID: qs[0].ID, AnswerText: "short"}
	if _, err := h.interviews.SubmitAnswer(ctx, in); !errors.Is(err, lifecycle.ErrNotInProgress) {
		t.Fatalf("expected ErrNotInProgress before start, got %v", err)
	}

	if _, err := h.interviews.Start(ctx, sess.ID, student); err != nil {
		t.Fatal(err)
	}
	first, err := h.interviews.SubmitAnswer(ctx, in)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	if first.Score == nil || *first.Score != 50 || first.ScoredBy != ai.SourceFallback {
		t.Fatalf("unexpected heuristic score: %+v", first)
	}

	in.AnswerText = strings.Repeat("I had to implement and optimize it. ", 8)
	second, err := h.interviews.SubmitAnswer(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	stored, err := h.store.Questions().ListBySession(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored[0].Response == nil || stored[0].Response.AnswerText != second.AnswerText {
		t.Fatalf("response was not replaced: %+v", stored[0].Response)
	}
}

func TestReportSecurityEventTerminatesExactlyOnce(t *testing.T) {
	h := newHarness(t, nil)
	student := h.user(t, "s1", models.RoleStudent)
	teacher := h.user(t, "t1", models.RoleTeacher)
	sess := h.scheduleNow(t, student, teacher, models.InterviewTechnical)
	ctx := context.Background()

	if _, err := h.interviews.Start(ctx, sess.ID, student); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 3; i++ {
		r, err := h.interviews.ReportSecurityEvent(ctx, sess.ID, student, models.EventTabSwitch, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !r.Recorded || r.ViolationDetected || r.Status != models.StatusInProgress {
			t.Fatalf("event %d: %+v", i, r)
		}
	}

	r, err := h.interviews.ReportSecurityEvent(ctx, sess.ID, student, models.EventTabSwitch, map[string]any{"n": 4})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Recorded || !r.ViolationDetected || r.Status != models.StatusTerminated || r.Reason == "" {
		t.Fatalf("fourth event: %+v", r)
	}

	r, err = h.interviews.ReportSecurityEvent(ctx, sess.ID, student, models.EventTabSwitch, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Recorded || r.ViolationDetected || r.Status != models.StatusTerminated {
		t.Fatalf("fifth event should be a no-op: %+v", r)
	}

	got, err := h.store.Sessions().GetByID(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsSessionValid || got.TabSwitches != 4 || len(got.SecurityViolations) != 4 {
		t.Fatalf("unexpected session after termination: valid=%v tabs=%d log=%d", got.IsSessionValid, got.TabSwitches, len(got.SecurityViolations))
	}

	trail, err := h.interviews.AuditTrail(ctx, sess.ID, teacher)
	if err != nil {
		t.Fatal(err)
	}
	if len(trail) != 5 {
		t.Fatalf("audit entries = %d, want 5", len(trail))
	}
	terminations := 0
	for _, e := range trail {
		if e.ViolationDetected {
			terminations++
		}
	}
	if terminations != 1 {
		t.Fatalf("audit shows %d terminations", terminations)
	}

	v, err := h.interviews.ValidateSession(ctx, sess.ID, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if v.Valid || v.Reason == "" {
		t.Fatalf("terminated session validated: %+v", v)
	}
}

func TestCompleteSessionProducesArtifacts(t *testing.T) {
	h := newHarness(t, nil)
	student := h.user(t, "s1", models.RoleStudent)
	teacher := h.user(t, "t1", models.RoleTeacher)
	sess := h.scheduleNow(t, student, teacher, models.InterviewTechnical)
	ctx := context.Background()

	qs, err := h.interviews.GenerateQuestions(ctx, sess.ID, student)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.interviews.Start(ctx, sess.ID, student); err != nil {
		t.Fatal(err)
	}
	answer := "In my experience I had to lead a team and improve our release process."
	for _, q := range qs[:2] {
		in := AnswerInput{SessionID: sess.ID, StudentID: student, QuestionID: q.ID, AnswerText: answer, TimeTakenSeconds: 30}
		if _, err := h.interviews.SubmitAnswer(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	res, err := h.interviews.CompleteSession(ctx, sess.ID, student)
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if res.Status != models.StatusCompleted {
		t.Fatalf("status = %s", res.Status)
	}

	fb, err := h.store.Feedback().GetBySession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("feedback not generated: %v", err)
	}
	if res.OverallScore != float64(fb.OverallScore) {
		t.Fatalf("overall %v, feedback %d", res.OverallScore, fb.OverallScore)
	}
	if fb.TechnicalScore == nil || *fb.TechnicalScore != fb.OverallScore || fb.CommunicationScore != nil {
		t.Fatalf("skill score not set for the interview type: %+v", fb)
	}

	a, err := h.store.Analytics().GetBySession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("analytics not generated: %v", err)
	}
	if a.QuestionsAnswered != 2 || a.TotalQuestions != len(qs) || a.AverageResponseTime != 30 {
		t.Fatalf("unexpected analytics: %+v", a)
	}

	p := h.progress(t, student)
	if p.CompletedInterviews != 1 || p.AverageScore != float64(fb.OverallScore) {
		t.Fatalf("progress not refreshed: %+v", p)
	}

	if _, err := h.interviews.CompleteSession(ctx, sess.ID, student); !errors.Is(err, lifecycle.ErrNotInProgress) {
		t.Fatalf("second completion: %v", err)
	}
	if mins, err := h.interviews.TimeRemaining(ctx, sess.ID); err != nil || mins != 0 {
		t.Fatalf("time remaining after completion = %d, %v", mins, err)
	}
}

func TestCancelAndSweepMissed(t *testing.T) {
	h := newHarness(t, nil)
	student := h.user(t, "s1", models.RoleStudent)
	teacher := h.user(t, "t1", models.RoleTeacher)
	ctx := context.Background()

	cancelled := h.scheduleNow(t, student, teacher, models.InterviewAptitude)
	if _, err := h.interviews.Cancel(ctx, cancelled.ID, student, "nope"); !utils.IsCode(err, utils.CodeForbidden) {
		t.Fatalf("student cancelled a session: %v", err)
	}
	c, err := h.interviews.Cancel(ctx, cancelled.ID, teacher, "teacher unavailable")
	if err != nil {
		t.Fatal(err)
	}
	if c.Status != models.StatusCancelled || c.IsSessionValid {
		t.Fatalf("unexpected cancelled session: %+v", c)
	}

	overdue := h.scheduleNow(t, student, teacher, models.InterviewAptitude)
	h.clock.Advance(2 * time.Hour)

	n, err := h.interviews.SweepMissed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("swept %d sessions, want 1", n)
	}
	got, _ := h.store.Sessions().GetByID(ctx, overdue.ID)
	if got.Status != models.StatusMissed {
		t.Fatalf("status = %s, want missed", got.Status)
	}
	got, _ = h.store.Sessions().GetByID(ctx, cancelled.ID)
	if got.Status != models.StatusCancelled {
		t.Fatalf("sweep touched a cancelled session: %s", got.Status)
	}
}

func TestSubmitSpokenAnswerStoresRecordingAndTranscript(t *testing.T) {
	h := newHarness(t, nil)
	student := h.user(t, "s1", models.RoleStudent)
	teacher := h.user(t, "t1", models.RoleTeacher)
	sess := h.scheduleNow(t, student, teacher, models.InterviewCommunication)
	ctx := context.Background()

	qs, err := h.interviews.GenerateQuestions(ctx, sess.ID, student)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.interviews.Start(ctx, sess.ID, student); err != nil {
		t.Fatal(err)
	}

	in := SpokenAnswerInput{
		AnswerInput: AnswerInput{SessionID: sess.ID, StudentID: student, QuestionID: qs[0].ID},
		ContentType: "audio/webm",
	}

	in.Audio = bytes.NewReader(nil)
	if _, err := h.interviews.SubmitSpokenAnswer(ctx, in); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("empty audio: expected INVALID_ARGUMENT, got %v", err)
	}
	in.Audio = bytes.NewReader(make([]byte, 2048))
	if _, err := h.interviews.SubmitSpokenAnswer(ctx, in); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("oversized audio: expected INVALID_ARGUMENT, got %v", err)
	}

	in.Audio = bytes.NewReader([]byte("opus-frames"))
	resp, err := h.interviews.SubmitSpokenAnswer(ctx, in)
	if err != nil {
		t.Fatalf("SubmitSpokenAnswer: %v", err)
	}
	if resp.AnswerText != "I would lead the team and implement the fix" {
		t.Fatalf("transcript not used as answer: %q", resp.AnswerText)
	}
	// base 50 plus two keywords
	if resp.Score == nil || *resp.Score != 60 {
		t.Fatalf("score = %v, want 60", resp.Score)
	}
	if !strings.HasPrefix(resp.AudioPath, "mem://answers/"+sess.ID+"/"+qs[0].ID+"-") {
		t.Fatalf("unexpected audio path %q", resp.AudioPath)
	}
	if len(h.uploads.objects) != 1 {
		t.Fatalf("expected one stored recording, got %d", len(h.uploads.objects))
	}
}
