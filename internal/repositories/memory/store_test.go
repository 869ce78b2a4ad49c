package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
)

func seed(t *testing.T, s *Store) (student, teacher, sessionID string) {
	t.Helper()
	ctx := context.Background()
	st := &models.User{ID: "student-1", Role: models.RoleStudent}
	te := &models.User{ID: "teacher-1", Role: models.RoleTeacher}
	if err := s.Users().Create(ctx, st); err != nil {
		t.Fatal(err)
	}
	if err := s.Users().Create(ctx, te); err != nil {
		t.Fatal(err)
	}
	sess := &models.InterviewSession{
		StudentID:   st.ID,
		TeacherID:   te.ID,
		Status:      models.StatusScheduled,
		ScheduledAt: time.Now().Add(-time.Hour),
		EndAt:       time.Now().Add(time.Hour),
	}
	if err := s.Sessions().Create(ctx, sess); err != nil {
		t.Fatal(err)
	}
	return st.ID, te.ID, sess.ID
}

func TestSessionCreateRequiresOwners(t *testing.T) {
	s := NewStore()
	err := s.Sessions().Create(context.Background(), &models.InterviewSession{StudentID: "ghost", TeacherID: "ghost"})
	if !utils.IsReferentialViolation(err) {
		t.Fatalf("expected referential violation, got %v", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	student, _, sid := seed(t, s)

	qs := []models.Question{{SessionID: sid, OrderIndex: 0, Text: "q"}}
	if err := s.Questions().CreateBatch(ctx, qs); err != nil {
		t.Fatal(err)
	}
	score := 70
	if err := s.Questions().UpsertResponse(ctx, &models.Response{QuestionID: qs[0].ID, Score: &score}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Feedback().Upsert(ctx, &models.Feedback{SessionID: sid, OverallScore: 80}); err != nil {
		t.Fatal(err)
	}
	if err := s.Progress().Upsert(ctx, &models.StudentProgress{StudentID: student}); err != nil {
		t.Fatal(err)
	}

	if err := s.Users().Delete(ctx, student); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Sessions().GetByID(ctx, sid); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("session should cascade, got %v", err)
	}
	if _, err := s.Questions().GetByID(ctx, qs[0].ID); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("question should cascade, got %v", err)
	}
	if _, err := s.Feedback().GetBySession(ctx, sid); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("feedback should cascade, got %v", err)
	}
	if _, err := s.Progress().Get(ctx, student); !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("progress should cascade, got %v", err)
	}
	if err := s.Progress().Upsert(ctx, &models.StudentProgress{StudentID: student}); !utils.IsReferentialViolation(err) {
		t.Fatalf("progress upsert for deleted student: got %v", err)
	}
}

func TestFeedbackUpsertReportsCreation(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, _, sid := seed(t, s)

	created, err := s.Feedback().Upsert(ctx, &models.Feedback{SessionID: sid, OverallScore: 60})
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}
	created, err = s.Feedback().Upsert(ctx, &models.Feedback{SessionID: sid, OverallScore: 90})
	if err != nil || created {
		t.Fatalf("second upsert: created=%v err=%v", created, err)
	}
	f, err := s.Feedback().GetBySession(ctx, sid)
	if err != nil {
		t.Fatal(err)
	}
	if f.OverallScore != 90 {
		t.Fatalf("overall = %d", f.OverallScore)
	}
}

func TestReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, _, sid := seed(t, s)

	got, _ := s.Sessions().GetByID(ctx, sid)
	got.Status = models.StatusCompleted
	got.SecurityViolations = append(got.SecurityViolations, models.SecurityViolation{Type: models.EventTabSwitch})

	again, _ := s.Sessions().GetByID(ctx, sid)
	if again.Status != models.StatusScheduled || len(again.SecurityViolations) != 0 {
		t.Fatalf("stored session mutated through a read: %+v", again)
	}
}

func TestQuestionsOrderedAndUnique(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, _, sid := seed(t, s)

	err := s.Questions().CreateBatch(ctx, []models.Question{
		{SessionID: sid, OrderIndex: 2},
		{SessionID: sid, OrderIndex: 0},
		{SessionID: sid, OrderIndex: 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	qs, _ := s.Questions().ListBySession(ctx, sid)
	for i, q := range qs {
		if q.OrderIndex != i {
			t.Fatalf("position %d has order %d", i, q.OrderIndex)
		}
	}
	if err := s.Questions().CreateBatch(ctx, []models.Question{{SessionID: sid, OrderIndex: 1}}); err == nil {
		t.Fatal("expected duplicate order index to fail")
	}
}

func TestMarkStaleIgnoresMissingRow(t *testing.T) {
	s := NewStore()
	if err := s.TeacherStats().MarkStale(context.Background(), "nobody"); err != nil {
		t.Fatal(err)
	}
}
