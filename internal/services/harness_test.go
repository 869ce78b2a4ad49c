package services

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/consistency"
	"github.com/yoockh/yoointerview/internal/events"
	"github.com/yoockh/yoointerview/internal/lifecycle"
	"github.com/yoockh/yoointerview/internal/lock"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/providers/ai"
	"github.com/yoockh/yoointerview/internal/repositories/memory"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// fakeSpeech returns a fixed transcript.
type fakeSpeech struct{ text string }

func (f fakeSpeech) Transcribe(context.Context, []byte, string, string) (string, float64, error) {
	return f.text, 0.9, nil
}
func (fakeSpeech) Close() error { return nil }

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (u *fakeUploader) Upload(_ context.Context, name, _ string, r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.objects == nil {
		u.objects = map[string][]byte{}
	}
	u.objects[name] = b
	return "mem://" + name, nil
}

type harness struct {
	store      *memory.Store
	uploads    *fakeUploader
	clock      *clock
	bus        *events.Bus
	recomputer *Recomputer
	interviews InterviewService
	feedback   FeedbackService
	accounts   AccountService
	dashboard  DashboardService
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newHarness(t *testing.T, primary ai.Collaborator) *harness {
	t.Helper()

	log := quietLogger()
	store := memory.NewStore()
	clk := &clock{t: time.Now().UTC().Truncate(time.Second)}
	bus := events.NewBus(log)
	locker := lock.NewLocal()
	collab := ai.NewResilient(primary, 50*time.Millisecond, log)

	rec := NewRecomputer(RecomputerDeps{
		Guard:    consistency.NewGuard(store.Users(), log),
		Locker:   locker,
		Progress: NewProgressAggregator(store.Sessions(), store.Feedback(), store.Progress(), clk.Now),
		Fleet:    NewFleetAggregator(store.TeacherStudents(), store.Sessions(), store.TeacherStats(), 0, clk.Now),
		Stats:    store.TeacherStats(),
		Log:      log,
	}, RecomputerConfig{LockWait: time.Second})
	rec.Register(bus)

	fb := NewFeedbackService(store.Sessions(), store.Feedback(), collab, bus, log)
	uploads := &fakeUploader{}
	interviews := NewInterviewService(InterviewDeps{
		Users:     store.Users(),
		Sessions:  store.Sessions(),
		Questions: store.Questions(),
		Analytics: store.Analytics(),
		Progress:  store.Progress(),
		Profiles:  store.Profiles(),
		Audit:     store.SecurityAudit(),
		Feedback:  fb,
		Generator: collab,
		Scorer:    collab,
		Speech:    fakeSpeech{text: "I would lead the team and implement the fix"},
		Uploader:  uploads,
		Locker:    locker,
		Bus:       bus,
		Log:       log,
	}, InterviewConfig{Policy: lifecycle.DefaultPolicy(), MaxEvents: lifecycle.DefaultMaxEventsLimit, MaxAudioBytes: 1024}, clk.Now)

	return &harness{
		store:      store,
		uploads:    uploads,
		clock:      clk,
		bus:        bus,
		recomputer: rec,
		interviews: interviews,
		feedback:   fb,
		accounts:   NewAccountService(store.Users(), store.TeacherStudents(), store.Sessions(), interviews, rec, nil, log),
		dashboard: NewDashboardService(DashboardDeps{
			Users:      store.Users(),
			Sessions:   store.Sessions(),
			Progress:   store.Progress(),
			Stats:      store.TeacherStats(),
			Recomputer: rec,
			Log:        log,
		}, DashboardConfig{}, clk.Now),
	}
}

func (h *harness) user(t *testing.T, id string, role models.UserRole) string {
	t.Helper()
	if err := h.store.Users().Create(context.Background(), &models.User{ID: id, Email: id + "@example.com", Role: role}); err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
	return id
}

// scheduleNow creates a session whose window is open right now.
func (h *harness) scheduleNow(t *testing.T, student, teacher string, typ models.InterviewType) *models.InterviewSession {
	t.Helper()
	sess, err := h.interviews.Schedule(context.Background(), ScheduleInput{
		StudentID:       student,
		TeacherID:       teacher,
		InterviewType:   typ,
		Difficulty:      models.DifficultyMedium,
		ScheduledAt:     h.clock.Now().Add(-time.Minute),
		DurationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	return sess
}

// completedSession inserts an already completed session directly into the store.
func (h *harness) completedSession(t *testing.T, student, teacher string, typ models.InterviewType, completedAt time.Time) string {
	t.Helper()
	done := completedAt
	sess := &models.InterviewSession{
		StudentID:       student,
		TeacherID:       teacher,
		InterviewType:   typ,
		Difficulty:      models.DifficultyMedium,
		Status:          models.StatusCompleted,
		ScheduledAt:     completedAt.Add(-time.Hour),
		EndAt:           completedAt.Add(time.Hour),
		DurationMinutes: 120,
		CompletedAt:     &done,
		IsSessionValid:  true,
		CreatedAt:       completedAt.Add(-2 * time.Hour),
	}
	if err := h.store.Sessions().Create(context.Background(), sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return sess.ID
}

func (h *harness) progress(t *testing.T, student string) *models.StudentProgress {
	t.Helper()
	p, err := h.store.Progress().Get(context.Background(), student)
	if err != nil {
		t.Fatalf("progress for %s: %v", student, err)
	}
	return p
}

func intp(v int) *int { return &v }
