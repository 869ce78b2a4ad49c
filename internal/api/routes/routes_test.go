package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/api/handlers"
	"github.com/yoockh/yoointerview/internal/api/middleware"
	"github.com/yoockh/yoointerview/internal/consistency"
	"github.com/yoockh/yoointerview/internal/events"
	"github.com/yoockh/yoointerview/internal/lifecycle"
	"github.com/yoockh/yoointerview/internal/lock"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/providers/ai"
	"github.com/yoockh/yoointerview/internal/repositories/memory"
	"github.com/yoockh/yoointerview/internal/services"
)

const testSecret = "test-secret"

type server struct {
	t      *testing.T
	engine *gin.Engine
	store  *memory.Store
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetOutput(io.Discard)

	store := memory.NewStore()
	bus := events.NewBus(log)
	locker := lock.NewLocal()
	collab := ai.NewResilient(nil, time.Second, log)

	rec := services.NewRecomputer(services.RecomputerDeps{
		Guard:    consistency.NewGuard(store.Users(), log),
		Locker:   locker,
		Progress: services.NewProgressAggregator(store.Sessions(), store.Feedback(), store.Progress(), nil),
		Fleet:    services.NewFleetAggregator(store.TeacherStudents(), store.Sessions(), store.TeacherStats(), 0, nil),
		Stats:    store.TeacherStats(),
		Log:      log,
	}, services.RecomputerConfig{})
	rec.Register(bus)

	fb := services.NewFeedbackService(store.Sessions(), store.Feedback(), collab, bus, log)
	interviews := services.NewInterviewService(services.InterviewDeps{
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
		Locker:    locker,
		Bus:       bus,
		Log:       log,
	}, services.InterviewConfig{Policy: lifecycle.DefaultPolicy(), MaxEvents: lifecycle.DefaultMaxEventsLimit}, nil)

	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	RegisterRoutes(r, Deps{
		Interview: handlers.NewInterviewHandler(interviews),
		Feedback:  handlers.NewFeedbackHandler(fb),
		Dashboard: handlers.NewDashboardHandler(services.NewDashboardService(services.DashboardDeps{
			Users:      store.Users(),
			Sessions:   store.Sessions(),
			Progress:   store.Progress(),
			Stats:      store.TeacherStats(),
			Recomputer: rec,
			Log:        log,
		}, services.DashboardConfig{}, nil)),
		Profile: handlers.NewProfileHandler(services.NewProfileService(store.Profiles())),
		Account: handlers.NewAccountHandler(services.NewAccountService(store.Users(), store.TeacherStudents(), store.Sessions(), interviews, rec, nil, log)),
		JWT:     middleware.JWTConfig{Secret: testSecret},
	})

	return &server{t: t, engine: r, store: store}
}

func token(t *testing.T, userID string, role models.UserRole) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":          userID,
		"exp":          time.Now().Add(time.Hour).Unix(),
		"app_metadata": map[string]any{"role": string(role)},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func (s *server) do(method, path, tok string, body any, out any) int {
	s.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			s.t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code
}

func (s *server) user(id string, role models.UserRole) string {
	s.t.Helper()
	if err := s.store.Users().Create(context.Background(), &models.User{ID: id, Email: id + "@example.com", Role: role}); err != nil {
		s.t.Fatal(err)
	}
	return token(s.t, id, role)
}

func TestPingAndAuth(t *testing.T) {
	s := newServer(t)
	if code := s.do(http.MethodGet, "/ping", "", nil, nil); code != http.StatusOK {
		t.Fatalf("ping = %d", code)
	}
	if code := s.do(http.MethodGet, "/profile/me", "", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("no token = %d", code)
	}
	if code := s.do(http.MethodGet, "/profile/me", "garbage", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("bad token = %d", code)
	}

	stu := s.user("s1", models.RoleStudent)
	var apiErr handlers.APIError
	code := s.do(http.MethodPost, "/sessions", stu, map[string]any{"student_id": "s1"}, &apiErr)
	if code != http.StatusForbidden || apiErr.Code != "FORBIDDEN" {
		t.Fatalf("student scheduling = %d %+v", code, apiErr)
	}
	if code := s.do(http.MethodDelete, "/accounts/s1", stu, nil, nil); code != http.StatusForbidden {
		t.Fatalf("student deleting accounts = %d", code)
	}
}

func TestInterviewFlow(t *testing.T) {
	s := newServer(t)
	stu := s.user("s1", models.RoleStudent)
	tea := s.user("t1", models.RoleTeacher)
	adm := s.user("a1", models.RoleAdmin)

	var sess models.InterviewSession
	code := s.do(http.MethodPost, "/sessions", tea, map[string]any{
		"student_id":       "s1",
		"interview_type":   "technical",
		"difficulty":       "easy",
		"scheduled_at":     time.Now().UTC().Add(-time.Minute).Format(time.RFC3339),
		"duration_minutes": 45,
	}, &sess)
	if code != http.StatusCreated || sess.ID == "" {
		t.Fatalf("schedule = %d %+v", code, sess)
	}
	base := "/sessions/" + sess.ID

	var qs struct {
		Questions []models.Question `json:"questions"`
	}
	if code := s.do(http.MethodPost, base+"/questions", stu, nil, &qs); code != http.StatusOK || len(qs.Questions) == 0 {
		t.Fatalf("questions = %d (%d)", code, len(qs.Questions))
	}

	var v lifecycle.Validation
	if code := s.do(http.MethodGet, base+"/validate", stu, nil, &v); code != http.StatusOK || !v.Valid {
		t.Fatalf("validate = %d %+v", code, v)
	}

	if code := s.do(http.MethodPost, base+"/start", stu, nil, nil); code != http.StatusOK {
		t.Fatalf("start = %d", code)
	}
	var apiErr handlers.APIError
	if code := s.do(http.MethodPost, base+"/start", stu, nil, &apiErr); code != http.StatusConflict || apiErr.Code != "FAILED_PRECONDITION" {
		t.Fatalf("second start = %d %+v", code, apiErr)
	}

	var resp models.Response
	code = s.do(http.MethodPost, base+"/answers", stu, map[string]any{
		"question_id":        qs.Questions[0].ID,
		"answer_text":        "I would implement it with a queue and improve throughput.",
		"time_taken_seconds": 40,
	}, &resp)
	if code != http.StatusOK || resp.Score == nil {
		t.Fatalf("answer = %d %+v", code, resp)
	}

	var sec services.SecurityReport
	if code := s.do(http.MethodPost, base+"/security-events", stu, map[string]any{"event_type": "window_blur"}, &sec); code != http.StatusOK || !sec.Recorded || sec.ViolationDetected {
		t.Fatalf("security event = %d %+v", code, sec)
	}

	var remaining map[string]int
	if code := s.do(http.MethodGet, base+"/time-remaining", stu, nil, &remaining); code != http.StatusOK || remaining["minutes_remaining"] <= 0 {
		t.Fatalf("time remaining = %d %v", code, remaining)
	}

	var done services.CompletionResult
	if code := s.do(http.MethodPost, base+"/complete", stu, nil, &done); code != http.StatusOK || done.Status != models.StatusCompleted {
		t.Fatalf("complete = %d %+v", code, done)
	}

	if code := s.do(http.MethodPut, base+"/feedback", tea, map[string]any{"overall_score": 85, "summary": "solid"}, nil); code != http.StatusOK {
		t.Fatalf("feedback = %d", code)
	}
	var p models.StudentProgress
	if code := s.do(http.MethodGet, "/students/s1/progress", stu, nil, &p); code != http.StatusOK || p.AverageScore != 85 || p.CompletedInterviews != 1 {
		t.Fatalf("progress = %d %+v", code, p)
	}

	var st models.TeacherStats
	if code := s.do(http.MethodGet, "/teachers/t1/stats", tea, nil, &st); code != http.StatusOK || st.TotalInterviewsConducted != 1 || st.AverageStudentScore != 85 {
		t.Fatalf("teacher stats = %d %+v", code, st)
	}
	if code := s.do(http.MethodGet, "/teachers/t1/stats", stu, nil, nil); code != http.StatusForbidden {
		t.Fatalf("student reading teacher stats = %d", code)
	}

	var audit struct {
		Events []models.SecurityAuditEntry `json:"events"`
	}
	if code := s.do(http.MethodGet, base+"/audit", tea, nil, &audit); code != http.StatusOK || len(audit.Events) != 1 {
		t.Fatalf("audit = %d %+v", code, audit)
	}

	if code := s.do(http.MethodDelete, "/accounts/s1", adm, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete account = %d", code)
	}
	if code := s.do(http.MethodGet, "/students/s1/progress", tea, nil, nil); code != http.StatusNotFound {
		t.Fatalf("progress after account delete = %d", code)
	}
}

func TestProfileRoundTrip(t *testing.T) {
	s := newServer(t)
	stu := s.user("s1", models.RoleStudent)

	if code := s.do(http.MethodGet, "/profile/me", stu, nil, nil); code != http.StatusNotFound {
		t.Fatalf("missing profile = %d", code)
	}
	var p models.Profile
	code := s.do(http.MethodPut, "/profile/me", stu, map[string]any{
		"target_role": "backend engineer",
		"skills":      []string{" go ", "", "sql"},
	}, &p)
	if code != http.StatusOK || len(p.Skills) != 2 || p.TargetRole != "backend engineer" {
		t.Fatalf("update = %d %+v", code, p)
	}
	if code := s.do(http.MethodGet, "/profile/me", stu, nil, &p); code != http.StatusOK || p.Skills[0] != "go" {
		t.Fatalf("me = %d %+v", code, p)
	}
}
