package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/utils"
)

type InterviewHandler struct {
	svc services.InterviewService
}

func NewInterviewHandler(svc services.InterviewService) *InterviewHandler {
	return &InterviewHandler{svc: svc}
}

func (h *InterviewHandler) Schedule(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.ScheduleInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "InterviewHandler.Schedule", err)
		return
	}
	req.TeacherID = a.ID

	sess, err := h.svc.Schedule(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *InterviewHandler) Get(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	sess, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if a.scope() != "" && sess.StudentID != a.ID && sess.TeacherID != a.ID {
		writeError(c, utils.E(utils.CodeForbidden, "InterviewHandler.Get", "forbidden", nil))
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *InterviewHandler) GenerateQuestions(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	qs, err := h.svc.GenerateQuestions(c.Request.Context(), c.Param("id"), a.scope())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": qs})
}

func (h *InterviewHandler) Start(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	sess, err := h.svc.Start(c.Request.Context(), c.Param("id"), a.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *InterviewHandler) SubmitAnswer(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.AnswerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "InterviewHandler.SubmitAnswer", err)
		return
	}
	req.SessionID = c.Param("id")
	req.StudentID = a.ID

	resp, err := h.svc.SubmitAnswer(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitSpokenAnswer takes a multipart form: audio file plus question_id,
// time_taken_seconds and an optional language.
func (h *InterviewHandler) SubmitSpokenAnswer(c *gin.Context) {
	const op = "InterviewHandler.SubmitSpokenAnswer"

	a, ok := currentActor(c)
	if !ok {
		return
	}

	fh, err := c.FormFile("audio")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "audio file is required", err))
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "failed to open audio", err))
		return
	}
	defer f.Close()

	taken, _ := strconv.Atoi(c.PostForm("time_taken_seconds"))
	in := services.SpokenAnswerInput{
		AnswerInput: services.AnswerInput{
			SessionID:        c.Param("id"),
			StudentID:        a.ID,
			QuestionID:       c.PostForm("question_id"),
			TimeTakenSeconds: taken,
		},
		ContentType: fh.Header.Get("Content-Type"),
		Language:    c.DefaultPostForm("language", "en-US"),
		Audio:       f,
	}

	resp, err := h.svc.SubmitSpokenAnswer(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type SecurityEventRequest struct {
	EventType string         `json:"event_type" binding:"required"`
	Payload   map[string]any `json:"payload"`
}

func (h *InterviewHandler) ReportSecurityEvent(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	var req SecurityEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "InterviewHandler.ReportSecurityEvent", err)
		return
	}

	res, err := h.svc.ReportSecurityEvent(c.Request.Context(), c.Param("id"), a.ID, req.EventType, req.Payload)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *InterviewHandler) Validate(c *gin.Context) {
	if _, ok := currentActor(c); !ok {
		return
	}

	v, err := h.svc.ValidateSession(c.Request.Context(), c.Param("id"), time.Time{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *InterviewHandler) TimeRemaining(c *gin.Context) {
	if _, ok := currentActor(c); !ok {
		return
	}

	mins, err := h.svc.TimeRemaining(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"minutes_remaining": mins})
}

func (h *InterviewHandler) Complete(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	res, err := h.svc.CompleteSession(c.Request.Context(), c.Param("id"), a.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

func (h *InterviewHandler) Cancel(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	var req CancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "InterviewHandler.Cancel", err)
			return
		}
	}

	sess, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), a.scope(), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *InterviewHandler) Delete(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), a.scope()); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *InterviewHandler) AuditTrail(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	entries, err := h.svc.AuditTrail(c.Request.Context(), c.Param("id"), a.scope())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": entries})
}
