package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoointerview/internal/services"
)

type DashboardHandler struct {
	svc services.DashboardService
}

func NewDashboardHandler(svc services.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

func (h *DashboardHandler) StudentProgress(c *gin.Context) {
	if _, ok := currentActor(c); !ok {
		return
	}

	p, err := h.svc.GetStudentProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *DashboardHandler) Achievements(c *gin.Context) {
	if _, ok := currentActor(c); !ok {
		return
	}

	out, err := h.svc.Achievements(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"achievements": out})
}

func (h *DashboardHandler) TeacherStats(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	teacherID := c.Param("id")
	if !a.ownsOrAdmin(c, "DashboardHandler.TeacherStats", teacherID) {
		return
	}

	st, err := h.svc.GetTeacherStats(c.Request.Context(), teacherID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *DashboardHandler) Leaderboard(c *gin.Context) {
	if _, ok := currentActor(c); !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	out, err := h.svc.TopPerformers(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": out})
}
