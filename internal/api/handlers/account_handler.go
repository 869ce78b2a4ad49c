package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/services"
)

type AccountHandler struct {
	svc services.AccountService
}

func NewAccountHandler(svc services.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

type RegisterRequest struct {
	ID       string          `json:"id"`
	Email    string          `json:"email" binding:"required"`
	FullName string          `json:"full_name"`
	Role     models.UserRole `json:"role" binding:"required"`
}

func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "AccountHandler.Register", err)
		return
	}

	u, err := h.svc.Register(c.Request.Context(), &models.User{
		ID:       req.ID,
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

type AssignStudentRequest struct {
	StudentID string `json:"student_id" binding:"required"`
}

func (h *AccountHandler) AssignStudent(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}
	teacherID := c.Param("id")
	if !a.ownsOrAdmin(c, "AccountHandler.AssignStudent", teacherID) {
		return
	}

	var req AssignStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "AccountHandler.AssignStudent", err)
		return
	}
	if err := h.svc.AssignStudent(c.Request.Context(), teacherID, req.StudentID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteAccount(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
