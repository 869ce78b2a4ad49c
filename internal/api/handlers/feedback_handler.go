package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoointerview/internal/services"
)

type FeedbackHandler struct {
	svc services.FeedbackService
}

func NewFeedbackHandler(svc services.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

func (h *FeedbackHandler) Save(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.FeedbackInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "FeedbackHandler.Save", err)
		return
	}

	fb, err := h.svc.Save(c.Request.Context(), c.Param("id"), a.scope(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, fb)
}

func (h *FeedbackHandler) Delete(c *gin.Context) {
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
