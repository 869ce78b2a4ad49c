package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/services"
	"github.com/yoockh/yoointerview/internal/utils"
	"gorm.io/datatypes"
)

type ProfileHandler struct {
	svc services.ProfileService
}

func NewProfileHandler(svc services.ProfileService) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

func (h *ProfileHandler) Me(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	p, err := h.svc.GetMe(c.Request.Context(), a.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type UpdateProfileRequest struct {
	FullName   *string          `json:"full_name,omitempty"`
	TargetRole *string          `json:"target_role,omitempty"`
	CVText     *string          `json:"cv_text,omitempty"`
	Skills     *[]string        `json:"skills,omitempty"`
	Experience *json.RawMessage `json:"experience,omitempty"`
}

func (h *ProfileHandler) Update(c *gin.Context) {
	a, ok := currentActor(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "ProfileHandler.Update", err)
		return
	}

	existing, err := h.svc.GetMe(c.Request.Context(), a.ID)
	if err != nil {
		if !utils.IsCode(err, utils.CodeNotFound) {
			writeError(c, err)
			return
		}
		existing = &models.Profile{UserID: a.ID}
	}

	// Partial update
	if req.FullName != nil {
		existing.FullName = *req.FullName
	}
	if req.TargetRole != nil {
		existing.TargetRole = *req.TargetRole
	}
	if req.CVText != nil {
		existing.CVText = *req.CVText
	}
	if req.Skills != nil {
		existing.Skills = *req.Skills
	}
	if req.Experience != nil {
		existing.Experience = datatypes.JSON(*req.Experience)
	}

	if err := h.svc.Upsert(c.Request.Context(), existing); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, existing)
}
