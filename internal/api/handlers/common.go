package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoointerview/internal/models"
	"github.com/yoockh/yoointerview/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	_ = c.Error(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Code:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Code:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}

func badRequest(c *gin.Context, op string, err error) {
	writeError(c, utils.E(utils.CodeInvalidArgument, op, "invalid request body", err))
}

// actor is the authenticated caller as set by middleware.JWTAuth.
type actor struct {
	ID   string
	Role models.UserRole
}

func currentActor(c *gin.Context) (actor, bool) {
	id, _ := c.Get("user_id")
	role, _ := c.Get("role")
	a := actor{}
	a.ID, _ = id.(string)
	if r, ok := role.(string); ok {
		a.Role = models.UserRole(r)
	}
	if a.ID == "" {
		writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
		return actor{}, false
	}
	return a, true
}

// scope is the owner id handed to services. Admins act on any record.
func (a actor) scope() string {
	if a.Role == models.RoleAdmin {
		return ""
	}
	return a.ID
}

// ownsOrAdmin rejects callers reading another user's records.
func (a actor) ownsOrAdmin(c *gin.Context, op, ownerID string) bool {
	if a.Role == models.RoleAdmin || a.ID == ownerID {
		return true
	}
	writeError(c, utils.E(utils.CodeForbidden, op, "forbidden", nil))
	return false
}
