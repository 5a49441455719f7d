package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"atrium/middleware"
	"atrium/models"
	"atrium/services"
	"atrium/utils"
)

type UserHandler struct {
	users  *services.UserService
	engine *services.OccupancyEngine
	logger *utils.Logger
}

func NewUserHandler(users *services.UserService, engine *services.OccupancyEngine, logger *utils.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		engine: engine,
		logger: logger,
	}
}

// ListUsers handles GET /api/v1/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// GetUser handles GET /api/v1/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateStatus handles PATCH /api/v1/users/:id/status
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	user, err := h.users.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// LeaveOffice handles POST /api/v1/users/:id/leave
func (h *UserHandler) LeaveOffice(c *gin.Context) {
	if err := h.engine.LeaveOffice(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("User returned home", "user_id", c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Returned to home office"})
}

// Session handles POST /api/v1/session: the login bootstrap. The user
// document is created on first login from the verified token claims.
func (h *UserHandler) Session(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	name := c.GetString(middleware.ContextName)
	email := c.GetString(middleware.ContextEmail)
	avatar := c.GetString(middleware.ContextAvatar)

	user, err := h.users.EnsureUser(c.Request.Context(), userID, name, email, avatar)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Session started", "user_id", user.ID)
	c.JSON(http.StatusOK, user)
}
