package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"atrium/models"
	"atrium/services"
	"atrium/utils"
)

type PresenceHandler struct {
	service *services.PresenceService
	logger  *utils.Logger
}

func NewPresenceHandler(service *services.PresenceService, logger *utils.Logger) *PresenceHandler {
	return &PresenceHandler{
		service: service,
		logger:  logger,
	}
}

type heartbeatRequest struct {
	UserID string            `json:"user_id" binding:"required"`
	Status models.UserStatus `json:"status"`
	Device string            `json:"device"`
}

// Heartbeat handles POST /api/v1/presence/heartbeat
func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.Status == "" {
		req.Status = models.StatusOnline
	}
	if !models.ValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status"})
		return
	}

	if err := h.service.Heartbeat(c.Request.Context(), req.UserID, req.Status, req.Device); err != nil {
		h.logger.Error("Failed to update presence", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update presence"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Presence updated"})
}

// GetStatus handles GET /api/v1/presence/status?user_id=...
func (h *PresenceHandler) GetStatus(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id parameter is required"})
		return
	}

	presence, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get presence", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get presence"})
		return
	}

	c.JSON(http.StatusOK, presence)
}

// GetOnlineUsers handles GET /api/v1/presence/online
func (h *PresenceHandler) GetOnlineUsers(c *gin.Context) {
	users, err := h.service.Online(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get online users", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get online users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

type visitRequest struct {
	UserID string `json:"user_id" binding:"required"`
	RoomID string `json:"room_id" binding:"required"`
}

// Visit handles POST /api/v1/presence/visit: heartbeat plus room move in one
// call, matching what the floor-plan UI does when a badge is dropped on a room.
func (h *PresenceHandler) Visit(c *gin.Context) {
	var req visitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.service.HandleVisit(c.Request.Context(), req.UserID, req.RoomID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Office visited"})
}

type leaveRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// Leave handles POST /api/v1/presence/leave: heartbeat offline plus return home.
func (h *PresenceHandler) Leave(c *gin.Context) {
	var req leaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.service.HandleLeave(c.Request.Context(), req.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Returned to home office"})
}
