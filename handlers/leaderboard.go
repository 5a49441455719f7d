package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"atrium/models"
	"atrium/services"
	"atrium/utils"
)

type LeaderboardHandler struct {
	service *services.LeaderboardService
	logger  *utils.Logger
}

func NewLeaderboardHandler(service *services.LeaderboardService, logger *utils.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		service: service,
		logger:  logger,
	}
}

// Sales handles GET /api/v1/leaderboards/sales
func (h *LeaderboardHandler) Sales(c *gin.Context) {
	topN, _ := strconv.Atoi(c.DefaultQuery("top", "5"))

	entries, err := h.service.Sales(c.Request.Context(), topN)
	if err != nil {
		h.logger.Error("Failed to build sales leaderboard", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build leaderboard"})
		return
	}

	c.JSON(http.StatusOK, models.LeaderboardResponse{Entries: entries})
}

type recordRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Count  int    `json:"count"`
}

func (r *recordRequest) normalized() int {
	if r.Count <= 0 {
		return 1
	}
	return r.Count
}

// RecordSale handles POST /api/v1/leaderboards/sales
func (h *LeaderboardHandler) RecordSale(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	sale := &models.Sale{UserID: req.UserID, Count: req.normalized(), Date: time.Now().UTC()}
	if err := h.service.RecordSale(c.Request.Context(), sale); err != nil {
		h.logger.Error("Failed to record sale", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record sale"})
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// RecordCall handles POST /api/v1/leaderboards/calls
func (h *LeaderboardHandler) RecordCall(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	call := &models.Call{UserID: req.UserID, Count: req.normalized(), Date: time.Now().UTC()}
	if err := h.service.RecordCall(c.Request.Context(), call); err != nil {
		h.logger.Error("Failed to record call", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record call"})
		return
	}
	c.JSON(http.StatusCreated, call)
}

// Calls handles GET /api/v1/leaderboards/calls
func (h *LeaderboardHandler) Calls(c *gin.Context) {
	topN, _ := strconv.Atoi(c.DefaultQuery("top", "5"))

	entries, err := h.service.Calls(c.Request.Context(), topN)
	if err != nil {
		h.logger.Error("Failed to build calls leaderboard", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build leaderboard"})
		return
	}

	c.JSON(http.StatusOK, models.LeaderboardResponse{Entries: entries})
}
