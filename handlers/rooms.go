package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"atrium/models"
	"atrium/services"
	"atrium/utils"
)

type RoomHandler struct {
	rooms  *services.RoomService
	engine *services.OccupancyEngine
	logger *utils.Logger
}

func NewRoomHandler(rooms *services.RoomService, engine *services.OccupancyEngine, logger *utils.Logger) *RoomHandler {
	return &RoomHandler{
		rooms:  rooms,
		engine: engine,
		logger: logger,
	}
}

// ListRooms handles GET /api/v1/rooms
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// CreateRoom handles POST /api/v1/rooms
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	room, err := h.engine.CreateRoom(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Room created", "id", room.ID, "name", room.Name, "type", room.Type)
	c.JSON(http.StatusCreated, room)
}

// GetRoom handles GET /api/v1/rooms/:id
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.rooms.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// UpdateRoom handles PATCH /api/v1/rooms/:id for layout-facing fields.
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
	var req models.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	room, err := h.rooms.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// DeleteRoom handles DELETE /api/v1/rooms/:id. Deletion is unconditional;
// the UI checks the room is empty before calling.
func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	if err := h.engine.DeleteRoom(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Room deleted", "id", c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Room deleted successfully"})
}

// AssignHomeOffice handles POST /api/v1/rooms/:id/assign
func (h *RoomHandler) AssignHomeOffice(c *gin.Context) {
	var req models.OccupancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.engine.AssignHomeOffice(c.Request.Context(), req.UserID, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Home office assigned", "user_id", req.UserID, "room_id", c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Home office assigned"})
}

// VisitOffice handles POST /api/v1/rooms/:id/visit
func (h *RoomHandler) VisitOffice(c *gin.Context) {
	var req models.OccupancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.engine.VisitOffice(c.Request.Context(), req.UserID, c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("Office visited", "user_id", req.UserID, "room_id", c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"message": "Office visited"})
}
