package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"atrium/config"
	"atrium/middleware"
	"atrium/models"
	"atrium/services"
	"atrium/utils"
)

// ChatHandler fronts the external chat collaborator. Each authenticated user
// gets their own chat client with a session-scoped token cache; nothing is
// cached at package level.
type ChatHandler struct {
	cfg    *config.Config
	logger *utils.Logger

	mu      sync.Mutex
	clients map[string]*services.ChatClient
}

func NewChatHandler(cfg *config.Config, logger *utils.Logger) *ChatHandler {
	return &ChatHandler{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[string]*services.ChatClient),
	}
}

func (h *ChatHandler) clientFor(c *gin.Context) *services.ChatClient {
	userID := c.GetString(middleware.ContextUserID)
	idToken := c.GetString(middleware.ContextToken)

	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[userID]; ok {
		return client
	}
	tokens := services.NewExchangeTokenSource(h.cfg.TokenEndpoint, idToken)
	client := services.NewChatClient(h.cfg.ChatAPIBase, tokens, h.logger)
	h.clients[userID] = client
	return client
}

// CreateSpace handles POST /api/v1/chat/spaces
func (h *ChatHandler) CreateSpace(c *gin.Context) {
	var req models.CreateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	space, err := h.clientFor(c).CreateSpace(c.Request.Context(), req.Name, req.Kind)
	if err != nil {
		h.logger.Error("Failed to create chat space", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, space)
}

// SendMessage handles POST /api/v1/chat/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	message, err := h.clientFor(c).SendMessage(c.Request.Context(), req.SpaceID, req.Text)
	if err != nil {
		h.logger.Error("Failed to send chat message", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, message)
}

// ListMessages handles GET /api/v1/chat/spaces/:id/messages
func (h *ChatHandler) ListMessages(c *gin.Context) {
	messages, err := h.clientFor(c).ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Failed to list chat messages", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
