package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"atrium/services"
	"atrium/store"
	"atrium/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type WSHandler struct {
	publisher *services.Publisher
	store     store.Store
	logger    *utils.Logger
	upgrader  websocket.Upgrader
}

func NewWSHandler(publisher *services.Publisher, st store.Store, logger *utils.Logger) *WSHandler {
	return &WSHandler{
		publisher: publisher,
		store:     st,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /api/v1/ws: each connection gets the current snapshot
// immediately, then every snapshot published after a committed mutation.
// Closing the connection cancels the subscription.
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	snapshots, cancel := h.publisher.Subscribe()

	// Push current state before any change arrives.
	rooms, roomsErr := h.store.ListRooms(c.Request.Context())
	users, usersErr := h.store.ListUsers(c.Request.Context())
	if roomsErr == nil && usersErr == nil {
		initial := services.Snapshot{Rooms: rooms, Users: users, At: time.Now().UTC()}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(initial); err != nil {
			cancel()
			conn.Close()
			return
		}
	}

	done := make(chan struct{})

	// Reader drains control frames and detects the client going away.
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			cancel()
			conn.Close()
		}()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case snap, ok := <-snapshots:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(snap); err != nil {
					return
				}
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()
}
