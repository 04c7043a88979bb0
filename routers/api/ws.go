package api

import (
	"net/http"
	"time"

	"brandcast-server/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// RequestStatusWebSocket pushes the request's status over a websocket:
// current state on connect, then a message on every status change, and a
// final frame + close once the request reaches a terminal state. The store
// is the source of truth; this only polls and forwards.
func (h *Handler) RequestStatusWebSocket(c *gin.Context) {
	requestID := c.Param("request_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "websocket upgrade failed")
		return
	}
	defer conn.Close()

	req, err := h.Store.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		_ = conn.WriteJSON(map[string]interface{}{"error": "request not found"})
		return
	}
	if err := conn.WriteJSON(req); err != nil {
		return
	}
	if models.IsTerminalStatus(req.Status) {
		return
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	prevStatus := req.Status
	for range ticker.C {
		cur, err := h.Store.GetRequest(c.Request.Context(), requestID)
		if err != nil {
			// Deleted mid-watch or transient store error; the ping below
			// still bounds the loop if the client is gone too.
			if !pingClient(conn) {
				break
			}
			continue
		}
		if cur.Status != prevStatus {
			if err := conn.WriteJSON(cur); err != nil {
				break
			}
			prevStatus = cur.Status
		} else if !pingClient(conn) {
			// No status change to write: probe the peer so a silently
			// dropped client does not leak this goroutine.
			break
		}
		if models.IsTerminalStatus(cur.Status) {
			break
		}
	}
}

func pingClient(conn *websocket.Conn) bool {
	deadline := time.Now().Add(5 * time.Second)
	return conn.WriteControl(websocket.PingMessage, nil, deadline) == nil
}
