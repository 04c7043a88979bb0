package api

import (
	"brandcast-server/queue"
	"brandcast-server/storage"

	"github.com/gin-gonic/gin"
)

// Handler carries the dependencies shared by every endpoint. Handlers are
// methods so tests can wire a file store and a memory queue directly.
type Handler struct {
	Store storage.Store
	Queue queue.Producer
}

func NewHandler(store storage.Store, producer queue.Producer) *Handler {
	return &Handler{Store: store, Queue: producer}
}

func errorJSON(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
