package routers

import (
	"net/http"

	"brandcast-server/routers/api"

	"github.com/gin-gonic/gin"
)

func InitRouter(h *api.Handler) *gin.Engine {
	r := gin.Default()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	v1 := r.Group("/v1/api")
	{
		v1.POST("/content-requests", h.CreateContentRequest)
		v1.GET("/content-requests", h.ListContentRequests)
		v1.GET("/content-requests/:request_id", h.GetContentRequest)
		v1.DELETE("/content-requests/:request_id", h.DeleteContentRequest)
		v1.GET("/content-requests/:request_id/ws", h.RequestStatusWebSocket)
		v1.POST("/brand-profile", h.UpsertBrandProfile)
		v1.GET("/brand-profile", h.GetBrandProfile)
		v1.GET("/drafts", h.ListDrafts)
	}
	return r
}
