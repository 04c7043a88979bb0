package api

import (
	"net/http"

	"brandcast-server/models"

	"github.com/gin-gonic/gin"
)

// ListDrafts returns the drafts generated for one request. An unknown or
// not-yet-completed request yields an empty list, not an error.
func (h *Handler) ListDrafts(c *gin.Context) {
	requestID := c.Query("requestId")
	if requestID == "" {
		errorJSON(c, http.StatusBadRequest, "requestId is required")
		return
	}

	drafts, err := h.Store.GetDrafts(c.Request.Context(), requestID)
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "get drafts failed: "+err.Error())
		return
	}
	if drafts == nil {
		drafts = []models.ContentDraft{}
	}
	c.JSON(http.StatusOK, gin.H{"drafts": drafts})
}
