package api

import (
	"errors"
	"net/http"
	"time"

	"brandcast-server/models"
	"brandcast-server/queue"
	"brandcast-server/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type createRequestBody struct {
	AccountID string              `json:"accountId"`
	Brief     models.ContentBrief `json:"brief"`
	Priority  string              `json:"priority"`
	DelayMs   int64               `json:"delayMs"`
}

// CreateContentRequest persists a queued request and enqueues exactly one
// job message for it.
func (h *Handler) CreateContentRequest(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if body.AccountID == "" {
		errorJSON(c, http.StatusBadRequest, "accountId is required")
		return
	}
	if body.Brief.Goal == "" {
		errorJSON(c, http.StatusBadRequest, "brief.goal is required")
		return
	}
	if body.Brief.SocialPlatform == "" {
		errorJSON(c, http.StatusBadRequest, "brief.socialPlatform is required")
		return
	}

	now := time.Now()
	req := models.ContentRequest{
		ID:        uuid.NewString(),
		AccountID: body.AccountID,
		Brief:     body.Brief,
		Status:    models.RequestStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Store.SaveRequest(c.Request.Context(), &req); err != nil {
		errorJSON(c, http.StatusInternalServerError, "create request failed: "+err.Error())
		return
	}

	msg := queue.JobMessage{
		RequestID: req.ID,
		AccountID: req.AccountID,
		Priority:  body.Priority,
	}
	delay := time.Duration(body.DelayMs) * time.Millisecond
	if err := h.Queue.Enqueue(c.Request.Context(), msg, delay); err != nil {
		// The request exists but will never be picked up; surface that
		// instead of returning a request stuck in queued.
		log.Printf("[api] enqueue for request %s failed: %v", req.ID, err)
		_ = h.Store.UpdateRequestStatus(c.Request.Context(), req.ID,
			models.RequestStatusFailed, "enqueue failed: "+err.Error())
		errorJSON(c, http.StatusInternalServerError, "enqueue failed: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{"request": req})
}

// ListContentRequests returns all requests, newest first, optionally
// filtered by ?accountId=.
func (h *Handler) ListContentRequests(c *gin.Context) {
	requests, err := h.Store.ListRequests(c.Request.Context())
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "list requests failed: "+err.Error())
		return
	}

	if accountID := c.Query("accountId"); accountID != "" {
		filtered := make([]models.ContentRequest, 0, len(requests))
		for _, r := range requests {
			if r.AccountID == accountID {
				filtered = append(filtered, r)
			}
		}
		requests = filtered
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (h *Handler) GetContentRequest(c *gin.Context) {
	id := c.Param("request_id")
	req, err := h.Store.GetRequest(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "get request failed: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": req})
}

// DeleteContentRequest removes the request and its drafts. The queue is
// not touched: a leftover message is dropped by the worker's not-found
// check on delivery.
func (h *Handler) DeleteContentRequest(c *gin.Context) {
	id := c.Param("request_id")
	err := h.Store.DeleteRequest(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "delete request failed: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"deleteAt": time.Now(),
	})
}
