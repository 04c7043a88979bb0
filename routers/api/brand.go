package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"brandcast-server/models"
	"brandcast-server/storage"

	"github.com/gin-gonic/gin"
)

type upsertBrandBody struct {
	AccountID string               `json:"accountId"`
	Brand     models.BrandIdentity `json:"brand"`
}

// UpsertBrandProfile replaces the account's brand identity wholesale.
func (h *Handler) UpsertBrandProfile(c *gin.Context) {
	var body upsertBrandBody
	if err := c.ShouldBindJSON(&body); err != nil {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	if body.AccountID == "" {
		errorJSON(c, http.StatusBadRequest, "accountId is required")
		return
	}
	if missing := body.Brand.MissingFields(); len(missing) > 0 {
		errorJSON(c, http.StatusBadRequest,
			"missing required brand fields: "+strings.Join(missing, ", "))
		return
	}

	profile := models.BrandProfile{
		AccountID: body.AccountID,
		Brand:     body.Brand,
		UpdatedAt: time.Now(),
	}
	if err := h.Store.SaveBrandProfile(c.Request.Context(), &profile); err != nil {
		errorJSON(c, http.StatusInternalServerError, "save brand profile failed: "+err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{"brandProfile": profile})
}

func (h *Handler) GetBrandProfile(c *gin.Context) {
	accountID := c.Query("accountId")
	if accountID == "" {
		errorJSON(c, http.StatusBadRequest, "accountId is required")
		return
	}

	profile, err := h.Store.GetBrandProfile(c.Request.Context(), accountID)
	if errors.Is(err, storage.ErrNotFound) {
		errorJSON(c, http.StatusNotFound, "brand profile not found")
		return
	}
	if err != nil {
		errorJSON(c, http.StatusInternalServerError, "get brand profile failed: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"brandProfile": profile})
}
