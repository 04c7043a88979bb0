package storage

import (
	"context"
	"errors"
	"fmt"

	"brandcast-server/models"
)

// ErrNotFound is returned when a request or brand profile does not exist.
var ErrNotFound = errors.New("record not found")

// sameRequestBatch verifies a draft batch belongs to a single request.
func sameRequestBatch(drafts []models.ContentDraft) error {
	for _, d := range drafts {
		if d.RequestID != drafts[0].RequestID {
			return fmt.Errorf("draft batch mixes requests %s and %s", drafts[0].RequestID, d.RequestID)
		}
	}
	return nil
}

// Store is the persistence contract shared by the MySQL and file backends.
// Construct one at startup and pass it explicitly; backends own their
// connection or directory exclusively.
type Store interface {
	SaveBrandProfile(ctx context.Context, profile *models.BrandProfile) error
	GetBrandProfile(ctx context.Context, accountID string) (*models.BrandProfile, error)

	SaveRequest(ctx context.Context, req *models.ContentRequest) error
	GetRequest(ctx context.Context, id string) (*models.ContentRequest, error)
	ListRequests(ctx context.Context) ([]models.ContentRequest, error)
	// UpdateRequestStatus sets status and bumps updatedAt; errorMessage is
	// written only when non-empty.
	UpdateRequestStatus(ctx context.Context, id, status, errorMessage string) error
	// DeleteRequest removes a request and cascades to its drafts.
	DeleteRequest(ctx context.Context, id string) error

	// SaveDrafts persists one request's generation batch; every draft must
	// carry the same RequestID or the batch is rejected.
	SaveDrafts(ctx context.Context, drafts []models.ContentDraft) error
	GetDrafts(ctx context.Context, requestID string) ([]models.ContentDraft, error)
}
