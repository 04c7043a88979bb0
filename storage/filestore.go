package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"brandcast-server/models"
)

// FileStore keeps three JSON documents under a directory, each a map from
// entity id to record. Every write replaces the whole file (temp file +
// rename), so it is single-process only; it exists so the server runs with
// no MySQL around.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir failed: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) brandsFile() string   { return filepath.Join(s.dir, "brands.json") }
func (s *FileStore) requestsFile() string { return filepath.Join(s.dir, "requests.json") }
func (s *FileStore) draftsFile() string   { return filepath.Join(s.dir, "drafts.json") }

func readMap[T any](path string) (map[string]T, error) {
	out := make(map[string]T)
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("corrupt store file %s: %w", path, err)
	}
	return out, nil
}

func writeMap[T any](path string, m map[string]T) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func (s *FileStore) SaveBrandProfile(_ context.Context, profile *models.BrandProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	brands, err := readMap[models.BrandProfile](s.brandsFile())
	if err != nil {
		return err
	}
	profile.UpdatedAt = time.Now()
	brands[profile.AccountID] = *profile
	return writeMap(s.brandsFile(), brands)
}

func (s *FileStore) GetBrandProfile(_ context.Context, accountID string) (*models.BrandProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	brands, err := readMap[models.BrandProfile](s.brandsFile())
	if err != nil {
		return nil, err
	}
	profile, ok := brands[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	return &profile, nil
}

func (s *FileStore) SaveRequest(_ context.Context, req *models.ContentRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	requests, err := readMap[models.ContentRequest](s.requestsFile())
	if err != nil {
		return err
	}
	requests[req.ID] = *req
	return writeMap(s.requestsFile(), requests)
}

func (s *FileStore) GetRequest(_ context.Context, id string) (*models.ContentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	requests, err := readMap[models.ContentRequest](s.requestsFile())
	if err != nil {
		return nil, err
	}
	req, ok := requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &req, nil
}

func (s *FileStore) ListRequests(_ context.Context) ([]models.ContentRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	requests, err := readMap[models.ContentRequest](s.requestsFile())
	if err != nil {
		return nil, err
	}
	out := make([]models.ContentRequest, 0, len(requests))
	for _, r := range requests {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *FileStore) UpdateRequestStatus(_ context.Context, id, status, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	requests, err := readMap[models.ContentRequest](s.requestsFile())
	if err != nil {
		return err
	}
	req, ok := requests[id]
	if !ok {
		return ErrNotFound
	}
	req.Status = status
	req.UpdatedAt = time.Now()
	if errorMessage != "" {
		req.ErrorMessage = errorMessage
	}
	requests[id] = req
	return writeMap(s.requestsFile(), requests)
}

func (s *FileStore) DeleteRequest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	requests, err := readMap[models.ContentRequest](s.requestsFile())
	if err != nil {
		return err
	}
	if _, ok := requests[id]; !ok {
		return ErrNotFound
	}
	delete(requests, id)
	if err := writeMap(s.requestsFile(), requests); err != nil {
		return err
	}

	drafts, err := readMap[[]models.ContentDraft](s.draftsFile())
	if err != nil {
		return err
	}
	delete(drafts, id)
	return writeMap(s.draftsFile(), drafts)
}

func (s *FileStore) SaveDrafts(_ context.Context, draftList []models.ContentDraft) error {
	if len(draftList) == 0 {
		return nil
	}
	if err := sameRequestBatch(draftList); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	drafts, err := readMap[[]models.ContentDraft](s.draftsFile())
	if err != nil {
		return err
	}
	requestID := draftList[0].RequestID
	drafts[requestID] = append(drafts[requestID], draftList...)
	return writeMap(s.draftsFile(), drafts)
}

func (s *FileStore) GetDrafts(_ context.Context, requestID string) ([]models.ContentDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drafts, err := readMap[[]models.ContentDraft](s.draftsFile())
	if err != nil {
		return nil, err
	}
	return drafts[requestID], nil
}
