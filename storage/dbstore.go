package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"brandcast-server/models"

	_ "github.com/go-sql-driver/mysql"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStore is the MySQL backend.
type DBStore struct {
	db *gorm.DB
}

// NewDBStore opens the MySQL connection, runs migrations and returns the
// store. The underlying handle is owned by the returned store.
func NewDBStore(dsn string) (*DBStore, error) {
	sqlDB, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql failed: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}

	gormDB, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("gorm init failed: %w", err)
	}

	if err := gormDB.AutoMigrate(&models.BrandProfile{}, &models.ContentRequest{}, &models.ContentDraft{}); err != nil {
		return nil, fmt.Errorf("migrate failed: %w", err)
	}
	// Drafts must never outlive their request.
	err = gormDB.Exec(`ALTER TABLE content_draft ADD CONSTRAINT fk_draft_request
		FOREIGN KEY (request_id) REFERENCES content_request(id) ON DELETE CASCADE`).Error
	if err != nil {
		// Already present on every start after the first.
		log.Debugf("draft FK constraint: %v", err)
	}

	log.Println("mysql store initialized")
	return &DBStore{db: gormDB}, nil
}

func (s *DBStore) SaveBrandProfile(ctx context.Context, profile *models.BrandProfile) error {
	profile.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(profile).Error
}

func (s *DBStore) GetBrandProfile(ctx context.Context, accountID string) (*models.BrandProfile, error) {
	var profile models.BrandProfile
	err := s.db.WithContext(ctx).First(&profile, "account_id = ?", accountID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *DBStore) SaveRequest(ctx context.Context, req *models.ContentRequest) error {
	return s.db.WithContext(ctx).Create(req).Error
}

func (s *DBStore) GetRequest(ctx context.Context, id string) (*models.ContentRequest, error) {
	var req models.ContentRequest
	err := s.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *DBStore) ListRequests(ctx context.Context) ([]models.ContentRequest, error) {
	var reqs []models.ContentRequest
	err := s.db.WithContext(ctx).Order("created_at DESC").Find(&reqs).Error
	return reqs, err
}

func (s *DBStore) UpdateRequestStatus(ctx context.Context, id, status, errorMessage string) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}
	res := s.db.WithContext(ctx).Model(&models.ContentRequest{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DBStore) DeleteRequest(ctx context.Context, id string) error {
	// The FK cascade covers drafts; the explicit delete keeps behavior
	// identical when the constraint could not be created.
	if err := s.db.WithContext(ctx).Delete(&models.ContentDraft{}, "request_id = ?", id).Error; err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Delete(&models.ContentRequest{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DBStore) SaveDrafts(ctx context.Context, drafts []models.ContentDraft) error {
	if len(drafts) == 0 {
		return nil
	}
	if err := sameRequestBatch(drafts); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&drafts).Error
}

func (s *DBStore) GetDrafts(ctx context.Context, requestID string) ([]models.ContentDraft, error) {
	var drafts []models.ContentDraft
	err := s.db.WithContext(ctx).Where("request_id = ?", requestID).
		Order("created_at ASC").Find(&drafts).Error
	return drafts, err
}
