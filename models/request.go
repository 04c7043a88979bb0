package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Request lifecycle: created queued, picked up by the worker, and ends in
// exactly one of the two terminal states.
const (
	RequestStatusQueued     = "queued"
	RequestStatusProcessing = "processing"
	RequestStatusCompleted  = "completed"
	RequestStatusFailed     = "failed"
)

// IsTerminalStatus reports whether no further processing is permitted.
func IsTerminalStatus(status string) bool {
	return status == RequestStatusCompleted || status == RequestStatusFailed
}

// Known social platforms. Unknown values still generate, with a generic
// style hint.
const (
	PlatformInstagram     = "instagram"
	PlatformTwitter       = "twitter"
	PlatformTikTok        = "tiktok"
	PlatformFacebook      = "facebook"
	PlatformLinkedIn      = "linkedin"
	PlatformYouTubeShorts = "youtube_shorts"
)

// ContentBrief is the user-supplied goal/theme/CTA/platform specification.
// Immutable once the request is created.
type ContentBrief struct {
	Goal           string     `json:"goal"`
	Theme          string     `json:"theme,omitempty"`
	CallToAction   string     `json:"callToAction,omitempty"`
	Constraints    StringList `json:"constraints,omitempty"`
	SocialPlatform string     `json:"socialPlatform"`
}

type ContentRequest struct {
	ID           string       `gorm:"primaryKey;type:varchar(64)" json:"id"`
	AccountID    string       `gorm:"type:varchar(64);index" json:"accountId"`
	Brief        ContentBrief `gorm:"type:json" json:"brief"`
	Status       string       `gorm:"type:varchar(20)" json:"status"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func (ContentRequest) TableName() string {
	return "content_request"
}

func (b ContentBrief) Value() (driver.Value, error) {
	return json.Marshal(b)
}

func (b *ContentBrief) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, b)
}
