package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ContentDraft is one generated candidate post. Drafts are written in a
// batch once generation succeeds and never mutated afterwards; they go away
// only when the owning request is deleted.
//
// The image fields are set together or not at all: a draft either carries
// url+provider+cost or explicit nulls (text-only degradation).
type ContentDraft struct {
	ID            string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	RequestID     string     `gorm:"type:varchar(64);index" json:"requestId"`
	Caption       string     `gorm:"type:text" json:"caption"`
	ImagePrompt   string     `gorm:"type:text" json:"imagePrompt"`
	Hashtags      StringList `gorm:"type:json" json:"hashtags,omitempty"`
	ImageURL      *string    `gorm:"type:text" json:"imageUrl"`
	ImageProvider *string    `gorm:"type:varchar(50)" json:"imageProvider"`
	ImageCost     *float64   `json:"imageCost"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (ContentDraft) TableName() string {
	return "content_draft"
}

// StringList stores a []string as a JSON column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, l)
}
