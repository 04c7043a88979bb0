package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// BrandIdentity is the reusable voice/style profile applied to every
// generation for an account. It is stored as one JSON column and replaced
// wholesale on re-save.
type BrandIdentity struct {
	Name                string     `json:"name"`
	OneLineDescription  string     `json:"oneLineDescription"`
	Tone                StringList `json:"tone"` // up to 3 descriptor words
	AudienceSummary     string     `json:"audienceSummary"`
	HeroItems           StringList `json:"heroItems"` // 1-3 SKUs or categories
	ValueProp           string     `json:"valueProp"`
	WordsWeLove         StringList `json:"wordsWeLove,omitempty"`
	WordsToAvoid        StringList `json:"wordsToAvoid,omitempty"`
	LogoURL             string     `json:"logoUrl"`
	PrimaryColorHex     string     `json:"primaryColorHex"`
	SecondaryColorHexes StringList `json:"secondaryColorHexes,omitempty"`
	FontName            string     `json:"fontName,omitempty"`
	ExampleImageURLs    StringList `json:"exampleImageUrls,omitempty"`
	ImageStyleNote      string     `json:"imageStyleNote,omitempty"`
}

// BrandProfile wraps a BrandIdentity with its owning account. One profile
// per account, upserted by account id.
type BrandProfile struct {
	AccountID string        `gorm:"primaryKey;type:varchar(64)" json:"accountId"`
	Brand     BrandIdentity `gorm:"type:json" json:"brand"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (BrandProfile) TableName() string {
	return "brand_profile"
}

func (b BrandIdentity) Value() (driver.Value, error) {
	return json.Marshal(b)
}

func (b *BrandIdentity) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New(fmt.Sprint("failed to unmarshal JSON value:", value))
	}
	return json.Unmarshal(bytes, b)
}

// MissingFields lists the required identity fields that are absent, in a
// stable order, for the upsert validation error.
func (b BrandIdentity) MissingFields() []string {
	var missing []string
	if b.Name == "" {
		missing = append(missing, "name")
	}
	if b.OneLineDescription == "" {
		missing = append(missing, "oneLineDescription")
	}
	if len(b.Tone) == 0 {
		missing = append(missing, "tone")
	}
	if b.AudienceSummary == "" {
		missing = append(missing, "audienceSummary")
	}
	if b.ValueProp == "" {
		missing = append(missing, "valueProp")
	}
	if b.PrimaryColorHex == "" {
		missing = append(missing, "primaryColorHex")
	}
	return missing
}
