package model

import (
	"time"

	"github.com/emrgen/servicecatalog/internal/domain"
)

// EntityRoot is the stable identity shared by all versions of a record. Every family
// keeps its roots in its own table.
type EntityRoot struct {
	ID             string `gorm:"primaryKey;uuid;not null"`
	OrganizationID string `gorm:"uuid;not null"`
	CreatedBy      string
	CreatedAt      time.Time
}

var _ domain.Entity = (*EntityVersion)(nil)

// EntityVersion is one snapshot of a root.
type EntityVersion struct {
	ID             string  `gorm:"primaryKey;uuid;not null"`
	RootID         string  `gorm:"uuid;not null"`
	OrganizationID string  `gorm:"uuid;not null"`
	Status         string  `gorm:"not null"`
	VersioningID   *string `gorm:"uuid"`
	// ValidFrom is the scheduled publish time, ValidTo the scheduled archive time.
	ValidFrom   *time.Time
	ValidTo     *time.Time
	ExpireOn    *time.Time
	PublishedAt *time.Time
	// Common marks a service channel that other organizations may connect to.
	Common      bool `gorm:"default:false"`
	CreatedBy   string
	ModifiedBy  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ModifiedAt  time.Time
	LockVersion int64 `gorm:"not null;default:0"`

	LanguageAvailabilities []*LanguageAvailability `gorm:"-"`
}

func (v *EntityVersion) GetID() string              { return v.ID }
func (v *EntityVersion) GetRootID() string          { return v.RootID }
func (v *EntityVersion) GetStatus() string          { return v.Status }
func (v *EntityVersion) GetVersioningID() *string   { return v.VersioningID }
func (v *EntityVersion) GetLockVersion() int64      { return v.LockVersion }
func (v *EntityVersion) GetOrganizationID() string  { return v.OrganizationID }
func (v *EntityVersion) GetCreatedBy() string       { return v.CreatedBy }
func (v *EntityVersion) GetModifiedBy() string      { return v.ModifiedBy }
func (v *EntityVersion) GetModifiedAt() time.Time   { return v.ModifiedAt }
func (v *EntityVersion) GetPublishedAt() *time.Time { return v.PublishedAt }
func (v *EntityVersion) GetExpireOn() *time.Time    { return v.ExpireOn }

func (v *EntityVersion) GetLanguageAvailabilities() []domain.LanguageAvailable {
	out := make([]domain.LanguageAvailable, len(v.LanguageAvailabilities))
	for i, la := range v.LanguageAvailabilities {
		out[i] = la
	}

	return out
}

// Language returns the availability entry of the language, or nil.
func (v *EntityVersion) Language(code string) *LanguageAvailability {
	for _, la := range v.LanguageAvailabilities {
		if la.Language == code {
			return la
		}
	}

	return nil
}

// LanguageAvailability is the publication state of one language of a snapshot.
type LanguageAvailability struct {
	EntityVersionID    string `gorm:"primaryKey;uuid;not null"`
	Language           string `gorm:"primaryKey;not null"`
	Status             string `gorm:"not null"`
	ModifiedAt         time.Time
	ModifiedBy         string
	TranslationOrderID *string
	ReviewedBy         string
	ReviewedAt         *time.Time
}

func (l *LanguageAvailability) GetLanguage() string      { return l.Language }
func (l *LanguageAvailability) GetStatus() string        { return l.Status }
func (l *LanguageAvailability) GetModifiedAt() time.Time { return l.ModifiedAt }
