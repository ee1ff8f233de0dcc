package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Versioning is one link of the version chain of a snapshot. Records are append-only,
// only Ignored is ever updated.
type Versioning struct {
	ID         string  `gorm:"primaryKey;uuid;not null"`
	Major      int     `gorm:"not null;default:0"`
	Minor      int     `gorm:"not null;default:0"`
	PreviousID *string `gorm:"uuid"`
	Meta       datatypes.JSON
	Ignored    bool `gorm:"default:false"`
	CreatedAt  time.Time
}

// Version formats the major and minor numbers as a semantic version.
func (v *Versioning) Version() string {
	return fmt.Sprintf("%d.%d.0", v.Major, v.Minor)
}
