package model

import "time"

// HistoryMetaData is the audit record of one transition.
type HistoryMetaData struct {
	ID                 string `gorm:"primaryKey;uuid;not null"`
	EntityType         string `gorm:"not null"`
	RootID             string `gorm:"uuid;not null;index"`
	EntityVersionID    string `gorm:"uuid;not null;index"`
	Action             string `gorm:"not null"`
	Actor              string
	FromStatus         string
	ToStatus           string
	Language           string
	TranslationOrderID *string
	// Snapshot holds the encoded state the version had before the transition.
	Snapshot    []byte
	Compression string
	ModifiedAt  time.Time
	CreatedAt   time.Time
}

func (HistoryMetaData) TableName() string {
	return "history_meta_data"
}
