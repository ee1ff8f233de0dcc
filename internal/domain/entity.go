package domain

import "time"

// VersionedVolume is a snapshot that belongs to a root and to a versioning chain.
type VersionedVolume interface {
	GetID() string
	GetRootID() string
	GetStatus() string
	GetVersioningID() *string
	GetLockVersion() int64
}

// LanguageAvailable is the publication sub-state of one language of a snapshot.
type LanguageAvailable interface {
	GetLanguage() string
	GetStatus() string
	GetModifiedAt() time.Time
}

// MultilingualEntity exposes the per-language availability entries of a snapshot.
type MultilingualEntity interface {
	GetLanguageAvailabilities() []LanguageAvailable
}

// Auditable exposes the audit fields of a snapshot.
type Auditable interface {
	GetOrganizationID() string
	GetCreatedBy() string
	GetModifiedBy() string
	GetModifiedAt() time.Time
	GetPublishedAt() *time.Time
	GetExpireOn() *time.Time
}

// Entity is the capability set the publishing engine works with. Any family whose
// snapshots are versioned, multilingual and auditable can be processed by it.
type Entity interface {
	VersionedVolume
	MultilingualEntity
	Auditable
}
