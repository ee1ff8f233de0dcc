package store

import (
	"context"
	"time"

	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/model"
)

// Store is the unit of work of the publishing engine. Everything done through the
// Store handed to Transaction commits or rolls back together.
type Store interface {
	EntityStore
	LanguageStore
	VersioningStore
	HistoryStore
	ConnectionStore
	ExpirationPolicyStore
	Transaction(ctx context.Context, f func(tx Store) error) error
	Migrate() error
}

type EntityStore interface {
	// CreateRoot creates a new root.
	CreateRoot(ctx context.Context, family domain.Family, root *model.EntityRoot) error
	// GetRoot retrieves a root by ID.
	GetRoot(ctx context.Context, family domain.Family, id string) (*model.EntityRoot, error)
	// ListRootsFromIDs retrieves the roots with the given IDs.
	ListRootsFromIDs(ctx context.Context, family domain.Family, ids []string) ([]*model.EntityRoot, error)
	// CreateVersion creates a new version together with its language availabilities.
	CreateVersion(ctx context.Context, family domain.Family, version *model.EntityVersion) error
	// GetVersion retrieves a version with its language availabilities.
	GetVersion(ctx context.Context, family domain.Family, id string) (*model.EntityVersion, error)
	// ListVersions retrieves all versions of a root.
	ListVersions(ctx context.Context, family domain.Family, rootID string) ([]*model.EntityVersion, error)
	// ListVersionsFromIDs retrieves the versions with the given IDs.
	ListVersionsFromIDs(ctx context.Context, family domain.Family, ids []string) ([]*model.EntityVersion, error)
	// ListScheduledVersions retrieves the versions whose scheduled publish or archive time has passed.
	ListScheduledVersions(ctx context.Context, family domain.Family, now time.Time) ([]*model.EntityVersion, error)
	// ListExpiredVersions retrieves the versions whose expiration date has passed.
	ListExpiredVersions(ctx context.Context, family domain.Family, now time.Time) ([]*model.EntityVersion, error)
	// UpdateVersion writes the version if nobody changed it since it was read.
	UpdateVersion(ctx context.Context, family domain.Family, version *model.EntityVersion) error
}

type LanguageStore interface {
	// SaveLanguageAvailabilities inserts or overwrites availability entries.
	SaveLanguageAvailabilities(ctx context.Context, family domain.Family, entries []*model.LanguageAvailability) error
	// ListLanguageAvailabilities retrieves the entries of the given versions.
	ListLanguageAvailabilities(ctx context.Context, family domain.Family, versionIDs []string) ([]*model.LanguageAvailability, error)
	// ListLanguages retrieves the supported languages.
	ListLanguages(ctx context.Context) ([]*model.Language, error)
}

type VersioningStore interface {
	CreateVersioning(ctx context.Context, versioning *model.Versioning) error
	GetVersioning(ctx context.Context, id string) (*model.Versioning, error)
	ListVersioningsFromIDs(ctx context.Context, ids []string) ([]*model.Versioning, error)
	// IgnoreVersioning flags a versioning record so chain walks skip it.
	IgnoreVersioning(ctx context.Context, id string) error
}

type HistoryStore interface {
	CreateHistory(ctx context.Context, history *model.HistoryMetaData) error
	UpdateHistory(ctx context.Context, history *model.HistoryMetaData) error
	// GetLatestHistory retrieves the newest entry of a version, limited to the given actions if any.
	GetLatestHistory(ctx context.Context, versionID string, actions ...string) (*model.HistoryMetaData, error)
	// ListHistory retrieves the entries of a version, newest first.
	ListHistory(ctx context.Context, versionID string) ([]*model.HistoryMetaData, error)
}

type ConnectionStore interface {
	CreateConnection(ctx context.Context, connection *model.Connection) error
	// ListChannelConnections retrieves the connections of the given service channel roots.
	ListChannelConnections(ctx context.Context, channelRootIDs []string) ([]*model.Connection, error)
	DeleteConnections(ctx context.Context, ids []uint) error
}

type ExpirationPolicyStore interface {
	// GetExpirationPolicy returns ErrPolicyNotFound when the organization has no policy.
	GetExpirationPolicy(ctx context.Context, organizationID string, family domain.Family) (*model.ExpirationPolicy, error)
	SaveExpirationPolicy(ctx context.Context, policy *model.ExpirationPolicy) error
}
