package store

import (
	"context"
	"errors"
	"time"

	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/emrgen/servicecatalog/internal/publishing"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db: db,
	}
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	return err
}

func (g *GormStore) CreateRoot(ctx context.Context, family domain.Family, root *model.EntityRoot) error {
	return g.db.WithContext(ctx).Table(family.RootTable()).Create(root).Error
}

func (g *GormStore) GetRoot(ctx context.Context, family domain.Family, id string) (*model.EntityRoot, error) {
	var root model.EntityRoot
	err := g.db.WithContext(ctx).Table(family.RootTable()).Where("id = ?", id).First(&root).Error
	if err != nil {
		return nil, notFound(err)
	}

	return &root, nil
}

func (g *GormStore) ListRootsFromIDs(ctx context.Context, family domain.Family, ids []string) ([]*model.EntityRoot, error) {
	var roots []*model.EntityRoot
	if len(ids) == 0 {
		return roots, nil
	}
	err := g.db.WithContext(ctx).Table(family.RootTable()).Where("id IN ?", ids).Find(&roots).Error
	return roots, err
}

// CreateVersion creates the version row and its language availabilities.
// NOTE: should run in a transaction
func (g *GormStore) CreateVersion(ctx context.Context, family domain.Family, version *model.EntityVersion) error {
	if err := g.db.WithContext(ctx).Table(family.VersionTable()).Create(version).Error; err != nil {
		return err
	}

	for _, la := range version.LanguageAvailabilities {
		la.EntityVersionID = version.ID
	}

	return g.SaveLanguageAvailabilities(ctx, family, version.LanguageAvailabilities)
}

func (g *GormStore) GetVersion(ctx context.Context, family domain.Family, id string) (*model.EntityVersion, error) {
	var version model.EntityVersion
	err := g.db.WithContext(ctx).Table(family.VersionTable()).Where("id = ?", id).First(&version).Error
	if err != nil {
		return nil, notFound(err)
	}

	if err := g.loadLanguages(ctx, family, []*model.EntityVersion{&version}); err != nil {
		return nil, err
	}

	return &version, nil
}

func (g *GormStore) ListVersions(ctx context.Context, family domain.Family, rootID string) ([]*model.EntityVersion, error) {
	var versions []*model.EntityVersion
	err := g.db.WithContext(ctx).Table(family.VersionTable()).Where("root_id = ?", rootID).Order("created_at").Find(&versions).Error
	if err != nil {
		return nil, err
	}

	return versions, g.loadLanguages(ctx, family, versions)
}

func (g *GormStore) ListVersionsFromIDs(ctx context.Context, family domain.Family, ids []string) ([]*model.EntityVersion, error) {
	var versions []*model.EntityVersion
	if len(ids) == 0 {
		return versions, nil
	}
	err := g.db.WithContext(ctx).Table(family.VersionTable()).Where("id IN ?", ids).Find(&versions).Error
	if err != nil {
		return nil, err
	}

	return versions, g.loadLanguages(ctx, family, versions)
}

func (g *GormStore) ListScheduledVersions(ctx context.Context, family domain.Family, now time.Time) ([]*model.EntityVersion, error) {
	editable := []string{string(publishing.StatusDraft), string(publishing.StatusModified)}
	archivable := append(editable, string(publishing.StatusPublished))

	var versions []*model.EntityVersion
	err := g.db.WithContext(ctx).Table(family.VersionTable()).
		Where("(status IN ? AND valid_from <= ?) OR (status IN ? AND valid_to <= ?)", editable, now, archivable, now).
		Order("root_id").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}

	return versions, g.loadLanguages(ctx, family, versions)
}

func (g *GormStore) ListExpiredVersions(ctx context.Context, family domain.Family, now time.Time) ([]*model.EntityVersion, error) {
	statuses := []string{
		string(publishing.StatusDraft),
		string(publishing.StatusPublished),
		string(publishing.StatusModified),
		string(publishing.StatusDeleted),
	}

	var versions []*model.EntityVersion
	err := g.db.WithContext(ctx).Table(family.VersionTable()).
		Where("expire_on <= ? AND status IN ?", now, statuses).
		Order("root_id").
		Find(&versions).Error
	if err != nil {
		return nil, err
	}

	return versions, g.loadLanguages(ctx, family, versions)
}

// UpdateVersion writes every column of the version guarded by its lock version. On success
// the lock version of the passed value is incremented.
func (g *GormStore) UpdateVersion(ctx context.Context, family domain.Family, version *model.EntityVersion) error {
	expected := version.LockVersion
	version.LockVersion = expected + 1

	res := g.db.WithContext(ctx).Table(family.VersionTable()).
		Where("id = ? AND lock_version = ?", version.ID, expected).
		Select("*").
		Updates(version)
	if res.Error != nil {
		version.LockVersion = expected
		return res.Error
	}
	if res.RowsAffected == 0 {
		version.LockVersion = expected
		logrus.Warnf("stale write on %s version %s (lock version %d)", family, version.ID, expected)
		return ErrStaleState
	}

	return nil
}

func (g *GormStore) loadLanguages(ctx context.Context, family domain.Family, versions []*model.EntityVersion) error {
	if len(versions) == 0 {
		return nil
	}

	ids := make([]string, len(versions))
	byID := make(map[string]*model.EntityVersion, len(versions))
	for i, v := range versions {
		ids[i] = v.ID
		byID[v.ID] = v
		v.LanguageAvailabilities = nil
	}

	entries, err := g.ListLanguageAvailabilities(ctx, family, ids)
	if err != nil {
		return err
	}

	for _, la := range entries {
		if v, ok := byID[la.EntityVersionID]; ok {
			v.LanguageAvailabilities = append(v.LanguageAvailabilities, la)
		}
	}

	return nil
}

func (g *GormStore) SaveLanguageAvailabilities(ctx context.Context, family domain.Family, entries []*model.LanguageAvailability) error {
	if len(entries) == 0 {
		return nil
	}

	return g.db.WithContext(ctx).Table(family.LanguageTable()).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&entries).Error
}

func (g *GormStore) ListLanguageAvailabilities(ctx context.Context, family domain.Family, versionIDs []string) ([]*model.LanguageAvailability, error) {
	var entries []*model.LanguageAvailability
	if len(versionIDs) == 0 {
		return entries, nil
	}
	err := g.db.WithContext(ctx).Table(family.LanguageTable()).
		Where("entity_version_id IN ?", versionIDs).
		Order("language").
		Find(&entries).Error
	return entries, err
}

func (g *GormStore) ListLanguages(ctx context.Context) ([]*model.Language, error) {
	var languages []*model.Language
	err := g.db.WithContext(ctx).Order("order_number").Find(&languages).Error
	return languages, err
}

func (g *GormStore) CreateVersioning(ctx context.Context, versioning *model.Versioning) error {
	return g.db.WithContext(ctx).Create(versioning).Error
}

func (g *GormStore) GetVersioning(ctx context.Context, id string) (*model.Versioning, error) {
	var versioning model.Versioning
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&versioning).Error
	if err != nil {
		return nil, notFound(err)
	}

	return &versioning, nil
}

func (g *GormStore) ListVersioningsFromIDs(ctx context.Context, ids []string) ([]*model.Versioning, error) {
	var versionings []*model.Versioning
	if len(ids) == 0 {
		return versionings, nil
	}
	err := g.db.WithContext(ctx).Where("id IN ?", ids).Find(&versionings).Error
	return versionings, err
}

func (g *GormStore) IgnoreVersioning(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Model(&model.Versioning{}).Where("id = ?", id).Update("ignored", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (g *GormStore) CreateHistory(ctx context.Context, history *model.HistoryMetaData) error {
	return g.db.WithContext(ctx).Create(history).Error
}

func (g *GormStore) UpdateHistory(ctx context.Context, history *model.HistoryMetaData) error {
	return g.db.WithContext(ctx).Save(history).Error
}

func (g *GormStore) GetLatestHistory(ctx context.Context, versionID string, actions ...string) (*model.HistoryMetaData, error) {
	query := g.db.WithContext(ctx).Where("entity_version_id = ?", versionID)
	if len(actions) > 0 {
		query = query.Where("action IN ?", actions)
	}

	var history model.HistoryMetaData
	if err := query.Order("created_at desc").First(&history).Error; err != nil {
		return nil, notFound(err)
	}

	return &history, nil
}

func (g *GormStore) ListHistory(ctx context.Context, versionID string) ([]*model.HistoryMetaData, error) {
	var entries []*model.HistoryMetaData
	err := g.db.WithContext(ctx).Where("entity_version_id = ?", versionID).Order("created_at desc").Find(&entries).Error
	return entries, err
}

func (g *GormStore) CreateConnection(ctx context.Context, connection *model.Connection) error {
	return g.db.WithContext(ctx).Create(connection).Error
}

func (g *GormStore) ListChannelConnections(ctx context.Context, channelRootIDs []string) ([]*model.Connection, error) {
	var connections []*model.Connection
	if len(channelRootIDs) == 0 {
		return connections, nil
	}
	err := g.db.WithContext(ctx).Where("channel_root_id IN ?", channelRootIDs).Find(&connections).Error
	return connections, err
}

func (g *GormStore) DeleteConnections(ctx context.Context, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}

	return g.db.WithContext(ctx).Delete(&model.Connection{}, ids).Error
}

func (g *GormStore) GetExpirationPolicy(ctx context.Context, organizationID string, family domain.Family) (*model.ExpirationPolicy, error) {
	var policy model.ExpirationPolicy
	err := g.db.WithContext(ctx).
		Where("organization_id = ? AND entity_type = ?", organizationID, family.String()).
		First(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPolicyNotFound
	}
	if err != nil {
		return nil, err
	}

	return &policy, nil
}

func (g *GormStore) SaveExpirationPolicy(ctx context.Context, policy *model.ExpirationPolicy) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(policy).Error
}

func (g *GormStore) Migrate() error {
	return model.Migrate(g.db)
}

// Transaction runs f in a transaction. Called on a store that is already inside a
// transaction, it opens a savepoint so f can fail without aborting the outer work.
func (g *GormStore) Transaction(ctx context.Context, f func(tx Store) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return f(&GormStore{db: tx})
	})
}
