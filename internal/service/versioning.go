package service

import (
	"context"
	"encoding/json"

	"github.com/Masterminds/semver"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/emrgen/servicecatalog/internal/publishing"
	"github.com/emrgen/servicecatalog/internal/store"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// maxVersionChain bounds chain walks.
const maxVersionChain = 10000

// bump appends a versioning record to the chain of the snapshot named by the effect:
// a publish starts a new major version, any other edit a new minor version.
func (s *PublishingService) bump(ctx context.Context, tx store.Store, u *unit, e publishing.Effect, action publishing.Action, req Request) error {
	v := u.versions[e.SnapshotID]
	prev := u.versioning(v)

	current := "0.0.0"
	if prev != nil {
		current = prev.Version()
	}
	version, err := semver.NewVersion(current)
	if err != nil {
		return err
	}

	var next semver.Version
	if e.Kind == publishing.EffectBumpMajor {
		next = version.IncMajor()
	} else {
		next = version.IncMinor()
	}

	meta, err := json.Marshal(map[string]string{
		"action": string(action),
		"actor":  req.Actor,
		"family": u.family.String(),
	})
	if err != nil {
		return err
	}

	record := &model.Versioning{
		ID:    uuid.NewString(),
		Major: int(next.Major()),
		Minor: int(next.Minor()),
		Meta:  datatypes.JSON(meta),
	}
	if prev != nil {
		record.PreviousID = &prev.ID
	}

	if err := tx.CreateVersioning(ctx, record); err != nil {
		return err
	}

	u.versionings[record.ID] = record
	v.VersioningID = &record.ID

	return nil
}

// VersionChain returns the versioning records reachable from versioningID, newest first.
// Ignored records are skipped.
func (s *PublishingService) VersionChain(ctx context.Context, versioningID string) ([]*model.Versioning, error) {
	var chain []*model.Versioning
	seen := mapset.NewThreadUnsafeSet[string]()

	for id := versioningID; id != ""; {
		if seen.Contains(id) || seen.Cardinality() >= maxVersionChain {
			return nil, ErrVersionChainTooLong
		}
		seen.Add(id)

		record, err := s.store.GetVersioning(ctx, id)
		if err != nil {
			return nil, err
		}
		if !record.Ignored {
			chain = append(chain, record)
		}

		id = ""
		if record.PreviousID != nil {
			id = *record.PreviousID
		}
	}

	return chain, nil
}

// IgnoreVersioning marks a versioning record to be skipped by chain walks.
func (s *PublishingService) IgnoreVersioning(ctx context.Context, versioningID string) error {
	return s.store.IgnoreVersioning(ctx, versioningID)
}
