package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/emrgen/servicecatalog/internal/publishing"
	"github.com/emrgen/servicecatalog/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RestoreVeto may refuse the restore of a version, for example because an entity it
// depends on is gone. A refusal is reported as ErrReferentialConflict.
type RestoreVeto func(ctx context.Context, version domain.Entity) error

// AdditionalAction runs family specific cleanup in the unit of work of a deletion.
type AdditionalAction func(ctx context.Context, tx store.Store, version domain.Entity) error

type eventBuilder func(ctx context.Context, tx store.Store, u *unit, ev *publishing.Event) error

type afterFunc func(ctx context.Context, tx store.Store, u *unit, v *model.EntityVersion) error

// change runs one transition of a single version as its own unit of work.
func (s *PublishingService) change(ctx context.Context, family domain.Family, versionID string, action publishing.Action, req Request, build eventBuilder, after afterFunc) (*model.EntityVersion, error) {
	start := time.Now()
	out := newOutbox()

	var result *model.EntityVersion
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		result, err = s.changeTx(ctx, tx, out, family, versionID, action, req, build, after)
		return err
	})
	s.observe(family, string(action), start, err)
	if err != nil {
		logrus.Warnf("%s of %s version %s rejected: %v", action, family, versionID, err)
		return nil, err
	}

	s.flush(ctx, out)

	return result, nil
}

func (s *PublishingService) changeTx(ctx context.Context, tx store.Store, out *outbox, family domain.Family, versionID string, action publishing.Action, req Request, build eventBuilder, after afterFunc) (*model.EntityVersion, error) {
	v, err := tx.GetVersion(ctx, family, versionID)
	if err != nil {
		return nil, fmt.Errorf("%s version %s: %w", family, versionID, err)
	}
	if err := req.check(v); err != nil {
		return nil, err
	}

	u, err := s.load(ctx, tx, family, v.RootID)
	if err != nil {
		return nil, err
	}

	ev := publishing.Event{Action: action, SnapshotID: versionID}
	if build != nil {
		if err := build(ctx, tx, u, &ev); err != nil {
			return nil, err
		}
	}

	if err := s.transition(ctx, tx, out, u, ev, req); err != nil {
		return nil, err
	}

	result := u.versions[versionID]
	if after != nil {
		if err := after(ctx, tx, u, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (s *PublishingService) validateLanguages(languages ...string) error {
	if err := s.languages.Get().Validate(languages...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	return nil
}

// CreateEntity creates a new root with a first draft version in the given languages.
func (s *PublishingService) CreateEntity(ctx context.Context, family domain.Family, organizationID string, languages []string, req Request) (*model.EntityVersion, error) {
	if organizationID == "" || len(languages) == 0 {
		return nil, fmt.Errorf("%w: organization and at least one language are required", ErrInvalidArgument)
	}
	if err := s.validateLanguages(languages...); err != nil {
		return nil, err
	}

	start := time.Now()
	out := newOutbox()

	var result *model.EntityVersion
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		root := &model.EntityRoot{
			ID:             uuid.NewString(),
			OrganizationID: organizationID,
			CreatedBy:      req.Actor,
		}
		if err := tx.CreateRoot(ctx, family, root); err != nil {
			return err
		}

		u := newUnit(family, root.ID, organizationID)
		ev := publishing.Event{Action: publishing.ActionSave, SnapshotID: uuid.NewString(), Languages: languages}
		if err := s.transition(ctx, tx, out, u, ev, req); err != nil {
			return err
		}
		result = u.versions[ev.SnapshotID]

		return nil
	})
	s.observe(family, string(publishing.ActionSave), start, err)
	if err != nil {
		return nil, err
	}

	s.flush(ctx, out)
	logrus.Infof("created %s %s", family, result.RootID)

	return result, nil
}

// SaveEntityVersion records an edit of a root. The editable version of the root gets a new
// minor version; without one a new version is created from the latest version.
func (s *PublishingService) SaveEntityVersion(ctx context.Context, family domain.Family, rootID string, languages []string, req Request) (*model.EntityVersion, error) {
	if err := s.validateLanguages(languages...); err != nil {
		return nil, err
	}

	start := time.Now()
	out := newOutbox()

	var result *model.EntityVersion
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		u, err := s.load(ctx, tx, family, rootID)
		if err != nil {
			return err
		}

		id := uuid.NewString()
		if i := u.root.Editable(); i >= 0 {
			id = u.root.Snapshots[i].ID
			if err := req.check(u.versions[id]); err != nil {
				return err
			}
		}

		ev := publishing.Event{Action: publishing.ActionSave, SnapshotID: id, Languages: languages}
		if err := s.transition(ctx, tx, out, u, ev, req); err != nil {
			return err
		}
		result = u.versions[id]

		return nil
	})
	s.observe(family, string(publishing.ActionSave), start, err)
	if err != nil {
		return nil, err
	}

	s.flush(ctx, out)

	return result, nil
}

// Publish publishes a draft or modified version. A previously published version of the
// root becomes OldPublished. Publishing a service channel that is not common drops its
// connections to services of other organizations.
func (s *PublishingService) Publish(ctx context.Context, family domain.Family, versionID string, req Request) (*model.EntityVersion, error) {
	return s.change(ctx, family, versionID, publishing.ActionPublish, req, s.publishEvent(family), nil)
}

func (s *PublishingService) publishEvent(family domain.Family) eventBuilder {
	return func(ctx context.Context, tx store.Store, u *unit, ev *publishing.Event) error {
		v := u.versions[ev.SnapshotID]
		ev.Policy.DropNotCommonConnections = family == domain.FamilyServiceChannel && !v.Common
		return nil
	}
}

// Withdraw turns a published version back into a draft.
func (s *PublishingService) Withdraw(ctx context.Context, family domain.Family, versionID string, req Request) (*model.EntityVersion, error) {
	return s.change(ctx, family, versionID, publishing.ActionWithdraw, req, nil, nil)
}

func (s *PublishingService) Archive(ctx context.Context, family domain.Family, versionID string, req Request) (*model.EntityVersion, error) {
	return s.change(ctx, family, versionID, publishing.ActionArchive, req, nil, nil)
}

// Restore reinstates an archived or deleted version to the status it had before, as
// recorded in its history. veto may be nil.
func (s *PublishingService) Restore(ctx context.Context, family domain.Family, versionID string, veto RestoreVeto, req Request) (*model.EntityVersion, error) {
	return s.change(ctx, family, versionID, publishing.ActionRestore, req, s.restoreEvent(veto), nil)
}

func (s *PublishingService) restoreEvent(veto RestoreVeto) eventBuilder {
	return func(ctx context.Context, tx store.Store, u *unit, ev *publishing.Event) error {
		v := u.versions[ev.SnapshotID]
		if !publishing.Status(v.Status).Restorable() {
			// let the state machine report the invalid transition
			return nil
		}

		if veto != nil {
			if err := veto(ctx, v); err != nil {
				if !errors.Is(err, ErrReferentialConflict) {
					err = fmt.Errorf("%w: %w", ErrReferentialConflict, err)
				}
				return err
			}
		}

		prior, err := s.priorState(ctx, tx, v)
		if err != nil {
			return err
		}
		ev.Prior = prior

		return nil
	}
}

// ArchiveLanguage archives one language of a version. Archiving the last active language
// archives the version.
func (s *PublishingService) ArchiveLanguage(ctx context.Context, family domain.Family, versionID, language string, req Request) (*model.EntityVersion, error) {
	return s.change(ctx, family, versionID, publishing.ActionArchiveLanguage, req, s.languageEvent(language), nil)
}

func (s *PublishingService) RestoreLanguage(ctx context.Context, family domain.Family, versionID, language string, req Request) (*model.EntityVersion, error) {
	return s.change(ctx, family, versionID, publishing.ActionRestoreLanguage, req, s.languageEvent(language), nil)
}

// WithdrawLanguage withdraws one published language. Withdrawing the last active language
// archives the version.
func (s *PublishingService) WithdrawLanguage(ctx context.Context, family domain.Family, versionID, language string, req Request) (*model.EntityVersion, error) {
	return s.change(ctx, family, versionID, publishing.ActionWithdrawLanguage, req, s.languageEvent(language), nil)
}

func (s *PublishingService) languageEvent(language string) eventBuilder {
	return func(ctx context.Context, tx store.Store, u *unit, ev *publishing.Event) error {
		if err := s.validateLanguages(language); err != nil {
			return err
		}
		ev.Language = language
		return nil
	}
}

// ChangeEntityVersionedToDeleted deletes, removes or archives a version. With
// expiredAfterMonths the version expires that many months from now. additional runs in the
// same unit of work and may be nil.
func (s *PublishingService) ChangeEntityVersionedToDeleted(ctx context.Context, family domain.Family, versionID string, action publishing.Action, expiredAfterMonths *int, additional AdditionalAction, req Request) (*model.EntityVersion, error) {
	switch action {
	case publishing.ActionDelete, publishing.ActionRemove, publishing.ActionArchive:
	default:
		return nil, fmt.Errorf("%w: %s is not a deletion", ErrInvalidArgument, action)
	}

	after := func(ctx context.Context, tx store.Store, u *unit, v *model.EntityVersion) error {
		if expiredAfterMonths != nil {
			expireOn := s.now().AddDate(0, *expiredAfterMonths, 0)
			v.ExpireOn = &expireOn
			if err := tx.UpdateVersion(ctx, family, v); err != nil {
				return err
			}
		}

		if additional != nil {
			return additional(ctx, tx, v)
		}

		return nil
	}

	return s.change(ctx, family, versionID, action, req, nil, after)
}

// SetSchedule sets the scheduled publish and archive times of a version. A nil time
// clears the schedule.
func (s *PublishingService) SetSchedule(ctx context.Context, family domain.Family, versionID string, validFrom, validTo *time.Time, req Request) (*model.EntityVersion, error) {
	if validFrom != nil && validTo != nil && !validTo.After(*validFrom) {
		return nil, fmt.Errorf("%w: valid-to must be after valid-from", ErrInvalidArgument)
	}

	var result *model.EntityVersion
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		v, err := tx.GetVersion(ctx, family, versionID)
		if err != nil {
			return err
		}
		if err := req.check(v); err != nil {
			return err
		}

		status := publishing.Status(v.Status)
		if validFrom != nil && !status.Editable() {
			return &publishing.TransitionError{SnapshotID: v.ID, Current: status, Requested: publishing.ActionSchedulePublish, Reason: "only draft or modified versions can be scheduled for publishing"}
		}
		if validTo != nil && !status.Archivable() {
			return &publishing.TransitionError{SnapshotID: v.ID, Current: status, Requested: publishing.ActionScheduleArchive, Reason: "only draft, published or modified versions can be scheduled for archiving"}
		}

		v.ValidFrom = validFrom
		v.ValidTo = validTo
		v.ModifiedBy = req.Actor
		if err := tx.UpdateVersion(ctx, family, v); err != nil {
			return err
		}
		result = v

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// SchedulePublishArchiveEntity performs the scheduled transition of a version that is due:
// the archive when valid-to has passed, otherwise the publish when valid-from has passed.
// It returns the performed action, or "" when nothing was due.
func (s *PublishingService) SchedulePublishArchiveEntity(ctx context.Context, family domain.Family, versionID string, req Request) (publishing.Action, error) {
	start := time.Now()
	out := newOutbox()

	var action publishing.Action
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		action, _, err = s.scheduleTx(ctx, tx, out, family, versionID, req)
		return err
	})
	if action != "" || err != nil {
		s.observe(family, string(action), start, err)
	}
	if err != nil {
		return "", err
	}

	s.flush(ctx, out)

	return action, nil
}

func (s *PublishingService) scheduleTx(ctx context.Context, tx store.Store, out *outbox, family domain.Family, versionID string, req Request) (publishing.Action, *model.EntityVersion, error) {
	v, err := tx.GetVersion(ctx, family, versionID)
	if err != nil {
		return "", nil, err
	}

	due := publishing.DueAction(publishing.Status(v.Status), v.ValidFrom, v.ValidTo, s.now())
	if due == "" {
		return "", v, nil
	}

	var build eventBuilder
	if due == publishing.ActionSchedulePublish {
		build = s.publishEvent(family)
	}

	after := func(ctx context.Context, tx store.Store, u *unit, v *model.EntityVersion) error {
		if due == publishing.ActionSchedulePublish {
			v.ValidFrom = nil
		} else {
			v.ValidTo = nil
		}
		return tx.UpdateVersion(ctx, family, v)
	}

	result, err := s.changeTx(ctx, tx, out, family, versionID, due, req, build, after)
	if err != nil {
		return "", nil, err
	}

	return due, result, nil
}

// ExecuteScheduledTransitions performs every scheduled publish and archive that is due.
// Each version is processed on its own; failures are reported per item.
func (s *PublishingService) ExecuteScheduledTransitions(ctx context.Context) ([]ItemResult, error) {
	now := s.now()

	var items []batchItem
	for _, family := range domain.Families {
		versions, err := s.store.ListScheduledVersions(ctx, family, now)
		if err != nil {
			return nil, err
		}
		versions, err = s.sortVersions(ctx, versions)
		if err != nil {
			return nil, err
		}

		for _, v := range versions {
			versionID := v.ID
			items = append(items, batchItem{
				family:    family,
				rootID:    v.RootID,
				versionID: versionID,
				run: func(ctx context.Context, tx store.Store, out *outbox) (*model.EntityVersion, error) {
					_, result, err := s.scheduleTx(ctx, tx, out, family, versionID, Request{Actor: systemActor})
					return result, err
				},
			})
		}
	}

	return s.runBatch(ctx, "schedule", items)
}

// GetVersion returns a version with its language availabilities.
func (s *PublishingService) GetVersion(ctx context.Context, family domain.Family, versionID string) (*model.EntityVersion, error) {
	return s.store.GetVersion(ctx, family, versionID)
}

// ListVersions returns all versions of a root.
func (s *PublishingService) ListVersions(ctx context.Context, family domain.Family, rootID string) ([]*model.EntityVersion, error) {
	return s.store.ListVersions(ctx, family, rootID)
}

// GetPublishedVersion resolves the current published version of a root. The cache is
// consulted first; a stale cache entry falls back to the database.
func (s *PublishingService) GetPublishedVersion(ctx context.Context, family domain.Family, rootID string) (*model.EntityVersion, error) {
	cached, err := s.cache.GetPublishedVersion(ctx, family, rootID)
	if err != nil {
		logrus.Warnf("published version cache lookup of %s %s failed: %v", family, rootID, err)
	}
	if cached != "" {
		v, err := s.store.GetVersion(ctx, family, cached)
		if err == nil && v.RootID == rootID && v.Status == string(publishing.StatusPublished) {
			return v, nil
		}
	}

	versions, err := s.store.ListVersions(ctx, family, rootID)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		if v.Status == string(publishing.StatusPublished) {
			if err := s.cache.SetPublishedVersion(ctx, family, rootID, v.ID); err != nil {
				logrus.Warnf("failed to cache published version of %s %s: %v", family, rootID, err)
			}
			return v, nil
		}
	}

	return nil, store.ErrNotFound
}
