package service

import (
	"context"
	"errors"
	"time"

	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/emrgen/servicecatalog/internal/publishing"
	"github.com/emrgen/servicecatalog/internal/store"
	"github.com/sirupsen/logrus"
)

// expirationPolicy returns the policy of the organization, or the system defaults when it
// has none.
func (s *PublishingService) expirationPolicy(ctx context.Context, policies store.ExpirationPolicyStore, organizationID string, family domain.Family) (*model.ExpirationPolicy, error) {
	policy, err := policies.GetExpirationPolicy(ctx, organizationID, family)
	if errors.Is(err, store.ErrPolicyNotFound) {
		logrus.Debugf("no expiration policy for organization %s (%s), using defaults", organizationID, family)
		return &model.ExpirationPolicy{
			OrganizationID:          organizationID,
			EntityType:              family.String(),
			DraftLifetimeMonths:     s.defaults.DraftLifetimeMonths,
			PublishedLifetimeMonths: s.defaults.PublishedLifetimeMonths,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return policy, nil
}

// computeExpiration derives the expiration date from the policy, ignoring any stored date.
func computeExpiration(entity domain.Entity, policy *model.ExpirationPolicy) *time.Time {
	if policy.Disabled {
		return nil
	}

	var expireOn time.Time
	switch publishing.Status(entity.GetStatus()) {
	case publishing.StatusDraft:
		if policy.DraftLifetimeMonths <= 0 {
			return nil
		}
		expireOn = entity.GetModifiedAt().AddDate(0, policy.DraftLifetimeMonths, 0)
	case publishing.StatusPublished:
		if policy.PublishedLifetimeMonths <= 0 || entity.GetPublishedAt() == nil {
			return nil
		}
		expireOn = entity.GetPublishedAt().AddDate(0, policy.PublishedLifetimeMonths, 0)
	default:
		return nil
	}

	return &expireOn
}

func (s *PublishingService) refreshExpiration(ctx context.Context, tx store.Store, family domain.Family, v *model.EntityVersion) error {
	policy, err := s.expirationPolicy(ctx, tx, v.OrganizationID, family)
	if err != nil {
		return err
	}
	v.ExpireOn = computeExpiration(v, policy)

	return nil
}

// GetExpirationDate returns the stored expiration date of the entity, or derives it from
// its organization's policy: drafts expire after the draft lifetime counted from their last
// modification, published versions after the published lifetime counted from publishing.
func (s *PublishingService) GetExpirationDate(ctx context.Context, family domain.Family, entity domain.Entity) (*time.Time, error) {
	if expireOn := entity.GetExpireOn(); expireOn != nil {
		return expireOn, nil
	}

	policy, err := s.expirationPolicy(ctx, s.store, entity.GetOrganizationID(), family)
	if err != nil {
		return nil, err
	}

	return computeExpiration(entity, policy), nil
}

// SetExpirationDatesForDraft stores the expiration date of the given draft versions.
// Versions in another status or whose policy disables expiration are skipped. It returns
// the number of updated versions.
func (s *PublishingService) SetExpirationDatesForDraft(ctx context.Context, family domain.Family, versionIDs []string) (int, error) {
	return s.setExpirationDates(ctx, family, versionIDs, publishing.StatusDraft)
}

// SetExpirationDateForPublishing is SetExpirationDatesForDraft for published versions.
func (s *PublishingService) SetExpirationDateForPublishing(ctx context.Context, family domain.Family, versionIDs []string) (int, error) {
	return s.setExpirationDates(ctx, family, versionIDs, publishing.StatusPublished)
}

func (s *PublishingService) setExpirationDates(ctx context.Context, family domain.Family, versionIDs []string, status publishing.Status) (int, error) {
	updated := 0
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		updated = 0
		versions, err := tx.ListVersionsFromIDs(ctx, family, versionIDs)
		if err != nil {
			return err
		}

		policies := make(map[string]*model.ExpirationPolicy)
		for _, v := range versions {
			if v.Status != string(status) {
				continue
			}

			policy, ok := policies[v.OrganizationID]
			if !ok {
				policy, err = s.expirationPolicy(ctx, tx, v.OrganizationID, family)
				if err != nil {
					return err
				}
				policies[v.OrganizationID] = policy
			}
			if policy.Disabled {
				continue
			}

			v.ExpireOn = computeExpiration(v, policy)
			if err := tx.UpdateVersion(ctx, family, v); err != nil {
				return err
			}
			updated++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return updated, nil
}

// GetIsWarningVisible reports whether the expiration is within window of now.
func GetIsWarningVisible(expiration *time.Time, now time.Time, window time.Duration) bool {
	if expiration == nil {
		return false
	}

	return !now.Before(expiration.Add(-window))
}

// GetExpirationTasks expires every version whose expiration date has passed: drafts,
// published and modified versions are archived, deleted versions are removed. Each version
// is processed on its own; failures are reported per item.
func (s *PublishingService) GetExpirationTasks(ctx context.Context, now time.Time) ([]ItemResult, error) {
	var items []batchItem
	for _, family := range domain.Families {
		versions, err := s.store.ListExpiredVersions(ctx, family, now)
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
					return s.expireTx(ctx, tx, out, family, versionID, now)
				},
			})
		}
	}

	return s.runBatch(ctx, "expire", items)
}

func (s *PublishingService) expireTx(ctx context.Context, tx store.Store, out *outbox, family domain.Family, versionID string, now time.Time) (*model.EntityVersion, error) {
	v, err := tx.GetVersion(ctx, family, versionID)
	if err != nil {
		return nil, err
	}
	// an earlier item of the batch may have changed the version
	if v.ExpireOn == nil || v.ExpireOn.After(now) {
		return v, nil
	}

	action := publishing.ActionExpire
	switch publishing.Status(v.Status) {
	case publishing.StatusDeleted:
		action = publishing.ActionRemove
	case publishing.StatusDraft, publishing.StatusPublished, publishing.StatusModified:
	default:
		return v, nil
	}

	return s.changeTx(ctx, tx, out, family, versionID, action, Request{Actor: systemActor}, nil, nil)
}
