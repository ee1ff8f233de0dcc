package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/emrgen/servicecatalog/internal/publishing"
	"github.com/emrgen/servicecatalog/internal/queue"
	"github.com/emrgen/servicecatalog/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// unit is the loaded state of one root inside a unit of work.
type unit struct {
	family         domain.Family
	rootID         string
	organizationID string
	root           publishing.Root
	versions       map[string]*model.EntityVersion
	versionings    map[string]*model.Versioning
}

func (s *PublishingService) load(ctx context.Context, tx store.Store, family domain.Family, rootID string) (*unit, error) {
	root, err := tx.GetRoot(ctx, family, rootID)
	if err != nil {
		return nil, fmt.Errorf("%s root %s: %w", family, rootID, err)
	}

	versions, err := tx.ListVersions(ctx, family, rootID)
	if err != nil {
		return nil, err
	}

	ids := mapset.NewSet[string]()
	for _, v := range versions {
		if v.VersioningID != nil {
			ids.Add(*v.VersioningID)
		}
	}
	versionings, err := tx.ListVersioningsFromIDs(ctx, ids.ToSlice())
	if err != nil {
		return nil, err
	}

	u := newUnit(family, rootID, root.OrganizationID)
	for _, vr := range versionings {
		u.versionings[vr.ID] = vr
	}
	for _, v := range versions {
		u.versions[v.ID] = v
		u.root.Snapshots = append(u.root.Snapshots, u.snapshot(v))
	}

	return u, nil
}

func newUnit(family domain.Family, rootID, organizationID string) *unit {
	return &unit{
		family:         family,
		rootID:         rootID,
		organizationID: organizationID,
		root:           publishing.Root{ID: rootID},
		versions:       make(map[string]*model.EntityVersion),
		versionings:    make(map[string]*model.Versioning),
	}
}

func (u *unit) snapshot(v *model.EntityVersion) publishing.Snapshot {
	snap := publishing.Snapshot{ID: v.ID, Status: publishing.Status(v.Status)}
	if vr := u.versioning(v); vr != nil {
		snap.Major, snap.Minor = vr.Major, vr.Minor
	}
	for _, la := range v.LanguageAvailabilities {
		snap.Languages = append(snap.Languages, publishing.LanguageState{
			Code:   la.Language,
			Status: publishing.LanguageStatus(la.Status),
		})
	}

	return snap
}

func (u *unit) versioning(v *model.EntityVersion) *model.Versioning {
	if v.VersioningID == nil {
		return nil
	}

	return u.versionings[*v.VersioningID]
}

// published returns the id of the published version of the root, or "".
func (u *unit) published() string {
	if i := u.root.Published(); i >= 0 {
		return u.root.Snapshots[i].ID
	}

	return ""
}

// transition applies the event to the root and persists the resulting state and effects
// through tx. Announcements are added to out.
func (s *PublishingService) transition(ctx context.Context, tx store.Store, out *outbox, u *unit, ev publishing.Event, req Request) error {
	next, effects, err := publishing.Apply(u.root, ev)
	if err != nil {
		return err
	}

	now := s.now()
	before := u.published()
	created := mapset.NewSet[string]()
	touched := mapset.NewSet[string]()
	statusChanged := mapset.NewSet[string]()
	refresh := mapset.NewSet[string]()
	cascade := false
	var history []*model.HistoryMetaData

	for _, e := range effects {
		switch e.Kind {
		case publishing.EffectSnapshotCreated:
			u.versions[e.SnapshotID] = u.newVersion(e, req, now)
			created.Add(e.SnapshotID)
			entry, err := s.historyEntry(u, e.SnapshotID, ev.Action, "", e.To, "", nil, req, now)
			if err != nil {
				return err
			}
			history = append(history, entry)
			out.events = append(out.events, u.event(e, ev.Action, req, now))
		case publishing.EffectStatusChanged:
			statusChanged.Add(e.SnapshotID)
			touched.Add(e.SnapshotID)
			entry, err := s.historyEntry(u, e.SnapshotID, ev.Action, e.From, e.To, "", e.Prior, req, now)
			if err != nil {
				return err
			}
			history = append(history, entry)
			out.events = append(out.events, u.event(e, ev.Action, req, now))
		case publishing.EffectLanguageChanged:
			if e.SnapshotID == ev.SnapshotID && ev.Language != "" && e.Language == ev.Language {
				entry, err := s.historyEntry(u, e.SnapshotID, ev.Action, e.From, e.To, e.Language, nil, req, now)
				if err != nil {
					return err
				}
				entry.TranslationOrderID, err = s.translations.GetTranslationOrderID(ctx, e.SnapshotID, e.Language)
				if err != nil {
					return err
				}
				history = append(history, entry)
				out.events = append(out.events, u.event(e, ev.Action, req, now))
			}
		case publishing.EffectBumpMajor, publishing.EffectBumpMinor:
			if err := s.bump(ctx, tx, u, e, ev.Action, req); err != nil {
				return err
			}
			touched.Add(e.SnapshotID)
		case publishing.EffectRefreshExpiration:
			refresh.Add(e.SnapshotID)
		case publishing.EffectRemoveNotCommonConnections:
			cascade = true
		}
	}

	dirtyLanguages := make(map[string][]*model.LanguageAvailability)
	for i, snap := range next.Snapshots {
		v := u.versions[snap.ID]
		v.Status = string(snap.Status)
		if vr := u.versioning(v); vr != nil {
			next.Snapshots[i].Major, next.Snapshots[i].Minor = vr.Major, vr.Minor
		}
		if touched.Contains(snap.ID) {
			v.ModifiedAt = now
			v.ModifiedBy = req.Actor
		}
		if statusChanged.Contains(snap.ID) && snap.Status == publishing.StatusPublished {
			publishedAt := now
			v.PublishedAt = &publishedAt
		}

		for _, l := range snap.Languages {
			la := v.Language(l.Code)
			if la == nil {
				la = &model.LanguageAvailability{EntityVersionID: v.ID, Language: l.Code}
				v.LanguageAvailabilities = append(v.LanguageAvailabilities, la)
			}
			if la.Status == string(l.Status) {
				continue
			}
			la.Status = string(l.Status)
			la.ModifiedAt = now
			la.ModifiedBy = req.Actor
			if l.Status == publishing.LanguageDraft || l.Status == publishing.LanguageModified {
				orderID, err := s.translations.GetTranslationOrderID(ctx, v.ID, l.Code)
				if err != nil {
					return err
				}
				la.TranslationOrderID = orderID
			}
			dirtyLanguages[v.ID] = append(dirtyLanguages[v.ID], la)
			touched.Add(v.ID)
		}
	}

	for id := range statusChanged.Union(refresh).Iter() {
		if err := s.refreshExpiration(ctx, tx, u.family, u.versions[id]); err != nil {
			return err
		}
	}

	// existing versions are written in a stable order so lock conflicts surface deterministically
	for _, snap := range next.Snapshots {
		v := u.versions[snap.ID]
		switch {
		case created.Contains(v.ID):
			if err := tx.CreateVersion(ctx, u.family, v); err != nil {
				return err
			}
		case touched.Contains(v.ID) || refresh.Contains(v.ID):
			if err := tx.UpdateVersion(ctx, u.family, v); err != nil {
				return err
			}
			if err := tx.SaveLanguageAvailabilities(ctx, u.family, dirtyLanguages[v.ID]); err != nil {
				return err
			}
		}
	}

	for _, entry := range history {
		if err := tx.CreateHistory(ctx, entry); err != nil {
			return err
		}
	}

	u.root = next

	if cascade {
		if _, err := s.removeNotCommonConnections(ctx, tx, []string{u.rootID}, false); err != nil {
			return err
		}
	}

	if after := u.published(); after != before {
		out.published[publishedKey{family: u.family, rootID: u.rootID}] = after
	}

	logrus.Infof("%s %s version %s: %d effects", ev.Action, u.family, ev.SnapshotID, len(effects))

	return nil
}

// newVersion builds the model of a snapshot created by a save. Organization and visibility
// are inherited from the snapshot it was copied from.
func (u *unit) newVersion(e publishing.Effect, req Request, now time.Time) *model.EntityVersion {
	v := &model.EntityVersion{
		ID:             e.SnapshotID,
		RootID:         u.rootID,
		OrganizationID: u.organizationID,
		Status:         e.To,
		CreatedBy:      req.Actor,
		ModifiedBy:     req.Actor,
		ModifiedAt:     now,
	}
	if source, ok := u.versions[e.Source]; ok {
		v.OrganizationID = source.OrganizationID
		v.Common = source.Common
		v.VersioningID = source.VersioningID
	}

	return v
}

func (u *unit) event(e publishing.Effect, action publishing.Action, req Request, now time.Time) queue.TransitionEvent {
	return queue.TransitionEvent{
		Family:     u.family.String(),
		RootID:     u.rootID,
		VersionID:  e.SnapshotID,
		Action:     string(action),
		From:       e.From,
		To:         e.To,
		Language:   e.Language,
		Actor:      req.Actor,
		OccurredAt: now,
	}
}

func (s *PublishingService) historyEntry(u *unit, versionID string, action publishing.Action, from, to, language string, prior *publishing.PriorState, req Request, now time.Time) (*model.HistoryMetaData, error) {
	entry := &model.HistoryMetaData{
		ID:              uuid.NewString(),
		EntityType:      u.family.String(),
		RootID:          u.rootID,
		EntityVersionID: versionID,
		Action:          string(action),
		Actor:           req.Actor,
		FromStatus:      from,
		ToStatus:        to,
		Language:        language,
		ModifiedAt:      now,
	}

	if prior != nil {
		data, err := json.Marshal(prior)
		if err != nil {
			return nil, err
		}
		entry.Snapshot, err = s.compress.Encode(data)
		if err != nil {
			return nil, fmt.Errorf("encode history snapshot: %w", err)
		}
		entry.Compression = s.compress.Name()
	}

	return entry, nil
}
