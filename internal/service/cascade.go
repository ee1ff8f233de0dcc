package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/emrgen/servicecatalog/internal/publishing"
	"github.com/emrgen/servicecatalog/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// systemActor is recorded for transitions performed by jobs.
const systemActor = "system"

// ItemResult is the outcome of one item of a batch operation.
type ItemResult struct {
	RootID    string
	VersionID string
	// Status is the status of the version after the item succeeded.
	Status string
	Err    error
	Reason string
}

type batchItem struct {
	family    domain.Family
	rootID    string
	versionID string
	run       func(ctx context.Context, tx store.Store, out *outbox) (*model.EntityVersion, error)
}

// runBatch runs every item in its own savepoint of one outer transaction. A failing item
// is rolled back and reported; the others are kept.
func (s *PublishingService) runBatch(ctx context.Context, operation string, items []batchItem) ([]ItemResult, error) {
	results := make([]ItemResult, 0, len(items))
	out := newOutbox()

	err := s.store.Transaction(ctx, func(tx store.Store) error {
		for _, item := range items {
			start := time.Now()
			itemOut := newOutbox()

			var version *model.EntityVersion
			err := tx.Transaction(ctx, func(tx store.Store) error {
				var err error
				version, err = item.run(ctx, tx, itemOut)
				return err
			})

			result := ItemResult{RootID: item.rootID, VersionID: item.versionID}
			if err != nil {
				result.Err = err
				result.Reason = ReasonCode(err)
				logrus.Warnf("%s: %s %s failed: %v", operation, item.family, item.rootID, err)
				s.metrics.ObserveBatchItem(operation, result.Reason)
			} else {
				out.merge(itemOut)
				if version != nil {
					result.VersionID = version.ID
					result.Status = version.Status
				}
				s.metrics.ObserveBatchItem(operation, "ok")
			}
			s.observe(item.family, operation, start, err)
			results = append(results, result)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.flush(ctx, out)

	return results, nil
}

// sortVersions orders versions by root, oldest version first, so the newest version of a
// root is processed last.
func (s *PublishingService) sortVersions(ctx context.Context, versions []*model.EntityVersion) ([]*model.EntityVersion, error) {
	ids := mapset.NewThreadUnsafeSet[string]()
	for _, v := range versions {
		if v.VersioningID != nil {
			ids.Add(*v.VersioningID)
		}
	}
	versionings, err := s.store.ListVersioningsFromIDs(ctx, ids.ToSlice())
	if err != nil {
		return nil, err
	}
	numbers := make(map[string]*model.Versioning, len(versionings))
	for _, vr := range versionings {
		numbers[vr.ID] = vr
	}

	ordered := make([]publishing.Ordered, len(versions))
	byID := make(map[string]*model.EntityVersion, len(versions))
	for i, v := range versions {
		ordered[i] = publishing.Ordered{RootID: v.RootID, SnapshotID: v.ID}
		if v.VersioningID != nil {
			if vr, ok := numbers[*v.VersioningID]; ok {
				ordered[i].Major, ordered[i].Minor = vr.Major, vr.Minor
			}
		}
		byID[v.ID] = v
	}
	publishing.SortBatch(ordered)

	sorted := make([]*model.EntityVersion, len(ordered))
	for i, o := range ordered {
		sorted[i] = byID[o.SnapshotID]
	}

	return sorted, nil
}

// Connect connects a service to a service channel.
func (s *PublishingService) Connect(ctx context.Context, serviceRootID, channelRootID string, mandatory bool) (*model.Connection, error) {
	var connection *model.Connection
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		if _, err := tx.GetRoot(ctx, domain.FamilyService, serviceRootID); err != nil {
			return fmt.Errorf("service %s: %w", serviceRootID, err)
		}
		if _, err := tx.GetRoot(ctx, domain.FamilyServiceChannel, channelRootID); err != nil {
			return fmt.Errorf("service channel %s: %w", channelRootID, err)
		}

		connection = &model.Connection{
			ServiceRootID: serviceRootID,
			ChannelRootID: channelRootID,
			Mandatory:     mandatory,
		}
		return tx.CreateConnection(ctx, connection)
	})
	if err != nil {
		return nil, err
	}

	return connection, nil
}

// RemoveNotCommonConnections removes the connections between the given service channels and
// services owned by other organizations. With checkChannelStatus only channels whose
// published version is not common are touched. It returns the number of removed connections.
func (s *PublishingService) RemoveNotCommonConnections(ctx context.Context, channelRootIDs []string, checkChannelStatus bool) (int, error) {
	removed := 0
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		var err error
		removed, err = s.removeNotCommonConnections(ctx, tx, channelRootIDs, checkChannelStatus)
		return err
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

func (s *PublishingService) removeNotCommonConnections(ctx context.Context, tx store.Store, channelRootIDs []string, checkChannelStatus bool) (int, error) {
	channels, err := tx.ListRootsFromIDs(ctx, domain.FamilyServiceChannel, channelRootIDs)
	if err != nil {
		return 0, err
	}

	owners := make(map[string]string, len(channels))
	for _, channel := range channels {
		if checkChannelStatus {
			u, err := s.load(ctx, tx, domain.FamilyServiceChannel, channel.ID)
			if err != nil {
				return 0, err
			}
			published := u.published()
			if published == "" || u.versions[published].Common {
				continue
			}
		}
		owners[channel.ID] = channel.OrganizationID
	}
	if len(owners) == 0 {
		return 0, nil
	}

	channelIDs := make([]string, 0, len(owners))
	for id := range owners {
		channelIDs = append(channelIDs, id)
	}
	connections, err := tx.ListChannelConnections(ctx, channelIDs)
	if err != nil {
		return 0, err
	}

	serviceIDs := mapset.NewThreadUnsafeSet[string]()
	for _, c := range connections {
		serviceIDs.Add(c.ServiceRootID)
	}
	services, err := tx.ListRootsFromIDs(ctx, domain.FamilyService, serviceIDs.ToSlice())
	if err != nil {
		return 0, err
	}
	serviceOwners := make(map[string]string, len(services))
	for _, service := range services {
		serviceOwners[service.ID] = service.OrganizationID
	}

	var drop []uint
	for _, c := range connections {
		if serviceOwners[c.ServiceRootID] == owners[c.ChannelRootID] {
			continue
		}
		if c.Mandatory {
			return 0, fmt.Errorf("%w: connection between service %s and channel %s is mandatory", ErrReferentialConflict, c.ServiceRootID, c.ChannelRootID)
		}
		drop = append(drop, c.ID)
	}

	if err := tx.DeleteConnections(ctx, drop); err != nil {
		return 0, err
	}
	if len(drop) > 0 {
		logrus.Infof("removed %d connections to services of other organizations", len(drop))
	}

	return len(drop), nil
}

// ExecuteCopyEntities copies the current version of each root into a new root owned by
// targetOrganization. The copies start as drafts in every language of their source, on a
// new version chain and without connections. Either all roots are copied or none.
func (s *PublishingService) ExecuteCopyEntities(ctx context.Context, family domain.Family, rootIDs []string, targetOrganization string, req Request) ([]string, error) {
	if targetOrganization == "" {
		return nil, fmt.Errorf("%w: target organization is required", ErrInvalidArgument)
	}

	start := time.Now()
	out := newOutbox()

	var copies []string
	err := s.store.Transaction(ctx, func(tx store.Store) error {
		copies = copies[:0]
		for _, rootID := range rootIDs {
			u, err := s.load(ctx, tx, family, rootID)
			if err != nil {
				return err
			}

			source := u.root.Editable()
			if source < 0 {
				source = u.root.Published()
			}
			if source < 0 {
				return fmt.Errorf("%w: %s %s", ErrNothingToCopy, family, rootID)
			}

			var languages []string
			for _, l := range u.root.Snapshots[source].Languages {
				languages = append(languages, l.Code)
			}

			root := &model.EntityRoot{
				ID:             uuid.NewString(),
				OrganizationID: targetOrganization,
				CreatedBy:      req.Actor,
			}
			if err := tx.CreateRoot(ctx, family, root); err != nil {
				return err
			}

			copied := newUnit(family, root.ID, targetOrganization)
			ev := publishing.Event{Action: publishing.ActionCopy, SnapshotID: uuid.NewString(), Languages: languages}
			if err := s.transition(ctx, tx, out, copied, ev, req); err != nil {
				return err
			}
			copies = append(copies, root.ID)
		}

		return nil
	})
	s.observe(family, string(publishing.ActionCopy), start, err)
	if err != nil {
		return nil, err
	}

	s.flush(ctx, out)

	return copies, nil
}

// ExecuteArchiveEntities archives the draft, published and modified versions of each root.
// Roots are processed independently.
func (s *PublishingService) ExecuteArchiveEntities(ctx context.Context, family domain.Family, rootIDs []string, req Request) ([]ItemResult, error) {
	items := make([]batchItem, 0, len(rootIDs))
	for _, rootID := range sortedIDs(rootIDs) {
		items = append(items, batchItem{
			family: family,
			rootID: rootID,
			run: func(ctx context.Context, tx store.Store, out *outbox) (*model.EntityVersion, error) {
				return s.archiveRootTx(ctx, tx, out, family, rootID, req)
			},
		})
	}

	return s.runBatch(ctx, string(publishing.ActionArchive), items)
}

func (s *PublishingService) archiveRootTx(ctx context.Context, tx store.Store, out *outbox, family domain.Family, rootID string, req Request) (*model.EntityVersion, error) {
	u, err := s.load(ctx, tx, family, rootID)
	if err != nil {
		return nil, err
	}

	var targets []publishing.Ordered
	for _, snap := range u.root.Snapshots {
		if snap.Status.Archivable() {
			targets = append(targets, publishing.Ordered{RootID: rootID, SnapshotID: snap.ID, Major: snap.Major, Minor: snap.Minor})
		}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s %s has no version to archive", publishing.ErrInvalidStateTransition, family, rootID)
	}
	publishing.SortBatch(targets)

	var last *model.EntityVersion
	for _, target := range targets {
		// archiving the published version turns a modified sibling into a draft, which
		// is still archivable
		if i := u.root.Find(target.SnapshotID); !u.root.Snapshots[i].Status.Archivable() {
			continue
		}
		ev := publishing.Event{Action: publishing.ActionArchive, SnapshotID: target.SnapshotID}
		if err := s.transition(ctx, tx, out, u, ev, req); err != nil {
			return nil, err
		}
		last = u.versions[target.SnapshotID]
	}

	return last, nil
}

// ExecuteRestoreEntities restores the newest archived or deleted version of each root.
// Roots are processed independently.
func (s *PublishingService) ExecuteRestoreEntities(ctx context.Context, family domain.Family, rootIDs []string, veto RestoreVeto, req Request) ([]ItemResult, error) {
	items := make([]batchItem, 0, len(rootIDs))
	for _, rootID := range sortedIDs(rootIDs) {
		items = append(items, batchItem{
			family: family,
			rootID: rootID,
			run: func(ctx context.Context, tx store.Store, out *outbox) (*model.EntityVersion, error) {
				return s.restoreRootTx(ctx, tx, out, family, rootID, veto, req)
			},
		})
	}

	return s.runBatch(ctx, string(publishing.ActionRestore), items)
}

func (s *PublishingService) restoreRootTx(ctx context.Context, tx store.Store, out *outbox, family domain.Family, rootID string, veto RestoreVeto, req Request) (*model.EntityVersion, error) {
	u, err := s.load(ctx, tx, family, rootID)
	if err != nil {
		return nil, err
	}

	newest := -1
	for i, snap := range u.root.Snapshots {
		if !snap.Status.Restorable() {
			continue
		}
		if newest < 0 || publishing.Less(u.root.Snapshots[newest].Major, u.root.Snapshots[newest].Minor, snap.Major, snap.Minor) {
			newest = i
		}
	}
	if newest < 0 {
		return nil, fmt.Errorf("%w: %s %s has no version to restore", publishing.ErrInvalidStateTransition, family, rootID)
	}

	ev := publishing.Event{Action: publishing.ActionRestore, SnapshotID: u.root.Snapshots[newest].ID}
	if err := s.restoreEvent(veto)(ctx, tx, u, &ev); err != nil {
		return nil, err
	}
	if err := s.transition(ctx, tx, out, u, ev, req); err != nil {
		return nil, err
	}

	return u.versions[ev.SnapshotID], nil
}

func sortedIDs(ids []string) []string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}
