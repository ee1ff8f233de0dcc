package service

import (
	"context"
	"testing"
	"time"

	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/emrgen/servicecatalog/internal/publishing"
	"github.com/emrgen/servicecatalog/internal/store"
	"github.com/emrgen/servicecatalog/internal/tester"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) connections(t *testing.T, channelRootID string) []*model.Connection {
	connections, err := f.store.ListChannelConnections(context.TODO(), []string{channelRootID})
	require.NoError(t, err)

	return connections
}

func TestPublishingService_PublishChannelDropsForeignConnections(t *testing.T) {
	f := newFixture(t)
	ctx := context.TODO()

	channel, err := f.svc.CreateEntity(ctx, domain.FamilyServiceChannel, "org-1", []string{"fi"}, req)
	require.NoError(t, err)
	own := f.published(t, domain.FamilyService, "org-1", "fi")
	foreign := f.published(t, domain.FamilyService, "org-2", "fi")

	_, err = f.svc.Connect(ctx, own.RootID, channel.RootID, false)
	require.NoError(t, err)
	_, err = f.svc.Connect(ctx, foreign.RootID, channel.RootID, false)
	require.NoError(t, err)

	_, err = f.svc.Publish(ctx, domain.FamilyServiceChannel, channel.ID, req)
	require.NoError(t, err)

	connections := f.connections(t, channel.RootID)
	require.Len(t, connections, 1)
	assert.Equal(t, own.RootID, connections[0].ServiceRootID)
}

func TestPublishingService_PublishChannelMandatoryConnection(t *testing.T) {
	f := newFixture(t)
	ctx := context.TODO()

	channel, err := f.svc.CreateEntity(ctx, domain.FamilyServiceChannel, "org-1", []string{"fi"}, req)
	require.NoError(t, err)
	foreign := f.published(t, domain.FamilyService, "org-2", "fi")
	_, err = f.svc.Connect(ctx, foreign.RootID, channel.RootID, true)
	require.NoError(t, err)

	_, err = f.svc.Publish(ctx, domain.FamilyServiceChannel, channel.ID, req)
	assert.ErrorIs(t, err, ErrReferentialConflict)

	// the publish is rolled back with the cascade
	assert.Equal(t, "Draft", f.version(t, domain.FamilyServiceChannel, channel.ID).Status)
	assert.Len(t, f.connections(t, channel.RootID), 1)
}

func TestPublishingService_PublishCommonChannelKeepsConnections(t *testing.T) {
	f := newFixture(t)
	ctx := context.TODO()

	channel, err := f.svc.CreateEntity(ctx, domain.FamilyServiceChannel, "org-1", []string{"fi"}, req)
	require.NoError(t, err)
	channel.Common = true
	require.NoError(t, f.store.UpdateVersion(ctx, domain.FamilyServiceChannel, channel))

	foreign := f.published(t, domain.FamilyService, "org-2", "fi")
	_, err = f.svc.Connect(ctx, foreign.RootID, channel.RootID, false)
	require.NoError(t, err)

	_, err = f.svc.Publish(ctx, domain.FamilyServiceChannel, channel.ID, req)
	require.NoError(t, err)
	assert.Len(t, f.connections(t, channel.RootID), 1)

	// a common channel is left alone when the status is checked
	removed, err := f.svc.RemoveNotCommonConnections(ctx, []string{channel.RootID}, true)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	removed, err = f.svc.RemoveNotCommonConnections(ctx, []string{channel.RootID}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Empty(t, f.connections(t, channel.RootID))
}

func TestPublishingService_RemoveNotCommonConnectionsUnpublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.TODO()

	channel, err := f.svc.CreateEntity(ctx, domain.FamilyServiceChannel, "org-1", []string{"fi"}, req)
	require.NoError(t, err)
	foreign := f.published(t, domain.FamilyService, "org-2", "fi")
	_, err = f.svc.Connect(ctx, foreign.RootID, channel.RootID, false)
	require.NoError(t, err)

	removed, err := f.svc.RemoveNotCommonConnections(ctx, []string{channel.RootID}, true)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Len(t, f.connections(t, channel.RootID), 1)
}

func TestPublishingService_Connect(t *testing.T) {
	f := newFixture(t)
	ctx := context.TODO()

	service, err := f.svc.CreateEntity(ctx, domain.FamilyService, "org-1", []string{"fi"}, req)
	require.NoError(t, err)

	_, err = f.svc.Connect(ctx, service.RootID, "missing", false)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPublishingService_ExecuteCopyEntities(t *testing.T) {
	f := newFixture(t)
	ctx := context.TODO()

	source := f.published(t, domain.FamilyService, "org-1", "fi", "sv")

	copies, err := f.svc.ExecuteCopyEntities(ctx, domain.FamilyService, []string{source.RootID}, "org-2", req)
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.NotEqual(t, source.RootID, copies[0])

	versions, err := f.svc.ListVersions(ctx, domain.FamilyService, copies[0])
	require.NoError(t, err)
	require.Len(t, versions, 1)
	copied := versions[0]
	assert.Equal(t, "Draft", copied.Status)
	assert.Equal(t, "org-2", copied.OrganizationID)
	assert.Equal(t, map[string]string{"fi": "Draft", "sv": "Draft"}, languageStatuses(copied))
	assert.Equal(t, "0.1.0", f.versionNumber(t, copied))

	history, err := f.svc.ListHistory(ctx, copied.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Copy", history[0].Action)

	// the source is untouched
	assert.Equal(t, "Published", f.version(t, domain.FamilyService, source.ID).Status)
}

func TestPublishingService_ExecuteCopyEntitiesAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.TODO()

	good := f.published(t, domain.FamilyService, "org-1", "fi")
	archived := f.published(t, domain.FamilyService, "org-1", "fi")
	_, err := f.svc.Archive(ctx, domain.FamilyService, archived.ID, req)
	require.NoError(t, err)

	var before int64
	require.NoError(t, tester.TestDB().Table(domain.FamilyService.RootTable()).Count(&before).Error)

	_, err = f.svc.ExecuteCopyEntities(ctx, domain.FamilyService, []string{good.RootID, archived.RootID}, "org-2", req)
	assert.ErrorIs(t, err, ErrNothingToCopy)

	var after int64
	require.NoError(t, tester.TestDB().Table(domain.FamilyService.RootTable()).Count(&after).Error)
	assert.Equal(t, before, after)

	_, err = f.svc.ExecuteCopyEntities(ctx, domain.FamilyService, []string{good.RootID}, "", req)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestPublishingService_ExecuteArchiveEntities(t *testing.T) {
	f := newFixture(t)
	ctx := context.TODO()

	published := f.published(t, domain.FamilyService, "org-1", "fi")
	modified, err := f.svc.SaveEntityVersion(ctx, domain.FamilyService, published.RootID, nil, req)
	require.NoError(t, err)

	archived := f.published(t, domain.FamilyService, "org-1", "fi")
	_, err = f.svc.Archive(ctx, domain.FamilyService, archived.ID, req)
	require.NoError(t, err)

	results, err := f.svc.ExecuteArchiveEntities(ctx, domain.FamilyService, []string{archived.RootID, published.RootID}, req)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byRoot := make(map[string]ItemResult)
	for _, r := range results {
		byRoot[r.RootID] = r
	}

	ok := byRoot[published.RootID]
	assert.NoError(t, ok.Err)
	assert.Equal(t, "Archived", ok.Status)
	assert.Equal(t, "Archived", f.version(t, domain.FamilyService, published.ID).Status)
	assert.Equal(t, "Archived", f.version(t, domain.FamilyService, modified.ID).Status)

	failed := byRoot[archived.RootID]
	assert.ErrorIs(t, failed.Err, publishing.ErrInvalidStateTransition)
	assert.Equal(t, ReasonInvalidStateTransition, failed.Reason)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.BatchItemsTotal.WithLabelValues("Archive", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.BatchItemsTotal.WithLabelValues("Archive", ReasonInvalidStateTransition)))
}

func TestPublishingService_ExecuteRestoreEntities(t *testing.T) {
	f := newFixture(t)
	ctx := context.TODO()

	v := f.published(t, domain.FamilyService, "org-1", "fi")
	_, err := f.svc.Archive(ctx, domain.FamilyService, v.ID, req)
	require.NoError(t, err)
	f.advance(time.Minute)

	results, err := f.svc.ExecuteRestoreEntities(ctx, domain.FamilyService, []string{v.RootID, "missing"}, nil, req)
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		if r.RootID == v.RootID {
			assert.NoError(t, r.Err)
			assert.Equal(t, "Published", r.Status)
		} else {
			assert.ErrorIs(t, r.Err, store.ErrNotFound)
			assert.Equal(t, ReasonNotFound, r.Reason)
		}
	}

	got, err := f.svc.GetPublishedVersion(ctx, domain.FamilyService, v.RootID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)
}
