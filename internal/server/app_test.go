package server

import (
	"context"
	"testing"

	"github.com/emrgen/servicecatalog/internal/config"
	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/service"
	"github.com/emrgen/servicecatalog/internal/tester"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp(t *testing.T) {
	tester.Setup()
	ctx := context.TODO()

	cfg := &config.Config{Compression: "lz4", DraftLifetimeMonths: 6, PublishedLifetimeMonths: 12}
	app, err := NewApp(ctx, cfg, tester.TestDB())
	require.NoError(t, err)
	defer app.Close()

	assert.Equal(t, []string{"fi", "sv", "en"}, app.Languages.Get().Codes())

	v, err := app.Service.CreateEntity(ctx, domain.FamilyOrganization, "org-1", []string{"fi"}, service.Request{Actor: "admin"})
	require.NoError(t, err)
	_, err = app.Service.Publish(ctx, domain.FamilyOrganization, v.ID, service.Request{Actor: "admin"})
	require.NoError(t, err)

	published, err := app.Service.GetPublishedVersion(ctx, domain.FamilyOrganization, v.RootID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, published.ID)

	families, err := app.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewApp_UnknownCompression(t *testing.T) {
	tester.Setup()

	_, err := NewApp(context.TODO(), &config.Config{Compression: "zstd"}, tester.TestDB())
	assert.Error(t, err)
}
