package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DRAFT_LIFETIME_MONTHS", "3")
	t.Setenv("PUBLISHED_LIFETIME_MONTHS", "not-a-number")
	t.Setenv("EXPIRATION_WARNING_DAYS", "7")

	cfg := LoadConfig()

	assert.Equal(t, "postgres", cfg.DbDriver)
	assert.Equal(t, 3, cfg.DraftLifetimeMonths)
	assert.Equal(t, 12, cfg.PublishedLifetimeMonths)
	assert.Equal(t, 7*24*time.Hour, cfg.WarningWindow)
}
