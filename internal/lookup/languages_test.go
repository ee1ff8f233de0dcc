package lookup

import (
	"context"
	"testing"

	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource []*model.Language

func (s staticSource) ListLanguages(ctx context.Context) ([]*model.Language, error) {
	return s, nil
}

func TestTable(t *testing.T) {
	table := NewTable([]*model.Language{{Code: "fi"}, {Code: "sv"}, {Code: "fi"}, {Code: "en"}})

	assert.Equal(t, []string{"fi", "sv", "en"}, table.Codes())
	assert.Equal(t, 1, table.Order("sv"))
	assert.Equal(t, 3, table.Order("de"))
	assert.NoError(t, table.Validate("fi", "en"))
	assert.ErrorIs(t, table.Validate("fi", "de"), ErrUnknownLanguage)
}

func TestHolder_Reload(t *testing.T) {
	source := staticSource{{Code: "fi"}}
	holder := NewHolder(source)

	before := holder.Get()
	assert.False(t, before.Contains("fi"))

	require.NoError(t, holder.Reload(context.TODO()))
	assert.True(t, holder.Get().Contains("fi"))

	// tables handed out earlier stay unchanged
	assert.False(t, before.Contains("fi"))
}
