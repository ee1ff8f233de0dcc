package service

import (
	"testing"

	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestPublishingService_GetLanguageAvailabilities(t *testing.T) {
	f := newFixture(t)

	first := &model.EntityVersion{ID: "a", Status: "Published"}
	for _, code := range []string{"en", "xx", "sv", "fi"} {
		first.LanguageAvailabilities = append(first.LanguageAvailabilities, &model.LanguageAvailability{EntityVersionID: "a", Language: code})
	}
	second := &model.EntityVersion{ID: "b", Status: "Draft"}

	result := f.svc.GetLanguageAvailabilities([]domain.MultilingualEntity{first, second})
	assert.Len(t, result, 2)

	var codes []string
	for _, la := range result[0] {
		codes = append(codes, la.GetLanguage())
	}
	assert.Equal(t, []string{"fi", "sv", "en", "xx"}, codes)
	assert.Empty(t, result[1])

	// the entity keeps its own order
	assert.Equal(t, "en", first.LanguageAvailabilities[0].Language)
}

func TestIsPublished(t *testing.T) {
	entity := func(status string, languages map[string]string) *model.EntityVersion {
		v := &model.EntityVersion{ID: "v", Status: status}
		for code, ls := range languages {
			v.LanguageAvailabilities = append(v.LanguageAvailabilities, &model.LanguageAvailability{EntityVersionID: "v", Language: code, Status: ls})
		}
		return v
	}

	tests := []struct {
		name      string
		status    string
		languages map[string]string
		want      bool
	}{
		{"published", "Published", map[string]string{"fi": "Published", "sv": "Archived"}, true},
		{"published without published language", "Published", map[string]string{"fi": "Archived"}, false},
		{"modified with published language", "Modified", map[string]string{"fi": "Published"}, true},
		{"modified without published language", "Modified", map[string]string{"fi": "Modified"}, false},
		{"draft", "Draft", map[string]string{"fi": "Published"}, false},
		{"old published", "OldPublished", map[string]string{"fi": "OutdatedPublished"}, false},
		{"no languages", "Published", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPublished(entity(tt.status, tt.languages)))
		})
	}
}
