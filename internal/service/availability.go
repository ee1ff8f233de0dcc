package service

import (
	"slices"

	"github.com/emrgen/servicecatalog/internal/domain"
	"github.com/emrgen/servicecatalog/internal/publishing"
)

// GetLanguageAvailabilities returns the availability entries of each entity in language
// display order. The result is aligned with entities.
func (s *PublishingService) GetLanguageAvailabilities(entities []domain.MultilingualEntity) [][]domain.LanguageAvailable {
	table := s.languages.Get()

	result := make([][]domain.LanguageAvailable, len(entities))
	for i, entity := range entities {
		availabilities := slices.Clone(entity.GetLanguageAvailabilities())
		slices.SortStableFunc(availabilities, func(a, b domain.LanguageAvailable) int {
			return table.Order(a.GetLanguage()) - table.Order(b.GetLanguage())
		})
		result[i] = availabilities
	}

	return result
}

// IsPublished reports whether the entity is visible to readers: it is the published
// version or the working copy on top of it, and at least one language is published.
func IsPublished(entity domain.Entity) bool {
	switch publishing.Status(entity.GetStatus()) {
	case publishing.StatusPublished, publishing.StatusModified:
	default:
		return false
	}

	for _, la := range entity.GetLanguageAvailabilities() {
		if publishing.LanguageStatus(la.GetStatus()) == publishing.LanguagePublished {
			return true
		}
	}

	return false
}
