package model

import (
	"fmt"

	"github.com/emrgen/servicecatalog/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLanguages are seeded on migrate.
var DefaultLanguages = []Language{
	{Code: "fi", Name: "suomi", OrderNumber: 1},
	{Code: "sv", Name: "svenska", OrderNumber: 2},
	{Code: "en", Name: "English", OrderNumber: 3},
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Versioning{}, &HistoryMetaData{}, &Connection{}, &ExpirationPolicy{}, &Language{}); err != nil {
		return err
	}

	for _, family := range domain.Families {
		if err := migrateFamily(db, family); err != nil {
			return fmt.Errorf("migrate %s: %w", family, err)
		}
	}

	languages := append([]Language(nil), DefaultLanguages...)

	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&languages).Error
}

// migrateFamily creates the tables of one family. Index names are global in both
// sqlite and postgres, so the per-family indexes are named after the table.
func migrateFamily(db *gorm.DB, family domain.Family) error {
	if err := db.Table(family.RootTable()).AutoMigrate(&EntityRoot{}); err != nil {
		return err
	}

	if err := db.Table(family.VersionTable()).AutoMigrate(&EntityVersion{}); err != nil {
		return err
	}

	if err := db.Table(family.LanguageTable()).AutoMigrate(&LanguageAvailability{}); err != nil {
		return err
	}

	indexes := map[string]string{
		"root_id":       family.VersionTable(),
		"versioning_id": family.VersionTable(),
		"status":        family.VersionTable(),
	}
	for column, table := range indexes {
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s (%s)", table, column, table, column)
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}

	return nil
}
