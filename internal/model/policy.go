package model

import "time"

// ExpirationPolicy holds the lifetimes an organization gives to the versions of one family.
type ExpirationPolicy struct {
	OrganizationID          string `gorm:"primaryKey;uuid;not null"`
	EntityType              string `gorm:"primaryKey;not null"`
	DraftLifetimeMonths     int
	PublishedLifetimeMonths int
	Disabled                bool
	UpdatedAt               time.Time
}

// Language is a supported content language.
type Language struct {
	Code        string `gorm:"primaryKey;not null"`
	Name        string
	OrderNumber int
	CreatedAt   time.Time
}
