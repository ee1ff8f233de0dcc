package model

import "gorm.io/gorm"

// Connection links a service root to a service channel root.
type Connection struct {
	gorm.Model
	ServiceRootID string `gorm:"uuid;not null;index"`
	ChannelRootID string `gorm:"uuid;not null;index"`
	// Mandatory connections must not be dropped by a cascade.
	Mandatory bool `gorm:"default:false"`
}
