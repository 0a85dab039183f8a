package models

import (
	"time"

	"ledgerbook/internal/uuid"

	"gorm.io/gorm"
)

// Base contains common columns for all mutable tables.
// ID is the internal sequential key and never leaves the process;
// UID is the opaque identifier exposed to clients.
type Base struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UID       string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *Base) BeforeCreate(tx *gorm.DB) error {
	if b.UID == "" {
		b.UID = uuid.New()
	}
	return nil
}
