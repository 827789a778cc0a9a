package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	SlotHold     = "HOLD"
	SlotBooked   = "BOOKED"
	SlotReleased = "RELEASED"
)

// ReservedSlot claims one resource for a time window. ExpiresAt is set only
// while the slot is a HOLD; booking clears it. The sweeper soft-deletes
// reclaimed slots so a late payment can still recover the exact windows.
type ReservedSlot struct {
	DTO
	OrderID    uint           `gorm:"not null;index" json:"orderId"`
	ResourceID uint           `gorm:"not null;index" json:"resourceId"`
	StartTime  time.Time      `gorm:"not null" json:"startTime"`
	EndTime    time.Time      `gorm:"not null" json:"endTime"`
	Status     string         `gorm:"size:20;not null" json:"status"`
	ExpiresAt  *time.Time     `json:"expiresAt,omitempty"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Resource Resource `gorm:"foreignKey:ResourceID" json:"-"`
}
