package model

type ResourceType string

const (
	ResourceLane  ResourceType = "LANE"
	ResourceTable ResourceType = "TABLE"
	ResourceRoom  ResourceType = "ROOM"
)

type PricingMode string

const (
	PricingHourly    PricingMode = "HOURLY"
	PricingPerPerson PricingMode = "PER_PERSON"
	PricingFlat      PricingMode = "FLAT"
)

// Resource is a bookable unit: a bowling lane, billiard table or party room.
// Rates are minor currency units (grosze) per hour / person / booking.
type Resource struct {
	DTO
	Name          string       `gorm:"size:100;not null" json:"name"`
	Slug          string       `gorm:"size:120;uniqueIndex" json:"slug"`
	Type          ResourceType `gorm:"size:20;not null" json:"type"`
	HourlyRate    int64        `json:"hourlyRate"`
	PerPersonRate int64        `json:"perPersonRate"`
	FlatRate      int64        `json:"flatRate"`
	Capacity      int          `gorm:"default:0" json:"capacity"`
	IsActive      bool         `gorm:"default:true" json:"isActive"`
}
