package model

import "time"

// BookingSettings is a single-row table of TTL knobs, refreshed through a
// short-lived cache. All durations are minutes.
type BookingSettings struct {
	DTO
	HoldMinutes                 int `gorm:"default:15" json:"holdMinutes"`
	OnlineTTLMinutes            int `gorm:"default:15" json:"onlineTtlMinutes"`
	LastMinuteTTLMinutes        int `gorm:"default:5" json:"lastMinuteTtlMinutes"`
	LastMinuteThresholdMinutes  int `gorm:"default:60" json:"lastMinuteThresholdMinutes"`
	PeakTTLMinutes              int `gorm:"default:10" json:"peakTtlMinutes"`
	PeakStartHour               int `gorm:"default:17" json:"peakStartHour"`
	PeakEndHour                 int `gorm:"default:22" json:"peakEndHour"`
	OnsiteMaxBeforeStartMinutes int `gorm:"default:120" json:"onsiteMaxBeforeStartMinutes"`
	OnsiteGraceMinutes          int `gorm:"default:7" json:"onsiteGraceMinutes"`
}

// BusinessHour defines open/close minutes-of-day per weekday (0 = Sunday).
type BusinessHour struct {
	DTO
	Weekday     int  `gorm:"uniqueIndex;not null" json:"weekday"`
	OpenMinute  int  `json:"openMinute"`
	CloseMinute int  `json:"closeMinute"`
	Closed      bool `gorm:"default:false" json:"closed"`
}

type DayOff struct {
	DTO
	Name        string    `gorm:"size:100;not null" json:"name"`
	Date        time.Time `gorm:"type:date;not null" json:"date"`
	IsRecurring bool      `gorm:"default:false" json:"isRecurring"`
}

// MarketingConsent is only recorded, never read by the booking flow.
type MarketingConsent struct {
	DTO
	Email     string    `gorm:"size:120" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Source    string    `gorm:"size:40" json:"source"`
	ConsentAt time.Time `json:"consentAt"`
}
