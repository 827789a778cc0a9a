package database

import (
	"booking_manager/model"
	"fmt"
	"log"
	"time"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

func parseDate(dateStr string) time.Time {
	t, _ := time.Parse("2006-01-02", dateStr)
	return t
}

func SeedData(db *gorm.DB) {
	resources := []model.Resource{}
	for i := 1; i <= 8; i++ {
		resources = append(resources, model.Resource{
			Name:          fmt.Sprintf("Lane %d", i),
			Type:          model.ResourceLane,
			HourlyRate:    9000, // 90.00 per hour
			PerPersonRate: 2500,
			Capacity:      6,
			IsActive:      true,
		})
	}
	for i := 1; i <= 4; i++ {
		resources = append(resources, model.Resource{
			Name:       fmt.Sprintf("Billiard Table %d", i),
			Type:       model.ResourceTable,
			HourlyRate: 4500,
			Capacity:   4,
			IsActive:   true,
		})
	}
	resources = append(resources,
		model.Resource{Name: "Party Room A", Type: model.ResourceRoom, HourlyRate: 15000, FlatRate: 50000, Capacity: 20, IsActive: true},
		model.Resource{Name: "Party Room B", Type: model.ResourceRoom, HourlyRate: 12000, FlatRate: 40000, Capacity: 12, IsActive: true},
	)

	for _, r := range resources {
		r.Slug = slug.Make(r.Name)
		if err := db.Where(model.Resource{Slug: r.Slug}).FirstOrCreate(&r).Error; err != nil {
			log.Println("failed to seed resource:", r.Name, "error:", err)
		}
	}

	// Mon-Thu 10:00-23:00, Fri-Sat 10:00-24:00, Sun 12:00-22:00
	hours := []model.BusinessHour{
		{Weekday: 0, OpenMinute: 12 * 60, CloseMinute: 22 * 60},
		{Weekday: 1, OpenMinute: 10 * 60, CloseMinute: 23 * 60},
		{Weekday: 2, OpenMinute: 10 * 60, CloseMinute: 23 * 60},
		{Weekday: 3, OpenMinute: 10 * 60, CloseMinute: 23 * 60},
		{Weekday: 4, OpenMinute: 10 * 60, CloseMinute: 23 * 60},
		{Weekday: 5, OpenMinute: 10 * 60, CloseMinute: 24 * 60},
		{Weekday: 6, OpenMinute: 10 * 60, CloseMinute: 24 * 60},
	}
	for _, h := range hours {
		if err := db.Where(model.BusinessHour{Weekday: h.Weekday}).FirstOrCreate(&h).Error; err != nil {
			log.Println("failed to seed business hour:", h.Weekday, "error:", err)
		}
	}

	dayOffs := []model.DayOff{
		{Name: "New Year's Day", Date: parseDate("2025-01-01"), IsRecurring: true},
		{Name: "Christmas Eve", Date: parseDate("2025-12-24"), IsRecurring: true},
		{Name: "Christmas Day", Date: parseDate("2025-12-25"), IsRecurring: true},
	}
	for _, d := range dayOffs {
		if err := db.Where(model.DayOff{Name: d.Name}).FirstOrCreate(&d).Error; err != nil {
			log.Println("failed to seed day off:", d.Name, "error:", err)
		}
	}

	var settings model.BookingSettings
	if err := db.First(&settings).Error; err != nil {
		settings = model.BookingSettings{
			HoldMinutes:                 15,
			OnlineTTLMinutes:            15,
			LastMinuteTTLMinutes:        5,
			LastMinuteThresholdMinutes:  60,
			PeakTTLMinutes:              10,
			PeakStartHour:               17,
			PeakEndHour:                 22,
			OnsiteMaxBeforeStartMinutes: 120,
			OnsiteGraceMinutes:          7,
		}
		if err := db.Create(&settings).Error; err != nil {
			log.Println("failed to seed booking settings:", err)
		}
	}
}
