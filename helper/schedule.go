package helper

import (
	"booking_manager/database"
	"booking_manager/model"
	"errors"
	"time"

	"gorm.io/gorm"
)

// IsDayOff checks the day-off calendar; recurring entries match on month/day.
func IsDayOff(date time.Time) (bool, string, error) {
	var dayOff model.DayOff
	err := database.DB.
		Where("date = ?", date.Format("2006-01-02")).
		Or("is_recurring = true AND to_char(date, 'MM-DD') = ?", date.Format("01-02")).
		First(&dayOff).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, "", nil
		}
		return false, "", err
	}
	return true, dayOff.Name, nil
}

// HoursFor returns the weekly schedule row for the date's weekday.
func HoursFor(date time.Time) (model.BusinessHour, error) {
	var hours model.BusinessHour
	err := database.DB.Where("weekday = ?", int(date.Weekday())).First(&hours).Error
	return hours, err
}

// WithinBusinessHours reports whether [start,end) fits inside the day's
// open/close window. End is measured from the start day's midnight, so a
// window running past the configured close (including past midnight) fails.
func WithinBusinessHours(h model.BusinessHour, start, end time.Time) bool {
	if h.Closed {
		return false
	}
	midnight := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	startMin := start.Hour()*60 + start.Minute()
	endMin := int(end.Sub(midnight).Minutes())
	return startMin >= h.OpenMinute && endMin <= h.CloseMinute
}
