package helper

import (
	"booking_manager/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// blockingSlots is the shared condition for slots that claim a window:
// BOOKED, or HOLD whose expiry is still in the future.
func blockingSlots(db *gorm.DB, resourceID uint, start, end, now time.Time) *gorm.DB {
	return db.Model(&model.ReservedSlot{}).
		Where("resource_id = ? AND start_time < ? AND end_time > ?", resourceID, end, start).
		Where("status = ? OR (status = ? AND expires_at > ?)", model.SlotBooked, model.SlotHold, now)
}

// IsResourceAvailable is the read-only availability check used before insert.
func IsResourceAvailable(db *gorm.DB, resourceID uint, start, end, now time.Time) (bool, error) {
	var count int64
	if err := blockingSlots(db, resourceID, start, end, now).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

// AvailableForUpdate re-checks availability inside a write transaction. The
// resource row is locked first: a free window has no conflicting slot rows to
// lock, so the resource lock is what serializes two writers claiming the same
// window.
func AvailableForUpdate(tx *gorm.DB, resourceID uint, start, end, now time.Time) (bool, error) {
	var resource model.Resource
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&resource, resourceID).Error; err != nil {
		return false, err
	}
	var count int64
	if err := blockingSlots(tx, resourceID, start, end, now).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

// AvailableForUpdateExcluding behaves like AvailableForUpdate but ignores the
// given order's own slots. Used by the late-payment rebook path, where the
// order's expired holds may still be present.
func AvailableForUpdateExcluding(tx *gorm.DB, orderID, resourceID uint, start, end, now time.Time) (bool, error) {
	var resource model.Resource
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&resource, resourceID).Error; err != nil {
		return false, err
	}
	var count int64
	if err := blockingSlots(tx, resourceID, start, end, now).
		Where("order_id <> ?", orderID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}
