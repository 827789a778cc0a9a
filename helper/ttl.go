package helper

import (
	"booking_manager/model"
	"time"
)

// ComputeHoldTTL returns how many minutes a hold should live. Pure function:
// identical inputs always give the same answer.
//
// On-site methods get until the earliest slot start, capped by the configured
// maximum; once the reservation has started only the grace period remains.
// Online holds start from the payment-session TTL, shortened by the
// last-minute and peak-hours rules; neither rule ever lengthens the TTL.
func ComputeHoldTTL(paymentMethod string, earliestStart time.Time, s model.BookingSettings, now time.Time) int {
	untilStart := int(earliestStart.Sub(now).Minutes())

	if paymentMethod == model.PayOnsiteCash || paymentMethod == model.PayOnsiteCard {
		if untilStart <= 0 {
			return s.OnsiteGraceMinutes
		}
		if untilStart < s.OnsiteMaxBeforeStartMinutes {
			return untilStart
		}
		return s.OnsiteMaxBeforeStartMinutes
	}

	return onlineTTL(s.OnlineTTLMinutes, untilStart, s, now)
}

// HoldCreationTTL is ComputeHoldTTL with HoldMinutes as the online base: the
// window a fresh hold gets to reach checkout, before any payment session
// exists. Checkout re-computes with the payment-session TTL.
func HoldCreationTTL(paymentMethod string, earliestStart time.Time, s model.BookingSettings, now time.Time) int {
	if paymentMethod == model.PayOnline {
		untilStart := int(earliestStart.Sub(now).Minutes())
		return onlineTTL(s.HoldMinutes, untilStart, s, now)
	}
	return ComputeHoldTTL(paymentMethod, earliestStart, s, now)
}

func onlineTTL(base, untilStart int, s model.BookingSettings, now time.Time) int {
	ttl := base
	if untilStart <= s.LastMinuteThresholdMinutes {
		ttl = s.LastMinuteTTLMinutes
	}
	if now.Hour() >= s.PeakStartHour && now.Hour() < s.PeakEndHour && s.PeakTTLMinutes < ttl {
		ttl = s.PeakTTLMinutes
	}
	return ttl
}

// EarliestSlotStart returns the earliest start among slots, zero when empty.
func EarliestSlotStart(slots []model.ReservedSlot) time.Time {
	var earliest time.Time
	for _, s := range slots {
		if earliest.IsZero() || s.StartTime.Before(earliest) {
			earliest = s.StartTime
		}
	}
	return earliest
}
