package helper

import (
	"booking_manager/model"
	"errors"
	"fmt"
)

var ErrPeopleCountRequired = errors.New("people count is required for per-person pricing")

// DefaultPricingMode picks the pricing mode for a resource type. Lanes charge
// per person when a head count is given, rooms charge the flat package rate
// when one is configured, everything else is hourly.
func DefaultPricingMode(r model.Resource, peopleCount int) model.PricingMode {
	switch r.Type {
	case model.ResourceLane:
		if peopleCount > 0 && r.PerPersonRate > 0 {
			return model.PricingPerPerson
		}
	case model.ResourceRoom:
		if r.FlatRate > 0 {
			return model.PricingFlat
		}
	}
	return model.PricingHourly
}

// CalculateItemPrice prices one booking item. Pure function over the
// resource's rate table; mismatched mode/type combinations and missing person
// counts are validation errors.
func CalculateItemPrice(r model.Resource, mode model.PricingMode, durationHours, peopleCount int) (unit int64, quantity int, total int64, err error) {
	if durationHours <= 0 {
		return 0, 0, 0, errors.New("duration must be positive")
	}

	switch mode {
	case model.PricingHourly:
		if r.HourlyRate <= 0 {
			return 0, 0, 0, fmt.Errorf("resource type %s has no hourly rate", r.Type)
		}
		unit = r.HourlyRate
		quantity = durationHours
	case model.PricingPerPerson:
		if r.Type != model.ResourceLane {
			return 0, 0, 0, fmt.Errorf("per-person pricing not supported for resource type %s", r.Type)
		}
		if peopleCount <= 0 {
			return 0, 0, 0, ErrPeopleCountRequired
		}
		if r.PerPersonRate <= 0 {
			return 0, 0, 0, errors.New("resource has no per-person rate")
		}
		unit = r.PerPersonRate * int64(durationHours)
		quantity = peopleCount
	case model.PricingFlat:
		if r.Type != model.ResourceRoom {
			return 0, 0, 0, fmt.Errorf("flat pricing not supported for resource type %s", r.Type)
		}
		if r.FlatRate <= 0 {
			return 0, 0, 0, errors.New("resource has no flat rate")
		}
		unit = r.FlatRate
		quantity = 1
	default:
		return 0, 0, 0, fmt.Errorf("unknown pricing mode %s", mode)
	}

	total = unit * int64(quantity)
	return unit, quantity, total, nil
}
