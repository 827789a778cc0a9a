package handler

import (
	"booking_manager/database"
	"booking_manager/helper"
	"booking_manager/model"
	"booking_manager/utils"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jinzhu/copier"
)

type slotPlan struct {
	resource model.Resource
	start    time.Time
	end      time.Time
	item     model.OrderItem
}

// CreateBooking validates a reservation request, prices it and atomically
// creates order + items + slots as a hold. The availability pre-check is a
// fast reject; the authoritative check runs again inside the transaction
// under row locks.
func CreateBooking(c *fiber.Ctx) error {
	input := c.Locals("input").(model.CreateBookingInput)
	db := database.DB
	now := time.Now()

	settings, err := helper.LoadSettings(c.Context())
	if err != nil {
		return utils.ErrorResponse(c, 500, "Cannot load booking settings", err)
	}

	plans := make([]slotPlan, 0, len(input.Items))
	for _, item := range input.Items {
		var resource model.Resource
		if err := db.First(&resource, "id = ? AND is_active = true", item.ResourceID).Error; err != nil {
			return utils.ErrorResponse(c, 404, fmt.Sprintf("Resource %d not found", item.ResourceID), err)
		}

		start, err := time.ParseInLocation("2006-01-02 15:04", item.Date+" "+item.StartTime, time.Local)
		if err != nil {
			return utils.ErrorResponse(c, 400, "Invalid date or start time", err)
		}
		end := start.Add(time.Duration(item.DurationHours) * time.Hour)

		if !start.After(now) {
			return utils.ErrorResponse(c, 400, "Start time must be in the future", nil)
		}

		isOff, name, err := helper.IsDayOff(start)
		if err != nil {
			return utils.ErrorResponse(c, 500, "Cannot check day-off calendar", err)
		}
		if isOff {
			return utils.ErrorResponse(c, 400, fmt.Sprintf("We are closed on %s (%s)", item.Date, name), nil)
		}

		hours, err := helper.HoursFor(start)
		if err != nil {
			return utils.ErrorResponse(c, 500, "Cannot load business hours", err)
		}
		if !helper.WithinBusinessHours(hours, start, end) {
			return utils.ErrorResponse(c, 400, "Requested window is outside opening hours", nil)
		}

		mode := helper.DefaultPricingMode(resource, item.PeopleCount)
		unit, qty, total, err := helper.CalculateItemPrice(resource, mode, item.DurationHours, item.PeopleCount)
		if err != nil {
			return utils.ErrorResponse(c, 400, "Cannot price booking item", err)
		}

		plans = append(plans, slotPlan{
			resource: resource,
			start:    start,
			end:      end,
			item: model.OrderItem{
				ResourceID:    resource.ID,
				PricingMode:   mode,
				DurationHours: item.DurationHours,
				PeopleCount:   item.PeopleCount,
				Quantity:      qty,
				UnitAmount:    unit,
				TotalAmount:   total,
			},
		})
	}

	// Fast reject before touching storage.
	for _, plan := range plans {
		available, err := helper.IsResourceAvailable(db, plan.resource.ID, plan.start, plan.end, now)
		if err != nil {
			return utils.ErrorResponse(c, 500, "Availability check failed", err)
		}
		if !available {
			return utils.ErrorResponse(c, fiber.StatusConflict,
				fmt.Sprintf("%s is already reserved in that window", plan.resource.Name), nil)
		}
	}

	method := input.PaymentMethod
	if method == "" {
		method = model.PayOnline
	}
	status := model.OrderHold
	if method == model.PayOnsiteCash || method == model.PayOnsiteCard {
		status = model.OrderPendingOnsite
	}

	earliest := plans[0].start
	var totalAmount int64
	for _, plan := range plans {
		if plan.start.Before(earliest) {
			earliest = plan.start
		}
		totalAmount += plan.item.TotalAmount
	}
	ttl := helper.HoldCreationTTL(method, earliest, settings, now)
	holdExpiresAt := now.Add(time.Duration(ttl) * time.Minute)

	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Authoritative conflict check, this time under row locks.
	for _, plan := range plans {
		available, err := helper.AvailableForUpdate(tx, plan.resource.ID, plan.start, plan.end, now)
		if err != nil {
			tx.Rollback()
			return utils.ErrorResponse(c, 500, "Availability check failed", err)
		}
		if !available {
			tx.Rollback()
			return utils.ErrorResponse(c, fiber.StatusConflict,
				fmt.Sprintf("%s is already reserved in that window", plan.resource.Name), nil)
		}
	}

	code, err := helper.NextOrderNumber(tx, now)
	if err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, 500, "Cannot allocate order number", err)
	}

	var order model.Order
	copier.Copy(&order, &input)
	order.Items = nil
	order.PublicCode = code
	order.Status = status
	order.PaymentMethod = method
	order.TotalAmount = totalAmount
	order.Currency = currency()
	order.HoldExpiresAt = &holdExpiresAt

	if err := tx.Create(&order).Error; err != nil {
		tx.Rollback()
		return utils.ErrorResponse(c, 500, "Cannot create order", err)
	}

	for i := range plans {
		plans[i].item.OrderID = order.ID
		if err := tx.Create(&plans[i].item).Error; err != nil {
			tx.Rollback()
			return utils.ErrorResponse(c, 500, "Cannot create order item", err)
		}

		slot := model.ReservedSlot{
			OrderID:    order.ID,
			ResourceID: plans[i].resource.ID,
			StartTime:  plans[i].start,
			EndTime:    plans[i].end,
			Status:     model.SlotHold,
			ExpiresAt:  &holdExpiresAt,
		}
		if err := tx.Create(&slot).Error; err != nil {
			tx.Rollback()
			return utils.ErrorResponse(c, 500, "Cannot reserve slot", err)
		}
	}

	if input.MarketingConsent {
		tx.Create(&model.MarketingConsent{
			Email:     input.Email,
			Phone:     input.Phone,
			Source:    "booking",
			ConsentAt: now,
		})
	}

	if err := tx.Commit().Error; err != nil {
		return utils.ErrorResponse(c, 500, "Cannot create booking", err)
	}

	summaries := make([]model.ReservedSlotSummary, 0, len(plans))
	for _, plan := range plans {
		summaries = append(summaries, model.ReservedSlotSummary{
			ResourceID:   plan.resource.ID,
			ResourceName: plan.resource.Name,
			StartTime:    plan.start,
			EndTime:      plan.end,
		})
		BroadcastAvailability(plan.resource, plan.start.Format("2006-01-02"))
	}

	return utils.SuccessResponse(c, fiber.StatusCreated, model.HoldResult{
		OrderCode:             order.PublicCode,
		Status:                order.Status,
		HoldExpiresAt:         holdExpiresAt,
		TotalAmount:           totalAmount,
		Currency:              order.Currency,
		ReservedSlots:         summaries,
		RequiresOnlinePayment: method == model.PayOnline,
	})
}

// GetBooking is a read-only projection for the customer's order page.
func GetBooking(c *fiber.Ctx) error {
	code := c.Params("orderCode")

	var order model.Order
	if err := database.DB.
		Preload("Items").
		Preload("Slots").
		Where("public_code = ?", code).
		First(&order).Error; err != nil {
		return utils.ErrorResponse(c, 404, "Order not found", err)
	}

	return utils.SuccessResponse(c, 200, order)
}
