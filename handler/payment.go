package handler

import (
	"booking_manager/config"
	"booking_manager/database"
	"booking_manager/helper"
	"booking_manager/model"
	"booking_manager/utils"
	"crypto/subtle"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func currency() string {
	return config.ConfigOr("DEFAULT_CURRENCY", "PLN")
}

// SessionIDFor derives a stable gateway session id from the order code, so
// repeated checkout calls for the same order reuse one gateway session.
func SessionIDFor(orderCode string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("booking:"+orderCode)).String()
}

// loadTransaction finds or creates the logical payment transaction for an
// order's checkout session.
func loadTransaction(db *gorm.DB, order *model.Order, sessionID string) (model.PaymentTransaction, error) {
	var txn model.PaymentTransaction
	err := db.Where("order_id = ? AND session_id = ?", order.ID, sessionID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		txn = model.PaymentTransaction{
			OrderID:   order.ID,
			SessionID: sessionID,
			Amount:    order.TotalAmount,
			Currency:  order.Currency,
		}
		txn.Append(model.TxnPending, "transaction opened", time.Now())
		err = db.Create(&txn).Error
	}
	return txn, err
}

// appendTxnEntry reloads the transaction and appends one history entry. The
// reload keeps the append-only log intact when the row was touched inside a
// transaction we are no longer holding.
func appendTxnEntry(db *gorm.DB, orderID uint, sessionID, status, reason string) {
	var txn model.PaymentTransaction
	if err := db.Where("order_id = ? AND session_id = ?", orderID, sessionID).First(&txn).Error; err != nil {
		log.Printf("payment: transaction log for order %d missing: %v", orderID, err)
		return
	}
	txn.Append(status, reason, time.Now())
	if err := db.Save(&txn).Error; err != nil {
		log.Printf("payment: append %s to transaction log for order %d: %v", status, orderID, err)
	}
}

// InitiateCheckout registers the order with the payment gateway and moves it
// to PENDING_PAYMENT. Local state is mutated only after the gateway call
// succeeds; a timeout leaves the order exactly as it was.
func InitiateCheckout(c *fiber.Ctx) error {
	code := c.Params("orderCode")
	db := database.DB
	now := time.Now()

	var order model.Order
	if err := db.Preload("Slots").Where("public_code = ?", code).First(&order).Error; err != nil {
		return utils.ErrorResponse(c, 404, "Order not found", err)
	}

	switch order.Status {
	case model.OrderPaid:
		return utils.ErrorResponse(c, 400, "Order is already paid", nil)
	case model.OrderExpired, model.OrderCancelled:
		return utils.ErrorResponse(c, 400, "Order is no longer payable", nil)
	}
	if order.PaymentMethod != model.PayOnline {
		return utils.ErrorResponse(c, 400, "Order is payable on site", nil)
	}
	if order.HoldExpiresAt != nil && now.After(*order.HoldExpiresAt) {
		return utils.ErrorResponse(c, 400, "Hold has expired, please book again", nil)
	}

	settings, err := helper.LoadSettings(c.Context())
	if err != nil {
		return utils.ErrorResponse(c, 500, "Cannot load booking settings", err)
	}

	sessionID := SessionIDFor(code)
	gw := NewGateway()
	token, redirectURL, err := gw.Register(model.RegisterRequest{
		SessionID:   sessionID,
		Amount:      order.TotalAmount,
		Currency:    order.Currency,
		Description: "Booking " + code,
		Email:       order.Email,
		Country:     "PL",
		Language:    "pl",
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadGateway, "Payment gateway unavailable, please retry", err)
	}

	ttl := helper.ComputeHoldTTL(model.PayOnline, helper.EarliestSlotStart(order.Slots), settings, now)
	newExpiry := now.Add(time.Duration(ttl) * time.Minute)

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&order).Updates(map[string]any{
			"status":             model.OrderPendingPayment,
			"gateway_session_id": sessionID,
			"gateway_order_id":   token,
			"hold_expires_at":    newExpiry,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.ReservedSlot{}).
			Where("order_id = ? AND status = ?", order.ID, model.SlotHold).
			Update("expires_at", newExpiry).Error; err != nil {
			return err
		}
		txn, err := loadTransaction(tx, &order, sessionID)
		if err != nil {
			return err
		}
		txn.Append(model.TxnPending, "checkout initiated", now)
		return tx.Save(&txn).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, 500, "Cannot initiate checkout", err)
	}

	return utils.SuccessResponse(c, 200, model.CheckoutResult{
		OrderCode:   order.PublicCode,
		SessionID:   sessionID,
		RedirectURL: redirectURL,
	})
}

// PaymentWebhook applies a gateway notification. Safe to re-deliver: the
// same payload applied twice changes nothing beyond an audit entry.
func PaymentWebhook(c *fiber.Ctx) error {
	input := c.Locals("input").(model.WebhookInput)
	db := database.DB
	now := time.Now()
	gw := NewGateway()

	expected := gw.NotificationSign(input.SessionID, input.OrderID, input.Amount, input.Currency)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(input.Sign)) != 1 {
		return utils.ErrorResponse(c, 400, "Invalid signature", nil)
	}
	if input.MerchantID != gw.Config.MerchantID || input.PosID != gw.Config.PosID {
		return utils.ErrorResponse(c, 400, "Unknown merchant", nil)
	}

	var order model.Order
	if err := db.Where("gateway_session_id = ?", input.SessionID).First(&order).Error; err != nil {
		return utils.ErrorResponse(c, 404, "Order not found for session", err)
	}
	if input.Amount != order.TotalAmount || !strings.EqualFold(input.Currency, order.Currency) {
		return utils.ErrorResponse(c, 400, "Amount or currency mismatch", nil)
	}

	txn, err := loadTransaction(db, &order, input.SessionID)
	if err != nil {
		return utils.ErrorResponse(c, 500, "Cannot open transaction log", err)
	}

	// Gateway-side verification; the raw response goes into the log either way.
	verifyRaw, verifyErr := gw.Verify(input.SessionID, input.OrderID, input.Amount, input.Currency)
	note := "gateway verify: " + verifyRaw
	if verifyErr != nil {
		note = fmt.Sprintf("gateway verify error: %v (response: %s)", verifyErr, verifyRaw)
	}
	txn.Append(txn.Status, note, now)
	if err := db.Save(&txn).Error; err != nil {
		log.Printf("payment: record verify response for order %s: %v", order.PublicCode, err)
	}

	// Idempotency fast path.
	if order.Status == model.OrderPaid {
		appendTxnEntry(db, order.ID, input.SessionID, model.TxnSuccess, "already paid")
		return utils.SuccessResponse(c, 200, fiber.Map{"status": "OK"})
	}

	var outcome string
	err = db.Transaction(func(tx *gorm.DB) error {
		var locked model.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&locked, order.ID).Error; err != nil {
			return err
		}
		// Re-check under the lock: a concurrent delivery may have finished
		// while we were verifying.
		if locked.Status == model.OrderPaid {
			outcome = "alreadyPaid"
			return nil
		}
		var lockedTxn model.PaymentTransaction
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ? AND session_id = ?", locked.ID, input.SessionID).
			First(&lockedTxn).Error; err != nil {
			return err
		}
		if lockedTxn.Status == model.TxnRefunded {
			outcome = "alreadyRefunded"
			return nil
		}

		expired := locked.HoldExpiresAt != nil && now.After(*locked.HoldExpiresAt)
		if !expired {
			if err := bookOrder(tx, &locked, now); err != nil {
				return err
			}
			outcome = "booked"
			return nil
		}

		// Late payment: the hold is gone, try to rebook the exact windows.
		var slots []model.ReservedSlot
		if err := tx.Unscoped().Where("order_id = ?", locked.ID).Find(&slots).Error; err != nil {
			return err
		}
		if len(slots) == 0 {
			return fmt.Errorf("order %s has no reserved windows to rebook", locked.PublicCode)
		}
		occupied := false
		for _, s := range slots {
			free, err := helper.AvailableForUpdateExcluding(tx, locked.ID, s.ResourceID, s.StartTime, s.EndTime, now)
			if err != nil {
				return err
			}
			if !free {
				occupied = true
				break
			}
		}

		if !occupied {
			for _, s := range slots {
				if err := tx.Unscoped().Model(&model.ReservedSlot{}).Where("id = ?", s.ID).
					Updates(map[string]any{"deleted_at": nil, "status": model.SlotBooked, "expires_at": nil}).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&locked).Updates(map[string]any{"status": model.OrderPaid, "paid_at": now}).Error; err != nil {
				return err
			}
			outcome = "rebooked"
			return nil
		}

		// Window taken: refund the payment. The refund runs while the order
		// lock is held so a concurrent delivery cannot issue a second one;
		// the call is bounded by the gateway client timeout, and the REFUNDED
		// entry commits only if the refund went through.
		if _, err := gw.Refund(input.SessionID, input.OrderID, input.Amount); err != nil {
			return fmt.Errorf("refund failed: %w", err)
		}
		lockedTxn.Append(model.TxnRefunded, "late payment, window occupied, amount refunded", now)
		if err := tx.Save(&lockedTxn).Error; err != nil {
			return err
		}
		outcome = "refunded"
		return nil
	})
	if err != nil {
		appendTxnEntry(db, order.ID, input.SessionID, model.TxnFailed, err.Error())
		return utils.ErrorResponse(c, 500, "Webhook processing failed", err)
	}

	switch outcome {
	case "booked", "rebooked":
		reason := "payment confirmed"
		if outcome == "rebooked" {
			reason = "late payment, rebooked"
		}
		appendTxnEntry(db, order.ID, input.SessionID, model.TxnSuccess, reason)
		notifyConfirmation(db, order.ID)
		broadcastOrderSlots(db, order.ID)
	case "alreadyPaid":
		appendTxnEntry(db, order.ID, input.SessionID, model.TxnSuccess, "already paid")
	case "alreadyRefunded":
		appendTxnEntry(db, order.ID, input.SessionID, model.TxnRefunded, "duplicate delivery, refund already issued")
	case "refunded":
		notifyUnavailable(db, order.ID)
	}

	return utils.SuccessResponse(c, 200, fiber.Map{"status": "OK"})
}

// PaymentStatus is the read-only projection clients poll after redirect.
func PaymentStatus(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")

	var order model.Order
	if err := database.DB.Where("gateway_session_id = ?", sessionID).First(&order).Error; err != nil {
		return utils.ErrorResponse(c, 404, "Session not found", err)
	}

	return utils.SuccessResponse(c, 200, model.PaymentStatusResult{
		OrderCode: order.PublicCode,
		Status:    order.Status,
		PaidAt:    order.PaidAt,
	})
}

func bookOrder(tx *gorm.DB, order *model.Order, now time.Time) error {
	if err := tx.Model(&model.ReservedSlot{}).
		Where("order_id = ? AND status = ?", order.ID, model.SlotHold).
		Updates(map[string]any{"status": model.SlotBooked, "expires_at": nil}).Error; err != nil {
		return err
	}
	return tx.Model(order).Updates(map[string]any{"status": model.OrderPaid, "paid_at": now}).Error
}

func notifyConfirmation(db *gorm.DB, orderID uint) {
	var order model.Order
	if err := db.Preload("Slots.Resource").First(&order, orderID).Error; err != nil {
		log.Printf("payment: load order %d for confirmation email: %v", orderID, err)
		return
	}
	utils.SendBookingConfirmationEmail(order.Email, utils.BookingEmailData{
		OrderCode:     order.PublicCode,
		CustomerName:  order.CustomerName,
		Slots:         describeSlots(order.Slots),
		TotalAmount:   utils.FormatAmount(order.TotalAmount),
		Currency:      order.Currency,
		PaymentMethod: order.PaymentMethod,
	})
}

func notifyUnavailable(db *gorm.DB, orderID uint) {
	var order model.Order
	if err := db.First(&order, orderID).Error; err != nil {
		log.Printf("payment: load order %d for refund email: %v", orderID, err)
		return
	}
	var slots []model.ReservedSlot
	db.Unscoped().Preload("Resource").Where("order_id = ?", orderID).Find(&slots)
	utils.SendBookingRefundedEmail(order.Email, utils.BookingEmailData{
		OrderCode:    order.PublicCode,
		CustomerName: order.CustomerName,
		Slots:        describeSlots(slots),
		RefundAmount: utils.FormatAmount(order.TotalAmount),
		Currency:     order.Currency,
		Reason:       "the reserved time was taken before your payment arrived",
	})
}

func describeSlots(slots []model.ReservedSlot) string {
	parts := make([]string, 0, len(slots))
	for _, s := range slots {
		parts = append(parts, fmt.Sprintf("%s %s-%s",
			s.Resource.Name, s.StartTime.Format("02.01.2006 15:04"), s.EndTime.Format("15:04")))
	}
	return strings.Join(parts, ", ")
}

func broadcastOrderSlots(db *gorm.DB, orderID uint) {
	var slots []model.ReservedSlot
	if err := db.Preload("Resource").Where("order_id = ?", orderID).Find(&slots).Error; err != nil {
		return
	}
	for _, s := range slots {
		BroadcastAvailability(s.Resource, s.StartTime.Format("2006-01-02"))
	}
}
