package handler

import (
	"booking_manager/database"
	"booking_manager/helper"
	"booking_manager/model"
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	sweepCron       *cron.Cron
	dailyScheduler  gocron.Scheduler
	sweepInstanceID = uuid.New().String()
)

const sweepLockKey = "booking:sweep:lock"

// StartSweeper reclaims expired holds once per minute. SkipIfStillRunning
// keeps a slow sweep from stacking up behind itself.
func StartSweeper() {
	sweepCron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
	))

	_, err := sweepCron.AddFunc("* * * * *", RunSweep)
	if err != nil {
		log.Printf("sweeper: cannot schedule: %v", err)
		return
	}

	sweepCron.Start()
	log.Println("Expiry sweeper started (every minute)")
}

func StopSweeper() {
	if sweepCron != nil {
		sweepCron.Stop()
		log.Println("Expiry sweeper stopped")
	}
}

// StartDailyJobs schedules the nightly transaction-log cleanup.
func StartDailyJobs() {
	s, err := gocron.NewScheduler()
	if err != nil {
		log.Fatal(err)
	}
	dailyScheduler = s

	_, err = s.NewJob(
		gocron.DailyJob(
			1,
			gocron.NewAtTimes(
				gocron.NewAtTime(2, 30, 0),
			),
		),
		gocron.NewTask(AbandonStaleTransactions),
	)
	if err != nil {
		log.Fatal(err)
	}

	s.Start()
	log.Println("Daily jobs scheduled (02:30)")
}

func StopDailyJobs() {
	if dailyScheduler != nil {
		_ = dailyScheduler.Shutdown()
	}
}

// acquireSweepLock takes the cross-instance advisory lock. When redis is
// unreachable we sweep anyway: the duties are transactional per order and
// the deployment default is a single instance.
func acquireSweepLock() bool {
	if database.Redis == nil {
		return true
	}
	ctx := context.Background()
	ok, err := database.Redis.SetNX(ctx, sweepLockKey, sweepInstanceID, 50*time.Second).Result()
	if err != nil {
		log.Printf("sweeper: advisory lock unavailable: %v", err)
		return true
	}
	return ok
}

func releaseSweepLock() {
	if database.Redis == nil {
		return
	}
	ctx := context.Background()
	val, err := database.Redis.Get(ctx, sweepLockKey).Result()
	if err == nil && val == sweepInstanceID {
		database.Redis.Del(ctx, sweepLockKey)
	}
}

// RunSweep executes the three reclamation duties. Each order is handled in
// its own transaction so one failure never blocks the rest; errors are
// logged and naturally retried on the next run.
func RunSweep() {
	if !acquireSweepLock() {
		return
	}
	defer releaseSweepLock()

	now := time.Now()
	ReclaimExpiredHolds(now)
	ReclaimStalePendingPayments(now)
	EnforceOnsiteGrace(now)
}

// ReclaimExpiredHolds removes HOLD slots whose expiry has passed and expires
// orders left with no slots. Only plain HOLD orders are reclaimed here:
// PENDING_ONSITE reservations belong to the grace duty and PENDING_PAYMENT
// orders to the payment-timeout duty, which also closes their transaction log.
func ReclaimExpiredHolds(now time.Time) {
	db := database.DB

	var orderIDs []uint
	if err := db.Model(&model.ReservedSlot{}).
		Where("status = ? AND expires_at < ?", model.SlotHold, now).
		Distinct().
		Pluck("order_id", &orderIDs).Error; err != nil {
		log.Printf("sweeper: query expired holds: %v", err)
		return
	}

	for _, orderID := range orderIDs {
		var touched []model.ReservedSlot
		err := db.Transaction(func(tx *gorm.DB) error {
			var order model.Order
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, orderID).Error; err != nil {
				return err
			}
			if order.Status == model.OrderPendingOnsite ||
				order.Status == model.OrderPendingPayment ||
				order.Status == model.OrderPaid {
				return nil
			}

			if err := tx.Preload("Resource").
				Where("order_id = ? AND status = ? AND expires_at < ?", orderID, model.SlotHold, now).
				Find(&touched).Error; err != nil {
				return err
			}
			if len(touched) == 0 {
				return nil
			}

			if err := tx.Where("order_id = ? AND status = ? AND expires_at < ?", orderID, model.SlotHold, now).
				Delete(&model.ReservedSlot{}).Error; err != nil {
				return err
			}

			var remaining int64
			if err := tx.Model(&model.ReservedSlot{}).Where("order_id = ?", orderID).Count(&remaining).Error; err != nil {
				return err
			}
			if remaining == 0 {
				return tx.Model(&order).Update("status", model.OrderExpired).Error
			}
			return nil
		})
		if err != nil {
			log.Printf("sweeper: reclaim holds for order %d: %v", orderID, err)
			continue
		}
		for _, s := range touched {
			BroadcastAvailability(s.Resource, s.StartTime.Format("2006-01-02"))
		}
	}
}

// ReclaimStalePendingPayments expires PENDING_PAYMENT orders whose hold
// deadline passed without a gateway confirmation and times out their open
// transactions.
func ReclaimStalePendingPayments(now time.Time) {
	db := database.DB

	var orders []model.Order
	if err := db.Where("status = ? AND hold_expires_at < ?", model.OrderPendingPayment, now).
		Find(&orders).Error; err != nil {
		log.Printf("sweeper: query stale pending payments: %v", err)
		return
	}

	for _, stale := range orders {
		var touched []model.ReservedSlot
		err := db.Transaction(func(tx *gorm.DB) error {
			var order model.Order
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, stale.ID).Error; err != nil {
				return err
			}
			// A webhook may have landed between the query and the lock.
			if order.Status != model.OrderPendingPayment ||
				order.HoldExpiresAt == nil || now.Before(*order.HoldExpiresAt) {
				return nil
			}

			if err := tx.Preload("Resource").
				Where("order_id = ? AND status = ?", order.ID, model.SlotHold).
				Find(&touched).Error; err != nil {
				return err
			}
			if err := tx.Where("order_id = ? AND status = ?", order.ID, model.SlotHold).
				Delete(&model.ReservedSlot{}).Error; err != nil {
				return err
			}

			var remaining int64
			if err := tx.Model(&model.ReservedSlot{}).Where("order_id = ?", order.ID).Count(&remaining).Error; err != nil {
				return err
			}
			if remaining == 0 {
				if err := tx.Model(&order).Update("status", model.OrderExpired).Error; err != nil {
					return err
				}
			}

			var txns []model.PaymentTransaction
			if err := tx.Where("order_id = ? AND status = ?", order.ID, model.TxnPending).
				Find(&txns).Error; err != nil {
				return err
			}
			for i := range txns {
				txns[i].Append(model.TxnTimedOut, "hold expired before payment confirmation", now)
				if err := tx.Save(&txns[i]).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			log.Printf("sweeper: reclaim pending payment order %d: %v", stale.ID, err)
			continue
		}
		for _, s := range touched {
			BroadcastAvailability(s.Resource, s.StartTime.Format("2006-01-02"))
		}
	}
}

// EnforceOnsiteGrace cancels PENDING_ONSITE reservations that were never
// claimed: before start once the hold deadline passes, after start once the
// grace period runs out.
func EnforceOnsiteGrace(now time.Time) {
	db := database.DB

	settings, err := helper.LoadSettings(context.Background())
	if err != nil {
		log.Printf("sweeper: load settings: %v", err)
		return
	}
	grace := time.Duration(settings.OnsiteGraceMinutes) * time.Minute

	var orders []model.Order
	if err := db.Preload("Slots").Where("status = ?", model.OrderPendingOnsite).Find(&orders).Error; err != nil {
		log.Printf("sweeper: query on-site orders: %v", err)
		return
	}

	for _, candidate := range orders {
		if len(candidate.Slots) == 0 {
			continue
		}
		earliest := helper.EarliestSlotStart(candidate.Slots)

		var overdue bool
		if earliest.After(now) {
			overdue = candidate.HoldExpiresAt != nil && now.After(*candidate.HoldExpiresAt)
		} else {
			overdue = now.Sub(earliest) > grace
		}
		if !overdue {
			continue
		}

		var touched []model.ReservedSlot
		err := db.Transaction(func(tx *gorm.DB) error {
			var order model.Order
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, candidate.ID).Error; err != nil {
				return err
			}
			if order.Status != model.OrderPendingOnsite {
				return nil
			}
			if err := tx.Preload("Resource").Where("order_id = ?", order.ID).Find(&touched).Error; err != nil {
				return err
			}
			if err := tx.Where("order_id = ?", order.ID).Delete(&model.ReservedSlot{}).Error; err != nil {
				return err
			}
			return tx.Model(&order).Update("status", model.OrderExpired).Error
		})
		if err != nil {
			log.Printf("sweeper: enforce grace for order %d: %v", candidate.ID, err)
			continue
		}
		for _, s := range touched {
			BroadcastAvailability(s.Resource, s.StartTime.Format("2006-01-02"))
		}
	}
}

// AbandonStaleTransactions marks PENDING transactions untouched for a day as
// ABANDONED. Runs nightly.
func AbandonStaleTransactions() {
	db := database.DB
	now := time.Now()
	cutoff := now.Add(-24 * time.Hour)

	var txns []model.PaymentTransaction
	if err := db.Where("status = ? AND updated_at < ?", model.TxnPending, cutoff).Find(&txns).Error; err != nil {
		log.Printf("sweeper: query stale transactions: %v", err)
		return
	}

	for i := range txns {
		txns[i].Append(model.TxnAbandoned, "no gateway confirmation within 24h", now)
		if err := db.Save(&txns[i]).Error; err != nil {
			log.Printf("sweeper: abandon transaction %d: %v", txns[i].ID, err)
		}
	}
	if len(txns) > 0 {
		log.Printf("sweeper: abandoned %d stale transactions", len(txns))
	}
}
