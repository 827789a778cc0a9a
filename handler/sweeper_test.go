package handler

import (
	"booking_manager/database"
	"booking_manager/model"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func useMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })
	return mock
}

func TestReclaimExpiredHoldsLeavesPendingPaymentToTimeoutDuty(t *testing.T) {
	// An order whose payment session is open keeps its expired slots until
	// the payment-timeout duty handles it, so the transaction log is closed
	// together with the order.
	mock := useMockDB(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT DISTINCT "order_id" FROM "reserved_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(7))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE "orders"\."id" = \$1.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).
			AddRow(7, model.OrderPendingPayment))
	mock.ExpectCommit()

	ReclaimExpiredHolds(now)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("pending-payment order must be left untouched: %v", err)
	}
}

func TestReclaimExpiredHoldsExpiresPlainHold(t *testing.T) {
	mock := useMockDB(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)

	mock.ExpectQuery(`SELECT DISTINCT "order_id" FROM "reserved_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"order_id"}).AddRow(7))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE "orders"\."id" = \$1.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).
			AddRow(7, model.OrderHold))
	mock.ExpectQuery(`SELECT \* FROM "reserved_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "resource_id", "start_time", "end_time", "status"}).
			AddRow(11, 7, 3, start, start.Add(2*time.Hour), model.SlotHold))
	mock.ExpectQuery(`SELECT \* FROM "resources"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug"}).
			AddRow(3, "Lane 3", "lane-3"))
	mock.ExpectExec(`UPDATE "reserved_slots" SET "deleted_at"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "reserved_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`UPDATE "orders" SET "status"`).
		WithArgs(model.OrderExpired, sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ReclaimExpiredHolds(now)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestReclaimStalePendingPaymentsTimesOutTransactions(t *testing.T) {
	mock := useMockDB(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	expired := now.Add(-10 * time.Minute)
	start := now.Add(6 * time.Hour)

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE status = \$1 AND hold_expires_at < \$2`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "hold_expires_at", "public_code"}).
			AddRow(7, model.OrderPendingPayment, expired, "2026-03-001"))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE "orders"\."id" = \$1.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status", "hold_expires_at", "public_code"}).
			AddRow(7, model.OrderPendingPayment, expired, "2026-03-001"))
	mock.ExpectQuery(`SELECT \* FROM "reserved_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "resource_id", "start_time", "end_time", "status"}).
			AddRow(11, 7, 3, start, start.Add(2*time.Hour), model.SlotHold))
	mock.ExpectQuery(`SELECT \* FROM "resources"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug"}).
			AddRow(3, "Lane 3", "lane-3"))
	mock.ExpectExec(`UPDATE "reserved_slots" SET "deleted_at"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "reserved_slots"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(`UPDATE "orders" SET "status"`).
		WithArgs(model.OrderExpired, sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "payment_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "session_id", "amount", "currency", "status", "history"}).
			AddRow(21, 7, "sess-1", 28000, "PLN", model.TxnPending, "[]"))
	mock.ExpectExec(`UPDATE "payment_transactions"`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), model.TxnTimedOut, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ReclaimStalePendingPayments(now)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("pending transaction must be timed out with the order: %v", err)
	}
}
