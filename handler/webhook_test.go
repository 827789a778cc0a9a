package handler

import (
	"booking_manager/model"
	"booking_manager/validate"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
)

func webhookTestSetup(t *testing.T) (*fiber.App, sqlmock.Sqlmock, *[]string) {
	t.Helper()

	var gatewayCalls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gatewayCalls = append(gatewayCalls, r.URL.Path)
		w.Write([]byte(`{"data":{"status":"success"}}`))
	}))
	t.Cleanup(srv.Close)

	t.Setenv("P24_MERCHANT_ID", "12345")
	t.Setenv("P24_POS_ID", "12345")
	t.Setenv("P24_CRC", "crc-secret")
	t.Setenv("P24_API_KEY", "api-key")
	t.Setenv("P24_URL", srv.URL)
	t.Setenv("APP_URL", "http://localhost:8002")

	mock := useMockDB(t)

	app := fiber.New()
	app.Post("/webhook", validate.PaymentWebhook(), PaymentWebhook)
	return app, mock, &gatewayCalls
}

func webhookRequest(t *testing.T, input model.WebhookInput) *http.Request {
	t.Helper()
	body, err := json.Marshal(input)
	if err != nil {
		t.Fatalf("marshal webhook input: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func signedInput(sessionID string, orderID, amount int64) model.WebhookInput {
	g := testGateway("")
	return model.WebhookInput{
		MerchantID: 12345,
		PosID:      12345,
		SessionID:  sessionID,
		OrderID:    orderID,
		Amount:     amount,
		Currency:   "PLN",
		Sign:       g.NotificationSign(sessionID, orderID, amount, "PLN"),
	}
}

func TestPaymentWebhookAlreadyPaidIsIdempotent(t *testing.T) {
	// Redelivery for a paid order must only add audit entries: no state
	// transition, no refund, no slot changes.
	app, mock, gatewayCalls := webhookTestSetup(t)

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE gateway_session_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "public_code", "status", "total_amount", "currency", "gateway_session_id"}).
			AddRow(7, "2026-03-001", model.OrderPaid, 28000, "PLN", "sess-1"))
	mock.ExpectQuery(`SELECT \* FROM "payment_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "session_id", "amount", "currency", "status", "history"}).
			AddRow(21, 7, "sess-1", 28000, "PLN", model.TxnSuccess, "[]"))
	// Verify response recorded in the log.
	mock.ExpectExec(`UPDATE "payment_transactions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Fast path: one more audit entry, no transaction block.
	mock.ExpectQuery(`SELECT \* FROM "payment_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "session_id", "amount", "currency", "status", "history"}).
			AddRow(21, 7, "sess-1", 28000, "PLN", model.TxnSuccess, "[]"))
	mock.ExpectExec(`UPDATE "payment_transactions"`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), model.TxnSuccess, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := app.Test(webhookRequest(t, signedInput("sess-1", 777, 28000)), -1)
	if err != nil {
		t.Fatalf("webhook request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("paid order must not be mutated again: %v", err)
	}
	if len(*gatewayCalls) != 1 || (*gatewayCalls)[0] != "/api/v1/transaction/verify" {
		t.Fatalf("expected only a verify call, got %v", *gatewayCalls)
	}
}

func TestPaymentWebhookRefundedOrderNotRefundedTwice(t *testing.T) {
	// A REFUNDED transaction short-circuits the delivery under the order
	// lock before any second refund call can reach the gateway.
	app, mock, gatewayCalls := webhookTestSetup(t)

	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE gateway_session_id`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "public_code", "status", "total_amount", "currency", "gateway_session_id"}).
			AddRow(7, "2026-03-001", model.OrderPendingPayment, 28000, "PLN", "sess-1"))
	mock.ExpectQuery(`SELECT \* FROM "payment_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "session_id", "amount", "currency", "status", "history"}).
			AddRow(21, 7, "sess-1", 28000, "PLN", model.TxnRefunded, "[]"))
	mock.ExpectExec(`UPDATE "payment_transactions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "orders" WHERE "orders"\."id" = \$1.*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "public_code", "status", "total_amount", "currency", "gateway_session_id"}).
			AddRow(7, "2026-03-001", model.OrderPendingPayment, 28000, "PLN", "sess-1"))
	mock.ExpectQuery(`SELECT \* FROM "payment_transactions".*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "session_id", "amount", "currency", "status", "history"}).
			AddRow(21, 7, "sess-1", 28000, "PLN", model.TxnRefunded, "[]"))
	mock.ExpectCommit()

	mock.ExpectQuery(`SELECT \* FROM "payment_transactions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "session_id", "amount", "currency", "status", "history"}).
			AddRow(21, 7, "sess-1", 28000, "PLN", model.TxnRefunded, "[]"))
	mock.ExpectExec(`UPDATE "payment_transactions"`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), model.TxnRefunded, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := app.Test(webhookRequest(t, signedInput("sess-1", 777, 28000)), -1)
	if err != nil {
		t.Fatalf("webhook request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("refunded order must not be touched again: %v", err)
	}
	if len(*gatewayCalls) != 1 || (*gatewayCalls)[0] != "/api/v1/transaction/verify" {
		t.Fatalf("expected only a verify call, no second refund: %v", *gatewayCalls)
	}
}

func TestPaymentWebhookRejectsBadSignature(t *testing.T) {
	app, mock, gatewayCalls := webhookTestSetup(t)

	input := signedInput("sess-1", 777, 28000)
	input.Sign = "deadbeef"

	resp, err := app.Test(webhookRequest(t, input), -1)
	if err != nil {
		t.Fatalf("webhook request: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for a tampered sign, got %d", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("tampered delivery must never reach storage: %v", err)
	}
	if len(*gatewayCalls) != 0 {
		t.Fatalf("tampered delivery must never reach the gateway: %v", *gatewayCalls)
	}
}
