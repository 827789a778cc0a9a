package model

import "time"

const (
	TxnPending   = "PENDING"
	TxnSuccess   = "SUCCESS"
	TxnFailed    = "FAILED"
	TxnAbandoned = "ABANDONED"
	TxnTimedOut  = "TIMED_OUT"
	TxnRefunded  = "REFUNDED"
)

type StatusChange struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason,omitempty"`
}

// PaymentTransaction is one logical gateway checkout session. History is
// append-only; Status always mirrors the last history entry.
type PaymentTransaction struct {
	DTO
	OrderID   uint           `gorm:"not null;index" json:"orderId"`
	SessionID string         `gorm:"size:64;index" json:"sessionId"`
	Amount    int64          `json:"amount"`
	Currency  string         `gorm:"size:3" json:"currency"`
	Status    string         `gorm:"size:20;not null" json:"status"`
	History   []StatusChange `gorm:"serializer:json" json:"history"`
}

// Append records a status change and keeps Status in sync with the history.
func (t *PaymentTransaction) Append(status, reason string, at time.Time) {
	t.History = append(t.History, StatusChange{Status: status, At: at, Reason: reason})
	t.Status = status
}

type GatewayConfig struct {
	MerchantID int
	PosID      int
	CRC        string
	APIKey     string
	BaseURL    string
	ReturnURL  string
	StatusURL  string
}

// WebhookInput is the gateway's server-to-server notification payload.
type WebhookInput struct {
	MerchantID int    `json:"merchantId" validate:"required"`
	PosID      int    `json:"posId" validate:"required"`
	SessionID  string `json:"sessionId" validate:"required"`
	OrderID    int64  `json:"orderId" validate:"required"`
	Amount     int64  `json:"amount" validate:"required,gt=0"`
	Currency   string `json:"currency" validate:"required,len=3"`
	MethodID   int    `json:"methodId"`
	Statement  string `json:"statement"`
	Sign       string `json:"sign" validate:"required"`
}

type RegisterRequest struct {
	MerchantID  int    `json:"merchantId"`
	PosID       int    `json:"posId"`
	SessionID   string `json:"sessionId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Language    string `json:"language"`
	URLReturn   string `json:"urlReturn"`
	URLStatus   string `json:"urlStatus"`
	Sign        string `json:"sign"`
}

type CheckoutResult struct {
	OrderCode   string `json:"orderCode"`
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

type PaymentStatusResult struct {
	OrderCode string     `json:"orderCode"`
	Status    string     `json:"status"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
}
