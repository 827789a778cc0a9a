package model

import "time"

const (
	OrderHold           = "HOLD"
	OrderPendingPayment = "PENDING_PAYMENT"
	OrderPendingOnsite  = "PENDING_ONSITE"
	OrderPaid           = "PAID"
	OrderExpired        = "EXPIRED"
	OrderCancelled      = "CANCELLED"
)

const (
	PayOnline     = "ONLINE"
	PayOnsiteCash = "ON_SITE_CASH"
	PayOnsiteCard = "ON_SITE_CARD"
)

type Order struct {
	DTO
	PublicCode       string     `gorm:"size:20;uniqueIndex" json:"orderCode"` // YYYY-MM-NNN
	Status           string     `gorm:"size:20;not null" json:"status"`
	PaymentMethod    string     `gorm:"size:20;not null" json:"paymentMethod"`
	TotalAmount      int64      `json:"totalAmount"` // grosze
	Currency         string     `gorm:"size:3" json:"currency"`
	HoldExpiresAt    *time.Time `json:"holdExpiresAt,omitempty"`
	PaidAt           *time.Time `json:"paidAt,omitempty"`
	CancelledAt      *time.Time `json:"cancelledAt,omitempty"`
	GatewaySessionID string     `gorm:"size:64;index" json:"-"`
	GatewayOrderID   string     `gorm:"size:64" json:"-"`
	CustomerName     string     `json:"customerName"`
	Phone            string     `json:"phone"`
	Email            string     `json:"email"`

	Items []OrderItem    `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Slots []ReservedSlot `gorm:"foreignKey:OrderID" json:"slots,omitempty"`
}

// OrderItem is immutable once created together with its order.
type OrderItem struct {
	DTO
	OrderID       uint        `gorm:"not null;index" json:"orderId"`
	ResourceID    uint        `gorm:"not null" json:"resourceId"`
	PricingMode   PricingMode `gorm:"size:20" json:"pricingMode"`
	DurationHours int         `json:"durationHours"`
	PeopleCount   int         `json:"peopleCount"`
	Quantity      int         `json:"quantity"`
	UnitAmount    int64       `json:"unitAmount"`
	TotalAmount   int64       `json:"totalAmount"`

	Resource Resource `gorm:"foreignKey:ResourceID" json:"-"`
}

type BookingItemInput struct {
	ResourceID    uint   `json:"resourceId" validate:"required,gt=0"`
	Date          string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime     string `json:"startTime" validate:"required,datetime=15:04"`
	DurationHours int    `json:"durationHours" validate:"required,gt=0,lte=12"`
	PeopleCount   int    `json:"peopleCount" validate:"omitempty,gt=0"`
}

type CreateBookingInput struct {
	Items            []BookingItemInput `json:"items" validate:"required,min=1,dive"`
	CustomerName     string             `json:"customerName" validate:"required,min=2,max=100"`
	Phone            string             `json:"phone" validate:"required,min=6,max=20"`
	Email            string             `json:"email" validate:"required,email"`
	PaymentMethod    string             `json:"paymentMethod" validate:"omitempty,oneof=ONLINE ON_SITE_CASH ON_SITE_CARD"`
	MarketingConsent bool               `json:"marketingConsent"`
}

type ReservedSlotSummary struct {
	ResourceID   uint      `json:"resourceId"`
	ResourceName string    `json:"resourceName"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
}

type HoldResult struct {
	OrderCode             string                `json:"orderCode"`
	Status                string                `json:"status"`
	HoldExpiresAt         time.Time             `json:"holdExpiresAt"`
	TotalAmount           int64                 `json:"totalAmount"`
	Currency              string                `json:"currency"`
	ReservedSlots         []ReservedSlotSummary `json:"reservedSlots"`
	RequiresOnlinePayment bool                  `json:"requiresOnlinePayment"`
}
