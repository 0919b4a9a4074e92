package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentSucceeded         PaymentStatus = "SUCCEEDED"
	PaymentFailed            PaymentStatus = "FAILED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
)

// Payment is the single settlement record of an order. Version is an
// optimistic-concurrency column: the row can be touched from the
// synchronous intent path and the async webhook path.
type Payment struct {
	ID                string          `gorm:"primaryKey" json:"id"`
	OrderID           string          `gorm:"uniqueIndex" json:"order_id"`
	ProviderPaymentID string          `gorm:"index" json:"provider_payment_id,omitempty"`
	AmountTotal       decimal.Decimal `gorm:"type:numeric" json:"amount_total"`
	PlatformFee       decimal.Decimal `gorm:"type:numeric" json:"platform_fee"`
	ShopAmount        decimal.Decimal `gorm:"type:numeric" json:"shop_amount"`
	Currency          string          `json:"currency"`
	Status            PaymentStatus   `gorm:"index" json:"status"`
	Version           int             `json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ProcessedEvent is one row of the idempotency ledger. The primary key on
// the provider's event id is the concurrency control: a duplicate insert
// means the event's effects were already applied.
type ProcessedEvent struct {
	ProviderEventID string    `gorm:"primaryKey" json:"provider_event_id"`
	EventType       string    `json:"event_type"`
	PaymentID       string    `gorm:"index" json:"payment_id"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// PaymentLine allocates a succeeded payment's shop share to one order item,
// keyed by shop so payouts can be batched per shop.
type PaymentLine struct {
	ID          string          `gorm:"primaryKey" json:"id"`
	PaymentID   string          `gorm:"index" json:"payment_id"`
	OrderItemID string          `gorm:"uniqueIndex" json:"order_item_id"`
	ShopID      string          `gorm:"index" json:"shop_id"`
	Amount      decimal.Decimal `gorm:"type:numeric" json:"amount"`
	Currency    string          `json:"currency"`
	PayoutID    *string         `gorm:"index" json:"payout_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type PayoutStatus string

const (
	PayoutPending PayoutStatus = "PENDING"
	PayoutSettled PayoutStatus = "SETTLED"
)

// Payout batches a shop's unsettled payment lines into one transfer.
type Payout struct {
	ID        string          `gorm:"primaryKey" json:"id"`
	ShopID    string          `gorm:"index" json:"shop_id"`
	Amount    decimal.Decimal `gorm:"type:numeric" json:"amount"`
	Currency  string          `json:"currency"`
	Status    PayoutStatus    `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
