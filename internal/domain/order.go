package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderReserved  OrderStatus = "RESERVED"
	OrderPaid      OrderStatus = "PAID"
	OrderExpired   OrderStatus = "EXPIRED"
	OrderCancelled OrderStatus = "CANCELLED"
	OrderFailed    OrderStatus = "FAILED"
	OrderRefunded  OrderStatus = "REFUNDED"
)

// Terminal reports whether no further lifecycle transition is allowed from s,
// refund excepted (PAID -> REFUNDED).
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderPaid, OrderExpired, OrderCancelled, OrderFailed, OrderRefunded:
		return true
	}
	return false
}

// Order is the aggregate root for one checkout. UserID is nil for guest
// checkout; the reservation token is the guest's handle on the order.
type Order struct {
	ID               string          `gorm:"primaryKey" json:"id"`
	UserID           *string         `gorm:"index" json:"user_id,omitempty"`
	Status           OrderStatus     `gorm:"index" json:"status"`
	ReservationToken string          `gorm:"uniqueIndex" json:"reservation_token"`
	ContactName      string          `json:"contact_name"`
	ContactEmail     string          `json:"contact_email"`
	ContactPhone     string          `json:"contact_phone"`
	Nationality      string          `json:"nationality"`
	PaymentMethod    string          `json:"payment_method"`
	TotalPrice       decimal.Decimal `gorm:"type:numeric" json:"total_price"`
	ExpiresAt        *time.Time      `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	Items   []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	Payment *Payment    `gorm:"foreignKey:OrderID" json:"payment,omitempty"`
}

// OrderItem books one schedule for a number of participants. ShopID and
// TourTitle are denormalized, and Snapshot freezes the whole tour, so that
// later catalog edits never change how a historical order reads.
type OrderItem struct {
	ID           string          `gorm:"primaryKey" json:"id"`
	OrderID      string          `gorm:"index" json:"order_id"`
	ScheduleID   string          `gorm:"index" json:"schedule_id"`
	TourID       string          `gorm:"index" json:"tour_id"`
	ShopID       string          `gorm:"index" json:"shop_id"`
	TourTitle    string          `json:"tour_title"`
	Participants int             `json:"participants"`
	PricePaid    decimal.Decimal `gorm:"type:numeric" json:"price_paid"`
	Status       OrderStatus     `gorm:"index" json:"status"`
	ManagerID    *string         `gorm:"index" json:"manager_id,omitempty"`
	Snapshot     TourSnapshot    `gorm:"type:jsonb" json:"snapshot"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TourSnapshot is the point-in-time state of a tour at booking, serialized
// as versioned JSON at the persistence boundary.
type TourSnapshot struct {
	Version    int             `json:"version"`
	TourID     string          `json:"tour_id"`
	ShopID     string          `json:"shop_id"`
	Title      string          `json:"title"`
	Price      decimal.Decimal `json:"price"`
	CapturedAt time.Time       `json:"captured_at"`
}

const TourSnapshotVersion = 1

func (t TourSnapshot) Value() (driver.Value, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *TourSnapshot) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	default:
		return fmt.Errorf("tour snapshot: unsupported scan type %T", src)
	}
}
