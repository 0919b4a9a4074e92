package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tour is the catalog side of a reservation: price, title and owning shop
// are read here at booking time and frozen into the order item snapshot.
type Tour struct {
	ID        string          `gorm:"primaryKey" json:"id"`
	ShopID    string          `gorm:"index" json:"shop_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `gorm:"type:numeric" json:"price"` // per participant
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ShopMember grants a user manager access to a shop's orders and payouts.
type ShopMember struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ShopID    string    `gorm:"index:idx_shop_member,unique" json:"shop_id"`
	UserID    string    `gorm:"index:idx_shop_member,unique" json:"user_id"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}
