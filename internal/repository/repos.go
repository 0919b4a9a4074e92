package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eaarma/tour-site-sub000/internal/domain"
)

// AutoMigrate creates every table the engine persists.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Tour{},
		&domain.ShopMember{},
		&domain.Schedule{},
		&domain.Order{},
		&domain.OrderItem{},
		&domain.Payment{},
		&domain.ProcessedEvent{},
		&domain.PaymentLine{},
		&domain.Payout{},
	)
}

// forUpdate takes a row-level exclusive lock where the dialect has one.
// SQLite (tests) rejects FOR UPDATE; its single-writer model serializes
// transactions instead.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
