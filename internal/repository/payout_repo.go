package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eaarma/tour-site-sub000/internal/domain"
)

// PayoutRepo maintains the revenue-share side: payment lines derived from
// succeeded payments and the payouts that batch them per shop.
type PayoutRepo struct{ db *gorm.DB }

func NewPayoutRepo(db *gorm.DB) *PayoutRepo {
	return &PayoutRepo{db: db}
}

// SucceededWithoutLines lists succeeded payments that have no allocation
// lines yet.
func (r *PayoutRepo) SucceededWithoutLines(ctx context.Context, limit int) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.PaymentSucceeded).
		Where("id NOT IN (?)", r.db.Model(&domain.PaymentLine{}).Select("payment_id")).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *PayoutRepo) ItemsByOrderTx(tx *gorm.DB, orderID string) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := tx.Where("order_id = ?", orderID).Order("schedule_id ASC").Find(&items).Error
	return items, err
}

func (r *PayoutRepo) CreateLinesTx(tx *gorm.DB, lines []domain.PaymentLine) error {
	for i := range lines {
		if lines[i].ID == "" {
			lines[i].ID = uuid.NewString()
		}
	}
	return tx.Create(&lines).Error
}

func (r *PayoutRepo) UnsettledLinesTx(tx *gorm.DB, shopID string) ([]domain.PaymentLine, error) {
	var lines []domain.PaymentLine
	err := forUpdate(tx).
		Where("shop_id = ? AND payout_id IS NULL", shopID).
		Find(&lines).Error
	return lines, err
}

func (r *PayoutRepo) CreatePayoutTx(tx *gorm.DB, payout *domain.Payout, lineIDs []string) error {
	if payout.ID == "" {
		payout.ID = uuid.NewString()
	}
	if err := tx.Create(payout).Error; err != nil {
		return err
	}
	return tx.Model(&domain.PaymentLine{}).
		Where("id IN ?", lineIDs).
		Update("payout_id", payout.ID).Error
}

func (r *PayoutRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
