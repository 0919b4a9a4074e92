package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eaarma/tour-site-sub000/internal/domain"
	"github.com/eaarma/tour-site-sub000/internal/repository"
)

type PayoutSvc struct {
	payouts *repository.PayoutRepo
}

func NewPayoutSvc(payouts *repository.PayoutRepo) *PayoutSvc {
	return &PayoutSvc{payouts: payouts}
}

// CollectLines materializes per-shop payment lines for succeeded payments
// that have none yet. Each payment's shop share is split across its items
// in proportion to what the customer paid per item; the last line absorbs
// any rounding remainder so the lines always sum to the shop amount.
func (s *PayoutSvc) CollectLines(ctx context.Context, limit int) (int, error) {
	payments, err := s.payouts.SucceededWithoutLines(ctx, limit)
	if err != nil {
		return 0, err
	}
	created := 0
	for i := range payments {
		p := payments[i]
		err := s.payouts.Transaction(ctx, func(tx *gorm.DB) error {
			items, err := s.payouts.ItemsByOrderTx(tx, p.OrderID)
			if err != nil {
				return err
			}
			lines := splitShopAmount(&p, items)
			if len(lines) == 0 {
				return nil
			}
			return s.payouts.CreateLinesTx(tx, lines)
		})
		if err != nil {
			log.Printf("[payout] collect lines for payment %s: %v", p.ID, err)
			continue
		}
		created++
	}
	return created, nil
}

func splitShopAmount(p *domain.Payment, items []domain.OrderItem) []domain.PaymentLine {
	var live []domain.OrderItem
	total := decimal.Zero
	for _, it := range items {
		if it.Status == domain.OrderCancelled || it.Status == domain.OrderRefunded {
			continue
		}
		live = append(live, it)
		total = total.Add(it.PricePaid)
	}
	if len(live) == 0 || !total.IsPositive() {
		return nil
	}
	lines := make([]domain.PaymentLine, 0, len(live))
	remaining := p.ShopAmount
	for i, it := range live {
		var amount decimal.Decimal
		if i == len(live)-1 {
			amount = remaining
		} else {
			amount = p.ShopAmount.Mul(it.PricePaid).Div(total).Round(2)
			remaining = remaining.Sub(amount)
		}
		lines = append(lines, domain.PaymentLine{
			PaymentID:   p.ID,
			OrderItemID: it.ID,
			ShopID:      it.ShopID,
			Amount:      amount,
			Currency:    p.Currency,
		})
	}
	return lines
}

// SettleShop bundles every unsettled line of a shop into one payout.
func (s *PayoutSvc) SettleShop(ctx context.Context, shopID string) (*domain.Payout, error) {
	var payout *domain.Payout
	err := s.payouts.Transaction(ctx, func(tx *gorm.DB) error {
		lines, err := s.payouts.UnsettledLinesTx(tx, shopID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.ErrNothingToSettle
		}
		total := decimal.Zero
		ids := make([]string, 0, len(lines))
		for _, l := range lines {
			total = total.Add(l.Amount)
			ids = append(ids, l.ID)
		}
		payout = &domain.Payout{
			ID:        uuid.NewString(),
			ShopID:    shopID,
			Amount:    total,
			Currency:  lines[0].Currency,
			Status:    domain.PayoutPending,
			CreatedAt: time.Now(),
		}
		return s.payouts.CreatePayoutTx(tx, payout, ids)
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}
