package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/eaarma/tour-site-sub000/internal/domain"
)

type PaymentRepo struct{ db *gorm.DB }

func NewPaymentRepo(db *gorm.DB) *PaymentRepo {
	return &PaymentRepo{db: db}
}

func (r *PaymentRepo) ByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).First(&p, "order_id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepo) ByIDTx(tx *gorm.DB, id string) (*domain.Payment, error) {
	var p domain.Payment
	if err := tx.First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// SetProviderRef records the provider-side intent id and marks the payment
// PENDING. The write is guarded by the version column because the webhook
// path may settle the payment while the intent response is in flight; a
// stale version loses and the caller reloads.
func (r *PaymentRepo) SetProviderRef(ctx context.Context, p *domain.Payment, providerID string) error {
	res := r.db.WithContext(ctx).Model(&domain.Payment{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]any{
			"provider_payment_id": providerID,
			"status":              domain.PaymentPending,
			"version":             p.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrVersionConflict
	}
	p.ProviderPaymentID = providerID
	p.Status = domain.PaymentPending
	p.Version++
	return nil
}

// ProcessedTx reports whether the provider event id is already in the
// idempotency ledger. This is only the fast path; the ledger's real race
// control is the primary-key conflict on insert.
func (r *PaymentRepo) ProcessedTx(tx *gorm.DB, providerEventID string) (bool, error) {
	var n int64
	err := tx.Model(&domain.ProcessedEvent{}).
		Where("provider_event_id = ?", providerEventID).
		Count(&n).Error
	return n > 0, err
}

// RecordEventTx inserts the ledger row. A gorm.ErrDuplicatedKey from here
// means a concurrent delivery already applied the event.
func (r *PaymentRepo) RecordEventTx(tx *gorm.DB, ev *domain.ProcessedEvent) error {
	if ev.ProcessedAt.IsZero() {
		ev.ProcessedAt = time.Now().UTC()
	}
	return tx.Create(ev).Error
}
