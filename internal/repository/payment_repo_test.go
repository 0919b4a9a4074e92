package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eaarma/tour-site-sub000/internal/domain"
)

func TestSetProviderRefVersionConflict(t *testing.T) {
	f := newOrderFixture(t)
	o := f.reserve(t, 2)
	payments := NewPaymentRepo(f.db)
	ctx := context.Background()

	p, err := payments.ByOrder(ctx, o.ID)
	require.NoError(t, err)

	stale := *p
	require.NoError(t, payments.SetProviderRef(ctx, p, "pi_123"))
	assert.Equal(t, "pi_123", p.ProviderPaymentID)

	// a second writer still holding the old version must lose
	err = payments.SetProviderRef(ctx, &stale, "pi_456")
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	reloaded, err := payments.ByOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", reloaded.ProviderPaymentID)
}

func TestEventLedgerDuplicate(t *testing.T) {
	f := newOrderFixture(t)
	payments := NewPaymentRepo(f.db)

	err := f.db.Transaction(func(tx *gorm.DB) error {
		done, err := payments.ProcessedTx(tx, "evt_1")
		require.NoError(t, err)
		assert.False(t, done)
		return payments.RecordEventTx(tx, &domain.ProcessedEvent{
			ProviderEventID: "evt_1",
			EventType:       "payment_intent.succeeded",
			PaymentID:       "pay_1",
		})
	})
	require.NoError(t, err)

	err = f.db.Transaction(func(tx *gorm.DB) error {
		done, err := payments.ProcessedTx(tx, "evt_1")
		require.NoError(t, err)
		assert.True(t, done)
		return payments.RecordEventTx(tx, &domain.ProcessedEvent{
			ProviderEventID: "evt_1",
			EventType:       "payment_intent.succeeded",
			PaymentID:       "pay_1",
		})
	})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
