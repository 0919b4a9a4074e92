package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eaarma/tour-site-sub000/internal/domain"
	"github.com/eaarma/tour-site-sub000/internal/repository"
)

type fixture struct {
	db        *gorm.DB
	orders    *repository.OrderRepo
	schedules *repository.ScheduleRepo
	rec       *Reconciler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.AutoMigrate(db))

	schedules := repository.NewScheduleRepo(db)
	orders := repository.NewOrderRepo(db, schedules)
	return &fixture{
		db:        db,
		orders:    orders,
		schedules: schedules,
		rec:       NewReconciler(orders, schedules, nil, time.Minute),
	}
}

func (f *fixture) seedReservation(t *testing.T, expiresAt time.Time) (*domain.Order, *domain.Schedule) {
	t.Helper()
	sched := &domain.Schedule{
		ID:              uuid.NewString(),
		TourID:          uuid.NewString(),
		Date:            time.Now().UTC().AddDate(0, 0, 7).Truncate(24 * time.Hour),
		Time:            "10:00",
		MaxParticipants: 10,
		Status:          domain.ScheduleActive,
	}
	require.NoError(t, f.db.Create(sched).Error)

	o := &domain.Order{
		Status:           domain.OrderReserved,
		ReservationToken: uuid.NewString(),
		ContactName:      "Mari Tamm",
		ContactEmail:     "mari@example.com",
		TotalPrice:       decimal.NewFromInt(80),
		ExpiresAt:        &expiresAt,
		Items: []domain.OrderItem{{
			ScheduleID:   sched.ID,
			Participants: 4,
			PricePaid:    decimal.NewFromInt(80),
			Status:       domain.OrderReserved,
		}},
	}
	p := &domain.Payment{AmountTotal: decimal.NewFromInt(80), Currency: "eur", Status: domain.PaymentPending}
	require.NoError(t, f.orders.CreateReservation(context.Background(), o, p))
	return o, sched
}

func TestSweepExpiresOverdueReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	overdue, sched := f.seedReservation(t, time.Now().UTC().Add(-time.Minute))
	fresh, _ := f.seedReservation(t, time.Now().UTC().Add(10*time.Minute))

	f.rec.Sweep(ctx)

	got, err := f.orders.ByID(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderExpired, got.Status)
	assert.Equal(t, domain.PaymentFailed, got.Payment.Status)

	s, err := f.schedules.ByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, s.ReservedParticipants)

	got, err = f.orders.ByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderReserved, got.Status)
}

func TestSweepIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	o, sched := f.seedReservation(t, time.Now().UTC().Add(-time.Minute))

	f.rec.Sweep(ctx)
	f.rec.Sweep(ctx)

	got, err := f.orders.ByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderExpired, got.Status)

	s, err := f.schedules.ByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, s.ReservedParticipants)
	assert.Equal(t, 10, s.Available())
}

func TestSweepRetiresPastSchedules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := &domain.Schedule{
		ID:              uuid.NewString(),
		TourID:          uuid.NewString(),
		Date:            time.Now().UTC().AddDate(0, 0, -2).Truncate(24 * time.Hour),
		Time:            "09:00",
		MaxParticipants: 6,
		Status:          domain.ScheduleActive,
	}
	require.NoError(t, f.db.Create(past).Error)

	f.rec.Sweep(ctx)

	s, err := f.schedules.ByID(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleExpired, s.Status)
}
