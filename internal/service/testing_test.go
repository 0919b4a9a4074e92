package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v76"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eaarma/tour-site-sub000/internal/domain"
	"github.com/eaarma/tour-site-sub000/internal/repository"
	"github.com/eaarma/tour-site-sub000/internal/stripepay"
)

type env struct {
	db          *gorm.DB
	schedules   *repository.ScheduleRepo
	tours       *repository.TourRepo
	orders      *repository.OrderRepo
	payments    *repository.PaymentRepo
	payouts     *repository.PayoutRepo
	reservation *ReservationSvc
	settlement  *SettlementSvc
	payout      *PayoutSvc
	provider    *fakeProvider
}

func newEnv(t *testing.T) *env {
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

	e := &env{db: db, provider: &fakeProvider{intents: map[string]*stripe.PaymentIntent{}}}
	e.schedules = repository.NewScheduleRepo(db)
	e.tours = repository.NewTourRepo(db)
	e.orders = repository.NewOrderRepo(db, e.schedules)
	e.payments = repository.NewPaymentRepo(db)
	e.payouts = repository.NewPayoutRepo(db)
	e.reservation = NewReservationSvc(e.orders, e.schedules, e.tours, 15*time.Minute, 0.10, "eur")
	e.settlement = NewSettlementSvc(db, e.orders, e.payments, e.provider, nil)
	e.payout = NewPayoutSvc(e.payouts)
	return e
}

func (e *env) seedTour(t *testing.T, price string) *domain.Tour {
	t.Helper()
	p, err := decimal.NewFromString(price)
	require.NoError(t, err)
	tour := &domain.Tour{ShopID: "shop-1", Title: "Bog Hike", Price: p, Active: true}
	require.NoError(t, e.tours.Create(context.Background(), tour))
	return tour
}

func (e *env) seedSchedule(t *testing.T, tourID string, max int) *domain.Schedule {
	t.Helper()
	s := &domain.Schedule{
		TourID:          tourID,
		Date:            time.Now().UTC().AddDate(0, 0, 7).Truncate(24 * time.Hour),
		Time:            "10:00",
		MaxParticipants: max,
	}
	require.NoError(t, e.schedules.Create(context.Background(), s))
	return s
}

// fakeProvider stands in for Stripe.
type fakeProvider struct {
	intents     map[string]*stripe.PaymentIntent
	createCalls int
	failCreate  bool
}

func (f *fakeProvider) CreateIntent(ctx context.Context, p stripepay.IntentParams) (*stripe.PaymentIntent, error) {
	if f.failCreate {
		return nil, fmt.Errorf("provider down")
	}
	f.createCalls++
	pi := &stripe.PaymentIntent{
		ID:           fmt.Sprintf("pi_%d", f.createCalls),
		ClientSecret: fmt.Sprintf("pi_%d_secret", f.createCalls),
		Amount:       p.Amount,
		Metadata:     map[string]string{"orderId": p.OrderID, "paymentId": p.PaymentID},
	}
	f.intents[pi.ID] = pi
	return pi, nil
}

func (f *fakeProvider) RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	pi, ok := f.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such intent %s", id)
	}
	return pi, nil
}

func intentEvent(t *testing.T, id, typ, paymentID string) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":       "pi_evt",
		"metadata": map[string]string{"paymentId": paymentID},
	})
	require.NoError(t, err)
	return stripe.Event{
		ID:   id,
		Type: stripe.EventType(typ),
		Data: &stripe.EventData{Raw: raw},
	}
}
