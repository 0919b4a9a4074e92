package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaarma/tour-site-sub000/internal/domain"
)

func TestCreateReservation(t *testing.T) {
	e := newEnv(t)
	tour := e.seedTour(t, "45.50")
	sched := e.seedSchedule(t, tour.ID, 10)
	ctx := context.Background()

	o, err := e.reservation.Create(ctx, CreateReservationInput{
		Items:   []ReservationItemInput{{ScheduleID: sched.ID, Participants: 3}},
		Contact: ContactInput{Name: "Mari Tamm", Email: "mari@example.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderReserved, o.Status)
	assert.NotEmpty(t, o.ReservationToken)
	require.NotNil(t, o.ExpiresAt)
	assert.True(t, o.TotalPrice.Equal(decimal.RequireFromString("136.50")))

	require.NotNil(t, o.Payment)
	assert.True(t, o.Payment.PlatformFee.Equal(decimal.RequireFromString("13.65")))
	assert.True(t, o.Payment.ShopAmount.Equal(decimal.RequireFromString("122.85")))
	assert.Equal(t, domain.PaymentPending, o.Payment.Status)

	// the item froze the tour terms it was sold under
	require.Len(t, o.Items, 1)
	snap := o.Items[0].Snapshot
	assert.Equal(t, domain.TourSnapshotVersion, snap.Version)
	assert.Equal(t, tour.ID, snap.TourID)
	assert.True(t, snap.Price.Equal(tour.Price))

	s, err := e.schedules.ByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, s.ReservedParticipants)
}

func TestCreateReservationValidation(t *testing.T) {
	e := newEnv(t)
	tour := e.seedTour(t, "45.50")
	sched := e.seedSchedule(t, tour.ID, 10)
	ctx := context.Background()

	_, err := e.reservation.Create(ctx, CreateReservationInput{
		Contact: ContactInput{Name: "Mari", Email: "mari@example.com"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.reservation.Create(ctx, CreateReservationInput{
		Items: []ReservationItemInput{{ScheduleID: sched.ID, Participants: 2}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.reservation.Create(ctx, CreateReservationInput{
		Items:   []ReservationItemInput{{ScheduleID: sched.ID, Participants: 0}},
		Contact: ContactInput{Name: "Mari", Email: "mari@example.com"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	e := newEnv(t)
	tour := e.seedTour(t, "20.00")
	sched := e.seedSchedule(t, tour.ID, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.reservation.Create(ctx, CreateReservationInput{
				Items:   []ReservationItemInput{{ScheduleID: sched.ID, Participants: 3}},
				Contact: ContactInput{Name: "Kai", Email: "kai@example.com"},
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
		}
	}
	assert.Equal(t, 3, won)

	s, err := e.schedules.ByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 9, s.ReservedParticipants)
}

func TestCancelReservation(t *testing.T) {
	e := newEnv(t)
	tour := e.seedTour(t, "30.00")
	sched := e.seedSchedule(t, tour.ID, 6)
	ctx := context.Background()

	o, err := e.reservation.Create(ctx, CreateReservationInput{
		Items:   []ReservationItemInput{{ScheduleID: sched.ID, Participants: 2}},
		Contact: ContactInput{Name: "Kai", Email: "kai@example.com"},
	})
	require.NoError(t, err)

	got, err := e.reservation.Cancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.Status)

	s, err := e.schedules.ByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, s.ReservedParticipants)

	// cancelling twice stays CANCELLED, no error
	got, err = e.reservation.Cancel(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCancelled, got.Status)
}

func TestGetByToken(t *testing.T) {
	e := newEnv(t)
	tour := e.seedTour(t, "30.00")
	sched := e.seedSchedule(t, tour.ID, 6)
	ctx := context.Background()

	o, err := e.reservation.Create(ctx, CreateReservationInput{
		Items:   []ReservationItemInput{{ScheduleID: sched.ID, Participants: 1}},
		Contact: ContactInput{Name: "Kai", Email: "kai@example.com"},
	})
	require.NoError(t, err)

	got, err := e.reservation.GetByToken(ctx, o.ReservationToken)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = e.reservation.GetByToken(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
