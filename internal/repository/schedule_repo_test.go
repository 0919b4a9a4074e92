package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eaarma/tour-site-sub000/internal/domain"
)

func TestScheduleReserve(t *testing.T) {
	db := testDB(t)
	repo := NewScheduleRepo(db)
	tour := seedTour(t, db, "50.00")
	sched := seedSchedule(t, db, tour.ID, 10)
	ctx := context.Background()

	require.NoError(t, repo.Reserve(ctx, sched.ID, 4))
	require.NoError(t, repo.Reserve(ctx, sched.ID, 6))

	got, err := repo.ByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.ReservedParticipants)
	assert.Equal(t, 0, got.Available())

	err = repo.Reserve(ctx, sched.ID, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
}

func TestScheduleReserveUnknown(t *testing.T) {
	db := testDB(t)
	repo := NewScheduleRepo(db)

	err := repo.Reserve(context.Background(), uuid.NewString(), 1)
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound)
}

func TestScheduleReserveInactive(t *testing.T) {
	db := testDB(t)
	repo := NewScheduleRepo(db)
	tour := seedTour(t, db, "50.00")
	sched := seedSchedule(t, db, tour.ID, 10)
	require.NoError(t, db.Model(sched).Update("status", domain.ScheduleExpired).Error)

	err := repo.Reserve(context.Background(), sched.ID, 1)
	assert.ErrorIs(t, err, domain.ErrScheduleNotActive)
}

func TestScheduleReleaseFloorsAtZero(t *testing.T) {
	db := testDB(t)
	repo := NewScheduleRepo(db)
	tour := seedTour(t, db, "50.00")
	sched := seedSchedule(t, db, tour.ID, 10)
	ctx := context.Background()

	require.NoError(t, repo.Reserve(ctx, sched.ID, 3))
	require.NoError(t, repo.Release(ctx, sched.ID, 5))

	got, err := repo.ByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.ReservedParticipants)
	assert.Equal(t, 10, got.Available())
}

func TestScheduleCommitFlipsToBooked(t *testing.T) {
	db := testDB(t)
	repo := NewScheduleRepo(db)
	tour := seedTour(t, db, "50.00")
	sched := seedSchedule(t, db, tour.ID, 5)
	ctx := context.Background()

	require.NoError(t, repo.Reserve(ctx, sched.ID, 3))
	require.NoError(t, repo.Commit(ctx, sched.ID, 3))

	got, err := repo.ByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.BookedParticipants)
	assert.Equal(t, 0, got.ReservedParticipants)
	assert.Equal(t, domain.ScheduleActive, got.Status)

	require.NoError(t, repo.Reserve(ctx, sched.ID, 2))
	require.NoError(t, repo.Commit(ctx, sched.ID, 2))

	got, err = repo.ByID(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.BookedParticipants)
	assert.Equal(t, domain.ScheduleBooked, got.Status)
}

func TestScheduleExpireStale(t *testing.T) {
	db := testDB(t)
	repo := NewScheduleRepo(db)
	tour := seedTour(t, db, "50.00")
	ctx := context.Background()

	past := &domain.Schedule{
		ID:              uuid.NewString(),
		TourID:          tour.ID,
		Date:            time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour),
		Time:            "09:00",
		MaxParticipants: 8,
		Status:          domain.ScheduleActive,
	}
	require.NoError(t, db.Create(past).Error)
	future := seedSchedule(t, db, tour.ID, 8)

	n, err := repo.ExpireStale(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.ByID(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleExpired, got.Status)

	got, err = repo.ByID(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleActive, got.Status)

	// second pass finds nothing
	n, err = repo.ExpireStale(ctx, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
