package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eaarma/tour-site-sub000/internal/domain"
)

// ScheduleRepo is the capacity ledger. The schedule row is the single
// point of mutual exclusion for capacity: every mutation locks it first
// and re-checks the counters under the lock.
type ScheduleRepo struct{ db *gorm.DB }

func NewScheduleRepo(db *gorm.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = domain.ScheduleActive
	}
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *ScheduleRepo) ByID(ctx context.Context, id string) (*domain.Schedule, error) {
	var s domain.Schedule
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *ScheduleRepo) ByTour(ctx context.Context, tourID string) ([]domain.Schedule, error) {
	var out []domain.Schedule
	err := r.db.WithContext(ctx).
		Where("tour_id = ?", tourID).
		Order("date ASC, time ASC").
		Find(&out).Error
	return out, err
}

func lockSchedule(tx *gorm.DB, id string) (*domain.Schedule, error) {
	var s domain.Schedule
	if err := forUpdate(tx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrScheduleNotFound
		}
		return nil, err
	}
	return &s, nil
}

// ReserveTx debits participants from the schedule's availability inside the
// caller's transaction, so the debit rolls back with whatever else the
// caller is doing.
func (r *ScheduleRepo) ReserveTx(tx *gorm.DB, scheduleID string, participants int) error {
	s, err := lockSchedule(tx, scheduleID)
	if err != nil {
		return err
	}
	if s.Status != domain.ScheduleActive {
		return domain.ErrScheduleNotActive
	}
	if participants > s.Available() {
		return domain.ErrInsufficientCapacity
	}
	return tx.Model(&domain.Schedule{}).Where("id = ?", s.ID).
		Update("reserved_participants", gorm.Expr("reserved_participants + ?", participants)).Error
}

// ReleaseTx credits back a reservation. Floored at zero: a double release
// must never drive the counter negative.
func (r *ScheduleRepo) ReleaseTx(tx *gorm.DB, scheduleID string, participants int) error {
	s, err := lockSchedule(tx, scheduleID)
	if err != nil {
		return err
	}
	reserved := s.ReservedParticipants - participants
	if reserved < 0 {
		reserved = 0
	}
	return tx.Model(&domain.Schedule{}).Where("id = ?", s.ID).
		Update("reserved_participants", reserved).Error
}

// CommitTx converts a reservation into a booking. When the schedule fills
// up its status flips to BOOKED and it is closed to new reservations.
func (r *ScheduleRepo) CommitTx(tx *gorm.DB, scheduleID string, participants int) error {
	s, err := lockSchedule(tx, scheduleID)
	if err != nil {
		return err
	}
	reserved := s.ReservedParticipants - participants
	if reserved < 0 {
		reserved = 0
	}
	updates := map[string]any{
		"reserved_participants": reserved,
		"booked_participants":   s.BookedParticipants + participants,
	}
	if s.BookedParticipants+participants >= s.MaxParticipants {
		updates["status"] = domain.ScheduleBooked
	}
	return tx.Model(&domain.Schedule{}).Where("id = ?", s.ID).Updates(updates).Error
}

// Reserve, Release and Commit wrap the Tx variants in their own transaction
// for callers that touch a single schedule outside a larger unit of work.
func (r *ScheduleRepo) Reserve(ctx context.Context, scheduleID string, participants int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.ReserveTx(tx, scheduleID, participants)
	})
}

func (r *ScheduleRepo) Release(ctx context.Context, scheduleID string, participants int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.ReleaseTx(tx, scheduleID, participants)
	})
}

func (r *ScheduleRepo) Commit(ctx context.Context, scheduleID string, participants int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.CommitTx(tx, scheduleID, participants)
	})
}

// ExpireStale closes ACTIVE schedules whose slot time has passed. This only
// stops new reservations; order-level expiry is handled separately.
func (r *ScheduleRepo) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	var candidates []domain.Schedule
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	err := r.db.WithContext(ctx).
		Where("status = ? AND date <= ?", domain.ScheduleActive, dayStart).
		Find(&candidates).Error
	if err != nil {
		return 0, err
	}
	var ids []string
	for i := range candidates {
		if candidates[i].StartsAt().Before(now) {
			ids = append(ids, candidates[i].ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&domain.Schedule{}).
		Where("id IN ? AND status = ?", ids, domain.ScheduleActive).
		Update("status", domain.ScheduleExpired)
	return int(res.RowsAffected), res.Error
}
