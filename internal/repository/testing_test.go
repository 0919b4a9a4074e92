package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eaarma/tour-site-sub000/internal/domain"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// keep the in-memory database alive and writes serialized
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, AutoMigrate(db))
	return db
}

func seedTour(t *testing.T, db *gorm.DB, price string) *domain.Tour {
	t.Helper()
	p, err := decimal.NewFromString(price)
	require.NoError(t, err)
	tour := &domain.Tour{
		ID:     uuid.NewString(),
		ShopID: uuid.NewString(),
		Title:  "Old Town Walk",
		Price:  p,
		Active: true,
	}
	require.NoError(t, db.Create(tour).Error)
	return tour
}

func seedSchedule(t *testing.T, db *gorm.DB, tourID string, max int) *domain.Schedule {
	t.Helper()
	s := &domain.Schedule{
		ID:              uuid.NewString(),
		TourID:          tourID,
		Date:            time.Now().UTC().AddDate(0, 0, 7).Truncate(24 * time.Hour),
		Time:            "10:00",
		MaxParticipants: max,
		Status:          domain.ScheduleActive,
	}
	require.NoError(t, db.Create(s).Error)
	return s
}
