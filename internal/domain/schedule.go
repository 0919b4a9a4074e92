package domain

import "time"

type ScheduleStatus string

const (
	ScheduleActive  ScheduleStatus = "ACTIVE"
	ScheduleBooked  ScheduleStatus = "BOOKED"
	ScheduleExpired ScheduleStatus = "EXPIRED"
)

// Schedule is a bookable date/time instance of a tour with fixed capacity.
// Invariant at every mutation: 0 <= BookedParticipants + ReservedParticipants <= MaxParticipants.
type Schedule struct {
	ID                   string         `gorm:"primaryKey" json:"id"`
	TourID               string         `gorm:"index" json:"tour_id"`
	Date                 time.Time      `gorm:"index" json:"date"`
	Time                 string         `json:"time"` // "15:04"
	MaxParticipants      int            `json:"max_participants"`
	BookedParticipants   int            `json:"booked_participants"`
	ReservedParticipants int            `json:"reserved_participants"`
	Status               ScheduleStatus `gorm:"index" json:"status"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

func (s *Schedule) Available() int {
	return s.MaxParticipants - s.BookedParticipants - s.ReservedParticipants
}

// StartsAt combines Date and Time into the concrete slot start. A Time that
// does not parse falls back to midnight of Date.
func (s *Schedule) StartsAt() time.Time {
	t, err := time.Parse("15:04", s.Time)
	if err != nil {
		return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), 0, 0, 0, 0, time.UTC)
	}
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC)
}
