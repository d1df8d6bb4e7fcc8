package scheduling

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/booking-engine/internal/calendar"
	"github.com/Leganyst/booking-engine/internal/model"
)

// Conflict описывает существующую бронь, пересекающуюся с запрошенным интервалом.
type Conflict struct {
	BookingID     uuid.UUID           `json:"bookingId"`
	BookingNumber string              `json:"bookingNumber"`
	Status        model.BookingStatus `json:"status"`
	StartTime     time.Time           `json:"startTime"`
	EndTime       time.Time           `json:"endTime"`
	BlockedStart  time.Time           `json:"blockedStart"`
	BlockedEnd    time.Time           `json:"blockedEnd"`
	IsOverride    bool                `json:"isOverride"`
}

// FindConflicts возвращает все брони мастера staffID, чей занятый интервал
// (с буферами) пересекается с blocked.
//
// Брони других мастеров, бронь exclude (при переносе) и брони в статусах
// CANCELLED/NO_SHOW не учитываются. Результат отсортирован по началу занятого
// интервала, затем по id, и зависит только от аргументов.
func FindConflicts(staffID uuid.UUID, blocked calendar.TimeRange, existing []model.Booking, exclude uuid.UUID) []Conflict {
	var conflicts []Conflict

	for _, b := range existing {
		if !b.AssignedTo(staffID) {
			continue
		}
		if exclude != uuid.Nil && b.ID == exclude {
			continue
		}
		if !b.Status.BlocksStaff() {
			continue
		}

		other := b.Blocked()
		if !blocked.Overlaps(other) {
			continue
		}

		conflicts = append(conflicts, Conflict{
			BookingID:     b.ID,
			BookingNumber: b.BookingNumber,
			Status:        b.Status,
			StartTime:     b.StartTime.UTC(),
			EndTime:       b.EndTime.UTC(),
			BlockedStart:  other.Start,
			BlockedEnd:    other.End,
			IsOverride:    b.IsOverride,
		})
	}

	sort.Slice(conflicts, func(i, j int) bool {
		if !conflicts[i].BlockedStart.Equal(conflicts[j].BlockedStart) {
			return conflicts[i].BlockedStart.Before(conflicts[j].BlockedStart)
		}
		return conflicts[i].BookingID.String() < conflicts[j].BookingID.String()
	})

	return conflicts
}
