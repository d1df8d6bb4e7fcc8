package scheduling

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Leganyst/booking-engine/internal/calendar"
	"github.com/Leganyst/booking-engine/internal/model"
)

// AssignmentRequest — запрашиваемое время для подбора мастера.
type AssignmentRequest struct {
	Start   time.Time
	End     time.Time
	Padding calendar.Padding
	// Бронь, которую переносят; её собственный интервал не считается конфликтом.
	ExcludeBookingID uuid.UUID
	// Часовой пояс для текста причин занятости.
	Location *time.Location
}

// Candidate — свободный мастер и число его активных броней.
type Candidate struct {
	Staff    model.Staff `json:"staff"`
	Workload int         `json:"workload"`
}

// Unavailable — занятый мастер с причиной.
type Unavailable struct {
	Staff     model.Staff `json:"staff"`
	Reason    string      `json:"reason"`
	Conflicts []Conflict  `json:"conflicts"`
}

// Assignment — результат подбора. Assigned == nil, если свободных нет.
type Assignment struct {
	Available   []Candidate   `json:"available"`
	Unavailable []Unavailable `json:"unavailable"`
	Assigned    *model.Staff  `json:"assigned"`
	Message     string        `json:"message"`
}

// ResolveStaff выбирает мастера для записи без явного указания мастера.
//
// Служебный «Unassigned» и неактивные мастера пропускаются. Свободные мастера
// упорядочиваются по возрастанию нагрузки (число активных броней в existing);
// при равной нагрузке раньше идёт тот, кто раньше в candidates.
func ResolveStaff(req AssignmentRequest, candidates []model.Staff, existing []model.Booking) Assignment {
	blocked := calendar.BlockedRange(req.Start, req.End, req.Padding)
	workloads := Workloads(existing)

	type ranked struct {
		Candidate
		index int
	}

	var (
		available []ranked
		result    Assignment
	)

	for i, staff := range candidates {
		if !staff.Assignable() {
			continue
		}

		conflicts := FindConflicts(staff.ID, blocked, existing, req.ExcludeBookingID)
		if len(conflicts) > 0 {
			result.Unavailable = append(result.Unavailable, Unavailable{
				Staff:     staff,
				Reason:    busyReason(conflicts, req.Location),
				Conflicts: conflicts,
			})
			continue
		}

		available = append(available, ranked{
			Candidate: Candidate{Staff: staff, Workload: workloads[staff.ID]},
			index:     i,
		})
	}

	sort.Slice(available, func(i, j int) bool {
		if available[i].Workload != available[j].Workload {
			return available[i].Workload < available[j].Workload
		}
		return available[i].index < available[j].index
	})

	for _, a := range available {
		result.Available = append(result.Available, a.Candidate)
	}
	if len(result.Available) > 0 {
		assigned := result.Available[0].Staff
		result.Assigned = &assigned
	}
	result.Message = AvailabilityMessage(len(result.Available), len(result.Unavailable))

	return result
}

// Workloads считает активные брони по мастерам.
func Workloads(bookings []model.Booking) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int)
	for _, b := range bookings {
		if b.ProviderID == nil || !b.Status.BlocksStaff() {
			continue
		}
		out[*b.ProviderID]++
	}
	return out
}

func busyReason(conflicts []Conflict, loc *time.Location) string {
	times := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		times = append(times, calendar.FormatRange(calendar.TimeRange{Start: c.StartTime, End: c.EndTime}, loc))
	}
	return "Busy at " + strings.Join(times, "; ")
}

// AvailabilityMessage — сводка для экрана записи.
func AvailabilityMessage(available, unavailable int) string {
	switch {
	case available == 0:
		return "No staff available at this time"
	case unavailable == 0:
		return "All staff available"
	default:
		return fmt.Sprintf("%d of %d staff available", available, available+unavailable)
	}
}
