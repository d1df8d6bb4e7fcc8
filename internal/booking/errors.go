package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Leganyst/booking-engine/internal/model"
	"github.com/Leganyst/booking-engine/internal/scheduling"
)

var (
	// ErrInvalidInterval — некорректный запрос: пустой интервал, нет услуг,
	// не найден мастер, филиал или услуга. Отклоняется до начала транзакции
	// либо при проверке существования внутри неё.
	ErrInvalidInterval = errors.New("invalid booking interval")

	ErrNotFound = errors.New("booking not found")

	// ErrOutsideWorkingHours — время вне рабочих часов мастера или в выходной.
	ErrOutsideWorkingHours = errors.New("requested time is outside working hours")

	// ErrPersistenceConflict — временная ошибка (таймаут, сериализация,
	// deadlock, срабатывание ограничения). Повторять нужно всю операцию целиком.
	ErrPersistenceConflict = errors.New("persistence conflict, retry the operation")

	ErrInvalidPayment = errors.New("invalid payment")
)

// SchedulingConflictError — запрошенный интервал пересекается с бронями мастера.
type SchedulingConflictError struct {
	StaffID   string
	Conflicts []scheduling.Conflict
}

func (e *SchedulingConflictError) Error() string {
	numbers := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		numbers = append(numbers, c.BookingNumber)
	}
	return fmt.Sprintf("scheduling conflict for staff %s with %d booking(s): %s",
		e.StaffID, len(e.Conflicts), strings.Join(numbers, ", "))
}

// NoStaffAvailableError — ни один мастер филиала не свободен в это время.
type NoStaffAvailableError struct {
	Checked []scheduling.Unavailable
}

func (e *NoStaffAvailableError) Error() string {
	return fmt.Sprintf("no staff available, %d checked", len(e.Checked))
}

// InvalidTransitionError — машина состояний отклонила переход.
type InvalidTransitionError struct {
	From   model.BookingStatus
	To     model.BookingStatus
	Action Action
}

func (e *InvalidTransitionError) Error() string {
	if e.From == "" && e.To == "" {
		return fmt.Sprintf("unknown booking action %q", e.Action)
	}
	if e.To == "" {
		return fmt.Sprintf("cannot %s booking in status %s", e.Action, e.From)
	}
	return fmt.Sprintf("cannot %s booking: transition %s -> %s is not allowed", e.Action, e.From, e.To)
}
