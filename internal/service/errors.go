package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Leganyst/booking-engine/internal/booking"
	"github.com/Leganyst/booking-engine/internal/repository"
)

// classify приводит ошибки хранилища к доменным.
// Доменные ошибки возвращаются как есть.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	var (
		conflict   *booking.SchedulingConflictError
		noStaff    *booking.NoStaffAvailableError
		transition *booking.InvalidTransitionError
	)
	switch {
	case errors.As(err, &conflict),
		errors.As(err, &noStaff),
		errors.As(err, &transition),
		errors.Is(err, booking.ErrInvalidInterval),
		errors.Is(err, booking.ErrOutsideWorkingHours),
		errors.Is(err, booking.ErrInvalidPayment),
		errors.Is(err, booking.ErrNotFound),
		errors.Is(err, booking.ErrPersistenceConflict):
		return err
	case repository.IsNotFound(err):
		return booking.ErrNotFound
	case repository.IsTransient(err), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", booking.ErrPersistenceConflict, err)
	}
	return err
}

// invalid оборачивает ErrInvalidInterval с пояснением.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", booking.ErrInvalidInterval, fmt.Sprintf(format, args...))
}

// lookup превращает «не найдено» при проверке ссылок запроса в ErrInvalidInterval.
func lookup(err error, what string) error {
	if repository.IsNotFound(err) {
		return invalid("%s not found", what)
	}
	return err
}
