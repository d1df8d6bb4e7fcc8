package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/booking-engine/internal/db"
)

// Locker сериализует проверку конфликтов и запись брони по мастеру и дню.
type Locker interface {
	LockStaffDay(ctx context.Context, staffID uuid.UUID, day time.Time) error
}

type GormLocker struct {
	db *gorm.DB
}

func NewGormLocker(db *gorm.DB) *GormLocker {
	return &GormLocker{db: db}
}

// StaffDayKey — ключ блокировки вида "staff:<id>:2006-01-02".
func StaffDayKey(staffID uuid.UUID, day time.Time) string {
	return fmt.Sprintf("staff:%s:%s", staffID, day.Format(time.DateOnly))
}

// LockStaffDay берёт транзакционный advisory-лок Postgres; он снимается на
// commit/rollback. В SQLite единственное соединение уже сериализует писателей,
// поэтому там вызов ничего не делает.
func (l *GormLocker) LockStaffDay(ctx context.Context, staffID uuid.UUID, day time.Time) error {
	if !db.IsPostgres(l.db) {
		return nil
	}
	return l.db.WithContext(ctx).
		Exec("SELECT pg_advisory_xact_lock(hashtext(?))", StaffDayKey(staffID, day)).
		Error
}
