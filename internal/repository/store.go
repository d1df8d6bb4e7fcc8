package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"github.com/Leganyst/booking-engine/internal/db"
)

// Store собирает репозитории, привязанные к одному *gorm.DB
// (пулу соединений или транзакции).
type Store struct {
	db *gorm.DB

	Bookings BookingRepository
	Catalog  CatalogRepository
	Outbox   OutboxRepository
	Locks    Locker
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:       db,
		Bookings: NewGormBookingRepository(db),
		Catalog:  NewGormCatalogRepository(db),
		Outbox:   NewGormOutboxRepository(db),
		Locks:    NewGormLocker(db),
	}
}

// DB возвращает нижележащее соединение (для health-check и миграций).
func (s *Store) DB() *gorm.DB {
	return s.db
}

// InTx выполняет fn в транзакции. Уровень изоляции из opts применяется только
// в Postgres. Ошибка fn откатывает транзакцию и возвращается как есть.
func (s *Store) InTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *Store) error) error {
	if !db.IsPostgres(s.db) {
		opts = nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	}, opts)
}
