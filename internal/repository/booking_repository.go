package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Leganyst/booking-engine/internal/db"
	"github.com/Leganyst/booking-engine/internal/model"
)

type BookingRepository interface {
	// Создать бронь вместе с позициями услуг.
	Create(ctx context.Context, booking *model.Booking) error
	// Получить бронь салона по ID (с позициями).
	GetByID(ctx context.Context, merchantID, id uuid.UUID) (*model.Booking, error)
	// То же, но с блокировкой строки до конца транзакции (Postgres).
	GetForUpdate(ctx context.Context, merchantID, id uuid.UUID) (*model.Booking, error)
	// Сохранить изменения брони; позиции обновляются только по мастеру.
	Update(ctx context.Context, booking *model.Booking) error
	// Брони мастеров, чей занятый интервал пересекает [from, to), в любых статусах.
	ListForStaff(ctx context.Context, staffIDs []uuid.UUID, from, to time.Time) ([]model.Booking, error)
}

// Реализация на GORM.
type GormBookingRepository struct {
	db *gorm.DB
}

func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

func (r *GormBookingRepository) GetByID(ctx context.Context, merchantID, id uuid.UUID) (*model.Booking, error) {
	return r.get(r.db.WithContext(ctx), merchantID, id)
}

func (r *GormBookingRepository) GetForUpdate(ctx context.Context, merchantID, id uuid.UUID) (*model.Booking, error) {
	q := r.db.WithContext(ctx)
	if db.IsPostgres(r.db) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.get(q, merchantID, id)
}

func (r *GormBookingRepository) get(q *gorm.DB, merchantID, id uuid.UUID) (*model.Booking, error) {
	var b model.Booking
	err := q.Preload("Services", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("created_at, id")
	}).First(&b, "id = ? AND merchant_id = ?", id, merchantID).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	q := r.db.WithContext(ctx)
	if err := q.Omit(clause.Associations).Save(booking).Error; err != nil {
		return err
	}
	for _, line := range booking.Services {
		err := q.Model(&model.BookingService{}).
			Where("id = ?", line.ID).
			Update("staff_id", line.StaffID).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *GormBookingRepository) ListForStaff(
	ctx context.Context,
	staffIDs []uuid.UUID,
	from, to time.Time,
) ([]model.Booking, error) {
	if len(staffIDs) == 0 {
		return nil, nil
	}

	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Where("provider_id IN ?", staffIDs).
		Where("blocked_start < ? AND blocked_end > ?", to.UTC(), from.UTC()).
		Order("blocked_start, id").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
