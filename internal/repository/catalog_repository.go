package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/booking-engine/internal/model"
)

// CatalogRepository — справочные данные салона: часы работы, филиалы,
// услуги, мастера. Ядро их только читает.
type CatalogRepository interface {
	GetMerchant(ctx context.Context, id uuid.UUID) (*model.Merchant, error)
	// Праздники салона в диапазоне дат [from, to] включительно.
	ListHolidays(ctx context.Context, merchantID uuid.UUID, from, to time.Time) ([]model.MerchantHoliday, error)
	GetLocation(ctx context.Context, merchantID, id uuid.UUID) (*model.Location, error)
	// Услуги салона по списку ID (в порядке ids; отсутствующие пропускаются).
	ListServices(ctx context.Context, merchantID uuid.UUID, ids []uuid.UUID) ([]model.Service, error)
	GetService(ctx context.Context, merchantID, id uuid.UUID) (*model.Service, error)
	// Мастер с расписанием.
	GetStaff(ctx context.Context, merchantID, id uuid.UUID) (*model.Staff, error)
	// Все мастера филиала с расписаниями, в стабильном порядке.
	ListStaffByLocation(ctx context.Context, merchantID, locationID uuid.UUID) ([]model.Staff, error)
	StaffWorksAt(ctx context.Context, staffID, locationID uuid.UUID) (bool, error)
}

type GormCatalogRepository struct {
	db *gorm.DB
}

func NewGormCatalogRepository(db *gorm.DB) *GormCatalogRepository {
	return &GormCatalogRepository{db: db}
}

func (r *GormCatalogRepository) GetMerchant(ctx context.Context, id uuid.UUID) (*model.Merchant, error) {
	var m model.Merchant
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *GormCatalogRepository) ListHolidays(
	ctx context.Context,
	merchantID uuid.UUID,
	from, to time.Time,
) ([]model.MerchantHoliday, error) {
	var holidays []model.MerchantHoliday
	err := r.db.WithContext(ctx).
		Where("merchant_id = ?", merchantID).
		Where("date >= ? AND date <= ?", model.HolidayDate(from), model.HolidayDate(to)).
		Order("date").
		Find(&holidays).Error
	if err != nil {
		return nil, err
	}
	return holidays, nil
}

func (r *GormCatalogRepository) GetLocation(ctx context.Context, merchantID, id uuid.UUID) (*model.Location, error) {
	var l model.Location
	err := r.db.WithContext(ctx).
		First(&l, "id = ? AND merchant_id = ?", id, merchantID).Error
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *GormCatalogRepository) ListServices(
	ctx context.Context,
	merchantID uuid.UUID,
	ids []uuid.UUID,
) ([]model.Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var found []model.Service
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND id IN ?", merchantID, ids).
		Find(&found).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]model.Service, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}

	// Одна и та же услуга может встречаться в брони несколько раз.
	out := make([]model.Service, 0, len(ids))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *GormCatalogRepository) GetService(ctx context.Context, merchantID, id uuid.UUID) (*model.Service, error) {
	var s model.Service
	err := r.db.WithContext(ctx).
		First(&s, "id = ? AND merchant_id = ?", id, merchantID).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func orderedSchedules(tx *gorm.DB) *gorm.DB {
	return tx.Order("day_of_week, start_time")
}

func (r *GormCatalogRepository) GetStaff(ctx context.Context, merchantID, id uuid.UUID) (*model.Staff, error) {
	var s model.Staff
	err := r.db.WithContext(ctx).
		Preload("Schedules", orderedSchedules).
		First(&s, "id = ? AND merchant_id = ?", id, merchantID).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormCatalogRepository) ListStaffByLocation(
	ctx context.Context,
	merchantID, locationID uuid.UUID,
) ([]model.Staff, error) {
	var staff []model.Staff
	err := r.db.WithContext(ctx).
		Preload("Schedules", orderedSchedules).
		Where("merchant_id = ?", merchantID).
		Where("id IN (?)", r.db.Model(&model.StaffLocation{}).
			Select("staff_id").
			Where("location_id = ?", locationID)).
		Order("created_at, id").
		Find(&staff).Error
	if err != nil {
		return nil, err
	}
	return staff, nil
}

func (r *GormCatalogRepository) StaffWorksAt(ctx context.Context, staffID, locationID uuid.UUID) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.StaffLocation{}).
		Where("staff_id = ? AND location_id = ?", staffID, locationID).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
