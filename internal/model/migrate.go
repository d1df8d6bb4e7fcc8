package model

import "gorm.io/gorm"

// AutoMigrate создаёт таблицы ядра бронирования.
// Postgres-специфичные ограничения накатываются отдельно, см. internal/migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Merchant{},
		&MerchantHoliday{},
		&Location{},
		&Service{},
		&Staff{},
		&StaffLocation{},
		&StaffSchedule{},
		&Booking{},
		&BookingService{},
		&OutboxEvent{},
	)
}
