package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/booking-engine/internal/calendar"
)

// DayHours — часы работы салона в один день недели.
type DayHours struct {
	IsOpen bool   `json:"isOpen"`
	Open   string `json:"open"`
	Close  string `json:"close"`
}

// BusinessHours хранится как JSON вида {"monday": {"isOpen": true, "open": "09:00", "close": "17:00"}, ...}.
type BusinessHours map[string]DayHours

// Weekly переводит часы работы в недельное расписание.
// Дни с нераспознаваемым временем считаются закрытыми.
func (h BusinessHours) Weekly() calendar.Weekly {
	w := calendar.Weekly{}
	for name, day := range h {
		if !day.IsOpen {
			continue
		}
		weekday, ok := calendar.ParseWeekday(name)
		if !ok {
			continue
		}
		r, err := calendar.NewClockRange(day.Open, day.Close)
		if err != nil {
			continue
		}
		w.Add(weekday, r)
	}
	return w
}

// merchants — салон (тенант). Для ядра только на чтение.
type Merchant struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name string `gorm:"type:varchar(255);not null"`

	// IANA-имя часового пояса, в котором заданы часы работы.
	TimeZone string `gorm:"type:varchar(64);not null;default:'UTC'"`

	BusinessHours datatypes.JSONType[BusinessHours]

	// Онлайн-записи без автоподтверждения создаются в статусе PENDING.
	AutoConfirmBookings bool `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *Merchant) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// Location возвращает часовой пояс салона, UTC при пустом или неизвестном значении.
func (m *Merchant) Location() *time.Location {
	if m.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(m.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// merchant_holidays — праздничные и нерабочие дни салона.
type MerchantHoliday struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	MerchantID uuid.UUID `gorm:"type:uuid;not null;index:idx_holiday_merchant_date"`

	// Календарная дата без времени, хранится как полночь UTC.
	Date datatypes.Date `gorm:"not null;index:idx_holiday_merchant_date"`

	Name     string `gorm:"type:varchar(255)"`
	IsDayOff bool   `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
}

func (h *MerchantHoliday) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}

// HolidayDate приводит день в любом часовом поясе к значению колонки Date.
func HolidayDate(day time.Time) datatypes.Date {
	y, m, d := day.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// locations — филиал салона.
type Location struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	MerchantID uuid.UUID `gorm:"type:uuid;not null;index"`

	Name     string `gorm:"type:varchar(255);not null"`
	IsActive bool   `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (l *Location) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
