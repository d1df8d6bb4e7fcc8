package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Leganyst/booking-engine/internal/calendar"
)

type StaffStatus string

const (
	StaffStatusActive   StaffStatus = "ACTIVE"
	StaffStatusInactive StaffStatus = "INACTIVE"
)

// staff — мастер салона.
type Staff struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	MerchantID uuid.UUID `gorm:"type:uuid;not null;index"`

	Name   string      `gorm:"type:varchar(255);not null"`
	Status StaffStatus `gorm:"type:varchar(16);not null;index"`

	// Служебная запись «Unassigned», на которую вешаются брони без мастера.
	// В подборе мастера не участвует.
	IsPlaceholder bool `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Schedules []StaffSchedule `gorm:"foreignKey:StaffID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Staff) TableName() string { return "staff" }

func (s *Staff) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// Assignable сообщает, может ли мастер получать новые брони.
func (s Staff) Assignable() bool {
	return !s.IsPlaceholder && s.Status == StaffStatusActive
}

// Weekly собирает недельное расписание из строк StaffSchedule.
// Если строк нет, возвращается пустое расписание.
func (s Staff) Weekly() calendar.Weekly {
	w := calendar.Weekly{}
	for _, row := range s.Schedules {
		if row.DayOfWeek < 0 || row.DayOfWeek > 6 {
			continue
		}
		r, err := calendar.NewClockRange(row.StartTime, row.EndTime)
		if err != nil {
			continue
		}
		w.Add(time.Weekday(row.DayOfWeek), r)
	}
	return w
}

// staff_locations — в каких филиалах работает мастер.
type StaffLocation struct {
	StaffID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	LocationID uuid.UUID `gorm:"type:uuid;primaryKey;index"`

	CreatedAt time.Time `gorm:"not null"`

	Staff    *Staff    `gorm:"foreignKey:StaffID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Location *Location `gorm:"foreignKey:LocationID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// staff_schedules — рабочее окно мастера в день недели.
// На один день допускается несколько строк (например, с перерывом на обед).
type StaffSchedule struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	StaffID uuid.UUID `gorm:"type:uuid;not null;index"`

	// 0 — воскресенье, как в time.Weekday.
	DayOfWeek int    `gorm:"not null"`
	StartTime string `gorm:"type:varchar(5);not null"`
	EndTime   string `gorm:"type:varchar(5);not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (s *StaffSchedule) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
