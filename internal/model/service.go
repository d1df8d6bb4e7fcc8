package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Leganyst/booking-engine/internal/calendar"
)

// services — услуга салона.
type Service struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	MerchantID uuid.UUID `gorm:"type:uuid;not null;index"`

	Name string `gorm:"type:varchar(255);not null"`

	// Длительность и технологические буферы в минутах.
	DurationMinutes int `gorm:"not null"`
	PaddingBefore   int `gorm:"not null"`
	PaddingAfter    int `gorm:"not null"`

	Price decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	IsActive bool `gorm:"not null;index"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (s *Service) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

func (s Service) Padding() calendar.Padding {
	return calendar.PaddingMinutes(s.PaddingBefore, s.PaddingAfter)
}
