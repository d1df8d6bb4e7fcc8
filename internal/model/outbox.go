package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// outbox_events — доменные события, записанные в той же транзакции, что и бронь.
// Публикуются фоновым outbox.Publisher.
type OutboxEvent struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	AggregateID   uuid.UUID `gorm:"type:uuid;not null;index"`
	AggregateType string    `gorm:"type:varchar(32);not null"`
	MerchantID    uuid.UUID `gorm:"type:uuid;not null"`

	EventType string         `gorm:"type:varchar(64);not null;index"`
	Payload   datatypes.JSON `gorm:"not null"`

	CreatedAt   time.Time  `gorm:"not null;index"`
	ProcessedAt *time.Time `gorm:"index"`

	RetryCount int    `gorm:"not null"`
	LastError  string `gorm:"type:text"`
	// Не раньше этого момента событие снова захватывается; nil — сразу.
	NextAttemptAt *time.Time
}

func (e *OutboxEvent) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
