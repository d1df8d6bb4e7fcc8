package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Leganyst/booking-engine/internal/calendar"
)

type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusConfirmed  BookingStatus = "CONFIRMED"
	BookingStatusCheckedIn  BookingStatus = "CHECKED_IN"
	BookingStatusInProgress BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted  BookingStatus = "COMPLETED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
	BookingStatusNoShow     BookingStatus = "NO_SHOW"
)

// Terminal сообщает, что из статуса нет переходов.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusNoShow:
		return true
	}
	return false
}

// BlocksStaff сообщает, занимает ли бронь в этом статусе время мастера.
func (s BookingStatus) BlocksStaff() bool {
	return s != BookingStatusCancelled && s != BookingStatusNoShow
}

type PaymentStatus string

const (
	PaymentStatusUnpaid   PaymentStatus = "UNPAID"
	PaymentStatusPartial  PaymentStatus = "PARTIAL"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

type BookingSource string

const (
	BookingSourceOnline BookingSource = "ONLINE"
	BookingSourceWalkIn BookingSource = "WALK_IN"
	BookingSourcePhone  BookingSource = "PHONE"
	BookingSourceManual BookingSource = "MANUAL"
)

// Valid проверяет, что источник входит в известный набор.
func (s BookingSource) Valid() bool {
	switch s {
	case BookingSourceOnline, BookingSourceWalkIn, BookingSourcePhone, BookingSourceManual:
		return true
	}
	return false
}

// bookings
type Booking struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	MerchantID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_booking_merchant_number,priority:1"`
	LocationID uuid.UUID  `gorm:"type:uuid;not null;index"`
	CustomerID uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProviderID *uuid.UUID `gorm:"type:uuid;index:idx_booking_provider_blocked,priority:1"`

	BookingNumber string `gorm:"type:varchar(32);not null;uniqueIndex:idx_booking_merchant_number,priority:2"`

	Status BookingStatus `gorm:"type:varchar(16);not null;index"`

	StartTime time.Time `gorm:"not null;index"`
	EndTime   time.Time `gorm:"not null"`

	// Снимок буферов услуг на момент записи, в минутах.
	PaddingBefore int `gorm:"not null"`
	PaddingAfter  int `gorm:"not null"`

	// Производные от StartTime/EndTime и буферов, пересчитываются в BeforeSave.
	// Хранятся, чтобы проверять пересечения на стороне БД.
	BlockedStart time.Time `gorm:"not null;index:idx_booking_provider_blocked,priority:2"`
	BlockedEnd   time.Time `gorm:"not null"`

	TotalAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaidAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentStatus    PaymentStatus   `gorm:"type:varchar(16);not null"`
	PaymentMethod    string          `gorm:"type:varchar(32)"`
	PaymentReference string          `gorm:"type:varchar(128)"`
	PaidAt           *time.Time

	CheckedInAt        *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancellationReason string `gorm:"type:text"`

	IsOverride     bool   `gorm:"not null"`
	OverrideReason string `gorm:"type:text"`

	Source      BookingSource `gorm:"type:varchar(16);not null"`
	Notes       string        `gorm:"type:text"`
	CreatedByID *uuid.UUID    `gorm:"type:uuid"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	Services []BookingService `gorm:"foreignKey:BookingID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (b *Booking) BeforeCreate(*gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// BeforeSave держит время в UTC и пересчитывает занятый интервал.
func (b *Booking) BeforeSave(*gorm.DB) error {
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	blocked := b.Blocked()
	b.BlockedStart = blocked.Start
	b.BlockedEnd = blocked.End
	return nil
}

func (b Booking) Padding() calendar.Padding {
	return calendar.PaddingMinutes(b.PaddingBefore, b.PaddingAfter)
}

// Blocked — интервал занятости мастера с учётом буферов.
func (b Booking) Blocked() calendar.TimeRange {
	return calendar.BlockedRange(b.StartTime.UTC(), b.EndTime.UTC(), b.Padding())
}

// Interval — время самой услуги, без буферов.
func (b Booking) Interval() calendar.TimeRange {
	return calendar.TimeRange{Start: b.StartTime.UTC(), End: b.EndTime.UTC()}
}

func (b Booking) Duration() time.Duration {
	return b.Interval().Duration()
}

// AssignedTo сообщает, назначена ли бронь на мастера staffID.
func (b Booking) AssignedTo(staffID uuid.UUID) bool {
	return b.ProviderID != nil && *b.ProviderID == staffID
}

// booking_services — позиция брони: услуга и снимок цены/длительности.
type BookingService struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	BookingID uuid.UUID  `gorm:"type:uuid;not null;index"`
	ServiceID uuid.UUID  `gorm:"type:uuid;not null;index"`
	StaffID   *uuid.UUID `gorm:"type:uuid;index"`

	Price           decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DurationMinutes int             `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
}

func (s *BookingService) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
