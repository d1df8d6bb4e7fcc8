package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/booking-engine/internal/booking"
	"github.com/Leganyst/booking-engine/internal/config"
	"github.com/Leganyst/booking-engine/internal/db"
	"github.com/Leganyst/booking-engine/internal/migrations"
	"github.com/Leganyst/booking-engine/internal/model"
	"github.com/Leganyst/booking-engine/internal/repository"
)

// 2025-01-06 — понедельник.
const testDay = "2025-01-06"

type fixture struct {
	t     *testing.T
	store *repository.Store

	merchant model.Merchant
	location model.Location

	// 60 мин + 10 мин буфер после.
	haircut model.Service
	// 30 мин без буферов.
	beard model.Service
	// 50 мин без буферов.
	colour model.Service

	bookings     *BookingService
	availability *AvailabilityService
	now          time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	gdb, err := db.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, model.AutoMigrate(gdb))
	return newFixtureOn(t, gdb)
}

// newPostgresFixture работает с Postgres из переменных DB_*; без DB_HOST
// тест пропускается.
func newPostgresFixture(t *testing.T) *fixture {
	t.Helper()
	if os.Getenv("DB_HOST") == "" {
		t.Skip("DB_HOST is not set")
	}

	cfg, err := config.LoadDBConfig()
	require.NoError(t, err)
	cfg.Driver = "postgres"
	gdb, err := db.NewGormDB(cfg)
	require.NoError(t, err)
	require.NoError(t, migrations.Up(context.Background(), gdb))

	f := newFixtureOn(t, gdb)
	t.Cleanup(func() {
		gdb.Where("merchant_id = ?", f.merchant.ID).Delete(&model.OutboxEvent{})
		gdb.Where("merchant_id = ?", f.merchant.ID).Delete(&model.Booking{})
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return f
}

func newFixtureOn(t *testing.T, gdb *gorm.DB) *fixture {
	t.Helper()

	f := &fixture{
		t:     t,
		store: repository.NewStore(gdb),
		now:   at(t, "2025-01-05T12:00:00Z"),
	}

	hours := model.BusinessHours{}
	for _, day := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		hours[day] = model.DayHours{IsOpen: true, Open: "09:00", Close: "18:00"}
	}
	f.merchant = model.Merchant{
		Name:                "Salon",
		TimeZone:            "UTC",
		BusinessHours:       datatypes.NewJSONType(hours),
		AutoConfirmBookings: true,
	}
	f.create(&f.merchant)

	f.location = model.Location{MerchantID: f.merchant.ID, Name: "Main", IsActive: true}
	f.create(&f.location)

	f.haircut = f.service("Haircut", 60, 0, 10, "50.00")
	f.beard = f.service("Beard", 30, 0, 0, "20.00")
	f.colour = f.service("Colour", 50, 0, 0, "80.00")

	opts := Options{Now: func() time.Time { return f.now }}
	f.bookings = NewBookingService(f.store, opts)
	f.availability = NewAvailabilityService(f.store, opts)
	return f
}

func (f *fixture) create(v any) {
	f.t.Helper()
	require.NoError(f.t, f.store.DB().Create(v).Error)
}

func (f *fixture) service(name string, duration, before, after int, price string) model.Service {
	f.t.Helper()
	s := model.Service{
		MerchantID:      f.merchant.ID,
		Name:            name,
		DurationMinutes: duration,
		PaddingBefore:   before,
		PaddingAfter:    after,
		Price:           decimal.RequireFromString(price),
		IsActive:        true,
	}
	f.create(&s)
	return s
}

// staff создаёт активного мастера филиала. Порядок создания задаёт порядок
// кандидатов при подборе.
func (f *fixture) staff(name string) model.Staff {
	f.t.Helper()
	var count int64
	require.NoError(f.t, f.store.DB().Model(&model.Staff{}).Count(&count).Error)

	s := model.Staff{
		MerchantID: f.merchant.ID,
		Name:       name,
		Status:     model.StaffStatusActive,
		CreatedAt:  f.now.Add(time.Duration(count) * time.Minute),
	}
	f.create(&s)
	f.create(&model.StaffLocation{StaffID: s.ID, LocationID: f.location.ID})
	return s
}

func (f *fixture) input(staff *model.Staff, start string, services ...model.Service) CreateBookingInput {
	f.t.Helper()
	in := CreateBookingInput{
		MerchantID: f.merchant.ID,
		LocationID: f.location.ID,
		CustomerID: uuid.New(),
		StartTime:  at(f.t, testDay+"T"+start+":00Z"),
		Source:     model.BookingSourceManual,
	}
	if staff != nil {
		id := staff.ID
		in.StaffID = &id
	}
	for _, s := range services {
		in.ServiceIDs = append(in.ServiceIDs, s.ID)
	}
	return in
}

func (f *fixture) book(staff *model.Staff, start string, services ...model.Service) *model.Booking {
	f.t.Helper()
	b, err := f.bookings.Create(context.Background(), f.input(staff, start, services...))
	require.NoError(f.t, err)
	return b
}

func (f *fixture) outbox(eventType string) []model.OutboxEvent {
	f.t.Helper()
	var events []model.OutboxEvent
	require.NoError(f.t, f.store.DB().
		Where("event_type = ?", eventType).
		Order("created_at").
		Find(&events).Error)
	return events
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	tm, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return tm
}

func TestCreate_PaddingBlocksAbuttingRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.staff("Anna")

	first := f.book(&anna, "10:00", f.haircut)
	assert.True(t, first.BlockedEnd.Equal(at(t, testDay+"T11:10:00Z")))
	assert.Equal(t, model.BookingStatusConfirmed, first.Status)
	assert.False(t, first.IsOverride)

	// 10:45–11:15 пересекается с 10:00–11:10.
	_, err := f.bookings.Create(ctx, f.input(&anna, "10:45", f.beard))
	var conflict *booking.SchedulingConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, anna.ID.String(), conflict.StaffID)
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, first.ID, conflict.Conflicts[0].BookingID)
	assert.Equal(t, first.BookingNumber, conflict.Conflicts[0].BookingNumber)

	// 11:10–12:00 ровно примыкает к буферу.
	second, err := f.bookings.Create(ctx, f.input(&anna, "11:10", f.colour))
	require.NoError(t, err)
	assert.True(t, second.EndTime.Equal(at(t, testDay+"T12:00:00Z")))

	assert.Len(t, f.outbox(booking.EventCreated), 2)
}

func TestCreate_MultiServiceTotals(t *testing.T) {
	f := newFixture(t)
	anna := f.staff("Anna")

	b := f.book(&anna, "09:00", f.beard, f.haircut)

	assert.True(t, b.EndTime.Equal(at(t, testDay+"T10:30:00Z")))
	assert.Equal(t, 0, b.PaddingBefore)
	assert.Equal(t, 10, b.PaddingAfter)
	assert.True(t, b.TotalAmount.Equal(decimal.RequireFromString("70")))
	assert.Equal(t, model.PaymentStatusUnpaid, b.PaymentStatus)
	require.Len(t, b.Services, 2)
	for _, line := range b.Services {
		assert.Equal(t, anna.ID, *line.StaffID)
	}
	assert.Regexp(t, `^BK[0-9A-Z]+$`, b.BookingNumber)
}

func TestCreate_OverrideFlagsOnlyWhenNeeded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.staff("Anna")
	f.book(&anna, "10:00", f.haircut)

	in := f.input(&anna, "10:30", f.beard)
	in.Override = true
	in.OverrideReason = "VIP"
	forced, err := f.bookings.Create(ctx, in)
	require.NoError(t, err)
	assert.True(t, forced.IsOverride)
	assert.Equal(t, "VIP", forced.OverrideReason)

	in = f.input(&anna, "15:00", f.beard)
	in.Override = true
	in.OverrideReason = "VIP"
	free, err := f.bookings.Create(ctx, in)
	require.NoError(t, err)
	assert.False(t, free.IsOverride)
	assert.Empty(t, free.OverrideReason)
}

func TestCreate_OutsideWorkingHours(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.staff("Anna")

	// 17:00 + 60 + 10 выходит за 18:00.
	_, err := f.bookings.Create(ctx, f.input(&anna, "17:00", f.haircut))
	assert.ErrorIs(t, err, booking.ErrOutsideWorkingHours)

	in := f.input(&anna, "17:00", f.haircut)
	in.Override = true
	b, err := f.bookings.Create(ctx, in)
	require.NoError(t, err)
	assert.True(t, b.IsOverride)
}

func TestCreate_StaffScheduleOverridesBusinessHours(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.staff("Anna")
	f.create(&model.StaffSchedule{StaffID: anna.ID, DayOfWeek: int(time.Monday), StartTime: "12:00", EndTime: "16:00"})

	_, err := f.bookings.Create(ctx, f.input(&anna, "10:00", f.beard))
	assert.ErrorIs(t, err, booking.ErrOutsideWorkingHours)

	_, err = f.bookings.Create(ctx, f.input(&anna, "12:00", f.beard))
	assert.NoError(t, err)
}

func TestCreate_HolidayIsOutsideHours(t *testing.T) {
	f := newFixture(t)
	anna := f.staff("Anna")
	f.create(&model.MerchantHoliday{
		MerchantID: f.merchant.ID,
		Date:       model.HolidayDate(at(t, testDay+"T00:00:00Z")),
		Name:       "Holiday",
		IsDayOff:   true,
	})

	_, err := f.bookings.Create(context.Background(), f.input(&anna, "10:00", f.beard))
	assert.ErrorIs(t, err, booking.ErrOutsideWorkingHours)

	var count int64
	require.NoError(t, f.store.DB().Model(&model.Booking{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.outbox(booking.EventCreated))
}

func TestCreate_InvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.staff("Anna")

	tests := []struct {
		name  string
		input func() CreateBookingInput
	}{
		{"no services", func() CreateBookingInput { return f.input(&anna, "10:00") }},
		{"zero start", func() CreateBookingInput {
			in := f.input(&anna, "10:00", f.beard)
			in.StartTime = time.Time{}
			return in
		}},
		{"unknown service", func() CreateBookingInput {
			in := f.input(&anna, "10:00", f.beard)
			in.ServiceIDs = append(in.ServiceIDs, uuid.New())
			return in
		}},
		{"unknown staff", func() CreateBookingInput {
			return f.input(&model.Staff{ID: uuid.New()}, "10:00", f.beard)
		}},
		{"unknown location", func() CreateBookingInput {
			in := f.input(&anna, "10:00", f.beard)
			in.LocationID = uuid.New()
			return in
		}},
		{"unknown source", func() CreateBookingInput {
			in := f.input(&anna, "10:00", f.beard)
			in.Source = "FAX"
			return in
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bookings.Create(ctx, tt.input())
			assert.ErrorIs(t, err, booking.ErrInvalidInterval)
		})
	}
}

func TestCreate_StaffMustWorkAtLocation(t *testing.T) {
	f := newFixture(t)
	other := model.Location{MerchantID: f.merchant.ID, Name: "Second", IsActive: true}
	f.create(&other)
	anna := f.staff("Anna")

	in := f.input(&anna, "10:00", f.beard)
	in.LocationID = other.ID
	_, err := f.bookings.Create(context.Background(), in)
	assert.ErrorIs(t, err, booking.ErrInvalidInterval)
}

func TestCreate_OnlinePendingWithoutAutoConfirm(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.DB().Model(&f.merchant).Update("auto_confirm_bookings", false).Error)
	anna := f.staff("Anna")

	in := f.input(&anna, "10:00", f.beard)
	in.Source = model.BookingSourceOnline
	b, err := f.bookings.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusPending, b.Status)

	in = f.input(&anna, "11:00", f.beard)
	in.Source = model.BookingSourcePhone
	b, err = f.bookings.Create(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, b.Status)
}

func TestCreate_AutoAssignPrefersLowestWorkload(t *testing.T) {
	f := newFixture(t)
	anna := f.staff("Anna")
	boris := f.staff("Boris")
	clara := f.staff("Clara")

	f.book(&anna, "09:00", f.beard)
	f.book(&anna, "13:00", f.beard)
	f.book(&clara, "14:00", f.beard)

	b := f.book(nil, "11:00", f.beard)
	assert.Equal(t, boris.ID, *b.ProviderID)

	// Теперь у Бориса и Клары по одной брони: выигрывает тот, кто раньше в списке.
	b = f.book(nil, "15:00", f.beard)
	assert.Equal(t, boris.ID, *b.ProviderID)
}

func TestCreate_AutoAssignSkipsBusyAndOffStaff(t *testing.T) {
	f := newFixture(t)
	anna := f.staff("Anna")
	boris := f.staff("Boris")
	f.create(&model.StaffSchedule{StaffID: boris.ID, DayOfWeek: int(time.Monday), StartTime: "14:00", EndTime: "18:00"})

	placeholder := model.Staff{MerchantID: f.merchant.ID, Name: "Unassigned", Status: model.StaffStatusActive, IsPlaceholder: true}
	f.create(&placeholder)
	f.create(&model.StaffLocation{StaffID: placeholder.ID, LocationID: f.location.ID})

	f.book(&anna, "10:00", f.haircut)

	_, err := f.bookings.Create(context.Background(), f.input(nil, "10:30", f.beard))
	var noStaff *booking.NoStaffAvailableError
	require.ErrorAs(t, err, &noStaff)
	require.Len(t, noStaff.Checked, 2)

	reasons := map[uuid.UUID]string{}
	for _, u := range noStaff.Checked {
		reasons[u.Staff.ID] = u.Reason
	}
	assert.Equal(t, reasonOutsideHours, reasons[boris.ID])
	assert.Contains(t, reasons[anna.ID], "Busy at")
}

func TestCreate_ConcurrentRequestsBookOnce(t *testing.T) {
	assertBookedOnce(t, newFixture(t))
}

func TestCreate_ConcurrentRequestsBookOnce_Postgres(t *testing.T) {
	assertBookedOnce(t, newPostgresFixture(t))
}

func TestClassify_ExclusionViolation(t *testing.T) {
	err := classify(context.Background(), fmt.Errorf("insert booking: %w", &pgconn.PgError{
		Code:           "23P01",
		ConstraintName: "bookings_no_overlap",
	}))
	assert.ErrorIs(t, err, booking.ErrPersistenceConflict)

	err = classify(context.Background(), &pgconn.PgError{Code: "23503"})
	assert.NotErrorIs(t, err, booking.ErrPersistenceConflict)
}

// assertBookedOnce отправляет одинаковые запросы параллельно: ровно один
// должен записать клиента.
func assertBookedOnce(t *testing.T, f *fixture) {
	t.Helper()
	anna := f.staff("Anna")

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.bookings.Create(context.Background(), f.input(&anna, "10:00", f.haircut))

			mu.Lock()
			defer mu.Unlock()
			var conflict *booking.SchedulingConflictError
			switch {
			case err == nil:
				created++
			case errors.As(err, &conflict), errors.Is(err, booking.ErrPersistenceConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflicts)
}

func TestReschedule_ExcludesOwnInterval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.staff("Anna")
	b := f.book(&anna, "10:00", f.haircut)
	f.book(&anna, "12:00", f.beard)

	// Сдвиг на 30 минут пересекается только с самой бронью.
	moved, err := f.bookings.Reschedule(ctx, RescheduleInput{
		MerchantID: f.merchant.ID,
		BookingID:  b.ID,
		StartTime:  at(t, testDay+"T10:30:00Z"),
	})
	require.NoError(t, err)
	assert.True(t, moved.StartTime.Equal(at(t, testDay+"T10:30:00Z")))
	assert.True(t, moved.EndTime.Equal(at(t, testDay+"T11:30:00Z")))
	assert.True(t, moved.BlockedEnd.Equal(at(t, testDay+"T11:40:00Z")))

	// 11:30–12:40 задевает бронь в 12:00.
	_, err = f.bookings.Reschedule(ctx, RescheduleInput{
		MerchantID: f.merchant.ID,
		BookingID:  b.ID,
		StartTime:  at(t, testDay+"T11:30:00Z"),
	})
	var conflict *booking.SchedulingConflictError
	require.ErrorAs(t, err, &conflict)

	stored, err := f.bookings.Get(ctx, f.merchant.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartTime.Equal(at(t, testDay+"T10:30:00Z")))

	events := f.outbox(booking.EventRescheduled)
	require.Len(t, events, 1)
	assert.Contains(t, string(events[0].Payload), "previousStartTime")
}

func TestReschedule_ToAnotherStaff(t *testing.T) {
	f := newFixture(t)
	anna := f.staff("Anna")
	boris := f.staff("Boris")
	b := f.book(&anna, "10:00", f.beard)

	moved, err := f.bookings.Reschedule(context.Background(), RescheduleInput{
		MerchantID: f.merchant.ID,
		BookingID:  b.ID,
		StartTime:  at(t, testDay+"T10:00:00Z"),
		StaffID:    &boris.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, boris.ID, *moved.ProviderID)

	stored, err := f.bookings.Get(context.Background(), f.merchant.ID, b.ID)
	require.NoError(t, err)
	require.Len(t, stored.Services, 1)
	assert.Equal(t, boris.ID, *stored.Services[0].StaffID)
}

func TestReschedule_TerminalBookingRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.staff("Anna")
	b := f.book(&anna, "10:00", f.beard)

	_, err := f.bookings.Cancel(ctx, f.merchant.ID, b.ID, "client asked")
	require.NoError(t, err)

	_, err = f.bookings.Reschedule(ctx, RescheduleInput{
		MerchantID: f.merchant.ID,
		BookingID:  b.ID,
		StartTime:  at(t, testDay+"T12:00:00Z"),
	})
	var transition *booking.InvalidTransitionError
	assert.ErrorAs(t, err, &transition)
}

func TestTransitions_FullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.DB().Model(&f.merchant).Update("auto_confirm_bookings", false).Error)
	anna := f.staff("Anna")

	in := f.input(&anna, "10:00", f.beard)
	in.Source = model.BookingSourceOnline
	b, err := f.bookings.Create(ctx, in)
	require.NoError(t, err)
	require.Equal(t, model.BookingStatusPending, b.Status)

	steps := []struct {
		do   func(context.Context, uuid.UUID, uuid.UUID) (*model.Booking, error)
		want model.BookingStatus
	}{
		{f.bookings.Confirm, model.BookingStatusConfirmed},
		{f.bookings.CheckIn, model.BookingStatusCheckedIn},
		{f.bookings.Start, model.BookingStatusInProgress},
		{f.bookings.Complete, model.BookingStatusCompleted},
	}
	for _, step := range steps {
		got, err := step.do(ctx, f.merchant.ID, b.ID)
		require.NoError(t, err)
		assert.Equal(t, step.want, got.Status)
	}

	completed, err := f.bookings.Get(ctx, f.merchant.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)
	completedAt := *completed.CompletedAt

	f.now = f.now.Add(time.Hour)
	_, err = f.bookings.Confirm(ctx, f.merchant.ID, b.ID)
	var transition *booking.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, model.BookingStatusCompleted, transition.From)

	_, err = f.bookings.Complete(ctx, f.merchant.ID, b.ID)
	require.ErrorAs(t, err, &transition)

	stored, err := f.bookings.Get(ctx, f.merchant.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCompleted, stored.Status)
	assert.True(t, stored.CompletedAt.Equal(completedAt))

	assert.Len(t, f.outbox(booking.EventCompleted), 1)
}

func TestTransitions_CancelFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.staff("Anna")
	b := f.book(&anna, "10:00", f.haircut)

	cancelled, err := f.bookings.Cancel(ctx, f.merchant.ID, b.ID, "sick")
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, "sick", cancelled.CancellationReason)
	require.NotNil(t, cancelled.CancelledAt)

	events := f.outbox(booking.EventCancelled)
	require.Len(t, events, 1)
	assert.Equal(t, b.ID, events[0].AggregateID)
	assert.Equal(t, booking.AggregateType, events[0].AggregateType)
	assert.Nil(t, events[0].ProcessedAt)

	f.book(&anna, "10:00", f.haircut)
}

func TestTransitions_NoShowAndUnknown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.staff("Anna")
	b := f.book(&anna, "10:00", f.beard)

	got, err := f.bookings.MarkNoShow(ctx, f.merchant.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusNoShow, got.Status)
	assert.Len(t, f.outbox(booking.EventNoShow), 1)

	_, err = f.bookings.Transition(ctx, f.merchant.ID, b.ID, "teleport", "")
	var transition *booking.InvalidTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, `unknown booking action "teleport"`, err.Error())

	_, err = f.bookings.Confirm(ctx, f.merchant.ID, uuid.New())
	assert.ErrorIs(t, err, booking.ErrNotFound)

	_, err = f.bookings.Get(ctx, uuid.New(), b.ID)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.staff("Anna")
	b := f.book(&anna, "10:00", f.haircut)

	got, err := f.bookings.RecordPayment(ctx, f.merchant.ID, b.ID, PaymentInput{
		Amount: decimal.RequireFromString("20"),
		Method: "cash",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPartial, got.PaymentStatus)

	got, err = f.bookings.RecordPayment(ctx, f.merchant.ID, b.ID, PaymentInput{
		Amount:    decimal.RequireFromString("100"),
		Method:    "card",
		Reference: "txn-1",
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)
	assert.True(t, got.PaidAmount.Equal(decimal.RequireFromString("50")))
	require.NotNil(t, got.PaidAt)

	_, err = f.bookings.RecordPayment(ctx, f.merchant.ID, b.ID, PaymentInput{Amount: decimal.RequireFromString("1")})
	assert.ErrorIs(t, err, booking.ErrInvalidPayment)

	_, err = f.bookings.Refund(ctx, f.merchant.ID, b.ID, decimal.RequireFromString("60"), "too much")
	assert.ErrorIs(t, err, booking.ErrInvalidPayment)

	got, err = f.bookings.Refund(ctx, f.merchant.ID, b.ID, decimal.RequireFromString("50"), "complaint")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, got.PaymentStatus)

	assert.Len(t, f.outbox(booking.EventPaymentRecorded), 2)
	assert.Len(t, f.outbox(booking.EventPaymentRefunded), 1)
}

func TestAvailability_SlotsAgreeWithCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	anna := f.staff("Anna")
	f.book(&anna, "10:00", f.haircut)

	page, err := f.availability.Slots(ctx, AvailabilityQuery{
		MerchantID: f.merchant.ID,
		StaffID:    anna.ID,
		ServiceID:  f.beard.ID,
		From:       at(t, testDay+"T09:00:00Z"),
		To:         at(t, testDay+"T12:00:00Z"),
		Interval:   30 * time.Minute,
	})
	require.NoError(t, err)

	free := map[string]bool{}
	for _, s := range page.Items {
		free[s.Start.Format("15:04")] = s.Available
	}
	assert.Equal(t, map[string]bool{
		"09:00": true,
		"09:30": true,
		"10:00": false,
		"10:30": false,
		"11:00": false,
		"11:30": true,
	}, free)

	for _, s := range page.Items {
		in := f.input(&anna, s.Start.Format("15:04"), f.beard)
		_, err := f.bookings.Create(ctx, in)
		if s.Available {
			assert.NoError(t, err, "slot %s", s.Start)
			continue
		}
		var conflict *booking.SchedulingConflictError
		assert.ErrorAs(t, err, &conflict, "slot %s", s.Start)
	}
}

func TestAvailability_SlotsPagination(t *testing.T) {
	f := newFixture(t)
	anna := f.staff("Anna")
	f.book(&anna, "09:00", f.haircut)

	page, err := f.availability.Slots(context.Background(), AvailabilityQuery{
		MerchantID:    f.merchant.ID,
		StaffID:       anna.ID,
		ServiceID:     f.beard.ID,
		From:          at(t, testDay+"T09:00:00Z"),
		To:            at(t, testDay+"T18:00:00Z"),
		Interval:      30 * time.Minute,
		PageSize:      5,
		OnlyAvailable: true,
	})
	require.NoError(t, err)

	// 18 стартов за день, три из них занимает 09:00–10:10.
	assert.Equal(t, 15, page.Total)
	assert.Len(t, page.Items, 5)
	assert.True(t, page.HasNext)
	assert.True(t, page.Items[0].Start.Equal(at(t, testDay+"T10:30:00Z")))
}

func TestAvailability_DateBoundsUseMerchantZone(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.DB().Model(&f.merchant).Update("time_zone", "Australia/Sydney").Error)
	anna := f.staff("Anna")
	sydney, err := time.LoadLocation("Australia/Sydney")
	require.NoError(t, err)

	// Так handler передаёт startDate=endDate=2025-01-06: полночь UTC и
	// следующий день для включительной даты окончания.
	page, err := f.availability.Slots(context.Background(), AvailabilityQuery{
		MerchantID: f.merchant.ID,
		StaffID:    anna.ID,
		ServiceID:  f.beard.ID,
		From:       at(t, "2025-01-06T00:00:00Z"),
		To:         at(t, "2025-01-07T00:00:00Z"),
		FromIsDate: true,
		ToIsDate:   true,
		Interval:   30 * time.Minute,
		PageSize:   100,
	})
	require.NoError(t, err)

	// 09:00–18:00 по Сиднею, слоты по 30 минут.
	require.Equal(t, 18, page.Total)
	for _, slot := range page.Items {
		assert.Equal(t, testDay, slot.Start.In(sydney).Format(time.DateOnly))
	}
	assert.True(t, page.Items[0].Start.Equal(time.Date(2025, 1, 6, 9, 0, 0, 0, sydney)))
	assert.True(t, page.Items[17].Start.Equal(time.Date(2025, 1, 6, 17, 30, 0, 0, sydney)))
}

func TestAvailability_SlotsRejectsBadQuery(t *testing.T) {
	f := newFixture(t)
	anna := f.staff("Anna")

	_, err := f.availability.Slots(context.Background(), AvailabilityQuery{
		MerchantID: f.merchant.ID,
		StaffID:    anna.ID,
		ServiceID:  uuid.New(),
		From:       at(t, testDay+"T09:00:00Z"),
		To:         at(t, testDay+"T18:00:00Z"),
	})
	assert.ErrorIs(t, err, booking.ErrInvalidInterval)

	_, err = f.availability.Slots(context.Background(), AvailabilityQuery{
		MerchantID: f.merchant.ID,
		StaffID:    anna.ID,
		ServiceID:  f.beard.ID,
	})
	assert.ErrorIs(t, err, booking.ErrInvalidInterval)
}

func TestAvailability_NextAvailableDoesNotWrite(t *testing.T) {
	f := newFixture(t)
	anna := f.staff("Anna")
	boris := f.staff("Boris")
	f.book(&anna, "10:00", f.haircut)

	got, err := f.availability.NextAvailable(context.Background(), NextAvailableQuery{
		MerchantID: f.merchant.ID,
		LocationID: f.location.ID,
		ServiceID:  f.beard.ID,
		StartTime:  at(t, testDay+"T10:30:00Z"),
	})
	require.NoError(t, err)
	require.NotNil(t, got.Assigned)
	assert.Equal(t, boris.ID, got.Assigned.ID)
	assert.Equal(t, "1 of 2 staff available", got.Message)
	require.Len(t, got.Unavailable, 1)
	assert.Equal(t, anna.ID, got.Unavailable[0].Staff.ID)

	var count int64
	require.NoError(t, f.store.DB().Model(&model.Booking{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
