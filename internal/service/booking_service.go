package service

import (
	"context"
	"database/sql"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Leganyst/booking-engine/internal/booking"
	"github.com/Leganyst/booking-engine/internal/calendar"
	"github.com/Leganyst/booking-engine/internal/model"
	"github.com/Leganyst/booking-engine/internal/repository"
	"github.com/Leganyst/booking-engine/internal/scheduling"
)

const DefaultTxTimeout = 10 * time.Second

// Options — общие настройки сервисов.
type Options struct {
	// Ограничение на всю транзакцию записи, включая ожидание блокировок.
	TxTimeout time.Duration
	Isolation sql.IsolationLevel
	Logger    *slog.Logger
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TxTimeout <= 0 {
		o.TxTimeout = DefaultTxTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// BookingService — запись, перенос и смена статусов броней.
// Проверка конфликтов и запись выполняются в одной транзакции под
// блокировкой (мастер, день).
type BookingService struct {
	store  *repository.Store
	opts   Options
	logger *slog.Logger
	tracer trace.Tracer
}

func NewBookingService(store *repository.Store, opts Options) *BookingService {
	opts = opts.withDefaults()
	return &BookingService{
		store:  store,
		opts:   opts,
		logger: opts.Logger.With(slog.String("component", "booking")),
		tracer: otel.Tracer("github.com/Leganyst/booking-engine/internal/service"),
	}
}

type CreateBookingInput struct {
	MerchantID uuid.UUID
	LocationID uuid.UUID
	CustomerID uuid.UUID
	// nil — подобрать мастера автоматически.
	StaffID *uuid.UUID
	// Услуги в порядке оказания; повторы допустимы.
	ServiceIDs []uuid.UUID
	StartTime  time.Time

	Source      model.BookingSource
	Notes       string
	CreatedByID *uuid.UUID

	// Ручная двойная запись: бронь создаётся, даже если есть конфликты
	// или время вне расписания.
	Override       bool
	OverrideReason string
}

func (in CreateBookingInput) validate() error {
	switch {
	case in.MerchantID == uuid.Nil:
		return invalid("merchant is required")
	case in.LocationID == uuid.Nil:
		return invalid("location is required")
	case in.CustomerID == uuid.Nil:
		return invalid("customer is required")
	case len(in.ServiceIDs) == 0:
		return invalid("at least one service is required")
	case in.StartTime.IsZero():
		return invalid("start time is required")
	case in.Source != "" && !in.Source.Valid():
		return invalid("unknown source %q", in.Source)
	}
	return nil
}

type RescheduleInput struct {
	MerchantID uuid.UUID
	BookingID  uuid.UUID
	StartTime  time.Time
	// nil — оставить текущего мастера.
	StaffID *uuid.UUID

	Override       bool
	OverrideReason string
}

// plan — рассчитанные параметры брони по списку услуг.
type plan struct {
	services []model.Service
	start    time.Time
	end      time.Time
	padding  calendar.Padding
	blocked  calendar.TimeRange
	total    decimal.Decimal
}

func newPlan(services []model.Service, start time.Time) (plan, error) {
	p := plan{services: services, start: start.UTC(), total: decimal.Zero}

	var duration time.Duration
	for _, s := range services {
		if !s.IsActive {
			return plan{}, invalid("service %s is not active", s.ID)
		}
		duration += s.Duration()
		p.total = p.total.Add(s.Price)
	}
	interval, err := calendar.NewTimeRange(p.start, p.start.Add(duration))
	if err != nil {
		return plan{}, invalid("total duration must be positive")
	}

	p.end = interval.End
	p.padding = calendar.Padding{
		Before: services[0].Padding().Before,
		After:  services[len(services)-1].Padding().After,
	}
	p.blocked = calendar.BlockedRange(p.start, p.end, p.padding)
	return p, nil
}

// placement — выбранный мастер и признак использованного овердрайва.
type placement struct {
	staff    model.Staff
	override bool
}

// Create записывает клиента. Ошибки: ErrInvalidInterval,
// ErrOutsideWorkingHours, *SchedulingConflictError, *NoStaffAvailableError,
// ErrPersistenceConflict.
func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (*model.Booking, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Source == "" {
		in.Source = model.BookingSourceManual
	}

	ctx, span := s.tracer.Start(ctx, "booking.create", trace.WithAttributes(
		attribute.String("merchant.id", in.MerchantID.String()),
		attribute.String("location.id", in.LocationID.String()),
		attribute.Bool("booking.override", in.Override),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	var created *model.Booking
	err := s.store.InTx(ctx, s.txOptions(), func(tx *repository.Store) error {
		merchant, err := tx.Catalog.GetMerchant(ctx, in.MerchantID)
		if err != nil {
			return lookup(err, "merchant")
		}
		location, err := tx.Catalog.GetLocation(ctx, in.MerchantID, in.LocationID)
		if err != nil {
			return lookup(err, "location")
		}
		if !location.IsActive {
			return invalid("location %s is not active", location.ID)
		}

		services, err := tx.Catalog.ListServices(ctx, in.MerchantID, in.ServiceIDs)
		if err != nil {
			return err
		}
		if len(services) != len(in.ServiceIDs) {
			return invalid("service not found")
		}

		p, err := newPlan(services, in.StartTime)
		if err != nil {
			return err
		}

		var place placement
		if in.StaffID != nil {
			place, err = s.placeWithStaff(ctx, tx, merchant, location.ID, *in.StaffID, p, uuid.Nil, in.Override)
		} else {
			place, err = s.placeAuto(ctx, tx, merchant, location.ID, p, uuid.Nil, in.Override)
		}
		if err != nil {
			return err
		}

		now := s.opts.Now().UTC()
		b := s.newBooking(in, merchant, p, place, now)
		if err := tx.Bookings.Create(ctx, b); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, booking.Created(b, now)); err != nil {
			return err
		}

		created = b
		return nil
	})
	if err = classify(ctx, err); err != nil {
		s.fail(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("booking.id", created.ID.String()))
	s.logger.Info("booking created",
		slog.String("booking_id", created.ID.String()),
		slog.String("booking_number", created.BookingNumber),
		slog.String("staff_id", created.ProviderID.String()),
		slog.String("status", string(created.Status)),
		slog.Bool("override", created.IsOverride),
	)
	return created, nil
}

func (s *BookingService) newBooking(
	in CreateBookingInput,
	merchant *model.Merchant,
	p plan,
	place placement,
	now time.Time,
) *model.Booking {
	status := model.BookingStatusConfirmed
	if in.Source == model.BookingSourceOnline && !merchant.AutoConfirmBookings {
		status = model.BookingStatusPending
	}

	staffID := place.staff.ID
	b := &model.Booking{
		MerchantID:    in.MerchantID,
		LocationID:    in.LocationID,
		CustomerID:    in.CustomerID,
		ProviderID:    &staffID,
		BookingNumber: booking.NewNumber(now),
		Status:        status,
		StartTime:     p.start,
		EndTime:       p.end,
		PaddingBefore: int(p.padding.Before / time.Minute),
		PaddingAfter:  int(p.padding.After / time.Minute),
		TotalAmount:   p.total,
		PaidAmount:    decimal.Zero,
		PaymentStatus: model.PaymentStatusUnpaid,
		Source:        in.Source,
		Notes:         in.Notes,
		CreatedByID:   in.CreatedByID,
		IsOverride:    place.override,
	}
	if place.override {
		b.OverrideReason = in.OverrideReason
	}

	for _, svc := range p.services {
		b.Services = append(b.Services, model.BookingService{
			ServiceID:       svc.ID,
			StaffID:         &staffID,
			Price:           svc.Price,
			DurationMinutes: svc.DurationMinutes,
		})
	}
	return b
}

// placeWithStaff проверяет выбранного мастера под блокировкой (мастер, день).
func (s *BookingService) placeWithStaff(
	ctx context.Context,
	tx *repository.Store,
	merchant *model.Merchant,
	locationID, staffID uuid.UUID,
	p plan,
	exclude uuid.UUID,
	override bool,
) (placement, error) {
	staff, err := tx.Catalog.GetStaff(ctx, merchant.ID, staffID)
	if err != nil {
		return placement{}, lookup(err, "staff")
	}
	if !staff.Assignable() {
		return placement{}, invalid("staff %s cannot take bookings", staff.ID)
	}
	works, err := tx.Catalog.StaffWorksAt(ctx, staff.ID, locationID)
	if err != nil {
		return placement{}, err
	}
	if !works {
		return placement{}, invalid("staff %s does not work at location %s", staff.ID, locationID)
	}

	loc := merchant.Location()
	if err := tx.Locks.LockStaffDay(ctx, staff.ID, p.start.In(loc)); err != nil {
		return placement{}, err
	}

	holidays, err := tx.Catalog.ListHolidays(ctx, merchant.ID, p.start.In(loc), p.start.In(loc))
	if err != nil {
		return placement{}, err
	}
	inHours := worksDuring(*staff, merchant, p.start, p.end, p.padding, scheduling.DaysOff(holidays))
	if !inHours && !override {
		return placement{}, booking.ErrOutsideWorkingHours
	}

	from, to := bookingWindow(p.start, p.blocked, loc)
	existing, err := tx.Bookings.ListForStaff(ctx, []uuid.UUID{staff.ID}, from, to)
	if err != nil {
		return placement{}, err
	}

	conflicts := scheduling.FindConflicts(staff.ID, p.blocked, existing, exclude)
	if len(conflicts) > 0 && !override {
		return placement{}, &booking.SchedulingConflictError{StaffID: staff.ID.String(), Conflicts: conflicts}
	}

	return placement{staff: *staff, override: len(conflicts) > 0 || !inHours}, nil
}

// placeAuto подбирает наименее загруженного свободного мастера филиала.
// Блокировки берутся по всем кандидатам в порядке ID.
func (s *BookingService) placeAuto(
	ctx context.Context,
	tx *repository.Store,
	merchant *model.Merchant,
	locationID uuid.UUID,
	p plan,
	exclude uuid.UUID,
	override bool,
) (placement, error) {
	candidates, err := tx.Catalog.ListStaffByLocation(ctx, merchant.ID, locationID)
	if err != nil {
		return placement{}, err
	}

	loc := merchant.Location()
	ids := make([]uuid.UUID, 0, len(candidates))
	for _, st := range candidates {
		if st.Assignable() {
			ids = append(ids, st.ID)
		}
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})
	for _, id := range ids {
		if err := tx.Locks.LockStaffDay(ctx, id, p.start.In(loc)); err != nil {
			return placement{}, err
		}
	}

	holidays, err := tx.Catalog.ListHolidays(ctx, merchant.ID, p.start.In(loc), p.start.In(loc))
	if err != nil {
		return placement{}, err
	}
	daysOff := scheduling.DaysOff(holidays)

	working, off := splitByHours(candidates, merchant, p.start, p.end, p.padding, daysOff)
	if override {
		// Овердрайв снимает только ограничение по часам, не по конфликтам.
		working, off = candidates, nil
	}

	from, to := bookingWindow(p.start, p.blocked, loc)
	existing, err := tx.Bookings.ListForStaff(ctx, ids, from, to)
	if err != nil {
		return placement{}, err
	}

	assignment := scheduling.ResolveStaff(scheduling.AssignmentRequest{
		Start:            p.start,
		End:              p.end,
		Padding:          p.padding,
		ExcludeBookingID: exclude,
		Location:         loc,
	}, working, existing)

	if assignment.Assigned == nil {
		return placement{}, &booking.NoStaffAvailableError{Checked: append(off, assignment.Unavailable...)}
	}

	staff := *assignment.Assigned
	return placement{
		staff:    staff,
		override: override && !worksDuring(staff, merchant, p.start, p.end, p.padding, daysOff),
	}, nil
}

// Reschedule переносит бронь. Длительность сохраняется; собственный интервал
// брони конфликтом не считается.
func (s *BookingService) Reschedule(ctx context.Context, in RescheduleInput) (*model.Booking, error) {
	switch {
	case in.MerchantID == uuid.Nil || in.BookingID == uuid.Nil:
		return nil, invalid("merchant and booking are required")
	case in.StartTime.IsZero():
		return nil, invalid("start time is required")
	}

	ctx, span := s.tracer.Start(ctx, "booking.reschedule", trace.WithAttributes(
		attribute.String("booking.id", in.BookingID.String()),
		attribute.Bool("booking.override", in.Override),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	var updated *model.Booking
	err := s.store.InTx(ctx, s.txOptions(), func(tx *repository.Store) error {
		b, err := tx.Bookings.GetForUpdate(ctx, in.MerchantID, in.BookingID)
		if err != nil {
			return err
		}
		if !booking.CanReschedule(b.Status) {
			return &booking.InvalidTransitionError{From: b.Status, Action: booking.ActionReschedule}
		}

		merchant, err := tx.Catalog.GetMerchant(ctx, in.MerchantID)
		if err != nil {
			return lookup(err, "merchant")
		}

		start := in.StartTime.UTC()
		end := start.Add(b.Duration())
		padding := b.Padding()
		p := plan{
			start:   start,
			end:     end,
			padding: padding,
			blocked: calendar.BlockedRange(start, end, padding),
		}

		staffID := in.StaffID
		if staffID == nil {
			staffID = b.ProviderID
		}

		var place placement
		if staffID != nil {
			place, err = s.placeWithStaff(ctx, tx, merchant, b.LocationID, *staffID, p, b.ID, in.Override)
		} else {
			place, err = s.placeAuto(ctx, tx, merchant, b.LocationID, p, b.ID, in.Override)
		}
		if err != nil {
			return err
		}

		ev, err := booking.Reschedule(b, start, end, &place.staff, booking.Options{Now: s.opts.Now()})
		if err != nil {
			return err
		}
		b.IsOverride = place.override
		b.OverrideReason = ""
		if place.override {
			b.OverrideReason = in.OverrideReason
		}

		if err := tx.Bookings.Update(ctx, b); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, ev); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err = classify(ctx, err); err != nil {
		s.fail(span, err)
		return nil, err
	}

	s.logger.Info("booking rescheduled",
		slog.String("booking_id", updated.ID.String()),
		slog.Time("start_time", updated.StartTime),
		slog.String("staff_id", updated.ProviderID.String()),
		slog.Bool("override", updated.IsOverride),
	)
	return updated, nil
}

func (s *BookingService) Confirm(ctx context.Context, merchantID, id uuid.UUID) (*model.Booking, error) {
	return s.transition(ctx, merchantID, id, booking.ActionConfirm, "")
}

func (s *BookingService) CheckIn(ctx context.Context, merchantID, id uuid.UUID) (*model.Booking, error) {
	return s.transition(ctx, merchantID, id, booking.ActionCheckIn, "")
}

func (s *BookingService) Start(ctx context.Context, merchantID, id uuid.UUID) (*model.Booking, error) {
	return s.transition(ctx, merchantID, id, booking.ActionStart, "")
}

func (s *BookingService) Complete(ctx context.Context, merchantID, id uuid.UUID) (*model.Booking, error) {
	return s.transition(ctx, merchantID, id, booking.ActionComplete, "")
}

func (s *BookingService) Cancel(ctx context.Context, merchantID, id uuid.UUID, reason string) (*model.Booking, error) {
	return s.transition(ctx, merchantID, id, booking.ActionCancel, reason)
}

func (s *BookingService) MarkNoShow(ctx context.Context, merchantID, id uuid.UUID) (*model.Booking, error) {
	return s.transition(ctx, merchantID, id, booking.ActionNoShow, "")
}

// Transition выполняет действие машины состояний по его имени.
func (s *BookingService) Transition(
	ctx context.Context,
	merchantID, id uuid.UUID,
	action booking.Action,
	reason string,
) (*model.Booking, error) {
	return s.transition(ctx, merchantID, id, action, reason)
}

func (s *BookingService) transition(
	ctx context.Context,
	merchantID, id uuid.UUID,
	action booking.Action,
	reason string,
) (*model.Booking, error) {
	if _, ok := booking.Target(action); !ok {
		return nil, &booking.InvalidTransitionError{Action: action}
	}
	return s.mutate(ctx, "booking."+string(action), merchantID, id, func(b *model.Booking) (booking.Event, error) {
		return booking.Apply(b, action, booking.Options{Now: s.opts.Now(), Reason: reason})
	})
}

type PaymentInput struct {
	Amount    decimal.Decimal
	Method    string
	Reference string
}

func (s *BookingService) RecordPayment(ctx context.Context, merchantID, id uuid.UUID, in PaymentInput) (*model.Booking, error) {
	return s.mutate(ctx, "booking.payment", merchantID, id, func(b *model.Booking) (booking.Event, error) {
		return booking.RecordPayment(b, booking.Payment{
			Amount:    in.Amount,
			Method:    in.Method,
			Reference: in.Reference,
			Now:       s.opts.Now(),
		})
	})
}

func (s *BookingService) Refund(ctx context.Context, merchantID, id uuid.UUID, amount decimal.Decimal, reason string) (*model.Booking, error) {
	return s.mutate(ctx, "booking.refund", merchantID, id, func(b *model.Booking) (booking.Event, error) {
		return booking.Refund(b, amount, reason, s.opts.Now())
	})
}

// mutate блокирует строку брони, применяет fn и сохраняет результат вместе
// с событием. Если fn вернул ошибку, в БД ничего не меняется.
func (s *BookingService) mutate(
	ctx context.Context,
	spanName string,
	merchantID, id uuid.UUID,
	fn func(b *model.Booking) (booking.Event, error),
) (*model.Booking, error) {
	ctx, span := s.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("booking.id", id.String()),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
	defer cancel()

	var updated *model.Booking
	err := s.store.InTx(ctx, s.txOptions(), func(tx *repository.Store) error {
		b, err := tx.Bookings.GetForUpdate(ctx, merchantID, id)
		if err != nil {
			return err
		}

		ev, err := fn(b)
		if err != nil {
			return err
		}

		if err := tx.Bookings.Update(ctx, b); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, ev); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err = classify(ctx, err); err != nil {
		s.fail(span, err)
		return nil, err
	}

	s.logger.Info("booking updated",
		slog.String("operation", spanName),
		slog.String("booking_id", updated.ID.String()),
		slog.String("status", string(updated.Status)),
		slog.String("payment_status", string(updated.PaymentStatus)),
	)
	return updated, nil
}

func (s *BookingService) Get(ctx context.Context, merchantID, id uuid.UUID) (*model.Booking, error) {
	b, err := s.store.Bookings.GetByID(ctx, merchantID, id)
	if err != nil {
		return nil, classify(ctx, err)
	}
	return b, nil
}

func (s *BookingService) txOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: s.opts.Isolation}
}

func (s *BookingService) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
