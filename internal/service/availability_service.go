package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Leganyst/booking-engine/internal/calendar"
	"github.com/Leganyst/booking-engine/internal/model"
	"github.com/Leganyst/booking-engine/internal/repository"
	"github.com/Leganyst/booking-engine/internal/scheduling"
)

// MaxSlotRange — максимальная длина окна запроса слотов.
const MaxSlotRange = 31 * 24 * time.Hour

// AvailabilityService отвечает на вопросы «когда свободен мастер» и
// «кто свободен в это время». Ничего не пишет и блокировок не берёт.
type AvailabilityService struct {
	store  *repository.Store
	logger *slog.Logger
	tracer trace.Tracer
}

func NewAvailabilityService(store *repository.Store, opts Options) *AvailabilityService {
	opts = opts.withDefaults()
	return &AvailabilityService{
		store:  store,
		logger: opts.Logger.With(slog.String("component", "availability")),
		tracer: otel.Tracer("github.com/Leganyst/booking-engine/internal/service"),
	}
}

type AvailabilityQuery struct {
	MerchantID uuid.UUID
	StaffID    uuid.UUID
	ServiceID  uuid.UUID
	From       time.Time
	To         time.Time
	// Границы заданы датой без времени: берётся полночь этой даты в поясе
	// салона.
	FromIsDate bool
	ToIsDate   bool
	// 0 — DefaultSlotInterval.
	Interval time.Duration

	Page     int
	PageSize int
	// Вернуть только свободные слоты.
	OnlyAvailable bool
}

// Slots перечисляет слоты мастера для услуги в [From, To) с пометкой,
// свободен ли слот и с какими бронями он конфликтует.
func (s *AvailabilityService) Slots(ctx context.Context, q AvailabilityQuery) (calendar.Page[scheduling.AnnotatedSlot], error) {
	var empty calendar.Page[scheduling.AnnotatedSlot]
	if q.MerchantID == uuid.Nil || q.StaffID == uuid.Nil || q.ServiceID == uuid.Nil {
		return empty, invalid("merchant, staff and service are required")
	}
	if q.Interval < 0 {
		return empty, invalid("interval must be positive")
	}

	ctx, span := s.tracer.Start(ctx, "availability.slots", trace.WithAttributes(
		attribute.String("staff.id", q.StaffID.String()),
		attribute.String("service.id", q.ServiceID.String()),
	))
	defer span.End()

	merchant, err := s.store.Catalog.GetMerchant(ctx, q.MerchantID)
	if err != nil {
		return empty, classify(ctx, lookup(err, "merchant"))
	}
	loc := merchant.Location()

	from, to := q.From, q.To
	if q.FromIsDate {
		from = calendar.MidnightIn(from, loc)
	}
	if q.ToIsDate {
		to = calendar.MidnightIn(to, loc)
	}

	window, err := calendar.NormalizeTimeRange(from, to, loc, MaxSlotRange)
	if err != nil {
		return empty, invalid("%v", err)
	}

	staff, err := s.store.Catalog.GetStaff(ctx, q.MerchantID, q.StaffID)
	if err != nil {
		return empty, classify(ctx, lookup(err, "staff"))
	}
	svc, err := s.store.Catalog.GetService(ctx, q.MerchantID, q.ServiceID)
	if err != nil {
		return empty, classify(ctx, lookup(err, "service"))
	}
	if svc.Duration() <= 0 {
		return empty, invalid("service %s has no duration", svc.ID)
	}

	holidays, err := s.store.Catalog.ListHolidays(ctx, merchant.ID, window.Start, window.End)
	if err != nil {
		return empty, classify(ctx, err)
	}

	padding := svc.Padding()
	// Слоты у границ окна блокируют время за его пределами.
	busy := calendar.TimeRange{
		Start: window.Start.Add(-padding.Before),
		End:   window.End.Add(svc.Duration() + padding.After),
	}.UTC()
	bookings, err := s.store.Bookings.ListForStaff(ctx, []uuid.UUID{staff.ID}, busy.Start, busy.End)
	if err != nil {
		return empty, classify(ctx, err)
	}

	slots := scheduling.GenerateSlots(scheduling.SlotRequest{
		Schedule: scheduling.EffectiveSchedule(*staff, *merchant),
		Location: loc,
		DaysOff:  scheduling.DaysOff(holidays),
		Duration: svc.Duration(),
		Padding:  padding,
		From:     window.Start,
		To:       window.End,
		Interval: q.Interval,
	})
	annotated := scheduling.Annotate(slots, staff.ID, padding, bookings)

	if !staff.Assignable() {
		for i := range annotated {
			annotated[i].Available = false
		}
	}
	if q.OnlyAvailable {
		free := annotated[:0]
		for _, a := range annotated {
			if a.Available {
				free = append(free, a)
			}
		}
		annotated = free
	}

	span.SetAttributes(attribute.Int("slots.total", len(annotated)))
	return calendar.Paginate(annotated, q.Page, q.PageSize), nil
}

type NextAvailableQuery struct {
	MerchantID uuid.UUID
	LocationID uuid.UUID
	ServiceID  uuid.UUID
	StartTime  time.Time
}

// NextAvailable показывает, кто из мастеров филиала свободен в StartTime,
// и кого назначил бы Create без явного мастера.
func (s *AvailabilityService) NextAvailable(ctx context.Context, q NextAvailableQuery) (scheduling.Assignment, error) {
	if q.MerchantID == uuid.Nil || q.LocationID == uuid.Nil || q.ServiceID == uuid.Nil {
		return scheduling.Assignment{}, invalid("merchant, location and service are required")
	}
	if q.StartTime.IsZero() {
		return scheduling.Assignment{}, invalid("start time is required")
	}

	ctx, span := s.tracer.Start(ctx, "availability.next", trace.WithAttributes(
		attribute.String("location.id", q.LocationID.String()),
		attribute.String("service.id", q.ServiceID.String()),
	))
	defer span.End()

	merchant, err := s.store.Catalog.GetMerchant(ctx, q.MerchantID)
	if err != nil {
		return scheduling.Assignment{}, classify(ctx, lookup(err, "merchant"))
	}
	if _, err := s.store.Catalog.GetLocation(ctx, q.MerchantID, q.LocationID); err != nil {
		return scheduling.Assignment{}, classify(ctx, lookup(err, "location"))
	}
	svc, err := s.store.Catalog.GetService(ctx, q.MerchantID, q.ServiceID)
	if err != nil {
		return scheduling.Assignment{}, classify(ctx, lookup(err, "service"))
	}

	p, err := newPlan([]model.Service{*svc}, q.StartTime)
	if err != nil {
		return scheduling.Assignment{}, err
	}
	loc := merchant.Location()

	candidates, err := s.store.Catalog.ListStaffByLocation(ctx, merchant.ID, q.LocationID)
	if err != nil {
		return scheduling.Assignment{}, classify(ctx, err)
	}
	holidays, err := s.store.Catalog.ListHolidays(ctx, merchant.ID, p.start.In(loc), p.start.In(loc))
	if err != nil {
		return scheduling.Assignment{}, classify(ctx, err)
	}
	working, off := splitByHours(candidates, merchant, p.start, p.end, p.padding, scheduling.DaysOff(holidays))

	ids := make([]uuid.UUID, 0, len(working))
	for _, st := range working {
		ids = append(ids, st.ID)
	}
	from, to := bookingWindow(p.start, p.blocked, loc)
	existing, err := s.store.Bookings.ListForStaff(ctx, ids, from, to)
	if err != nil {
		return scheduling.Assignment{}, classify(ctx, err)
	}

	assignment := scheduling.ResolveStaff(scheduling.AssignmentRequest{
		Start:    p.start,
		End:      p.end,
		Padding:  p.padding,
		Location: loc,
	}, working, existing)

	if len(off) > 0 {
		assignment.Unavailable = append(assignment.Unavailable, off...)
		assignment.Message = scheduling.AvailabilityMessage(len(assignment.Available), len(assignment.Unavailable))
	}
	return assignment, nil
}
