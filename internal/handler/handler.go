package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Leganyst/booking-engine/internal/booking"
	"github.com/Leganyst/booking-engine/internal/calendar"
	"github.com/Leganyst/booking-engine/internal/handler/dto"
	"github.com/Leganyst/booking-engine/internal/middleware"
	"github.com/Leganyst/booking-engine/internal/model"
	"github.com/Leganyst/booking-engine/internal/scheduling"
	"github.com/Leganyst/booking-engine/internal/service"
)

type BookingSvc interface {
	Create(ctx context.Context, in service.CreateBookingInput) (*model.Booking, error)
	Get(ctx context.Context, merchantID, id uuid.UUID) (*model.Booking, error)
	Reschedule(ctx context.Context, in service.RescheduleInput) (*model.Booking, error)
	Transition(ctx context.Context, merchantID, id uuid.UUID, action booking.Action, reason string) (*model.Booking, error)
	RecordPayment(ctx context.Context, merchantID, id uuid.UUID, in service.PaymentInput) (*model.Booking, error)
	Refund(ctx context.Context, merchantID, id uuid.UUID, amount decimal.Decimal, reason string) (*model.Booking, error)
}

type AvailabilitySvc interface {
	Slots(ctx context.Context, q service.AvailabilityQuery) (calendar.Page[scheduling.AnnotatedSlot], error)
	NextAvailable(ctx context.Context, q service.NextAvailableQuery) (scheduling.Assignment, error)
}

type Handler struct {
	bookings     BookingSvc
	availability AvailabilitySvc
	logger       *slog.Logger
}

func NewHandler(bookings BookingSvc, availability AvailabilitySvc, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{bookings: bookings, availability: availability, logger: logger}
}

// Availability

func (h *Handler) GetAvailability(c *gin.Context) {
	var q dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	from, fromIsDate, err := parseTime(q.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid startDate, expected RFC3339 or YYYY-MM-DD"})
		return
	}
	to, toIsDate, err := parseTime(q.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid endDate, expected RFC3339 or YYYY-MM-DD"})
		return
	}
	if toIsDate {
		// Дата окончания включительно.
		to = to.AddDate(0, 0, 1)
	}

	page, err := h.availability.Slots(c.Request.Context(), service.AvailabilityQuery{
		MerchantID:    middleware.MerchantID(c),
		StaffID:       uuid.MustParse(q.StaffID),
		ServiceID:     uuid.MustParse(q.ServiceID),
		From:          from,
		To:            to,
		FromIsDate:    fromIsDate,
		ToIsDate:      toIsDate,
		Interval:      time.Duration(q.Interval) * time.Minute,
		Page:          q.Page,
		PageSize:      q.PageSize,
		OnlyAvailable: q.OnlyAvailable,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToSlotPageResponse(page))
}

func (h *Handler) GetNextAvailable(c *gin.Context) {
	var q dto.NextAvailableQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	start, err := time.Parse(time.RFC3339, q.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid startTime, expected RFC3339"})
		return
	}

	assignment, err := h.availability.NextAvailable(c.Request.Context(), service.NextAvailableQuery{
		MerchantID: middleware.MerchantID(c),
		LocationID: uuid.MustParse(q.LocationID),
		ServiceID:  uuid.MustParse(q.ServiceID),
		StartTime:  start,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToAssignmentResponse(assignment))
}

// Bookings

func (h *Handler) CreateBooking(c *gin.Context) {
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid startTime, expected RFC3339"})
		return
	}

	in := service.CreateBookingInput{
		MerchantID:     middleware.MerchantID(c),
		LocationID:     uuid.MustParse(req.LocationID),
		CustomerID:     uuid.MustParse(req.CustomerID),
		StaffID:        optionalID(req.StaffID),
		StartTime:      start,
		Source:         model.BookingSource(req.Source),
		Notes:          req.Notes,
		CreatedByID:    optionalID(req.CreatedByID),
		Override:       req.Override,
		OverrideReason: req.OverrideReason,
	}
	for _, id := range req.ServiceIDs {
		in.ServiceIDs = append(in.ServiceIDs, uuid.MustParse(id))
	}

	b, err := h.bookings.Create(c.Request.Context(), in)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToBookingResponse(b))
}

func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	b, err := h.bookings.Get(c.Request.Context(), middleware.MerchantID(c), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBookingResponse(b))
}

func (h *Handler) RescheduleBooking(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req dto.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid startTime, expected RFC3339"})
		return
	}

	b, err := h.bookings.Reschedule(c.Request.Context(), service.RescheduleInput{
		MerchantID:     middleware.MerchantID(c),
		BookingID:      id,
		StartTime:      start,
		StaffID:        optionalID(req.StaffID),
		Override:       req.Override,
		OverrideReason: req.OverrideReason,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBookingResponse(b))
}

// Transition возвращает обработчик действия машины состояний.
// Для cancel причина берётся из необязательного тела {"reason": "..."}.
func (h *Handler) Transition(action booking.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := bookingID(c)
		if !ok {
			return
		}

		var req dto.CancelRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
				return
			}
		}

		b, err := h.bookings.Transition(c.Request.Context(), middleware.MerchantID(c), id, action, req.Reason)
		if err != nil {
			h.handleError(c, err)
			return
		}

		c.JSON(http.StatusOK, dto.ToBookingResponse(b))
	}
}

func (h *Handler) RecordPayment(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	b, err := h.bookings.RecordPayment(c.Request.Context(), middleware.MerchantID(c), id, service.PaymentInput{
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBookingResponse(b))
}

func (h *Handler) Refund(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	b, err := h.bookings.Refund(c.Request.Context(), middleware.MerchantID(c), id, req.Amount, req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBookingResponse(b))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	c.Set("error", err.Error())

	var (
		conflict   *booking.SchedulingConflictError
		noStaff    *booking.NoStaffAvailableError
		transition *booking.InvalidTransitionError
	)
	switch {
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, dto.SchedulingConflict(conflict))

	case errors.As(err, &noStaff):
		c.JSON(http.StatusConflict, dto.NoStaffAvailable(noStaff))

	case errors.As(err, &transition):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error: "cannot perform this action now",
			Code:  "INVALID_TRANSITION",
		})

	case errors.Is(err, booking.ErrOutsideWorkingHours):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error(), Code: "OUTSIDE_WORKING_HOURS"})

	case errors.Is(err, booking.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error(), Code: "NOT_FOUND"})

	case errors.Is(err, booking.ErrInvalidInterval):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: "INVALID_INTERVAL"})

	case errors.Is(err, booking.ErrInvalidPayment):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: "INVALID_PAYMENT"})

	case errors.Is(err, booking.ErrPersistenceConflict):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error: "booking is being modified concurrently, retry the request",
			Code:  "PERSISTENCE_CONFLICT",
		})

	default:
		h.logger.ErrorContext(c.Request.Context(), "request failed",
			slog.String("path", c.FullPath()),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}
}

func bookingID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid booking id"})
		return uuid.Nil, false
	}
	return id, true
}

// optionalID разбирает уже провалидированный uuid; пустая строка — nil.
func optionalID(s string) *uuid.UUID {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	id := uuid.MustParse(s)
	return &id
}

// parseTime принимает RFC3339 или дату YYYY-MM-DD. Для даты второй результат
// true: пояс салона здесь неизвестен, полночь вычисляет сервис.
func parseTime(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, false, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	return t, err == nil, err
}
