package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Leganyst/booking-engine/internal/booking"
	"github.com/Leganyst/booking-engine/internal/calendar"
	"github.com/Leganyst/booking-engine/internal/model"
	"github.com/Leganyst/booking-engine/internal/scheduling"
)

type BookingServiceResponse struct {
	ServiceID       string          `json:"serviceId"`
	StaffID         *string         `json:"staffId"`
	Price           decimal.Decimal `json:"price"`
	DurationMinutes int             `json:"durationMinutes"`
}

type BookingResponse struct {
	ID            string  `json:"id"`
	BookingNumber string  `json:"bookingNumber"`
	MerchantID    string  `json:"merchantId"`
	LocationID    string  `json:"locationId"`
	CustomerID    string  `json:"customerId"`
	StaffID       *string `json:"staffId"`
	Status        string  `json:"status"`

	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	PaddingBefore int    `json:"paddingBefore"`
	PaddingAfter  int    `json:"paddingAfter"`

	TotalAmount   decimal.Decimal `json:"totalAmount"`
	PaidAmount    decimal.Decimal `json:"paidAmount"`
	PaymentStatus string          `json:"paymentStatus"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	PaidAt        *string         `json:"paidAt,omitempty"`

	CheckedInAt        *string `json:"checkedInAt,omitempty"`
	StartedAt          *string `json:"startedAt,omitempty"`
	CompletedAt        *string `json:"completedAt,omitempty"`
	CancelledAt        *string `json:"cancelledAt,omitempty"`
	CancellationReason string  `json:"cancellationReason,omitempty"`

	IsOverride     bool   `json:"isOverride"`
	OverrideReason string `json:"overrideReason,omitempty"`
	Source         string `json:"source"`
	Notes          string `json:"notes,omitempty"`

	Services  []BookingServiceResponse `json:"services"`
	CreatedAt string                   `json:"createdAt"`
	UpdatedAt string                   `json:"updatedAt"`
}

type ConflictResponse struct {
	BookingID     string `json:"bookingId"`
	BookingNumber string `json:"bookingNumber"`
	Status        string `json:"status"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	BlockedStart  string `json:"blockedStart"`
	BlockedEnd    string `json:"blockedEnd"`
}

type StaffResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Workload *int   `json:"workload,omitempty"`
}

type UnavailableStaffResponse struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Reason    string             `json:"reason"`
	Conflicts []ConflictResponse `json:"conflicts,omitempty"`
}

type AssignmentResponse struct {
	Available     []StaffResponse            `json:"available"`
	Unavailable   []UnavailableStaffResponse `json:"unavailable"`
	AssignedStaff *StaffResponse             `json:"assignedStaff"`
	Message       string                     `json:"message"`
}

type SlotResponse struct {
	StartTime string             `json:"startTime"`
	EndTime   string             `json:"endTime"`
	Available bool               `json:"available"`
	Conflicts []ConflictResponse `json:"conflicts,omitempty"`
}

type SlotPageResponse struct {
	Items    []SlotResponse `json:"items"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
	Total    int            `json:"total"`
	HasNext  bool           `json:"hasNext"`
	HasPrev  bool           `json:"hasPrev"`
}

// ErrorResponse — тело ошибки. Для конфликтов расписания заполняются
// Conflicts или Checked, чтобы клиент мог предложить другое время или мастера.
type ErrorResponse struct {
	Error     string                     `json:"error"`
	Code      string                     `json:"code,omitempty"`
	StaffID   string                     `json:"staffId,omitempty"`
	Conflicts []ConflictResponse         `json:"conflicts,omitempty"`
	Checked   []UnavailableStaffResponse `json:"checked,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func idPtr(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func ToBookingResponse(b *model.Booking) BookingResponse {
	services := make([]BookingServiceResponse, 0, len(b.Services))
	for _, s := range b.Services {
		services = append(services, BookingServiceResponse{
			ServiceID:       s.ServiceID.String(),
			StaffID:         idPtr(s.StaffID),
			Price:           s.Price,
			DurationMinutes: s.DurationMinutes,
		})
	}

	return BookingResponse{
		ID:                 b.ID.String(),
		BookingNumber:      b.BookingNumber,
		MerchantID:         b.MerchantID.String(),
		LocationID:         b.LocationID.String(),
		CustomerID:         b.CustomerID.String(),
		StaffID:            idPtr(b.ProviderID),
		Status:             string(b.Status),
		StartTime:          formatTime(b.StartTime),
		EndTime:            formatTime(b.EndTime),
		PaddingBefore:      b.PaddingBefore,
		PaddingAfter:       b.PaddingAfter,
		TotalAmount:        b.TotalAmount,
		PaidAmount:         b.PaidAmount,
		PaymentStatus:      string(b.PaymentStatus),
		PaymentMethod:      b.PaymentMethod,
		PaidAt:             formatTimePtr(b.PaidAt),
		CheckedInAt:        formatTimePtr(b.CheckedInAt),
		StartedAt:          formatTimePtr(b.StartedAt),
		CompletedAt:        formatTimePtr(b.CompletedAt),
		CancelledAt:        formatTimePtr(b.CancelledAt),
		CancellationReason: b.CancellationReason,
		IsOverride:         b.IsOverride,
		OverrideReason:     b.OverrideReason,
		Source:             string(b.Source),
		Notes:              b.Notes,
		Services:           services,
		CreatedAt:          formatTime(b.CreatedAt),
		UpdatedAt:          formatTime(b.UpdatedAt),
	}
}

func ToConflictResponses(conflicts []scheduling.Conflict) []ConflictResponse {
	out := make([]ConflictResponse, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, ConflictResponse{
			BookingID:     c.BookingID.String(),
			BookingNumber: c.BookingNumber,
			Status:        string(c.Status),
			StartTime:     formatTime(c.StartTime),
			EndTime:       formatTime(c.EndTime),
			BlockedStart:  formatTime(c.BlockedStart),
			BlockedEnd:    formatTime(c.BlockedEnd),
		})
	}
	return out
}

func toUnavailable(list []scheduling.Unavailable) []UnavailableStaffResponse {
	out := make([]UnavailableStaffResponse, 0, len(list))
	for _, u := range list {
		out = append(out, UnavailableStaffResponse{
			ID:        u.Staff.ID.String(),
			Name:      u.Staff.Name,
			Reason:    u.Reason,
			Conflicts: ToConflictResponses(u.Conflicts),
		})
	}
	return out
}

func ToAssignmentResponse(a scheduling.Assignment) AssignmentResponse {
	resp := AssignmentResponse{
		Available:   make([]StaffResponse, 0, len(a.Available)),
		Unavailable: toUnavailable(a.Unavailable),
		Message:     a.Message,
	}
	for _, c := range a.Available {
		workload := c.Workload
		resp.Available = append(resp.Available, StaffResponse{
			ID:       c.Staff.ID.String(),
			Name:     c.Staff.Name,
			Workload: &workload,
		})
	}
	if a.Assigned != nil {
		resp.AssignedStaff = &StaffResponse{ID: a.Assigned.ID.String(), Name: a.Assigned.Name}
	}
	return resp
}

func ToSlotPageResponse(p calendar.Page[scheduling.AnnotatedSlot]) SlotPageResponse {
	items := make([]SlotResponse, 0, len(p.Items))
	for _, s := range p.Items {
		items = append(items, SlotResponse{
			StartTime: formatTime(s.Start),
			EndTime:   formatTime(s.End),
			Available: s.Available,
			Conflicts: ToConflictResponses(s.Conflicts),
		})
	}
	return SlotPageResponse{
		Items:    items,
		Page:     p.Page,
		PageSize: p.PageSize,
		Total:    p.Total,
		HasNext:  p.HasNext,
		HasPrev:  p.HasPrev,
	}
}

func SchedulingConflict(err *booking.SchedulingConflictError) ErrorResponse {
	return ErrorResponse{
		Error:     "requested time conflicts with existing bookings",
		Code:      "SCHEDULING_CONFLICT",
		StaffID:   err.StaffID,
		Conflicts: ToConflictResponses(err.Conflicts),
	}
}

func NoStaffAvailable(err *booking.NoStaffAvailableError) ErrorResponse {
	return ErrorResponse{
		Error:   "No staff available at this time",
		Code:    "NO_STAFF_AVAILABLE",
		Checked: toUnavailable(err.Checked),
	}
}
