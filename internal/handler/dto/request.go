package dto

import "github.com/shopspring/decimal"

type CreateBookingRequest struct {
	LocationID string   `json:"locationId" binding:"required,uuid"`
	CustomerID string   `json:"customerId" binding:"required,uuid"`
	StaffID    string   `json:"staffId" binding:"omitempty,uuid"`
	ServiceIDs []string `json:"serviceIds" binding:"required,min=1,dive,uuid"`
	// RFC3339
	StartTime      string `json:"startTime" binding:"required"`
	Source         string `json:"source" binding:"omitempty,oneof=ONLINE WALK_IN PHONE MANUAL"`
	Notes          string `json:"notes"`
	CreatedByID    string `json:"createdById" binding:"omitempty,uuid"`
	Override       bool   `json:"override"`
	OverrideReason string `json:"overrideReason"`
}

// RescheduleRequest — тело PATCH /bookings/:id.
type RescheduleRequest struct {
	StartTime      string `json:"startTime" binding:"required"`
	StaffID        string `json:"staffId" binding:"omitempty,uuid"`
	Override       bool   `json:"override"`
	OverrideReason string `json:"overrideReason"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type PaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" binding:"required"`
	Reference string          `json:"reference"`
}

type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

type AvailabilityQuery struct {
	StaffID   string `form:"staffId" binding:"required,uuid"`
	ServiceID string `form:"serviceId" binding:"required,uuid"`
	StartDate string `form:"startDate" binding:"required"`
	EndDate   string `form:"endDate" binding:"required"`
	// Шаг сетки в минутах.
	Interval      int  `form:"interval" binding:"omitempty,min=5,max=240"`
	Page          int  `form:"page" binding:"omitempty,min=1"`
	PageSize      int  `form:"pageSize" binding:"omitempty,min=1"`
	OnlyAvailable bool `form:"onlyAvailable"`
}

type NextAvailableQuery struct {
	LocationID string `form:"locationId" binding:"required,uuid"`
	ServiceID  string `form:"serviceId" binding:"required,uuid"`
	StartTime  string `form:"startTime" binding:"required"`
}
