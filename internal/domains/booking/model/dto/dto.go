package dto

import (
	"meetroom/internal/domains/booking/conflict"
	"meetroom/internal/domains/booking/model"
	"meetroom/shared"
	"meetroom/shared/calendar"
	gDto "meetroom/shared/dto"
	gModel "meetroom/shared/model"
	"meetroom/shared/timezone"

	"github.com/google/uuid"
)

const (
	SlotReasonAvailable = "available"
	SlotReasonAllDay    = "all_day"
	SlotReasonTimeSlot  = "time_slot"
)

const (
	CancelActionRejected = "rejected"
	CancelActionDeleted  = "deleted"
)

// Schedule is the raw, unvalidated placement of a booking as submitted.
type Schedule struct {
	RoomID     string `json:"room_id"`
	Date       string `json:"date"`
	IsMultiDay bool   `json:"is_multi_day"`
	EndDate    string `json:"end_date"`
	AllDay     bool   `json:"all_day"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

type CreateBookingRequest struct {
	RoomID      string `json:"room_id"      validate:"omitempty,max=64"`
	Date        string `json:"date"         validate:"omitempty,max=40"`
	IsMultiDay  bool   `json:"is_multi_day"`
	EndDate     string `json:"end_date"     validate:"omitempty,max=40"`
	AllDay      bool   `json:"all_day"`
	StartTime   string `json:"start_time"   validate:"omitempty,max=5"`
	EndTime     string `json:"end_time"     validate:"omitempty,max=5"`
	Purpose     string `json:"purpose"      validate:"omitempty,max=200"`
	Description string `json:"description"  validate:"omitempty,max=1000"`
}

func (c *CreateBookingRequest) Schedule() Schedule {
	return Schedule{
		RoomID:     c.RoomID,
		Date:       c.Date,
		IsMultiDay: c.IsMultiDay,
		EndDate:    c.EndDate,
		AllDay:     c.AllDay,
		StartTime:  c.StartTime,
		EndTime:    c.EndTime,
	}
}

// ToModel builds a pending booking from an already validated placement.
func (c *CreateBookingRequest) ToModel(requesterID, user, defaultPurpose string, placement conflict.Candidate) model.Booking {
	purpose := c.Purpose
	if purpose == "" {
		purpose = defaultPurpose
	}

	return ApplyPlacement(model.Booking{
		ID:          uuid.NewString(),
		RoomID:      placement.RoomID,
		RoomName:    placement.RoomName,
		RequesterID: requesterID,
		Purpose:     purpose,
		Description: c.Description,
		Status:      model.StatusPending,
		Metadata:    gModel.NewMetadata(user, timezone.Now()),
	}, placement)
}

// ApplyPlacement copies a validated placement onto a booking.
func ApplyPlacement(booking model.Booking, placement conflict.Candidate) model.Booking {
	booking.RoomID = placement.RoomID
	booking.Date = placement.Date
	booking.IsMultiDay = placement.EndDate.After(placement.Date)
	booking.AllDay = placement.AllDay

	booking.EndDate = nil
	if booking.IsMultiDay {
		endDate := placement.EndDate
		booking.EndDate = &endDate
	}

	booking.StartTime, booking.EndTime = nil, nil
	if !placement.AllDay {
		start, end := placement.StartTime, placement.EndTime
		booking.StartTime = &start
		booking.EndTime = &end
	}

	return booking
}

// UpdateBookingRequest carries only the fields the caller wants to change.
type UpdateBookingRequest struct {
	RoomID       *string `json:"room_id"       validate:"omitempty,max=64"`
	Date         *string `json:"date"          validate:"omitempty,max=40"`
	IsMultiDay   *bool   `json:"is_multi_day"`
	EndDate      *string `json:"end_date"      validate:"omitempty,max=40"`
	AllDay       *bool   `json:"all_day"`
	StartTime    *string `json:"start_time"    validate:"omitempty,max=5"`
	EndTime      *string `json:"end_time"      validate:"omitempty,max=5"`
	Purpose      *string `json:"purpose"       validate:"omitempty,max=200"`
	Description  *string `json:"description"   validate:"omitempty,max=1000"`
	Status       *string `json:"status"        validate:"omitempty,oneof=pending approved rejected cancelled"`
	AdminRemarks *string `json:"admin_remarks" validate:"omitempty,max=1000"`
}

// Merge overlays the requested changes on the stored booking's schedule.
func (u *UpdateBookingRequest) Merge(current model.Booking) Schedule {
	schedule := ScheduleFromModel(current)

	if u.RoomID != nil {
		schedule.RoomID = *u.RoomID
	}

	if u.Date != nil {
		schedule.Date = *u.Date
	}

	if u.IsMultiDay != nil {
		schedule.IsMultiDay = *u.IsMultiDay
	}

	if u.EndDate != nil {
		schedule.EndDate = *u.EndDate
	}

	if u.AllDay != nil {
		schedule.AllDay = *u.AllDay
	}

	if u.StartTime != nil {
		schedule.StartTime = *u.StartTime
	}

	if u.EndTime != nil {
		schedule.EndTime = *u.EndTime
	}

	return schedule
}

// ScheduleFromModel renders a stored booking back into its submitted form.
func ScheduleFromModel(booking model.Booking) Schedule {
	schedule := Schedule{
		RoomID:     booking.RoomID,
		Date:       booking.Date.String(),
		IsMultiDay: booking.IsMultiDay,
		AllDay:     booking.AllDay,
	}

	if booking.EndDate != nil {
		schedule.EndDate = booking.EndDate.String()
	}

	if booking.StartTime != nil {
		schedule.StartTime = calendar.FormatMinutes(*booking.StartTime)
	}

	if booking.EndTime != nil {
		schedule.EndTime = calendar.FormatMinutes(*booking.EndTime)
	}

	return schedule
}

type UpdateStatusRequest struct {
	Status       string `json:"status"        validate:"required"`
	AdminRemarks string `json:"admin_remarks" validate:"omitempty,max=1000"`
}

type CheckConflictsRequest struct {
	Schedule
	ExcludeBookingID string `json:"exclude_booking_id"`
}

type BookingResponse struct {
	ID           string  `json:"id"`
	RoomID       string  `json:"room_id"`
	RoomName     string  `json:"room_name"`
	RequesterID  string  `json:"requester_id"`
	Date         string  `json:"date"`
	IsMultiDay   bool    `json:"is_multi_day"`
	EndDate      *string `json:"end_date"`
	AllDay       bool    `json:"all_day"`
	StartTime    *string `json:"start_time"`
	EndTime      *string `json:"end_time"`
	Purpose      string  `json:"purpose"`
	Description  string  `json:"description"`
	Status       string  `json:"status"`
	AdminRemarks string  `json:"admin_remarks"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.RoomID = model.RoomID
	r.RoomName = model.RoomName
	r.RequesterID = model.RequesterID
	r.Date = model.Date.String()
	r.IsMultiDay = model.IsMultiDay
	r.AllDay = model.AllDay
	r.Purpose = model.Purpose
	r.Description = model.Description
	r.Status = string(model.Status)
	r.AdminRemarks = model.AdminRemarks
	r.Metadata.FromModel(model.Metadata)

	r.EndDate = nil
	if model.EndDate != nil {
		endDate := model.EndDate.String()
		r.EndDate = &endDate
	}

	r.StartTime, r.EndTime = nil, nil
	if !model.AllDay && model.StartTime != nil && model.EndTime != nil {
		start := calendar.FormatMinutes(*model.StartTime)
		end := calendar.FormatMinutes(*model.EndTime)
		r.StartTime = &start
		r.EndTime = &end
	}
}

type GetBookingsResponse struct {
	Bookings  []BookingResponse `json:"bookings"`
	TotalPage int               `json:"total_page"`
	TotalData int               `json:"total_data"`
}

func (r *GetBookingsResponse) FromModels(models []model.Booking, totalData, limit int) {
	r.TotalData = totalData
	r.TotalPage = shared.CalculateTotalPage(totalData, limit)

	r.Bookings = make([]BookingResponse, len(models))
	for i, mod := range models {
		r.Bookings[i].FromModel(mod)
	}
}

type MyBookingsResponse struct {
	All      []BookingResponse `json:"all"`
	Upcoming []BookingResponse `json:"upcoming"`
	Past     []BookingResponse `json:"past"`
	Total    int               `json:"total"`
}

type UpdateBookingResponse struct {
	Booking       BookingResponse `json:"booking"`
	ChangedFields []string        `json:"changed_fields"`
}

type CancelBookingResponse struct {
	ID            string `json:"id"`
	Action        string `json:"action"`
	CancelledBy   string `json:"cancelled_by"`
	CancelledAt   string `json:"cancelled_at"`
	IsAdminAction bool   `json:"is_admin_action"`
}

type Slot struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
	Reason    string `json:"reason"`
}

type AvailabilityResponse struct {
	RoomID         string `json:"room_id"`
	Date           string `json:"date"`
	Found          bool   `json:"found"`
	Slots          []Slot `json:"slots"`
	AvailableCount int    `json:"available_count"`
	IsDayAvailable bool   `json:"is_day_available"`
}

type DayAvailability struct {
	Date               string `json:"date"`
	IsAvailable        bool   `json:"is_available"`
	AvailableSlotCount int    `json:"available_slots"`
}

type RangeAvailabilityResponse struct {
	RoomID    string            `json:"room_id"`
	StartDate string            `json:"start_date"`
	EndDate   string            `json:"end_date"`
	Found     bool              `json:"found"`
	Days      []DayAvailability `json:"days"`
}
