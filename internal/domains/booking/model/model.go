package model

import (
	"slices"

	"meetroom/shared/calendar"
	"meetroom/shared/model"
)

const (
	TableName  = "room_bookings"
	EntityName = "booking"

	FieldID           = "id"
	FieldRoomID       = "room_id"
	FieldRequesterID  = "requester_id"
	FieldDate         = "date"
	FieldIsMultiDay   = "is_multi_day"
	FieldEndDate      = "end_date"
	FieldAllDay       = "all_day"
	FieldStartTime    = "start_time"
	FieldEndTime      = "end_time"
	FieldPurpose      = "purpose"
	FieldDescription  = "description"
	FieldStatus       = "status"
	FieldAdminRemarks = "admin_remarks"
	FieldCreatedAt    = "created_at"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

var Statuses = []Status{StatusPending, StatusApproved, StatusRejected, StatusCancelled}

func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// Blocking reports whether bookings in this status occupy the room.
func (s Status) Blocking() bool {
	return s == StatusApproved
}

// Booking is a reservation of one room. Times are minutes since midnight and
// are nil for all-day bookings; EndDate is set only for multi-day bookings.
type Booking struct {
	ID           string         `db:"id"`
	RoomID       string         `db:"room_id"`
	RoomName     string         `column:"name"        db:"room_name" table:"rooms"`
	RequesterID  string         `db:"requester_id"`
	Date         calendar.Date  `db:"date"`
	IsMultiDay   bool           `db:"is_multi_day"`
	EndDate      *calendar.Date `db:"end_date"`
	AllDay       bool           `db:"all_day"`
	StartTime    *int           `db:"start_time"`
	EndTime      *int           `db:"end_time"`
	Purpose      string         `db:"purpose"`
	Description  string         `db:"description"`
	Status       Status         `db:"status"`
	AdminRemarks string         `db:"admin_remarks"`
	model.Metadata
}

func (Booking) GetJoinQuery() string {
	return "LEFT JOIN rooms ON rooms.id = room_bookings.room_id"
}

// LastDate is the final calendar day the booking occupies.
func (b Booking) LastDate() calendar.Date {
	if b.IsMultiDay && b.EndDate != nil {
		return *b.EndDate
	}

	return b.Date
}

// Window returns the occupied minutes of each day, the whole day for all-day bookings.
func (b Booking) Window() (start, end int) {
	if b.AllDay || b.StartTime == nil || b.EndTime == nil {
		return 0, calendar.MinutesPerDay
	}

	return *b.StartTime, *b.EndTime
}

// Covers reports whether the booking occupies the given day.
func (b Booking) Covers(day calendar.Date) bool {
	return !day.Before(b.Date) && !day.After(b.LastDate())
}
