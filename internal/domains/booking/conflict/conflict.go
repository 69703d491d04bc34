// Package conflict decides which approved bookings collide with a requested
// reservation of the same room.
package conflict

import (
	"fmt"

	"meetroom/internal/domains/booking/model"
	"meetroom/shared/calendar"
)

type Kind string

const (
	// KindAllDay: an all-day request meets an existing all-day booking.
	KindAllDay Kind = "all_day"
	// KindAllDayOverride: an all-day request meets an existing timed booking.
	KindAllDayOverride Kind = "all_day_override"
	// KindBlockedByAllDay: a timed request meets an existing all-day booking.
	KindBlockedByAllDay Kind = "blocked_by_all_day"
	// KindTimeSlot: two timed bookings share at least one minute.
	KindTimeSlot Kind = "time_slot"
)

var Kinds = []Kind{KindAllDay, KindAllDayOverride, KindBlockedByAllDay, KindTimeSlot}

// Candidate is a normalized booking request. EndDate equals Date for single-day requests.
type Candidate struct {
	RoomID    string
	RoomName  string
	Date      calendar.Date
	EndDate   calendar.Date
	AllDay    bool
	StartTime int
	EndTime   int
	ExcludeID string
}

// FromBooking re-checks a stored booking, never against itself.
func FromBooking(booking model.Booking) Candidate {
	start, end := booking.Window()

	return Candidate{
		RoomID:    booking.RoomID,
		RoomName:  booking.RoomName,
		Date:      booking.Date,
		EndDate:   booking.LastDate(),
		AllDay:    booking.AllDay,
		StartTime: start,
		EndTime:   end,
		ExcludeID: booking.ID,
	}
}

func (c Candidate) window() (int, int) {
	if c.AllDay {
		return 0, calendar.MinutesPerDay
	}

	return c.StartTime, c.EndTime
}

func (c Candidate) roomLabel() string {
	if c.RoomName != "" {
		return c.RoomName
	}

	return c.RoomID
}

// Snapshot is the part of a colliding booking reported back to the caller.
type Snapshot struct {
	ID          string         `json:"id"`
	RequesterID string         `json:"requester_id"`
	Date        calendar.Date  `json:"date"`
	IsMultiDay  bool           `json:"is_multi_day"`
	EndDate     *calendar.Date `json:"end_date"`
	AllDay      bool           `json:"all_day"`
	StartTime   *string        `json:"start_time"`
	EndTime     *string        `json:"end_time"`
	Purpose     string         `json:"purpose"`
	Status      model.Status   `json:"status"`
}

func NewSnapshot(booking model.Booking) Snapshot {
	snapshot := Snapshot{
		ID:          booking.ID,
		RequesterID: booking.RequesterID,
		Date:        booking.Date,
		IsMultiDay:  booking.IsMultiDay,
		EndDate:     booking.EndDate,
		AllDay:      booking.AllDay,
		Purpose:     booking.Purpose,
		Status:      booking.Status,
	}

	if !booking.AllDay && booking.StartTime != nil && booking.EndTime != nil {
		start := calendar.FormatMinutes(*booking.StartTime)
		end := calendar.FormatMinutes(*booking.EndTime)
		snapshot.StartTime = &start
		snapshot.EndTime = &end
	}

	return snapshot
}

type Conflict struct {
	Kind    Kind     `json:"conflict_type"`
	Message string   `json:"message"`
	Booking Snapshot `json:"conflicting_booking"`
}

// Result is the outcome of a conflict check.
type Result struct {
	HasConflicts bool       `json:"has_conflicts"`
	Conflicts    []Conflict `json:"conflicts"`
}

func NewResult(conflicts []Conflict) Result {
	if conflicts == nil {
		conflicts = []Conflict{}
	}

	return Result{
		HasConflicts: len(conflicts) > 0,
		Conflicts:    conflicts,
	}
}

// Kinds lists the distinct conflict kinds in the order they were found.
func (r Result) Kinds() []string {
	seen := map[Kind]bool{}
	kinds := []string{}

	for _, item := range r.Conflicts {
		if seen[item.Kind] {
			continue
		}

		seen[item.Kind] = true
		kinds = append(kinds, string(item.Kind))
	}

	return kinds
}

// Detect returns one conflict per existing booking that blocks the candidate.
// Only approved bookings of the candidate's room are considered, and the
// booking named by ExcludeID never conflicts with itself.
func Detect(candidate Candidate, existing []model.Booking) []Conflict {
	conflicts := []Conflict{}

	for _, booking := range existing {
		if booking.ID == candidate.ExcludeID && candidate.ExcludeID != "" {
			continue
		}

		if booking.RoomID != candidate.RoomID || !booking.Status.Blocking() {
			continue
		}

		if !calendar.DateRangesOverlap(candidate.Date, candidate.EndDate, booking.Date, booking.LastDate()) {
			continue
		}

		kind, ok := classify(candidate, booking)
		if !ok {
			continue
		}

		conflicts = append(conflicts, Conflict{
			Kind:    kind,
			Message: describe(kind, candidate, booking),
			Booking: NewSnapshot(booking),
		})
	}

	return conflicts
}

func classify(candidate Candidate, booking model.Booking) (Kind, bool) {
	switch {
	case candidate.AllDay && booking.AllDay:
		return KindAllDay, true
	case candidate.AllDay:
		return KindAllDayOverride, true
	case booking.AllDay:
		return KindBlockedByAllDay, true
	}

	startA, endA := candidate.window()
	startB, endB := booking.Window()

	if calendar.TimeRangesOverlap(startA, endA, startB, endB) {
		return KindTimeSlot, true
	}

	return "", false
}

func describe(kind Kind, candidate Candidate, booking model.Booking) string {
	room := candidate.roomLabel()

	switch kind {
	case KindAllDay:
		if booking.IsMultiDay && booking.EndDate != nil {
			return fmt.Sprintf("Room %s already booked for all day on %s to %s", room, booking.Date, *booking.EndDate)
		}

		return fmt.Sprintf("Room %s already booked for all day on %s", room, booking.Date)
	case KindAllDayOverride:
		return fmt.Sprintf("Room %s already has timed bookings on overlapping dates", room)
	case KindBlockedByAllDay:
		return fmt.Sprintf("Room %s is fully booked for all day on overlapping dates", room)
	case KindTimeSlot:
		start, end := booking.Window()

		return fmt.Sprintf("Time slot %s-%s conflicts in room %s", calendar.FormatMinutes(start), calendar.FormatMinutes(end), room)
	}

	return fmt.Sprintf("Room %s not available for the requested time", room)
}

// Summary is the top-level message for a rejected request.
func Summary(candidate Candidate) string {
	return fmt.Sprintf("Room %s not available for the requested time", candidate.roomLabel())
}
