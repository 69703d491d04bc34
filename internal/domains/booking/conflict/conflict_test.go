package conflict_test

import (
	"testing"

	"meetroom/internal/domains/booking/conflict"
	"meetroom/internal/domains/booking/model"
	"meetroom/shared/calendar"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roomID = "room-a"

func minutes(value int) *int {
	return &value
}

func date(value string) *calendar.Date {
	d := calendar.Date(value)

	return &d
}

func timed(id string, day string, start, end int, status model.Status) model.Booking {
	return model.Booking{
		ID:        id,
		RoomID:    roomID,
		Date:      calendar.Date(day),
		StartTime: minutes(start),
		EndTime:   minutes(end),
		Status:    status,
	}
}

func allDay(id string, day string, status model.Status) model.Booking {
	return model.Booking{
		ID:     id,
		RoomID: roomID,
		Date:   calendar.Date(day),
		AllDay: true,
		Status: status,
	}
}

func TestDetect_Matrix(t *testing.T) {
	timedCandidate := conflict.Candidate{RoomID: roomID, Date: "2024-06-10", EndDate: "2024-06-10", StartTime: 540, EndTime: 600}
	allDayCandidate := conflict.Candidate{RoomID: roomID, Date: "2024-06-10", EndDate: "2024-06-10", AllDay: true}

	tests := []struct {
		name      string
		candidate conflict.Candidate
		existing  model.Booking
		wantKind  conflict.Kind
		wantMsg   string
	}{
		{
			name:      "all-day against all-day",
			candidate: allDayCandidate,
			existing:  allDay("b1", "2024-06-10", model.StatusApproved),
			wantKind:  conflict.KindAllDay,
			wantMsg:   "Room room-a already booked for all day on 2024-06-10",
		},
		{
			name:      "all-day against timed",
			candidate: allDayCandidate,
			existing:  timed("b1", "2024-06-10", 900, 960, model.StatusApproved),
			wantKind:  conflict.KindAllDayOverride,
			wantMsg:   "Room room-a already has timed bookings on overlapping dates",
		},
		{
			name:      "timed against all-day",
			candidate: timedCandidate,
			existing:  allDay("b1", "2024-06-10", model.StatusApproved),
			wantKind:  conflict.KindBlockedByAllDay,
			wantMsg:   "Room room-a is fully booked for all day on overlapping dates",
		},
		{
			name:      "timed against overlapping timed",
			candidate: timedCandidate,
			existing:  timed("b1", "2024-06-10", 570, 630, model.StatusApproved),
			wantKind:  conflict.KindTimeSlot,
			wantMsg:   "Time slot 09:30-10:30 conflicts in room room-a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conflicts := conflict.Detect(tt.candidate, []model.Booking{tt.existing})

			require.Len(t, conflicts, 1)
			assert.Equal(t, tt.wantKind, conflicts[0].Kind)
			assert.Equal(t, tt.wantMsg, conflicts[0].Message)
			assert.Equal(t, tt.existing.ID, conflicts[0].Booking.ID)
		})
	}
}

func TestDetect_NoConflict(t *testing.T) {
	candidate := conflict.Candidate{RoomID: roomID, Date: "2024-06-10", EndDate: "2024-06-10", StartTime: 600, EndTime: 660}

	tests := []struct {
		name     string
		existing model.Booking
	}{
		{name: "touching time slots", existing: timed("b1", "2024-06-10", 540, 600, model.StatusApproved)},
		{name: "later touching slot", existing: timed("b1", "2024-06-10", 660, 720, model.StatusApproved)},
		{name: "pending booking does not block", existing: timed("b1", "2024-06-10", 600, 660, model.StatusPending)},
		{name: "rejected booking does not block", existing: allDay("b1", "2024-06-10", model.StatusRejected)},
		{name: "cancelled booking does not block", existing: allDay("b1", "2024-06-10", model.StatusCancelled)},
		{name: "different day", existing: allDay("b1", "2024-06-11", model.StatusApproved)},
		{
			name: "different room",
			existing: model.Booking{
				ID: "b1", RoomID: "room-b", Date: "2024-06-10", AllDay: true, Status: model.StatusApproved,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, conflict.Detect(candidate, []model.Booking{tt.existing}))
		})
	}
}

func TestDetect_ExcludesItself(t *testing.T) {
	existing := timed("b1", "2024-06-10", 540, 600, model.StatusApproved)
	candidate := conflict.Candidate{
		RoomID: roomID, Date: "2024-06-10", EndDate: "2024-06-10", StartTime: 540, EndTime: 630, ExcludeID: "b1",
	}

	assert.Empty(t, conflict.Detect(candidate, []model.Booking{existing}))
}

func TestDetect_MultiDayAllDayBlocksTimedRequest(t *testing.T) {
	existing := model.Booking{
		ID:         "b1",
		RoomID:     roomID,
		Date:       "2024-06-10",
		IsMultiDay: true,
		EndDate:    date("2024-06-12"),
		AllDay:     true,
		Status:     model.StatusApproved,
	}
	candidate := conflict.Candidate{RoomID: roomID, Date: "2024-06-11", EndDate: "2024-06-11", StartTime: 600, EndTime: 660}

	conflicts := conflict.Detect(candidate, []model.Booking{existing})

	require.Len(t, conflicts, 1)
	assert.Equal(t, conflict.KindBlockedByAllDay, conflicts[0].Kind)
	assert.True(t, conflicts[0].Booking.IsMultiDay)
	assert.Nil(t, conflicts[0].Booking.StartTime)
}

func TestDetect_MultiDayRequestBoundaries(t *testing.T) {
	candidate := conflict.Candidate{RoomID: roomID, Date: "2024-06-08", EndDate: "2024-06-10", AllDay: true, RoomName: "Orchid"}

	onLastDay := allDay("b1", "2024-06-10", model.StatusApproved)
	dayAfter := allDay("b2", "2024-06-11", model.StatusApproved)
	multi := model.Booking{
		ID: "b3", RoomID: roomID, Date: "2024-06-05", IsMultiDay: true, EndDate: date("2024-06-08"),
		AllDay: true, Status: model.StatusApproved,
	}

	conflicts := conflict.Detect(candidate, []model.Booking{onLastDay, dayAfter, multi})

	require.Len(t, conflicts, 2)
	assert.Equal(t, "b1", conflicts[0].Booking.ID)
	assert.Equal(t, "b3", conflicts[1].Booking.ID)
	assert.Equal(t, "Room Orchid already booked for all day on 2024-06-05 to 2024-06-08", conflicts[1].Message)
}

func TestResult(t *testing.T) {
	empty := conflict.NewResult(nil)
	assert.False(t, empty.HasConflicts)
	assert.NotNil(t, empty.Conflicts)

	result := conflict.NewResult([]conflict.Conflict{
		{Kind: conflict.KindTimeSlot},
		{Kind: conflict.KindBlockedByAllDay},
		{Kind: conflict.KindTimeSlot},
	})
	assert.True(t, result.HasConflicts)
	assert.Equal(t, []string{"time_slot", "blocked_by_all_day"}, result.Kinds())
	assert.Equal(t, "Room Orchid not available for the requested time", conflict.Summary(conflict.Candidate{RoomName: "Orchid"}))
}

func TestNewSnapshotFormatsTimes(t *testing.T) {
	snapshot := conflict.NewSnapshot(timed("b1", "2024-06-10", 540, 600, model.StatusApproved))

	require.NotNil(t, snapshot.StartTime)
	require.NotNil(t, snapshot.EndTime)
	assert.Equal(t, "09:00", *snapshot.StartTime)
	assert.Equal(t, "10:00", *snapshot.EndTime)
	assert.Nil(t, snapshot.EndDate)
}

func TestFromBooking(t *testing.T) {
	stored := model.Booking{
		ID: "b1", RoomID: roomID, RoomName: "Orchid", Date: "2024-06-10", IsMultiDay: true,
		EndDate: date("2024-06-12"), StartTime: minutes(540), EndTime: minutes(600), Status: model.StatusPending,
	}

	candidate := conflict.FromBooking(stored)

	assert.Equal(t, "b1", candidate.ExcludeID)
	assert.Equal(t, calendar.Date("2024-06-12"), candidate.EndDate)
	assert.Equal(t, 540, candidate.StartTime)
	assert.Equal(t, 600, candidate.EndTime)
	assert.Empty(t, conflict.Detect(candidate, []model.Booking{{
		ID: "b1", RoomID: roomID, Date: "2024-06-10", AllDay: true, Status: model.StatusApproved,
	}}))
}
