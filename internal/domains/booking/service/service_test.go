package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"meetroom/config"
	"meetroom/infras/otel/mocks"
	"meetroom/internal/domains/booking/conflict"
	"meetroom/internal/domains/booking/event"
	bookingMocks "meetroom/internal/domains/booking/mocks"
	"meetroom/internal/domains/booking/model"
	"meetroom/internal/domains/booking/model/dto"
	"meetroom/internal/domains/booking/service"
	roomMocks "meetroom/internal/domains/room/mocks"
	roomModel "meetroom/internal/domains/room/model"
	"meetroom/shared/cache"
	cacheMocks "meetroom/shared/cache/mocks"
	"meetroom/shared/calendar"
	"meetroom/shared/constant"
	gDto "meetroom/shared/dto"
	"meetroom/shared/failure"
	"meetroom/shared/identity"
)

const (
	testRoomID = "room-1"
	ownerID    = "user-1"
	strangerID = "user-2"
	adminID    = "admin-1"
)

var (
	owner    = identity.Identity{ID: ownerID}
	stranger = identity.Identity{ID: strangerID}
	admin    = identity.Identity{ID: adminID, IsAdmin: true}
)

type suite struct {
	repo  *bookingMocks.MockBooking
	rooms *roomMocks.MockRoom
	svc   service.Booking
}

func newSuite(t *testing.T) suite {
	t.Helper()

	ctrl := gomock.NewController(t)

	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(cache.Nil).AnyTimes()
	mockCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	otel := mocks.NewOtel()
	repo := bookingMocks.NewMockBooking(ctrl)
	rooms := roomMocks.NewMockRoom(ctrl)

	return suite{
		repo:  repo,
		rooms: rooms,
		svc:   service.New(repo, rooms, cfg, mockCache, otel, event.NewPublisher(cfg, nil, otel), nil),
	}
}

func (s suite) expectRoom() {
	s.rooms.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(roomModel.Room{ID: testRoomID, Name: "Board Room"}, nil)
}

func (s suite) expectApproved(bookings ...model.Booking) {
	s.repo.EXPECT().
		GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(bookings, nil)
}

func (s suite) expectLocked(bookings ...model.Booking) {
	s.repo.EXPECT().
		WithRoomLock(gomock.Any(), testRoomID, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, fn func(context.Context, *sqlx.Tx) error) error {
			return fn(ctx, &sqlx.Tx{})
		})
	s.repo.EXPECT().
		GetAllTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(bookings, nil)
}

func (s suite) expectStored(booking model.Booking) {
	s.repo.EXPECT().
		Get(gomock.Any(), gomock.Any()).
		Return(booking, nil)
}

func timed(id, date string, start, end int, status model.Status) model.Booking {
	return model.Booking{
		ID:          id,
		RoomID:      testRoomID,
		RoomName:    "Board Room",
		RequesterID: ownerID,
		Date:        calendar.MustDate(date),
		StartTime:   &start,
		EndTime:     &end,
		Purpose:     "Meeting",
		Status:      status,
	}
}

func allDay(id, date string, status model.Status) model.Booking {
	return model.Booking{
		ID:          id,
		RoomID:      testRoomID,
		RoomName:    "Board Room",
		RequesterID: ownerID,
		Date:        calendar.MustDate(date),
		AllDay:      true,
		Purpose:     "Meeting",
		Status:      status,
	}
}

func conflictKinds(t *testing.T, err error) []conflict.Kind {
	t.Helper()

	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, failure.GetCode(err))

	details, ok := failure.GetDetails(err).([]conflict.Conflict)
	require.True(t, ok)

	kinds := make([]conflict.Kind, len(details))
	for i, item := range details {
		kinds[i] = item.Kind
	}

	return kinds
}

func ptr[T any](v T) *T {
	return &v
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		schedule dto.Schedule
		wantMsg  string
		want     conflict.Candidate
	}{
		{
			name:     "missing room",
			schedule: dto.Schedule{Date: "2099-01-01", StartTime: "09:00", EndTime: "10:00"},
			wantMsg:  "Missing required fields: room_id and date are required",
		},
		{
			name:     "unparseable date",
			schedule: dto.Schedule{RoomID: testRoomID, Date: "someday"},
			wantMsg:  "Invalid date format. Use YYYY-MM-DD format (e.g., 2024-07-01)",
		},
		{
			name:     "multi-day without end date",
			schedule: dto.Schedule{RoomID: testRoomID, Date: "2099-01-01", IsMultiDay: true, AllDay: true},
			wantMsg:  "Missing required field: end_date is required for multi-day bookings",
		},
		{
			name:     "multi-day ending on its first day",
			schedule: dto.Schedule{RoomID: testRoomID, Date: "2099-01-02", IsMultiDay: true, EndDate: "2099-01-02", AllDay: true},
			wantMsg:  "End date must be after start date for multi-day bookings",
		},
		{
			name:     "timed without end time",
			schedule: dto.Schedule{RoomID: testRoomID, Date: "2099-01-01", StartTime: "09:00"},
			wantMsg:  "Missing required fields: start_time and end_time are required for non-all-day bookings",
		},
		{
			name:     "bad start time",
			schedule: dto.Schedule{RoomID: testRoomID, Date: "2099-01-01", StartTime: "24:00", EndTime: "10:00"},
			wantMsg:  "Invalid start_time format. Use HH:MM format (e.g., 09:00)",
		},
		{
			name:     "end before start",
			schedule: dto.Schedule{RoomID: testRoomID, Date: "2099-01-01", StartTime: "10:00", EndTime: "10:00"},
			wantMsg:  "End time must be after start time",
		},
		{
			name:     "all-day ignores times",
			schedule: dto.Schedule{RoomID: testRoomID, Date: "2099-01-01", AllDay: true, StartTime: "junk"},
			want:     conflict.Candidate{RoomID: testRoomID, Date: "2099-01-01", EndDate: "2099-01-01", AllDay: true},
		},
		{
			name:     "timed multi-day",
			schedule: dto.Schedule{RoomID: " room-1 ", Date: "2099-01-01T08:00:00Z", IsMultiDay: true, EndDate: "2099-01-03", StartTime: "9:30", EndTime: "11:00"},
			want:     conflict.Candidate{RoomID: testRoomID, Date: "2099-01-01", EndDate: "2099-01-03", StartTime: 570, EndTime: 660},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.Validate(tt.schedule)

			if tt.wantMsg != "" {
				require.Error(t, err)
				assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
				assert.Equal(t, tt.wantMsg, err.Error())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBookingService_CheckConflicts(t *testing.T) {
	tests := []struct {
		name      string
		req       dto.CheckConflictsRequest
		existing  []model.Booking
		wantKinds []conflict.Kind
	}{
		{
			name:      "overlapping time slot",
			req:       dto.CheckConflictsRequest{Schedule: dto.Schedule{RoomID: testRoomID, Date: "2099-01-01", StartTime: "10:00", EndTime: "12:00"}},
			existing:  []model.Booking{timed("b-1", "2099-01-01", 540, 660, model.StatusApproved)},
			wantKinds: []conflict.Kind{conflict.KindTimeSlot},
		},
		{
			name:      "touching slots do not conflict",
			req:       dto.CheckConflictsRequest{Schedule: dto.Schedule{RoomID: testRoomID, Date: "2099-01-01", StartTime: "11:00", EndTime: "12:00"}},
			existing:  []model.Booking{timed("b-1", "2099-01-01", 540, 660, model.StatusApproved)},
			wantKinds: []conflict.Kind{},
		},
		{
			name:      "pending bookings never block",
			req:       dto.CheckConflictsRequest{Schedule: dto.Schedule{RoomID: testRoomID, Date: "2099-01-01", AllDay: true}},
			existing:  []model.Booking{timed("b-1", "2099-01-01", 540, 660, model.StatusPending)},
			wantKinds: []conflict.Kind{},
		},
		{
			name: "multi-day request crosses an all-day booking",
			req: dto.CheckConflictsRequest{Schedule: dto.Schedule{
				RoomID: testRoomID, Date: "2099-01-01", IsMultiDay: true, EndDate: "2099-01-03", StartTime: "09:00", EndTime: "10:00",
			}},
			existing:  []model.Booking{allDay("b-1", "2099-01-02", model.StatusApproved)},
			wantKinds: []conflict.Kind{conflict.KindBlockedByAllDay},
		},
		{
			name: "excluded booking is ignored",
			req: dto.CheckConflictsRequest{
				Schedule:         dto.Schedule{RoomID: testRoomID, Date: "2099-01-01", StartTime: "09:00", EndTime: "10:00"},
				ExcludeBookingID: "b-1",
			},
			existing:  []model.Booking{timed("b-1", "2099-01-01", 540, 660, model.StatusApproved)},
			wantKinds: []conflict.Kind{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t)
			s.expectRoom()
			s.expectApproved(tt.existing...)

			res, err := s.svc.CheckConflicts(context.Background(), tt.req)
			require.NoError(t, err)

			kinds := []conflict.Kind{}
			for _, item := range res.Conflicts {
				kinds = append(kinds, item.Kind)
			}

			assert.Equal(t, len(tt.wantKinds) > 0, res.HasConflicts)
			assert.Equal(t, tt.wantKinds, kinds)
		})
	}
}

func TestBookingService_CheckConflicts_UnknownRoom(t *testing.T) {
	s := newSuite(t)
	s.rooms.EXPECT().Get(gomock.Any(), gomock.Any()).Return(roomModel.Room{}, nil)

	_, err := s.svc.CheckConflicts(context.Background(), dto.CheckConflictsRequest{
		Schedule: dto.Schedule{RoomID: "missing", Date: "2099-01-01", AllDay: true},
	})

	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	assert.Equal(t, "Meeting room not found", err.Error())
}

func TestBookingService_GetAvailableSlots(t *testing.T) {
	t.Run("timed booking occupies two slots", func(t *testing.T) {
		s := newSuite(t)
		s.rooms.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
		s.expectApproved(timed("b-1", "2099-01-01", 540, 660, model.StatusApproved))

		res, err := s.svc.GetAvailableSlots(context.Background(), testRoomID, "2099-01-01")
		require.NoError(t, err)

		assert.True(t, res.Found)
		assert.True(t, res.IsDayAvailable)
		require.Len(t, res.Slots, 9)
		assert.Equal(t, 7, res.AvailableCount)
		assert.Equal(t, dto.Slot{StartTime: "09:00", EndTime: "10:00", Reason: dto.SlotReasonTimeSlot}, res.Slots[0])
		assert.Equal(t, dto.Slot{StartTime: "11:00", EndTime: "12:00", Available: true, Reason: dto.SlotReasonAvailable}, res.Slots[2])
		assert.Equal(t, "18:00", res.Slots[8].EndTime)
	})

	t.Run("all-day booking closes the day", func(t *testing.T) {
		s := newSuite(t)
		s.rooms.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
		s.expectApproved(allDay("b-1", "2099-01-01", model.StatusApproved))

		res, err := s.svc.GetAvailableSlots(context.Background(), testRoomID, "2099-01-01")
		require.NoError(t, err)

		assert.False(t, res.IsDayAvailable)
		assert.Zero(t, res.AvailableCount)

		for _, slot := range res.Slots {
			assert.Equal(t, dto.SlotReasonAllDay, slot.Reason)
		}
	})

	t.Run("unknown room is reported as not found", func(t *testing.T) {
		s := newSuite(t)
		s.rooms.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(false, nil)

		res, err := s.svc.GetAvailableSlots(context.Background(), "missing", "2099-01-01")
		require.NoError(t, err)

		assert.False(t, res.Found)
		assert.Empty(t, res.Slots)
	})

	t.Run("invalid date", func(t *testing.T) {
		s := newSuite(t)

		_, err := s.svc.GetAvailableSlots(context.Background(), testRoomID, "tomorrow-ish")
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	})
}

func TestBookingService_GetMultiDayAvailability(t *testing.T) {
	t.Run("one entry per day", func(t *testing.T) {
		s := newSuite(t)
		s.rooms.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil)
		s.expectApproved(allDay("b-1", "2099-01-02", model.StatusApproved))

		res, err := s.svc.GetMultiDayAvailability(context.Background(), testRoomID, "2099-01-01", "2099-01-03")
		require.NoError(t, err)

		require.Len(t, res.Days, 3)
		assert.Equal(t, dto.DayAvailability{Date: "2099-01-01", IsAvailable: true, AvailableSlotCount: 9}, res.Days[0])
		assert.Equal(t, dto.DayAvailability{Date: "2099-01-02"}, res.Days[1])
		assert.True(t, res.Days[2].IsAvailable)
	})

	tests := []struct {
		name  string
		start string
		end   string
	}{
		{name: "missing end", start: "2099-01-01"},
		{name: "end equals start", start: "2099-01-01", end: "2099-01-01"},
		{name: "end before start", start: "2099-01-05", end: "2099-01-01"},
		{name: "range too long", start: "2099-01-01", end: "2099-06-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSuite(t)

			_, err := s.svc.GetMultiDayAvailability(context.Background(), testRoomID, tt.start, tt.end)
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
		})
	}
}

type placement struct {
	first, last int
	allDay      bool
	start, end  int
}

var matrixBase = calendar.MustDate("2099-03-10")

func (p placement) window() (int, int) {
	if p.allDay {
		return 0, calendar.MinutesPerDay
	}

	return p.start, p.end
}

func (p placement) String() string {
	start, end := p.window()

	return fmt.Sprintf("days %d..%d minutes %d-%d", p.first, p.last, start, end)
}

func (p placement) booking(id string) model.Booking {
	booking := model.Booking{
		ID:          id,
		RoomID:      testRoomID,
		RoomName:    "Board Room",
		RequesterID: strangerID,
		Date:        matrixBase.AddDays(p.first),
		AllDay:      p.allDay,
		Purpose:     "Meeting",
		Status:      model.StatusApproved,
	}

	if p.last > p.first {
		booking.IsMultiDay = true
		booking.EndDate = ptr(matrixBase.AddDays(p.last))
	}

	if !p.allDay {
		booking.StartTime = ptr(p.start)
		booking.EndTime = ptr(p.end)
	}

	return booking
}

func (p placement) schedule() dto.Schedule {
	schedule := dto.Schedule{
		RoomID: testRoomID,
		Date:   matrixBase.AddDays(p.first).String(),
		AllDay: p.allDay,
	}

	if p.last > p.first {
		schedule.IsMultiDay = true
		schedule.EndDate = matrixBase.AddDays(p.last).String()
	}

	if !p.allDay {
		schedule.StartTime = calendar.FormatMinutes(p.start)
		schedule.EndTime = calendar.FormatMinutes(p.end)
	}

	return schedule
}

// expectedKind restates the collision rule: inclusive day ranges, half-open minute
// windows, all-day bookings occupying the whole day.
func expectedKind(req, existing placement) []conflict.Kind {
	if req.first > existing.last || existing.first > req.last {
		return []conflict.Kind{}
	}

	switch {
	case req.allDay && existing.allDay:
		return []conflict.Kind{conflict.KindAllDay}
	case req.allDay:
		return []conflict.Kind{conflict.KindAllDayOverride}
	case existing.allDay:
		return []conflict.Kind{conflict.KindBlockedByAllDay}
	}

	reqStart, reqEnd := req.window()
	exStart, exEnd := existing.window()

	if reqStart < exEnd && exStart < reqEnd {
		return []conflict.Kind{conflict.KindTimeSlot}
	}

	return []conflict.Kind{}
}

func TestBookingService_CheckConflicts_ApprovedPairs(t *testing.T) {
	existing := []placement{
		{first: 0, last: 0, start: 540, end: 660},
		{first: 0, last: 0, allDay: true},
		{first: 0, last: 2, start: 540, end: 660},
		{first: 1, last: 3, allDay: true},
	}

	days := [][2]int{{-2, -1}, {-1, 0}, {0, 0}, {2, 2}, {3, 5}, {4, 4}, {-3, 6}}
	windows := []placement{
		{allDay: true},
		{start: 480, end: 540},
		{start: 480, end: 600},
		{start: 600, end: 630},
		{start: 659, end: 720},
		{start: 660, end: 720},
	}

	for _, held := range existing {
		for _, span := range days {
			for _, window := range windows {
				req := window
				req.first, req.last = span[0], span[1]

				t.Run(req.String()+" against "+held.String(), func(t *testing.T) {
					s := newSuite(t)
					s.expectRoom()
					s.expectApproved(held.booking("b-1"))

					res, err := s.svc.CheckConflicts(context.Background(), dto.CheckConflictsRequest{Schedule: req.schedule()})
					require.NoError(t, err)

					kinds := []conflict.Kind{}
					for _, item := range res.Conflicts {
						kinds = append(kinds, item.Kind)
						assert.Equal(t, "b-1", item.Booking.ID)
					}

					want := expectedKind(req, held)
					assert.Equal(t, want, kinds)
					assert.Equal(t, len(want) > 0, res.HasConflicts)
				})
			}
		}
	}
}

func TestBookingService_Create(t *testing.T) {
	req := dto.CreateBookingRequest{RoomID: testRoomID, Date: "2099-01-01", StartTime: "10:00", EndTime: "12:00"}

	t.Run("new bookings start pending", func(t *testing.T) {
		s := newSuite(t)
		s.expectRoom()
		s.expectApproved()
		s.repo.EXPECT().
			Insert(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, booking model.Booking) error {
				assert.Equal(t, model.StatusPending, booking.Status)
				assert.Equal(t, ownerID, booking.RequesterID)
				assert.Equal(t, "Meeting", booking.Purpose)

				return nil
			})

		res, err := s.svc.Create(context.Background(), owner, req)
		require.NoError(t, err)

		assert.NotEmpty(t, res.ID)
		assert.Equal(t, "pending", res.Status)
		assert.Equal(t, "Board Room", res.RoomName)
		assert.Equal(t, "10:00", *res.StartTime)
	})

	t.Run("approved overlap is rejected", func(t *testing.T) {
		s := newSuite(t)
		s.expectRoom()
		s.expectApproved(timed("b-1", "2099-01-01", 540, 660, model.StatusApproved))

		_, err := s.svc.Create(context.Background(), owner, req)

		assert.Equal(t, []conflict.Kind{conflict.KindTimeSlot}, conflictKinds(t, err))
		assert.Equal(t, "Room Board Room not available for the requested time", err.Error())
	})

	t.Run("store exclusion violation is a conflict", func(t *testing.T) {
		s := newSuite(t)
		s.expectRoom()
		s.expectApproved()
		s.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(&pq.Error{Code: "23P01"})

		_, err := s.svc.Create(context.Background(), owner, req)

		assert.Empty(t, conflictKinds(t, err))
	})

	t.Run("store failure", func(t *testing.T) {
		s := newSuite(t)
		s.expectRoom()
		s.expectApproved()
		s.repo.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(errors.New("database error"))

		_, err := s.svc.Create(context.Background(), owner, req)

		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, failure.GetCode(err))
	})
}

func TestBookingService_Update(t *testing.T) {
	future := timed("b-1", "2099-01-01", 540, 600, model.StatusPending)

	t.Run("strangers cannot edit", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(future)

		_, err := s.svc.Update(context.Background(), stranger, "b-1", dto.UpdateBookingRequest{Purpose: ptr("Sync")})

		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
	})

	t.Run("admins edit other people's bookings", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(future)
		s.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, "Quarterly review", fields[model.FieldPurpose])
				assert.Equal(t, adminID, fields[constant.FieldModifiedBy])
				assert.NotContains(t, fields, model.FieldRequesterID)

				return nil
			})

		res, err := s.svc.Update(context.Background(), admin, "b-1", dto.UpdateBookingRequest{Purpose: ptr("Quarterly review")})
		require.NoError(t, err)

		assert.Equal(t, []string{model.FieldPurpose}, res.ChangedFields)
		assert.Equal(t, ownerID, res.Booking.RequesterID)
	})

	t.Run("admins approve other people's bookings into a free slot", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(future)
		s.expectLocked(timed("b-2", "2099-01-01", 600, 660, model.StatusApproved))
		s.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, string(model.StatusApproved), fields[model.FieldStatus])

				return nil
			})

		res, err := s.svc.Update(context.Background(), admin, "b-1", dto.UpdateBookingRequest{Status: ptr("approved")})
		require.NoError(t, err)

		assert.Equal(t, []string{model.FieldStatus}, res.ChangedFields)
		assert.Equal(t, "approved", res.Booking.Status)
	})

	t.Run("owners cannot edit started bookings", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(timed("b-1", "2000-01-01", 540, 600, model.StatusPending))

		_, err := s.svc.Update(context.Background(), owner, "b-1", dto.UpdateBookingRequest{Purpose: ptr("Sync")})

		require.Error(t, err)
		assert.Equal(t, "Cannot edit past or ongoing bookings", err.Error())
	})

	t.Run("owners cannot change status", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(future)

		_, err := s.svc.Update(context.Background(), owner, "b-1", dto.UpdateBookingRequest{Status: ptr("approved")})

		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
	})

	t.Run("unchanged request writes nothing", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(future)

		res, err := s.svc.Update(context.Background(), owner, "b-1", dto.UpdateBookingRequest{
			Purpose:   ptr("Meeting"),
			StartTime: ptr("09:00"),
			Status:    ptr("pending"),
		})
		require.NoError(t, err)

		assert.Empty(t, res.ChangedFields)
		assert.Equal(t, "b-1", res.Booking.ID)
	})

	t.Run("purpose change skips the conflict check", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(future)
		s.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, "Sync", fields[model.FieldPurpose])
				assert.NotContains(t, fields, model.FieldDate)

				return nil
			})

		res, err := s.svc.Update(context.Background(), owner, "b-1", dto.UpdateBookingRequest{Purpose: ptr("Sync")})
		require.NoError(t, err)

		assert.Equal(t, []string{model.FieldPurpose}, res.ChangedFields)
		assert.Equal(t, "Sync", res.Booking.Purpose)
	})

	t.Run("moving an approved booking is re-checked", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(timed("b-1", "2099-01-01", 540, 600, model.StatusApproved))
		s.expectLocked(timed("b-1", "2099-01-01", 540, 600, model.StatusApproved))
		s.repo.EXPECT().
			UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ *sqlx.Tx, fields map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, ptr(840), fields[model.FieldStartTime])

				return nil
			})

		res, err := s.svc.Update(context.Background(), owner, "b-1", dto.UpdateBookingRequest{
			StartTime: ptr("14:00"),
			EndTime:   ptr("15:00"),
		})
		require.NoError(t, err)

		assert.Equal(t, []string{model.FieldStartTime, model.FieldEndTime}, res.ChangedFields)
	})

	t.Run("admin approval that collides is rejected", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(future)
		s.expectLocked(timed("b-2", "2099-01-01", 570, 630, model.StatusApproved))

		_, err := s.svc.Update(context.Background(), admin, "b-1", dto.UpdateBookingRequest{Status: ptr("approved")})

		assert.Equal(t, []conflict.Kind{conflict.KindTimeSlot}, conflictKinds(t, err))
	})

	t.Run("missing booking", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(model.Booking{})

		_, err := s.svc.Update(context.Background(), admin, "b-9", dto.UpdateBookingRequest{})

		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
	})
}

func TestBookingService_Cancel(t *testing.T) {
	t.Run("admin cancelling a pending request rejects it", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(timed("b-1", "2000-01-01", 540, 600, model.StatusPending))
		s.repo.EXPECT().
			Update(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, fields map[string]any, _ gDto.FilterGroup) error {
				assert.Equal(t, string(model.StatusRejected), fields[model.FieldStatus])
				assert.Equal(t, "Booking rejected by admin", fields[model.FieldAdminRemarks])

				return nil
			})

		res, err := s.svc.Cancel(context.Background(), admin, "b-1")
		require.NoError(t, err)

		assert.Equal(t, dto.CancelActionRejected, res.Action)
		assert.True(t, res.IsAdminAction)
		assert.Equal(t, adminID, res.CancelledBy)
	})

	t.Run("owner cancel deletes", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(timed("b-1", "2099-01-01", 540, 600, model.StatusApproved))
		s.repo.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil)

		res, err := s.svc.Cancel(context.Background(), owner, "b-1")
		require.NoError(t, err)

		assert.Equal(t, dto.CancelActionDeleted, res.Action)
		assert.False(t, res.IsAdminAction)
		assert.NotEmpty(t, res.CancelledAt)
	})

	t.Run("admin cancel of an approved booking deletes", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(timed("b-1", "2099-01-01", 540, 600, model.StatusApproved))
		s.repo.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil)

		res, err := s.svc.Cancel(context.Background(), admin, "b-1")
		require.NoError(t, err)

		assert.Equal(t, dto.CancelActionDeleted, res.Action)
	})

	t.Run("strangers cannot cancel", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(timed("b-1", "2099-01-01", 540, 600, model.StatusPending))

		_, err := s.svc.Cancel(context.Background(), stranger, "b-1")

		require.Error(t, err)
		assert.Equal(t, "You are not authorized to cancel this booking", err.Error())
	})

	t.Run("owners cannot cancel past bookings", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(allDay("b-1", "2000-01-01", model.StatusApproved))

		_, err := s.svc.Cancel(context.Background(), owner, "b-1")

		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, failure.GetCode(err))
	})
}

func TestBookingService_UpdateStatus(t *testing.T) {
	t.Run("only admins", func(t *testing.T) {
		s := newSuite(t)

		_, err := s.svc.UpdateStatus(context.Background(), owner, "b-1", dto.UpdateStatusRequest{Status: "approved"})

		require.Error(t, err)
		assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
	})

	t.Run("unknown status", func(t *testing.T) {
		s := newSuite(t)

		_, err := s.svc.UpdateStatus(context.Background(), admin, "b-1", dto.UpdateStatusRequest{Status: "archived"})

		require.Error(t, err)
		assert.Equal(t, "Invalid status. Must be: pending, approved, rejected, or cancelled", err.Error())
	})

	t.Run("approval re-checks under the room lock", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(timed("b-1", "2099-01-01", 540, 600, model.StatusPending))
		s.expectLocked()
		s.repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		res, err := s.svc.UpdateStatus(context.Background(), admin, "b-1", dto.UpdateStatusRequest{Status: " Approved ", AdminRemarks: "ok"})
		require.NoError(t, err)

		assert.Equal(t, "approved", res.Status)
		assert.Equal(t, "ok", res.AdminRemarks)
	})

	t.Run("approval that collides", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(allDay("b-1", "2099-01-01", model.StatusPending))
		s.expectLocked(timed("b-2", "2099-01-01", 540, 600, model.StatusApproved))

		_, err := s.svc.UpdateStatus(context.Background(), admin, "b-1", dto.UpdateStatusRequest{Status: "approved"})

		assert.Equal(t, []conflict.Kind{conflict.KindAllDayOverride}, conflictKinds(t, err))
	})

	t.Run("rejection needs no lock", func(t *testing.T) {
		s := newSuite(t)
		s.expectStored(timed("b-1", "2099-01-01", 540, 600, model.StatusApproved))
		s.repo.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

		res, err := s.svc.UpdateStatus(context.Background(), admin, "b-1", dto.UpdateStatusRequest{Status: "rejected"})
		require.NoError(t, err)

		assert.Equal(t, "rejected", res.Status)
	})
}

func TestBookingService_GetMine(t *testing.T) {
	s := newSuite(t)
	s.repo.EXPECT().
		GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]model.Booking{
			timed("b-1", "2099-01-01", 540, 600, model.StatusApproved),
			allDay("b-2", "2000-01-01", model.StatusRejected),
		}, nil)

	res, err := s.svc.GetMine(context.Background(), owner, []model.Status{model.StatusApproved, model.StatusRejected})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	require.Len(t, res.Upcoming, 1)
	require.Len(t, res.Past, 1)
	assert.Equal(t, "b-1", res.Upcoming[0].ID)
	assert.Equal(t, "b-2", res.Past[0].ID)
}
