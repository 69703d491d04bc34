package room_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"meetroom/infras/otel/mocks"
	bookingDto "meetroom/internal/domains/booking/model/dto"
	bookingMocks "meetroom/internal/domains/booking/service/mocks"
	"meetroom/internal/domains/room/model"
	"meetroom/internal/domains/room/model/dto"
	roomMocks "meetroom/internal/domains/room/service/mocks"
	"meetroom/internal/handlers/room"
	"meetroom/shared/constant"
	gDto "meetroom/shared/dto"
	"meetroom/shared/failure"
	"meetroom/shared/identity"
)

type fixture struct {
	rooms    *roomMocks.MockRoom
	bookings *bookingMocks.MockBooking
	router   http.Handler
}

func setup(t *testing.T) fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := fixture{
		rooms:    roomMocks.NewMockRoom(ctrl),
		bookings: bookingMocks.NewMockBooking(ctrl),
	}

	handler := room.New(f.rooms, f.bookings, mocks.NewOtel())
	router := chi.NewRouter()
	handler.Router(router)
	f.router = router

	return f
}

func asAdmin(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), constant.ContextKeyUserID, "admin-1")
	ctx = context.WithValue(ctx, constant.ContextKeyUserRole, constant.RoleAdmin)

	return r.WithContext(ctx)
}

func form(t *testing.T, method, target string, fields map[string]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}

	require.NoError(t, writer.Close())

	r := httptest.NewRequest(method, target, body)
	r.Header.Set(constant.RequestHeaderContentType, writer.FormDataContentType())

	return r
}

func activeFilter(t *testing.T, filter gDto.FilterGroup) any {
	t.Helper()

	for _, item := range filter.Filters {
		if f, ok := item.(gDto.Filter); ok && f.Field == model.FieldActive {
			return f.Value
		}
	}

	t.Fatal("active filter missing")

	return nil
}

func TestHandler_GetRooms(t *testing.T) {
	t.Run("active rooms by default", func(t *testing.T) {
		f := setup(t)
		f.rooms.EXPECT().
			GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ gDto.QueryParams, filter gDto.FilterGroup) (dto.GetRoomsResponse, error) {
				assert.Equal(t, true, activeFilter(t, filter))
				assert.Len(t, filter.Filters, 1)

				return dto.GetRoomsResponse{Rooms: []dto.RoomResponse{}}, nil
			})

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("inactive rooms on request", func(t *testing.T) {
		f := setup(t)
		f.rooms.EXPECT().
			GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (dto.GetRoomsResponse, error) {
				assert.Equal(t, false, activeFilter(t, filter))
				assert.Len(t, filter.Filters, 2)
				assert.Equal(t, "rooms.capacity", params.SortBy)

				return dto.GetRoomsResponse{Rooms: []dto.RoomResponse{}}, nil
			})

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms?active=false&name=board&sort_by=capacity", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown sort column", func(t *testing.T) {
		f := setup(t)

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms?sort_by=image", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_CreateRoom(t *testing.T) {
	t.Run("created from form", func(t *testing.T) {
		f := setup(t)
		f.rooms.EXPECT().
			Create(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, actor identity.Identity, req dto.CreateRoomRequest) (dto.RoomResponse, error) {
				assert.True(t, actor.IsAdmin)
				assert.Equal(t, "Board Room", req.Name)
				assert.Equal(t, 12, req.Capacity)
				require.NotNil(t, req.Active)
				assert.False(t, *req.Active)

				return dto.RoomResponse{ID: "room-1", Name: req.Name}, nil
			})

		r := asAdmin(form(t, http.MethodPost, "/rooms", map[string]string{"name": "Board Room", "capacity": "12", "active": "false"}))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("name is required", func(t *testing.T) {
		f := setup(t)

		r := asAdmin(form(t, http.MethodPost, "/rooms", map[string]string{"location": "3F"}))
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, r)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_DeleteRoom(t *testing.T) {
	f := setup(t)
	f.rooms.EXPECT().
		Delete(gomock.Any(), gomock.Any(), "room-1").
		Return(failure.Conflict("Meeting room has upcoming bookings and cannot be deleted"))

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, asAdmin(httptest.NewRequest(http.MethodDelete, "/rooms/room-1", nil)))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandler_GetAvailability(t *testing.T) {
	t.Run("slots for a day", func(t *testing.T) {
		f := setup(t)
		f.bookings.EXPECT().
			GetAvailableSlots(gomock.Any(), "room-1", "2024-07-01").
			Return(bookingDto.AvailabilityResponse{RoomID: "room-1", Date: "2024-07-01", Found: true, AvailableCount: 9}, nil)

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/room-1/availability?date=2024-07-01", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		body := struct {
			Data bookingDto.AvailabilityResponse `json:"data"`
		}{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, 9, body.Data.AvailableCount)
	})

	t.Run("date is required", func(t *testing.T) {
		f := setup(t)

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/room-1/availability", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("range", func(t *testing.T) {
		f := setup(t)
		f.bookings.EXPECT().
			GetMultiDayAvailability(gomock.Any(), "room-1", "2024-07-01", "2024-07-03").
			Return(bookingDto.RangeAvailabilityResponse{RoomID: "room-1"}, nil)

		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rooms/room-1/availability/range?start_date=2024-07-01&end_date=2024-07-03", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
