package http_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"meetroom/config"
	"meetroom/infras/jwt"
	otelMocks "meetroom/infras/otel/mocks"
	bookingMocks "meetroom/internal/domains/booking/service/mocks"
	roomDto "meetroom/internal/domains/room/model/dto"
	roomMocks "meetroom/internal/domains/room/service/mocks"
	bookingHandler "meetroom/internal/handlers/booking"
	roomHandler "meetroom/internal/handlers/room"
	"meetroom/permissions"
	"meetroom/shared/metrics"
	transport "meetroom/transport/http"
	"meetroom/transport/http/middleware"
	"meetroom/transport/http/router"
)

type fixture struct {
	rooms  *roomMocks.MockRoom
	server *transport.HTTP
}

func setup(t *testing.T, probeErr error) fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Name = "meetroom"
	cfg.JWT.AccessSecret = "access-secret"
	cfg.Metrics.Path = "/metrics"

	ctrl := gomock.NewController(t)
	rooms := roomMocks.NewMockRoom(ctrl)
	bookings := bookingMocks.NewMockBooking(ctrl)
	otel := otelMocks.NewOtel()

	r := router.New(router.DomainHandlers{
		Room:    roomHandler.New(rooms, bookings, otel),
		Booking: bookingHandler.New(bookings, otel),
	})

	probes := transport.Probes{{Name: "postgres", Check: func(context.Context) error { return probeErr }}}

	server := transport.New(
		cfg,
		r,
		middleware.NewAppMiddleware(otel, cfg, nil, metrics.New(cfg.App.Name)),
		middleware.NewAuthRoleMiddleware(jwt.New(cfg), otel, permissions.Get(), cfg),
		metrics.New(cfg.App.Name),
		probes,
	)

	return fixture{rooms: rooms, server: server}
}

func TestHealth(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		f := setup(t, nil)

		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, transport.ServerStateReady, f.server.State())
	})

	t.Run("dependency down", func(t *testing.T) {
		f := setup(t, errors.New("connection refused"))

		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestRoutes(t *testing.T) {
	t.Run("room directory is public", func(t *testing.T) {
		f := setup(t, nil)
		f.rooms.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).Return(roomDto.GetRoomsResponse{Rooms: []roomDto.RoomResponse{}}, nil)

		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/rooms", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bookings need a token", func(t *testing.T) {
		f := setup(t, nil)

		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/bookings/mine", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		f := setup(t, nil)

		rec := httptest.NewRecorder()
		f.server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))
	})
}
