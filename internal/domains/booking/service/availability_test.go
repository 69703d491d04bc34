package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"meetroom/config"
	"meetroom/infras/otel/mocks"
	"meetroom/internal/domains/booking/event"
	bookingMocks "meetroom/internal/domains/booking/mocks"
	"meetroom/internal/domains/booking/model"
	roomMocks "meetroom/internal/domains/room/mocks"
	"meetroom/shared/cache"
	cacheMocks "meetroom/shared/cache/mocks"
	gDto "meetroom/shared/dto"
)

type availabilityFixture struct {
	svc   *serviceImpl
	repo  *bookingMocks.MockBooking
	cache *cacheMocks.MockRedisCache
}

func newAvailabilityFixture(t *testing.T) availabilityFixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	cfg := &config.Config{}
	cfg.Cache.TTL = 3600

	otel := mocks.NewOtel()
	repo := bookingMocks.NewMockBooking(ctrl)
	rooms := roomMocks.NewMockRoom(ctrl)
	redisCache := cacheMocks.NewMockRedisCache(ctrl)

	rooms.EXPECT().Exist(gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()
	redisCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(cache.Nil).AnyTimes()

	svc, ok := New(repo, rooms, cfg, redisCache, otel, event.NewPublisher(cfg, nil, otel), nil).(*serviceImpl)
	require.True(t, ok)

	return availabilityFixture{svc: svc, repo: repo, cache: redisCache}
}

func TestGetAvailableSlots_LoadOutlivesCaller(t *testing.T) {
	f := newAvailabilityFixture(t)

	saved := make(chan struct{})
	f.cache.EXPECT().
		Save(gomock.Any(), "booking:availability:room-1:2099-01-01", gomock.Any(), 3600).
		DoAndReturn(func(context.Context, string, any, int) error {
			close(saved)

			return nil
		})

	f.repo.EXPECT().
		GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ gDto.QueryParams, _ gDto.FilterGroup, _ ...string) ([]model.Booking, error) {
			require.NoError(t, ctx.Err())

			return []model.Booking{}, nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.svc.GetAvailableSlots(ctx, "room-1", "2099-01-01")
	require.NoError(t, err)
	assert.True(t, res.IsDayAvailable)

	select {
	case <-saved:
	case <-time.After(time.Second):
		t.Fatal("availability was not cached")
	}
}

func TestGetAvailableSlots_InvalidatedDuringLoad(t *testing.T) {
	f := newAvailabilityFixture(t)

	f.cache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.cache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	f.repo.EXPECT().
		GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ gDto.QueryParams, _ gDto.FilterGroup, _ ...string) ([]model.Booking, error) {
			// an approval for the same room commits while the read is in flight
			f.svc.invalidate(ctx, "", "room-1")

			return []model.Booking{}, nil
		})

	res, err := f.svc.GetAvailableSlots(context.Background(), "room-1", "2099-01-01")
	require.NoError(t, err)
	assert.True(t, res.Found)
}

func TestSaveAvailability_DropsEntryInvalidatedDuringWrite(t *testing.T) {
	f := newAvailabilityFixture(t)
	load := availabilityLoad{version: f.svc.versions.current("room-1")}

	f.cache.EXPECT().
		Save(gomock.Any(), "booking:availability:room-1:2099-01-01", gomock.Any(), 3600).
		DoAndReturn(func(context.Context, string, any, int) error {
			f.svc.versions.bump("room-1")

			return nil
		})
	f.cache.EXPECT().Delete(gomock.Any(), "booking:availability:room-1:2099-01-01").Return(nil)

	f.svc.saveAvailability(context.Background(), "booking:availability:room-1:2099-01-01", "room-1", load)
}
