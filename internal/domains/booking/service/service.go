package service

import (
	"context"
	"fmt"
	"slices"

	"meetroom/config"
	"meetroom/infras/otel"
	"meetroom/internal/domains/booking/conflict"
	"meetroom/internal/domains/booking/event"
	"meetroom/internal/domains/booking/model"
	"meetroom/internal/domains/booking/model/dto"
	"meetroom/internal/domains/booking/repository"
	roomModel "meetroom/internal/domains/room/model"
	roomRepo "meetroom/internal/domains/room/repository"
	"meetroom/shared"
	"meetroom/shared/cache"
	"meetroom/shared/calendar"
	"meetroom/shared/constant"
	gDto "meetroom/shared/dto"
	"meetroom/shared/failure"
	"meetroom/shared/identity"
	"meetroom/shared/metrics"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	cacheGetBooking          = "booking:get"
	cacheGetAllBooking       = "booking:gets"
	cacheCountBooking        = "booking:count"
	cacheBookingAvailability = "booking:availability"
)

const (
	msgBookingNotFound = "Booking not found"
	msgRoomNotFound    = "Meeting room not found"
)

const (
	defaultWorkStartHour = 9
	defaultWorkEndHour   = 18
	defaultSlotMinutes   = 60
	defaultMaxRangeDays  = 62
	defaultPurpose       = "Meeting"
)

type Booking interface {
	CheckConflicts(ctx context.Context, req dto.CheckConflictsRequest) (conflict.Result, error)
	GetApprovedBookingsForDate(ctx context.Context, roomID string, date calendar.Date) ([]model.Booking, error)
	GetAvailableSlots(ctx context.Context, roomID, date string) (dto.AvailabilityResponse, error)
	GetMultiDayAvailability(ctx context.Context, roomID, startDate, endDate string) (dto.RangeAvailabilityResponse, error)
	Create(ctx context.Context, actor identity.Identity, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	Get(ctx context.Context, id string) (dto.BookingResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetBookingsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	GetPending(ctx context.Context, req gDto.QueryParams) (dto.GetBookingsResponse, error)
	GetMine(ctx context.Context, actor identity.Identity, statuses []model.Status) (dto.MyBookingsResponse, error)
	Update(ctx context.Context, actor identity.Identity, id string, req dto.UpdateBookingRequest) (dto.UpdateBookingResponse, error)
	Cancel(ctx context.Context, actor identity.Identity, id string) (dto.CancelBookingResponse, error)
	UpdateStatus(ctx context.Context, actor identity.Identity, id string, req dto.UpdateStatusRequest) (dto.BookingResponse, error)
}

type serviceImpl struct {
	repo     repository.Booking
	roomRepo roomRepo.Room
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
	events   event.Publisher
	metrics  *metrics.Metrics
	now      func() (calendar.Date, int)
	loads    singleflight.Group
	versions roomVersions
}

func New(
	repo repository.Booking,
	roomRepo roomRepo.Room,
	cfg *config.Config,
	cache cache.RedisCache,
	otel otel.Otel,
	events event.Publisher,
	metrics *metrics.Metrics,
) Booking {
	return &serviceImpl{
		repo:     repo,
		roomRepo: roomRepo,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
		events:   events,
		metrics:  metrics,
		now:      calendar.Now,
	}
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(&err)

	cacheKey := shared.BuildCacheKey(cacheGetBooking, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking")

		return res, nil
	}

	booking, err := s.getBooking(ctx, id)
	if err != nil {
		return res, err
	}

	res.FromModel(booking)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if req.SortBy == constant.Empty {
		req.SortBy = model.TableName + "." + model.FieldDate
		req.SortDir = gDto.SortDirDesc
	}

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for bookings")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save bookings to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(&err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountBooking, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for booking count")

		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count bookings")

		return res, fmt.Errorf("failed to count bookings: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save booking count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) GetPending(ctx context.Context, req gDto.QueryParams) (res dto.GetBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetPending")
	defer scope.End()
	defer scope.TraceIfError(&err)

	req.SortBy = model.TableName + "." + model.FieldCreatedAt
	req.SortDir = gDto.SortDirDesc

	filter := gDto.FilterGroup{
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldStatus,
				Value:    string(model.StatusPending),
				Operator: gDto.FilterOperatorEq,
				Table:    model.TableName,
			},
		},
	}

	return s.GetAll(ctx, req, filter)
}

func (s *serviceImpl) GetMine(ctx context.Context, actor identity.Identity, statuses []model.Status) (res dto.MyBookingsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetMine")
	defer scope.End()
	defer scope.TraceIfError(&err)

	filters := []any{
		gDto.Filter{
			Field:    model.FieldRequesterID,
			Value:    actor.ID,
			Operator: gDto.FilterOperatorEq,
			Table:    model.TableName,
		},
	}

	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, status := range statuses {
			values[i] = string(status)
		}

		filters = append(filters, gDto.Filter{
			Field:    model.FieldStatus,
			Value:    values,
			Operator: gDto.FilterOperatorIn,
			Table:    model.TableName,
		})
	}

	params := gDto.QueryParams{
		SortBy:  model.TableName + "." + model.FieldDate,
		SortDir: gDto.SortDirDesc,
	}

	models, err := s.repo.GetAll(ctx, params, gDto.FilterGroup{Filters: filters, Operator: gDto.FilterGroupOperatorAnd})
	if err != nil {
		log.Error().Err(err).Str("requester_id", actor.ID).Msg("failed to get own bookings")

		return res, fmt.Errorf("failed to get own bookings: %w", err)
	}

	today, minute := s.now()

	res.All = make([]dto.BookingResponse, len(models))
	res.Upcoming = []dto.BookingResponse{}
	res.Past = []dto.BookingResponse{}
	res.Total = len(models)

	for i, booking := range models {
		res.All[i].FromModel(booking)

		switch {
		case upcoming(booking, today, minute):
			res.Upcoming = append(res.Upcoming, res.All[i])
		case past(booking, today, minute):
			res.Past = append(res.Past, res.All[i])
		}
	}

	return res, nil
}

// upcoming: ends after today, or is today and has not started yet.
func upcoming(booking model.Booking, today calendar.Date, minute int) bool {
	if booking.LastDate().After(today) {
		return true
	}

	if booking.Date != today {
		return false
	}

	return booking.AllDay || booking.StartTime == nil || *booking.StartTime > minute
}

func past(booking model.Booking, today calendar.Date, minute int) bool {
	if booking.LastDate().Before(today) {
		return true
	}

	return booking.Date == today && !booking.AllDay && booking.StartTime != nil && *booking.StartTime <= minute
}

// started reports whether a booking is already past or ongoing, which locks it for its owner.
func started(booking model.Booking, today calendar.Date, minute int) bool {
	if booking.Date.Before(today) {
		return true
	}

	return booking.Date == today && !booking.AllDay && booking.StartTime != nil && *booking.StartTime <= minute
}

func (s *serviceImpl) getBooking(ctx context.Context, id string) (model.Booking, error) {
	booking, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Str("booking_id", id).Msg("failed to get booking")

		return booking, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == constant.Empty {
		return booking, failure.NotFound(msgBookingNotFound) // nolint:wrapcheck
	}

	return booking, nil
}

func (s *serviceImpl) getRoom(ctx context.Context, roomID string) (roomModel.Room, error) {
	room, err := s.roomRepo.Get(ctx, shared.FilterByID(roomID, roomModel.FieldID, roomModel.TableName))
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to get room")

		return room, fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == constant.Empty {
		return room, failure.NotFound(msgRoomNotFound) // nolint:wrapcheck
	}

	return room, nil
}

// invalidate drops the cached booking, every listing, and the day availability of each touched room.
func (s *serviceImpl) invalidate(ctx context.Context, bookingID string, roomIDs ...string) {
	if bookingID != constant.Empty {
		if err := s.cache.Delete(ctx, shared.BuildCacheKey(cacheGetBooking, bookingID)); err != nil {
			log.Error().Err(err).Msg("failed to delete booking from cache")
		}
	}

	shared.InvalidateCaches(ctx, s.cache, cacheGetAllBooking)
	shared.InvalidateCaches(ctx, s.cache, cacheCountBooking)

	slices.Sort(roomIDs)

	for _, roomID := range slices.Compact(roomIDs) {
		s.versions.bump(roomID)
		shared.InvalidateCaches(ctx, s.cache, shared.BuildCacheKey(cacheBookingAvailability, roomID, constant.Empty))
	}
}

func (s *serviceImpl) workingWindow() (start, end, step int) {
	startHour := s.cfg.Booking.WorkStartHour
	endHour := s.cfg.Booking.WorkEndHour

	if startHour == 0 && endHour == 0 {
		startHour, endHour = defaultWorkStartHour, defaultWorkEndHour
	}

	step = s.cfg.Booking.SlotMinutes
	if step <= 0 {
		step = defaultSlotMinutes
	}

	return startHour * 60, endHour * 60, step
}

func (s *serviceImpl) maxRangeDays() int {
	if s.cfg.Booking.MaxRangeDays > 0 {
		return s.cfg.Booking.MaxRangeDays
	}

	return defaultMaxRangeDays
}

func (s *serviceImpl) defaultPurpose() string {
	if s.cfg.Booking.DefaultPurpose != constant.Empty {
		return s.cfg.Booking.DefaultPurpose
	}

	return defaultPurpose
}
