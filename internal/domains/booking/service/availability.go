package service

import (
	"context"
	"fmt"
	"sync"

	"meetroom/internal/domains/booking/model"
	"meetroom/internal/domains/booking/model/dto"
	roomModel "meetroom/internal/domains/room/model"
	"meetroom/shared"
	"meetroom/shared/calendar"
	"meetroom/shared/constant"
	"meetroom/shared/failure"

	"github.com/rs/zerolog/log"
)

const (
	msgMissingRange    = "start_date and end_date are required"
	msgRangeNotAfter   = "End date must be after start date"
	msgRangeTooLongFmt = "Date range cannot exceed %d days"
)

// roomVersions counts availability invalidations per room, so a load that raced with a
// booking write is not written back to the cache.
type roomVersions struct {
	mu     sync.Mutex
	byRoom map[string]uint64
}

func (v *roomVersions) current(roomID string) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.byRoom[roomID]
}

func (v *roomVersions) bump(roomID string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.byRoom == nil {
		v.byRoom = map[string]uint64{}
	}

	v.byRoom[roomID]++
}

type availabilityLoad struct {
	slots   dto.AvailabilityResponse
	version uint64
}

func (s *serviceImpl) GetApprovedBookingsForDate(ctx context.Context, roomID string, date calendar.Date) (res []model.Booking, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetApprovedBookingsForDate")
	defer scope.End()
	defer scope.TraceIfError(&err)

	return s.findApproved(ctx, nil, roomID, date, date)
}

func (s *serviceImpl) GetAvailableSlots(ctx context.Context, roomID, date string) (res dto.AvailabilityResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAvailableSlots")
	defer scope.End()
	defer scope.TraceIfError(&err)

	day, err := calendar.NormalizeDate(date)
	if err != nil {
		return res, failure.BadRequestFromString(msgInvalidDate) //nolint:wrapcheck
	}

	res = dto.AvailabilityResponse{RoomID: roomID, Date: day.String(), Slots: []dto.Slot{}}

	found, err := s.roomExists(ctx, roomID)
	if err != nil || !found {
		return res, err
	}

	cacheKey := shared.BuildCacheKey(cacheBookingAvailability, roomID, day.String())

	var cached dto.AvailabilityResponse
	if err = s.cache.Get(ctx, cacheKey, &cached); err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for availability")

		return cached, nil
	}

	// Concurrent misses for the same room and day share one database read. The read is
	// detached from the first caller, whose cancellation must not fail the others.
	loaded, err, joined := s.loads.Do(cacheKey, func() (any, error) {
		version := s.versions.current(roomID)

		bookings, err := s.findApproved(context.WithoutCancel(ctx), nil, roomID, day, day)
		if err != nil {
			return nil, err
		}

		return availabilityLoad{slots: s.partition(roomID, day, bookings), version: version}, nil
	})
	if err != nil {
		return res, err //nolint:wrapcheck
	}

	load := loaded.(availabilityLoad) //nolint:forcetypeassert
	res = load.slots

	if joined || s.versions.current(roomID) != load.version {
		return res, nil
	}

	go s.saveAvailability(context.WithoutCancel(ctx), cacheKey, roomID, load)

	return res, nil
}

// saveAvailability caches a load unless the room was invalidated meanwhile. An
// invalidation landing between the check and the write removes the entry again.
func (s *serviceImpl) saveAvailability(ctx context.Context, cacheKey, roomID string, load availabilityLoad) {
	if s.versions.current(roomID) != load.version {
		return
	}

	if err := s.cache.Save(ctx, cacheKey, load.slots, s.cfg.Cache.TTL); err != nil {
		log.Error().Err(err).Msg("failed to save availability to cache")

		return
	}

	if s.versions.current(roomID) != load.version {
		if err := s.cache.Delete(ctx, cacheKey); err != nil {
			log.Error().Err(err).Str("cacheKey", cacheKey).Msg("failed to drop stale availability")
		}
	}
}

func (s *serviceImpl) GetMultiDayAvailability(ctx context.Context, roomID, startDate, endDate string) (res dto.RangeAvailabilityResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetMultiDayAvailability")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if startDate == constant.Empty || endDate == constant.Empty {
		return res, failure.BadRequestFromString(msgMissingRange) //nolint:wrapcheck
	}

	start, err := calendar.NormalizeDate(startDate)
	if err != nil {
		return res, failure.BadRequestFromString(msgInvalidDate) //nolint:wrapcheck
	}

	end, err := calendar.NormalizeDate(endDate)
	if err != nil {
		return res, failure.BadRequestFromString(msgInvalidEndDate) //nolint:wrapcheck
	}

	if !end.After(start) {
		return res, failure.BadRequest(fmt.Errorf("%w: %s", calendar.ErrInvalidRange, msgRangeNotAfter)) //nolint:wrapcheck
	}

	span := int(end.Time().Sub(start.Time()).Hours()/24) + 1
	if limit := s.maxRangeDays(); span > limit {
		return res, failure.BadRequestFromString(fmt.Sprintf(msgRangeTooLongFmt, limit)) //nolint:wrapcheck
	}

	days := calendar.Days(start, end)

	res = dto.RangeAvailabilityResponse{
		RoomID:    roomID,
		StartDate: start.String(),
		EndDate:   end.String(),
		Days:      []dto.DayAvailability{},
	}

	found, err := s.roomExists(ctx, roomID)
	if err != nil || !found {
		return res, err
	}

	res.Found = true

	bookings, err := s.findApproved(ctx, nil, roomID, start, end)
	if err != nil {
		return res, err
	}

	for _, day := range days {
		covering := []model.Booking{}

		for _, booking := range bookings {
			if booking.Covers(day) {
				covering = append(covering, booking)
			}
		}

		slots := s.partition(roomID, day, covering)

		res.Days = append(res.Days, dto.DayAvailability{
			Date:               day.String(),
			IsAvailable:        slots.IsDayAvailable,
			AvailableSlotCount: slots.AvailableCount,
		})
	}

	return res, nil
}

// partition splits the working window of day into slots and marks the ones the approved
// bookings occupy. Every booking passed in must cover day.
func (s *serviceImpl) partition(roomID string, day calendar.Date, bookings []model.Booking) dto.AvailabilityResponse {
	windowStart, windowEnd, step := s.workingWindow()

	res := dto.AvailabilityResponse{
		RoomID:         roomID,
		Date:           day.String(),
		Found:          true,
		Slots:          []dto.Slot{},
		IsDayAvailable: true,
	}

	for _, booking := range bookings {
		if booking.AllDay {
			res.IsDayAvailable = false

			break
		}
	}

	for slotStart := windowStart; slotStart < windowEnd; slotStart += step {
		slotEnd := min(slotStart+step, windowEnd)
		reason := dto.SlotReasonAvailable

		if !res.IsDayAvailable {
			reason = dto.SlotReasonAllDay
		} else {
			for _, booking := range bookings {
				start, end := booking.Window()
				if calendar.TimeRangesOverlap(slotStart, slotEnd, start, end) {
					reason = dto.SlotReasonTimeSlot

					break
				}
			}
		}

		available := reason == dto.SlotReasonAvailable
		if available {
			res.AvailableCount++
		}

		res.Slots = append(res.Slots, dto.Slot{
			StartTime: calendar.FormatMinutes(slotStart),
			EndTime:   calendar.FormatMinutes(slotEnd),
			Available: available,
			Reason:    reason,
		})
	}

	return res
}

func (s *serviceImpl) roomExists(ctx context.Context, roomID string) (bool, error) {
	if roomID == constant.Empty {
		return false, nil
	}

	exist, err := s.roomRepo.Exist(ctx, shared.FilterByID(roomID, roomModel.FieldID, roomModel.TableName))
	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to check if room exists")

		return false, fmt.Errorf("failed to check if room exists: %w", err)
	}

	return exist, nil
}
