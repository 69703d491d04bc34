package service

import (
	"context"
	"errors"
	"fmt"

	"meetroom/config"
	"meetroom/infras/otel"
	"meetroom/infras/s3"
	bookingModel "meetroom/internal/domains/booking/model"
	bookingRepo "meetroom/internal/domains/booking/repository"
	"meetroom/internal/domains/room/model"
	"meetroom/internal/domains/room/model/dto"
	"meetroom/internal/domains/room/repository"
	"meetroom/shared"
	"meetroom/shared/cache"
	"meetroom/shared/calendar"
	"meetroom/shared/constant"
	gDto "meetroom/shared/dto"
	"meetroom/shared/failure"
	"meetroom/shared/identity"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetRoom    = "room:get"
	cacheGetAllRoom = "room:gets"
	cacheCountRoom  = "room:count"
)

const (
	msgRoomNotFound       = "Meeting room not found"
	msgRoomNameTaken      = "A meeting room with this name already exists"
	msgRoomHasBookings    = "Meeting room has upcoming bookings and cannot be deleted"
	msgAdminOnlyRoomWrite = "Only administrators can manage meeting rooms"
)

type Room interface {
	Create(ctx context.Context, actor identity.Identity, req dto.CreateRoomRequest) (dto.RoomResponse, error)
	GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (dto.GetRoomsResponse, error)
	Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (int, error)
	Get(ctx context.Context, id string) (dto.RoomResponse, error)
	Update(ctx context.Context, actor identity.Identity, id string, req dto.UpdateRoomRequest) (dto.RoomResponse, error)
	Delete(ctx context.Context, actor identity.Identity, id string) error
}

type serviceImpl struct {
	repo     repository.Room
	bookings bookingRepo.Booking
	cfg      *config.Config
	cache    cache.RedisCache
	otel     otel.Otel
	s3       s3.S3
	now      func() (calendar.Date, int)
}

func New(repo repository.Room, bookings bookingRepo.Booking, cfg *config.Config, cache cache.RedisCache, otel otel.Otel, s3 s3.S3) Room {
	return &serviceImpl{
		repo:     repo,
		bookings: bookings,
		cfg:      cfg,
		cache:    cache,
		otel:     otel,
		s3:       s3,
		now:      calendar.Now,
	}
}

func (s *serviceImpl) Create(ctx context.Context, actor identity.Identity, req dto.CreateRoomRequest) (res dto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if !actor.IsAdmin {
		return res, failure.Forbidden(msgAdminOnlyRoomWrite) // nolint:wrapcheck
	}

	imageURL, objectName, err := s.uploadImage(ctx, req.Image)
	if err != nil {
		return res, err
	}

	room := req.ToModel(actor.ID, imageURL)

	if err = s.repo.Insert(ctx, room); err != nil {
		log.Error().Err(err).Str("name", room.Name).Msg("failed to create room")
		s.discardImage(ctx, objectName)

		return res, translateWriteError(err, "create")
	}

	log.Info().Str("room_id", room.ID).Str("name", room.Name).Msg("room created")

	s.invalidate(ctx, constant.Empty)

	res.FromModel(room)

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetRoomsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if req.SortBy == constant.Empty {
		req.SortBy = model.TableName + "." + model.FieldName
		req.SortDir = gDto.SortDirAsc
	}

	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllRoom, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for rooms")

		return res, nil
	}

	total, err := s.Count(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count rooms")

		return res, fmt.Errorf("failed to count rooms: %w", err)
	}

	models, err := s.repo.GetAll(ctx, req, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get rooms")

		return res, fmt.Errorf("failed to get rooms: %w", err)
	}

	res.FromModels(models, total, req.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save rooms to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Count(ctx context.Context, req gDto.QueryParams, filter gDto.FilterGroup) (res int, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Count")
	defer scope.End()
	defer scope.TraceIfError(&err)

	cacheKey := shared.BuildCacheKeyWithQuery(cacheCountRoom, req, filter)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	res, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count rooms")

		return res, fmt.Errorf("failed to count rooms: %w", err)
	}

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save room count to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(&err)

	cacheKey := shared.BuildCacheKey(cacheGetRoom, id)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for room")

		return res, nil
	}

	room, err := s.getRoom(ctx, id)
	if err != nil {
		return res, err
	}

	res.FromModel(room)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save room to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, actor identity.Identity, id string, req dto.UpdateRoomRequest) (res dto.RoomResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Update")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if !actor.IsAdmin {
		return res, failure.Forbidden(msgAdminOnlyRoomWrite) // nolint:wrapcheck
	}

	current, err := s.getRoom(ctx, id)
	if err != nil {
		return res, err
	}

	imageURL, objectName, err := s.uploadImage(ctx, req.Image)
	if err != nil {
		return res, err
	}

	fields := shared.TransformFields(req, actor.ID)
	next := req.Apply(current)

	if imageURL != constant.Empty {
		fields[model.FieldImage] = imageURL
		next.Image = imageURL
	}

	if err = s.repo.Update(ctx, fields, shared.FilterByID(id, model.FieldID, model.TableName)); err != nil {
		log.Error().Err(err).Str("room_id", id).Msg("failed to update room")
		s.discardImage(ctx, objectName)

		return res, translateWriteError(err, "update")
	}

	// the replaced picture is only removed once the new one is stored
	if imageURL != constant.Empty && current.Image != constant.Empty {
		s.discardImage(ctx, s.s3.GetObjectNameFromURL(s.cfg.External.S3.BucketName, current.Image))
	}

	s.invalidate(ctx, id)

	res.FromModel(next)

	return res, nil
}

func (s *serviceImpl) Delete(ctx context.Context, actor identity.Identity, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Delete")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if !actor.IsAdmin {
		return failure.Forbidden(msgAdminOnlyRoomWrite) // nolint:wrapcheck
	}

	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	exist, err := s.repo.Exist(ctx, filter)
	if err != nil {
		log.Error().Err(err).Str("room_id", id).Msg("failed to check if room exists")

		return fmt.Errorf("failed to check if room exists: %w", err)
	}

	if !exist {
		return failure.NotFound(msgRoomNotFound) // nolint:wrapcheck
	}

	today, _ := s.now()

	upcoming, err := s.bookings.Count(ctx, upcomingBookingsFilter(id, today))
	if err != nil {
		log.Error().Err(err).Str("room_id", id).Msg("failed to count upcoming bookings")

		return fmt.Errorf("failed to count upcoming bookings: %w", err)
	}

	if upcoming > 0 {
		log.Warn().Str("room_id", id).Int("bookings", upcoming).Msg("refusing to delete room with upcoming bookings")

		return failure.Conflict(msgRoomHasBookings) // nolint:wrapcheck
	}

	if err = s.repo.Delete(ctx, filter); err != nil {
		log.Error().Err(err).Str("room_id", id).Msg("failed to delete room")

		return fmt.Errorf("failed to delete room: %w", err)
	}

	log.Info().Str("room_id", id).Str("actor_id", actor.ID).Msg("room deleted")

	s.invalidate(ctx, id)

	return nil
}

func (s *serviceImpl) getRoom(ctx context.Context, id string) (model.Room, error) {
	room, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Str("room_id", id).Msg("failed to get room")

		return room, fmt.Errorf("failed to get room: %w", err)
	}

	if room.ID == constant.Empty {
		return room, failure.NotFound(msgRoomNotFound) // nolint:wrapcheck
	}

	return room, nil
}

// uploadImage stores the picture under a fresh object name and returns its URL.
// Nothing is uploaded when the request carries no image.
func (s *serviceImpl) uploadImage(ctx context.Context, image dto.Image) (url, objectName string, err error) {
	if image.Header == nil {
		return constant.Empty, constant.Empty, nil
	}

	objectName = uuid.NewString() + image.Extension()

	url, err = s.s3.UploadFile(ctx, s.cfg.External.S3.BucketName, model.EntityName, image.File, image.Header, objectName)
	if err != nil {
		log.Error().Err(err).Msg("failed to upload room image")

		return constant.Empty, constant.Empty, fmt.Errorf("failed to upload image: %w", err)
	}

	return url, objectName, nil
}

func (s *serviceImpl) discardImage(ctx context.Context, objectName string) {
	if objectName == constant.Empty {
		return
	}

	if err := s.s3.DeleteFile(ctx, s.cfg.External.S3.BucketName, model.EntityName, objectName); err != nil {
		log.Error().Err(err).Str("object", objectName).Msg("failed to delete room image")
	}
}

func (s *serviceImpl) invalidate(ctx context.Context, id string) {
	if id != constant.Empty {
		if err := s.cache.Delete(ctx, shared.BuildCacheKey(cacheGetRoom, id)); err != nil {
			log.Error().Err(err).Msg("failed to delete room from cache")
		}
	}

	shared.InvalidateCaches(ctx, s.cache, cacheGetAllRoom)
	shared.InvalidateCaches(ctx, s.cache, cacheCountRoom)
}

// upcomingBookingsFilter matches live bookings of roomID that end today or later.
func upcomingBookingsFilter(roomID string, today calendar.Date) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    bookingModel.FieldRoomID,
				Value:    roomID,
				Operator: gDto.FilterOperatorEq,
				Table:    bookingModel.TableName,
			},
			gDto.Filter{
				Field:    bookingModel.FieldStatus,
				Value:    []string{string(bookingModel.StatusPending), string(bookingModel.StatusApproved)},
				Operator: gDto.FilterOperatorIn,
				Table:    bookingModel.TableName,
			},
			gDto.FilterGroup{
				Operator: gDto.FilterGroupOperatorOr,
				Filters: []any{
					gDto.Filter{ArgName: "upcoming_from", Field: bookingModel.FieldDate, Value: today, Operator: gDto.FilterOperatorGreaterEq, Table: bookingModel.TableName},
					gDto.Filter{ArgName: "upcoming_until", Field: bookingModel.FieldEndDate, Value: today, Operator: gDto.FilterOperatorGreaterEq, Table: bookingModel.TableName},
				},
			},
		},
	}
}

func translateWriteError(err error, action string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == constant.PqErrorCodeUniqueViolation {
		return failure.Conflict(msgRoomNameTaken) // nolint:wrapcheck
	}

	return fmt.Errorf("failed to %s room: %w", action, err)
}
