package room

import (
	"net/http"

	"meetroom/infras/otel"
	bookingService "meetroom/internal/domains/booking/service"
	"meetroom/internal/domains/room/model"
	"meetroom/internal/domains/room/model/dto"
	"meetroom/internal/domains/room/service"
	"meetroom/shared"
	"meetroom/shared/constant"
	gDto "meetroom/shared/dto"
	"meetroom/shared/failure"
	"meetroom/shared/identity"
	"meetroom/shared/validator"
	"meetroom/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const msgUnauthenticated = "Authentication required"

type Handler struct {
	service  service.Room
	bookings bookingService.Booking
	otel     otel.Otel
}

func New(service service.Room, bookings bookingService.Booking, otel otel.Otel) Handler {
	return Handler{
		service:  service,
		bookings: bookings,
		otel:     otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/rooms", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateRoom)
		routerGroup.Get("/", handler.GetRooms)
		routerGroup.Get("/{id}", handler.GetRoomByID)
		routerGroup.Patch("/{id}", handler.UpdateRoom)
		routerGroup.Delete("/{id}", handler.DeleteRoom)
		routerGroup.Get("/{id}/availability", handler.GetAvailability)
		routerGroup.Get("/{id}/availability/range", handler.GetRangeAvailability)
	})
}

// CreateRoom handles the creation of a new room.
// @Summary Create a new room
// @Description Create a new meeting room. Administrators only.
// @Tags Room
// @Accept multipart/form-data
// @Produce json
// @Param name formData string true "Room name"
// @Param location formData string false "Room location"
// @Param capacity formData integer false "Room capacity"
// @Param description formData string false "Room description"
// @Param active formData boolean false "Room active status"
// @Param image formData file false "Room image"
// @Success 201 {object} response.Data[dto.RoomResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms [post]
// @Security BearerAuth
func (handler *Handler) CreateRoom(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateRoom")
	defer scope.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		response.WithError(writer, failure.Unauthorized(msgUnauthenticated))

		return
	}

	if err := request.ParseMultipartForm(constant.RequestMaxMemory); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to parse multipart form")
		response.WithError(writer, failure.BadRequest(err))

		return
	}

	req := dto.CreateRoomRequest{}
	req.FromForm(request)

	defer req.Image.Close()

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(writer, err)

		return
	}

	room, err := handler.service.Create(ctx, actor, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create room")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Room created successfully by user " + actor.ID)

	response.WithJSON(writer, http.StatusCreated, room)
}

// GetRooms lists rooms. Only active rooms are returned unless the active filter is given.
// @Summary Get all rooms
// @Tags Room
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param name query string false "Filter by name"
// @Param location query string false "Filter by location"
// @Param active query boolean false "Filter by active status"
// @Success 200 {object} response.Data[dto.GetRoomsResponse]
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms [get]
func (handler *Handler) GetRooms(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRooms")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	switch queryParams.SortBy {
	case constant.Empty:
	case model.FieldName, model.FieldLocation, model.FieldCapacity:
		queryParams.SortBy = model.TableName + "." + queryParams.SortBy
	default:
		response.WithError(w, failure.BadRequestFromString("Invalid sort_by. Must be one of: name, location, capacity"))

		return
	}

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters:  []any{},
	}

	for _, field := range []string{model.FieldName, model.FieldLocation} {
		if value := r.URL.Query().Get(field); value != constant.Empty {
			filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
				Field:    field,
				Operator: gDto.FilterOperatorLike,
				Value:    value,
				Table:    model.TableName,
			})
		}
	}

	active := shared.ConvertStringToBool(r.URL.Query().Get(model.FieldActive))
	if active == nil {
		defaultActive := true
		active = &defaultActive
	}

	filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
		Field:    model.FieldActive,
		Operator: gDto.FilterOperatorEq,
		Value:    *active,
		Table:    model.TableName,
	})

	rooms, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get rooms")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Rooms retrieved successfully")

	response.WithJSON(w, http.StatusOK, rooms)
}

// GetRoomByID retrieves a room by its ID.
// @Summary Get a room by ID
// @Tags Room
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Data[dto.RoomResponse]
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [get]
func (handler *Handler) GetRoomByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRoomByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	room, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("room_id", id).Msg("failed to get room by ID")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, room)
}

// UpdateRoom updates an existing room by its ID.
// @Summary Update a room by ID
// @Tags Room
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Room ID"
// @Param name formData string false "Room name"
// @Param location formData string false "Room location"
// @Param capacity formData integer false "Room capacity"
// @Param description formData string false "Room description"
// @Param active formData boolean false "Room active status"
// @Param image formData file false "Room image"
// @Success 200 {object} response.Data[dto.RoomResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateRoom")
	defer scope.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		response.WithError(w, failure.Unauthorized(msgUnauthenticated))

		return
	}

	id := chi.URLParam(r, constant.RequestParamID)

	if err := r.ParseMultipartForm(constant.RequestMaxMemory); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to parse multipart form")
		response.WithError(w, failure.BadRequest(err))

		return
	}

	req := dto.UpdateRoomRequest{}
	req.FromForm(r)

	defer req.Image.Close()

	if err := validator.ValidateStruct(&req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request")

		response.WithError(w, err)

		return
	}

	room, err := handler.service.Update(ctx, actor, id, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("room_id", id).Msg("failed to update room")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Room updated successfully by user " + actor.ID)

	response.WithJSON(w, http.StatusOK, room)
}

// DeleteRoom deletes a room that has no upcoming bookings.
// @Summary Delete a room by ID
// @Tags Room
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Message
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id} [delete]
// @Security BearerAuth
func (handler *Handler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteRoom")
	defer scope.End()

	actor, ok := identity.FromContext(ctx)
	if !ok {
		response.WithError(w, failure.Unauthorized(msgUnauthenticated))

		return
	}

	id := chi.URLParam(r, constant.RequestParamID)

	if err := handler.service.Delete(ctx, actor, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("room_id", id).Msg("failed to delete room")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Room deleted successfully by user " + actor.ID)

	response.WithMessage(w, http.StatusOK, "Room deleted successfully")
}

// GetAvailability returns the slot grid of a room for one day.
// @Summary Get room availability for a day
// @Tags Room
// @Produce json
// @Param id path string true "Room ID"
// @Param date query string true "Day (YYYY-MM-DD)"
// @Success 200 {object} response.Data[bookingDto.AvailabilityResponse]
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id}/availability [get]
func (handler *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetAvailability")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	query := dto.AvailabilityQuery{Date: r.URL.Query().Get(constant.RequestParamDate)}

	if err := validator.ValidateStruct(&query); err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	availability, err := handler.bookings.GetAvailableSlots(ctx, id, query.Date)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("room_id", id).Msg("failed to get room availability")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, availability)
}

// GetRangeAvailability summarises a room's free slots per day over a span of days.
// @Summary Get room availability over a date range
// @Tags Room
// @Produce json
// @Param id path string true "Room ID"
// @Param start_date query string true "First day (YYYY-MM-DD)"
// @Param end_date query string true "Last day (YYYY-MM-DD)"
// @Success 200 {object} response.Data[bookingDto.RangeAvailabilityResponse]
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/rooms/{id}/availability/range [get]
func (handler *Handler) GetRangeAvailability(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetRangeAvailability")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)
	query := dto.AvailabilityRangeQuery{
		StartDate: r.URL.Query().Get(constant.RequestParamStartDate),
		EndDate:   r.URL.Query().Get(constant.RequestParamEndDate),
	}

	if err := validator.ValidateStruct(&query); err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	availability, err := handler.bookings.GetMultiDayAvailability(ctx, id, query.StartDate, query.EndDate)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("room_id", id).Msg("failed to get room availability range")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, availability)
}
