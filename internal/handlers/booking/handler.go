package booking

import (
	"context"
	"net/http"
	"strings"

	"meetroom/infras/otel"
	"meetroom/internal/domains/booking/model"
	"meetroom/internal/domains/booking/model/dto"
	"meetroom/internal/domains/booking/service"
	"meetroom/shared/calendar"
	"meetroom/shared/constant"
	gDto "meetroom/shared/dto"
	"meetroom/shared/failure"
	"meetroom/shared/identity"
	"meetroom/shared/validator"
	"meetroom/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	msgUnauthenticated = "Authentication required"
	msgInvalidSortBy   = "Invalid sort_by. Must be one of: date, start_time, status, created_at"
	msgInvalidStatus   = "Invalid status. Must be: pending, approved, rejected, or cancelled"
	msgInvalidDate     = "Invalid date format. Use YYYY-MM-DD format (e.g., 2024-07-01)"
)

var sortableFields = map[string]string{
	model.FieldDate:      model.TableName + "." + model.FieldDate,
	model.FieldStartTime: model.TableName + "." + model.FieldStartTime,
	model.FieldStatus:    model.TableName + "." + model.FieldStatus,
	model.FieldCreatedAt: model.TableName + "." + model.FieldCreatedAt,
}

type Handler struct {
	service service.Booking
	otel    otel.Otel
}

func New(service service.Booking, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/bookings", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateBooking)
		routerGroup.Get("/", handler.GetBookings)
		routerGroup.Get("/pending", handler.GetPendingBookings)
		routerGroup.Get("/mine", handler.GetMyBookings)
		routerGroup.Post("/conflicts", handler.CheckConflicts)
		routerGroup.Get("/{id}", handler.GetBookingByID)
		routerGroup.Patch("/{id}", handler.UpdateBooking)
		routerGroup.Delete("/{id}", handler.CancelBooking)
		routerGroup.Patch("/{id}/status", handler.UpdateBookingStatus)
	})
}

// CreateBooking handles the creation of a new booking request.
// @Summary Request a room
// @Description Create a pending booking after checking it against approved bookings of the room.
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body dto.CreateBookingRequest true "Create Booking Request"
// @Success 201 {object} response.Data[dto.BookingResponse]
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings [post]
// @Security BearerAuth
func (handler *Handler) CreateBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateBooking")
	defer scope.End()

	actor, ok := requireActor(ctx, writer)
	if !ok {
		return
	}

	req := dto.CreateBookingRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.Create(ctx, actor, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create booking")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Booking created successfully by user " + actor.ID)

	response.WithJSON(writer, http.StatusCreated, booking)
}

// GetBookings lists bookings for administrators.
// @Summary Get all bookings
// @Description Retrieve bookings with optional filtering and pagination.
// @Tags Booking
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param room_id query string false "Filter by room ID"
// @Param status query string false "Filter by status (pending, approved, rejected, cancelled)"
// @Param date query string false "Bookings occupying this day (YYYY-MM-DD)"
// @Param requester_id query string false "Filter by requester"
// @Success 200 {object} response.Data[dto.GetBookingsResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings [get]
// @Security BearerAuth
func (handler *Handler) GetBookings(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookings")
	defer scope.End()

	if !requireAdmin(ctx, w) {
		return
	}

	queryParams, err := listParams(r)
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	filterGroup, err := listFilter(r)
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	bookings, err := handler.service.GetAll(ctx, queryParams, filterGroup)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get bookings")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Bookings retrieved successfully")

	response.WithJSON(w, http.StatusOK, bookings)
}

// GetPendingBookings lists the requests waiting for a decision, newest first.
// @Summary Get pending bookings
// @Tags Booking
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Success 200 {object} response.Data[dto.GetBookingsResponse]
// @Failure 403 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/pending [get]
// @Security BearerAuth
func (handler *Handler) GetPendingBookings(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetPendingBookings")
	defer scope.End()

	if !requireAdmin(ctx, w) {
		return
	}

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	bookings, err := handler.service.GetPending(ctx, queryParams)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get pending bookings")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, bookings)
}

// GetMyBookings returns the caller's bookings split into upcoming and past.
// @Summary Get my bookings
// @Tags Booking
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Success 200 {object} response.Data[dto.MyBookingsResponse]
// @Failure 400 {object} response.Error
// @Failure 401 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/mine [get]
// @Security BearerAuth
func (handler *Handler) GetMyBookings(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetMyBookings")
	defer scope.End()

	actor, ok := requireActor(ctx, w)
	if !ok {
		return
	}

	statuses, err := parseStatuses(r.URL.Query().Get(constant.RequestParamStatus))
	if err != nil {
		scope.TraceError(err)
		response.WithError(w, err)

		return
	}

	bookings, err := handler.service.GetMine(ctx, actor, statuses)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get own bookings")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, bookings)
}

// CheckConflicts reports which approved bookings a request would collide with, without saving anything.
// @Summary Check a booking request for conflicts
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body dto.CheckConflictsRequest true "Requested placement"
// @Success 200 {object} response.Data[conflict.Result]
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/conflicts [post]
// @Security BearerAuth
func (handler *Handler) CheckConflicts(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CheckConflicts")
	defer scope.End()

	req := dto.CheckConflictsRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	result, err := handler.service.CheckConflicts(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to check conflicts")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, result)
}

// GetBookingByID retrieves a booking by its ID.
// @Summary Get a booking by ID
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[dto.BookingResponse]
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id} [get]
// @Security BearerAuth
func (handler *Handler) GetBookingByID(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingByID")
	defer scope.End()

	id := chi.URLParam(r, constant.RequestParamID)

	booking, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("booking_id", id).Msg("failed to get booking by ID")

		response.WithError(w, err)

		return
	}

	response.WithJSON(w, http.StatusOK, booking)
}

// UpdateBooking edits a booking. Only fields present in the body are changed.
// @Summary Edit a booking
// @Tags Booking
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body dto.UpdateBookingRequest true "Fields to change"
// @Success 200 {object} response.Data[dto.UpdateBookingResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id} [patch]
// @Security BearerAuth
func (handler *Handler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateBooking")
	defer scope.End()

	actor, ok := requireActor(ctx, w)
	if !ok {
		return
	}

	id := chi.URLParam(r, constant.RequestParamID)
	req := dto.UpdateBookingRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	res, err := handler.service.Update(ctx, actor, id, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("booking_id", id).Msg("failed to update booking")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Booking updated successfully by user " + actor.ID)

	response.WithJSON(w, http.StatusOK, res)
}

// CancelBooking withdraws a booking. Administrators cancelling a pending request reject it instead.
// @Summary Cancel a booking
// @Tags Booking
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Data[dto.CancelBookingResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id} [delete]
// @Security BearerAuth
func (handler *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CancelBooking")
	defer scope.End()

	actor, ok := requireActor(ctx, w)
	if !ok {
		return
	}

	id := chi.URLParam(r, constant.RequestParamID)

	res, err := handler.service.Cancel(ctx, actor, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("booking_id", id).Msg("failed to cancel booking")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Booking " + res.Action + " by user " + actor.ID)

	response.WithJSON(w, http.StatusOK, res)
}

// UpdateBookingStatus records an administrator's decision on a booking.
// @Summary Change booking status
// @Tags Booking
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body dto.UpdateStatusRequest true "New status"
// @Success 200 {object} response.Data[dto.BookingResponse]
// @Failure 400 {object} response.Error
// @Failure 403 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id}/status [patch]
// @Security BearerAuth
func (handler *Handler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	ctx, scope := handler.otel.NewScope(r.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateBookingStatus")
	defer scope.End()

	actor, ok := requireActor(ctx, w)
	if !ok {
		return
	}

	id := chi.URLParam(r, constant.RequestParamID)
	req := dto.UpdateStatusRequest{}

	if err := validator.Validate(r.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(w, err)

		return
	}

	booking, err := handler.service.UpdateStatus(ctx, actor, id, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("booking_id", id).Msg("failed to update booking status")

		response.WithError(w, err)

		return
	}

	scope.AddEvent("Booking status set to " + booking.Status + " by user " + actor.ID)

	response.WithJSON(w, http.StatusOK, booking)
}

func requireActor(ctx context.Context, w http.ResponseWriter) (identity.Identity, bool) {
	actor, ok := identity.FromContext(ctx)
	if !ok {
		response.WithError(w, failure.Unauthorized(msgUnauthenticated))
	}

	return actor, ok
}

// requireAdmin admits administrators and internal callers. Listings of other people's
// bookings stay closed even if a route is missing from the permission table.
func requireAdmin(ctx context.Context, w http.ResponseWriter) bool {
	if identity.Internal(ctx) {
		return true
	}

	actor, ok := requireActor(ctx, w)
	if !ok {
		return false
	}

	if !actor.IsAdmin {
		response.WithError(w, failure.ForbiddenError)

		return false
	}

	return true
}

func listParams(r *http.Request) (gDto.QueryParams, error) {
	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(r, true)

	if queryParams.SortBy == constant.Empty {
		return queryParams, nil
	}

	column, ok := sortableFields[queryParams.SortBy]
	if !ok {
		return queryParams, failure.BadRequestFromString(msgInvalidSortBy) //nolint:wrapcheck
	}

	queryParams.SortBy = column
	if queryParams.SortDir == constant.Empty {
		queryParams.SortDir = gDto.SortDirAsc
	}

	return queryParams, nil
}

func listFilter(r *http.Request) (gDto.FilterGroup, error) {
	query := r.URL.Query()

	filterGroup := gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters:  []any{},
	}

	if roomID := query.Get(constant.RequestParamRoomID); roomID != constant.Empty {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldRoomID,
			Operator: gDto.FilterOperatorEq,
			Value:    roomID,
			Table:    model.TableName,
		})
	}

	if requester := query.Get(constant.RequestParamRequester); requester != constant.Empty {
		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldRequesterID,
			Operator: gDto.FilterOperatorEq,
			Value:    requester,
			Table:    model.TableName,
		})
	}

	statuses, err := parseStatuses(query.Get(constant.RequestParamStatus))
	if err != nil {
		return filterGroup, err
	}

	if len(statuses) > 0 {
		values := make([]string, len(statuses))
		for i, status := range statuses {
			values[i] = string(status)
		}

		filterGroup.Filters = append(filterGroup.Filters, gDto.Filter{
			Field:    model.FieldStatus,
			Operator: gDto.FilterOperatorIn,
			Value:    values,
			Table:    model.TableName,
		})
	}

	if raw := query.Get(constant.RequestParamDate); raw != constant.Empty {
		day, err := calendar.NormalizeDate(raw)
		if err != nil {
			return filterGroup, failure.BadRequestFromString(msgInvalidDate) //nolint:wrapcheck
		}

		filterGroup.Filters = append(filterGroup.Filters, occupyingFilter(day))
	}

	return filterGroup, nil
}

// occupyingFilter matches bookings whose days include day.
func occupyingFilter(day calendar.Date) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorOr,
		Filters: []any{
			gDto.Filter{ArgName: "on_day", Field: model.FieldDate, Value: day, Operator: gDto.FilterOperatorEq, Table: model.TableName},
			gDto.FilterGroup{
				Operator: gDto.FilterGroupOperatorAnd,
				Filters: []any{
					gDto.Filter{ArgName: "span_from", Field: model.FieldDate, Value: day, Operator: gDto.FilterOperatorLessEq, Table: model.TableName},
					gDto.Filter{ArgName: "span_to", Field: model.FieldEndDate, Value: day, Operator: gDto.FilterOperatorGreaterEq, Table: model.TableName},
				},
			},
		},
	}
}

func parseStatuses(raw string) ([]model.Status, error) {
	statuses := []model.Status{}

	for _, part := range strings.Split(raw, ",") {
		status := model.Status(strings.ToLower(strings.TrimSpace(part)))
		if status == constant.Empty {
			continue
		}

		if !status.Valid() {
			return nil, failure.BadRequestFromString(msgInvalidStatus) //nolint:wrapcheck
		}

		statuses = append(statuses, status)
	}

	return statuses, nil
}
