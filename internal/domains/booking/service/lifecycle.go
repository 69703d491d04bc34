package service

import (
	"context"
	"fmt"
	"strings"

	"meetroom/internal/domains/booking/conflict"
	"meetroom/internal/domains/booking/event"
	"meetroom/internal/domains/booking/model"
	"meetroom/internal/domains/booking/model/dto"
	"meetroom/shared"
	"meetroom/shared/constant"
	"meetroom/shared/failure"
	"meetroom/shared/identity"
	gModel "meetroom/shared/model"
	"meetroom/shared/timezone"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const (
	msgNotAuthorizedEdit   = "You are not authorized to edit this booking"
	msgNotAuthorizedCancel = "You are not authorized to cancel this booking"
	msgNotAuthorizedStatus = "Only administrators can change the booking status"
	msgCannotEditStarted   = "Cannot edit past or ongoing bookings"
	msgCannotCancelStarted = "Cannot cancel past or ongoing bookings"
	msgInvalidStatus       = "Invalid status. Must be: pending, approved, rejected, or cancelled"
	remarkRejectedByAdmin  = "Booking rejected by admin"
	actionCreate           = "create"
	actionUpdate           = "update"
	actionUpdateStatus     = "update status of"
)

var scheduleFields = []string{
	model.FieldRoomID,
	model.FieldDate,
	model.FieldIsMultiDay,
	model.FieldEndDate,
	model.FieldAllDay,
	model.FieldStartTime,
	model.FieldEndTime,
}

func (s *serviceImpl) Create(ctx context.Context, actor identity.Identity, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(&err)

	candidate, err := Validate(req.Schedule())
	if err != nil {
		return res, err
	}

	room, err := s.getRoom(ctx, candidate.RoomID)
	if err != nil {
		return res, err
	}

	candidate.RoomName = room.Name

	conflicts, err := s.detect(ctx, nil, candidate)
	if err != nil {
		return res, err
	}

	if len(conflicts) > 0 {
		return res, conflictError(candidate, conflicts)
	}

	booking := req.ToModel(actor.ID, actor.ID, s.defaultPurpose(), candidate)

	if err = s.repo.Insert(ctx, booking); err != nil {
		log.Error().Err(err).Msg("failed to create booking")

		return res, translateWriteError(err, candidate, actionCreate)
	}

	log.Info().Str("booking_id", booking.ID).Str("room_id", booking.RoomID).Str("requester_id", actor.ID).Msg("booking created")

	s.invalidate(ctx, constant.Empty)
	s.events.Publish(ctx, event.New(event.TypeCreated, booking, actor.ID))

	res.FromModel(booking)

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, actor identity.Identity, id string, req dto.UpdateBookingRequest) (res dto.UpdateBookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Update")
	defer scope.End()
	defer scope.TraceIfError(&err)

	current, err := s.getBooking(ctx, id)
	if err != nil {
		return res, err
	}

	if !actor.IsAdmin && !actor.Owns(current.RequesterID) {
		log.Warn().Str("booking_id", id).Str("actor_id", actor.ID).Msg("unauthorized booking edit")

		return res, failure.Forbidden(msgNotAuthorizedEdit) // nolint:wrapcheck
	}

	if today, minute := s.now(); !actor.IsAdmin && started(current, today, minute) {
		return res, failure.BadRequestFromString(msgCannotEditStarted) // nolint:wrapcheck
	}

	next, candidate, err := s.applyUpdate(actor, current, req)
	if err != nil {
		return res, err
	}

	changed := changedFields(current, next)
	if len(changed) == 0 {
		log.Info().Str("booking_id", id).Msg("no changes were made to the booking")

		res.Booking.FromModel(current)
		res.ChangedFields = []string{}

		return res, nil
	}

	scheduleChanged := containsAny(changed, scheduleFields)

	if next.RoomID != current.RoomID {
		room, err := s.getRoom(ctx, next.RoomID)
		if err != nil {
			return res, err
		}

		next.RoomName = room.Name
	}

	candidate.RoomName = next.RoomName
	candidate.ExcludeID = current.ID

	fields := updatedFields(next, changed, actor.ID)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	// approved bookings take part in the no-overlap rule, so their placement is re-checked
	// under the room lock whenever it moves or the booking becomes approved
	if next.Status.Blocking() && (scheduleChanged || !current.Status.Blocking()) {
		err = s.repo.WithRoomLock(ctx, next.RoomID, func(ctx context.Context, sqltx *sqlx.Tx) error {
			conflicts, err := s.detect(ctx, sqltx, candidate)
			if err != nil {
				return err
			}

			if len(conflicts) > 0 {
				return conflictError(candidate, conflicts)
			}

			return s.repo.UpdateTx(ctx, sqltx, fields, filter) //nolint:wrapcheck
		})
	} else {
		err = s.repo.Update(ctx, fields, filter)
	}

	if err != nil {
		log.Error().Err(err).Str("booking_id", id).Msg("failed to update booking")

		return res, translateWriteError(err, candidate, actionUpdate)
	}

	s.invalidate(ctx, id, current.RoomID, next.RoomID)

	eventType := event.TypeUpdated
	if next.Status != current.Status {
		eventType = event.TypeStatusChanged
	}

	s.events.Publish(ctx, event.New(eventType, next, actor.ID))

	res.Booking.FromModel(next)
	res.ChangedFields = changed

	return res, nil
}

// applyUpdate overlays req on current and returns the resulting booking with its validated placement.
func (s *serviceImpl) applyUpdate(actor identity.Identity, current model.Booking, req dto.UpdateBookingRequest) (model.Booking, conflict.Candidate, error) {
	candidate, err := Validate(req.Merge(current))
	if err != nil {
		return current, candidate, err
	}

	next := dto.ApplyPlacement(current, candidate)

	if req.Purpose != nil {
		next.Purpose = strings.TrimSpace(*req.Purpose)
		if next.Purpose == constant.Empty {
			next.Purpose = s.defaultPurpose()
		}
	}

	if req.Description != nil {
		next.Description = *req.Description
	}

	if req.Status != nil {
		status, err := parseStatus(*req.Status)

		switch {
		case status == current.Status:
		case !actor.IsAdmin:
			return current, candidate, failure.Forbidden(msgNotAuthorizedStatus) // nolint:wrapcheck
		case err != nil:
			return current, candidate, err
		default:
			next.Status = status
		}
	}

	if req.AdminRemarks != nil && actor.IsAdmin {
		next.AdminRemarks = *req.AdminRemarks
	}

	return next, candidate, nil
}

func (s *serviceImpl) Cancel(ctx context.Context, actor identity.Identity, id string) (res dto.CancelBookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Cancel")
	defer scope.End()
	defer scope.TraceIfError(&err)

	current, err := s.getBooking(ctx, id)
	if err != nil {
		return res, err
	}

	if !actor.IsAdmin && !actor.Owns(current.RequesterID) {
		log.Warn().Str("booking_id", id).Str("actor_id", actor.ID).Msg("unauthorized booking cancellation")

		return res, failure.Forbidden(msgNotAuthorizedCancel) // nolint:wrapcheck
	}

	if today, minute := s.now(); !actor.IsAdmin && started(current, today, minute) {
		return res, failure.BadRequestFromString(msgCannotCancelStarted) // nolint:wrapcheck
	}

	filter := shared.FilterByID(id, model.FieldID, model.TableName)
	res = dto.CancelBookingResponse{
		ID:            id,
		CancelledBy:   actor.ID,
		IsAdminAction: actor.IsAdmin,
	}

	// an admin cancelling a request that was never decided leaves a rejection on record
	if actor.IsAdmin && current.Status == model.StatusPending {
		rejected := current
		rejected.Status = model.StatusRejected
		rejected.AdminRemarks = remarkRejectedByAdmin

		fields := updatedFields(rejected, []string{model.FieldStatus, model.FieldAdminRemarks}, actor.ID)
		if err = s.repo.Update(ctx, fields, filter); err != nil {
			log.Error().Err(err).Str("booking_id", id).Msg("failed to reject booking")

			return res, fmt.Errorf("failed to reject booking: %w", err)
		}

		res.Action = dto.CancelActionRejected
		s.events.Publish(ctx, event.New(event.TypeRejected, rejected, actor.ID))
	} else {
		if err = s.repo.Delete(ctx, filter); err != nil {
			log.Error().Err(err).Str("booking_id", id).Msg("failed to delete booking")

			return res, fmt.Errorf("failed to delete booking: %w", err)
		}

		res.Action = dto.CancelActionDeleted
		s.events.Publish(ctx, event.New(event.TypeDeleted, current, actor.ID))
	}

	log.Info().Str("booking_id", id).Str("action", res.Action).Bool("is_admin", actor.IsAdmin).Msg("booking cancelled")

	s.invalidate(ctx, id, current.RoomID)

	res.CancelledAt = timezone.Now().Format(constant.DateFormat)

	return res, nil
}

func (s *serviceImpl) UpdateStatus(ctx context.Context, actor identity.Identity, id string, req dto.UpdateStatusRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".UpdateStatus")
	defer scope.End()
	defer scope.TraceIfError(&err)

	if !actor.IsAdmin {
		return res, failure.Forbidden(msgNotAuthorizedStatus) // nolint:wrapcheck
	}

	status, err := parseStatus(req.Status)
	if err != nil {
		return res, err
	}

	current, err := s.getBooking(ctx, id)
	if err != nil {
		return res, err
	}

	next := current
	next.Status = status
	changed := []string{model.FieldStatus}

	if req.AdminRemarks != constant.Empty {
		next.AdminRemarks = req.AdminRemarks
		changed = append(changed, model.FieldAdminRemarks)
	}

	fields := updatedFields(next, changed, actor.ID)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)
	candidate := conflict.FromBooking(current)

	if status.Blocking() && !current.Status.Blocking() {
		err = s.repo.WithRoomLock(ctx, current.RoomID, func(ctx context.Context, sqltx *sqlx.Tx) error {
			conflicts, err := s.detect(ctx, sqltx, candidate)
			if err != nil {
				return err
			}

			if len(conflicts) > 0 {
				return conflictError(candidate, conflicts)
			}

			return s.repo.UpdateTx(ctx, sqltx, fields, filter) //nolint:wrapcheck
		})
	} else {
		err = s.repo.Update(ctx, fields, filter)
	}

	if err != nil {
		log.Error().Err(err).Str("booking_id", id).Str("status", string(status)).Msg("failed to update booking status")

		return res, translateWriteError(err, candidate, actionUpdateStatus)
	}

	log.Info().Str("booking_id", id).Str("from", string(current.Status)).Str("to", string(status)).Msg("booking status updated")

	s.invalidate(ctx, id, current.RoomID)
	s.events.Publish(ctx, event.New(event.TypeStatusChanged, next, actor.ID))

	res.FromModel(next)

	return res, nil
}

func parseStatus(value string) (model.Status, error) {
	status := model.Status(strings.ToLower(strings.TrimSpace(value)))
	if !status.Valid() {
		return status, failure.BadRequestFromString(msgInvalidStatus) // nolint:wrapcheck
	}

	return status, nil
}

// changedFields lists the columns whose values differ between current and next.
func changedFields(current, next model.Booking) []string {
	changed := []string{}

	add := func(field string, differs bool) {
		if differs {
			changed = append(changed, field)
		}
	}

	add(model.FieldRoomID, current.RoomID != next.RoomID)
	add(model.FieldDate, current.Date != next.Date)
	add(model.FieldIsMultiDay, current.IsMultiDay != next.IsMultiDay)
	add(model.FieldEndDate, !equalPtr(current.EndDate, next.EndDate))
	add(model.FieldAllDay, current.AllDay != next.AllDay)
	add(model.FieldStartTime, !equalPtr(current.StartTime, next.StartTime))
	add(model.FieldEndTime, !equalPtr(current.EndTime, next.EndTime))
	add(model.FieldPurpose, current.Purpose != next.Purpose)
	add(model.FieldDescription, current.Description != next.Description)
	add(model.FieldStatus, current.Status != next.Status)
	add(model.FieldAdminRemarks, current.AdminRemarks != next.AdminRemarks)

	return changed
}

func updatedFields(next model.Booking, changed []string, user string) map[string]any {
	values := map[string]any{
		model.FieldRoomID:       next.RoomID,
		model.FieldDate:         next.Date,
		model.FieldIsMultiDay:   next.IsMultiDay,
		model.FieldEndDate:      next.EndDate,
		model.FieldAllDay:       next.AllDay,
		model.FieldStartTime:    next.StartTime,
		model.FieldEndTime:      next.EndTime,
		model.FieldPurpose:      next.Purpose,
		model.FieldDescription:  next.Description,
		model.FieldStatus:       string(next.Status),
		model.FieldAdminRemarks: next.AdminRemarks,
	}

	fields := map[string]any{}
	for _, field := range changed {
		fields[field] = values[field]
	}

	return gModel.Touch(fields, user, timezone.Now())
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

func containsAny(values, targets []string) bool {
	for _, target := range targets {
		for _, value := range values {
			if value == target {
				return true
			}
		}
	}

	return false
}
