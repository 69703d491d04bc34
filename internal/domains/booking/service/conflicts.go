package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"meetroom/internal/domains/booking/conflict"
	"meetroom/internal/domains/booking/model"
	"meetroom/internal/domains/booking/model/dto"
	"meetroom/shared/calendar"
	"meetroom/shared/constant"
	gDto "meetroom/shared/dto"
	"meetroom/shared/failure"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

func (s *serviceImpl) CheckConflicts(ctx context.Context, req dto.CheckConflictsRequest) (res conflict.Result, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CheckConflicts")
	defer scope.End()
	defer scope.TraceIfError(&err)

	candidate, err := Validate(req.Schedule)
	if err != nil {
		return res, err
	}

	room, err := s.getRoom(ctx, candidate.RoomID)
	if err != nil {
		return res, err
	}

	candidate.RoomName = room.Name
	candidate.ExcludeID = req.ExcludeBookingID

	conflicts, err := s.detect(ctx, nil, candidate)
	if err != nil {
		return res, err
	}

	return conflict.NewResult(conflicts), nil
}

// detect loads the approved bookings that could collide with candidate and classifies them.
// With a non-nil sqltx the read happens inside that transaction.
func (s *serviceImpl) detect(ctx context.Context, sqltx *sqlx.Tx, candidate conflict.Candidate) ([]conflict.Conflict, error) {
	existing, err := s.findApproved(ctx, sqltx, candidate.RoomID, candidate.Date, candidate.EndDate)
	if err != nil {
		return nil, err
	}

	conflicts := conflict.Detect(candidate, existing)
	if len(conflicts) > 0 {
		kinds := conflict.NewResult(conflicts).Kinds()
		s.metrics.RecordConflicts(kinds)

		log.Warn().
			Str("room_id", candidate.RoomID).
			Str("date", candidate.Date.String()).
			Str("end_date", candidate.EndDate.String()).
			Strs("kinds", kinds).
			Int("count", len(conflicts)).
			Msg("booking request conflicts with approved bookings")
	}

	return conflicts, nil
}

// findApproved returns approved bookings of roomID whose days intersect [start, end], ordered
// all-day first and then by start time.
func (s *serviceImpl) findApproved(ctx context.Context, sqltx *sqlx.Tx, roomID string, start, end calendar.Date) ([]model.Booking, error) {
	params := gDto.QueryParams{
		SortBy:  model.TableName + "." + model.FieldCreatedAt,
		SortDir: gDto.SortDirAsc,
	}
	filter := approvedOverlapFilter(roomID, start, end)

	var (
		bookings []model.Booking
		err      error
	)

	if sqltx != nil {
		bookings, err = s.repo.GetAllTx(ctx, sqltx, params, filter)
	} else {
		bookings, err = s.repo.GetAll(ctx, params, filter)
	}

	if err != nil {
		log.Error().Err(err).Str("room_id", roomID).Msg("failed to get approved bookings")

		return nil, fmt.Errorf("failed to get approved bookings: %w", err)
	}

	slices.SortStableFunc(bookings, func(a, b model.Booking) int {
		startA, _ := a.Window()
		startB, _ := b.Window()

		switch {
		case a.AllDay && !b.AllDay:
			return -1
		case !a.AllDay && b.AllDay:
			return 1
		}

		return startA - startB
	})

	return bookings, nil
}

// approvedOverlapFilter selects single-day bookings dated inside [start, end] and multi-day
// bookings whose span touches it.
func approvedOverlapFilter(roomID string, start, end calendar.Date) gDto.FilterGroup {
	return gDto.FilterGroup{
		Operator: gDto.FilterGroupOperatorAnd,
		Filters: []any{
			gDto.Filter{
				Field:    model.FieldRoomID,
				Value:    roomID,
				Operator: gDto.FilterOperatorEq,
				Table:    model.TableName,
			},
			gDto.Filter{
				Field:    model.FieldStatus,
				Value:    string(model.StatusApproved),
				Operator: gDto.FilterOperatorEq,
				Table:    model.TableName,
			},
			gDto.FilterGroup{
				Operator: gDto.FilterGroupOperatorOr,
				Filters: []any{
					gDto.FilterGroup{
						Operator: gDto.FilterGroupOperatorAnd,
						Filters: []any{
							gDto.Filter{ArgName: "single_day", Field: model.FieldIsMultiDay, Value: false, Operator: gDto.FilterOperatorEq, Table: model.TableName},
							gDto.Filter{ArgName: "single_from", Field: model.FieldDate, Value: start, Operator: gDto.FilterOperatorGreaterEq, Table: model.TableName},
							gDto.Filter{ArgName: "single_to", Field: model.FieldDate, Value: end, Operator: gDto.FilterOperatorLessEq, Table: model.TableName},
						},
					},
					gDto.FilterGroup{
						Operator: gDto.FilterGroupOperatorAnd,
						Filters: []any{
							gDto.Filter{ArgName: "multi_day", Field: model.FieldIsMultiDay, Value: true, Operator: gDto.FilterOperatorEq, Table: model.TableName},
							gDto.Filter{ArgName: "multi_to", Field: model.FieldDate, Value: end, Operator: gDto.FilterOperatorLessEq, Table: model.TableName},
							gDto.Filter{ArgName: "multi_from", Field: model.FieldEndDate, Value: start, Operator: gDto.FilterOperatorGreaterEq, Table: model.TableName},
						},
					},
				},
			},
		},
	}
}

func conflictError(candidate conflict.Candidate, conflicts []conflict.Conflict) error {
	return failure.ConflictWithDetails(conflict.Summary(candidate), conflicts) //nolint:wrapcheck
}

// translateWriteError turns the store's exclusion constraint on approved bookings into a conflict.
func translateWriteError(err error, candidate conflict.Candidate, action string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == constant.PqErrorCodeExclusionViolation {
		log.Warn().Err(err).Str("room_id", candidate.RoomID).Msg("approved booking rejected by exclusion constraint")

		return conflictError(candidate, []conflict.Conflict{})
	}

	var fail *failure.Failure
	if errors.As(err, &fail) {
		return err
	}

	return fmt.Errorf("failed to %s booking: %w", action, err)
}
