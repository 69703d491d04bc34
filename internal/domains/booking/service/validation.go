package service

import (
	"strings"

	"meetroom/internal/domains/booking/conflict"
	"meetroom/internal/domains/booking/model/dto"
	"meetroom/shared/calendar"
	"meetroom/shared/failure"
)

const (
	msgMissingRoomAndDate = "Missing required fields: room_id and date are required"
	msgInvalidDate        = "Invalid date format. Use YYYY-MM-DD format (e.g., 2024-07-01)"
	msgMissingEndDate     = "Missing required field: end_date is required for multi-day bookings"
	msgInvalidEndDate     = "Invalid end_date format. Use YYYY-MM-DD format (e.g., 2024-07-03)"
	msgEndDateNotAfter    = "End date must be after start date for multi-day bookings"
	msgMissingTimes       = "Missing required fields: start_time and end_time are required for non-all-day bookings"
	msgInvalidStartTime   = "Invalid start_time format. Use HH:MM format (e.g., 09:00)"
	msgInvalidEndTime     = "Invalid end_time format. Use HH:MM format (e.g., 17:00)"
	msgEndTimeNotAfter    = "End time must be after start time"
)

// Validate checks the shape of a requested placement and normalizes it.
// It stops at the first rule that fails and never looks at other bookings.
func Validate(schedule dto.Schedule) (conflict.Candidate, error) {
	roomID := strings.TrimSpace(schedule.RoomID)
	rawDate := strings.TrimSpace(schedule.Date)

	if roomID == "" || rawDate == "" {
		return conflict.Candidate{}, failure.BadRequestFromString(msgMissingRoomAndDate) //nolint:wrapcheck
	}

	date, err := calendar.NormalizeDate(rawDate)
	if err != nil {
		return conflict.Candidate{}, failure.BadRequestFromString(msgInvalidDate) //nolint:wrapcheck
	}

	candidate := conflict.Candidate{
		RoomID:  roomID,
		Date:    date,
		EndDate: date,
		AllDay:  schedule.AllDay,
	}

	if schedule.IsMultiDay {
		rawEndDate := strings.TrimSpace(schedule.EndDate)
		if rawEndDate == "" {
			return conflict.Candidate{}, failure.BadRequestFromString(msgMissingEndDate) //nolint:wrapcheck
		}

		endDate, err := calendar.NormalizeDate(rawEndDate)
		if err != nil {
			return conflict.Candidate{}, failure.BadRequestFromString(msgInvalidEndDate) //nolint:wrapcheck
		}

		if !endDate.After(date) {
			return conflict.Candidate{}, failure.BadRequestFromString(msgEndDateNotAfter) //nolint:wrapcheck
		}

		candidate.EndDate = endDate
	}

	if schedule.AllDay {
		return candidate, nil
	}

	rawStart := strings.TrimSpace(schedule.StartTime)
	rawEnd := strings.TrimSpace(schedule.EndTime)

	if rawStart == "" || rawEnd == "" {
		return conflict.Candidate{}, failure.BadRequestFromString(msgMissingTimes) //nolint:wrapcheck
	}

	start, err := calendar.TimeToMinutes(rawStart)
	if err != nil {
		return conflict.Candidate{}, failure.BadRequestFromString(msgInvalidStartTime) //nolint:wrapcheck
	}

	end, err := calendar.TimeToMinutes(rawEnd)
	if err != nil {
		return conflict.Candidate{}, failure.BadRequestFromString(msgInvalidEndTime) //nolint:wrapcheck
	}

	if end <= start {
		return conflict.Candidate{}, failure.BadRequestFromString(msgEndTimeNotAfter) //nolint:wrapcheck
	}

	candidate.StartTime = start
	candidate.EndTime = end

	return candidate, nil
}
