package calendar_test

import (
	"errors"
	"testing"
	"time"

	"meetroom/shared/calendar"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    calendar.Date
		wantErr bool
	}{
		{name: "canonical date is returned unchanged", input: "2024-06-10", want: "2024-06-10"},
		{name: "surrounding whitespace is trimmed", input: "  2024-06-10 ", want: "2024-06-10"},
		{name: "iso timestamp keeps its written calendar date", input: "2024-06-10T23:30:00-05:00", want: "2024-06-10"},
		{name: "utc timestamp late in the day", input: "2024-06-10T23:59:59Z", want: "2024-06-10"},
		{name: "date with clock time", input: "2024-06-10 08:15:00", want: "2024-06-10"},
		{name: "slashed date", input: "2024/06/10", want: "2024-06-10"},
		{name: "empty input", input: "", wantErr: true},
		{name: "impossible month", input: "2024-13-01", wantErr: true},
		{name: "impossible day", input: "2024-02-30", wantErr: true},
		{name: "garbage", input: "next tuesday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calendar.NormalizeDate(tt.input)

			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, calendar.ErrInvalidDate))

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromTimeUsesWallClock(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	moment := time.Date(2024, 6, 10, 2, 0, 0, 0, loc)

	assert.Equal(t, calendar.Date("2024-06-10"), calendar.FromTime(moment))
}

func TestDateScan(t *testing.T) {
	var date calendar.Date

	require.NoError(t, date.Scan(time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, calendar.Date("2024-06-10"), date)

	require.NoError(t, date.Scan([]byte("2024-06-11")))
	assert.Equal(t, calendar.Date("2024-06-11"), date)

	require.NoError(t, date.Scan("2024-06-12T00:00:00Z"))
	assert.Equal(t, calendar.Date("2024-06-12"), date)

	require.NoError(t, date.Scan(nil))
	assert.True(t, date.IsZero())

	assert.Error(t, date.Scan(42))
}

func TestDateValue(t *testing.T) {
	value, err := calendar.Date("2024-06-10").Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-06-10", value)

	value, err = calendar.Date("").Value()
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestAddDaysAndDays(t *testing.T) {
	assert.Equal(t, calendar.Date("2024-03-01"), calendar.Date("2024-02-29").AddDays(1))
	assert.Equal(t, calendar.Date("2023-12-31"), calendar.Date("2024-01-01").AddDays(-1))

	days := calendar.Days("2024-06-10", "2024-06-12")
	assert.Equal(t, []calendar.Date{"2024-06-10", "2024-06-11", "2024-06-12"}, days)

	assert.Empty(t, calendar.Days("2024-06-12", "2024-06-10"))
	assert.Len(t, calendar.Days("2024-06-10", "2024-06-10"), 1)
}

func TestTimeToMinutes(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "00:00", want: 0},
		{input: "09:00", want: 540},
		{input: "9:30", want: 570},
		{input: "23:59", want: 1439},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "1200", wantErr: true},
		{input: "", wantErr: true},
		{input: "09:00:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := calendar.TimeToMinutes(tt.input)

			if tt.wantErr {
				assert.ErrorIs(t, err, calendar.ErrInvalidTime)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "09:00", calendar.FormatMinutes(540))
	assert.Equal(t, "00:05", calendar.FormatMinutes(5))
	assert.Equal(t, "23:59", calendar.FormatMinutes(1439))
}

func TestDateRangesOverlap(t *testing.T) {
	tests := []struct {
		name         string
		startA, endA calendar.Date
		startB, endB calendar.Date
		want         bool
	}{
		{name: "same single day", startA: "2024-06-10", endA: "2024-06-10", startB: "2024-06-10", endB: "2024-06-10", want: true},
		{name: "range ending on the other's start", startA: "2024-06-08", endA: "2024-06-10", startB: "2024-06-10", endB: "2024-06-12", want: true},
		{name: "adjacent days", startA: "2024-06-08", endA: "2024-06-09", startB: "2024-06-10", endB: "2024-06-12", want: false},
		{name: "contained range", startA: "2024-06-01", endA: "2024-06-30", startB: "2024-06-10", endB: "2024-06-11", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calendar.DateRangesOverlap(tt.startA, tt.endA, tt.startB, tt.endB))
			assert.Equal(t, tt.want, calendar.DateRangesOverlap(tt.startB, tt.endB, tt.startA, tt.endA))
		})
	}
}

func TestTimeRangesOverlap(t *testing.T) {
	tests := []struct {
		name         string
		startA, endA int
		startB, endB int
		want         bool
	}{
		{name: "touching slots do not overlap", startA: 540, endA: 600, startB: 600, endB: 660, want: false},
		{name: "one minute overlap", startA: 540, endA: 601, startB: 600, endB: 660, want: true},
		{name: "identical", startA: 540, endA: 600, startB: 540, endB: 600, want: true},
		{name: "contained", startA: 540, endA: 720, startB: 600, endB: 630, want: true},
		{name: "disjoint", startA: 540, endA: 600, startB: 720, endB: 780, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calendar.TimeRangesOverlap(tt.startA, tt.endA, tt.startB, tt.endB))
			assert.Equal(t, tt.want, calendar.TimeRangesOverlap(tt.startB, tt.endB, tt.startA, tt.endA))
		})
	}
}
