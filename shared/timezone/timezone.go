// Package timezone pins booking dates and clock times to the zone configured in
// APP_TIMEZONE. Rooms are booked in local office time, so "today" and "now" are
// always read through this package rather than time.Now.
package timezone

import (
	"sync/atomic"
	"time"
	_ "time/tzdata"

	"meetroom/config"

	"github.com/rs/zerolog/log"
)

var location atomic.Pointer[time.Location]

func init() {
	if err := Set(config.Get().App.Timezone); err != nil {
		log.Error().Err(err).Msg("Failed to load timezone, falling back to UTC")
	}
}

// Set switches the application zone by IANA name. An empty name selects UTC; an
// unknown one leaves the current zone in place.
func Set(name string) error {
	if name == "" {
		location.Store(time.UTC)

		return nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		if location.Load() == nil {
			location.Store(time.UTC)
		}

		return err //nolint:wrapcheck
	}

	location.Store(loc)
	log.Debug().Str("timezone", loc.String()).Msg("Application timezone set")

	return nil
}

func Location() *time.Location {
	if loc := location.Load(); loc != nil {
		return loc
	}

	return time.UTC
}

func Now() time.Time {
	return time.Now().In(Location())
}

// Today is the current calendar date in the application zone.
func Today() string {
	return Now().Format(time.DateOnly)
}

func Format(t time.Time, layout string) string {
	return t.In(Location()).Format(layout)
}
