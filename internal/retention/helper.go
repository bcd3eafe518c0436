package retention

import (
	"fmt"
	"time"

	// The reference zone must resolve even on minimal function runtimes without zoneinfo.
	_ "time/tzdata"
)

// naiveLayout is the service's created_at format. Fractional seconds of any
// precision are accepted when parsing even though the layout omits them.
const naiveLayout = "2006-01-02T15:04:05"

// helperNormalizeTimezone loads a Time Location from a string name.
// It defaults to DefaultTimeZone if the timezone string is empty.
func helperNormalizeTimezone(timezone string) (string, *time.Location, error) {
	if timezone == "" {
		timezone = DefaultTimeZone
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return timezone, nil, fmt.Errorf("invalid timezone '%s': %w", timezone, err)
	}
	return timezone, loc, nil
}

// helperParseCreatedAt turns a created_at value into an absolute UTC instant.
//
// Values without an offset are wall-clock times in loc: they are localized
// first and converted to UTC afterwards. Values that do carry an offset are
// trusted as-is.
func helperParseCreatedAt(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(naiveLayout, value, loc)
	if err == nil {
		return t.UTC(), nil
	}

	if withOffset, offsetErr := time.Parse(time.RFC3339Nano, value); offsetErr == nil {
		return withOffset.UTC(), nil
	}

	return time.Time{}, err
}
