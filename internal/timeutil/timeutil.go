// Package timeutil provides utility functions and types for working with
// time-related operations.
package timeutil

import (
	"fmt"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

const (
	secondsInAMinute = 60
	secondsInAnHour  = 3600
)

// Clock reports the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// SecsToHoursMinsSecs expresses a seconds value in hours, minutes and seconds.
func SecsToHoursMinsSecs(val int64) (hrs, mins, secs int64) {
	if val < 0 {
		val = 0
	}

	hrs = val / secondsInAnHour
	mins = (val % secondsInAnHour) / secondsInAMinute
	secs = val % secondsInAMinute

	return
}

// FormatSeconds renders an elapsed value as HH:MM:SS. Hours are not capped
// at 24 since a stage may run across several shifts.
func FormatSeconds(val int64) string {
	h, m, s := SecsToHoursMinsSecs(val)

	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FromStr parses an absolute or relative date such as "10 minutes ago" or
// "2025-03-01 14:30".
func FromStr(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now(), nil
	}

	cfg := &dps.Configuration{
		CurrentTime:         time.Now(),
		PreferredDateSource: dps.Past,
	}

	dt, err := dps.Parse(cfg, s)
	if err != nil {
		return time.Time{}, err
	}

	return dt.Time, nil
}
