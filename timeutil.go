package main

import (
	"errors"
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// normalizeEventTime converts a feed start/end value to an instant. Timed
// events carry an offset-bearing date-time; all-day events carry a bare date
// that is anchored to the calendar's zone.
func normalizeEventTime(edt *calendar.EventDateTime, loc *time.Location) (time.Time, error) {
	if edt == nil {
		return time.Time{}, errors.New("missing start/end value")
	}
	if edt.DateTime != "" {
		return parseEventTime(edt.DateTime)
	}
	return parseEventDate(edt.Date, loc)
}

// parseEventTime parses a Google date-time string such as
// "2015-08-03T10:15:00+05:30" or "2015-06-19T16:20:45.000Z". The string
// carries its own offset, which already pins the instant, so the calendar's
// timezone is not applied.
func parseEventTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse event time %q: %w", value, err)
	}
	return t, nil
}

// parseEventDate parses an all-day value such as "2015-08-03" as local
// midnight in the calendar's timezone.
func parseEventDate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse event date %q: %w", value, err)
	}
	return t, nil
}
