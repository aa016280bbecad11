package calendar

import (
	"fmt"
	"time"
)

// wireTimeLayout is the naive local timestamp format used by Troi.
const wireTimeLayout = "2006-01-02 15:04:05"

var ErrInvalidTimestamp = fmt.Errorf("invalid event timestamp")

// Normalize converts a raw (possibly multi-day) event into one classified
// Event per calendar day of the intersection between the event's span and
// the [minDate, maxDate] window, in ascending date order.
//
// The per-day time range keeps the original start time on the event's first
// day and the original end time on its last day; all other boundaries
// default to 09:00 and 18:00. An event fully outside the window yields an
// empty slice, not an error. A start time already past 18:00 produces an
// inverted synthesized range on the first day; that range is passed through
// unrepaired.
func Normalize(raw RawEvent, minDate, maxDate time.Time) ([]Event, error) {
	start, err := time.ParseInLocation(wireTimeLayout, raw.StartDate, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: startDate %q of event %s: %v", ErrInvalidTimestamp, raw.StartDate, raw.Id, err)
	}
	end, err := time.ParseInLocation(wireTimeLayout, raw.EndDate, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("%w: endDate %q of event %s: %v", ErrInvalidTimestamp, raw.EndDate, raw.Id, err)
	}

	firstDay := midnightOf(start)
	lastDay := midnightOf(end)

	clipStart := firstDay
	if min := midnightOf(minDate); clipStart.Before(min) {
		clipStart = min
	}
	clipEnd := lastDay
	if max := midnightOf(maxDate); clipEnd.After(max) {
		clipEnd = max
	}
	if clipStart.After(clipEnd) {
		return []Event{}, nil
	}

	category := classify(raw.Type, raw.Subject)

	events := make([]Event, 0, int(clipEnd.Sub(clipStart).Hours()/24)+1)
	for day := clipStart; !day.After(clipEnd); day = day.AddDate(0, 0, 1) {
		dayStart := "09:00"
		if day.Equal(firstDay) {
			dayStart = start.Format("15:04")
		}
		dayEnd := "18:00"
		if day.Equal(lastDay) {
			dayEnd = end.Format("15:04")
		}
		events = append(events, Event{
			Category: category,
			Duration: durationOf(dayStart, dayEnd),
			Date:     day,
		})
	}
	return events, nil
}

// classify maps the Troi event type code and subject to a category. Type "P"
// (personal absence) is distinguished by its exact German subject line; any
// unrecognized combination is Unknown and may be dropped by the caller.
func classify(typeCode, subject string) Category {
	if typeCode == "H" {
		return Holiday
	}
	if typeCode != "P" {
		return Unknown
	}
	switch subject {
	case "Fortbildung":
		return Training
	case "Bezahlter Urlaub":
		return PaidVacation
	case "Unbezahlter Urlaub":
		return UnpaidVacation
	case "Freizeitausgleich (Überstunden)":
		return CompensatoryTimeOff
	case "Krankheit":
		return Sick
	default:
		return Unknown
	}
}

// durationOf classifies the per-day time range: exactly 09:00-13:00 or
// 14:00-18:00 counts as a half day, everything else as a full day.
func durationOf(start, end string) Duration {
	if (start == "09:00" && end == "13:00") || (start == "14:00" && end == "18:00") {
		return HalfDay
	}
	return AllDay
}

// midnightOf returns the UTC midnight marker for t's calendar day.
func midnightOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
