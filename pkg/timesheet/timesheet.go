package timesheet

import (
	"fmt"
	"time"

	"github.com/zeitblick/zeitblick/pkg/calendar"
	"github.com/zeitblick/zeitblick/pkg/troi"
	"github.com/zeitblick/zeitblick/pkg/workday"
)

// Day is the UI-facing aggregate for one calendar day: the per-project time
// entries, the classified absence events, and the total booked hours.
type Day struct {
	Date    time.Time
	Entries map[int][]workday.TimeEntry
	Events  []calendar.Event
	Sum     float64
}

const dateLayout = "2006-01-02"

var ErrInvalidDate = fmt.Errorf("invalid entry date")

// rangeKey is the cache key for a fetch window.
func rangeKey(from, to time.Time) string {
	return from.Format(dateLayout) + "/" + to.Format(dateLayout)
}

func midnightOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// wireToEntry converts a Troi time entry to the day-cache form. A malformed
// date is rejected rather than silently producing a wrong bucket key.
func wireToEntry(wire troi.TimeEntry) (workday.TimeEntry, error) {
	date, err := time.ParseInLocation(dateLayout, wire.Date, time.UTC)
	if err != nil {
		return workday.TimeEntry{}, fmt.Errorf("%w: %q on entry %d", ErrInvalidDate, wire.Date, wire.Id)
	}
	return workday.TimeEntry{
		Id:          wire.Id,
		Date:        date,
		Hours:       wire.Hours,
		Description: wire.Description,
		ProjectId:   wire.ProjectId,
	}, nil
}

func entryToWire(entry workday.TimeEntry) troi.TimeEntry {
	return troi.TimeEntry{
		Id:          entry.Id,
		Date:        entry.Date.Format(dateLayout),
		Hours:       entry.Hours,
		Description: entry.Description,
		ProjectId:   entry.ProjectId,
	}
}
