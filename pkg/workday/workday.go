package workday

import (
	"time"

	"github.com/zeitblick/zeitblick/pkg/calendar"
)

// TimeEntry is a single project time posting on one calendar day.
type TimeEntry struct {
	Id          int
	Date        time.Time
	Hours       float64
	Description string
	ProjectId   int
}

// ProjectBucket holds the ordered entries of one project on one day.
type ProjectBucket struct {
	ProjectName string
	Entries     []TimeEntry
}

// DayRecord is the per-calendar-day aggregate of entries and events.
// Sum always equals the total hours over every entry in every bucket.
type DayRecord struct {
	Projects map[int]*ProjectBucket
	Events   []calendar.Event
	Sum      float64
}

// dayKeyLayout is the canonical date-bucket key format. Callers must
// normalize to a fixed reference hour before keying to avoid DST-induced
// day shifts.
const dayKeyLayout = "2006-01-02"

func dayKey(date time.Time) string {
	return date.Format(dayKeyLayout)
}
