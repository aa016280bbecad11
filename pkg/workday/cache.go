package workday

import (
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeitblick/zeitblick/pkg/calendar"
)

// Cache is the date-indexed aggregate of time entries and calendar events
// for one session. Day records are created lazily on first touch and only
// removed by PruneOutside.
//
// All access is serialized by an internal mutex, so a background refresh
// writing into the cache cannot interleave with a foreground read.
type Cache struct {
	mu   sync.Mutex
	days map[string]*DayRecord
}

func NewCache() *Cache {
	return &Cache{days: make(map[string]*DayRecord)}
}

func (c *Cache) recordFor(date time.Time) *DayRecord {
	key := dayKey(date)
	record, ok := c.days[key]
	if !ok {
		record = &DayRecord{Projects: make(map[int]*ProjectBucket)}
		c.days[key] = record
	}
	return record
}

// AddEvent appends the event to its day's record. Events are not
// deduplicated.
func (c *Cache) AddEvent(event calendar.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record := c.recordFor(event.Date)
	record.Events = append(record.Events, event)
}

// AddEntries adds all entries to the given project's buckets, in order.
func (c *Cache) AddEntries(projectId int, projectName string, entries []TimeEntry) {
	for _, entry := range entries {
		c.AddEntry(projectId, projectName, entry)
	}
}

// AddEntry adds the entry to its day's bucket for the project. An existing
// entry with a case-insensitively equal description is deleted first: the
// upstream API folds same-description postings into one line item, so the
// cache mirrors that and lets the last write win.
func (c *Cache) AddEntry(projectId int, projectName string, entry TimeEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.addLocked(projectId, projectName, entry)
}

func (c *Cache) addLocked(projectId int, projectName string, entry TimeEntry) {
	record := c.recordFor(entry.Date)
	bucket, ok := record.Projects[projectId]
	if !ok {
		bucket = &ProjectBucket{ProjectName: projectName}
		record.Projects[projectId] = bucket
	}

	for i, existing := range bucket.Entries {
		if strings.EqualFold(existing.Description, entry.Description) {
			log.Debugf("replacing entry %d with same description on %s", existing.Id, dayKey(entry.Date))
			bucket.Entries = append(bucket.Entries[:i], bucket.Entries[i+1:]...)
			break
		}
	}

	bucket.Entries = append(bucket.Entries, entry)
	record.Sum = sumOf(record)
}

// DeleteEntry removes the entry with the given id from the project's bucket
// on the entry's day. A missing entry is a no-op. The day's sum is fully
// recomputed rather than decremented, to stay correct under concurrent edits
// to the same record.
func (c *Cache) DeleteEntry(projectId int, entry TimeEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.deleteLocked(projectId, entry)
}

func (c *Cache) deleteLocked(projectId int, entry TimeEntry) {
	record, ok := c.days[dayKey(entry.Date)]
	if !ok {
		return
	}
	bucket, ok := record.Projects[projectId]
	if !ok {
		return
	}
	for i, existing := range bucket.Entries {
		if existing.Id == entry.Id {
			bucket.Entries = append(bucket.Entries[:i], bucket.Entries[i+1:]...)
			record.Sum = sumOf(record)
			return
		}
	}
}

// UpdateEntry replaces the stored entry by id, folding description
// collisions first: any entry with the same description is deleted, then the
// entry with the same id, then the new value is added. Both deletes tolerate
// absent targets as no-ops. The double delete mirrors the upstream behavior
// and is pinned by a test.
func (c *Cache) UpdateEntry(projectId int, entry TimeEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record := c.recordFor(entry.Date)
	projectName := ""
	if bucket, ok := record.Projects[projectId]; ok {
		projectName = bucket.ProjectName
		for i, existing := range bucket.Entries {
			if strings.EqualFold(existing.Description, entry.Description) {
				bucket.Entries = append(bucket.Entries[:i], bucket.Entries[i+1:]...)
				record.Sum = sumOf(record)
				break
			}
		}
	}
	c.deleteLocked(projectId, entry)
	c.addLocked(projectId, projectName, entry)
}

// GetEntriesFor returns the per-project entries for the date, or an empty
// map if the date is untouched. The returned slices are copies.
func (c *Cache) GetEntriesFor(date time.Time) map[int][]TimeEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[int][]TimeEntry)
	record, ok := c.days[dayKey(date)]
	if !ok {
		return result
	}
	for projectId, bucket := range record.Projects {
		entries := make([]TimeEntry, len(bucket.Entries))
		copy(entries, bucket.Entries)
		result[projectId] = entries
	}
	return result
}

// GetEventsFor returns the day's events, or an empty slice for an untouched
// date.
func (c *Cache) GetEventsFor(date time.Time) []calendar.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.days[dayKey(date)]
	if !ok {
		return []calendar.Event{}
	}
	events := make([]calendar.Event, len(record.Events))
	copy(events, record.Events)
	return events
}

// TotalHoursOf returns the running hour total for the date, or 0 for an
// untouched date.
func (c *Cache) TotalHoursOf(date time.Time) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, ok := c.days[dayKey(date)]
	if !ok {
		return 0
	}
	return record.Sum
}

// DropRange removes every day record inside [from, to]. Used by a window
// refresh to rebuild the covered days from fresh upstream records.
func (c *Cache) DropRange(from, to time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fromKey := dayKey(from)
	toKey := dayKey(to)
	for key := range c.days {
		if key >= fromKey && key <= toKey {
			delete(c.days, key)
		}
	}
}

// PruneOutside drops every day record outside [minDate, maxDate]. Query
// results inside the window are unaffected. This bounds the otherwise
// unbounded growth of the date index over a long session.
func (c *Cache) PruneOutside(minDate, maxDate time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	minKey := dayKey(minDate)
	maxKey := dayKey(maxDate)
	pruned := 0
	for key := range c.days {
		if key < minKey || key > maxKey {
			delete(c.days, key)
			pruned++
		}
	}
	return pruned
}

func sumOf(record *DayRecord) float64 {
	total := 0.0
	for _, bucket := range record.Projects {
		for _, entry := range bucket.Entries {
			total += entry.Hours
		}
	}
	return total
}
