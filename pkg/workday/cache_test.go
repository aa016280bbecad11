package workday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/zeitblick/zeitblick/pkg/calendar"
)

var testDay = time.Date(2023, time.June, 7, 0, 0, 0, 0, time.UTC)

func TestCache_AddEntry(t *testing.T) {
	t.Run("single entry sets the day total", func(t *testing.T) {
		// given
		cache := NewCache()

		// when
		cache.AddEntry(100, "Project A", TimeEntry{Id: 1, Date: testDay, Hours: 4.75, Description: "a task", ProjectId: 100})

		// then
		assert.Equal(t, 4.75, cache.TotalHoursOf(testDay))
		entries := cache.GetEntriesFor(testDay)
		assert.Len(t, entries, 1)
		assert.Len(t, entries[100], 1)
		assert.Equal(t, "a task", entries[100][0].Description)
	})

	t.Run("entries in different projects sum across the day", func(t *testing.T) {
		cache := NewCache()

		cache.AddEntry(100, "Project A", TimeEntry{Id: 1, Date: testDay, Hours: 4.75, Description: "a task", ProjectId: 100})
		cache.AddEntry(101, "Project B", TimeEntry{Id: 2, Date: testDay, Hours: 3.0, Description: "another task", ProjectId: 101})

		assert.Equal(t, 7.75, cache.TotalHoursOf(testDay))
		assert.Len(t, cache.GetEntriesFor(testDay), 2)
	})

	t.Run("same description is folded, last write wins", func(t *testing.T) {
		cache := NewCache()

		cache.AddEntry(100, "Project A", TimeEntry{Id: 1, Date: testDay, Hours: 2.0, Description: "Task", ProjectId: 100})
		cache.AddEntry(100, "Project A", TimeEntry{Id: 2, Date: testDay, Hours: 3.5, Description: "task", ProjectId: 100})

		entries := cache.GetEntriesFor(testDay)[100]
		assert.Len(t, entries, 1)
		assert.Equal(t, 3.5, entries[0].Hours)
		assert.Equal(t, 3.5, cache.TotalHoursOf(testDay))
	})

	t.Run("same description in another project is kept", func(t *testing.T) {
		cache := NewCache()

		cache.AddEntry(100, "Project A", TimeEntry{Id: 1, Date: testDay, Hours: 2.0, Description: "standup", ProjectId: 100})
		cache.AddEntry(101, "Project B", TimeEntry{Id: 2, Date: testDay, Hours: 0.5, Description: "standup", ProjectId: 101})

		assert.Equal(t, 2.5, cache.TotalHoursOf(testDay))
	})
}

func TestCache_AddEntries(t *testing.T) {
	cache := NewCache()
	otherDay := testDay.AddDate(0, 0, 1)

	cache.AddEntries(100, "Project A", []TimeEntry{
		{Id: 1, Date: testDay, Hours: 4.0, Description: "first", ProjectId: 100},
		{Id: 2, Date: testDay, Hours: 2.0, Description: "second", ProjectId: 100},
		{Id: 3, Date: otherDay, Hours: 8.0, Description: "third", ProjectId: 100},
	})

	assert.Equal(t, 6.0, cache.TotalHoursOf(testDay))
	assert.Equal(t, 8.0, cache.TotalHoursOf(otherDay))
	assert.Len(t, cache.GetEntriesFor(testDay)[100], 2)
}

func TestCache_DeleteEntry(t *testing.T) {
	t.Run("deleting restores the prior total", func(t *testing.T) {
		cache := NewCache()
		cache.AddEntry(100, "Project A", TimeEntry{Id: 1, Date: testDay, Hours: 4.75, Description: "a task", ProjectId: 100})
		entry := TimeEntry{Id: 2, Date: testDay, Hours: 3.0, Description: "to delete", ProjectId: 100}
		cache.AddEntry(100, "Project A", entry)
		assert.Equal(t, 7.75, cache.TotalHoursOf(testDay))

		cache.DeleteEntry(100, entry)

		assert.Equal(t, 4.75, cache.TotalHoursOf(testDay))
		assert.Len(t, cache.GetEntriesFor(testDay)[100], 1)
	})

	t.Run("deleting an unknown entry is a no-op", func(t *testing.T) {
		cache := NewCache()
		cache.AddEntry(100, "Project A", TimeEntry{Id: 1, Date: testDay, Hours: 4.0, Description: "a task", ProjectId: 100})

		cache.DeleteEntry(100, TimeEntry{Id: 99, Date: testDay})
		cache.DeleteEntry(999, TimeEntry{Id: 1, Date: testDay})
		cache.DeleteEntry(100, TimeEntry{Id: 1, Date: testDay.AddDate(0, 0, 3)})

		assert.Equal(t, 4.0, cache.TotalHoursOf(testDay))
	})
}

func TestCache_UpdateEntry(t *testing.T) {
	t.Run("replaces the entry by id", func(t *testing.T) {
		cache := NewCache()
		cache.AddEntry(100, "Project A", TimeEntry{Id: 1, Date: testDay, Hours: 4.0, Description: "a task", ProjectId: 100})

		cache.UpdateEntry(100, TimeEntry{Id: 1, Date: testDay, Hours: 6.0, Description: "a task", ProjectId: 100})

		entries := cache.GetEntriesFor(testDay)[100]
		assert.Len(t, entries, 1)
		assert.Equal(t, 6.0, entries[0].Hours)
		assert.Equal(t, 6.0, cache.TotalHoursOf(testDay))
	})

	// The update deletes by description match and then separately by id
	// before re-adding. When the description now collides with a different
	// entry, both deletes fire and the colliding entry is folded away.
	t.Run("double delete folds a colliding entry", func(t *testing.T) {
		cache := NewCache()
		cache.AddEntry(100, "Project A", TimeEntry{Id: 1, Date: testDay, Hours: 4.0, Description: "first", ProjectId: 100})
		cache.AddEntry(100, "Project A", TimeEntry{Id: 2, Date: testDay, Hours: 2.0, Description: "second", ProjectId: 100})

		// rename entry 1 to collide with entry 2
		cache.UpdateEntry(100, TimeEntry{Id: 1, Date: testDay, Hours: 5.0, Description: "Second", ProjectId: 100})

		entries := cache.GetEntriesFor(testDay)[100]
		assert.Len(t, entries, 1)
		assert.Equal(t, 1, entries[0].Id)
		assert.Equal(t, 5.0, entries[0].Hours)
		assert.Equal(t, 5.0, cache.TotalHoursOf(testDay))
	})

	t.Run("updating an absent entry adds it", func(t *testing.T) {
		cache := NewCache()

		cache.UpdateEntry(100, TimeEntry{Id: 1, Date: testDay, Hours: 3.0, Description: "new", ProjectId: 100})

		assert.Equal(t, 3.0, cache.TotalHoursOf(testDay))
	})
}

func TestCache_Events(t *testing.T) {
	cache := NewCache()
	event := calendar.Event{Category: calendar.Sick, Duration: calendar.AllDay, Date: testDay}

	t.Run("untouched date has no events", func(t *testing.T) {
		assert.Empty(t, cache.GetEventsFor(testDay))
	})

	t.Run("events are stored without deduplication", func(t *testing.T) {
		cache.AddEvent(event)
		cache.AddEvent(event)

		assert.Len(t, cache.GetEventsFor(testDay), 2)
	})
}

func TestCache_DropRange(t *testing.T) {
	// given
	cache := NewCache()
	inside := testDay
	outside := testDay.AddDate(0, 0, 5)
	cache.AddEntry(100, "Project A", TimeEntry{Id: 1, Date: inside, Hours: 4.0, Description: "dropped", ProjectId: 100})
	cache.AddEvent(calendar.Event{Category: calendar.Sick, Duration: calendar.AllDay, Date: inside})
	cache.AddEntry(100, "Project A", TimeEntry{Id: 2, Date: outside, Hours: 2.0, Description: "kept", ProjectId: 100})

	// when
	cache.DropRange(testDay, testDay.AddDate(0, 0, 2))

	// then
	assert.Equal(t, 0.0, cache.TotalHoursOf(inside))
	assert.Empty(t, cache.GetEventsFor(inside))
	assert.Equal(t, 2.0, cache.TotalHoursOf(outside))
}

func TestCache_PruneOutside(t *testing.T) {
	// given
	cache := NewCache()
	inside := testDay
	before := testDay.AddDate(0, -6, 0)
	after := testDay.AddDate(0, 6, 0)
	cache.AddEntry(100, "Project A", TimeEntry{Id: 1, Date: inside, Hours: 4.0, Description: "keep", ProjectId: 100})
	cache.AddEntry(100, "Project A", TimeEntry{Id: 2, Date: before, Hours: 2.0, Description: "old", ProjectId: 100})
	cache.AddEvent(calendar.Event{Category: calendar.Holiday, Duration: calendar.AllDay, Date: after})

	// when
	pruned := cache.PruneOutside(testDay.AddDate(0, -3, 0), testDay.AddDate(0, 3, 0))

	// then
	assert.Equal(t, 2, pruned)
	assert.Equal(t, 4.0, cache.TotalHoursOf(inside))
	assert.Equal(t, 0.0, cache.TotalHoursOf(before))
	assert.Empty(t, cache.GetEventsFor(after))
}
