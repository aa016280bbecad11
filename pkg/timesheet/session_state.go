package timesheet

import (
	"context"
	"time"

	"github.com/zeitblick/zeitblick/pkg/cache"
	"github.com/zeitblick/zeitblick/pkg/calendar"
	"github.com/zeitblick/zeitblick/pkg/personio"
	"github.com/zeitblick/zeitblick/pkg/troi"
	"github.com/zeitblick/zeitblick/pkg/workday"
)

// windowSnapshot is the raw upstream data of one fetch window, kept as the
// revalidating cache value. Every fetch, cold or background, folds its
// snapshot into the day cache through apply.
type windowSnapshot struct {
	Events  []calendar.RawEvent
	Entries map[int][]troi.TimeEntry
}

// sessionState is all cached state of one session: the day-bucketed
// aggregate plus the revalidating stores fronting each upstream source.
// It is owned by the timesheet service and dropped as a whole on eviction.
type sessionState struct {
	uid  string
	days *workday.Cache

	window      *cache.Store[windowSnapshot]
	positions   *cache.Store[[]troi.CalculationPosition]
	employee    *cache.Store[personio.Employee]
	attendances *cache.Store[[]personio.Attendance]
}

func newSessionState(ctx context.Context, uid string, isAuthFailure func(error) bool, onAuthFailure func()) *sessionState {
	return &sessionState{
		uid:         uid,
		days:        workday.NewCache(),
		window:      cache.NewStore[windowSnapshot](ctx, isAuthFailure, onAuthFailure),
		positions:   cache.NewStore[[]troi.CalculationPosition](ctx, isAuthFailure, onAuthFailure),
		employee:    cache.NewStore[personio.Employee](ctx, isAuthFailure, onAuthFailure),
		attendances: cache.NewStore[[]personio.Attendance](ctx, isAuthFailure, onAuthFailure),
	}
}

// pendingEntry is a normalized time entry waiting to be folded into the day
// cache together with its calculation position.
type pendingEntry struct {
	positionId int
	entry      workday.TimeEntry
}

// apply rebuilds the day records of [from, to] from a fresh snapshot. The
// covered days are dropped and refilled, so a background refresh of an
// already fetched window replaces stale records instead of duplicating or
// skipping them, and records deleted upstream disappear from the cache.
//
// The whole snapshot is normalized and validated before the cache is
// touched: a malformed record fails the apply and leaves the day cache
// exactly as it was. Events with an unrecognized category are dropped.
func (st *sessionState) apply(snapshot windowSnapshot, positions []troi.CalculationPosition, from, to time.Time) error {
	names := make(map[int]string, len(positions))
	for _, position := range positions {
		names[position.Id] = position.Name
	}

	var events []calendar.Event
	for _, raw := range snapshot.Events {
		normalized, err := calendar.Normalize(raw, from, to)
		if err != nil {
			return err
		}
		for _, event := range normalized {
			if event.Category == calendar.Unknown {
				continue
			}
			events = append(events, event)
		}
	}

	var entries []pendingEntry
	for positionId, wires := range snapshot.Entries {
		for _, wire := range wires {
			entry, err := wireToEntry(wire)
			if err != nil {
				return err
			}
			if entry.Date.Before(from) || entry.Date.After(to) {
				continue
			}
			entries = append(entries, pendingEntry{positionId: positionId, entry: entry})
		}
	}

	st.days.DropRange(from, to)
	for _, event := range events {
		st.days.AddEvent(event)
	}
	for _, pending := range entries {
		st.days.AddEntry(pending.positionId, names[pending.positionId], pending.entry)
	}
	return nil
}

// prune drops day records outside [minDate, maxDate] and forgets the cached
// window snapshots, so a revisit of a pruned day fetches again instead of
// serving a stale hit that skips the apply.
func (st *sessionState) prune(minDate, maxDate time.Time) int {
	pruned := st.days.PruneOutside(minDate, maxDate)
	st.window.Invalidate()
	st.attendances.Invalidate()
	return pruned
}
