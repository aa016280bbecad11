package timesheet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/zeitblick/zeitblick/internal/event_bus"
	"github.com/zeitblick/zeitblick/internal/utils"
	"github.com/zeitblick/zeitblick/pkg/personio"
	"github.com/zeitblick/zeitblick/pkg/session"
	"github.com/zeitblick/zeitblick/pkg/troi"
	"github.com/zeitblick/zeitblick/pkg/workday"
)

type Service interface {
	GetRange(ctx context.Context, from, to time.Time, revalidate bool) ([]Day, error)
	AddEntry(ctx context.Context, projectId int, entry workday.TimeEntry) (workday.TimeEntry, error)
	UpdateEntry(ctx context.Context, projectId int, entry workday.TimeEntry) (workday.TimeEntry, error)
	DeleteEntry(ctx context.Context, projectId int, entry workday.TimeEntry) error
	Employee(ctx context.Context) (personio.Employee, error)
	Attendances(ctx context.Context, from, to time.Time, revalidate bool) ([]personio.Attendance, error)
	CalculationPositions(ctx context.Context, revalidate bool) ([]troi.CalculationPosition, error)
}

// ServiceImpl aggregates per-day work data for each session and shields the
// upstream APIs behind per-session revalidating caches. Session state is an
// explicit object owned by this service and looked up per request; nothing
// is shared across sessions.
type ServiceImpl struct {
	troiClient     troi.Client
	personioClient personio.Client
	sessions       session.Service
	bus            *event_bus.EventBus
	clock          utils.Clock

	// baseCtx bounds all background refreshes; cancelled on shutdown.
	baseCtx context.Context

	mu     sync.Mutex
	states map[string]*sessionState
}

func NewService(ctx context.Context, troiClient troi.Client, personioClient personio.Client,
	sessions session.Service, bus *event_bus.EventBus) *ServiceImpl {
	s := &ServiceImpl{
		troiClient:     troiClient,
		personioClient: personioClient,
		sessions:       sessions,
		bus:            bus,
		clock:          utils.SystemClock{},
		baseCtx:        ctx,
		states:         make(map[string]*sessionState),
	}
	bus.Subscribe(event_bus.SessionEvictedType, func(e event_bus.Event) error {
		if evicted, ok := e.Data.(event_bus.SessionEvicted); ok {
			s.EvictSession(evicted.SessionUID)
		}
		return nil
	})
	return s
}

func isAuthFailure(err error) bool {
	return errors.Is(err, troi.ErrUnauthenticated) || errors.Is(err, personio.ErrUnauthenticated)
}

// stateFor returns the session's cached state, creating it on first touch.
func (s *ServiceImpl) stateFor(uid string) *sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[uid]
	if !ok {
		onAuthFailure := func() {
			err := s.bus.Publish(event_bus.NewEvent(s.baseCtx, event_bus.SessionEvictedType,
				event_bus.SessionEvicted{SessionUID: uid}))
			if err != nil {
				log.Errorf("failed to publish session eviction for %s: %v", uid, err)
			}
		}
		state = newSessionState(s.baseCtx, uid, isAuthFailure, onAuthFailure)
		s.states[uid] = state
	}
	return state
}

// EvictSession drops all cached state of the session.
func (s *ServiceImpl) EvictSession(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.states[uid]; ok {
		log.Infof("dropping cached state of session %s", uid)
		delete(s.states, uid)
	}
}

// ensureTroiIds resolves and persists the session's Troi client and
// employee ids on first use.
func (s *ServiceImpl) ensureTroiIds(ctx context.Context, sess session.Session) (session.Session, error) {
	if sess.TroiClientId != 0 && sess.TroiEmployeeId != 0 {
		return sess, nil
	}
	clientId, err := s.troiClient.GetClientId(ctx)
	if err != nil {
		return sess, fmt.Errorf("failed to resolve troi client: %w", err)
	}
	employeeId, err := s.troiClient.GetEmployeeId(ctx, clientId)
	if err != nil {
		return sess, fmt.Errorf("failed to resolve troi employee: %w", err)
	}
	sess.TroiClientId = clientId
	sess.TroiEmployeeId = employeeId
	if err := s.sessions.StoreUpstreamIds(ctx, clientId, employeeId, sess.PersonioEmployeeId); err != nil {
		log.Errorf("failed to persist upstream ids for session %s: %v", sess.Uid, err)
	}
	return sess, nil
}

// GetRange returns one Day per calendar day of [from, to]. The underlying
// window of raw events and entries is served stale-while-revalidate: a warm
// window answers from the day cache immediately while a background refresh
// re-fetches it.
func (s *ServiceImpl) GetRange(ctx context.Context, from, to time.Time, revalidate bool) ([]Day, error) {
	sess, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}
	sess, err = s.ensureTroiIds(ctx, sess)
	if err != nil {
		return nil, err
	}
	state := s.stateFor(sess.Uid)

	from = midnightOf(from)
	to = midnightOf(to)
	if to.Before(from) {
		return nil, fmt.Errorf("invalid range: %s is after %s", from.Format(dateLayout), to.Format(dateLayout))
	}

	_, err = state.window.Get(ctx, rangeKey(from, to), s.windowFetcher(state, sess.TroiClientId, from, to), revalidate)
	if err != nil {
		return nil, err
	}

	days := make([]Day, 0, int(to.Sub(from).Hours()/24)+1)
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		days = append(days, Day{
			Date:    day,
			Entries: state.days.GetEntriesFor(day),
			Events:  state.days.GetEventsFor(day),
			Sum:     state.days.TotalHoursOf(day),
		})
	}
	return days, nil
}

// windowFetcher fetches the raw events and per-position entries of one
// window and rebuilds the covered days of the day cache from them. It runs
// synchronously on a cold window and in the background on revalidation, so
// refreshed records reach the day cache both ways.
func (s *ServiceImpl) windowFetcher(state *sessionState, clientId int, from, to time.Time) func(context.Context) (windowSnapshot, error) {
	return func(ctx context.Context) (windowSnapshot, error) {
		positions, err := s.troiClient.GetCalculationPositions(ctx, clientId)
		if err != nil {
			return windowSnapshot{}, err
		}
		events, err := s.troiClient.GetCalendarEvents(ctx, from, to)
		if err != nil {
			return windowSnapshot{}, err
		}
		entries := make(map[int][]troi.TimeEntry, len(positions))
		for _, position := range positions {
			positionEntries, err := s.troiClient.GetTimeEntries(ctx, position.Id, from, to)
			if err != nil {
				return windowSnapshot{}, err
			}
			entries[position.Id] = positionEntries
		}

		snapshot := windowSnapshot{Events: events, Entries: entries}
		if err := state.apply(snapshot, positions, from, to); err != nil {
			return windowSnapshot{}, err
		}
		return snapshot, nil
	}
}

// AddEntry writes the entry through to Troi and mirrors it into the day
// cache. The returned entry carries the id assigned upstream.
func (s *ServiceImpl) AddEntry(ctx context.Context, projectId int, entry workday.TimeEntry) (workday.TimeEntry, error) {
	sess, err := session.Current(ctx)
	if err != nil {
		return workday.TimeEntry{}, err
	}

	wire := entryToWire(entry)
	wire.ProjectId = projectId
	created, err := s.troiClient.PostTimeEntry(ctx, wire)
	if err != nil {
		return workday.TimeEntry{}, err
	}
	stored, err := wireToEntry(created)
	if err != nil {
		return workday.TimeEntry{}, err
	}

	state := s.stateFor(sess.Uid)
	state.days.AddEntry(projectId, s.positionName(ctx, state, projectId), stored)
	return stored, nil
}

// UpdateEntry writes the changed entry through to Troi and replaces it in
// the day cache by id, folding description collisions the way the upstream
// does.
func (s *ServiceImpl) UpdateEntry(ctx context.Context, projectId int, entry workday.TimeEntry) (workday.TimeEntry, error) {
	sess, err := session.Current(ctx)
	if err != nil {
		return workday.TimeEntry{}, err
	}

	wire := entryToWire(entry)
	wire.ProjectId = projectId
	updated, err := s.troiClient.UpdateTimeEntry(ctx, wire)
	if err != nil {
		return workday.TimeEntry{}, err
	}
	stored, err := wireToEntry(updated)
	if err != nil {
		return workday.TimeEntry{}, err
	}

	state := s.stateFor(sess.Uid)
	state.days.UpdateEntry(projectId, stored)
	return stored, nil
}

// DeleteEntry deletes the entry upstream and from the day cache. An entry
// unknown to the cache is a no-op there.
func (s *ServiceImpl) DeleteEntry(ctx context.Context, projectId int, entry workday.TimeEntry) error {
	sess, err := session.Current(ctx)
	if err != nil {
		return err
	}
	if err := s.troiClient.DeleteTimeEntry(ctx, entry.Id); err != nil {
		return err
	}
	state := s.stateFor(sess.Uid)
	state.days.DeleteEntry(projectId, entry)
	return nil
}

// Employee serves the Personio profile of the session's employee,
// stale-while-revalidate.
func (s *ServiceImpl) Employee(ctx context.Context) (personio.Employee, error) {
	sess, err := session.Current(ctx)
	if err != nil {
		return personio.Employee{}, err
	}
	state := s.stateFor(sess.Uid)
	return state.employee.Get(ctx, "employee", func(ctx context.Context) (personio.Employee, error) {
		return s.personioClient.GetEmployee(ctx, sess.PersonioEmployeeId)
	}, true)
}

// Attendances serves the tracked working periods of [from, to],
// stale-while-revalidate per window.
func (s *ServiceImpl) Attendances(ctx context.Context, from, to time.Time, revalidate bool) ([]personio.Attendance, error) {
	sess, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}
	state := s.stateFor(sess.Uid)
	key := "attendances/" + rangeKey(from, to)
	return state.attendances.Get(ctx, key, func(ctx context.Context) ([]personio.Attendance, error) {
		return s.personioClient.GetAttendances(ctx, sess.PersonioEmployeeId, from, to)
	}, revalidate)
}

// CalculationPositions serves the bookable project positions,
// stale-while-revalidate.
func (s *ServiceImpl) CalculationPositions(ctx context.Context, revalidate bool) ([]troi.CalculationPosition, error) {
	sess, err := session.Current(ctx)
	if err != nil {
		return nil, err
	}
	sess, err = s.ensureTroiIds(ctx, sess)
	if err != nil {
		return nil, err
	}
	state := s.stateFor(sess.Uid)
	return state.positions.Get(ctx, "positions", func(ctx context.Context) ([]troi.CalculationPosition, error) {
		return s.troiClient.GetCalculationPositions(ctx, sess.TroiClientId)
	}, revalidate)
}

// positionName resolves a project name from the cached positions,
// best-effort.
func (s *ServiceImpl) positionName(ctx context.Context, state *sessionState, projectId int) string {
	positions, ok := state.positions.Peek("positions")
	if !ok {
		var err error
		positions, err = s.CalculationPositions(ctx, false)
		if err != nil {
			log.Debugf("could not resolve name of position %d: %v", projectId, err)
			return ""
		}
	}
	for _, position := range positions {
		if position.Id == projectId {
			return position.Name
		}
	}
	return ""
}

// PruneAll drops day buckets outside the sliding window of +-windowDays
// around today, for every session. Query results inside the window are
// unaffected.
func (s *ServiceImpl) PruneAll(windowDays int) {
	today := midnightOf(s.clock.Now())
	minDate := today.AddDate(0, 0, -windowDays)
	maxDate := today.AddDate(0, 0, windowDays)

	s.mu.Lock()
	states := make([]*sessionState, 0, len(s.states))
	for _, state := range s.states {
		states = append(states, state)
	}
	s.mu.Unlock()

	pruned := 0
	for _, state := range states {
		pruned += state.prune(minDate, maxDate)
	}
	if pruned > 0 {
		log.Infof("pruned %d day buckets outside %s..%s", pruned,
			minDate.Format(dateLayout), maxDate.Format(dateLayout))
	}
}
