package troi

import (
	"context"
	"time"

	"github.com/zeitblick/zeitblick/pkg/calendar"
)

// StubClient is an in-memory Client used in tests. Err, when set, is
// returned by every call.
type StubClient struct {
	ClientId     int
	EmployeeId   int
	Events       []calendar.RawEvent
	Positions    []CalculationPosition
	Entries      map[int][]TimeEntry // keyed by calculation position id
	Err          error
	nextId       int
	PostedIds    []int
	DeletedIds   []int
	UpdatedIds   []int
	FetchedSpans [][2]time.Time
}

func NewStubClient() *StubClient {
	return &StubClient{
		ClientId:   7,
		EmployeeId: 123,
		Entries:    map[int][]TimeEntry{},
		nextId:     1000,
	}
}

func (s *StubClient) GetClientId(ctx context.Context) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return s.ClientId, nil
}

func (s *StubClient) GetEmployeeId(ctx context.Context, clientId int) (int, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return s.EmployeeId, nil
}

func (s *StubClient) GetCalendarEvents(ctx context.Context, from, to time.Time) ([]calendar.RawEvent, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.FetchedSpans = append(s.FetchedSpans, [2]time.Time{from, to})
	return s.Events, nil
}

func (s *StubClient) GetCalculationPositions(ctx context.Context, clientId int) ([]CalculationPosition, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Positions, nil
}

func (s *StubClient) GetTimeEntries(ctx context.Context, calculationPositionId int, from, to time.Time) ([]TimeEntry, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Entries[calculationPositionId], nil
}

func (s *StubClient) PostTimeEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error) {
	if s.Err != nil {
		return TimeEntry{}, s.Err
	}
	s.nextId++
	entry.Id = s.nextId
	s.Entries[entry.ProjectId] = append(s.Entries[entry.ProjectId], entry)
	s.PostedIds = append(s.PostedIds, entry.Id)
	return entry, nil
}

func (s *StubClient) UpdateTimeEntry(ctx context.Context, entry TimeEntry) (TimeEntry, error) {
	if s.Err != nil {
		return TimeEntry{}, s.Err
	}
	s.UpdatedIds = append(s.UpdatedIds, entry.Id)
	entries := s.Entries[entry.ProjectId]
	for i, existing := range entries {
		if existing.Id == entry.Id {
			entries[i] = entry
		}
	}
	return entry, nil
}

func (s *StubClient) DeleteTimeEntry(ctx context.Context, id int) error {
	if s.Err != nil {
		return s.Err
	}
	s.DeletedIds = append(s.DeletedIds, id)
	for posId, entries := range s.Entries {
		for i, existing := range entries {
			if existing.Id == id {
				s.Entries[posId] = append(entries[:i], entries[i+1:]...)
				return nil
			}
		}
	}
	return nil
}
