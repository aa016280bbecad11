package session

import (
	"context"
)

type StubRepo struct {
	data map[string]Record
}

func NewStubRepo() *StubRepo {
	return &StubRepo{data: map[string]Record{}}
}

func (s *StubRepo) Store(ctx context.Context, record Record) error {
	s.data[record.Uid] = record
	return nil
}

func (s *StubRepo) GetByUid(ctx context.Context, uid string) (Record, error) {
	record, ok := s.data[uid]
	if !ok {
		return Record{}, ErrNoSession
	}
	return record, nil
}

func (s *StubRepo) UpdateIds(ctx context.Context, uid string, clientId, employeeId, personioEmployeeId int) error {
	record, ok := s.data[uid]
	if !ok {
		return ErrNoSession
	}
	record.TroiClientId = clientId
	record.TroiEmployeeId = employeeId
	record.PersonioEmployeeId = personioEmployeeId
	s.data[uid] = record
	return nil
}

func (s *StubRepo) Delete(ctx context.Context, uid string) error {
	delete(s.data, uid)
	return nil
}
