package personio

import (
	"context"
	"time"
)

// StubClient is an in-memory Client used in tests.
type StubClient struct {
	Employee    Employee
	Attendances []Attendance
	Err         error
}

func NewStubClient() *StubClient {
	return &StubClient{
		Employee: Employee{
			Id:                  456,
			FirstName:           "Jane",
			LastName:            "Doe",
			Email:               "jane.doe@example.com",
			WorkingHoursPerWeek: 39,
		},
	}
}

func (s *StubClient) GetEmployee(ctx context.Context, employeeId int) (Employee, error) {
	if s.Err != nil {
		return Employee{}, s.Err
	}
	return s.Employee, nil
}

func (s *StubClient) GetAttendances(ctx context.Context, employeeId int, from, to time.Time) ([]Attendance, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Attendances, nil
}
