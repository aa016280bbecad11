package timesheet

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/zeitblick/zeitblick/internal/event_bus"
	"github.com/zeitblick/zeitblick/internal/test_utils"
	"github.com/zeitblick/zeitblick/pkg/personio"
	"github.com/zeitblick/zeitblick/pkg/session"
	"github.com/zeitblick/zeitblick/pkg/troi"
)

func setupHandlerTest(t *testing.T) (*Handler, *troi.StubClient) {
	t.Helper()
	troiClient := troi.NewStubClient()
	troiClient.Positions = []troi.CalculationPosition{{Id: 10, Name: "Backend"}}
	service := NewService(context.Background(), troiClient, personio.NewStubClient(),
		session.NewService(session.NewStubRepo()), event_bus.NewEventBus())
	return NewHandler(service), troiClient
}

func TestGetTimesheet(t *testing.T) {
	// given
	handler, troiClient := setupHandlerTest(t)
	troiClient.Entries[10] = []troi.TimeEntry{
		{Id: 1, Date: "2023-06-05", Hours: 4, Description: "API work", ProjectId: 10},
	}
	ctx := test_utils.TestSession(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/timesheet?from=2023-06-05&to=2023-06-06", nil)
	w := httptest.NewRecorder()

	// when
	handler.GetTimesheet(w, req.WithContext(ctx))

	// then
	assert.Equal(t, http.StatusOK, w.Code)
	var days []DayDTO
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&days))
	assert.Len(t, days, 2)
	assert.Equal(t, "2023-06-05", days[0].Date)
	assert.Equal(t, 4.0, days[0].Sum)
	assert.Equal(t, "API work", days[0].Entries[10][0].Description)
}

func TestGetTimesheet_InvalidDateRange(t *testing.T) {
	handler, _ := setupHandlerTest(t)
	req := httptest.NewRequest(http.MethodGet, "/api/timesheet?from=not-a-date&to=2023-06-06", nil)
	w := httptest.NewRecorder()

	handler.GetTimesheet(w, req.WithContext(test_utils.TestSession(context.Background())))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTimesheet_NoSession(t *testing.T) {
	handler, _ := setupHandlerTest(t)
	req := httptest.NewRequest(http.MethodGet, "/api/timesheet?from=2023-06-05&to=2023-06-06", nil)
	w := httptest.NewRecorder()

	handler.GetTimesheet(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateEntry(t *testing.T) {
	// given
	handler, troiClient := setupHandlerTest(t)
	ctx := test_utils.TestSession(context.Background())
	body, err := json.Marshal(TimeEntryDTO{
		Date:        "2023-06-05",
		Hours:       2.5,
		Description: "Standup",
		ProjectId:   10,
	})
	assert.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/timesheet/entry", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	// when
	handler.CreateEntry(w, req.WithContext(ctx))

	// then
	assert.Equal(t, http.StatusCreated, w.Code)
	var created TimeEntryDTO
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	assert.NotZero(t, created.Id)
	assert.Equal(t, []int{created.Id}, troiClient.PostedIds)
}

func TestCreateEntry_InvalidDate(t *testing.T) {
	handler, _ := setupHandlerTest(t)
	body, err := json.Marshal(TimeEntryDTO{Date: "05.06.2023", Hours: 1, ProjectId: 10})
	assert.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/timesheet/entry", bytes.NewBuffer(body))
	w := httptest.NewRecorder()

	handler.CreateEntry(w, req.WithContext(test_utils.TestSession(context.Background())))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateEntry(t *testing.T) {
	// given
	handler, troiClient := setupHandlerTest(t)
	troiClient.Entries[10] = []troi.TimeEntry{
		{Id: 1, Date: "2023-06-05", Hours: 4, Description: "API work", ProjectId: 10},
	}
	ctx := test_utils.TestSession(context.Background())
	body, err := json.Marshal(TimeEntryDTO{
		Date:        "2023-06-05",
		Hours:       6,
		Description: "API work",
		ProjectId:   10,
	})
	assert.NoError(t, err)
	req := httptest.NewRequest(http.MethodPut, "/api/timesheet/entry/1", bytes.NewBuffer(body))
	req = mux.SetURLVars(req.WithContext(ctx), map[string]string{"entryId": "1"})
	w := httptest.NewRecorder()

	// when
	handler.UpdateEntry(w, req)

	// then
	assert.Equal(t, http.StatusOK, w.Code)
	var updated TimeEntryDTO
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&updated))
	assert.Equal(t, 1, updated.Id)
	assert.Equal(t, 6.0, updated.Hours)
	assert.Equal(t, []int{1}, troiClient.UpdatedIds)
}

func TestDeleteEntry(t *testing.T) {
	// given
	handler, troiClient := setupHandlerTest(t)
	troiClient.Entries[10] = []troi.TimeEntry{
		{Id: 1, Date: "2023-06-05", Hours: 4, Description: "API work", ProjectId: 10},
	}
	ctx := test_utils.TestSession(context.Background())
	req := httptest.NewRequest(http.MethodDelete, "/api/timesheet/entry/1?projectId=10&date=2023-06-05", nil)
	req = mux.SetURLVars(req.WithContext(ctx), map[string]string{"entryId": "1"})
	w := httptest.NewRecorder()

	// when
	handler.DeleteEntry(w, req)

	// then
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []int{1}, troiClient.DeletedIds)
}

func TestDeleteEntry_InvalidId(t *testing.T) {
	handler, _ := setupHandlerTest(t)
	req := httptest.NewRequest(http.MethodDelete, "/api/timesheet/entry/abc?projectId=10&date=2023-06-05", nil)
	req = mux.SetURLVars(req, map[string]string{"entryId": "abc"})
	w := httptest.NewRecorder()

	handler.DeleteEntry(w, req.WithContext(test_utils.TestSession(context.Background())))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetPositions(t *testing.T) {
	handler, _ := setupHandlerTest(t)
	req := httptest.NewRequest(http.MethodGet, "/api/positions", nil)
	w := httptest.NewRecorder()

	handler.GetPositions(w, req.WithContext(test_utils.TestSession(context.Background())))

	assert.Equal(t, http.StatusOK, w.Code)
	var positions []troi.CalculationPosition
	assert.NoError(t, json.NewDecoder(w.Body).Decode(&positions))
	assert.Len(t, positions, 1)
	assert.Equal(t, "Backend", positions[0].Name)
}
