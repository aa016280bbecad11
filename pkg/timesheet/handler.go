package timesheet

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/zeitblick/zeitblick/internal/rest"
	"github.com/zeitblick/zeitblick/pkg/calendar"
	"github.com/zeitblick/zeitblick/pkg/personio"
	"github.com/zeitblick/zeitblick/pkg/session"
	"github.com/zeitblick/zeitblick/pkg/troi"
	"github.com/zeitblick/zeitblick/pkg/workday"
)

type TimeEntryDTO struct {
	Id          int     `json:"id"`
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description"`
	ProjectId   int     `json:"projectId"`
}

type EventDTO struct {
	Category string `json:"category"`
	Duration string `json:"duration"`
	Date     string `json:"date"`
}

type DayDTO struct {
	Date    string                 `json:"date"`
	Entries map[int][]TimeEntryDTO `json:"entries"`
	Events  []EventDTO             `json:"events"`
	Sum     float64                `json:"sum"`
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoSession):
		http.Error(w, "No session", http.StatusUnauthorized)
	case errors.Is(err, troi.ErrUnauthenticated), errors.Is(err, personio.ErrUnauthenticated):
		http.Error(w, "Upstream rejected the session credentials", http.StatusUnauthorized)
	case errors.Is(err, calendar.ErrInvalidTimestamp), errors.Is(err, ErrInvalidDate):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(dateLayout, r.URL.Query().Get("from"), time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.ParseInLocation(dateLayout, r.URL.Query().Get("to"), time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func (h *Handler) badRequest(w http.ResponseWriter, message, details string) {
	w.WriteHeader(http.StatusBadRequest)
	encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
		Error:   message,
		Details: details,
	})
	if encodeErr != nil {
		http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
	}
}

// GetTimesheet serves the per-day aggregation of [from, to]. A warm window
// answers from the cache immediately and refreshes in the background.
func (h *Handler) GetTimesheet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	from, to, err := parseDateRange(r)
	if err != nil {
		h.badRequest(w, "Invalid date range", "'from' and 'to' must be in YYYY-MM-DD format")
		return
	}

	days, err := h.service.GetRange(r.Context(), from, to, true)
	if err != nil {
		h.writeError(w, err)
		return
	}

	dtos := make([]DayDTO, 0, len(days))
	for _, day := range days {
		dtos = append(dtos, dayToDTO(day))
	}
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Creating new time entry")

	var dto TimeEntryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.badRequest(w, "Invalid request body format", "")
		return
	}
	entry, err := dtoToEntry(dto)
	if err != nil {
		h.badRequest(w, "Invalid entry date", "'date' must be in YYYY-MM-DD format")
		return
	}

	created, err := h.service.AddEntry(r.Context(), dto.ProjectId, entry)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(entryToDTO(created)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	log.Trace("Updating time entry")

	entryId, err := strconv.Atoi(mux.Vars(r)["entryId"])
	if err != nil {
		h.badRequest(w, "Invalid entry id", "")
		return
	}
	var dto TimeEntryDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.badRequest(w, "Invalid request body format", "")
		return
	}
	dto.Id = entryId
	entry, err := dtoToEntry(dto)
	if err != nil {
		h.badRequest(w, "Invalid entry date", "'date' must be in YYYY-MM-DD format")
		return
	}

	updated, err := h.service.UpdateEntry(r.Context(), dto.ProjectId, entry)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := json.NewEncoder(w).Encode(entryToDTO(updated)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	log.Trace("Deleting time entry")

	entryId, err := strconv.Atoi(mux.Vars(r)["entryId"])
	if err != nil {
		h.badRequest(w, "Invalid entry id", "")
		return
	}
	projectId, err := strconv.Atoi(r.URL.Query().Get("projectId"))
	if err != nil {
		h.badRequest(w, "Invalid projectId", "")
		return
	}
	date, err := time.ParseInLocation(dateLayout, r.URL.Query().Get("date"), time.UTC)
	if err != nil {
		h.badRequest(w, "Invalid date", "'date' must be in YYYY-MM-DD format")
		return
	}

	err = h.service.DeleteEntry(r.Context(), projectId, workday.TimeEntry{Id: entryId, Date: date, ProjectId: projectId})
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	employee, err := h.service.Employee(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := json.NewEncoder(w).Encode(employee); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) GetAttendances(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	from, to, err := parseDateRange(r)
	if err != nil {
		h.badRequest(w, "Invalid date range", "'from' and 'to' must be in YYYY-MM-DD format")
		return
	}

	attendances, err := h.service.Attendances(r.Context(), from, to, true)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := json.NewEncoder(w).Encode(attendances); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (h *Handler) GetPositions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	positions, err := h.service.CalculationPositions(r.Context(), true)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := json.NewEncoder(w).Encode(positions); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}

func dayToDTO(day Day) DayDTO {
	entries := make(map[int][]TimeEntryDTO, len(day.Entries))
	for projectId, projectEntries := range day.Entries {
		dtos := make([]TimeEntryDTO, 0, len(projectEntries))
		for _, entry := range projectEntries {
			dtos = append(dtos, entryToDTO(entry))
		}
		entries[projectId] = dtos
	}
	events := make([]EventDTO, 0, len(day.Events))
	for _, event := range day.Events {
		events = append(events, EventDTO{
			Category: string(event.Category),
			Duration: string(event.Duration),
			Date:     event.Date.Format(dateLayout),
		})
	}
	return DayDTO{
		Date:    day.Date.Format(dateLayout),
		Entries: entries,
		Events:  events,
		Sum:     day.Sum,
	}
}

func entryToDTO(entry workday.TimeEntry) TimeEntryDTO {
	return TimeEntryDTO{
		Id:          entry.Id,
		Date:        entry.Date.Format(dateLayout),
		Hours:       entry.Hours,
		Description: entry.Description,
		ProjectId:   entry.ProjectId,
	}
}

func dtoToEntry(dto TimeEntryDTO) (workday.TimeEntry, error) {
	date, err := time.ParseInLocation(dateLayout, dto.Date, time.UTC)
	if err != nil {
		return workday.TimeEntry{}, err
	}
	return workday.TimeEntry{
		Id:          dto.Id,
		Date:        date,
		Hours:       dto.Hours,
		Description: dto.Description,
		ProjectId:   dto.ProjectId,
	}, nil
}
