package app

import (
	"github.com/gorilla/mux"
	"github.com/zeitblick/zeitblick/internal/config"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Session management
	r.HandleFunc("/api/session", deps.SessionHandler.CreateSession).Methods("POST")
	r.HandleFunc("/api/session/current", deps.SessionHandler.CurrentSession).Methods("GET")
	r.HandleFunc("/api/session/current", deps.SessionHandler.DeleteSession).Methods("DELETE")

	// Timesheet
	r.HandleFunc("/api/timesheet", deps.TimesheetHandler.GetTimesheet).Queries("from", "{from}", "to", "{to}").Methods("GET")
	r.HandleFunc("/api/timesheet/entry", deps.TimesheetHandler.CreateEntry).Methods("POST")
	r.HandleFunc("/api/timesheet/entry/{entryId}", deps.TimesheetHandler.UpdateEntry).Methods("PUT")
	r.HandleFunc("/api/timesheet/entry/{entryId}", deps.TimesheetHandler.DeleteEntry).Methods("DELETE")

	// Employee data
	r.HandleFunc("/api/employee", deps.TimesheetHandler.GetEmployee).Methods("GET")
	r.HandleFunc("/api/attendances", deps.TimesheetHandler.GetAttendances).Queries("from", "{from}", "to", "{to}").Methods("GET")

	// Projects
	r.HandleFunc("/api/positions", deps.TimesheetHandler.GetPositions).Methods("GET")
}
