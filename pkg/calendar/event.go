package calendar

import "time"

// RawEvent is the wire shape of a calendar event as delivered by Troi.
// Timestamps are naive local time without a zone offset.
type RawEvent struct {
	Id        string `json:"id"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Subject   string `json:"subject"`
	Type      string `json:"type"`
}

type Category string

const (
	Holiday             Category = "holiday"
	Training            Category = "training"
	PaidVacation        Category = "paidVacation"
	UnpaidVacation      Category = "unpaidVacation"
	CompensatoryTimeOff Category = "compensatoryTimeOff"
	Sick                Category = "sick"
	Unknown             Category = "unknown"
)

type Duration string

const (
	HalfDay Duration = "halfDay"
	AllDay  Duration = "allDay"
)

// Event is a single-day, classified derivative of a possibly multi-day
// raw event. Date is a timezone-independent midnight marker (UTC).
type Event struct {
	Category Category
	Duration Duration
	Date     time.Time
}
