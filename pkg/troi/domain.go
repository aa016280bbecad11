package troi

// CalculationPosition is a bookable project position.
type CalculationPosition struct {
	Id   int    `json:"id"`
	Name string `json:"name"`
}

// TimeEntry is the wire shape of a project time posting. Date uses the
// "YYYY-MM-DD" format.
type TimeEntry struct {
	Id          int     `json:"id"`
	Date        string  `json:"date"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description"`
	ProjectId   int     `json:"projectId"`
}
