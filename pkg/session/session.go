package session

import "time"

// Session identifies one authenticated browser session and carries the
// upstream identities resolved for it. Cookie handling happens in front of
// this service; here a session is only the X-Session-Id header value.
type Session struct {
	Uid                string
	TroiUsername       string
	TroiClientId       int
	TroiEmployeeId     int
	PersonioEmployeeId int
	CreatedAt          time.Time
}
