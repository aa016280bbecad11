package test_utils

import (
	"context"
	"time"

	"github.com/zeitblick/zeitblick/pkg/session"
)

// TestSession returns a context carrying a fixed test session.
func TestSession(ctx context.Context) context.Context {
	return session.WithSession(ctx, session.Session{
		Uid:                "11111111-2222-3333-4444-555555555555",
		TroiUsername:       "test.user",
		TroiClientId:       7,
		TroiEmployeeId:     123,
		PersonioEmployeeId: 456,
		CreatedAt:          time.Date(2023, time.June, 1, 8, 0, 0, 0, time.UTC),
	})
}
