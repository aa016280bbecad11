package session

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

type contextKey string

const SessionKey contextKey = "session"

var ErrNoSession = errors.New("session not found")

// CurrentUid retrieves the current session's uid from the context. Returns
// ErrNoSession if no session is present.
func CurrentUid(ctx context.Context) (string, error) {
	s, ok := ctx.Value(SessionKey).(Session)
	if !ok {
		log.Trace("session not found in context")
		return "", ErrNoSession
	}
	return s.Uid, nil
}

func Current(ctx context.Context) (Session, error) {
	s, ok := ctx.Value(SessionKey).(Session)
	if !ok {
		log.Trace("session not found in context")
		return Session{}, ErrNoSession
	}
	return s, nil
}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}
