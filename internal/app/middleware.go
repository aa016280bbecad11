package app

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/zeitblick/zeitblick/internal/config"
	"github.com/zeitblick/zeitblick/pkg/session"
)

// SetupMiddleware wires all HTTP middlewares for the application.
func SetupMiddleware(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Propagate X-Session-Id header into context for downstream services
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sessionIdHeader := req.Header.Get("X-Session-Id")
			ctx := req.Context()

			if sessionIdHeader != "" {
				record, err := deps.SessionService.GetByUid(ctx, sessionIdHeader)
				if err != nil {
					if errors.Is(err, session.ErrNoSession) {
						log.Debugf("session not found: %s", sessionIdHeader)
						http.Error(w, "session not found", http.StatusUnauthorized)
						return
					}
					log.Errorf("failed to get session: %v", err)
					http.Error(w, err.Error(), http.StatusBadRequest)
					return
				}
				ctx = session.WithSession(ctx, record.Session)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
}
