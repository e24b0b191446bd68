package dbcheck

import (
	"context"
	"encoding/json"
	"net/http"

	"dbcheck/internal/platform/logging"

	"go.uber.org/zap"
)

// Path is where dbcheckd mounts Handler.
const Path = "/api/test-db"

type DatabaseChecker interface {
	CheckDatabase(ctx context.Context) Result
}

// Handler serves the outcome envelope: 200 for Success, 500 for Failure.
func Handler(c DatabaseChecker, log *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status, body := Envelope(c.CheckDatabase(r.Context()))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			logging.From(r.Context(), log).Warn("write dbcheck response", zap.Error(err))
		}
	})
}
