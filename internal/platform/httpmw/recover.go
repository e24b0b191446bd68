package httpmw

import (
	"net/http"
	"runtime/debug"

	"dbcheck/internal/platform/logging"

	"go.uber.org/zap"
)

func Recover(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			logging.From(r.Context(), log).Error("panic recovered",
				zap.Any("panic", v),
				zap.ByteString("stack", debug.Stack()),
			)
			writeError(w, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
