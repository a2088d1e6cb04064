// internal/recorder/middleware.go
package recorder

import (
	"log/slog"
	"net/http"

	"go-steely/internal/logging"
)

// Middleware records every request with recs before passing it on.
// Recording failures are logged at debug level and never reach the client.
func Middleware(log *slog.Logger, recs ...Recorder) func(http.Handler) http.Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, err := Capture(r)
			if err != nil {
				log.Debug("capture request", "path", r.URL.Path, "error", err)
			}
			for _, rec := range recs {
				if err := rec.RecordRequest(req); err != nil {
					log.Debug("record request", "path", req.Path, "error", err)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
