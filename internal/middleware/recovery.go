package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/mkovacevic/shopfront/internal/telemetry/metrics"
	"github.com/mkovacevic/shopfront/pkg"

	log "github.com/sirupsen/logrus"
)

// PanicRecovery turns a handler panic into a logged 500 instead of a
// dropped connection. Runs outermost in the middleware chain.
func PanicRecovery(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}

				log.Errorf("http: panic serving %s: %v\n%s", r.URL.Path, rec, debug.Stack())
				if metricsManager != nil {
					metricsManager.CounterHandleRequestPanic.Inc()
				}

				// no panic detail ever reaches the client
				pkg.WriteResponse(
					w,
					pkg.ContentType.Text,
					"internal server error",
					http.StatusInternalServerError,
				)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
