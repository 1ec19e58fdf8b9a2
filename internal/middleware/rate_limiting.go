package middleware

import (
	"net"
	"net/http"

	"github.com/mkovacevic/shopfront/internal/auth/ratelimit"
	"github.com/mkovacevic/shopfront/internal/telemetry/metrics"
	"github.com/mkovacevic/shopfront/pkg"

	log "github.com/sirupsen/logrus"
)

const tooManyAttemptsMessage = "Too many login attempts, please try again later."

// RateLimit gates the wrapped handler per client address. It sits in
// front of the credential check, so a throttled attempt never reaches
// the bcrypt comparison. Limiter infrastructure errors fail open: this
// is abuse mitigation, not a security boundary of record.
func RateLimit(limiter ratelimit.Limiter, metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey, err := pkg.ReadUserIP(r)
			if err != nil {
				// garbage proxy headers must not hand out fresh windows:
				// key on the connection host, never host:port
				if host, _, splitErr := net.SplitHostPort(r.RemoteAddr); splitErr == nil {
					clientKey = host
				} else {
					clientKey = r.RemoteAddr
				}
			}

			res, err := limiter.Allow(r.Context(), clientKey)
			if err != nil {
				log.Errorf("rate limiter, allow %s: %s", clientKey, err)
				next.ServeHTTP(w, r)
				return
			}

			if res.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			log.Tracef("rate limited login attempt from %s", clientKey)
			if metricsManager != nil {
				metricsManager.CounterRateLimitedRequests.Inc()
			}

			pkg.WriteResponse(
				w,
				pkg.ContentType.Text,
				tooManyAttemptsMessage,
				http.StatusTooManyRequests,
			)
		})
	}
}
