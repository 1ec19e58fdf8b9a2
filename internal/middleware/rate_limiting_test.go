package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mkovacevic/shopfront/internal/auth/ratelimit"
	"github.com/mkovacevic/shopfront/internal/telemetry/metrics"

	"github.com/stretchr/testify/assert"
)

type erroringLimiter struct{}

func (l *erroringLimiter) Allow(_ context.Context, _ string) (*ratelimit.Result, error) {
	return nil, errors.New("redis gone")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewWindowLimiter(time.Minute, 2)
	limited := RateLimit(limiter, metrics.NewTestManager())(okHandler())

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/login", nil)
		req.RemoteAddr = "81.205.14.71:33456"
		limited.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	}

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "81.205.14.71:33456"
	limited.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, tooManyAttemptsMessage, rr.Body.String())

	// another client is not affected
	rr = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "92.16.4.8:1234"
	limited.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimit_garbageProxyHeaderStillThrottles(t *testing.T) {
	limiter := ratelimit.NewWindowLimiter(15*time.Minute, 5)
	limited := RateLimit(limiter, metrics.NewTestManager())(okHandler())

	// a bogus X-Real-Ip plus a new source port per attempt must still
	// count against the one underlying host
	var throttled int
	for i := 0; i < 20; i++ {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/login", nil)
		req.Header.Set("X-Real-Ip", "not-an-ip")
		req.RemoteAddr = fmt.Sprintf("81.205.14.71:%d", 40000+i)
		limited.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			throttled++
		}
	}

	assert.Equal(t, 15, throttled)
}

func TestRateLimit_failsOpenOnLimiterError(t *testing.T) {
	limited := RateLimit(&erroringLimiter{}, metrics.NewTestManager())(okHandler())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/login", nil)
	req.RemoteAddr = "81.205.14.71:33456"

	limited.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}
