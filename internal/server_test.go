package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/mkovacevic/shopfront/internal/config"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServerRouterForTests(t *testing.T) *mux.Router {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	server, err := NewServer(ctx, NewServerParams{
		Config: &config.Config{
			Environment:                 "test",
			BcryptCost:                  4,
			SessionTTLMinutes:           60,
			LoginRateLimitWindowMinutes: 15,
			LoginRateLimitMaxAttempts:   3,
		},
		SessionSecret: "test-session-secret",
		AdminPassword: "test-admin-pass",
	})
	require.NoError(t, err)

	return server.routerSetup()
}

func serverLoginRequest(username, password string) *http.Request {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestServer_loginFlow(t *testing.T) {
	router := setupServerRouterForTests(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, serverLoginRequest("alice_wonder", "R@bbitH0le#1"))
	require.Equal(t, http.StatusFound, rr.Code)
	require.Equal(t, "/", rr.Header().Get("Location"))

	sessionCookies := rr.Result().Cookies()
	require.Len(t, sessionCookies, 1)
	sessionCookie := sessionCookies[0]
	assert.True(t, sessionCookie.HttpOnly)

	rr = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/profile", nil)
	req.AddCookie(sessionCookie)
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "alice_wonder")
	assert.Contains(t, rr.Body.String(), "alice@example.com")
}

func TestServer_invalidLogin(t *testing.T) {
	router := setupServerRouterForTests(t)

	rrUnknownUser := httptest.NewRecorder()
	router.ServeHTTP(rrUnknownUser, serverLoginRequest("no_such_user", "R@bbitH0le#1"))

	rrWrongPass := httptest.NewRecorder()
	router.ServeHTTP(rrWrongPass, serverLoginRequest("alice_wonder", "wrong-password"))

	for _, rr := range []*httptest.ResponseRecorder{rrUnknownUser, rrWrongPass} {
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Invalid credentials")
		assert.Empty(t, rr.Result().Cookies())
	}

	// same status, same body, no hint which part of the credentials was wrong
	assert.Equal(t, rrUnknownUser.Body.String(), rrWrongPass.Body.String())
}

func TestServer_loginThrottled(t *testing.T) {
	router := setupServerRouterForTests(t)

	// burn through the window budget with bad attempts
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, serverLoginRequest("admin", "guess-attempt"))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	// even the right password is throttled now, before the credential check
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, serverLoginRequest("admin", "test-admin-pass"))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Contains(t, rr.Body.String(), "Too many login attempts")
	assert.Empty(t, rr.Result().Cookies())
}

func TestServer_logout(t *testing.T) {
	router := setupServerRouterForTests(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, serverLoginRequest("john_doe", "BlueSky$99!"))
	require.Equal(t, http.StatusFound, rr.Code)
	sessionCookie := rr.Result().Cookies()[0]

	rr = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/logout", nil)
	req.AddCookie(sessionCookie)
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusFound, rr.Code)
	require.Equal(t, "/login", rr.Header().Get("Location"))

	// the old cookie no longer opens the gate
	rr = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/profile", nil)
	req.AddCookie(sessionCookie)
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestServer_unknownPath(t *testing.T) {
	router := setupServerRouterForTests(t)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest("GET", "/no-such-page", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
