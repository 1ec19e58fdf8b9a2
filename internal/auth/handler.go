package auth

import (
	"errors"
	"net/http"

	"github.com/mkovacevic/shopfront/internal/telemetry/metrics"
	"github.com/mkovacevic/shopfront/internal/views"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// invalidCredentialsMessage is the one message for every failed login,
// no matter whether the username or the password was wrong.
const invalidCredentialsMessage = "Invalid credentials"

type loginPageData struct {
	Error string
}

type Handler struct {
	service        *Service
	cookies        *CookieCodec
	views          *views.Renderer
	metricsManager *metrics.Manager
}

func NewHandler(
	service *Service,
	cookies *CookieCodec,
	viewsRenderer *views.Renderer,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		service:        service,
		cookies:        cookies,
		views:          viewsRenderer,
		metricsManager: metricsManager,
	}
}

// SetupRoutes registers the login and logout routes. The rate limit
// middleware wraps only the login POST, in front of the credential check.
func (handler *Handler) SetupRoutes(router *mux.Router, loginRateLimit mux.MiddlewareFunc) {
	router.HandleFunc("/login", handler.handleLoginPage).Methods("GET").Name("login-page")
	router.Handle(
		"/login",
		loginRateLimit(http.HandlerFunc(handler.handleLogin)),
	).Methods("POST").Name("login")
	router.HandleFunc("/logout", handler.handleLogout).Methods("GET").Name("logout")
}

func (handler *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	handler.renderLogin(w, http.StatusOK, "")
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		log.Errorf("login failed, parse form error: %s", err)
		http.Error(w, "parse form error", http.StatusInternalServerError)
		return
	}

	username := r.Form.Get("username")
	password := r.Form.Get("password")

	token, err := handler.service.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			handler.metricsManager.CounterLoginFailed.Inc()
			handler.renderLogin(w, http.StatusOK, invalidCredentialsMessage)
			return
		}

		// internal trouble: fail closed, tell the client nothing
		log.Errorf("login failed for user %s: %s", username, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterLoginSuccess.Inc()
	handler.cookies.Set(w, token)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token, ok := handler.cookies.Read(r); ok {
		if err := handler.service.Logout(r.Context(), token); err != nil {
			log.Errorf("logout, destroy session: %s", err)
		}
	}

	handler.cookies.Clear(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (handler *Handler) renderLogin(w http.ResponseWriter, statusCode int, errorMessage string) {
	err := handler.views.Render(w, "login.html", statusCode, loginPageData{
		Error: errorMessage,
	})
	if err != nil {
		log.Errorf("render login page: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
