package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/mkovacevic/shopfront/internal/auth"
	"github.com/mkovacevic/shopfront/internal/auth/ratelimit"
	"github.com/mkovacevic/shopfront/internal/config"
	"github.com/mkovacevic/shopfront/internal/middleware"
	"github.com/mkovacevic/shopfront/internal/shop"
	"github.com/mkovacevic/shopfront/internal/store"
	"github.com/mkovacevic/shopfront/internal/telemetry/metrics"
	"github.com/mkovacevic/shopfront/internal/views"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config    *config.Config
	dataStore *store.Store

	redisClient    *redis.Client
	sessionStore   auth.SessionStore
	memorySessions *auth.MemorySessionStore // nil when redis backs the sessions
	redisSessions  *auth.RedisSessionStore  // nil when sessions are in-memory
	authService    *auth.Service
	cookies        *auth.CookieCodec
	loginLimiter   ratelimit.Limiter
	viewsRenderer  *views.Renderer

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
}

type NewServerParams struct {
	Config        *config.Config
	VersionInfo   string
	SessionSecret string
	AdminPassword string
	RedisPassword string
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("shopfront", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	sessionTTL := auth.DefaultTTL
	if cfg.SessionTTLMinutes > 0 {
		sessionTTL = time.Duration(cfg.SessionTTLMinutes) * time.Minute
	}

	rateLimitWindow := ratelimit.DefaultWindow
	if cfg.LoginRateLimitWindowMinutes > 0 {
		rateLimitWindow = time.Duration(cfg.LoginRateLimitWindowMinutes) * time.Minute
	}
	rateLimitMaxAttempts := ratelimit.DefaultMaxAttempts
	if cfg.LoginRateLimitMaxAttempts > 0 {
		rateLimitMaxAttempts = cfg.LoginRateLimitMaxAttempts
	}

	s := &Server{
		config:         cfg,
		versionInfo:    params.VersionInfo,
		cookies:        auth.NewCookieCodec(params.SessionSecret, sessionTTL),
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
	}

	if cfg.RedisEnabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: params.RedisPassword,
			DB:       0, // use default DB
		})

		rdbStatus := rdb.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugf("redis ping: %s", rdbStatus.Val())
		}

		s.redisClient = rdb
		s.redisSessions = auth.NewRedisSessionStore(sessionTTL, rdb)
		s.sessionStore = s.redisSessions
		s.loginLimiter = ratelimit.NewRedisWindowLimiter(rateLimitWindow, rateLimitMaxAttempts, rdb)
	} else {
		s.memorySessions = auth.NewMemorySessionStore(sessionTTL)
		s.sessionStore = s.memorySessions
		s.loginLimiter = ratelimit.NewWindowLimiter(rateLimitWindow, rateLimitMaxAttempts)
	}

	go s.sessionCleanupLoop(ctx, sessionTTL)

	s.dataStore = store.New()
	if err := s.dataStore.Seed(ctx, store.SeedParams{
		AdminPassword: params.AdminPassword,
		BcryptCost:    cfg.BcryptCost,
	}); err != nil {
		return nil, fmt.Errorf("seed store: %w", err)
	}

	s.authService = auth.NewService(s.dataStore, s.sessionStore, cfg.BcryptCost)

	viewsRenderer, err := views.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("new views renderer: %w", err)
	}
	s.viewsRenderer = viewsRenderer

	return s, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()

	authHandler := auth.NewHandler(
		s.authService,
		s.cookies,
		s.viewsRenderer,
		s.metricsManager,
	)
	authHandler.SetupRoutes(r, middleware.RateLimit(s.loginLimiter, s.metricsManager))

	shopHandler := shop.NewHandler(
		s.dataStore,
		s.authService,
		s.cookies,
		s.viewsRenderer,
		s.metricsManager,
	)
	shopHandler.SetupRoutes(r, middleware.SessionGate(s.authService, s.cookies))

	r.PathPrefix("/static/").Handler(
		http.StripPrefix("/static/", http.FileServer(http.Dir(s.config.StaticFilesPath))),
	).Methods("GET").Name("static")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

// sessionCleanupLoop periodically sweeps expired sessions. Expiry is
// already enforced lazily on every read; this only reclaims memory and
// keeps the live sessions gauge honest.
func (s *Server) sessionCleanupLoop(ctx context.Context, sessionTTL time.Duration) {
	ticker := time.NewTicker(sessionTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.memorySessions != nil {
				s.memorySessions.ScanAndClean(ctx)
				s.metricsManager.GaugeSessionsLive.Set(float64(s.memorySessions.Count()))
			}
			if s.redisSessions != nil {
				s.redisSessions.ScanAndClean(ctx)
			}
		}
	}
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
