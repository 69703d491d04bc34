package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"meetroom/config"
	_ "meetroom/docs"
	"meetroom/shared/constant"
	"meetroom/shared/metrics"
	"meetroom/transport/http/middleware"
	"meetroom/transport/http/response"
	"meetroom/transport/http/router"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	httpSwagger "github.com/swaggo/http-swagger"
)

type ServerState int32

const (
	ServerStateReady ServerState = iota + 1
	ServerStateInGracePeriod
	ServerStateInCleanupPeriod
)

const (
	healthPath        = "/health"
	swaggerPath       = "/swagger/*"
	readHeaderTimeout = 10 * time.Second
	probeTimeout      = 2 * time.Second
)

type HTTP struct {
	Config   *config.Config
	Router   router.Router
	App      middleware.AppMiddleware
	AuthRole middleware.AuthRole
	Metrics  *metrics.Metrics
	Probes   Probes

	state atomic.Int32
	mux   *chi.Mux
	once  sync.Once
}

func New(
	cfg *config.Config,
	r router.Router,
	app middleware.AppMiddleware,
	authRole middleware.AuthRole,
	m *metrics.Metrics,
	probes Probes,
) *HTTP {
	return &HTTP{
		Config:   cfg,
		Router:   r,
		App:      app,
		AuthRole: authRole,
		Metrics:  m,
		Probes:   probes,
	}
}

func (h *HTTP) State() ServerState {
	return ServerState(h.state.Load())
}

func (h *HTTP) Serve() {
	h.setup()

	server := &http.Server{
		Addr:              net.JoinHostPort(h.Config.Server.Host, h.Config.Server.Port),
		Handler:           h.mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	h.setupGracefulShutdown(server)

	log.Info().Str("port", h.Config.Server.Port).Msg("Starting up HTTP server.")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Failed to start HTTP server")
	}
}

// ServeHTTP lets the service run behind a serverless adapter without a listener of its own.
func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.setup()
	h.mux.ServeHTTP(w, r)
}

func (h *HTTP) setup() {
	h.once.Do(func() {
		h.setupRoutes()
		h.state.Store(int32(ServerStateReady))
	})
}

func (h *HTTP) setupRoutes() {
	mux := chi.NewRouter()

	mux.Use(chiMiddleware.RealIP)
	mux.Use(chiMiddleware.RequestID)
	mux.Use(chiMiddleware.Recoverer)
	mux.Use(h.App.Tracing)
	mux.Use(h.App.Metrics)

	if cfg := h.Config.App.CORS; cfg.Enable {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   cfg.AllowedMethods,
			AllowedHeaders:   cfg.AllowedHeaders,
			AllowCredentials: cfg.AllowCredentials,
			MaxAge:           cfg.MaxAgeSeconds,
		}))
	}

	mux.Get(healthPath, h.health)

	if h.Metrics != nil {
		mux.Handle(h.Config.Metrics.Path, h.Metrics.Handler())
	}

	if h.Config.Server.Env == constant.ServerEnvDevelopment {
		mux.Get(swaggerPath, httpSwagger.WrapHandler)
	}

	mux.Group(func(api chi.Router) {
		api.Use(h.App.RateLimit())
		api.Use(h.AuthRole.APIKey)
		api.Use(h.AuthRole.Auth)
		api.Use(h.AuthRole.RBAC)

		h.Router.SetupRoutes(api)
	})

	h.mux = mux
}

func (h *HTTP) health(w http.ResponseWriter, r *http.Request) {
	if h.State() != ServerStateReady {
		response.WithPreparingShutdown(w)

		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	if err := h.Probes.Check(ctx); err != nil {
		log.Error().Err(err).Msg("health check failed")
		response.WithUnhealthy(w)

		return
	}

	response.WithMessage(w, http.StatusOK, "OK")
}

func (h *HTTP) setupGracefulShutdown(server *http.Server) {
	serverStateCh := make(chan os.Signal, 1)

	signal.Notify(serverStateCh, os.Interrupt, syscall.SIGTERM)

	go h.respondToSigterm(serverStateCh, server)
}

// respondToSigterm keeps serving through the grace period so load balancers see
// the failing health check before connections are drained.
func (h *HTTP) respondToSigterm(done chan os.Signal, server *http.Server) {
	<-done

	shutdownConfig := h.Config.Server.Shutdown

	if h.Config.Server.Env == constant.ServerEnvDevelopment {
		log.Warn().Msg("Received SIGTERM. Shutting down now.")

		_ = server.Close()

		return
	}

	log.Info().Msg("Received SIGTERM.")
	log.Info().Int64("seconds", shutdownConfig.GracePeriodSeconds).Msg("Entering grace period.")

	h.state.Store(int32(ServerStateInGracePeriod))

	time.Sleep(time.Duration(shutdownConfig.GracePeriodSeconds) * time.Second)

	log.Info().Int64("seconds", shutdownConfig.CleanupPeriodSeconds).Msg("Entering cleanup period.")

	h.state.Store(int32(ServerStateInCleanupPeriod))

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownConfig.CleanupPeriodSeconds)*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to drain connections before shutdown")
	}

	log.Info().Msg("Cleaning up completed. Shutting down now.")
}
