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
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"

	"github.com/2beens/orderbox/internal/admin"
	"github.com/2beens/orderbox/internal/auth"
	"github.com/2beens/orderbox/internal/config"
	"github.com/2beens/orderbox/internal/middleware"
	"github.com/2beens/orderbox/internal/orders"
	"github.com/2beens/orderbox/internal/static"
	"github.com/2beens/orderbox/internal/telemetry/metrics"
	"github.com/2beens/orderbox/internal/telemetry/tracing"
	"github.com/2beens/orderbox/pkg"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config      *config.Config
	authService *auth.Service
	ordersStore *orders.Store

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	promRegistry := metrics.SetupPrometheus()
	metricsManager := metrics.NewManager("orderbox", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0) // set to 1 once serving

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "orderbox")
	if err != nil {
		return nil, fmt.Errorf("honeycomb setup: %w", err)
	}

	adminStore := auth.NewAdminStore(
		params.Config.AdminFile,
		params.Config.DefaultAdminUsername,
		params.Config.DefaultAdminPassword,
	)
	// make sure the admin account exists before accepting requests
	adminAccount := adminStore.Ensure(ctx)
	if adminAccount == nil {
		otelShutdown()
		return nil, errors.New("failed to ensure admin account")
	}
	log.Debugf("admin account ready: [%s]", adminAccount.Username)

	authService := auth.NewAuthService(adminStore, auth.NewSessionRegistry(), metricsManager)

	return &Server{
		config:      params.Config,
		versionInfo: params.VersionInfo,

		authService: authService,
		ordersStore: orders.NewStore(params.Config.OrdersFile),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("orderbox-router"))

	adminHandler := admin.NewHandler(s.authService)
	adminHandler.SetupRoutes(r)

	ordersHandler := orders.NewHandler(s.ordersStore, s.metricsManager)
	ordersHandler.SetupRoutes(r)

	// all the rest under /api/ - unhandled paths and methods
	r.PathPrefix("/api/").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteJSONError(w, http.StatusNotFound, "endpoint not found")
	}).Name("api-unknown")

	r.PathPrefix("/").Handler(
		otelhttp.NewHandler(static.NewHandler(s.config.StaticRoot), "static"),
	).Name("static")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.authService)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.RequestBody(middleware.DefaultMaxRequestBodyBytes))

	return r, nil
}

func (s *Server) Serve(host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", metrics.Handler(s.promRegistry))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof(" > server listening on: [%s], version: [%s]", ipAndPort, s.versionInfo)
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

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	var err error
	if s.httpServer != nil {
		err = multierr.Append(err, s.httpServer.Shutdown(ctx))
	}
	if s.metricsHttpServer != nil {
		err = multierr.Append(err, s.metricsHttpServer.Shutdown(ctx))
	}
	if err != nil {
		log.Errorf(" >>> failed to gracefully shutdown servers: %s", err)
		return
	}
	log.Warnln("server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed, http.StateHijacked:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
