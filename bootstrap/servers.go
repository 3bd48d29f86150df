package bootstrap

import (
	"net/http"

	"place-indexer/config"
	"place-indexer/internal/auth"
	authmw "place-indexer/internal/auth/middleware"
	"place-indexer/logger"
	appmiddleware "place-indexer/middleware"
	"place-indexer/rest"
	appOtel "place-indexer/utils/otel"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/time/rate"
)

// newEcho builds the router with the shared middleware chain.
func newEcho(otelCfg appOtel.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	if otelCfg.Enabled {
		e.Use(otelecho.Middleware(otelCfg.ServiceName))
		e.Use(appmiddleware.OTelStatus())
	}

	e.Use(appmiddleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.FromContext(c.Request().Context()).InfoContext(c.Request().Context(), "HTTP request completed",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"error", v.Error)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	return e
}

// newHTTPServer creates the REST server. The handler also speaks h2c for
// in-cluster HTTP/2 callers.
func newHTTPServer(cfg *config.Config, handler *rest.Handler, otelCfg appOtel.Config) (*http.Server, *appmiddleware.RateLimiter) {
	if cfg.Security.WebhookSecret == "" {
		logger.Logger.Warn("WEBHOOK_SECRET not set, /webhooks/places-sync accepts unauthenticated calls")
	}
	if cfg.Security.ServiceToken == "" {
		logger.Logger.Warn("ADMIN_SERVICE_TOKEN not set, /v1/admin/sync is disabled")
	}

	authMiddleware := authmw.NewAuthMiddleware(
		auth.NewVerifier(cfg.Security.JWTSecret),
		auth.NewVerifier(cfg.Security.WebhookSecret),
		cfg.Security.ServiceToken,
	)
	limiter := appmiddleware.NewRateLimiter(rate.Limit(cfg.HTTP.RateLimitRPS), cfg.HTTP.RateLimitBurst)

	e := newEcho(otelCfg)
	handler.RegisterRoutes(e, authMiddleware, limiter.Middleware())

	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           h2c.NewHandler(e, &http2.Server{}),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}, limiter
}
