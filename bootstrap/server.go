package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	appmiddleware "news-harvester/middleware"
)

const healthPingTimeout = 5 * time.Second

// NewOpsServer creates the Echo server exposing health and live metrics.
func NewOpsServer(deps *Dependencies, otelEnabled bool, otelServiceName string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = deps.Config.Server.ReadTimeout
	e.Server.WriteTimeout = deps.Config.Server.WriteTimeout

	e.HTTPErrorHandler = appmiddleware.CustomHTTPErrorHandler(deps.Logger)

	if otelEnabled {
		e.Use(otelecho.Middleware(otelServiceName))
		e.Use(appmiddleware.OTelStatusMiddleware())
	}

	e.Use(appmiddleware.RequestIDMiddleware())
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
			deps.Logger.InfoContext(c.Request().Context(), "ops request completed",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"error", v.Error)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	e.GET("/health", handleHealth(deps))
	e.GET("/metrics/summary", handleMetricsSummary(deps))

	return e
}

// handleHealth pings the database and reports pool state. A failed ping
// answers 503 so orchestration restarts the service instead of letting it
// idle against a dead database.
func handleHealth(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), healthPingTimeout)
		defer cancel()

		health := map[string]any{
			"status":          "healthy",
			"database":        "ok",
			"active_proxies":  deps.ProxyPool.ActiveCount(),
			"browser_enabled": deps.Config.Browser.Enabled,
		}

		if err := deps.DBPool.Ping(ctx); err != nil {
			health["status"] = "degraded"
			health["database"] = "unreachable"

			return c.JSON(http.StatusServiceUnavailable, health)
		}

		return c.JSON(http.StatusOK, health)
	}
}

func handleMetricsSummary(deps *Dependencies) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, deps.Collector.Snapshot())
	}
}

// StartOpsServer starts the ops server in a goroutine.
func StartOpsServer(e *echo.Echo, port int, log *slog.Logger) {
	go func() {
		addr := fmt.Sprintf(":%d", port)
		log.Info("ops server listening", "port", port)

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("ops server error", "error", err)
		}
	}()
}
