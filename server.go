package main

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	handler "github.com/satriahrh/nutriplanner/adapters/http"
	"github.com/satriahrh/nutriplanner/adapters/websocket"
	"github.com/satriahrh/nutriplanner/config"
	"github.com/satriahrh/nutriplanner/utils/log"
)

// rateLimiterExpiry drops idle visitors from the limiter store.
const rateLimiterExpiry = 3 * time.Minute

type routes struct {
	pages    *handler.PageHandler
	sessions *handler.Sessions
	voice    *websocket.VoiceHandler
}

// newServer builds the echo instance with the middleware stack and every route.
func newServer(cfg *config.Config, r routes) (*echo.Echo, error) {
	renderer, err := handler.NewTemplateRenderer()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			log.WithCtx(c.Request().Context()).Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.RateLimiter(rateLimiterStore(cfg.Server.RateLimit)))
	e.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	api := e.Group("/api/v1")
	api.GET("/health", handler.HealthCheck)

	site := e.Group("", r.sessions.Middleware)
	r.pages.Register(site)
	site.GET("/meal-plan/voice", r.voice.Handler)

	return e, nil
}

// rateLimiterStore allows perMinute requests per visitor per minute. The burst
// equals perMinute so a fresh visitor is never rejected on its first request.
func rateLimiterStore(perMinute int) middleware.RateLimiterStore {
	if perMinute <= 0 {
		perMinute = 1
	}
	return middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rateLimit(perMinute),
		Burst:     perMinute,
		ExpiresIn: rateLimiterExpiry,
	})
}

// rateLimit converts requests per minute into the per-second rate echo expects.
func rateLimit(perMinute int) rate.Limit {
	return rate.Every(time.Minute / time.Duration(perMinute))
}
