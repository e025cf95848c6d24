package main // Entry point of the seat booking HTTP server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/office-seat-booking/internal/app"
	"github.com/iliyamo/office-seat-booking/internal/config"
	"github.com/iliyamo/office-seat-booking/internal/handler"
	"github.com/iliyamo/office-seat-booking/internal/middleware"
	"github.com/iliyamo/office-seat-booking/internal/queue"
	"github.com/iliyamo/office-seat-booking/internal/router"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	logger := app.NewLogger(cfg.Env, cfg.LogLevel)

	bcfg, err := config.LoadBookingConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid booking configuration")
	}
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, bcfg, logger, app.Options{
		WantRedis: rlCfg.Enabled || cacheCfg.Enabled,
		Events:    true,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer a.Close()

	if cfg.EventsEnabled {
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.RabbitURL, cfg.AuditLogDir, logger); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("audit consumer stopped")
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))

	router.RegisterRoutes(e, a.DB)
	router.RegisterBooking(e,
		handler.NewBookingHandler(a.Service),
		middleware.NewRedisCache(cacheCfg, a.Redis, handler.ScheduleUsesDefaults),
		middleware.NewTokenBucket(rlCfg, a.Redis),
	)
	router.RegisterAdmin(e, handler.NewAdminHandler(a.Service), cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
