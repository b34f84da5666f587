package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/cloud-cover-estimation/internal/api/http"
	"github.com/i474232898/cloud-cover-estimation/internal/cloudcover"
	"github.com/i474232898/cloud-cover-estimation/internal/cloudcover/imagery"
	"github.com/i474232898/cloud-cover-estimation/internal/config"
	"github.com/i474232898/cloud-cover-estimation/internal/geocode"
	"github.com/i474232898/cloud-cover-estimation/internal/metrics"
	"github.com/i474232898/cloud-cover-estimation/internal/scheduler"
	"github.com/i474232898/cloud-cover-estimation/internal/store"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		os.Stderr.WriteString("failed to init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = zap.L().Sync() }()
	log := zap.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Resolve the target point from its address when no coordinates are given.
	if !cfg.HasPoint {
		resolver := geocode.NewResolver(cfg.GeocoderKey)
		addr := cfg.TargetAddress
		pt, err := resolver.Resolve(ctx, addr.City, addr.State, addr.Country)
		if err != nil {
			log.Fatal("failed to geocode target", zap.Error(err))
		}
		cfg.Target.Point = pt
		log.Info("geocoded target", zap.String("city", addr.City), zap.String("point", pt.String()))
	}

	projector, err := cloudcover.NewProjector(cfg.Projection)
	if err != nil {
		log.Fatal("invalid satellite projection", zap.Error(err))
	}
	sampler, err := cloudcover.NewSampler(projector, cfg.Sampler)
	if err != nil {
		log.Fatal("invalid sampler configuration", zap.Error(err))
	}

	// Image source: download from the CDN, or read a folder filled by someone else.
	layout := imagery.Layout{Root: cfg.ImageDir, Resolution: cfg.ImageResolution}
	var source cloudcover.ImageSource
	if cfg.Offline {
		source = imagery.NewDirSource(layout)
		if slots, err := layout.Slots(time.Now()); err == nil {
			log.Info("offline image folder", zap.String("dir", cfg.ImageDir), zap.Int("slots_today", len(slots)))
		}
	} else {
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		source = imagery.NewGOESSource(httpClient, cfg.ImageBaseURL, layout, imagery.DefaultBackoff)
	}

	// In-memory store with configured retention.
	memStore := store.NewMemoryStore(cfg.StoreMaxDays)

	// Core service orchestrating image source, sampler and store.
	service := cloudcover.NewService(memStore, source, sampler, cfg.Target, cfg.MaxConcurrentSamples)
	if err := service.CheckTarget(); err != nil {
		log.Fatal("target cannot be projected", zap.Error(err))
	}
	if box, err := service.BoundingBox(); err == nil {
		log.Info("tracking cloud cover",
			zap.String("point", cfg.Target.Point.String()),
			zap.Float64("radius_km", cfg.Target.RadiusKm),
			zap.Any("bbox", box),
			zap.String("sweep", string(projector.Params().Sweep)),
			zap.Uint8("threshold", sampler.Config().Threshold),
			zap.Int("window_half_width", sampler.Config().HalfWidth),
			zap.String("source", source.Name()))
	}

	// Scheduler that periodically samples the newest image.
	schedOpts := scheduler.Options{
		Interval:     cfg.SampleInterval,
		PublishDelay: cfg.PublishDelay,
		OnFatal: func(err error) {
			log.Error("stopping: projection failure", zap.Error(err))
			stop()
		},
	}
	if !cfg.Offline {
		schedOpts.Pruner = layout
		schedOpts.KeepDays = cfg.StoreMaxDays
	}
	sched := scheduler.New(service, schedOpts)
	if err := sched.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "cloud-cover-estimation",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Minute, // POST /series samples a whole day
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(metrics.Middleware())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "cloud-cover-estimation",
		})
	})
	app.Get("/metrics", metrics.Handler())

	// API routes.
	httpapi.RegisterRoutes(app, service, cfg.DisplayHours)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", zap.Error(err))
		}
	}()

	// Wait for termination signal
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
}
