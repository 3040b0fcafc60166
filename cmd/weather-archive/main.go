package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/okozachenko/weather-archive/internal/api/http"
	"github.com/okozachenko/weather-archive/internal/config"
	"github.com/okozachenko/weather-archive/internal/export"
	"github.com/okozachenko/weather-archive/internal/geo"
	"github.com/okozachenko/weather-archive/internal/store"
	"github.com/okozachenko/weather-archive/internal/weather"
)

func main() {
	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zlog.Sync()
	sugar := zlog.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalw("failed to load config", "err", err)
	}

	records, err := store.Open(cfg.DBPath, sugar)
	if err != nil {
		sugar.Fatalw("failed to open record store", "path", cfg.DBPath, "err", err)
	}
	defer records.Close()

	resolver := geo.NewResolver(cfg.GeocodeURL, cfg.ReverseGeocodeURL, cfg.GeocodeTimeout, sugar)
	client := weather.NewClient(weather.ClientConfig{
		ForecastURL: cfg.ForecastURL,
		ArchiveURL:  cfg.ArchiveURL,
		Timeout:     cfg.HTTPTimeout,
	}, sugar)
	service := weather.NewService(resolver, client, records, sugar)

	app := fiber.New(fiber.Config{
		AppName:               "weather-archive",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
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

	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(logger.New())

	httpapi.RegisterRoutes(app, httpapi.Handlers{
		Service:  service,
		Resolver: resolver,
		Exporter: export.NewEngine(sugar),
	})

	go func() {
		sugar.Infow("starting server", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			sugar.Errorw("server stopped", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		sugar.Errorw("error during shutdown", "err", err)
	}
}
