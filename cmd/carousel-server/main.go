package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/goliatone/go-carousel/cmd/carousel-server/config"
	"github.com/goliatone/go-router"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load(os.Getenv("CAROUSEL_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	config.ApplyEnv(&cfg, os.Getenv)

	logger, err := NewZapLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	app, err := NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to create app: %v", err)
	}
	defer app.Close()

	srv := buildServer()
	app.SetupRoutes(srv.Router())

	addr := cfg.Addr()
	go func() {
		logger.Infof("starting server on http://%s", addr)
		logger.Infof("carousel API: http://%s%s", addr, cfg.Carousel.BasePath)
		if err := srv.Serve(addr); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("shutdown error: %v", err)
	}
}

func buildServer() router.Server[*fiber.App] {
	return router.NewFiberAdapter(fiberAppInitializer())
}

func fiberAppInitializer() func(*fiber.App) *fiber.App {
	return func(*fiber.App) *fiber.App {
		fiberApp := fiber.New(fiber.Config{
			AppName: "Carousel Export",
			// Markup with inline data URLs exceeds fiber's 4MB default.
			BodyLimit: 64 << 20,
		})

		fiberApp.Use(fiberlogger.New(fiberlogger.Config{
			Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		}))
		fiberApp.Use(cors.New(cors.Config{
			AllowOrigins:  "*",
			AllowMethods:  "GET,POST,OPTIONS",
			AllowHeaders:  "Content-Type",
			ExposeHeaders: "Content-Disposition,X-Carousel-Export-Id,X-Carousel-Pages,X-Carousel-Skipped",
		}))

		return fiberApp
	}
}
