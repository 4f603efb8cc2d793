package main

import (
	"github.com/gofiber/fiber/v2"
	carouselrouter "github.com/goliatone/go-carousel/adapters/router"
	"github.com/goliatone/go-router"
)

// SetupRoutes registers all application routes.
func (a *App) SetupRoutes(r router.Router[*fiber.App]) {
	r.Get("/healthz", a.Health)

	carouselHandler := carouselrouter.NewHandler(carouselrouter.Config{
		Service:      a.Service,
		Proxy:        a.Proxy,
		BasePath:     a.Config.Carousel.BasePath,
		ProxyPath:    proxyPathOf(a.Config),
		Logger:       a.Logger,
		MaxBodyBytes: a.Config.Carousel.MaxBodyBytes,
	})
	carouselHandler.RegisterRoutes(r)
}

// Health handles GET /healthz.
func (a *App) Health(c router.Context) error {
	status := a.Service.Status(c.Context())
	return c.JSON(200, map[string]any{
		"ok":          true,
		"state":       status.State,
		"is_printing": status.IsPrinting,
	})
}
