package carouselrouter

import (
	"github.com/goliatone/go-carousel/adapters/carouselapi"
	"github.com/goliatone/go-carousel/carousel"
	"github.com/goliatone/go-router"
)

// Config configures the go-router adapter.
type Config = carouselapi.Config

// Handler exposes carousel routes for go-router.
type Handler struct {
	controller *carouselapi.Controller
}

// NewHandler creates a go-router handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: carouselapi.NewController(cfg)}
}

// RegisterRoutes registers routes on a compatible go-router router.
func (h *Handler) RegisterRoutes(r any) {
	reg, ok := r.(routeRegistrar)
	if !ok {
		return
	}
	base := h.basePath()

	reg.Post(base+"/pdf", h.Handle)
	reg.Post(base+"/jpg", h.Handle)
	reg.Get(base+"/status", h.Handle)
	reg.Get(base+"/history", h.Handle)
	reg.Get(base+"/history/:id", h.Handle)
	if proxy := h.proxyPath(); proxy != "" {
		reg.Get(proxy, h.Handle)
	}
}

// Handle runs the shared controller for one request.
func (h *Handler) Handle(c router.Context) error {
	if c == nil {
		return nil
	}
	if h == nil || h.controller == nil {
		carouselapi.WriteError(routerResponse{ctx: c}, carousel.NewError(carousel.KindInternal, "handler is nil", nil))
		return nil
	}
	h.controller.Serve(routerRequest{ctx: c}, routerResponse{ctx: c})
	return nil
}

func (h *Handler) basePath() string {
	if h == nil || h.controller == nil || h.controller.BasePath() == "" {
		return carouselapi.DefaultBasePath
	}
	return h.controller.BasePath()
}

func (h *Handler) proxyPath() string {
	if h == nil || h.controller == nil {
		return ""
	}
	return h.controller.ProxyPath()
}

type routeRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}
