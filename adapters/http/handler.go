package carouselhttp

import (
	"net/http"

	"github.com/goliatone/go-carousel/adapters/carouselapi"
	"github.com/goliatone/go-carousel/carousel"
)

// Config configures the HTTP adapter.
type Config = carouselapi.Config

// Handler exposes carousel HTTP endpoints.
type Handler struct {
	controller *carouselapi.Controller
}

// NewHandler creates a new HTTP handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{controller: carouselapi.NewController(cfg)}
}

// RegisterRoutes registers handlers on a compatible router.
func (h *Handler) RegisterRoutes(router any) {
	paths := []string{h.basePath() + "/"}
	if proxy := h.proxyPath(); proxy != "" {
		paths = append(paths, proxy)
	}
	switch r := router.(type) {
	case interface{ Handle(string, http.Handler) }:
		for _, p := range paths {
			r.Handle(p, h)
		}
	case interface {
		HandleFunc(string, func(http.ResponseWriter, *http.Request))
	}:
		for _, p := range paths {
			r.HandleFunc(p, h.ServeHTTP)
		}
	}
}

// ServeHTTP routes carousel endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if w == nil {
		return
	}
	if h == nil || h.controller == nil {
		carouselapi.WriteError(httpResponse{w: w}, carousel.NewError(carousel.KindInternal, "handler is nil", nil))
		return
	}
	h.controller.Serve(httpRequest{r: r}, httpResponse{w: w})
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
