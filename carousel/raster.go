package carousel

import (
	"context"
	"image"
	"image/color"
	"math"

	"golang.org/x/net/html"
)

// IntrinsicScale is the device pixel ratio used for every export raster.
const IntrinsicScale = 1.8

// RasterRequest describes one rasterization of a sanitized subtree.
type RasterRequest struct {
	Node *html.Node
	// Head is markup placed in the document head (stylesheets, fonts, base).
	Head       string
	Width      int
	Height     int
	Scale      float64
	Background color.Color
}

// Rasterizer renders a sanitized subtree to a bitmap.
type Rasterizer interface {
	Rasterize(ctx context.Context, req RasterRequest) (image.Image, error)
}

// RasterizerFunc adapts a function to a Rasterizer.
type RasterizerFunc func(ctx context.Context, req RasterRequest) (image.Image, error)

func (f RasterizerFunc) Rasterize(ctx context.Context, req RasterRequest) (image.Image, error) {
	if f == nil {
		return nil, NewError(KindInternal, "rasterizer func is nil", nil)
	}
	return f(ctx, req)
}

// ScaledSize returns the pixel dimensions of a raster for the request.
func (r RasterRequest) ScaledSize() (int, int) {
	scale := r.Scale
	if scale <= 0 {
		scale = 1
	}
	return int(math.Round(float64(r.Width) * scale)), int(math.Round(float64(r.Height) * scale))
}

// Validate checks the request before rendering.
func (r RasterRequest) Validate() error {
	if r.Node == nil {
		return NewError(KindCanvas, "raster node is nil", nil)
	}
	if r.Width <= 0 || r.Height <= 0 {
		return NewError(KindCanvas, "raster size must be positive", nil)
	}
	if r.Scale < 0 {
		return NewError(KindCanvas, "raster scale must not be negative", nil)
	}
	return nil
}

func rasterize(ctx context.Context, rasterizer Rasterizer, req RasterRequest) (image.Image, error) {
	if rasterizer == nil {
		return nil, NewError(KindCanvas, "rasterizer not configured", nil)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	img, err := rasterizer.Rasterize(ctx, req)
	if err != nil {
		if KindFromError(err) == KindInternal {
			return nil, NewError(KindCanvas, "rasterize failed", err)
		}
		return nil, err
	}
	if img == nil {
		return nil, NewError(KindCanvas, "rasterizer returned no image", nil)
	}
	return img, nil
}
