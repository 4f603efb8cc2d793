package carouselchromium

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-carousel/carousel"
	"golang.org/x/image/draw"
)

var _ carousel.Rasterizer = (*Rasterizer)(nil)

// Rasterizer captures sanitized markup as a bitmap.
type Rasterizer struct {
	Engine *Engine
}

// NewRasterizer creates a rasterizer on engine.
func NewRasterizer(engine *Engine) *Rasterizer {
	return &Rasterizer{Engine: engine}
}

// Rasterize lays the markup out at req.Width CSS pixels, waits for fonts
// and images, and captures req.Width x req.Height at req.Scale.
func (r *Rasterizer) Rasterize(ctx context.Context, req carousel.RasterRequest) (image.Image, error) {
	if r == nil || r.Engine == nil {
		return nil, carousel.NewError(carousel.KindInternal, "chromium rasterizer is not configured", nil)
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	body, err := carousel.RenderNode(req.Node)
	if err != nil {
		return nil, err
	}
	scale := req.Scale
	if scale <= 0 {
		scale = 1
	}
	background := req.Background
	if background == nil {
		background = color.White
	}

	markup := pageDocument{
		Head:       req.Head,
		Body:       body,
		Width:      req.Width,
		Background: background,
		BaseURL:    r.Engine.BaseURL,
	}.String()

	var broken []string
	var shot []byte
	err = r.Engine.Run(ctx,
		emulation.SetDeviceMetricsOverride(int64(req.Width), int64(req.Height), scale, false),
		loadDocument(markup),
		chromedp.Evaluate(settleScript, &broken, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(broken) > 0 {
				return nil
			}
			var err error
			shot, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithCaptureBeyondViewport(true).
				WithClip(&page.Viewport{
					X:      0,
					Y:      0,
					Width:  float64(req.Width),
					Height: float64(req.Height),
					Scale:  1,
				}).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		if carousel.KindFromError(err) != carousel.KindInternal {
			return nil, err
		}
		return nil, carousel.NewError(carousel.KindCanvas, "chromium raster failed", err)
	}
	if len(broken) > 0 {
		return nil, carousel.NewError(carousel.KindResourceLoad, fmt.Sprintf("failed to render images: %s", strings.Join(broken, ", ")), nil)
	}

	img, _, err := image.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, carousel.NewError(carousel.KindCanvas, "decode screenshot failed", err)
	}
	w, h := req.ScaledSize()
	return normalize(img, w, h, background), nil
}

// normalize returns img at exactly width x height on an opaque background.
// Device scale rounding can leave the capture a pixel off.
func normalize(img image.Image, width, height int, background color.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
