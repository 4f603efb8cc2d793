package carouselchromium

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-carousel/carousel"
)

const cssPixelsPerInch = 96.0

var _ carousel.PrintEngine = (*PrintEngine)(nil)

// PrintEngine prints sanitized markup to PDF, one CSS page per slide.
type PrintEngine struct {
	Engine *Engine
}

// NewPrintEngine creates a print engine on engine.
func NewPrintEngine(engine *Engine) *PrintEngine {
	return &PrintEngine{Engine: engine}
}

// PrintPDF renders req with an @page rule sized to the slide.
func (p *PrintEngine) PrintPDF(ctx context.Context, req carousel.PrintRequest) ([]byte, error) {
	if p == nil || p.Engine == nil {
		return nil, carousel.NewError(carousel.KindInternal, "chromium print engine is not configured", nil)
	}
	if req.Node == nil {
		return nil, carousel.NewError(carousel.KindCanvas, "print node is nil", nil)
	}
	if err := req.Size.Validate(); err != nil {
		return nil, err
	}
	body, err := carousel.RenderNode(req.Node)
	if err != nil {
		return nil, err
	}

	markup := pageDocument{
		Head:      req.Head,
		Body:      body,
		Width:     req.Size.Width,
		BaseURL:   p.Engine.BaseURL,
		PageStyle: pageStyle(req.Size),
	}.String()

	params := buildPrintParams(req.Size, req.Margins)
	var broken []string
	var pdf []byte
	err = p.Engine.Run(ctx,
		loadDocument(markup),
		chromedp.Evaluate(settleScript, &broken, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
			return ep.WithAwaitPromise(true)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(broken) > 0 {
				return nil
			}
			var err error
			pdf, _, err = params.Do(ctx)
			return err
		}),
	)
	if err != nil {
		if carousel.KindFromError(err) != carousel.KindInternal {
			return nil, err
		}
		return nil, carousel.NewError(carousel.KindCanvas, "chromium print failed", err)
	}
	if len(broken) > 0 {
		return nil, carousel.NewError(carousel.KindResourceLoad, fmt.Sprintf("failed to render images: %s", strings.Join(broken, ", ")), nil)
	}
	return pdf, nil
}

func pageStyle(size carousel.PageSize) string {
	return fmt.Sprintf("@page { size: %dpx %dpx; margin: 0; } @media print { body { -webkit-print-color-adjust: exact; } }", size.Width, size.Height)
}

func buildPrintParams(size carousel.PageSize, margins carousel.Margins) *page.PrintToPDFParams {
	return page.PrintToPDF().
		WithPaperWidth(pxToInches(float64(size.Width))).
		WithPaperHeight(pxToInches(float64(size.Height))).
		WithMarginTop(pxToInches(margins.Top)).
		WithMarginRight(pxToInches(margins.Right)).
		WithMarginBottom(pxToInches(margins.Bottom)).
		WithMarginLeft(pxToInches(margins.Left)).
		WithPrintBackground(true).
		WithPreferCSSPageSize(true).
		WithScale(1)
}

func pxToInches(px float64) float64 {
	return px / cssPixelsPerInch
}
