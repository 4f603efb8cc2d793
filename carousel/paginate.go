package carousel

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// PageLayout is the pagination plan for one tall canvas.
type PageLayout struct {
	CanvasWidth  int
	CanvasHeight int
	PageHeightPx int
	NumPages     int
	PageWidth    float64
	PageHeight   float64
	InnerWidth   float64
	InnerHeight  float64
	Margins      Margins
}

// Band is one horizontal slice of the canvas mapped to a physical page.
type Band struct {
	Page int
	Y    int
	// Height is the band height in canvas pixels.
	Height int
	// PhysicalHeight is the height of the image box on the page.
	PhysicalHeight float64
}

// Layout computes page height and page count for a canvas.
func Layout(canvasWidth, canvasHeight int, size PageSize, margins Margins) (PageLayout, error) {
	if canvasWidth <= 0 || canvasHeight <= 0 {
		return PageLayout{}, NewError(KindCanvas, fmt.Sprintf("invalid canvas size %dx%d", canvasWidth, canvasHeight), nil)
	}
	if err := size.Validate(); err != nil {
		return PageLayout{}, err
	}

	innerW := float64(size.Width) - margins.Left - margins.Right
	innerH := float64(size.Height) - margins.Top - margins.Bottom
	if innerW <= 0 || innerH <= 0 {
		return PageLayout{}, NewError(KindValidation, "margins leave no printable area", nil)
	}

	pageHeightPx := int(math.Floor(float64(canvasWidth) * innerH / innerW))
	if pageHeightPx <= 0 {
		return PageLayout{}, NewError(KindCanvas, "page height rounds to zero pixels", nil)
	}

	return PageLayout{
		CanvasWidth:  canvasWidth,
		CanvasHeight: canvasHeight,
		PageHeightPx: pageHeightPx,
		NumPages:     (canvasHeight + pageHeightPx - 1) / pageHeightPx,
		PageWidth:    float64(size.Width),
		PageHeight:   float64(size.Height),
		InnerWidth:   innerW,
		InnerHeight:  innerH,
		Margins:      margins,
	}, nil
}

// Bands slices the canvas height into pages. The last band carries the
// remainder when the canvas does not divide evenly.
func (l PageLayout) Bands() []Band {
	if l.NumPages <= 0 || l.PageHeightPx <= 0 {
		return nil
	}
	bands := make([]Band, 0, l.NumPages)
	for page := 0; page < l.NumPages; page++ {
		band := Band{
			Page:           page,
			Y:              page * l.PageHeightPx,
			Height:         l.PageHeightPx,
			PhysicalHeight: l.InnerHeight,
		}
		if page == l.NumPages-1 {
			if rem := l.CanvasHeight % l.PageHeightPx; rem != 0 {
				band.Height = rem
				band.PhysicalHeight = float64(rem) * l.InnerWidth / float64(l.CanvasWidth)
			}
		}
		bands = append(bands, band)
	}
	return bands
}

// PageHeightFor returns the physical height of the page holding band.
func (l PageLayout) PageHeightFor(band Band) float64 {
	if band.Height == l.PageHeightPx {
		return l.PageHeight
	}
	return band.PhysicalHeight + l.Margins.Top + l.Margins.Bottom
}

// PageImage is one encoded page with its physical dimensions.
type PageImage struct {
	Width  float64
	Height float64
	JPEG   []byte
}

// PDFWriter assembles encoded pages into a document.
type PDFWriter interface {
	WritePDF(ctx context.Context, pages []PageImage) ([]byte, error)
}

// Paginator slices a tall canvas into page images and assembles a PDF.
type Paginator struct {
	Writer  PDFWriter
	Quality int
	Logger  Logger
}

// Paginate returns the PDF bytes and the layout used to produce them.
func (p Paginator) Paginate(ctx context.Context, canvas image.Image, size PageSize, margins Margins) ([]byte, PageLayout, error) {
	if canvas == nil {
		return nil, PageLayout{}, NewError(KindCanvas, "canvas is nil", nil)
	}
	bounds := canvas.Bounds()
	layout, err := Layout(bounds.Dx(), bounds.Dy(), size, margins)
	if err != nil {
		return nil, PageLayout{}, err
	}

	quality := p.Quality
	if quality == 0 {
		quality = PageJPEGQuality
	}

	pages := make([]PageImage, 0, layout.NumPages)
	for _, band := range layout.Bands() {
		if err := ctx.Err(); err != nil {
			return nil, layout, err
		}
		img := ComposePage(canvas, layout, band)
		data, err := EncodeJPEG(img, quality)
		if err != nil {
			return nil, layout, err
		}
		pages = append(pages, PageImage{
			Width:  layout.PageWidth,
			Height: layout.PageHeightFor(band),
			JPEG:   data,
		})
	}

	writer := p.Writer
	if writer == nil {
		writer = PDFCPUWriter{}
	}
	pdf, err := writer.WritePDF(ctx, pages)
	if err != nil {
		if KindFromError(err) == KindInternal {
			return nil, layout, NewError(KindEncoding, "pdf assembly failed", err)
		}
		return nil, layout, err
	}
	logger(p.Logger).Debugf("paginated canvas %dx%d into %d pages", layout.CanvasWidth, layout.CanvasHeight, layout.NumPages)
	return pdf, layout, nil
}

// ComposePage draws one band on an opaque white page raster. Margins are
// drawn as white borders in canvas pixel units.
func ComposePage(canvas image.Image, layout PageLayout, band Band) *image.RGBA {
	pxPerUnit := float64(layout.CanvasWidth) / layout.InnerWidth
	left := int(math.Round(layout.Margins.Left * pxPerUnit))
	right := int(math.Round(layout.Margins.Right * pxPerUnit))
	top := int(math.Round(layout.Margins.Top * pxPerUnit))
	bottom := int(math.Round(layout.Margins.Bottom * pxPerUnit))

	width := left + layout.CanvasWidth + right
	height := top + band.Height + bottom
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	origin := canvas.Bounds().Min
	target := image.Rect(left, top, left+layout.CanvasWidth, top+band.Height)
	draw.Draw(dst, target, canvas, image.Point{X: origin.X, Y: origin.Y + band.Y}, draw.Over)
	return dst
}

func logger(l Logger) Logger {
	if l == nil {
		return NopLogger{}
	}
	return l
}
