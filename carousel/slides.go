package carousel

import (
	"context"
	"fmt"
	"image/color"

	"golang.org/x/net/html"
)

// SlideError records why a slide was skipped.
type SlideError struct {
	Index int
	Err   error
}

func (e SlideError) Error() string {
	return fmt.Sprintf("slide %d: %v", e.Index, e.Err)
}

func (e SlideError) Unwrap() error {
	return e.Err
}

// SlideReport summarizes a per-slide export.
type SlideReport struct {
	Exported  []int
	Filenames []string
	Skipped   []SlideError
}

// SkippedIndexes lists the skipped slide indexes.
func (r SlideReport) SkippedIndexes() []int {
	out := make([]int, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		out = append(out, s.Index)
	}
	return out
}

// SlideExporter renders every slide on its own and hands one JPEG per
// slide to the sink. A slide that cannot be produced is logged and skipped.
type SlideExporter struct {
	Sanitizer  Sanitizer
	Rasterizer Rasterizer
	Logger     Logger
	Scale      float64
	Quality    int
}

// Export walks slides 0..N-1 of doc on the live surface.
func (e SlideExporter) Export(ctx context.Context, doc Document, surface *html.Node, sink ArtifactSink) (SlideReport, error) {
	report := SlideReport{}
	if sink == nil {
		return report, NewError(KindInternal, "artifact sink not configured", nil)
	}
	if e.Sanitizer == nil {
		return report, NewError(KindInternal, "slide sanitizer not configured", nil)
	}

	log := logger(e.Logger)
	size := doc.PageSize()
	scale := e.Scale
	if scale <= 0 {
		scale = IntrinsicScale
	}
	quality := e.Quality
	if quality == 0 {
		quality = SlideJPEGQuality
	}
	head := HeadMarkup(surface)
	filename := doc.Config.Filename

	for i := range doc.Slides {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		id := SlideItemID(i)
		live := FindElementByID(surface, id)
		if live == nil {
			err := NewError(KindTargetMissing, fmt.Sprintf("couldn't find slide %d", i), nil)
			log.Errorf("slide export: %v", err)
			report.Skipped = append(report.Skipped, SlideError{Index: i, Err: err})
			continue
		}

		data, err := e.render(ctx, live, head, size, scale, quality)
		if err != nil {
			log.Errorf("slide export: slide %d: %v", i, err)
			report.Skipped = append(report.Skipped, SlideError{Index: i, Err: err})
			continue
		}

		name := SlideFilename(filename, i)
		if err := sink.Save(ctx, Artifact{
			Filename:    name,
			ContentType: "image/jpeg",
			Format:      FormatJPG,
			SlideIndex:  i,
			Data:        data,
		}); err != nil {
			return report, err
		}
		report.Exported = append(report.Exported, i)
		report.Filenames = append(report.Filenames, name)
		log.Debugf("slide export: saved %s", name)
	}

	return report, nil
}

func (e SlideExporter) render(ctx context.Context, live *html.Node, head string, size PageSize, scale float64, quality int) ([]byte, error) {
	clone, err := e.Sanitizer.Sanitize(ctx, live)
	if err != nil {
		return nil, err
	}
	img, err := rasterize(ctx, e.Rasterizer, RasterRequest{
		Node:       clone,
		Head:       head,
		Width:      size.Width,
		Height:     size.Height,
		Scale:      scale,
		Background: color.White,
	})
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(img, quality)
}
