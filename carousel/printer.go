package carousel

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/net/html"
)

// PrintState is the orchestrator state.
type PrintState string

const (
	PrintIdle      PrintState = "idle"
	PrintExporting PrintState = "exporting"
)

// PDFMode selects how the PDF path produces pages.
type PDFMode string

const (
	// PDFModeRaster rasterizes the whole surface and slices it into pages.
	PDFModeRaster PDFMode = "raster"
	// PDFModePrint hands the sanitized markup to a print engine.
	PDFModePrint PDFMode = "print"
)

// ParsePDFMode normalizes a mode string; empty means raster.
func ParsePDFMode(raw string) (PDFMode, error) {
	switch PDFMode(raw) {
	case "", PDFModeRaster:
		return PDFModeRaster, nil
	case PDFModePrint:
		return PDFModePrint, nil
	default:
		return "", NewError(KindValidation, fmt.Sprintf("unsupported pdf mode %q", raw), nil)
	}
}

// PrintRequest is the input of a print engine.
type PrintRequest struct {
	Node    *html.Node
	Head    string
	Size    PageSize
	Pages   int
	Margins Margins
}

// PrintEngine converts sanitized markup straight to a paged PDF.
type PrintEngine interface {
	PrintPDF(ctx context.Context, req PrintRequest) ([]byte, error)
}

// Result describes a finished export.
type Result struct {
	ID       string
	Format   Format
	Filename string
	Pages    int
	Layout   PageLayout
	Slides   SlideReport
}

// Printer coordinates the PDF and per-slide exports. Only one export runs
// at a time; a call made while another is in flight returns ErrBusy.
type Printer struct {
	Sanitizer      Sanitizer
	SlideSanitizer Sanitizer
	Rasterizer     Rasterizer
	Paginator      Paginator
	PrintEngine    PrintEngine
	Mode           PDFMode
	Scale          float64
	Tracker        Tracker
	Logger         Logger
	Now            func() time.Time
	IDGenerator    func() string

	busy atomic.Bool
}

// NewPrinter creates a printer with default collaborators.
func NewPrinter() *Printer {
	return &Printer{
		Paginator:   Paginator{Writer: PDFCPUWriter{}, Quality: PageJPEGQuality},
		Mode:        PDFModeRaster,
		Scale:       IntrinsicScale,
		Logger:      NopLogger{},
		Now:         time.Now,
		IDGenerator: uuid.NewString,
	}
}

// IsPrinting reports whether an export is running.
func (p *Printer) IsPrinting() bool {
	if p == nil {
		return false
	}
	return p.busy.Load()
}

// State returns the current state.
func (p *Printer) State() PrintState {
	if p.IsPrinting() {
		return PrintExporting
	}
	return PrintIdle
}

// PrintPDF exports the whole surface as one PDF using the configured mode.
func (p *Printer) PrintPDF(ctx context.Context, src Source, sink ArtifactSink) (Result, error) {
	return p.PrintPDFWithMode(ctx, src, sink, "")
}

// PrintPDFWithMode is PrintPDF with a per-call mode override.
func (p *Printer) PrintPDFWithMode(ctx context.Context, src Source, sink ArtifactSink, mode PDFMode) (Result, error) {
	if p == nil {
		return Result{}, AsGoError(NewError(KindInternal, "printer is nil", nil))
	}
	if !p.busy.CompareAndSwap(false, true) {
		return Result{}, AsGoError(ErrBusy)
	}
	defer p.busy.Store(false)

	p.defaults()
	if mode == "" {
		mode = p.Mode
	}

	run, err := p.start(ctx, FormatPDF)
	if err != nil {
		return Result{}, AsGoError(err)
	}

	result, err := p.printPDF(ctx, src, sink, mode, &run)
	result.ID = run.ID
	if err != nil {
		p.fail(ctx, run, err)
		return result, AsGoError(err)
	}

	run.State = StateCompleted
	run.Pages = result.Pages
	run.Artifacts = []string{result.Filename}
	p.finish(ctx, run)
	p.Logger.Infof("carousel pdf export %s: saved %s (%d pages)", run.ID, result.Filename, result.Pages)
	return result, nil
}

func (p *Printer) printPDF(ctx context.Context, src Source, sink ArtifactSink, mode PDFMode, run *ExportRecord) (Result, error) {
	result := Result{Format: FormatPDF}
	if src == nil {
		return result, NewError(KindInternal, "source not configured", nil)
	}
	if sink == nil {
		return result, NewError(KindInternal, "artifact sink not configured", nil)
	}
	if p.Sanitizer == nil {
		return result, NewError(KindInternal, "sanitizer not configured", nil)
	}

	doc, err := src.Snapshot(ctx)
	if err != nil {
		return result, err
	}
	if err := doc.Validate(); err != nil {
		return result, err
	}
	result.Filename = PDFFilename(doc)
	run.Filename = result.Filename
	run.Slides = len(doc.Slides)

	surface, err := src.Surface(ctx)
	if err != nil {
		return result, err
	}
	container := FindElementByID(surface, ContainerID)
	if container == nil {
		return result, NewError(KindTargetMissing, "couldn't find element to convert to PDF", nil)
	}

	clone, err := p.Sanitizer.Sanitize(ctx, container)
	if err != nil {
		return result, err
	}

	size := doc.PageSize()
	head := HeadMarkup(surface)

	var data []byte
	switch mode {
	case PDFModePrint:
		if p.PrintEngine == nil {
			return result, NewError(KindNotImpl, "print engine not configured", nil)
		}
		data, err = p.PrintEngine.PrintPDF(ctx, PrintRequest{
			Node:    clone,
			Head:    head,
			Size:    size,
			Pages:   len(doc.Slides),
			Margins: doc.Config.Margins,
		})
		if err != nil {
			if KindFromError(err) == KindInternal {
				err = NewError(KindCanvas, "print to pdf failed", err)
			}
			return result, err
		}
		pages, err := pdfapi.PageCount(bytes.NewReader(data), pdfcpuConfiguration())
		if err != nil {
			return result, NewError(KindEncoding, "print engine returned an unreadable pdf", err)
		}
		result.Pages = pages
	case PDFModeRaster:
		canvas, err := rasterize(ctx, p.Rasterizer, RasterRequest{
			Node:       clone,
			Head:       head,
			Width:      size.Width,
			Height:     size.Height * len(doc.Slides),
			Scale:      p.Scale,
			Background: color.White,
		})
		if err != nil {
			return result, err
		}
		paginator := p.Paginator
		if paginator.Logger == nil {
			paginator.Logger = p.Logger
		}
		data, result.Layout, err = paginator.Paginate(ctx, canvas, size, doc.Config.Margins)
		if err != nil {
			return result, err
		}
		result.Pages = result.Layout.NumPages
	default:
		return result, NewError(KindValidation, fmt.Sprintf("unsupported pdf mode %q", mode), nil)
	}

	if err := sink.Save(ctx, Artifact{
		Filename:    result.Filename,
		ContentType: "application/pdf",
		Format:      FormatPDF,
		SlideIndex:  -1,
		Data:        data,
	}); err != nil {
		return result, err
	}
	return result, nil
}

// ExportJPGs exports one JPEG per slide. Missing or failing slides are
// skipped and reported; the call still succeeds.
func (p *Printer) ExportJPGs(ctx context.Context, src Source, sink ArtifactSink) (Result, error) {
	if p == nil {
		return Result{}, AsGoError(NewError(KindInternal, "printer is nil", nil))
	}
	if !p.busy.CompareAndSwap(false, true) {
		return Result{}, AsGoError(ErrBusy)
	}
	defer p.busy.Store(false)

	p.defaults()

	run, err := p.start(ctx, FormatJPG)
	if err != nil {
		return Result{}, AsGoError(err)
	}

	result, err := p.exportJPGs(ctx, src, sink, &run)
	result.ID = run.ID
	run.Artifacts = result.Slides.Filenames
	run.Skipped = result.Slides.SkippedIndexes()
	run.Pages = len(result.Slides.Exported)
	if err != nil {
		p.fail(ctx, run, err)
		return result, AsGoError(err)
	}

	run.State = StateCompleted
	if len(run.Skipped) > 0 {
		run.State = StatePartial
	}
	p.finish(ctx, run)
	p.Logger.Infof("carousel jpg export %s: saved %d slides, skipped %d", run.ID, len(result.Slides.Exported), len(run.Skipped))
	return result, nil
}

func (p *Printer) exportJPGs(ctx context.Context, src Source, sink ArtifactSink, run *ExportRecord) (Result, error) {
	result := Result{Format: FormatJPG}
	if src == nil {
		return result, NewError(KindInternal, "source not configured", nil)
	}

	doc, err := src.Snapshot(ctx)
	if err != nil {
		return result, err
	}
	if err := doc.Validate(); err != nil {
		return result, err
	}
	result.Filename = doc.Config.Filename
	run.Filename = result.Filename
	run.Slides = len(doc.Slides)

	surface, err := src.Surface(ctx)
	if err != nil {
		return result, err
	}

	exporter := SlideExporter{
		Sanitizer:  p.SlideSanitizer,
		Rasterizer: p.Rasterizer,
		Logger:     p.Logger,
		Scale:      p.Scale,
	}
	report, err := exporter.Export(ctx, doc, surface, sink)
	result.Slides = report
	result.Pages = len(report.Exported)
	return result, err
}

func (p *Printer) defaults() {
	if p.Logger == nil {
		p.Logger = NopLogger{}
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	if p.IDGenerator == nil {
		p.IDGenerator = uuid.NewString
	}
	if p.Scale <= 0 {
		p.Scale = IntrinsicScale
	}
	if p.Mode == "" {
		p.Mode = PDFModeRaster
	}
	if p.SlideSanitizer == nil {
		p.SlideSanitizer = p.Sanitizer
	}
}

func (p *Printer) start(ctx context.Context, format Format) (ExportRecord, error) {
	record := ExportRecord{
		ID:        p.IDGenerator(),
		Format:    format,
		State:     StateRunning,
		CreatedAt: p.Now(),
	}
	if p.Tracker == nil {
		return record, nil
	}
	id, err := p.Tracker.Start(ctx, record)
	if err != nil {
		return record, err
	}
	if id != "" {
		record.ID = id
	}
	return record, nil
}

func (p *Printer) fail(ctx context.Context, record ExportRecord, err error) {
	record.State = StateFailed
	record.Error = err.Error()
	record.ErrorKind = KindFromError(err)
	p.Logger.Errorf("carousel %s export %s failed: %v", record.Format, record.ID, err)
	p.finish(ctx, record)
}

func (p *Printer) finish(ctx context.Context, record ExportRecord) {
	record.CompletedAt = p.Now()
	if p.Tracker == nil {
		return
	}
	if err := p.Tracker.Finish(context.WithoutCancel(ctx), record); err != nil {
		p.Logger.Errorf("carousel export %s: record history: %v", record.ID, err)
	}
}

// Triggers binds a printer to its source and sink, giving the editor its
// two entry points and the busy flag.
type Triggers struct {
	Printer *Printer
	Source  Source
	Sink    ArtifactSink
}

// HandlePrint runs the PDF export.
func (t Triggers) HandlePrint(ctx context.Context) error {
	_, err := t.Printer.PrintPDF(ctx, t.Source, t.Sink)
	return err
}

// HandleExportJPGs runs the per-slide export.
func (t Triggers) HandleExportJPGs(ctx context.Context) error {
	_, err := t.Printer.ExportJPGs(ctx, t.Source, t.Sink)
	return err
}

// IsPrinting reports whether an export is in flight.
func (t Triggers) IsPrinting() bool {
	return t.Printer.IsPrinting()
}
