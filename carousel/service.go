package carousel

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ExportRequest asks for one export run.
type ExportRequest struct {
	Format   Format   `json:"format"`
	Document Document `json:"document"`
	// Markup is the live surface. When empty the surface is rendered from
	// Document.
	Markup string  `json:"html,omitempty"`
	Mode   PDFMode `json:"mode,omitempty"`
}

// Validate checks the request can be run.
func (r ExportRequest) Validate() error {
	switch r.Format {
	case FormatPDF, FormatJPG:
	default:
		return NewError(KindValidation, fmt.Sprintf("unsupported format %q", r.Format), nil)
	}
	if r.Mode != "" {
		if _, err := ParsePDFMode(string(r.Mode)); err != nil {
			return err
		}
	}
	return r.Document.Validate()
}

// ExportOutput is a finished run with its artifacts.
type ExportOutput struct {
	Result    Result
	Artifacts []Artifact
}

// StatusInfo reports the orchestrator state.
type StatusInfo struct {
	State      PrintState `json:"state"`
	IsPrinting bool       `json:"is_printing"`
}

// SurfaceRenderer builds a live surface tree from a document.
type SurfaceRenderer interface {
	Parse(ctx context.Context, doc Document) (*html.Node, error)
}

// Service runs exports for transports that hold a document rather than a
// mounted surface. Artifacts are collected in memory, returned, and copied
// to the archive sink when one is configured.
type Service struct {
	Printer  *Printer
	Surfaces SurfaceRenderer
	// Archive returns the sink that keeps a copy of the artifacts of run id.
	Archive func(exportID string) ArtifactSink
	Logger  Logger
}

// NewService creates a service over printer.
func NewService(printer *Printer, surfaces SurfaceRenderer) *Service {
	return &Service{Printer: printer, Surfaces: surfaces, Logger: NopLogger{}}
}

// Export runs req and returns the produced artifacts.
func (s *Service) Export(ctx context.Context, req ExportRequest) (ExportOutput, error) {
	if s == nil || s.Printer == nil {
		return ExportOutput{}, AsGoError(NewError(KindNotImpl, "printer not configured", nil))
	}
	if err := req.Validate(); err != nil {
		return ExportOutput{}, AsGoError(err)
	}

	src, err := s.source(ctx, req)
	if err != nil {
		return ExportOutput{}, AsGoError(err)
	}

	sink := NewMemorySink()
	var result Result
	switch req.Format {
	case FormatPDF:
		result, err = s.Printer.PrintPDFWithMode(ctx, src, sink, req.Mode)
	case FormatJPG:
		result, err = s.Printer.ExportJPGs(ctx, src, sink)
	}
	out := ExportOutput{Result: result, Artifacts: sink.Artifacts()}
	if err != nil {
		return out, err
	}

	s.archive(ctx, out)
	return out, nil
}

// Status reports whether an export is running.
func (s *Service) Status(ctx context.Context) StatusInfo {
	_ = ctx
	if s == nil || s.Printer == nil {
		return StatusInfo{State: PrintIdle}
	}
	return StatusInfo{State: s.Printer.State(), IsPrinting: s.Printer.IsPrinting()}
}

// Record returns a history record.
func (s *Service) Record(ctx context.Context, id string) (ExportRecord, error) {
	tracker, err := s.tracker()
	if err != nil {
		return ExportRecord{}, err
	}
	if strings.TrimSpace(id) == "" {
		return ExportRecord{}, AsGoError(NewError(KindValidation, "export ID is required", nil))
	}
	record, err := tracker.Status(ctx, id)
	if err != nil {
		return ExportRecord{}, AsGoError(err)
	}
	return record, nil
}

// History lists past runs.
func (s *Service) History(ctx context.Context, filter HistoryFilter) ([]ExportRecord, error) {
	tracker, err := s.tracker()
	if err != nil {
		return nil, err
	}
	records, err := tracker.List(ctx, filter)
	if err != nil {
		return nil, AsGoError(err)
	}
	return records, nil
}

func (s *Service) tracker() (Tracker, error) {
	if s == nil || s.Printer == nil || s.Printer.Tracker == nil {
		return nil, AsGoError(NewError(KindNotImpl, "export history not configured", nil))
	}
	return s.Printer.Tracker, nil
}

func (s *Service) source(ctx context.Context, req ExportRequest) (Source, error) {
	if strings.TrimSpace(req.Markup) != "" {
		root, err := html.Parse(strings.NewReader(req.Markup))
		if err != nil {
			return nil, NewError(KindValidation, "invalid surface markup", err)
		}
		return StaticSource{Document: req.Document, Root: root}, nil
	}
	if s.Surfaces == nil {
		return nil, NewError(KindValidation, "surface markup is required", nil)
	}
	root, err := s.Surfaces.Parse(ctx, req.Document)
	if err != nil {
		return nil, err
	}
	return StaticSource{Document: req.Document, Root: root}, nil
}

func (s *Service) archive(ctx context.Context, out ExportOutput) {
	if s.Archive == nil || out.Result.ID == "" {
		return
	}
	sink := s.Archive(out.Result.ID)
	if sink == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, artifact := range out.Artifacts {
		if err := sink.Save(ctx, artifact); err != nil {
			s.logger().Errorf("carousel export %s: archive %s: %v", out.Result.ID, artifact.Filename, err)
		}
	}
}

func (s *Service) logger() Logger {
	if s.Logger == nil {
		return NopLogger{}
	}
	return s.Logger
}
