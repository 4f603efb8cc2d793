package command

import (
	"context"

	"github.com/goliatone/go-carousel/carousel"
	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
)

// Exporter runs one export.
type Exporter interface {
	Export(ctx context.Context, req carousel.ExportRequest) (carousel.ExportOutput, error)
}

// PrintPDFHandler handles PDF exports.
type PrintPDFHandler struct {
	Service Exporter
}

func NewPrintPDFHandler(svc Exporter) *PrintPDFHandler {
	return &PrintPDFHandler{Service: svc}
}

func (h *PrintPDFHandler) Execute(ctx context.Context, msg PrintPDF) error {
	if h == nil || h.Service == nil {
		return errors.New("carousel service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	req := msg.Request
	req.Format = carousel.FormatPDF
	return run(ctx, h.Service, req, msg.Result)
}

// ExportJPGsHandler handles per-slide exports.
type ExportJPGsHandler struct {
	Service Exporter
}

func NewExportJPGsHandler(svc Exporter) *ExportJPGsHandler {
	return &ExportJPGsHandler{Service: svc}
}

func (h *ExportJPGsHandler) Execute(ctx context.Context, msg ExportJPGs) error {
	if h == nil || h.Service == nil {
		return errors.New("carousel service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	req := msg.Request
	req.Format = carousel.FormatJPG
	return run(ctx, h.Service, req, msg.Result)
}

func run(ctx context.Context, svc Exporter, req carousel.ExportRequest, result *carousel.ExportOutput) error {
	out, err := svc.Export(ctx, req)
	if err != nil {
		return carousel.AsGoError(err)
	}
	if result != nil {
		*result = out
	}
	if res := gcmd.ResultFromContext[carousel.ExportOutput](ctx); res != nil {
		res.Store(out)
	}
	return nil
}
