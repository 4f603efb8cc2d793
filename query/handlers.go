package query

import (
	"context"

	"github.com/goliatone/go-carousel/carousel"
	"github.com/goliatone/go-errors"
)

// Reader reads export state and history.
type Reader interface {
	Status(ctx context.Context) carousel.StatusInfo
	Record(ctx context.Context, id string) (carousel.ExportRecord, error)
	History(ctx context.Context, filter carousel.HistoryFilter) ([]carousel.ExportRecord, error)
}

// ExportStatusHandler reports the printer state.
type ExportStatusHandler struct {
	Service Reader
}

func NewExportStatusHandler(svc Reader) *ExportStatusHandler {
	return &ExportStatusHandler{Service: svc}
}

func (h *ExportStatusHandler) Query(ctx context.Context, msg ExportStatus) (carousel.StatusInfo, error) {
	if h == nil || h.Service == nil {
		return carousel.StatusInfo{}, errors.New("carousel service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.Status(ctx), nil
}

// ExportRecordHandler returns a single history record.
type ExportRecordHandler struct {
	Service Reader
}

func NewExportRecordHandler(svc Reader) *ExportRecordHandler {
	return &ExportRecordHandler{Service: svc}
}

func (h *ExportRecordHandler) Query(ctx context.Context, msg ExportRecord) (carousel.ExportRecord, error) {
	if h == nil || h.Service == nil {
		return carousel.ExportRecord{}, errors.New("carousel service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.Record(ctx, msg.ExportID)
}

// ExportHistoryHandler returns export history.
type ExportHistoryHandler struct {
	Service Reader
}

func NewExportHistoryHandler(svc Reader) *ExportHistoryHandler {
	return &ExportHistoryHandler{Service: svc}
}

func (h *ExportHistoryHandler) Query(ctx context.Context, msg ExportHistory) ([]carousel.ExportRecord, error) {
	if h == nil || h.Service == nil {
		return nil, errors.New("carousel service is required", errors.CategoryInternal).
			WithTextCode("SERVICE_REQUIRED")
	}
	return h.Service.History(ctx, msg.Filter)
}
