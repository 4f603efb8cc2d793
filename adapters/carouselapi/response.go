package carouselapi

import (
	"io"
	"time"

	"github.com/goliatone/go-carousel/carousel"
)

// Response provides a minimal response interface for transport adapters.
type Response interface {
	SetHeader(name, value string)
	DelHeader(name string)
	WriteHeader(status int)
	Write(data []byte) (int, error)
	WriteJSON(status int, payload any) error
	Writer() (io.Writer, bool)
}

// Response headers.
const (
	HeaderExportID = "X-Carousel-Export-Id"
	HeaderPages    = "X-Carousel-Pages"
	HeaderSkipped  = "X-Carousel-Skipped"
)

// ErrorResponse describes JSON error responses.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains error details.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// RecordResponse is the JSON shape of a history record.
type RecordResponse struct {
	ID          string               `json:"id"`
	Format      carousel.Format      `json:"format"`
	State       carousel.ExportState `json:"state"`
	Filename    string               `json:"filename"`
	Slides      int                  `json:"slides"`
	Pages       int                  `json:"pages"`
	Artifacts   []string             `json:"artifacts,omitempty"`
	Skipped     []int                `json:"skipped,omitempty"`
	Error       string               `json:"error,omitempty"`
	ErrorKind   carousel.ErrorKind   `json:"error_kind,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

// HistoryResponse lists history records.
type HistoryResponse struct {
	Records []RecordResponse `json:"records"`
}

func toRecordResponse(record carousel.ExportRecord) RecordResponse {
	out := RecordResponse{
		ID:        record.ID,
		Format:    record.Format,
		State:     record.State,
		Filename:  record.Filename,
		Slides:    record.Slides,
		Pages:     record.Pages,
		Artifacts: record.Artifacts,
		Skipped:   record.Skipped,
		Error:     record.Error,
		ErrorKind: record.ErrorKind,
		CreatedAt: record.CreatedAt,
	}
	if !record.CompletedAt.IsZero() {
		completed := record.CompletedAt
		out.CompletedAt = &completed
	}
	return out
}
