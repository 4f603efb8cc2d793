package query

import (
	"strings"

	"github.com/goliatone/go-carousel/carousel"
	"github.com/goliatone/go-errors"
)

// ExportStatus asks whether an export is running.
type ExportStatus struct{}

func (ExportStatus) Type() string { return "carousel:status" }

func (ExportStatus) Validate() error { return nil }

// ExportRecord requests one history record.
type ExportRecord struct {
	ExportID string
}

func (ExportRecord) Type() string { return "carousel:record" }

func (msg ExportRecord) Validate() error {
	if strings.TrimSpace(msg.ExportID) == "" {
		return errors.New("export ID is required", errors.CategoryValidation).
			WithTextCode("EXPORT_ID_REQUIRED")
	}
	return nil
}

// ExportHistory requests past runs.
type ExportHistory struct {
	Filter carousel.HistoryFilter
}

func (ExportHistory) Type() string { return "carousel:history" }

func (msg ExportHistory) Validate() error {
	if msg.Filter.Limit < 0 {
		return errors.New("limit must not be negative", errors.CategoryValidation).
			WithTextCode("LIMIT_INVALID")
	}
	if !msg.Filter.Since.IsZero() && !msg.Filter.Until.IsZero() && msg.Filter.Until.Before(msg.Filter.Since) {
		return errors.New("until is before since", errors.CategoryValidation).
			WithTextCode("RANGE_INVALID")
	}
	return nil
}
