package command

import (
	"github.com/goliatone/go-carousel/carousel"
	"github.com/goliatone/go-errors"
)

// PrintPDF exports a carousel as one PDF.
type PrintPDF struct {
	Request carousel.ExportRequest
	Result  *carousel.ExportOutput
}

func (PrintPDF) Type() string { return "carousel:print_pdf" }

func (msg PrintPDF) Validate() error {
	return validateRequest(msg.Request, carousel.FormatPDF)
}

// ExportJPGs exports every slide of a carousel as a JPEG.
type ExportJPGs struct {
	Request carousel.ExportRequest
	Result  *carousel.ExportOutput
}

func (ExportJPGs) Type() string { return "carousel:export_jpgs" }

func (msg ExportJPGs) Validate() error {
	if msg.Request.Mode != "" {
		return errors.New("mode only applies to pdf exports", errors.CategoryValidation).
			WithTextCode("MODE_NOT_ALLOWED")
	}
	return validateRequest(msg.Request, carousel.FormatJPG)
}

func validateRequest(req carousel.ExportRequest, format carousel.Format) error {
	if req.Format != "" && req.Format != format {
		return errors.New("request format does not match command", errors.CategoryValidation).
			WithTextCode("FORMAT_MISMATCH")
	}
	if len(req.Document.Slides) == 0 {
		return errors.New("document has no slides", errors.CategoryValidation).
			WithTextCode("SLIDES_REQUIRED")
	}
	if req.Mode != "" {
		if _, err := carousel.ParsePDFMode(string(req.Mode)); err != nil {
			return errors.Wrap(err, errors.CategoryValidation, "invalid pdf mode").
				WithTextCode("MODE_INVALID")
		}
	}
	return nil
}
