package carouselapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-carousel/carousel"
)

// DefaultMaxBodyBytes bounds export request bodies. Surface markup with
// inlined images can be large.
const DefaultMaxBodyBytes int64 = 32 << 20

// Request provides minimal request access for transport adapters.
type Request interface {
	Context() context.Context
	Method() string
	Path() string
	Header(name string) string
	Query(name string) string
	Body() io.ReadCloser
}

// RequestDecoder parses a request body into an export request.
type RequestDecoder interface {
	Decode(req Request) (carousel.ExportRequest, error)
}

// JSONRequestDecoder decodes `{document, html, mode}` bodies.
type JSONRequestDecoder struct {
	MaxBytes int64
}

type requestPayload struct {
	Format   carousel.Format   `json:"format,omitempty"`
	Document carousel.Document `json:"document"`
	HTML     string            `json:"html,omitempty"`
	Mode     carousel.PDFMode  `json:"mode,omitempty"`
}

// Decode reads and decodes the request body.
func (d JSONRequestDecoder) Decode(req Request) (carousel.ExportRequest, error) {
	if req == nil {
		return carousel.ExportRequest{}, carousel.NewError(carousel.KindInternal, "request is nil", nil)
	}
	body := req.Body()
	if body == nil {
		return carousel.ExportRequest{}, carousel.NewError(carousel.KindValidation, "request body is required", nil)
	}
	defer body.Close()

	max := d.MaxBytes
	if max <= 0 {
		max = DefaultMaxBodyBytes
	}
	raw, err := io.ReadAll(io.LimitReader(body, max+1))
	if err != nil {
		return carousel.ExportRequest{}, carousel.NewError(carousel.KindValidation, "read request body", err)
	}
	if int64(len(raw)) > max {
		return carousel.ExportRequest{}, carousel.NewError(carousel.KindValidation, fmt.Sprintf("request body exceeds %d bytes", max), nil)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return carousel.ExportRequest{}, carousel.NewError(carousel.KindValidation, "request body is required", nil)
	}

	var payload requestPayload
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		return carousel.ExportRequest{}, carousel.NewError(carousel.KindValidation, "invalid request payload", err)
	}

	return carousel.ExportRequest{
		Format:   carousel.Format(strings.ToLower(strings.TrimSpace(string(payload.Format)))),
		Document: payload.Document,
		Markup:   payload.HTML,
		Mode:     payload.Mode,
	}, nil
}

func parseHistoryFilter(req Request) (carousel.HistoryFilter, error) {
	filter := carousel.HistoryFilter{
		Format: carousel.Format(strings.ToLower(req.Query("format"))),
		State:  carousel.ExportState(strings.ToLower(req.Query("state"))),
	}
	if since := req.Query("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return carousel.HistoryFilter{}, carousel.NewError(carousel.KindValidation, "invalid since timestamp", err)
		}
		filter.Since = ts
	}
	if until := req.Query("until"); until != "" {
		ts, err := time.Parse(time.RFC3339, until)
		if err != nil {
			return carousel.HistoryFilter{}, carousel.NewError(carousel.KindValidation, "invalid until timestamp", err)
		}
		filter.Until = ts
	}
	if limit := req.Query("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return carousel.HistoryFilter{}, carousel.NewError(carousel.KindValidation, "invalid limit", err)
		}
		filter.Limit = n
	}
	return filter, nil
}
