package carouselapi

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	carouselproxy "github.com/goliatone/go-carousel/adapters/imageproxy"
	"github.com/goliatone/go-carousel/carousel"
	"github.com/goliatone/go-carousel/dom"
	errorslib "github.com/goliatone/go-errors"
)

// DefaultBasePath is where the export endpoints are mounted.
const DefaultBasePath = "/api/carousel"

// Exporter runs exports and reads their history.
type Exporter interface {
	Export(ctx context.Context, req carousel.ExportRequest) (carousel.ExportOutput, error)
	Status(ctx context.Context) carousel.StatusInfo
	Record(ctx context.Context, id string) (carousel.ExportRecord, error)
	History(ctx context.Context, filter carousel.HistoryFilter) ([]carousel.ExportRecord, error)
}

// ImageFetcher fetches images for the same-origin relay.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (carouselproxy.Image, error)
}

// Config configures the shared API controller.
type Config struct {
	Service        Exporter
	Proxy          ImageFetcher
	BasePath       string
	ProxyPath      string
	Logger         carousel.Logger
	RequestDecoder RequestDecoder
	MaxBodyBytes   int64
}

// Controller exposes carousel endpoints for multiple transports.
type Controller struct {
	service        Exporter
	proxy          ImageFetcher
	basePath       string
	proxyPath      string
	logger         carousel.Logger
	requestDecoder RequestDecoder
}

// NewController creates a shared API controller.
func NewController(cfg Config) *Controller {
	basePath := strings.TrimRight(cfg.BasePath, "/")
	if basePath == "" {
		basePath = DefaultBasePath
	}
	proxyPath := strings.TrimRight(cfg.ProxyPath, "/")
	if proxyPath == "" {
		proxyPath = dom.DefaultProxyPath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = carousel.NopLogger{}
	}
	decoder := cfg.RequestDecoder
	if decoder == nil {
		decoder = JSONRequestDecoder{MaxBytes: cfg.MaxBodyBytes}
	}
	return &Controller{
		service:        cfg.Service,
		proxy:          cfg.Proxy,
		basePath:       basePath,
		proxyPath:      proxyPath,
		logger:         logger,
		requestDecoder: decoder,
	}
}

// BasePath returns the configured base path.
func (c *Controller) BasePath() string {
	if c == nil {
		return ""
	}
	return c.basePath
}

// ProxyPath returns the image relay path, empty when no proxy is configured.
func (c *Controller) ProxyPath() string {
	if c == nil || c.proxy == nil {
		return ""
	}
	return c.proxyPath
}

// Serve routes carousel endpoints.
func (c *Controller) Serve(req Request, res Response) {
	if res == nil {
		return
	}
	if c == nil {
		WriteError(res, carousel.NewError(carousel.KindInternal, "handler is nil", nil))
		return
	}
	if req == nil {
		WriteError(res, carousel.NewError(carousel.KindInternal, "request is nil", nil))
		return
	}

	reqPath := strings.TrimRight(req.Path(), "/")
	if c.proxy != nil && reqPath == c.proxyPath {
		if req.Method() != http.MethodGet && req.Method() != http.MethodHead {
			res.SetHeader("Allow", "GET,HEAD")
			res.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		c.handleProxy(req, res)
		return
	}
	if reqPath != c.basePath && !strings.HasPrefix(reqPath, c.basePath+"/") {
		writeNotFound(res)
		return
	}

	suffix := strings.Trim(strings.TrimPrefix(reqPath, c.basePath), "/")
	parts := []string{}
	if suffix != "" {
		parts = strings.Split(suffix, "/")
	}
	if len(parts) == 0 {
		writeNotFound(res)
		return
	}

	switch req.Method() {
	case http.MethodPost:
		if len(parts) != 1 {
			writeNotFound(res)
			return
		}
		switch parts[0] {
		case string(carousel.FormatPDF):
			c.handleExport(req, res, carousel.FormatPDF)
		case string(carousel.FormatJPG):
			c.handleExport(req, res, carousel.FormatJPG)
		default:
			writeNotFound(res)
		}
	case http.MethodGet:
		switch {
		case len(parts) == 1 && parts[0] == "status":
			c.handleStatus(req, res)
		case len(parts) == 1 && parts[0] == "history":
			c.handleHistory(req, res)
		case len(parts) == 2 && parts[0] == "history":
			c.handleRecord(req, res, parts[1])
		default:
			writeNotFound(res)
		}
	default:
		res.SetHeader("Allow", "GET,POST")
		res.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (c *Controller) handleExport(req Request, res Response, format carousel.Format) {
	if c.service == nil {
		WriteError(res, carousel.NewError(carousel.KindNotImpl, "export service not configured", nil))
		return
	}
	decoded, err := c.requestDecoder.Decode(req)
	if err != nil {
		WriteError(res, err)
		return
	}
	if decoded.Format != "" && decoded.Format != format {
		WriteError(res, carousel.NewError(carousel.KindValidation, fmt.Sprintf("format %q does not match endpoint %q", decoded.Format, format), nil))
		return
	}
	decoded.Format = format

	out, err := c.service.Export(req.Context(), decoded)
	if err != nil {
		c.logFailure(format, out.Result.ID, err)
		WriteError(res, err)
		return
	}

	switch format {
	case carousel.FormatPDF:
		c.writePDF(res, out)
	case carousel.FormatJPG:
		c.writeSlides(res, out)
	}
}

func (c *Controller) writePDF(res Response, out carousel.ExportOutput) {
	if len(out.Artifacts) == 0 {
		WriteError(res, carousel.NewError(carousel.KindInternal, "export produced no document", nil))
		return
	}
	artifact := out.Artifacts[0]
	filename := downloadFilename(out.Result.Filename, ".pdf")
	setDownloadHeaders(res, out.Result.ID, filename, "application/pdf")
	res.SetHeader(HeaderPages, strconv.Itoa(out.Result.Pages))
	res.SetHeader("Content-Length", strconv.Itoa(len(artifact.Data)))
	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(artifact.Data); err != nil {
		c.logger.Errorf("carousel export %s: write response: %v", out.Result.ID, err)
	}
}

func (c *Controller) writeSlides(res Response, out carousel.ExportOutput) {
	archive, err := zipArtifacts(out.Artifacts)
	if err != nil {
		WriteError(res, err)
		return
	}
	filename := downloadFilename(out.Result.Filename, ".zip")
	setDownloadHeaders(res, out.Result.ID, filename, "application/zip")
	res.SetHeader(HeaderSkipped, joinInts(out.Result.Slides.SkippedIndexes()))
	res.SetHeader("Content-Length", strconv.Itoa(len(archive)))
	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(archive); err != nil {
		c.logger.Errorf("carousel export %s: write response: %v", out.Result.ID, err)
	}
}

func (c *Controller) handleStatus(req Request, res Response) {
	if c.service == nil {
		writeJSON(res, http.StatusOK, carousel.StatusInfo{State: carousel.PrintIdle})
		return
	}
	writeJSON(res, http.StatusOK, c.service.Status(req.Context()))
}

func (c *Controller) handleHistory(req Request, res Response) {
	if c.service == nil {
		WriteError(res, carousel.NewError(carousel.KindNotImpl, "export service not configured", nil))
		return
	}
	filter, err := parseHistoryFilter(req)
	if err != nil {
		WriteError(res, err)
		return
	}
	records, err := c.service.History(req.Context(), filter)
	if err != nil {
		WriteError(res, err)
		return
	}
	payload := HistoryResponse{Records: make([]RecordResponse, 0, len(records))}
	for _, record := range records {
		payload.Records = append(payload.Records, toRecordResponse(record))
	}
	writeJSON(res, http.StatusOK, payload)
}

func (c *Controller) handleRecord(req Request, res Response, id string) {
	if c.service == nil {
		WriteError(res, carousel.NewError(carousel.KindNotImpl, "export service not configured", nil))
		return
	}
	record, err := c.service.Record(req.Context(), id)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, toRecordResponse(record))
}

func (c *Controller) handleProxy(req Request, res Response) {
	img, err := c.proxy.Fetch(req.Context(), req.Query("url"))
	if err != nil {
		WriteError(res, err)
		return
	}
	res.SetHeader("Content-Type", img.ContentType)
	res.SetHeader("Content-Length", strconv.Itoa(len(img.Data)))
	res.SetHeader("X-Content-Type-Options", "nosniff")
	res.WriteHeader(http.StatusOK)
	if req.Method() == http.MethodGet {
		_, _ = res.Write(img.Data)
	}
}

func (c *Controller) logFailure(format carousel.Format, id string, err error) {
	switch carousel.KindFromError(err) {
	case carousel.KindValidation, carousel.KindBusy:
		c.logger.Debugf("carousel %s export %s rejected: %v", format, id, err)
	default:
		c.logger.Errorf("carousel %s export %s failed: %v", format, id, err)
	}
}

func writeNotFound(res Response) {
	res.SetHeader("Content-Type", "text/plain; charset=utf-8")
	res.SetHeader("X-Content-Type-Options", "nosniff")
	res.WriteHeader(http.StatusNotFound)
	_, _ = res.Write([]byte("404 page not found\n"))
}

// WriteError writes err as a JSON error body with a matching status.
func WriteError(res Response, err error) {
	if err == nil {
		res.WriteHeader(http.StatusNoContent)
		return
	}
	ge := carousel.AsGoError(err)
	writeJSON(res, statusForError(ge), ErrorResponse{
		Error: ErrorBody{
			Message: ge.Message,
			Code:    ge.TextCode,
		},
	})
}

func writeJSON(res Response, status int, payload any) {
	_ = res.WriteJSON(status, payload)
}

func statusForError(err *errorslib.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	switch err.TextCode {
	case "not_implemented":
		return http.StatusNotImplemented
	case "target_missing":
		return http.StatusUnprocessableEntity
	case "timeout":
		return http.StatusGatewayTimeout
	case "canceled":
		return http.StatusConflict
	}
	switch err.Category {
	case errorslib.CategoryValidation, errorslib.CategoryBadInput:
		return http.StatusBadRequest
	case errorslib.CategoryNotFound:
		return http.StatusNotFound
	case errorslib.CategoryConflict:
		return http.StatusConflict
	case errorslib.CategoryExternal:
		return http.StatusBadGateway
	case errorslib.CategoryOperation:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func setDownloadHeaders(res Response, exportID, filename, contentType string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	res.SetHeader("Content-Type", contentType)
	res.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if exportID != "" {
		res.SetHeader(HeaderExportID, exportID)
	}
}

// downloadFilename makes a header-safe name ending in ext.
func downloadFilename(filename, ext string) string {
	name := strings.TrimSpace(filename)
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "carousel"
	}
	if !strings.EqualFold(path.Ext(name), ext) {
		name += ext
	}
	return name
}

func zipArtifacts(artifacts []carousel.Artifact) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, artifact := range artifacts {
		name := path.Base(strings.ReplaceAll(artifact.Filename, "\\", "/"))
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		if err != nil {
			return nil, carousel.NewError(carousel.KindEncoding, "create archive entry", err)
		}
		if _, err := w.Write(artifact.Data); err != nil {
			return nil, carousel.NewError(carousel.KindEncoding, "write archive entry", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, carousel.NewError(carousel.KindEncoding, "close archive", err)
	}
	return buf.Bytes(), nil
}

func joinInts(values []int) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.Itoa(v))
	}
	return strings.Join(parts, ",")
}
