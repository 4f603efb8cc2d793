package carouselrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/goliatone/go-carousel/adapters/carouselapi"
	carouselhttp "github.com/goliatone/go-carousel/adapters/http"
	"github.com/goliatone/go-carousel/carousel"
	"github.com/goliatone/go-router"
)

type stubExporter struct {
	out     carousel.ExportOutput
	err     error
	records []carousel.ExportRecord
}

func (s *stubExporter) Export(ctx context.Context, req carousel.ExportRequest) (carousel.ExportOutput, error) {
	return s.out, s.err
}

func (s *stubExporter) Status(ctx context.Context) carousel.StatusInfo {
	return carousel.StatusInfo{State: carousel.PrintIdle}
}

func (s *stubExporter) Record(ctx context.Context, id string) (carousel.ExportRecord, error) {
	for _, record := range s.records {
		if record.ID == id {
			return record, nil
		}
	}
	return carousel.ExportRecord{}, carousel.NewError(carousel.KindNotFound, "export not found", nil)
}

func (s *stubExporter) History(ctx context.Context, filter carousel.HistoryFilter) ([]carousel.ExportRecord, error) {
	return s.records, nil
}

const exportBody = `{"document":{"slides":[{"index":0}],"config":{"filename":"deck"}}}`

func assertParity(t *testing.T, rec *httptest.ResponseRecorder, routerRec *httptest.ResponseRecorder, headers ...string) {
	t.Helper()
	if rec.Code != routerRec.Code {
		t.Fatalf("status mismatch: http=%d router=%d", rec.Code, routerRec.Code)
	}
	for _, name := range append([]string{"Content-Type"}, headers...) {
		if rec.Header().Get(name) != routerRec.Header().Get(name) {
			t.Fatalf("%s mismatch: http=%q router=%q", name, rec.Header().Get(name), routerRec.Header().Get(name))
		}
	}
	if !bytes.Equal(rec.Body.Bytes(), routerRec.Body.Bytes()) {
		t.Fatalf("body mismatch: http=%q router=%q", rec.Body.String(), routerRec.Body.String())
	}
}

func TestTransportParity_PDF(t *testing.T) {
	cfg := carouselapi.Config{Service: &stubExporter{out: carousel.ExportOutput{
		Result:    carousel.Result{ID: "exp-1", Format: carousel.FormatPDF, Filename: "deck", Pages: 2},
		Artifacts: []carousel.Artifact{{Filename: "deck", Data: []byte("%PDF-1.7 test")}},
	}}}

	rec := httptest.NewRecorder()
	carouselhttp.NewHandler(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/carousel/pdf", strings.NewReader(exportBody)))

	routerCtx := newTestHTTPContext(http.MethodPost, "/api/carousel/pdf", []byte(exportBody), nil, nil)
	if err := NewHandler(cfg).Handle(routerCtx); err != nil {
		t.Fatalf("router handle: %v", err)
	}

	assertParity(t, rec, routerCtx.recorder, "Content-Disposition", carouselapi.HeaderExportID, carouselapi.HeaderPages)
	if rec.Code != http.StatusOK || rec.Body.String() != "%PDF-1.7 test" {
		t.Fatalf("unexpected pdf response %d %q", rec.Code, rec.Body.String())
	}
}

func TestTransportParity_Errors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"busy", carousel.ErrBusy, http.StatusConflict},
		{"resource", carousel.NewError(carousel.KindResourceLoad, "image returned 404", nil), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := carouselapi.Config{Service: &stubExporter{err: tc.err}}

			rec := httptest.NewRecorder()
			carouselhttp.NewHandler(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/carousel/jpg", strings.NewReader(exportBody)))

			routerCtx := newTestContext(http.MethodPost, "/api/carousel/jpg", []byte(exportBody), nil, nil)
			if err := NewHandler(cfg).Handle(routerCtx); err != nil {
				t.Fatalf("router handle: %v", err)
			}

			assertParity(t, rec, routerCtx.recorder)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, rec.Code)
			}
			var payload carouselapi.ErrorResponse
			if err := json.Unmarshal(routerCtx.recorder.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode router response: %v", err)
			}
			if payload.Error.Code != string(carousel.KindFromError(tc.err)) {
				t.Fatalf("unexpected error code %q", payload.Error.Code)
			}
		})
	}
}

func TestTransportParity_History(t *testing.T) {
	cfg := carouselapi.Config{Service: &stubExporter{records: []carousel.ExportRecord{
		{ID: "a", Format: carousel.FormatPDF, State: carousel.StateFailed, Error: "boom", ErrorKind: carousel.KindCanvas},
	}}}

	for _, path := range []string{"/api/carousel/history", "/api/carousel/history/a", "/api/carousel/history/zzz", "/api/carousel/status"} {
		rec := httptest.NewRecorder()
		carouselhttp.NewHandler(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		routerCtx := newTestContext(http.MethodGet, path, nil, nil, nil)
		if err := NewHandler(cfg).Handle(routerCtx); err != nil {
			t.Fatalf("router handle: %v", err)
		}
		assertParity(t, rec, routerCtx.recorder)
	}
}

func TestHandler_NilHandler(t *testing.T) {
	var h *Handler
	routerCtx := newTestContext(http.MethodGet, "/api/carousel/status", nil, nil, nil)
	if err := h.Handle(routerCtx); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if routerCtx.recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", routerCtx.recorder.Code)
	}
}

type testContext struct {
	method        string
	path          string
	body          []byte
	query         map[string]string
	headers       map[string]string
	params        map[string]string
	locals        map[any]any
	ctx           context.Context
	recorder      *httptest.ResponseRecorder
	statusWritten bool
	status        int
	sendCalled    bool
}

func newTestContext(method, path string, body []byte, headers map[string]string, query map[string]string) *testContext {
	if headers == nil {
		headers = make(map[string]string)
	}
	if query == nil {
		query = make(map[string]string)
	}
	return &testContext{
		method:   method,
		path:     path,
		body:     body,
		query:    query,
		headers:  headers,
		params:   make(map[string]string),
		locals:   make(map[any]any),
		ctx:      context.Background(),
		recorder: httptest.NewRecorder(),
	}
}

func (c *testContext) Bind(v any) error {
	if len(c.body) == 0 {
		return nil
	}
	return json.Unmarshal(c.body, v)
}

func (c *testContext) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c *testContext) SetContext(ctx context.Context) {
	c.ctx = ctx
}

func (c *testContext) Next() error { return nil }

func (c *testContext) RouteName() string { return "" }

func (c *testContext) RouteParams() map[string]string { return c.params }

func (c *testContext) Method() string { return c.method }

func (c *testContext) Path() string { return c.path }

func (c *testContext) Param(name string, defaultValue ...string) string {
	if val, ok := c.params[name]; ok {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) ParamsInt(key string, defaultValue int) int {
	val := c.Param(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (c *testContext) Query(name string, defaultValue ...string) string {
	if val, ok := c.query[name]; ok {
		return val
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) QueryValues(name string) []string {
	if val, ok := c.query[name]; ok {
		return []string{val}
	}
	return nil
}

func (c *testContext) QueryInt(name string, defaultValue int) int {
	val := c.Query(name)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func (c *testContext) Queries() map[string]string { return c.query }

func (c *testContext) Body() []byte { return c.body }

func (c *testContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		c.locals[key] = value[0]
		return value[0]
	}
	return c.locals[key]
}

func (c *testContext) LocalsMerge(key any, value map[string]any) map[string]any {
	merged, _ := c.locals[key].(map[string]any)
	if merged == nil {
		merged = map[string]any{}
	}
	for k, v := range value {
		merged[k] = v
	}
	c.locals[key] = merged
	return merged
}

func (c *testContext) Render(name string, bind any, layouts ...string) error {
	return nil
}

func (c *testContext) Cookie(cookie *router.Cookie) {}

func (c *testContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) CookieParser(out any) error { return nil }

func (c *testContext) Redirect(location string, status ...int) error {
	code := http.StatusFound
	if len(status) > 0 {
		code = status[0]
	}
	c.SetHeader("Location", location)
	c.writeHeader(code)
	return nil
}

func (c *testContext) RedirectToRoute(routeName string, params router.ViewContext, status ...int) error {
	return nil
}

func (c *testContext) RedirectBack(fallback string, status ...int) error {
	return nil
}

func (c *testContext) Header(name string) string {
	return c.headers[name]
}

func (c *testContext) Referer() string { return "" }

func (c *testContext) OriginalURL() string { return c.path }

func (c *testContext) FormFile(key string) (*multipart.FileHeader, error) {
	return nil, nil
}

func (c *testContext) FormValue(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *testContext) IP() string { return "127.0.0.1" }

func (c *testContext) Status(code int) router.Context {
	c.writeHeader(code)
	return c
}

func (c *testContext) Send(body []byte) error {
	c.sendCalled = true
	if !c.statusWritten {
		c.writeHeader(http.StatusOK)
	}
	_, err := c.recorder.Write(body)
	return err
}

func (c *testContext) SendString(body string) error {
	return c.Send([]byte(body))
}

func (c *testContext) SendStatus(code int) error {
	c.writeHeader(code)
	return nil
}

func (c *testContext) JSON(code int, v any) error {
	c.recorder.Header().Set("Content-Type", "application/json")
	c.writeHeader(code)
	return json.NewEncoder(c.recorder).Encode(v)
}

func (c *testContext) SendStream(r io.Reader) error {
	if !c.statusWritten {
		c.writeHeader(http.StatusOK)
	}
	_, err := io.Copy(c.recorder, r)
	return err
}

func (c *testContext) NoContent(code int) error {
	c.writeHeader(code)
	return nil
}

func (c *testContext) SetHeader(key, val string) router.Context {
	c.recorder.Header().Set(key, val)
	return c
}

func (c *testContext) Set(key string, value any) {
	c.locals[key] = value
}

func (c *testContext) Get(key string, def any) any {
	if val, ok := c.locals[key]; ok {
		return val
	}
	return def
}

func (c *testContext) GetString(key string, def string) string {
	if val, ok := c.locals[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return def
}

func (c *testContext) GetInt(key string, def int) int {
	if val, ok := c.locals[key]; ok {
		if num, ok := val.(int); ok {
			return num
		}
	}
	return def
}

func (c *testContext) GetBool(key string, def bool) bool {
	if val, ok := c.locals[key]; ok {
		if flag, ok := val.(bool); ok {
			return flag
		}
	}
	return def
}

func (c *testContext) writeHeader(code int) {
	if c.statusWritten {
		c.status = code
		return
	}
	c.statusWritten = true
	c.status = code
	c.recorder.WriteHeader(code)
}

type testHTTPContext struct {
	*testContext
	req *http.Request
}

func newTestHTTPContext(method, path string, body []byte, headers map[string]string, query map[string]string) *testHTTPContext {
	base := newTestContext(method, path, body, headers, query)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for key, value := range headers {
		req.Header.Set(key, value)
		base.headers[key] = value
	}
	base.ctx = req.Context()
	return &testHTTPContext{testContext: base, req: req}
}

func (c *testHTTPContext) Request() *http.Request { return c.req }

func (c *testHTTPContext) Response() http.ResponseWriter { return c.recorder }

var _ router.Context = (*testContext)(nil)
var _ router.Context = (*testHTTPContext)(nil)
var _ router.HTTPContext = (*testHTTPContext)(nil)
