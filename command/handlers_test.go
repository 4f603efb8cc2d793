package command

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-carousel/carousel"
	"github.com/goliatone/go-carousel/query"
	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	goerrors "github.com/goliatone/go-errors"
)

type stubService struct {
	requests []carousel.ExportRequest
	err      error
	records  []carousel.ExportRecord
}

func (s *stubService) Export(ctx context.Context, req carousel.ExportRequest) (carousel.ExportOutput, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return carousel.ExportOutput{}, s.err
	}
	name := carousel.PDFFilename(req.Document)
	if req.Format == carousel.FormatJPG {
		name = carousel.SlideFilename(req.Document.Config.Filename, 0)
	}
	return carousel.ExportOutput{
		Result:    carousel.Result{ID: "exp-" + string(req.Format), Format: req.Format, Filename: req.Document.Config.Filename},
		Artifacts: []carousel.Artifact{{Filename: name, Format: req.Format, Data: []byte(req.Format)}},
	}, nil
}

func (s *stubService) Status(ctx context.Context) carousel.StatusInfo {
	return carousel.StatusInfo{State: carousel.PrintIdle}
}

func (s *stubService) Record(ctx context.Context, id string) (carousel.ExportRecord, error) {
	for _, record := range s.records {
		if record.ID == id {
			return record, nil
		}
	}
	return carousel.ExportRecord{}, carousel.AsGoError(carousel.NewError(carousel.KindNotFound, "export not found", nil))
}

func (s *stubService) History(ctx context.Context, filter carousel.HistoryFilter) ([]carousel.ExportRecord, error) {
	return s.records, nil
}

func testDocument(filename string) carousel.Document {
	return carousel.Document{
		Slides: []carousel.Slide{{Index: 0, Title: "One"}, {Index: 1, Title: "Two"}},
		Config: carousel.Config{Filename: filename},
	}
}

func TestPrintPDFHandler_StoresResults(t *testing.T) {
	svc := &stubService{}
	handler := NewPrintPDFHandler(svc)

	var got carousel.ExportOutput
	result := gcmd.NewResult[carousel.ExportOutput]()
	ctx := gcmd.ContextWithResult(context.Background(), result)

	err := handler.Execute(ctx, PrintPDF{
		Request: carousel.ExportRequest{Document: testDocument("deck.pdf"), Mode: carousel.PDFModePrint},
		Result:  &got,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got.Result.ID != "exp-pdf" {
		t.Fatalf("expected result pointer exp-pdf, got %q", got.Result.ID)
	}
	stored, ok := result.Load()
	if !ok || stored.Result.ID != "exp-pdf" {
		t.Fatalf("expected context result, got %+v", stored.Result)
	}
	if svc.requests[0].Format != carousel.FormatPDF || svc.requests[0].Mode != carousel.PDFModePrint {
		t.Fatalf("unexpected request %+v", svc.requests[0])
	}
}

func TestExportJPGsHandler_MapsErrors(t *testing.T) {
	handler := NewExportJPGsHandler(&stubService{err: carousel.ErrBusy})
	err := handler.Execute(context.Background(), ExportJPGs{Request: carousel.ExportRequest{Document: testDocument("deck")}})
	var ge *goerrors.Error
	if !errors.As(err, &ge) || ge.Category != goerrors.CategoryConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}

	var nilHandler *ExportJPGsHandler
	if err := nilHandler.Execute(context.Background(), ExportJPGs{}); err == nil {
		t.Fatalf("expected error for nil handler")
	}
}

func TestMessages_Validate(t *testing.T) {
	doc := testDocument("deck")
	cases := []struct {
		name string
		msg  interface{ Validate() error }
		ok   bool
	}{
		{"pdf", PrintPDF{Request: carousel.ExportRequest{Document: doc}}, true},
		{"pdf print mode", PrintPDF{Request: carousel.ExportRequest{Document: doc, Mode: carousel.PDFModePrint}}, true},
		{"pdf no slides", PrintPDF{}, false},
		{"pdf bad mode", PrintPDF{Request: carousel.ExportRequest{Document: doc, Mode: "vector"}}, false},
		{"pdf wrong format", PrintPDF{Request: carousel.ExportRequest{Format: carousel.FormatJPG, Document: doc}}, false},
		{"jpgs", ExportJPGs{Request: carousel.ExportRequest{Document: doc}}, true},
		{"jpgs with mode", ExportJPGs{Request: carousel.ExportRequest{Document: doc, Mode: carousel.PDFModeRaster}}, false},
	}
	for _, tc := range cases {
		err := tc.msg.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("%s: unexpected validation result %v", tc.name, err)
		}
	}
}

func TestRegisterHandlers_Dispatch(t *testing.T) {
	svc := &stubService{records: []carousel.ExportRecord{{ID: "exp-1", State: carousel.StateCompleted}}}

	reg := gcmd.NewRegistry()
	subs, err := RegisterHandlers(reg, svc)
	if err != nil {
		t.Fatalf("register handlers: %v", err)
	}
	defer func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	}()

	out, err := dispatcher.DispatchWithResult[ExportJPGs, carousel.ExportOutput](
		context.Background(),
		ExportJPGs{Request: carousel.ExportRequest{Document: testDocument("deck")}},
	)
	if err != nil {
		t.Fatalf("dispatch export jpgs: %v", err)
	}
	if out.Result.Format != carousel.FormatJPG || len(out.Artifacts) != 1 {
		t.Fatalf("unexpected output %+v", out)
	}

	record, err := dispatcher.Query[query.ExportRecord, carousel.ExportRecord](
		context.Background(),
		query.ExportRecord{ExportID: "exp-1"},
	)
	if err != nil {
		t.Fatalf("query record: %v", err)
	}
	if record.State != carousel.StateCompleted {
		t.Fatalf("unexpected record %+v", record)
	}

	status, err := dispatcher.Query[query.ExportStatus, carousel.StatusInfo](context.Background(), query.ExportStatus{})
	if err != nil {
		t.Fatalf("query status: %v", err)
	}
	if status.IsPrinting {
		t.Fatalf("unexpected status %+v", status)
	}

	if _, err := RegisterHandlers(reg, nil); err == nil {
		t.Fatalf("expected error without service")
	}
}
