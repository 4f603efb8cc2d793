package trackerbun

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/goliatone/go-carousel/carousel"
	"github.com/google/go-cmp/cmp"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func TestTracker_StartFinishStatus(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t))
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	id, err := tracker.Start(ctx, carousel.ExportRecord{
		Format:    carousel.FormatJPG,
		CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if id == "" {
		t.Fatalf("expected record id")
	}

	running, err := tracker.Status(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if running.State != carousel.StateRunning {
		t.Fatalf("expected running state, got %s", running.State)
	}

	completed := created.Add(2 * time.Second)
	err = tracker.Finish(ctx, carousel.ExportRecord{
		ID:          id,
		Format:      carousel.FormatJPG,
		State:       carousel.StatePartial,
		Filename:    "deck",
		Slides:      3,
		Artifacts:   []string{"deck-slide-1.jpg", "deck-slide-3.jpg"},
		Skipped:     []int{1},
		CompletedAt: completed,
	})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err := tracker.Status(ctx, id)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.State != carousel.StatePartial || got.Slides != 3 || got.Filename != "deck" {
		t.Fatalf("unexpected record %+v", got)
	}
	if diff := cmp.Diff([]string{"deck-slide-1.jpg", "deck-slide-3.jpg"}, got.Artifacts); diff != "" {
		t.Fatalf("artifacts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1}, got.Skipped); diff != "" {
		t.Fatalf("skipped mismatch (-want +got):\n%s", diff)
	}
	if !got.CompletedAt.Equal(completed) {
		t.Fatalf("expected completed_at %v, got %v", completed, got.CompletedAt)
	}
}

func TestTracker_FailureRecordsKind(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t))

	id, err := tracker.Start(ctx, carousel.ExportRecord{ID: "run-1", Format: carousel.FormatPDF})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	err = tracker.Finish(ctx, carousel.ExportRecord{
		ID:        id,
		Format:    carousel.FormatPDF,
		State:     carousel.StateFailed,
		Error:     "image failed to load",
		ErrorKind: carousel.KindResourceLoad,
	})
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	got, err := tracker.Status(ctx, "run-1")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.ErrorKind != carousel.KindResourceLoad || got.CompletedAt.IsZero() {
		t.Fatalf("unexpected record %+v", got)
	}
}

func TestTracker_ListFilters(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t))
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	seed := []carousel.ExportRecord{
		{ID: "a", Format: carousel.FormatPDF, State: carousel.StateCompleted, CreatedAt: base},
		{ID: "b", Format: carousel.FormatJPG, State: carousel.StatePartial, CreatedAt: base.Add(time.Hour)},
		{ID: "c", Format: carousel.FormatPDF, State: carousel.StateFailed, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, record := range seed {
		if _, err := tracker.Start(ctx, record); err != nil {
			t.Fatalf("start %s: %v", record.ID, err)
		}
	}

	all, err := tracker.List(ctx, carousel.HistoryFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if ids := recordIDs(all); !cmp.Equal(ids, []string{"c", "b", "a"}) {
		t.Fatalf("expected newest first, got %v", ids)
	}

	pdfs, err := tracker.List(ctx, carousel.HistoryFilter{Format: carousel.FormatPDF, Limit: 1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if ids := recordIDs(pdfs); !cmp.Equal(ids, []string{"c"}) {
		t.Fatalf("expected latest pdf only, got %v", ids)
	}

	since, err := tracker.List(ctx, carousel.HistoryFilter{Since: base.Add(30 * time.Minute), State: carousel.StatePartial})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if ids := recordIDs(since); !cmp.Equal(ids, []string{"b"}) {
		t.Fatalf("expected b, got %v", ids)
	}
}

func TestTracker_NotFoundAndDelete(t *testing.T) {
	ctx := context.Background()
	tracker := NewTracker(newTestDB(t))

	if err := tracker.Finish(ctx, carousel.ExportRecord{ID: "missing"}); carousel.KindFromError(err) != carousel.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
	if _, err := tracker.Start(ctx, carousel.ExportRecord{ID: "x", Format: carousel.FormatPDF}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := tracker.Delete(ctx, "x"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := tracker.Status(ctx, "x"); carousel.KindFromError(err) != carousel.KindNotFound {
		t.Fatalf("expected not_found after delete, got %v", err)
	}
}

func TestTracker_NotConfigured(t *testing.T) {
	var tracker *Tracker
	if _, err := tracker.Status(context.Background(), "x"); carousel.KindFromError(err) != carousel.KindNotImpl {
		t.Fatalf("expected not_implemented, got %v", err)
	}
}

func recordIDs(records []carousel.ExportRecord) []string {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}
	return ids
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	if err := (&Tracker{DB: db}).CreateSchema(context.Background()); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return db
}
