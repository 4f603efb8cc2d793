package trackerbun

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-carousel/carousel"
	"github.com/uptrace/bun"
)

// Tracker stores carousel export history in a Bun-backed database.
type Tracker struct {
	DB          *bun.DB
	Now         func() time.Time
	IDGenerator func() string
}

var _ carousel.Tracker = (*Tracker)(nil)

// NewTracker creates a Bun-backed tracker.
func NewTracker(db *bun.DB) *Tracker {
	return &Tracker{DB: db, Now: time.Now, IDGenerator: defaultIDGenerator()}
}

// CreateSchema creates the history table if it is missing.
func (t *Tracker) CreateSchema(ctx context.Context) error {
	if t == nil || t.DB == nil {
		return carousel.NewError(carousel.KindNotImpl, "tracker database not configured", nil)
	}
	_, err := t.DB.NewCreateTable().Model((*recordModel)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Start inserts a running export record.
func (t *Tracker) Start(ctx context.Context, record carousel.ExportRecord) (string, error) {
	if t == nil || t.DB == nil {
		return "", carousel.NewError(carousel.KindNotImpl, "tracker database not configured", nil)
	}
	if record.ID == "" {
		record.ID = t.nextID()
	}
	if record.State == "" {
		record.State = carousel.StateRunning
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = t.now()
	}

	model, err := modelFromRecord(record)
	if err != nil {
		return "", err
	}
	if _, err := t.DB.NewInsert().Model(&model).Exec(ctx); err != nil {
		return "", err
	}
	return record.ID, nil
}

// Finish stores the final state of an export.
func (t *Tracker) Finish(ctx context.Context, record carousel.ExportRecord) error {
	if t == nil || t.DB == nil {
		return carousel.NewError(carousel.KindNotImpl, "tracker database not configured", nil)
	}
	if record.ID == "" {
		return carousel.NewError(carousel.KindValidation, "export ID is required", nil)
	}
	if record.CompletedAt.IsZero() {
		record.CompletedAt = t.now()
	}

	artifacts, err := json.Marshal(record.Artifacts)
	if err != nil {
		return err
	}
	skipped, err := json.Marshal(record.Skipped)
	if err != nil {
		return err
	}

	res, err := t.DB.NewUpdate().Model((*recordModel)(nil)).
		Set("state = ?", string(record.State)).
		Set("filename = ?", record.Filename).
		Set("slides = ?", record.Slides).
		Set("pages = ?", record.Pages).
		Set("artifacts = ?", artifacts).
		Set("skipped = ?", skipped).
		Set("error = ?", record.Error).
		Set("error_kind = ?", string(record.ErrorKind)).
		Set("completed_at = COALESCE(completed_at, ?)", record.CompletedAt).
		Where("id = ?", record.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return carousel.NewError(carousel.KindNotFound, fmt.Sprintf("export %q not found", record.ID), nil)
	}
	return nil
}

// Status returns a record by ID.
func (t *Tracker) Status(ctx context.Context, id string) (carousel.ExportRecord, error) {
	if t == nil || t.DB == nil {
		return carousel.ExportRecord{}, carousel.NewError(carousel.KindNotImpl, "tracker database not configured", nil)
	}
	if id == "" {
		return carousel.ExportRecord{}, carousel.NewError(carousel.KindValidation, "export ID is required", nil)
	}

	model := new(recordModel)
	err := t.DB.NewSelect().Model(model).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return carousel.ExportRecord{}, carousel.NewError(carousel.KindNotFound, fmt.Sprintf("export %q not found", id), nil)
		}
		return carousel.ExportRecord{}, err
	}
	return model.toRecord()
}

// List returns records matching filter, newest first.
func (t *Tracker) List(ctx context.Context, filter carousel.HistoryFilter) ([]carousel.ExportRecord, error) {
	if t == nil || t.DB == nil {
		return nil, carousel.NewError(carousel.KindNotImpl, "tracker database not configured", nil)
	}

	models := make([]recordModel, 0)
	query := t.DB.NewSelect().Model(&models)
	if filter.Format != "" {
		query = query.Where("format = ?", string(filter.Format))
	}
	if filter.State != "" {
		query = query.Where("state = ?", string(filter.State))
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		query = query.Where("created_at <= ?", filter.Until)
	}
	query = query.Order("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, err
	}

	records := make([]carousel.ExportRecord, 0, len(models))
	for _, model := range models {
		record, err := model.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// Delete removes a record.
func (t *Tracker) Delete(ctx context.Context, id string) error {
	if t == nil || t.DB == nil {
		return carousel.NewError(carousel.KindNotImpl, "tracker database not configured", nil)
	}
	if id == "" {
		return carousel.NewError(carousel.KindValidation, "export ID is required", nil)
	}

	res, err := t.DB.NewDelete().Model((*recordModel)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return carousel.NewError(carousel.KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	return nil
}

type recordModel struct {
	bun.BaseModel `bun:"table:carousel_exports,alias:carousel_exports"`

	ID          string    `bun:",pk"`
	Format      string    `bun:",notnull"`
	State       string    `bun:",notnull"`
	Filename    string    `bun:"filename"`
	Slides      int       `bun:"slides"`
	Pages       int       `bun:"pages"`
	Artifacts   []byte    `bun:"artifacts"`
	Skipped     []byte    `bun:"skipped"`
	Error       string    `bun:"error"`
	ErrorKind   string    `bun:"error_kind"`
	CreatedAt   time.Time `bun:"created_at"`
	CompletedAt time.Time `bun:"completed_at,nullzero"`
}

func modelFromRecord(record carousel.ExportRecord) (recordModel, error) {
	artifacts, err := json.Marshal(record.Artifacts)
	if err != nil {
		return recordModel{}, err
	}
	skipped, err := json.Marshal(record.Skipped)
	if err != nil {
		return recordModel{}, err
	}
	return recordModel{
		ID:          record.ID,
		Format:      string(record.Format),
		State:       string(record.State),
		Filename:    record.Filename,
		Slides:      record.Slides,
		Pages:       record.Pages,
		Artifacts:   artifacts,
		Skipped:     skipped,
		Error:       record.Error,
		ErrorKind:   string(record.ErrorKind),
		CreatedAt:   record.CreatedAt,
		CompletedAt: record.CompletedAt,
	}, nil
}

func (m recordModel) toRecord() (carousel.ExportRecord, error) {
	record := carousel.ExportRecord{
		ID:          m.ID,
		Format:      carousel.Format(m.Format),
		State:       carousel.ExportState(m.State),
		Filename:    m.Filename,
		Slides:      m.Slides,
		Pages:       m.Pages,
		Error:       m.Error,
		ErrorKind:   carousel.ErrorKind(m.ErrorKind),
		CreatedAt:   m.CreatedAt,
		CompletedAt: m.CompletedAt,
	}
	if len(m.Artifacts) > 0 {
		if err := json.Unmarshal(m.Artifacts, &record.Artifacts); err != nil {
			return carousel.ExportRecord{}, err
		}
	}
	if len(m.Skipped) > 0 {
		if err := json.Unmarshal(m.Skipped, &record.Skipped); err != nil {
			return carousel.ExportRecord{}, err
		}
	}
	return record, nil
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func (t *Tracker) nextID() string {
	if t.IDGenerator != nil {
		return t.IDGenerator()
	}
	return defaultIDGenerator()()
}

func defaultIDGenerator() func() string {
	var counter uint64
	return func() string {
		id := atomic.AddUint64(&counter, 1)
		return fmt.Sprintf("carousel-%d", id)
	}
}
