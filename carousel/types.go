package carousel

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/net/html"
)

// ContainerID is the id of the element that wraps every slide of the surface.
const ContainerID = "element-to-download-as-pdf"

// SlideItemPrefix prefixes the id of each slide element on the surface.
const SlideItemPrefix = "carousel-item-"

// PageSize is a page size in pixels.
type PageSize struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// DefaultPageSize is used when a document does not carry a size.
var DefaultPageSize = PageSize{Width: 400, Height: 500}

// SizePreset names a page size offered by the editor.
type SizePreset struct {
	Name string
	Size PageSize
}

// SizePresets maps aspect ratio keys to editor page sizes.
var SizePresets = map[string]SizePreset{
	"story":        {Name: "Story (9:16)", Size: PageSize{Width: 360, Height: 640}},
	"square":       {Name: "Square (1:1)", Size: PageSize{Width: 500, Height: 500}},
	"portrait34":   {Name: "Portrait (3:4)", Size: PageSize{Width: 450, Height: 600}},
	"portrait45":   {Name: "Portrait (4:5)", Size: PageSize{Width: 480, Height: 600}},
	"landscape43":  {Name: "Landscape (4:3)", Size: PageSize{Width: 800, Height: 600}},
	"landscape169": {Name: "Landscape (16:9)", Size: PageSize{Width: 960, Height: 540}},
}

// Validate reports whether both dimensions are positive.
func (s PageSize) Validate() error {
	if s.Width <= 0 || s.Height <= 0 {
		return NewError(KindValidation, fmt.Sprintf("invalid page size %dx%d", s.Width, s.Height), nil)
	}
	return nil
}

// Margins are physical page margins, in the same unit as PageSize.
type Margins struct {
	Top    float64 `json:"top,omitempty" yaml:"top"`
	Right  float64 `json:"right,omitempty" yaml:"right"`
	Bottom float64 `json:"bottom,omitempty" yaml:"bottom"`
	Left   float64 `json:"left,omitempty" yaml:"left"`
}

// Config holds document level export settings.
type Config struct {
	Size        PageSize `json:"size"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
	Filename    string   `json:"filename"`
	Margins     Margins  `json:"margins,omitempty"`
	Fonts       Fonts    `json:"fonts,omitempty"`
	Theme       Theme    `json:"theme,omitempty"`
	Brand       Brand    `json:"brand,omitempty"`
}

// Fonts names the two font slots used by slide elements.
type Fonts struct {
	Font1 string `json:"font1,omitempty"`
	Font2 string `json:"font2,omitempty"`
}

// Theme carries slide colors.
type Theme struct {
	Primary    string `json:"primary,omitempty"`
	Secondary  string `json:"secondary,omitempty"`
	Background string `json:"background,omitempty"`
	Alignment  string `json:"alignment,omitempty"`
}

// Brand is rendered in slide footers.
type Brand struct {
	Name   string `json:"name,omitempty"`
	Handle string `json:"handle,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// Slide is one page of the carousel.
type Slide struct {
	Index           int    `json:"index"`
	Type            string `json:"type,omitempty"`
	Title           string `json:"title,omitempty"`
	Subtitle        string `json:"subtitle,omitempty"`
	Description     string `json:"description,omitempty"`
	Image           string `json:"image,omitempty"`
	BackgroundImage string `json:"background_image,omitempty"`
}

// Document is a read-only snapshot of the edited carousel.
type Document struct {
	Slides []Slide `json:"slides"`
	Config Config  `json:"config"`
}

// PageSize returns the configured page size, falling back to the default.
func (d Document) PageSize() PageSize {
	size := d.Config.Size
	if size.Width <= 0 && size.Height <= 0 {
		if preset, ok := SizePresets[d.Config.AspectRatio]; ok {
			return preset.Size
		}
		return DefaultPageSize
	}
	return size
}

// Validate checks the snapshot is exportable.
func (d Document) Validate() error {
	if len(d.Slides) == 0 {
		return NewError(KindValidation, "document has no slides", nil)
	}
	if err := d.PageSize().Validate(); err != nil {
		return err
	}
	for i, slide := range d.Slides {
		if slide.Index != i {
			return NewError(KindValidation, fmt.Sprintf("slide %d has index %d", i, slide.Index), nil)
		}
	}
	return nil
}

// Source supplies the document snapshot and the live surface tree.
type Source interface {
	Snapshot(ctx context.Context) (Document, error)
	Surface(ctx context.Context) (*html.Node, error)
}

// StaticSource serves a fixed document and surface.
type StaticSource struct {
	Document Document
	Root     *html.Node
}

func (s StaticSource) Snapshot(ctx context.Context) (Document, error) {
	_ = ctx
	return s.Document, nil
}

func (s StaticSource) Surface(ctx context.Context) (*html.Node, error) {
	_ = ctx
	if s.Root == nil {
		return nil, NewError(KindTargetMissing, "surface is not mounted", nil)
	}
	return s.Root, nil
}

// Sanitizer produces a detached export-ready copy of a live subtree.
type Sanitizer interface {
	Sanitize(ctx context.Context, live *html.Node) (*html.Node, error)
}

// Format is the export artifact format.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatJPG Format = "jpg"
)

// Artifact is an export output handed to the save mechanism.
type Artifact struct {
	Filename    string
	ContentType string
	Format      Format
	SlideIndex  int
	Data        []byte
}

// ArtifactSink is the save mechanism for finished artifacts.
type ArtifactSink interface {
	Save(ctx context.Context, artifact Artifact) error
}

// SinkFunc adapts a function to an ArtifactSink.
type SinkFunc func(ctx context.Context, artifact Artifact) error

func (f SinkFunc) Save(ctx context.Context, artifact Artifact) error {
	if f == nil {
		return NewError(KindInternal, "sink func is nil", nil)
	}
	return f(ctx, artifact)
}

// ExportState captures history record states.
type ExportState string

const (
	StateRunning   ExportState = "running"
	StateCompleted ExportState = "completed"
	StatePartial   ExportState = "partial"
	StateFailed    ExportState = "failed"
)

// ExportRecord is one export run in the history.
type ExportRecord struct {
	ID          string      `json:"id"`
	Format      Format      `json:"format"`
	State       ExportState `json:"state"`
	Filename    string      `json:"filename"`
	Slides      int         `json:"slides"`
	Pages       int         `json:"pages"`
	Artifacts   []string    `json:"artifacts,omitempty"`
	Skipped     []int       `json:"skipped,omitempty"`
	Error       string      `json:"error,omitempty"`
	ErrorKind   ErrorKind   `json:"error_kind,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt time.Time   `json:"completed_at,omitempty"`
}

// HistoryFilter filters tracker lists.
type HistoryFilter struct {
	Format Format
	State  ExportState
	Since  time.Time
	Until  time.Time
	Limit  int
}

// Tracker records export runs.
type Tracker interface {
	Start(ctx context.Context, record ExportRecord) (string, error)
	Finish(ctx context.Context, record ExportRecord) error
	Status(ctx context.Context, id string) (ExportRecord, error)
	List(ctx context.Context, filter HistoryFilter) ([]ExportRecord, error)
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
