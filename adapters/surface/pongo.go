package carouselsurface

import (
	"embed"
	"fmt"
	"io"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/goliatone/go-carousel/carousel"
)

// DefaultTemplateName is the surface template shipped with the package.
const DefaultTemplateName = "surface.html"

//go:embed templates/*.html
var templateFS embed.FS

// TemplateExecutor executes a named template with data.
type TemplateExecutor interface {
	ExecuteTemplate(w io.Writer, name string, data map[string]any) error
}

// PongoExecutor compiles pongo2 templates once and caches them by name.
// Sources overrides or extends the embedded templates.
type PongoExecutor struct {
	Sources map[string]string

	mu       sync.Mutex
	compiled map[string]*pongo2.Template
}

// NewPongoExecutor creates an executor over the embedded templates.
func NewPongoExecutor() *PongoExecutor {
	return &PongoExecutor{}
}

// ExecuteTemplate renders name into w.
func (e *PongoExecutor) ExecuteTemplate(w io.Writer, name string, data map[string]any) error {
	tpl, err := e.template(name)
	if err != nil {
		return err
	}
	if err := tpl.ExecuteWriter(pongo2.Context(data), w); err != nil {
		return carousel.NewError(carousel.KindInternal, fmt.Sprintf("execute template %q", name), err)
	}
	return nil
}

func (e *PongoExecutor) template(name string) (*pongo2.Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if tpl, ok := e.compiled[name]; ok {
		return tpl, nil
	}

	source, ok := e.Sources[name]
	if !ok {
		raw, err := templateFS.ReadFile("templates/" + name)
		if err != nil {
			return nil, carousel.NewError(carousel.KindNotFound, fmt.Sprintf("template %q not found", name), err)
		}
		source = string(raw)
	}

	tpl, err := pongo2.FromString(source)
	if err != nil {
		return nil, carousel.NewError(carousel.KindInternal, fmt.Sprintf("compile template %q", name), err)
	}
	if e.compiled == nil {
		e.compiled = make(map[string]*pongo2.Template)
	}
	e.compiled[name] = tpl
	return tpl, nil
}
