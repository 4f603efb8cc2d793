package carouselsurface

import (
	"bytes"
	"context"
	"strings"

	"github.com/goliatone/go-carousel/carousel"
	"golang.org/x/net/html"
)

// Renderer turns a Document into surface markup.
type Renderer struct {
	Templates    TemplateExecutor
	TemplateName string
}

// NewRenderer creates a renderer using the embedded pongo2 template.
func NewRenderer() *Renderer {
	return &Renderer{Templates: NewPongoExecutor(), TemplateName: DefaultTemplateName}
}

type slideView struct {
	Index           int
	Number          int
	Type            string
	Title           string
	Subtitle        string
	Description     string
	Image           string
	BackgroundImage string
}

var alignmentClasses = map[string]string{
	"top":    "justify-start",
	"center": "justify-center",
	"bottom": "justify-end",
}

// Render executes the surface template for doc.
func (r *Renderer) Render(ctx context.Context, doc carousel.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := doc.Validate(); err != nil {
		return "", err
	}

	templates := r.Templates
	if templates == nil {
		templates = NewPongoExecutor()
	}
	name := r.TemplateName
	if name == "" {
		name = DefaultTemplateName
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, templateData(doc)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Parse renders doc and parses the result into a live surface tree.
func (r *Renderer) Parse(ctx context.Context, doc carousel.Document) (*html.Node, error) {
	markup, err := r.Render(ctx, doc)
	if err != nil {
		return nil, err
	}
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, carousel.NewError(carousel.KindInternal, "parse surface markup", err)
	}
	return root, nil
}

// Source renders doc and binds it to its surface.
func (r *Renderer) Source(ctx context.Context, doc carousel.Document) (carousel.StaticSource, error) {
	root, err := r.Parse(ctx, doc)
	if err != nil {
		return carousel.StaticSource{}, err
	}
	return carousel.StaticSource{Document: doc, Root: root}, nil
}

func templateData(doc carousel.Document) map[string]any {
	size := doc.PageSize()
	cfg := doc.Config

	slides := make([]slideView, 0, len(doc.Slides))
	for _, slide := range doc.Slides {
		slides = append(slides, slideView{
			Index:           slide.Index,
			Number:          slide.Index + 1,
			Type:            cleanText(slide.Type),
			Title:           cleanText(slide.Title),
			Subtitle:        cleanText(slide.Subtitle),
			Description:     cleanRichText(slide.Description),
			Image:           cleanURL(slide.Image),
			BackgroundImage: cleanURL(slide.BackgroundImage),
		})
	}

	fonts := make([]fontSlot, 0, 2)
	titleFont, bodyFont := "", ""
	if slot, ok := newFontSlot(cfg.Fonts.Font1, "serif"); ok {
		fonts = append(fonts, slot)
		titleFont = slot.Class
	}
	if slot, ok := newFontSlot(cfg.Fonts.Font2, "sans-serif"); ok {
		if slot.Var != titleFontVar(fonts) {
			fonts = append(fonts, slot)
		}
		bodyFont = slot.Class
	}

	alignment, ok := alignmentClasses[strings.ToLower(strings.TrimSpace(cfg.Theme.Alignment))]
	if !ok {
		alignment = alignmentClasses["center"]
	}

	return map[string]any{
		"filename":   cleanText(cfg.Filename),
		"width":      size.Width,
		"height":     size.Height,
		"slides":     slides,
		"fonts":      fonts,
		"title_font": titleFont,
		"body_font":  bodyFont,
		"alignment":  alignment,
		"theme": carousel.Theme{
			Primary:    cleanColor(cfg.Theme.Primary, "#0d0d0d"),
			Secondary:  cleanColor(cfg.Theme.Secondary, "#161616"),
			Background: cleanColor(cfg.Theme.Background, "#ffffff"),
		},
		"brand": carousel.Brand{
			Name:   cleanText(cfg.Brand.Name),
			Handle: cleanText(cfg.Brand.Handle),
			Avatar: cleanURL(cfg.Brand.Avatar),
		},
	}
}

func titleFontVar(fonts []fontSlot) string {
	if len(fonts) == 0 {
		return ""
	}
	return fonts[0].Var
}

