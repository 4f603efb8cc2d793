package carouselsurface

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/goliatone/go-carousel/carousel"
	"github.com/goliatone/go-carousel/dom"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func testDocument() carousel.Document {
	return carousel.Document{
		Slides: []carousel.Slide{
			{Index: 0, Type: "Intro", Title: "<script>alert(1)</script>Hello & bye", Subtitle: "Sub"},
			{Index: 1, Type: "Content", Description: `<p onclick="x()">Body <b>bold</b></p><img src="x.png">`, Image: "https://cdn.example.com/a.png"},
			{Index: 2, Type: "Outro", Title: "Bye", Image: "javascript:alert(1)"},
		},
		Config: carousel.Config{
			AspectRatio: "portrait45",
			Filename:    "deck",
			Fonts:       carousel.Fonts{Font1: "DM_Serif_Display", Font2: "DM_Sans"},
			Theme:       carousel.Theme{Background: "#fafafa", Primary: "red; background:url(x)", Alignment: "Bottom"},
			Brand:       carousel.Brand{Name: "My name", Handle: "@name"},
		},
	}
}

func TestRenderer_SurfaceStructure(t *testing.T) {
	root, err := NewRenderer().Parse(context.Background(), testDocument())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	for _, id := range []string{
		carousel.ContainerID,
		"add-slide-1", "add-slide-2",
		"carousel-item-0", "carousel-item-1", "carousel-item-2",
		"slide-wrapper-1", "slide-menubar-1", "page-base-2",
		"content-image-1", "element-menubar-0-title",
	} {
		if carousel.FindElementByID(root, id) == nil {
			t.Fatalf("expected element %q", id)
		}
	}
	if carousel.FindElementByID(root, "content-image-2") != nil {
		t.Fatalf("javascript image url must be dropped")
	}

	base := carousel.FindElementByID(root, "page-base-0")
	style := carousel.Attr(base, "style")
	if !strings.Contains(style, "width: 480px; height: 600px") {
		t.Fatalf("expected preset page size in style, got %q", style)
	}
	if !strings.Contains(style, "color: #0d0d0d") {
		t.Fatalf("expected invalid primary color to fall back, got %q", style)
	}
	if !strings.Contains(style, "background-color: #fafafa") {
		t.Fatalf("expected background color, got %q", style)
	}
}

func TestRenderer_CleansText(t *testing.T) {
	root, err := NewRenderer().Parse(context.Background(), testDocument())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if findTag(root, atom.Script) != nil {
		t.Fatalf("script element must not survive")
	}
	title := findClass(carousel.FindElementByID(root, "carousel-item-0"), "slide-title")
	if title == nil || textOf(title) != "Hello & bye" {
		t.Fatalf("unexpected title %q", textOf(title))
	}
	if !strings.Contains(carousel.Attr(title, "class"), "font-DM_Serif_Display") {
		t.Fatalf("expected title font class, got %q", carousel.Attr(title, "class"))
	}

	desc := findClass(carousel.FindElementByID(root, "carousel-item-1"), "slide-description")
	if desc == nil {
		t.Fatalf("expected description")
	}
	markup, _ := carousel.RenderNode(desc)
	if strings.Contains(markup, "onclick") || strings.Contains(markup, "<img") {
		t.Fatalf("description not cleaned: %s", markup)
	}
	if !strings.Contains(markup, "<b>bold</b>") {
		t.Fatalf("expected formatting to survive: %s", markup)
	}
}

func TestRenderer_FontVariablesResolve(t *testing.T) {
	root, err := NewRenderer().Parse(context.Background(), testDocument())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	resolver := dom.NewCSSVariableResolver(root)
	family, ok := resolver.ResolveFontFamily("--font-DM_Sans")
	if !ok || family != "'DM Sans', sans-serif" {
		t.Fatalf("unexpected family %q ok=%v", family, ok)
	}
}

func TestRenderer_SanitizesForExport(t *testing.T) {
	doc := testDocument()
	doc.Slides[1].Image = ""
	root, err := NewRenderer().Parse(context.Background(), doc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	container := carousel.FindElementByID(root, carousel.ContainerID)

	clean, err := dom.NewContainerSanitizer().Sanitize(context.Background(), container)
	if err != nil {
		t.Fatalf("Sanitize: %v", err)
	}
	for _, id := range []string{"add-slide-1", "slide-menubar-0", "element-menubar-0-title", "add-element-1"} {
		if carousel.FindElementByID(clean, id) != nil {
			t.Fatalf("expected %q removed", id)
		}
	}
	if got := carousel.Attr(clean, "class"); got != "flex flex-col" {
		t.Fatalf("expected reset root class, got %q", got)
	}
	base := carousel.Attr(carousel.FindElementByID(clean, "page-base-0"), "class")
	if strings.Contains(base, "ring-2") {
		t.Fatalf("expected ring classes stripped, got %q", base)
	}
	title := findClass(clean, "slide-title")
	if !strings.Contains(carousel.Attr(title, "style"), "font-family: 'DM Serif Display', serif") {
		t.Fatalf("expected inlined font, got %q", carousel.Attr(title, "style"))
	}
}

func TestRenderer_RejectsInvalidDocument(t *testing.T) {
	_, err := NewRenderer().Render(context.Background(), carousel.Document{})
	if carousel.KindFromError(err) != carousel.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRenderer_CustomExecutor(t *testing.T) {
	renderer := &Renderer{Templates: &PongoExecutor{Sources: map[string]string{
		"mini.html": `{% for slide in slides %}[{{ slide.Number }}:{{ slide.Title|safe }}]{% endfor %}`,
	}}, TemplateName: "mini.html"}

	out, err := renderer.Render(context.Background(), testDocument())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "[1:Hello &amp; bye][2:][3:Bye]" {
		t.Fatalf("unexpected output %q", out)
	}

	missing := &Renderer{Templates: NewPongoExecutor(), TemplateName: "nope.html"}
	if _, err := missing.Render(context.Background(), testDocument()); carousel.KindFromError(err) != carousel.KindNotFound {
		t.Fatalf("expected not_found, got %v", err)
	}
}

type failingExecutor struct{}

func (failingExecutor) ExecuteTemplate(w io.Writer, name string, data map[string]any) error {
	return errors.New("boom")
}

func TestRenderer_ExecutorError(t *testing.T) {
	renderer := &Renderer{Templates: failingExecutor{}}
	if _, err := renderer.Render(context.Background(), testDocument()); err == nil {
		t.Fatalf("expected executor error")
	}
}

func findTag(root *html.Node, a atom.Atom) *html.Node {
	if root == nil {
		return nil
	}
	if root.Type == html.ElementNode && root.DataAtom == a {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findTag(c, a); found != nil {
			return found
		}
	}
	return nil
}

func findClass(root *html.Node, class string) *html.Node {
	if root == nil {
		return nil
	}
	if root.Type == html.ElementNode {
		for _, c := range strings.Fields(carousel.Attr(root, "class")) {
			if c == class {
				return root
			}
		}
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}
