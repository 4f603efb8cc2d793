package carouselchromium

import (
	"context"
	"image"
	"image/color"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-carousel/carousel"
	"golang.org/x/net/html"
)

func chromeBinaryPath(t *testing.T) string {
	t.Helper()

	chromePath := os.Getenv("CHROME_BIN")
	if chromePath == "" {
		for _, candidate := range []string{"google-chrome", "chromium", "chromium-browser"} {
			if path, err := exec.LookPath(candidate); err == nil {
				chromePath = path
				break
			}
		}
	}
	if chromePath == "" {
		t.Skip("chromium binary not found; set CHROME_BIN to run this test")
	}
	return chromePath
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	engine := &Engine{
		BrowserPath: chromeBinaryPath(t),
		Headless:    true,
		Timeout:     20 * time.Second,
		Args:        []string{"--no-sandbox", "--disable-dev-shm-usage"},
	}
	t.Cleanup(func() {
		_ = engine.Close()
	})
	return engine
}

func slideNode(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	node := carousel.FindElementByID(doc, carousel.ContainerID)
	if node == nil {
		t.Fatalf("container not found")
	}
	return node
}

func TestPageDocument(t *testing.T) {
	doc := pageDocument{
		Head:       `<style>.a{}</style>`,
		Body:       `<div>x</div>`,
		Width:      400,
		Background: color.White,
		BaseURL:    "https://app.example.com/",
		PageStyle:  pageStyle(carousel.PageSize{Width: 400, Height: 500}),
	}.String()

	for _, want := range []string{
		`<base href="https://app.example.com/">`,
		`body{width:400px;}`,
		`background:rgba(255,255,255,1.000)`,
		`@page { size: 400px 500px; margin: 0; }`,
		`<body><div>x</div></body>`,
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("expected %q in document:\n%s", want, doc)
		}
	}

	withBase := pageDocument{Head: `<base href="/x/">`, BaseURL: "https://other/"}.String()
	if strings.Contains(withBase, "https://other/") {
		t.Fatalf("existing base tag must win")
	}
}

func TestCSSColor(t *testing.T) {
	if got := cssColor(color.Transparent); got != "transparent" {
		t.Fatalf("expected transparent, got %q", got)
	}
	if got := cssColor(color.RGBA{R: 255, A: 255}); got != "rgba(255,0,0,1.000)" {
		t.Fatalf("unexpected color %q", got)
	}
}

func TestBuildPrintParams(t *testing.T) {
	params := buildPrintParams(carousel.PageSize{Width: 480, Height: 600}, carousel.Margins{Top: 48})
	if math.Abs(params.PaperWidth-5) > 1e-9 || math.Abs(params.PaperHeight-6.25) > 1e-9 {
		t.Fatalf("unexpected paper size %fx%f", params.PaperWidth, params.PaperHeight)
	}
	if math.Abs(params.MarginTop-0.5) > 1e-9 || params.MarginLeft != 0 {
		t.Fatalf("unexpected margins top=%f left=%f", params.MarginTop, params.MarginLeft)
	}
	if !params.PrintBackground || !params.PreferCSSPageSize {
		t.Fatalf("expected background printing and css page size")
	}
}

func TestAllocatorOptionsFromArgs(t *testing.T) {
	opts := allocatorOptionsFromArgs([]string{"--no-sandbox", " ", "--window-size=800,600", "--"})
	if len(opts) != 2 {
		t.Fatalf("expected 2 options, got %d", len(opts))
	}
}

func TestNormalize(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 721, 899))
	out := normalize(src, 720, 900, color.White)
	if out.Bounds().Dx() != 720 || out.Bounds().Dy() != 900 {
		t.Fatalf("unexpected bounds %v", out.Bounds())
	}
	if got := out.RGBAAt(10, 10); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Fatalf("expected transparent source to land on white, got %v", got)
	}
}

func TestRasterizer_Smoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping chromium smoke test in short mode")
	}
	rasterizer := NewRasterizer(testEngine(t))

	node := slideNode(t, `<div id="element-to-download-as-pdf">
<div style="height:100px;background:#f00"></div><div style="height:100px;background:#00f"></div></div>`)
	img, err := rasterizer.Rasterize(context.Background(), carousel.RasterRequest{
		Node:   node,
		Width:  100,
		Height: 200,
		Scale:  carousel.IntrinsicScale,
	})
	if err != nil {
		t.Fatalf("Rasterize: %v", err)
	}
	if img.Bounds().Dx() != 180 || img.Bounds().Dy() != 360 {
		t.Fatalf("expected 180x360 canvas, got %v", img.Bounds())
	}
	r, _, b, _ := img.At(90, 300).RGBA()
	if b < 0xf000 || r > 0x1000 {
		t.Fatalf("expected blue lower half, got r=%x b=%x", r, b)
	}
}

func TestRasterizer_BrokenImage(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping chromium smoke test in short mode")
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	rasterizer := NewRasterizer(testEngine(t))
	node := slideNode(t, `<div id="element-to-download-as-pdf"><img src="`+server.URL+`/missing.png"></div>`)
	_, err := rasterizer.Rasterize(context.Background(), carousel.RasterRequest{Node: node, Width: 50, Height: 50, Scale: 1})
	if carousel.KindFromError(err) != carousel.KindResourceLoad {
		t.Fatalf("expected resource_load, got %v", err)
	}
}

func TestPrintEngine_Smoke(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping chromium smoke test in short mode")
	}
	engine := NewPrintEngine(testEngine(t))
	node := slideNode(t, `<div id="element-to-download-as-pdf"><div style="height:500px">one</div><div style="height:500px">two</div></div>`)

	pdf, err := engine.PrintPDF(context.Background(), carousel.PrintRequest{
		Node:  node,
		Size:  carousel.PageSize{Width: 400, Height: 500},
		Pages: 2,
	})
	if err != nil {
		t.Fatalf("PrintPDF: %v", err)
	}
	if len(pdf) < 4 || string(pdf[:4]) != "%PDF" {
		t.Fatalf("expected pdf output")
	}
}
