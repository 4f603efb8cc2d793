package carouselchromium

import (
	"context"
	"fmt"
	"html"
	"image/color"
	"strings"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

type pageDocument struct {
	Head       string
	Body       string
	Width      int
	Background color.Color
	BaseURL    string
	PageStyle  string
}

func (d pageDocument) String() string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><meta charset=\"utf-8\">")
	if base := strings.TrimSpace(d.BaseURL); base != "" && !strings.Contains(strings.ToLower(d.Head), "<base") {
		fmt.Fprintf(&b, `<base href="%s">`, html.EscapeString(base))
	}
	b.WriteString(d.Head)
	b.WriteString("<style>html,body{margin:0;padding:0;}")
	if d.Width > 0 {
		fmt.Fprintf(&b, "body{width:%dpx;}", d.Width)
	}
	if d.Background != nil {
		fmt.Fprintf(&b, "html,body{background:%s;}", cssColor(d.Background))
	}
	b.WriteString(d.PageStyle)
	b.WriteString("</style></head><body>")
	b.WriteString(d.Body)
	b.WriteString("</body></html>")
	return b.String()
}

func cssColor(c color.Color) string {
	r, g, bl, a := c.RGBA()
	if a == 0 {
		return "transparent"
	}
	// RGBA is alpha premultiplied.
	return fmt.Sprintf("rgba(%d,%d,%d,%.3f)", r*0xff/a, g*0xff/a, bl*0xff/a, float64(a)/0xffff)
}

// loadDocument replaces the blank tab content with markup.
func loadDocument(markup string) chromedp.Tasks {
	return chromedp.Tasks{
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, markup).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
}

// settleScript waits for web fonts and every image, then two animation
// frames, and returns the sources of images that did not decode.
const settleScript = `(async () => {
  if (document.fonts && document.fonts.ready) { await document.fonts.ready; }
  const imgs = Array.from(document.images).filter((img) => img.getAttribute("src"));
  await Promise.all(imgs.map((img) => img.complete ? null : new Promise((resolve) => {
    img.addEventListener("load", resolve, { once: true });
    img.addEventListener("error", resolve, { once: true });
  })));
  await new Promise((resolve) => requestAnimationFrame(() => requestAnimationFrame(resolve)));
  return imgs.filter((img) => !img.naturalWidth).map((img) => img.currentSrc || img.src);
})()`
