package carouselsurface

import (
	"net/url"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicyOnce sync.Once
	textPolicy     *bluemonday.Policy

	richPolicyOnce sync.Once
	richPolicy     *bluemonday.Policy
)

// cleanText strips every tag from single-line slide text.
func cleanText(raw string) string {
	textPolicyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(textPolicy.Sanitize(strings.TrimSpace(raw)))
}

// cleanRichText keeps inline formatting and lists in descriptions. Media
// is dropped so every image on a slide goes through the content image slot.
func cleanRichText(raw string) string {
	richPolicyOnce.Do(func() {
		policy := bluemonday.NewPolicy()
		policy.AllowElements("p", "br", "b", "strong", "i", "em", "u", "s", "ul", "ol", "li", "span", "blockquote", "code")
		policy.AllowAttrs("class").OnElements("span", "p")
		richPolicy = policy
	})
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(richPolicy.Sanitize(trimmed))
}

// cleanURL keeps image references the surface can load.
func cleanURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "data:image/") {
		return trimmed
	}
	if strings.HasPrefix(trimmed, "/") && !strings.HasPrefix(trimmed, "//") {
		return trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return parsed.String()
	default:
		return ""
	}
}

var colorPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]+|(rgb|rgba|hsl|hsla)\([0-9.,%\s]+\))$`)

func cleanColor(raw, fallback string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !colorPattern.MatchString(trimmed) {
		return fallback
	}
	return trimmed
}

var fontNamePattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// fontSlot maps an editor font key such as "DM_Serif_Display" to its class,
// custom property and family.
type fontSlot struct {
	Class  string
	Var    string
	Family string
}

func newFontSlot(name, generic string) (fontSlot, bool) {
	name = strings.TrimSpace(name)
	if name == "" || !fontNamePattern.MatchString(name) {
		return fontSlot{}, false
	}
	family := strings.ReplaceAll(name, "_", " ")
	return fontSlot{
		Class:  "font-" + name,
		Var:    "--font-" + name,
		Family: "'" + family + "', " + generic,
	}, true
}
