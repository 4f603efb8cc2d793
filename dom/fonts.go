package dom

import (
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

// FontResolver resolves a CSS custom property such as "--font-title".
type FontResolver interface {
	ResolveFontFamily(varName string) (string, bool)
}

// StaticFonts resolves variables from a fixed map.
type StaticFonts map[string]string

func (f StaticFonts) ResolveFontFamily(varName string) (string, bool) {
	val, ok := f[varName]
	if !ok || strings.TrimSpace(val) == "" {
		return "", false
	}
	return strings.TrimSpace(val), true
}

var variableSelectors = map[string]int{
	":root": 0,
	"html":  0,
	"body":  1,
}

// CSSVariableResolver reads custom properties visible on the document body:
// rules targeting :root, html or body in <style> blocks, then the body's
// inline style.
type CSSVariableResolver struct {
	vars map[string]string
}

// NewCSSVariableResolver collects custom properties from doc.
func NewCSSVariableResolver(doc *html.Node) *CSSVariableResolver {
	r := &CSSVariableResolver{vars: map[string]string{}}
	if doc == nil {
		return r
	}

	var rootDecls, bodyDecls []*css.Declaration
	for _, sheet := range styleSheets(doc) {
		stylesheet, err := parser.Parse(sheet)
		if err != nil {
			continue
		}
		for _, rule := range stylesheet.Rules {
			if rule.Kind != css.QualifiedRule {
				continue
			}
			level := -1
			for _, sel := range rule.Selectors {
				if l, ok := variableSelectors[strings.TrimSpace(sel)]; ok && l > level {
					level = l
				}
			}
			switch level {
			case 0:
				rootDecls = append(rootDecls, rule.Declarations...)
			case 1:
				bodyDecls = append(bodyDecls, rule.Declarations...)
			}
		}
	}
	r.collect(rootDecls)
	r.collect(bodyDecls)

	if body := findElement(doc, "body"); body != nil {
		if style, ok := getAttr(body, "style"); ok {
			if decls, err := parseInlineStyle(style); err == nil {
				r.collect(decls)
			}
		}
	}
	return r
}

func (r *CSSVariableResolver) ResolveFontFamily(varName string) (string, bool) {
	if r == nil {
		return "", false
	}
	val, ok := r.vars[varName]
	if !ok || val == "" {
		return "", false
	}
	return val, true
}

func (r *CSSVariableResolver) collect(decls []*css.Declaration) {
	for _, decl := range decls {
		if decl == nil || !strings.HasPrefix(decl.Property, "--") {
			continue
		}
		r.vars[decl.Property] = strings.TrimSpace(decl.Value)
	}
}

func styleSheets(doc *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "style" {
			var b strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					b.WriteString(c.Data)
				}
			}
			out = append(out, b.String())
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out
}

// inlineFonts sets font-family on every element carrying a font-<name>
// class whose --font-<name> variable resolves. The root itself is visited
// only when includeRoot is set.
func inlineFonts(root *html.Node, fonts FontResolver, includeRoot bool) {
	if fonts == nil {
		return
	}
	nodes := descendants(root)
	if includeRoot && root.Type == html.ElementNode {
		nodes = append([]*html.Node{root}, nodes...)
	}
	for _, n := range nodes {
		for _, class := range classList(n) {
			if !strings.HasPrefix(class, "font-") {
				continue
			}
			family, ok := fonts.ResolveFontFamily("--" + class)
			if !ok {
				continue
			}
			setStyleProperty(n, "font-family", family)
		}
	}
}

func setStyleProperty(n *html.Node, property, value string) {
	current, _ := getAttr(n, "style")
	var decls []*css.Declaration
	if strings.TrimSpace(current) != "" {
		parsed, err := parseInlineStyle(current)
		if err == nil {
			decls = parsed
		}
	}

	replaced := false
	for _, decl := range decls {
		if decl.Property == property {
			decl.Value = value
			decl.Important = false
			replaced = true
		}
	}
	if !replaced {
		decl := css.NewDeclaration()
		decl.Property = property
		decl.Value = value
		decls = append(decls, decl)
	}

	parts := make([]string, 0, len(decls))
	for _, decl := range decls {
		parts = append(parts, decl.String())
	}
	setAttr(n, "style", strings.Join(parts, " "))
}

// parseInlineStyle parses a style attribute. The parser only closes a
// declaration on ";" or "}", so a trailing one is added when missing.
func parseInlineStyle(style string) ([]*css.Declaration, error) {
	style = strings.TrimSpace(style)
	if style != "" && !strings.HasSuffix(style, ";") {
		style += ";"
	}
	return parser.ParseDeclarations(style)
}
