package carousel

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FindElementByID walks root depth first and returns the first element with id.
func FindElementByID(root *html.Node, id string) *html.Node {
	if root == nil || id == "" {
		return nil
	}
	if root.Type == html.ElementNode && Attr(root, "id") == id {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := FindElementByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// Attr returns the value of key on n, or "".
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

// HeadMarkup collects the style carrying nodes of the document head so a
// detached subtree can be rendered with the same stylesheets.
func HeadMarkup(root *html.Node) string {
	head := findAtom(root, atom.Head)
	if head == nil {
		return ""
	}
	var buf bytes.Buffer
	for c := head.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Style, atom.Base:
		case atom.Link:
			rel := strings.ToLower(Attr(c, "rel"))
			if !strings.Contains(rel, "stylesheet") && !strings.Contains(rel, "preload") {
				continue
			}
		case atom.Meta:
			if Attr(c, "charset") == "" {
				continue
			}
		default:
			continue
		}
		if err := html.Render(&buf, c); err != nil {
			continue
		}
	}
	return buf.String()
}

// RenderNode serializes n to markup.
func RenderNode(n *html.Node) (string, error) {
	if n == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", NewError(KindEncoding, "render markup failed", err)
	}
	return buf.String(), nil
}

func findAtom(root *html.Node, a atom.Atom) *html.Node {
	if root == nil {
		return nil
	}
	if root.Type == html.ElementNode && root.DataAtom == a {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findAtom(c, a); found != nil {
			return found
		}
	}
	return nil
}
