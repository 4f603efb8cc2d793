package dom

import (
	"context"

	"github.com/goliatone/go-carousel/carousel"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const defaultLoadConcurrency = 4

var _ carousel.Sanitizer = (*Sanitizer)(nil)

// Sanitizer produces export-ready copies of the live surface.
type Sanitizer struct {
	Rules []Rule
	// ResetRoot replaces the copy's root class with RootClass and clears
	// its inline style.
	ResetRoot bool
	Proxy     ProxyRewriter
	Loader    ImageLoader
	// Fonts overrides variable lookup; when nil the owning document of the
	// live node is read with CSSVariableResolver.
	Fonts           FontResolver
	LoadConcurrency int
	Logger          carousel.Logger
}

// Option configures a Sanitizer.
type Option func(*Sanitizer)

// WithProxy sets the image relay endpoint.
func WithProxy(endpoint string) Option {
	return func(s *Sanitizer) {
		s.Proxy = ProxyRewriter{Endpoint: endpoint}
	}
}

// WithLoader sets the image loader.
func WithLoader(loader ImageLoader) Option {
	return func(s *Sanitizer) {
		s.Loader = loader
	}
}

// WithFonts sets a fixed font resolver.
func WithFonts(fonts FontResolver) Option {
	return func(s *Sanitizer) {
		s.Fonts = fonts
	}
}

// WithLoadConcurrency bounds parallel image loads.
func WithLoadConcurrency(limit int) Option {
	return func(s *Sanitizer) {
		s.LoadConcurrency = limit
	}
}

// WithLogger sets the logger.
func WithLogger(logger carousel.Logger) Option {
	return func(s *Sanitizer) {
		s.Logger = logger
	}
}

// NewContainerSanitizer returns the sanitizer for the PDF path.
func NewContainerSanitizer(opts ...Option) *Sanitizer {
	return newSanitizer(ContainerRules(), true, opts)
}

// NewSlideSanitizer returns the sanitizer for the per-slide path.
func NewSlideSanitizer(opts ...Option) *Sanitizer {
	return newSanitizer(SlideRules(), false, opts)
}

func newSanitizer(rules []Rule, resetRoot bool, opts []Option) *Sanitizer {
	s := &Sanitizer{
		Rules:           rules,
		ResetRoot:       resetRoot,
		LoadConcurrency: defaultLoadConcurrency,
		Logger:          carousel.NopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Sanitize returns a detached copy of live. It returns after every relayed
// image has loaded, or with a resource_load error naming the first image
// that failed.
func (s *Sanitizer) Sanitize(ctx context.Context, live *html.Node) (*html.Node, error) {
	if s == nil {
		return nil, carousel.NewError(carousel.KindInternal, "sanitizer is nil", nil)
	}
	if live == nil || live.Type != html.ElementNode {
		return nil, carousel.NewError(carousel.KindTargetMissing, "sanitize target is not an element", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	clone := Clone(live)

	s.applyRules(clone)
	pending := s.proxyImages(clone)

	fonts := s.Fonts
	if fonts == nil {
		fonts = NewCSSVariableResolver(ownerDocument(live))
	}
	// A reset root loses its style, so only a kept root gets fonts inlined.
	inlineFonts(clone, fonts, !s.ResetRoot)

	if s.ResetRoot {
		setAttr(clone, "class", RootClass)
		setAttr(clone, "style", "")
	}

	if err := loadImages(ctx, s.Loader, pending, s.LoadConcurrency); err != nil {
		s.logger().Errorf("sanitize: %v", err)
		return nil, err
	}
	if len(pending) > 0 {
		s.logger().Debugf("sanitize: loaded %d relayed images", len(pending))
	}
	return clone, nil
}

func (s *Sanitizer) proxyImages(root *html.Node) []pendingImage {
	var pending []pendingImage
	seen := map[string]bool{}
	visit := func(n *html.Node) {
		if n.DataAtom != atom.Img {
			return
		}
		src, ok := getAttr(n, "src")
		if !ok || !s.Proxy.NeedsProxy(src) {
			return
		}
		proxied := s.Proxy.Rewrite(src)
		setAttr(n, "src", proxied)
		if !seen[proxied] {
			seen[proxied] = true
			pending = append(pending, pendingImage{original: src, proxied: proxied})
		}
	}
	if root.Type == html.ElementNode {
		visit(root)
	}
	for _, n := range descendants(root) {
		visit(n)
	}
	return pending
}

func (s *Sanitizer) applyRules(root *html.Node) {
	for _, rule := range s.Rules {
		for _, n := range descendants(root) {
			if n.Parent == nil {
				continue
			}
			id, _ := getAttr(n, "id")
			if !rule.matches(id) {
				continue
			}
			switch rule.Action {
			case ActionRemove:
				n.Parent.RemoveChild(n)
			case ActionStripClasses:
				removeClasses(n, rule.Classes)
			}
		}
	}
}

func (s *Sanitizer) logger() carousel.Logger {
	if s.Logger == nil {
		return carousel.NopLogger{}
	}
	return s.Logger
}
