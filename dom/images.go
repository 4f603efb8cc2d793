package dom

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-carousel/carousel"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

// DefaultProxyPath is the same-origin image relay route.
const DefaultProxyPath = "/api/proxy"

// ProxyRewriter routes external image URLs through the image relay.
type ProxyRewriter struct {
	// Endpoint is the relay URL, absolute or root relative.
	Endpoint string
}

// NeedsProxy reports whether src must be relayed. Root relative, data and
// already relayed URLs are left alone; protocol relative URLs are relayed.
func (p ProxyRewriter) NeedsProxy(src string) bool {
	src = strings.TrimSpace(src)
	if src == "" {
		return false
	}
	if strings.HasPrefix(src, "data:") {
		return false
	}
	if strings.HasPrefix(src, "/") && !strings.HasPrefix(src, "//") {
		return false
	}
	return !p.IsProxied(src)
}

// IsProxied reports whether src already points at the relay.
func (p ProxyRewriter) IsProxied(src string) bool {
	endpoint := p.endpoint()
	return strings.HasPrefix(src, endpoint+"?")
}

// Rewrite returns the relay URL for src. Protocol relative URLs are
// relayed as https.
func (p ProxyRewriter) Rewrite(src string) string {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	q := url.Values{}
	q.Set("url", src)
	return p.endpoint() + "?" + q.Encode()
}

func (p ProxyRewriter) endpoint() string {
	endpoint := strings.TrimSpace(p.Endpoint)
	if endpoint == "" {
		return DefaultProxyPath
	}
	return strings.TrimRight(endpoint, "?")
}

// ImageLoader resolves once the image behind url is usable.
type ImageLoader interface {
	Load(ctx context.Context, url string) error
}

// ImageLoaderFunc adapts a function to an ImageLoader.
type ImageLoaderFunc func(ctx context.Context, url string) error

func (f ImageLoaderFunc) Load(ctx context.Context, url string) error {
	return f(ctx, url)
}

// HTTPImageLoader fetches an image and decodes its header.
type HTTPImageLoader struct {
	Client *http.Client
	// BaseURL resolves root relative URLs such as the relay path.
	BaseURL string
	Timeout time.Duration
}

// Load fetches url and confirms it decodes as an image.
func (l HTTPImageLoader) Load(ctx context.Context, rawURL string) error {
	target, err := l.resolve(rawURL)
	if err != nil {
		return err
	}

	if l.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if _, _, err := image.DecodeConfig(resp.Body); err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (l HTTPImageLoader) resolve(rawURL string) (string, error) {
	ref, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	if l.BaseURL == "" {
		return "", fmt.Errorf("relative url %q needs a base url", rawURL)
	}
	base, err := url.Parse(l.BaseURL)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

type pendingImage struct {
	original string
	proxied  string
}

// loadImages loads every distinct relayed URL and waits for all of them.
// The first failure names the original image source.
func loadImages(ctx context.Context, loader ImageLoader, images []pendingImage, limit int) error {
	if loader == nil || len(images) == 0 {
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, img := range images {
		g.Go(func() error {
			if err := loader.Load(gctx, img.proxied); err != nil {
				return carousel.NewError(carousel.KindResourceLoad, fmt.Sprintf("failed to load image %s", img.original), err)
			}
			return nil
		})
	}
	return g.Wait()
}
