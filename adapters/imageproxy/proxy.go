// Package carouselproxy relays remote slide images through the export
// server's own origin so the rasterizer never reads a cross-origin image.
package carouselproxy

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-carousel/carousel"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL      = 30 * time.Minute
	DefaultMaxBytes = 15 << 20
)

// Image is a fetched image body.
type Image struct {
	ContentType string
	Data        []byte
}

// Proxy fetches http(s) images and keeps recent bodies in a TTL cache.
type Proxy struct {
	Client   *http.Client
	Timeout  time.Duration
	MaxBytes int64
	TTL      time.Duration
	Logger   carousel.Logger

	cache *cache.Cache
	group singleflight.Group
}

// NewProxy creates a proxy caching bodies for ttl.
func NewProxy(ttl time.Duration) *Proxy {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Proxy{
		TTL:      ttl,
		MaxBytes: DefaultMaxBytes,
		Timeout:  20 * time.Second,
		Logger:   carousel.NopLogger{},
		cache:    cache.New(ttl, ttl*2),
	}
}

// Fetch returns the image at rawURL, from cache when possible.
func (p *Proxy) Fetch(ctx context.Context, rawURL string) (Image, error) {
	if p == nil {
		return Image{}, carousel.NewError(carousel.KindInternal, "image proxy is nil", nil)
	}
	target, err := validateTarget(rawURL)
	if err != nil {
		return Image{}, err
	}
	if p.cache == nil {
		p.cache = cache.New(p.ttl(), p.ttl()*2)
	}
	if cached, ok := p.cache.Get(target); ok {
		if img, ok := cached.(Image); ok {
			return img, nil
		}
	}

	v, err, _ := p.group.Do(target, func() (any, error) {
		img, err := p.fetch(ctx, target)
		if err != nil {
			return Image{}, err
		}
		p.cache.Set(target, img, cache.DefaultExpiration)
		return img, nil
	})
	if err != nil {
		p.logger().Errorf("image proxy: %s: %v", target, err)
		return Image{}, err
	}
	return v.(Image), nil
}

// ServeHTTP answers GET ?url=<encoded>.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	img, err := p.Fetch(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		http.Error(w, err.Error(), StatusForError(err))
		return
	}
	WriteHeaders(w.Header(), img, p.ttl())
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(img.Data)
	}
}

// WriteHeaders sets the relay response headers for img.
func WriteHeaders(h http.Header, img Image, ttl time.Duration) {
	h.Set("Content-Type", img.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(img.Data)))
	h.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(ttl.Seconds())))
	h.Set("X-Content-Type-Options", "nosniff")
}

// StatusForError maps a fetch error to an HTTP status.
func StatusForError(err error) int {
	switch carousel.KindFromError(err) {
	case carousel.KindValidation:
		return http.StatusBadRequest
	case carousel.KindResourceLoad:
		return http.StatusBadGateway
	case carousel.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (p *Proxy) fetch(ctx context.Context, target string) (Image, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Image{}, carousel.NewError(carousel.KindValidation, "invalid image url", err)
	}
	req.Header.Set("Accept", "image/*")
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return Image{}, carousel.NewError(carousel.KindTimeout, "image fetch timed out", err)
		}
		return Image{}, carousel.NewError(carousel.KindResourceLoad, "image fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Image{}, carousel.NewError(carousel.KindResourceLoad, fmt.Sprintf("upstream returned status %d", resp.StatusCode), nil)
	}

	max := p.MaxBytes
	if max <= 0 {
		max = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, max+1))
	if err != nil {
		return Image{}, carousel.NewError(carousel.KindResourceLoad, "read image body", err)
	}
	if int64(len(data)) > max {
		return Image{}, carousel.NewError(carousel.KindValidation, fmt.Sprintf("image exceeds %d bytes", max), nil)
	}

	contentType := imageContentType(resp.Header.Get("Content-Type"), data)
	if contentType == "" {
		return Image{}, carousel.NewError(carousel.KindValidation, "upstream did not return an image", nil)
	}
	return Image{ContentType: contentType, Data: data}, nil
}

func (p *Proxy) ttl() time.Duration {
	if p.TTL <= 0 {
		return DefaultTTL
	}
	return p.TTL
}

func (p *Proxy) logger() carousel.Logger {
	if p.Logger == nil {
		return carousel.NopLogger{}
	}
	return p.Logger
}

func validateTarget(rawURL string) (string, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", carousel.NewError(carousel.KindValidation, "url parameter is required", nil)
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", carousel.NewError(carousel.KindValidation, "invalid image url", err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return "", carousel.NewError(carousel.KindValidation, fmt.Sprintf("unsupported url scheme %q", parsed.Scheme), nil)
	}
	if parsed.Host == "" {
		return "", carousel.NewError(carousel.KindValidation, "image url has no host", nil)
	}
	return parsed.String(), nil
}

// imageContentType trusts an image/* header and sniffs otherwise.
func imageContentType(header string, data []byte) string {
	if mediaType, _, err := mime.ParseMediaType(header); err == nil && strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	sniffed := http.DetectContentType(data)
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return ""
}
