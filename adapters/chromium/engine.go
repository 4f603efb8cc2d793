package carouselchromium

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/goliatone/go-carousel/carousel"
)

// Engine owns the browser shared by the rasterizer and the print engine.
type Engine struct {
	BrowserPath string
	Headless    bool
	Timeout     time.Duration
	Args        []string
	// RemoteURL connects to an existing browser (ws:// or http://) instead of
	// launching one.
	RemoteURL string
	// BaseURL resolves root relative URLs in rendered markup.
	BaseURL string

	initOnce      sync.Once
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// NewEngine creates a headless engine.
func NewEngine() *Engine {
	return &Engine{Headless: true, Timeout: 60 * time.Second}
}

// Run executes actions in a fresh tab bound to ctx and the engine timeout.
func (e *Engine) Run(ctx context.Context, actions ...chromedp.Action) error {
	if e == nil {
		return carousel.NewError(carousel.KindInternal, "chromium engine is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := e.ensureBrowser(); err != nil {
		return carousel.NewError(carousel.KindInternal, "chromium engine init failed", err)
	}

	tabCtx, cancel := chromedp.NewContext(e.browserCtx)
	defer cancel()

	execCtx, cancelReq := context.WithCancel(tabCtx)
	defer cancelReq()
	go func() {
		select {
		case <-ctx.Done():
			cancelReq()
		case <-execCtx.Done():
		}
	}()
	if e.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		execCtx, cancelTimeout = context.WithTimeout(execCtx, e.Timeout)
		defer cancelTimeout()
	}

	err := chromedp.Run(execCtx, actions...)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
		return carousel.NewError(carousel.KindTimeout, "chromium render timed out", err)
	}
	return err
}

// Close releases Chromium resources if they have been initialized.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	if e.browserCancel != nil {
		e.browserCancel()
	}
	if e.allocCancel != nil {
		e.allocCancel()
	}
	return nil
}

func (e *Engine) ensureBrowser() error {
	e.initOnce.Do(func() {
		if remote := strings.TrimSpace(e.RemoteURL); remote != "" {
			e.allocCtx, e.allocCancel = chromedp.NewRemoteAllocator(context.Background(), remote)
		} else {
			options := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
			if e.BrowserPath != "" {
				options = append(options, chromedp.ExecPath(e.BrowserPath))
			}
			options = append(options, chromedp.Flag("headless", e.Headless))
			options = append(options, chromedp.Flag("hide-scrollbars", true))
			options = append(options, allocatorOptionsFromArgs(e.Args)...)
			e.allocCtx, e.allocCancel = chromedp.NewExecAllocator(context.Background(), options...)
		}
		e.browserCtx, e.browserCancel = chromedp.NewContext(e.allocCtx)
	})
	if e.allocCtx == nil || e.browserCtx == nil {
		return errors.New("chromium allocator unavailable")
	}
	return nil
}

func allocatorOptionsFromArgs(args []string) []chromedp.ExecAllocatorOption {
	options := make([]chromedp.ExecAllocatorOption, 0, len(args))
	for _, arg := range args {
		arg = strings.TrimPrefix(strings.TrimSpace(arg), "--")
		if arg == "" {
			continue
		}
		if name, value, ok := strings.Cut(arg, "="); ok {
			options = append(options, chromedp.Flag(name, value))
			continue
		}
		options = append(options, chromedp.Flag(arg, true))
	}
	return options
}
