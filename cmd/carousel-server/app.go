package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	"net/url"
	"os"
	"strings"

	carouselchromium "github.com/goliatone/go-carousel/adapters/chromium"
	carouselproxy "github.com/goliatone/go-carousel/adapters/imageproxy"
	storefs "github.com/goliatone/go-carousel/adapters/store/fs"
	carouselsurface "github.com/goliatone/go-carousel/adapters/surface"
	trackerbun "github.com/goliatone/go-carousel/adapters/tracker/bun"
	"github.com/goliatone/go-carousel/carousel"
	"github.com/goliatone/go-carousel/cmd/carousel-server/config"
	"github.com/goliatone/go-carousel/command"
	"github.com/goliatone/go-carousel/dom"
	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// App holds the server dependencies.
type App struct {
	Config        config.Config
	Logger        carousel.Logger
	DB            *bun.DB
	Engine        *carouselchromium.Engine
	Proxy         *carouselproxy.Proxy
	Store         *storefs.Store
	Tracker       *trackerbun.Tracker
	Printer       *carousel.Printer
	Service       *carousel.Service
	Registry      *gcmd.Registry
	Batch         *command.BatchCommand
	subscriptions []dispatcher.Subscription
}

// NewApp creates and initializes the application. The browser starts on
// the first export, not here.
func NewApp(ctx context.Context, cfg config.Config, logger carousel.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = carousel.NopLogger{}
	}

	if err := os.MkdirAll(cfg.Carousel.ArtifactDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.Carousel.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())
	tracker := trackerbun.NewTracker(db)
	if err := tracker.CreateSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	store := storefs.NewStore(cfg.Carousel.ArtifactDir)

	proxy := carouselproxy.NewProxy(cfg.Proxy.TTL)
	if cfg.Proxy.Timeout > 0 {
		proxy.Timeout = cfg.Proxy.Timeout
	}
	if cfg.Proxy.MaxBytes > 0 {
		proxy.MaxBytes = cfg.Proxy.MaxBytes
	}
	proxy.Logger = logger

	engine := carouselchromium.NewEngine()
	engine.BrowserPath = cfg.Chromium.BrowserPath
	engine.RemoteURL = cfg.Chromium.RemoteURL
	engine.Headless = cfg.Chromium.Headless
	engine.Args = cfg.Chromium.Args
	engine.BaseURL = cfg.Origin()
	if cfg.Chromium.Timeout > 0 {
		engine.Timeout = cfg.Chromium.Timeout
	}

	proxyPath := proxyPathOf(cfg)
	loader := relayLoader{
		path:  proxyPath,
		proxy: proxy,
		fallback: dom.HTTPImageLoader{
			BaseURL: cfg.Origin(),
			Timeout: cfg.Proxy.Timeout,
		},
	}
	sanitizeOpts := []dom.Option{
		dom.WithProxy(proxyPath),
		dom.WithLoader(loader),
		dom.WithLoadConcurrency(cfg.Carousel.LoadConcurrency),
		dom.WithLogger(logger),
	}

	mode, err := carousel.ParsePDFMode(cfg.Carousel.PDFMode)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	printer := carousel.NewPrinter()
	printer.Sanitizer = dom.NewContainerSanitizer(sanitizeOpts...)
	printer.SlideSanitizer = dom.NewSlideSanitizer(sanitizeOpts...)
	printer.Rasterizer = carouselchromium.NewRasterizer(engine)
	printer.PrintEngine = carouselchromium.NewPrintEngine(engine)
	printer.Mode = mode
	if cfg.Carousel.Scale > 0 {
		printer.Scale = cfg.Carousel.Scale
	}
	printer.Tracker = tracker
	printer.Logger = logger

	service := carousel.NewService(printer, carouselsurface.NewRenderer())
	service.Logger = logger
	service.Archive = func(exportID string) carousel.ArtifactSink {
		return store.WithPrefix(exportID)
	}

	// Register go-command handlers
	registry := gcmd.NewRegistry()
	var batch *command.BatchCommand
	var extra []any
	if file := strings.TrimSpace(cfg.Carousel.BatchFile); file != "" {
		batch = command.NewBatchCommand(service, command.FileLoader(file),
			command.WithBatchLogger(logger),
			command.WithBatchSink(func(out carousel.ExportOutput) carousel.ArtifactSink {
				return store.WithPrefix(out.Result.ID)
			}),
		)
		extra = append(extra, batch)
	}
	subscriptions, err := command.RegisterHandlers(registry, service, extra...)
	if err != nil {
		for _, sub := range subscriptions {
			sub.Unsubscribe()
		}
		_ = db.Close()
		return nil, fmt.Errorf("failed to register carousel handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            db,
		Engine:        engine,
		Proxy:         proxy,
		Store:         store,
		Tracker:       tracker,
		Printer:       printer,
		Service:       service,
		Registry:      registry,
		Batch:         batch,
		subscriptions: subscriptions,
	}, nil
}

// Close releases app resources.
func (a *App) Close() error {
	for _, sub := range a.subscriptions {
		sub.Unsubscribe()
	}
	a.subscriptions = nil
	if a.Engine != nil {
		if err := a.Engine.Close(); err != nil {
			a.Logger.Errorf("close browser: %v", err)
		}
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

func proxyPathOf(cfg config.Config) string {
	if path := strings.TrimRight(cfg.Proxy.Path, "/"); path != "" {
		return path
	}
	return dom.DefaultProxyPath
}

// relayLoader answers loads of relayed images from the in-process proxy,
// warming its cache for the browser, and hands any other URL to fallback.
type relayLoader struct {
	path     string
	proxy    *carouselproxy.Proxy
	fallback dom.ImageLoader
}

func (l relayLoader) Load(ctx context.Context, rawURL string) error {
	if target, ok := l.relayTarget(rawURL); ok && l.proxy != nil {
		img, err := l.proxy.Fetch(ctx, target)
		if err != nil {
			return err
		}
		if _, _, err := image.DecodeConfig(bytes.NewReader(img.Data)); err != nil {
			return fmt.Errorf("decode image: %w", err)
		}
		return nil
	}
	if l.fallback == nil {
		return fmt.Errorf("no loader for %q", rawURL)
	}
	return l.fallback.Load(ctx, rawURL)
}

func (l relayLoader) relayTarget(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path != l.path {
		return "", false
	}
	target := u.Query().Get("url")
	return target, target != ""
}
