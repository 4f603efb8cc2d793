package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"gopkg.in/yaml.v3"
)

// Config holds the carousel server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Carousel CarouselConfig `yaml:"carousel"`
	Chromium ChromiumConfig `yaml:"chromium"`
	Proxy    ProxyConfig    `yaml:"proxy"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	// PublicURL is the origin the browser uses to reach this server. Root
	// relative image URLs in exported markup resolve against it.
	PublicURL string `yaml:"public_url"`
}

// CarouselConfig holds export settings.
type CarouselConfig struct {
	BasePath        string  `yaml:"base_path"`
	ArtifactDir     string  `yaml:"artifact_dir"`
	DatabaseDSN     string  `yaml:"database_dsn"`
	PDFMode         string  `yaml:"pdf_mode"`
	Scale           float64 `yaml:"scale"`
	MaxBodyBytes    int64   `yaml:"max_body_bytes"`
	LoadConcurrency int     `yaml:"load_concurrency"`
	BatchFile       string  `yaml:"batch_file"`
}

// ChromiumConfig holds browser settings.
type ChromiumConfig struct {
	BrowserPath string        `yaml:"browser_path"`
	RemoteURL   string        `yaml:"remote_url"`
	Headless    bool          `yaml:"headless"`
	Timeout     time.Duration `yaml:"timeout"`
	Args        []string      `yaml:"args"`
}

// ProxyConfig holds image relay settings.
type ProxyConfig struct {
	Path     string        `yaml:"path"`
	TTL      time.Duration `yaml:"ttl"`
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: "8080",
		},
		Carousel: CarouselConfig{
			BasePath:        "/api/carousel",
			ArtifactDir:     "./artifacts",
			DatabaseDSN:     "file:carousel.db?cache=shared",
			PDFMode:         "raster",
			Scale:           1.8,
			MaxBodyBytes:    32 << 20,
			LoadConcurrency: 4,
		},
		Chromium: ChromiumConfig{
			Headless: true,
			Timeout:  60 * time.Second,
		},
		Proxy: ProxyConfig{
			Path:     "/api/proxy",
			TTL:      10 * time.Minute,
			Timeout:  20 * time.Second,
			MaxBytes: 20 << 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, errors.CategoryBadInput, "read config file failed").
			WithTextCode("CONFIG_READ")
	}
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return cfg, errors.Wrap(err, errors.CategoryValidation, "config file invalid YAML").
			WithTextCode("CONFIG_INVALID")
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from CAROUSEL_* variables. Values that fail to
// parse are ignored.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if cfg == nil {
		return
	}
	if getenv == nil {
		getenv = os.Getenv
	}

	setString(&cfg.Server.Host, getenv("CAROUSEL_HOST"))
	setString(&cfg.Server.Port, getenv("PORT"))
	setString(&cfg.Server.Port, getenv("CAROUSEL_PORT"))
	setString(&cfg.Server.PublicURL, getenv("CAROUSEL_PUBLIC_URL"))

	setString(&cfg.Carousel.BasePath, getenv("CAROUSEL_BASE_PATH"))
	setString(&cfg.Carousel.ArtifactDir, getenv("CAROUSEL_ARTIFACT_DIR"))
	setString(&cfg.Carousel.DatabaseDSN, getenv("CAROUSEL_DATABASE_DSN"))
	setString(&cfg.Carousel.PDFMode, getenv("CAROUSEL_PDF_MODE"))
	setString(&cfg.Carousel.BatchFile, getenv("CAROUSEL_BATCH_FILE"))
	if scale := getenv("CAROUSEL_SCALE"); scale != "" {
		if parsed, err := strconv.ParseFloat(scale, 64); err == nil {
			cfg.Carousel.Scale = parsed
		}
	}
	if limit := getenv("CAROUSEL_MAX_BODY_BYTES"); limit != "" {
		if parsed, err := strconv.ParseInt(limit, 10, 64); err == nil {
			cfg.Carousel.MaxBodyBytes = parsed
		}
	}
	if n := getenv("CAROUSEL_LOAD_CONCURRENCY"); n != "" {
		if parsed, err := strconv.Atoi(n); err == nil {
			cfg.Carousel.LoadConcurrency = parsed
		}
	}

	setString(&cfg.Chromium.BrowserPath, getenv("CAROUSEL_CHROMIUM_PATH"))
	setString(&cfg.Chromium.RemoteURL, getenv("CAROUSEL_CHROMIUM_REMOTE_URL"))
	if headless := getenv("CAROUSEL_CHROMIUM_HEADLESS"); headless != "" {
		if parsed, err := strconv.ParseBool(headless); err == nil {
			cfg.Chromium.Headless = parsed
		}
	}
	setDuration(&cfg.Chromium.Timeout, getenv("CAROUSEL_CHROMIUM_TIMEOUT"))
	if args := getenv("CAROUSEL_CHROMIUM_ARGS"); args != "" {
		cfg.Chromium.Args = splitCSV(args)
	}

	setString(&cfg.Proxy.Path, getenv("CAROUSEL_PROXY_PATH"))
	setDuration(&cfg.Proxy.TTL, getenv("CAROUSEL_PROXY_TTL"))
	setDuration(&cfg.Proxy.Timeout, getenv("CAROUSEL_PROXY_TIMEOUT"))

	setString(&cfg.Log.Level, getenv("CAROUSEL_LOG_LEVEL"))
	if dev := getenv("CAROUSEL_LOG_DEVELOPMENT"); dev != "" {
		if parsed, err := strconv.ParseBool(dev); err == nil {
			cfg.Log.Development = parsed
		}
	}
}

// Validate checks settings the server cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return errors.New("server port is required", errors.CategoryValidation).
			WithTextCode("PORT_REQUIRED")
	}
	switch c.Carousel.PDFMode {
	case "", "raster", "print":
	default:
		return errors.New("pdf_mode must be raster or print", errors.CategoryValidation).
			WithTextCode("PDF_MODE_INVALID")
	}
	if c.Carousel.Scale < 0 {
		return errors.New("scale must not be negative", errors.CategoryValidation).
			WithTextCode("SCALE_INVALID")
	}
	if !strings.HasPrefix(c.Carousel.BasePath, "/") {
		return errors.New("base_path must start with /", errors.CategoryValidation).
			WithTextCode("BASE_PATH_INVALID")
	}
	if c.Proxy.Path != "" && !strings.HasPrefix(c.Proxy.Path, "/") {
		return errors.New("proxy path must start with /", errors.CategoryValidation).
			WithTextCode("PROXY_PATH_INVALID")
	}
	return nil
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Origin returns the public origin of the server.
func (c Config) Origin() string {
	if url := strings.TrimRight(strings.TrimSpace(c.Server.PublicURL), "/"); url != "" {
		return url
	}
	host := c.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	return "http://" + host + ":" + c.Server.Port
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setDuration(dst *time.Duration, value string) {
	if value == "" {
		return
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		*dst = parsed
	}
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
