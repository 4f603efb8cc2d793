package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carousel.yaml")
	content := `
server:
  port: "9090"
carousel:
  pdf_mode: print
  artifact_dir: /tmp/carousel
chromium:
  timeout: 45s
  args: ["--no-sandbox"]
proxy:
  ttl: 2m
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := Defaults()
	want.Server.Port = "9090"
	want.Carousel.PDFMode = "print"
	want.Carousel.ArtifactDir = "/tmp/carousel"
	want.Chromium.Timeout = 45 * time.Second
	want.Chromium.Args = []string{"--no-sandbox"}
	want.Proxy.TTL = 2 * time.Minute
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Defaults(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected missing file error")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected yaml error")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"CAROUSEL_PORT":              "7000",
		"CAROUSEL_PDF_MODE":          "print",
		"CAROUSEL_SCALE":             "2",
		"CAROUSEL_CHROMIUM_HEADLESS": "false",
		"CAROUSEL_CHROMIUM_TIMEOUT":  "5s",
		"CAROUSEL_CHROMIUM_ARGS":     "--no-sandbox, --disable-gpu,",
		"CAROUSEL_PROXY_TTL":         "not-a-duration",
		"CAROUSEL_LOAD_CONCURRENCY":  "x",
		"CAROUSEL_LOG_LEVEL":         "debug",
	}
	cfg := Defaults()
	ApplyEnv(&cfg, func(key string) string { return env[key] })

	want := Defaults()
	want.Server.Port = "7000"
	want.Carousel.PDFMode = "print"
	want.Carousel.Scale = 2
	want.Chromium.Headless = false
	want.Chromium.Timeout = 5 * time.Second
	want.Chromium.Args = []string{"--no-sandbox", "--disable-gpu"}
	want.Log.Level = "debug"
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cases := map[string]func(*Config){
		"port":       func(c *Config) { c.Server.Port = "" },
		"mode":       func(c *Config) { c.Carousel.PDFMode = "vector" },
		"scale":      func(c *Config) { c.Carousel.Scale = -1 },
		"base path":  func(c *Config) { c.Carousel.BasePath = "api" },
		"proxy path": func(c *Config) { c.Proxy.Path = "proxy" },
	}
	for name, mutate := range cases {
		cfg := Defaults()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestOrigin(t *testing.T) {
	cfg := Defaults()
	if got := cfg.Origin(); got != "http://localhost:8080" {
		t.Fatalf("unexpected origin %q", got)
	}
	cfg.Server.Host = "0.0.0.0"
	if got := cfg.Addr(); got != "0.0.0.0:8080" {
		t.Fatalf("unexpected addr %q", got)
	}
	if got := cfg.Origin(); got != "http://localhost:8080" {
		t.Fatalf("unexpected origin %q", got)
	}
	cfg.Server.PublicURL = "https://carousel.example.com/"
	if got := cfg.Origin(); got != "https://carousel.example.com" {
		t.Fatalf("unexpected origin %q", got)
	}
}
