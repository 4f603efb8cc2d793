package main

import (
	"testing"

	"github.com/goliatone/go-carousel/cmd/carousel-server/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger_Levels(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := WrapZap(zap.New(core))

	logger.Debugf("hidden %d", 1)
	logger.Infof("export %s done", "abc")
	logger.Errorf("slide %d failed", 2)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "export abc done" || entries[0].Level != zapcore.InfoLevel {
		t.Fatalf("unexpected info entry: %+v", entries[0].Entry)
	}
	if entries[1].Message != "slide 2 failed" || entries[1].Level != zapcore.ErrorLevel {
		t.Fatalf("unexpected error entry: %+v", entries[1].Entry)
	}
	if entries[0].LoggerName != "carousel" {
		t.Fatalf("unexpected logger name %q", entries[0].LoggerName)
	}
}

func TestNewZapLogger_RejectsUnknownLevel(t *testing.T) {
	if _, err := NewZapLogger(config.LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
	logger, err := NewZapLogger(config.LogConfig{Level: "debug", Development: true})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Debugf("ready")
}

func TestWrapZap_Nil(t *testing.T) {
	WrapZap(nil).Infof("no panic")
}
