package logger_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/cwrk-planet/textroom/pkg/logger"

	"go.opentelemetry.io/otel/trace"
)

func captureStdOut(fn func()) string {
	orig := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() {
		os.Stdout = orig
	}()

	fn()

	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	_ = r.Close()
	return buf.String()
}

func TestInit_DevStd_TextOutput(t *testing.T) {
	cfg := logger.Config{
		Service: "demo",
		Version: "v0.0.1",
		Env:     logger.EnvDev,
		Backend: logger.BackendStd,
		Level:   slog.LevelDebug,
	}

	out := captureStdOut(func() {
		logger.Init(cfg)
		slog.Info("Hello world")
	})

	// Text handler
	if strings.Contains(out, "{") && strings.Contains(out, "}") {
		t.Fatalf("expected text output in dev/std, got JSON: %s", out)
	}
	if !strings.Contains(out, "Hello world") {
		t.Fatalf("message missing: %s", out)
	}
	if !strings.Contains(out, "service=demo") {
		t.Fatalf("service attr missing: %s", out)
	}
	if !strings.Contains(out, "env=dev") {
		t.Fatalf("env attr missing: %s", out)
	}
}

func TestAttrsFromCtx(t *testing.T) {
	if got := logger.AttrsFromCtx(context.Background()); got != nil {
		t.Fatalf("attrs without span = %v, want nil", got)
	}

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:  trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	attrs := logger.AttrsFromCtx(ctx)
	if len(attrs) != 2 {
		t.Fatalf("attrs = %v, want trace_id and span_id", attrs)
	}
	if attrs[0].Key != "trace_id" || attrs[0].Value.String() != sc.TraceID().String() {
		t.Fatalf("trace_id attr = %v", attrs[0])
	}
	if attrs[1].Key != "span_id" || attrs[1].Value.String() != sc.SpanID().String() {
		t.Fatalf("span_id attr = %v", attrs[1])
	}
}

func TestDetectEnv(t *testing.T) {
	cases := map[string]logger.Env{
		"prod":       logger.EnvProd,
		"production": logger.EnvProd,
		"stage":      logger.EnvStage,
		"staging":    logger.EnvStage,
		"dev":        logger.EnvDev,
		"":           logger.EnvDev,
		"weird":      logger.EnvDev,
	}

	for raw, want := range cases {
		t.Setenv("APP_ENV", raw)
		if got := logger.DetectEnv(); got != want {
			t.Fatalf("DetectEnv(%q) = %s, want %s", raw, got, want)
		}
	}
}
