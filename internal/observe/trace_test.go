package observe

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// traceSetup registers an in-memory span exporter as the global tracer
// provider and returns the exporter for inspection.
func traceSetup(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	origTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })
	return exp
}

// captureLog routes the default logger into a builder for the duration of
// the test.
func captureLog(t *testing.T) *strings.Builder {
	t.Helper()
	var buf strings.Builder
	orig := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))
	t.Cleanup(func() { slog.SetDefault(orig) })
	return &buf
}

func TestCorrelationIDWithoutSpan(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty", got)
	}
}

func TestCorrelationIDIsTheTraceID(t *testing.T) {
	traceSetup(t)

	ctx, span := StartSpan(context.Background(), "story.turn")
	defer span.End()

	cid := CorrelationID(ctx)
	// 16 trace-ID bytes, hex-encoded — exactly what goes into the
	// X-Correlation-ID header.
	raw, err := hex.DecodeString(cid)
	if err != nil {
		t.Fatalf("correlation ID %q is not hex: %v", cid, err)
	}
	if len(raw) != 16 {
		t.Errorf("correlation ID decodes to %d bytes, want 16", len(raw))
	}
}

func TestStartSpanRecordsName(t *testing.T) {
	exp := traceSetup(t)

	ctx, span := StartSpan(context.Background(), "tts.synthesize")
	if CorrelationID(ctx) == "" {
		t.Error("StartSpan did not produce a trace ID")
	}
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "tts.synthesize" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "tts.synthesize")
	}
}

func TestCorrelationIDsDistinctAcrossTurns(t *testing.T) {
	traceSetup(t)

	// Every narrator turn gets its own trace, so no two turns may share a
	// correlation ID.
	seen := make(map[string]struct{}, 50)
	for range 50 {
		ctx, span := StartSpan(context.Background(), "story.turn")
		cid := CorrelationID(ctx)
		span.End()
		if _, dup := seen[cid]; dup {
			t.Fatalf("duplicate correlation ID across turns: %s", cid)
		}
		seen[cid] = struct{}{}
	}
}

func TestLoggerCarriesTraceContext(t *testing.T) {
	traceSetup(t)
	buf := captureLog(t)

	ctx, span := StartSpan(context.Background(), "story.turn")
	defer span.End()

	Logger(ctx).Info("turn assembled", "title", "Das Festmahl")

	logged := buf.String()
	if !strings.Contains(logged, "trace_id="+CorrelationID(ctx)) {
		t.Errorf("log line missing trace_id, got: %s", logged)
	}
	if !strings.Contains(logged, "span_id=") {
		t.Errorf("log line missing span_id, got: %s", logged)
	}
}

func TestLoggerPlainWithoutSpan(t *testing.T) {
	buf := captureLog(t)

	Logger(context.Background()).Info("startup")

	if strings.Contains(buf.String(), "trace_id") {
		t.Errorf("log line should carry no trace_id, got: %s", buf.String())
	}
}

func TestTracerNonNil(t *testing.T) {
	if Tracer() == nil {
		t.Fatal("Tracer() returned nil")
	}
}
