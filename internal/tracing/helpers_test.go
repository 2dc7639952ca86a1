package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// newRecorder installs a recording tracer provider for the duration of the test.
func newRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	spanRecorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spanRecorder))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return spanRecorder
}

func attrMap(kvs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}

func TestStartDBSpan(t *testing.T) {
	tests := []struct {
		name      string
		table     string
		operation DBOperation
		wantName  string
	}{
		{"query with table", "movies", DBOperationQuery, "query movies"},
		{"exec with table", "movies", DBOperationExec, "exec movies"},
		{"query without table", "", DBOperationQuery, "query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spanRecorder := newRecorder(t)

			_, endSpan := StartDBSpan(context.Background(), tt.table, tt.operation)
			endSpan(nil)

			spans := spanRecorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}
			span := spans[0]

			if span.Name() != tt.wantName {
				t.Errorf("expected span name %q, got %q", tt.wantName, span.Name())
			}
			if span.SpanKind() != trace.SpanKindClient {
				t.Errorf("expected client span, got %v", span.SpanKind())
			}
			if span.InstrumentationScope().Name != "cinesearch/db" {
				t.Errorf("expected scope cinesearch/db, got %q", span.InstrumentationScope().Name)
			}

			attrs := attrMap(span.Attributes())
			if attrs["db.system"] != "postgresql" {
				t.Errorf("expected db.system=postgresql, got %q", attrs["db.system"])
			}
			if attrs["db.operation"] != string(tt.operation) {
				t.Errorf("expected db.operation=%s, got %q", tt.operation, attrs["db.operation"])
			}
			table, hasTable := attrs["db.sql.table"]
			if tt.table != "" && table != tt.table {
				t.Errorf("expected db.sql.table=%s, got %q", tt.table, table)
			}
			if tt.table == "" && hasTable {
				t.Error("unexpected db.sql.table attribute")
			}
		})
	}
}

func TestStartDBSpan_WithError(t *testing.T) {
	spanRecorder := newRecorder(t)
	testErr := errors.New("connection refused")

	_, endSpan := StartDBSpan(context.Background(), "movies", DBOperationQuery)
	endSpan(testErr)

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]

	if span.Status().Code.String() != "Error" {
		t.Errorf("expected error status, got %s", span.Status().Code.String())
	}
	if span.Status().Description != testErr.Error() {
		t.Errorf("expected error description %q, got %q", testErr.Error(), span.Status().Description)
	}
	if len(span.Events()) == 0 {
		t.Error("expected the error to be recorded as an event")
	}
}

func TestStartObjectSpan(t *testing.T) {
	spanRecorder := newRecorder(t)

	_, endSpan := StartObjectSpan(context.Background(), "catalog", "snapshots/movies.cbor")
	endSpan(nil)

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]

	if span.Name() != "s3.GetObject" {
		t.Errorf("expected span name s3.GetObject, got %q", span.Name())
	}
	attrs := attrMap(span.Attributes())
	if attrs["aws.s3.bucket"] != "catalog" || attrs["aws.s3.key"] != "snapshots/movies.cbor" {
		t.Errorf("unexpected attributes: %v", attrs)
	}
}

func TestStartSearchSpan(t *testing.T) {
	spanRecorder := newRecorder(t)

	_, endSpan := StartSearchSpan(context.Background(), "weighted", 20)
	endSpan(nil)

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "search.rank" || span.InstrumentationScope().Name != "cinesearch/search" {
		t.Errorf("unexpected span %q in scope %q", span.Name(), span.InstrumentationScope().Name)
	}
	attrs := attrMap(span.Attributes())
	if attrs["search.mode"] != "weighted" || attrs["search.limit"] != "20" {
		t.Errorf("unexpected attributes: %v", attrs)
	}
}

func TestStartVectorSpan(t *testing.T) {
	spanRecorder := newRecorder(t)

	_, endSpan := StartVectorSpan(context.Background(), "movies", "recommend")
	endSpan(errors.New("collection not found"))

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "recommend movies" {
		t.Errorf("expected span name %q, got %q", "recommend movies", span.Name())
	}
	if span.SpanKind() != trace.SpanKindClient {
		t.Errorf("expected client span, got %v", span.SpanKind())
	}
	attrs := attrMap(span.Attributes())
	if attrs["db.system"] != "qdrant" || attrs["db.qdrant.collection"] != "movies" {
		t.Errorf("unexpected attributes: %v", attrs)
	}
	if span.Status().Code.String() != "Error" {
		t.Errorf("expected error status, got %s", span.Status().Code.String())
	}
}

func TestStartSpan(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus string
	}{
		{"success", nil, "Unset"},
		{"failure", errors.New("catalog unavailable"), "Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spanRecorder := newRecorder(t)

			_, endSpan := StartSpan(context.Background(), "catalog.reload")
			endSpan(tt.err)

			spans := spanRecorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}
			if spans[0].Name() != "catalog.reload" {
				t.Errorf("expected span name catalog.reload, got %q", spans[0].Name())
			}
			if got := spans[0].Status().Code.String(); got != tt.wantStatus {
				t.Errorf("expected status %s, got %s", tt.wantStatus, got)
			}
		})
	}
}

func TestStartSpan_NestsUnderParent(t *testing.T) {
	spanRecorder := newRecorder(t)

	ctx, endParent := StartSpan(context.Background(), "search.rank")
	_, endChild := StartDBSpan(ctx, "movies", DBOperationQuery)
	endChild(nil)
	endParent(nil)

	spans := spanRecorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	child, parent := spans[0], spans[1]
	if child.Parent().SpanID() != parent.SpanContext().SpanID() {
		t.Error("expected db span to be a child of the search span")
	}
	if child.SpanContext().TraceID() != parent.SpanContext().TraceID() {
		t.Error("expected spans to share a trace")
	}
}

func TestAddEvent(t *testing.T) {
	spanRecorder := newRecorder(t)

	ctx, span := otel.Tracer("test").Start(context.Background(), "test-span")
	AddEvent(ctx, "corpus_installed",
		attribute.Int("titles", 4803),
		attribute.Int("tokens", 9120),
	)
	span.End()

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	events := spans[0].Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Name != "corpus_installed" {
		t.Errorf("expected event name corpus_installed, got %q", events[0].Name)
	}
	if len(events[0].Attributes) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(events[0].Attributes))
	}
}

func TestSetAttributes(t *testing.T) {
	spanRecorder := newRecorder(t)

	ctx, span := otel.Tracer("test").Start(context.Background(), "test-span")
	SetAttributes(ctx,
		attribute.String("search.mode", "cascade"),
		attribute.Int("search.limit", 12),
	)
	span.End()

	spans := spanRecorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}

	attrs := attrMap(spans[0].Attributes())
	if attrs["search.mode"] != "cascade" {
		t.Errorf("expected search.mode=cascade, got %q", attrs["search.mode"])
	}
	if attrs["search.limit"] != "12" {
		t.Errorf("expected search.limit=12, got %q", attrs["search.limit"])
	}
}
