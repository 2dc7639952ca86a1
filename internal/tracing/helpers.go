// Package tracing provides OpenTelemetry distributed tracing setup and utilities.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Instrumentation scope names.
const (
	tracerName       = "cinesearch"
	searchTracerName = "cinesearch/search"
	dbTracerName     = "cinesearch/db"
	s3TracerName     = "cinesearch/s3"
	vectorTracerName = "cinesearch/vector"
)

// DBOperation represents the type of database operation being traced.
type DBOperation string

const (
	// DBOperationQuery represents a SELECT query.
	DBOperationQuery DBOperation = "query"
	// DBOperationExec represents a generic EXEC operation.
	DBOperationExec DBOperation = "exec"
)

// StartDBSpan creates a new span for a database operation.
// Returns the new context and a function to end the span.
//
// Example usage:
//
//	ctx, endSpan := tracing.StartDBSpan(ctx, "movies", tracing.DBOperationQuery)
//	defer endSpan(err)
func StartDBSpan(ctx context.Context, table string, operation DBOperation) (context.Context, func(error)) {
	spanName := string(operation)
	if table != "" {
		spanName = spanName + " " + table
	}

	ctx, span := otel.Tracer(dbTracerName).Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", string(operation)),
		),
	)
	if table != "" {
		span.SetAttributes(attribute.String("db.sql.table", table))
	}

	return ctx, endFunc(span)
}

// StartObjectSpan creates a client span for reading one object from an
// S3-compatible store.
func StartObjectSpan(ctx context.Context, bucket, key string) (context.Context, func(error)) {
	ctx, span := otel.Tracer(s3TracerName).Start(ctx, "s3.GetObject",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("aws.s3.bucket", bucket),
			attribute.String("aws.s3.key", key),
		),
	)
	return ctx, endFunc(span)
}

// StartSearchSpan creates the span for one ranking pass. The result count is
// added by the caller once known.
func StartSearchSpan(ctx context.Context, mode string, limit int) (context.Context, func(error)) {
	ctx, span := otel.Tracer(searchTracerName).Start(ctx, "search.rank",
		trace.WithAttributes(
			attribute.String("search.mode", mode),
			attribute.Int("search.limit", limit),
		),
	)
	return ctx, endFunc(span)
}

// StartVectorSpan creates a client span for a vector database call such as
// a Qdrant recommendation query.
func StartVectorSpan(ctx context.Context, collection, operation string) (context.Context, func(error)) {
	ctx, span := otel.Tracer(vectorTracerName).Start(ctx, operation+" "+collection,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "qdrant"),
			attribute.String("db.operation", operation),
			attribute.String("db.qdrant.collection", collection),
		),
	)
	return ctx, endFunc(span)
}

// StartSpan creates a new span for a general operation.
// Returns the new context and a function to end the span.
//
// Example usage:
//
//	ctx, endSpan := tracing.StartSpan(ctx, "catalog.reload")
//	defer endSpan(err)
func StartSpan(ctx context.Context, name string) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	return ctx, endFunc(span)
}

// endFunc records err on span, if any, and ends it.
func endFunc(span trace.Span) func(error) {
	return func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes sets attributes on the current span.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attrs...)
}
