package obs

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ctxQueryKey struct{}

type queryState struct {
	span      trace.Span
	operation string
	started   time.Time
}

// PGXTracer implements pgx.QueryTracer for catalog lookups: one span per
// statement plus a CatalogQueryLatency observation.
type PGXTracer struct{}

// TraceQueryStart starts a span for the SQL statement.
func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, span := otel.Tracer("db.catalog").Start(ctx, "catalog.query")
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", truncateSQL(data.SQL)),
	)
	op := "unknown"
	if fields := strings.Fields(data.SQL); len(fields) > 0 {
		op = strings.ToLower(fields[0])
		span.SetAttributes(attribute.String("db.operation", op))
	}
	return context.WithValue(ctx, ctxQueryKey{}, queryState{span: span, operation: op, started: time.Now()})
}

// TraceQueryEnd ends the span, records any error and observes latency.
func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	state, ok := ctx.Value(ctxQueryKey{}).(queryState)
	if !ok {
		return
	}
	if data.Err != nil {
		state.span.RecordError(data.Err)
	}
	state.span.End()
	if CatalogQueryLatency != nil {
		CatalogQueryLatency.WithLabelValues(state.operation).Observe(DurationMillis(time.Since(state.started)))
	}
}

func truncateSQL(sql string) string {
	trimmed := strings.TrimSpace(sql)
	if len(trimmed) > 300 {
		return trimmed[:300] + "..."
	}
	return trimmed
}
