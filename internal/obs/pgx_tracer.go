package obs

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type queryStartKey struct{}

type queryStart struct {
	sql string
	at  time.Time
}

// PGXTracer implements pgx.QueryTracer, logging statements that exceed the
// slow threshold and any that fail.
type PGXTracer struct {
	Logger        zerolog.Logger
	SlowThreshold time.Duration
}

// TraceQueryStart records the statement and start time on the context.
func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, at: time.Now()})
}

// TraceQueryEnd emits a log line for failed or slow statements.
func (t PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := time.Since(start.at)
	threshold := t.SlowThreshold
	if threshold <= 0 {
		threshold = 200 * time.Millisecond
	}

	switch {
	case data.Err != nil:
		t.Logger.Error().
			Err(data.Err).
			Str("sql", truncateSQL(start.sql)).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("query failed")
	case elapsed >= threshold:
		t.Logger.Warn().
			Str("sql", truncateSQL(start.sql)).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("slow query")
	}
}

func truncateSQL(sql string) string {
	trimmed := strings.Join(strings.Fields(sql), " ")
	const max = 200
	if len(trimmed) > max {
		return trimmed[:max] + "..."
	}
	return trimmed
}
