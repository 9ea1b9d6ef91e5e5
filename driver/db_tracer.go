// ABOUTME: This file implements a pgx query tracer that surfaces slow statements.
// ABOUTME: Queries above the duration threshold are logged with their elapsed time.
package driver

import (
	"context"
	"time"

	logger "news-harvester/utils/logger"

	"github.com/jackc/pgx/v5"
)

const (
	queryDurationThreshold = 100 * time.Millisecond
)

type queryStartKey struct{}

type QueryTracer struct {
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, time.Now())
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	queryStart, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}

	duration := time.Since(queryStart)

	if duration > queryDurationThreshold {
		logger.Logger.Info("slow query", "duration", duration)
	}
}
