// ABOUTME: This file carries harvest identifiers through context for logging.
// ABOUTME: Run, worker, operation, source and request IDs propagate onto log records.
package logger

import "context"

type ContextKey string

const (
	RunIDKey     ContextKey = "run_id"
	WorkerIDKey  ContextKey = "worker_id"
	OperationKey ContextKey = "operation"
	SourceKey    ContextKey = "source"
	RequestIDKey ContextKey = "request_id"
)

// WithRunID stamps the harvest run identifier onto the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithWorkerID stamps a worker identifier onto the context.
func WithWorkerID(ctx context.Context, workerID int) context.Context {
	return context.WithValue(ctx, WorkerIDKey, workerID)
}

// WithOperation stamps the current operation name onto the context.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, OperationKey, operation)
}

// WithSource stamps the publisher source label onto the context.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, SourceKey, source)
}

// WithRequestID stamps an ops request identifier onto the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}
