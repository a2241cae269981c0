// Package metrics provides metrics recording for provider calls and chain outcomes.
package metrics

import (
	"context"
	"time"
)

// Operation labels a request with the chain operation that issued it.
type Operation string

// Chain operations.
const (
	OperationGenerate Operation = "generate"
	OperationRefine   Operation = "refine"
	OperationProbe    Operation = "probe"
	OperationUnknown  Operation = "unknown"
)

type operationKey struct{}

// WithOperation tags ctx so middleware can label the request.
func WithOperation(ctx context.Context, op Operation) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

// OperationFrom returns the operation carried by ctx.
func OperationFrom(ctx context.Context) Operation {
	if op, ok := ctx.Value(operationKey{}).(Operation); ok {
		return op
	}
	return OperationUnknown
}

// Recorder defines the interface for recording provider metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed provider request.
	ObserveRequest(
		provider, model string,
		op Operation,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)

	// ObserveOutcome records which step of the fallback chain produced the result
	// (a provider name, "template" or "canned").
	ObserveOutcome(op Operation, source string, degraded bool)

	// ObserveProbe records a credential probe result.
	ObserveProbe(provider, status string)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(_, _ string, _ Operation, _, _ int, _ bool, _ string, _ time.Duration) {
}

// ObserveOutcome does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveOutcome(_ Operation, _ string, _ bool) {}

// ObserveProbe does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveProbe(_, _ string) {}
