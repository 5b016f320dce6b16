package core

import (
	"context"
	"time"
)

// Logger is the minimal structured logger used by the ledger. Arguments after
// msg are alternating keys and values.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
}

// MetricsRecorder observes the outcome and latency of each ledger operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer opens a span around each ledger operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is closed with the operation's error (nil on success).
type TraceSpan interface {
	End(err error)
}

// Option configures a Ledger.
type Option func(*ledgerOptions)

type ledgerOptions struct {
	clock   Clock
	sinks   []EventSink
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
}

func defaultLedgerOptions() ledgerOptions {
	return ledgerOptions{
		clock:   NewBlockClock(0),
		logger:  noopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
}

// WithClock sets the source of recorded_at heights. Nil is ignored.
func WithClock(clock Clock) Option {
	return func(o *ledgerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithEventSink adds an event consumer. Repeated use fans out to every sink in
// registration order.
func WithEventSink(sink EventSink) Option {
	return func(o *ledgerOptions) {
		if sink != nil {
			o.sinks = append(o.sinks, sink)
		}
	}
}

// WithLogger sets the ledger logger. Nil is ignored.
func WithLogger(logger Logger) Option {
	return func(o *ledgerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics recorder. Nil is ignored.
func WithMetricsRecorder(metrics MetricsRecorder) Option {
	return func(o *ledgerOptions) {
		if metrics != nil {
			o.metrics = metrics
		}
	}
}

// WithTracer sets the tracer. Nil is ignored.
func WithTracer(tracer Tracer) Option {
	return func(o *ledgerOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}
