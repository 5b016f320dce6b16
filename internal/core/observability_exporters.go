package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq atomic.Uint64

// OperationStats aggregates the outcomes of one ledger operation.
type OperationStats struct {
	Succeeded       int64   `json:"succeeded"`
	Failed          int64   `json:"failed"`
	TotalDurationMS float64 `json:"total_duration_ms"`
}

// ExpvarMetricsRecorder publishes per-operation counters through expvar so they
// appear on /debug/vars.
type ExpvarMetricsRecorder struct {
	name string
	mu   sync.Mutex
	ops  map[string]OperationStats
}

// ExpvarMetricsSnapshot is a point-in-time copy of the recorder state.
type ExpvarMetricsSnapshot struct {
	Operations map[string]OperationStats `json:"operations"`
	TakenAt    time.Time                 `json:"taken_at"`
}

var (
	expvarMu        sync.Mutex
	expvarRecorders = make(map[string]*ExpvarMetricsRecorder)
)

// NewExpvarMetricsRecorder publishes a recorder under name. An empty name gets
// a unique generated one. expvar names are process-global: asking for a name
// this package already published returns that recorder, and a name taken by
// some other expvar variable gets a numeric suffix.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	expvarMu.Lock()
	defer expvarMu.Unlock()
	if name == "" {
		name = fmt.Sprintf("claimledger_metrics_%d", expvarSeq.Add(1))
	}
	if rec, ok := expvarRecorders[name]; ok {
		return rec
	}
	requested := name
	for expvar.Get(name) != nil {
		name = fmt.Sprintf("%s_%d", requested, expvarSeq.Add(1))
	}
	rec := &ExpvarMetricsRecorder{name: name, ops: make(map[string]OperationStats)}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	expvarRecorders[requested] = rec
	return rec
}

// Name returns the expvar key.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot copies the current counters.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make(map[string]OperationStats, len(r.ops))
	for op, stats := range r.ops {
		ops[op] = stats
	}
	return ExpvarMetricsSnapshot{Operations: ops, TakenAt: time.Now().UTC()}
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.mu.Lock()
	stats := r.ops[operation]
	if success {
		stats.Succeeded++
	} else {
		stats.Failed++
	}
	stats.TotalDurationMS += float64(duration) / float64(time.Millisecond)
	r.ops[operation] = stats
	r.mu.Unlock()
}

// JSONTraceEntry is one finished span.
type JSONTraceEntry struct {
	Operation  string    `json:"operation"`
	OK         bool      `json:"ok"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS float64   `json:"duration_ms"`
}

// JSONTraceTracer writes finished spans as JSON lines and keeps them in memory.
type JSONTraceTracer struct {
	mu      sync.Mutex
	now     func() time.Time
	enc     *json.Encoder
	entries []JSONTraceEntry
}

// NewJSONTracer returns a tracer writing to w. A nil w only retains entries.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{now: func() time.Time { return time.Now().UTC() }}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of the finished spans.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	return ctx, &jsonTraceSpan{tracer: t, operation: operation, started: t.now()}
}

type jsonTraceSpan struct {
	tracer    *JSONTraceTracer
	operation string
	started   time.Time
}

func (s *jsonTraceSpan) End(err error) {
	entry := JSONTraceEntry{
		Operation:  s.operation,
		OK:         err == nil,
		StartedAt:  s.started,
		DurationMS: float64(s.tracer.now().Sub(s.started)) / float64(time.Millisecond),
	}
	if err != nil {
		entry.Error = err.Error()
	}
	s.tracer.mu.Lock()
	defer s.tracer.mu.Unlock()
	s.tracer.entries = append(s.tracer.entries, entry)
	if s.tracer.enc != nil {
		_ = s.tracer.enc.Encode(entry)
	}
}
