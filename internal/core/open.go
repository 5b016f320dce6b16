package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"claimledger/internal/config"
	"claimledger/internal/logging"
	"claimledger/internal/metrics"
)

// MetricsBackend names a metrics exporter.
type MetricsBackend string

const (
	MetricsNone       MetricsBackend = "none"
	MetricsExpvar     MetricsBackend = "expvar"
	MetricsPrometheus MetricsBackend = "prometheus"
)

// OpenLedger assembles a ledger from configuration: the storage backend, a
// zerolog logger, the selected metrics exporter and, when trace.file is set, a
// JSON tracer appending to that file. opts are applied after the configured
// ones and take precedence.
func OpenLedger(ctx context.Context, cfg config.Config, opts ...Option) (*Ledger, error) {
	zl, err := logging.New(cfg.Log, nil)
	if err != nil {
		return nil, err
	}
	logger := logging.NewAdapter(zl)

	base := []Option{WithLogger(logger)}
	switch MetricsBackend(cfg.Metrics.Backend) {
	case "", MetricsNone:
	case MetricsExpvar:
		name := ""
		if cfg.Metrics.Namespace != "" {
			name = cfg.Metrics.Namespace + "_operations"
		}
		base = append(base, WithMetricsRecorder(NewExpvarMetricsRecorder(name)))
	case MetricsPrometheus:
		rec, err := metrics.NewPrometheusRecorder(nil, cfg.Metrics.Namespace)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		base = append(base, WithMetricsRecorder(rec))
	default:
		return nil, fmt.Errorf("unknown metrics backend %s", cfg.Metrics.Backend)
	}

	var closers []io.Closer
	if cfg.Trace.File != "" {
		f, err := os.OpenFile(cfg.Trace.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open trace file: %w", err)
		}
		closers = append(closers, f)
		base = append(base, WithTracer(NewJSONTracer(f)))
	}

	store, err := OpenPersistentStore(ctx, cfg.Storage)
	if err != nil {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}
	logger.Info("ledger opened", "driver", cfg.Storage.Driver, "claims", len(store.ListProofs()), "trace", cfg.Trace.File)
	ledger := NewLedger(store, append(base, opts...)...)
	ledger.closers = closers
	return ledger, nil
}
