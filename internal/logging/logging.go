// Package logging builds the zerolog logger used by the ledger and adapts it to
// the key/value Logger interface the core package consumes.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"claimledger/internal/config"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger from cfg. A nil out writes to stderr.
func New(cfg config.LogConfig, out io.Writer) (zerolog.Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	switch cfg.Format {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q unsupported", cfg.Format)
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("app", "claimledger").Logger(), nil
}

// Adapter exposes a zerolog.Logger through Debug/Info/Warn/Error(msg, kv...).
type Adapter struct {
	log zerolog.Logger
}

// NewAdapter wraps log.
func NewAdapter(log zerolog.Logger) *Adapter {
	return &Adapter{log: log}
}

// Debug logs at debug level.
func (a *Adapter) Debug(msg string, kv ...any) { emit(a.log.Debug(), msg, kv) }

// Info logs at info level.
func (a *Adapter) Info(msg string, kv ...any) { emit(a.log.Info(), msg, kv) }

// Warn logs at warn level.
func (a *Adapter) Warn(msg string, kv ...any) { emit(a.log.Warn(), msg, kv) }

// Error logs at error level.
func (a *Adapter) Error(msg string, kv ...any) { emit(a.log.Error(), msg, kv) }

// emit attaches alternating key/value pairs. A trailing key without a value is
// recorded under "extra"; non-string keys are formatted with %v.
func emit(ev *zerolog.Event, msg string, kv []any) {
	if ev == nil {
		return
	}
	for i := 0; i < len(kv); i += 2 {
		if i+1 >= len(kv) {
			ev = ev.Interface("extra", kv[i])
			break
		}
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		switch v := kv[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case fmt.Stringer:
			ev = ev.Str(key, v.String())
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}
