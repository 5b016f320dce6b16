// Package config loads ledger configuration from defaults, an optional TOML
// file, and CLAIMLEDGER_* environment variables, in that order.
package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CLAIMLEDGER_"

// Config is the complete ledger configuration.
type Config struct {
	Storage StorageConfig `toml:"storage" envPrefix:"STORAGE_"`
	Blob    BlobConfig    `toml:"blob" envPrefix:"BLOB_"`
	Log     LogConfig     `toml:"log" envPrefix:"LOG_"`
	Metrics MetricsConfig `toml:"metrics" envPrefix:"METRICS_"`
	Trace   TraceConfig   `toml:"trace" envPrefix:"TRACE_"`
}

// StorageConfig selects the ClaimStore backend.
//
//	CLAIMLEDGER_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	CLAIMLEDGER_STORAGE_SQLITE_PATH: sqlite file (default ./claimledger.db)
//	CLAIMLEDGER_STORAGE_POSTGRES_DSN: postgres DSN when driver=postgres
type StorageConfig struct {
	Driver      string `toml:"driver" env:"DRIVER"`
	SQLitePath  string `toml:"sqlite_path" env:"SQLITE_PATH"`
	PostgresDSN string `toml:"postgres_dsn" env:"POSTGRES_DSN"`
}

// BlobConfig selects where archives are written.
type BlobConfig struct {
	Driver string   `toml:"driver" env:"DRIVER"`
	FSRoot string   `toml:"fs_root" env:"FS_ROOT"`
	Prefix string   `toml:"prefix" env:"PREFIX"`
	S3     S3Config `toml:"s3" envPrefix:"S3_"`
}

// S3Config holds S3 / MinIO parameters. Credentials come from the default AWS chain.
type S3Config struct {
	Bucket    string `toml:"bucket" env:"BUCKET"`
	Region    string `toml:"region" env:"REGION"`
	Endpoint  string `toml:"endpoint" env:"ENDPOINT"`
	PathStyle bool   `toml:"path_style" env:"PATH_STYLE"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string `toml:"level" env:"LEVEL"`
	Format string `toml:"format" env:"FORMAT"`
}

// MetricsConfig selects the metrics exporter.
type MetricsConfig struct {
	Backend   string `toml:"backend" env:"BACKEND"`
	Namespace string `toml:"namespace" env:"NAMESPACE"`
}

// TraceConfig enables the JSON-lines span log.
//
//	CLAIMLEDGER_TRACE_FILE: file spans are appended to (empty disables tracing)
type TraceConfig struct {
	File string `toml:"file" env:"FILE"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{Driver: "sqlite", SQLitePath: "claimledger.db"},
		Blob:    BlobConfig{Driver: "fs", FSRoot: "./blobdata", Prefix: "ledger", S3: S3Config{Region: "us-east-1"}},
		Log:     LogConfig{Level: "info", Format: "console"},
		Metrics: MetricsConfig{Backend: "none", Namespace: "claimledger"},
	}
}

// Load builds a configuration from defaults, the TOML file at path (skipped
// when path is empty) and the process environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := ApplyEnv(&cfg, nil); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile decodes a TOML file over cfg. Unknown keys are rejected.
func LoadFile(path string, cfg *Config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return fmt.Errorf("config parse failed (%s): unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides cfg with CLAIMLEDGER_* variables. A nil environ reads the
// process environment. Unset variables leave the current values alone.
func ApplyEnv(cfg *Config, environ map[string]string) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks enumerated settings.
func (c Config) Validate() error {
	if err := oneOf("storage.driver", c.Storage.Driver, "memory", "sqlite", "postgres"); err != nil {
		return err
	}
	if err := oneOf("blob.driver", c.Blob.Driver, "fs", "s3", "memory"); err != nil {
		return err
	}
	if c.Blob.Driver == "s3" && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("config invalid: blob.s3.bucket required for s3 driver")
	}
	if err := oneOf("log.level", strings.ToLower(c.Log.Level), "debug", "info", "warn", "error", "disabled"); err != nil {
		return err
	}
	if err := oneOf("log.format", c.Log.Format, "console", "json"); err != nil {
		return err
	}
	return oneOf("metrics.backend", c.Metrics.Backend, "none", "expvar", "prometheus")
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("config invalid: %s %q not one of %s", field, value, strings.Join(allowed, "|"))
}
