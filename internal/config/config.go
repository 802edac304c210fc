// Package config loads a mswriter.Options value from defaults, an optional
// config file, and MSWRITER_-prefixed environment variables, in that order
// of increasing precedence — the same viper-backed 12-factor layering the
// example pack's JinVei-Laputa and chn0318-logstore repos use. It only
// populates the serializable subset of Options (streams and tuning knobs);
// the wire client, clock, scheduler, and observability hooks are always
// supplied by the caller after Load returns.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/distwrite/mswriter/internal/mswriter"
)

// fileFields mirrors the serializable subset of mswriter.Options: every
// field a config file or environment variable can set. The unexported name
// keeps this package's surface to the single Load function — callers never
// construct a fileFields value themselves.
type fileFields struct {
	Streams                      []string `mapstructure:"streams"`
	BufferSize                   int      `mapstructure:"buffer_size"`
	FlushIntervalMicros          int      `mapstructure:"flush_interval_micros"`
	CompressionCodec             string   `mapstructure:"compression_codec"`
	RequestTimeoutMs             int      `mapstructure:"request_timeout_ms"`
	FirstSpeculativeTimeoutMs    int      `mapstructure:"first_speculative_timeout_ms"`
	MaxSpeculativeTimeoutMs      int      `mapstructure:"max_speculative_timeout_ms"`
	SpeculativeBackoffMultiplier float64  `mapstructure:"speculative_backoff_multiplier"`
	FilterExpr                   string   `mapstructure:"filter_expr"`
}

// Load reads configPath (if non-empty; any format viper auto-detects —
// json, yaml, toml) layered over built-in defaults, then applies
// MSWRITER_-prefixed environment variable overrides, and returns the
// resulting mswriter.Options. A missing configPath is not an error: Load
// falls back to defaults plus environment.
func Load(configPath string) (mswriter.Options, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MSWRITER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			_, notFound := err.(viper.ConfigFileNotFoundError)
			if !notFound && !os.IsNotExist(err) {
				return mswriter.Options{}, err
			}
		}
	}

	var f fileFields
	if err := v.Unmarshal(&f); err != nil {
		return mswriter.Options{}, err
	}

	return mswriter.Options{
		Streams:                      f.Streams,
		BufferSize:                   f.BufferSize,
		FlushIntervalMicros:          f.FlushIntervalMicros,
		CompressionCodec:             f.CompressionCodec,
		RequestTimeoutMs:             f.RequestTimeoutMs,
		FirstSpeculativeTimeoutMs:    f.FirstSpeculativeTimeoutMs,
		MaxSpeculativeTimeoutMs:      f.MaxSpeculativeTimeoutMs,
		SpeculativeBackoffMultiplier: f.SpeculativeBackoffMultiplier,
		FilterExpr:                   f.FilterExpr,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("buffer_size", mswriter.DefaultBufferSize)
	v.SetDefault("flush_interval_micros", mswriter.DefaultFlushIntervalMicros)
	v.SetDefault("compression_codec", "none")
	v.SetDefault("request_timeout_ms", mswriter.DefaultRequestTimeoutMs)
	v.SetDefault("first_speculative_timeout_ms", mswriter.DefaultFirstSpeculativeTimeoutMs)
	v.SetDefault("max_speculative_timeout_ms", mswriter.DefaultMaxSpeculativeTimeoutMs)
	v.SetDefault("speculative_backoff_multiplier", mswriter.DefaultSpeculativeBackoffMultiplier)
}
