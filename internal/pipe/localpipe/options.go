package localpipe

import (
	"log/slog"
	"time"

	"thepipe/internal/config"
	"thepipe/internal/geometry"
	"thepipe/internal/metrics"
	"thepipe/internal/wire"
)

// Options configures a Transport. Zero durations fall back to defaults.
type Options struct {
	RuntimeDir string
	// ConnectTimeout bounds how long PullData waits for a listener.
	ConnectTimeout time.Duration
	// ReadTimeout bounds one request or response once connected.
	ReadTimeout time.Duration
	// DrainTimeout bounds the wait for the consumer's acknowledgement.
	DrainTimeout time.Duration
	// ListenTimeout expires an unconsumed listener. Zero never expires.
	ListenTimeout time.Duration
	Tolerance     geometry.Tolerance
	Limits        wire.Limits
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

const (
	defaultConnectTimeout = 50 * time.Millisecond
	defaultReadTimeout    = 5 * time.Second
	defaultDrainTimeout   = 5 * time.Second
)

// OptionsFromConfig maps the [paths], [pipe] and [geometry] sections.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		RuntimeDir:     cfg.Paths.RuntimeDir,
		ConnectTimeout: cfg.ConnectTimeout(),
		ReadTimeout:    cfg.ReadTimeout(),
		DrainTimeout:   cfg.DrainTimeout(),
		ListenTimeout:  cfg.ListenTimeout(),
		Tolerance:      cfg.Tolerance(),
		Limits:         wire.Limits{MaxPayloadBytes: cfg.MaxPayloadBytes()},
	}
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = defaultConnectTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = defaultReadTimeout
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = defaultDrainTimeout
	}
	if o.ListenTimeout < 0 {
		o.ListenTimeout = 0
	}
	if o.Tolerance == (geometry.Tolerance{}) {
		o.Tolerance = geometry.DefaultTolerance
	}
	if o.Limits.MaxPayloadBytes == 0 {
		o.Limits = wire.DefaultLimits()
	}
	return o
}
