// Package endpoint chooses and opens the transport for an endpoint string.
//
// Absolute URLs with a host select a networked transport by scheme; every
// other string names a local pipe.
package endpoint

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"thepipe/internal/config"
	"thepipe/internal/metrics"
	"thepipe/internal/pipe"
	"thepipe/internal/pipe/httppipe"
	"thepipe/internal/pipe/localpipe"
	"thepipe/internal/pipe/redispipe"
	"thepipe/internal/pipeutil"
)

// Kind is the transport family an endpoint resolves to.
type Kind int

const (
	Local Kind = iota
	HTTP
	Redis
	// Unsupported is a URL whose scheme no transport serves.
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case HTTP:
		return "http"
	case Redis:
		return "redis"
	default:
		return "unsupported"
	}
}

// ErrUnsupportedScheme is returned by Open for URLs of an unknown scheme.
var ErrUnsupportedScheme = errors.New("endpoint: unsupported URL scheme")

// Classify maps id to a transport family. The result depends only on id.
func Classify(id string) Kind {
	if !pipeutil.IsValidURL(id) {
		return Local
	}
	u, err := url.Parse(strings.TrimSpace(id))
	if err != nil {
		return Unsupported
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return HTTP
	case "redis", "rediss":
		return Redis
	default:
		return Unsupported
	}
}

// Deps carries shared collaborators handed to every transport.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// Open builds the transport for id from cfg.
func Open(id string, cfg *config.Config, deps Deps) (pipe.Transport, error) {
	id = strings.TrimSpace(id)
	switch Classify(id) {
	case Local:
		opts := localpipe.OptionsFromConfig(cfg)
		opts.Logger, opts.Metrics = deps.Logger, deps.Metrics
		return localpipe.New(id, opts)
	case HTTP:
		opts := httppipe.OptionsFromConfig(cfg)
		opts.Logger, opts.Metrics = deps.Logger, deps.Metrics
		return httppipe.New(id, opts)
	case Redis:
		opts := redispipe.OptionsFromConfig(cfg)
		opts.Logger, opts.Metrics = deps.Logger, deps.Metrics
		return redispipe.New(id, opts)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, id)
	}
}

// OpenPipe wraps the transport for id in a pipe.Pipe.
func OpenPipe(id string, cfg *config.Config, deps Deps, opts ...pipe.Option) (*pipe.Pipe, error) {
	t, err := Open(id, cfg, deps)
	if err != nil {
		return nil, err
	}
	if deps.Logger != nil {
		opts = append([]pipe.Option{pipe.WithLogger(deps.Logger)}, opts...)
	}
	return pipe.New(t, opts...), nil
}
