package exchange

import (
	"context"
	"log/slog"

	"thepipe/internal/convert"
	"thepipe/internal/datatree"
	"thepipe/internal/logging"
	"thepipe/internal/pipe"
)

// Sender collects host objects and converts them for a push.
type Sender[H any] struct {
	registry *convert.Registry[H]
	source   Source[H]
	logger   *slog.Logger
}

// NewSender builds the producer side around source.
func NewSender[H any](registry *convert.Registry[H], source Source[H], logger *slog.Logger) *Sender[H] {
	return &Sender[H]{
		registry: registry,
		source:   source,
		logger:   logging.NewComponentLogger(logger, "sender"),
	}
}

var _ pipe.Collector = (*Sender[struct{}])(nil)

// CollectPipeData converts the current selection into a one-level tree.
func (s *Sender[H]) CollectPipeData(ctx context.Context) (*datatree.Node, error) {
	objects, err := s.source(ctx)
	if err != nil {
		return nil, Wrap(ErrValidation, "send", "collect", "", err)
	}
	tree, err := s.registry.TreeToPipe(objects)
	if err != nil {
		return nil, Wrap(ErrConversion, "send", "convert", "", err)
	}
	s.logger.Debug("selection collected", logging.Int("objects", len(objects)))
	return tree, nil
}
