package pipe

import "errors"

var (
	// ErrNoEmitter is returned by Update on a consumer without an emitter.
	ErrNoEmitter = errors.New("pipe: no emitter registered")
	// ErrNoCollector is returned by Update on a producer without a collector.
	ErrNoCollector = errors.New("pipe: no collector registered")
	// ErrClosed is returned by operations on a closed pipe or transport.
	ErrClosed = errors.New("pipe: closed")
	// ErrSuperseded resolves a push whose tree was replaced by a newer push
	// before any consumer took it.
	ErrSuperseded = errors.New("pipe: push superseded by newer data")
	// ErrListenTimeout resolves a push nobody consumed within the listen
	// timeout.
	ErrListenTimeout = errors.New("pipe: listen timed out")
)
