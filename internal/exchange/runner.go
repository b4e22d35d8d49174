package exchange

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"thepipe/internal/journal"
	"thepipe/internal/logging"
	"thepipe/internal/pipe"
)

// PushedMessage is logged and reported once a pushed tree is delivered.
const PushedMessage = "Pushed data to the pipe"

// Runner drives a pipe cycle by cycle and journals each outcome.
type Runner struct {
	pipe        *pipe.Pipe
	journal     Journal
	logger      *slog.Logger
	recordEmpty bool
	onDelivered func(*pipe.Completion)
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithRecordEmpty journals pulls that found nothing. Polling loops leave it
// off.
func WithRecordEmpty() RunnerOption {
	return func(r *Runner) { r.recordEmpty = true }
}

// WithDeliveredHandler is called once for every push a consumer took, after
// the delivery is journaled.
func WithDeliveredHandler(fn func(*pipe.Completion)) RunnerOption {
	return func(r *Runner) { r.onDelivered = fn }
}

// NewRunner takes over the completion callback of p.
func NewRunner(p *pipe.Pipe, j Journal, opts ...RunnerOption) *Runner {
	if j == nil {
		j = NewMemoryJournal()
	}
	r := &Runner{pipe: p, journal: j}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "runner").With(logging.String(logging.FieldPipe, p.Name()))
	p.SetCompletionCallback(r.completed)
	return r
}

// Pipe returns the driven pipe.
func (r *Runner) Pipe() *pipe.Pipe { return r.pipe }

// Cycle runs one Update and journals what happened.
func (r *Runner) Cycle(ctx context.Context) (pipe.Result, error) {
	res, err := r.pipe.Update(ctx)
	if errors.Is(err, pipe.ErrClosed) || errors.Is(err, pipe.ErrNoCollector) || errors.Is(err, pipe.ErrNoEmitter) {
		return res, err
	}
	if res.Role == pipe.RoleProducer {
		r.recordPush(ctx, res, err)
	} else {
		r.recordPull(ctx, res, err)
	}
	if err != nil && !errors.Is(err, ErrConversion) && !errors.Is(err, ErrApply) && !errors.Is(err, ErrJournal) && !errors.Is(err, ErrValidation) {
		err = Wrap(ErrTransport, res.Role.String(), "update", "", err)
	}
	return res, err
}

// Run repeats Cycle every interval until ctx is done. Cycle errors are
// logged and do not stop the loop.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := r.Cycle(ctx); err != nil {
			if errors.Is(err, pipe.ErrClosed) {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.WarnWithContext(r.logger, "exchange cycle failed", "cycle_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, Hint(err)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Runner) recordPush(ctx context.Context, res pipe.Result, err error) {
	e := journal.Entry{Pipe: r.pipe.Name(), Direction: journal.DirectionPush}
	if res.Tree != nil {
		e.Nodes = res.Tree.Count()
		e.Kinds = journal.KindCounts(res.Tree.Kinds())
	}
	switch {
	case err != nil:
		e.Outcome = journal.OutcomeFailed
		e.Error = err.Error()
	case res.Suppressed:
		e.Outcome = journal.OutcomeSuppressed
	default:
		e.Outcome = journal.OutcomeSent
	}
	if res.Completion != nil {
		e.PushID = res.Completion.ID()
	}
	r.record(ctx, e)
}

func (r *Runner) recordPull(ctx context.Context, res pipe.Result, err error) {
	e := journal.Entry{Pipe: r.pipe.Name(), Direction: journal.DirectionPull}
	switch {
	case res.Received:
		e.Outcome = journal.OutcomeReceived
		e.Nodes = res.Tree.Count()
		e.Kinds = journal.KindCounts(res.Tree.Kinds())
	case err != nil:
		e.Outcome = journal.OutcomeFailed
		e.Error = err.Error()
	default:
		if !r.recordEmpty {
			return
		}
		e.Outcome = journal.OutcomeEmpty
	}
	r.record(ctx, e)
}

// completed journals the fate of a push. Suppressed completions mirror an
// earlier push that is journaled on its own.
func (r *Runner) completed(c *pipe.Completion) {
	if c.Suppressed() {
		return
	}
	e := journal.Entry{Pipe: r.pipe.Name(), Direction: journal.DirectionPush, PushID: c.ID()}
	err := c.Err()
	switch {
	case err == nil:
		e.Outcome = journal.OutcomeDelivered
		r.logger.Info(PushedMessage, logging.String(logging.FieldPushID, c.ID()))
	case errors.Is(err, pipe.ErrSuperseded):
		e.Outcome = journal.OutcomeSuperseded
	case errors.Is(err, pipe.ErrListenTimeout):
		e.Outcome = journal.OutcomeExpired
	default:
		e.Outcome = journal.OutcomeFailed
		e.Error = err.Error()
	}
	r.record(context.Background(), e)
	if err == nil && r.onDelivered != nil {
		r.onDelivered(c)
	}
}

func (r *Runner) record(ctx context.Context, e journal.Entry) {
	if _, err := r.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		r.logger.Warn("failed to journal exchange event", logging.Error(err))
	}
}
