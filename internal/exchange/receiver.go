package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"thepipe/internal/convert"
	"thepipe/internal/datatree"
	"thepipe/internal/geometry"
	"thepipe/internal/journal"
	"thepipe/internal/logging"
	"thepipe/internal/pipe"
)

// Mode selects how a receive relates to the previous one on the same pipe.
type Mode int

const (
	// ModeAuto updates the previous objects in place when the received
	// kinds match them one for one, replaces them otherwise.
	ModeAuto Mode = iota
	// ModeAppend always adds new objects.
	ModeAppend
	// ModeReplace always deletes the previous objects first.
	ModeReplace
)

// Action is what a receive did to the host document.
type Action string

const (
	ActionAppended Action = "appended"
	ActionUpdated  Action = "updated"
	ActionReplaced Action = "replaced"
)

// Report describes one applied receive.
type Report struct {
	SessionID string
	Action    Action
	Objects   int
	IDs       []string
	Kinds     map[geometry.Kind]int
}

// Receiver converts received trees and applies them to a host.
type Receiver[H any] struct {
	pipe     string
	registry *convert.Registry[H]
	host     Host[H]
	journal  Journal
	mode     Mode
	logger   *slog.Logger
	onReport func(Report)
}

// ReceiverOption configures a Receiver.
type ReceiverOption[H any] func(*Receiver[H])

func WithMode[H any](mode Mode) ReceiverOption[H] {
	return func(r *Receiver[H]) { r.mode = mode }
}

func WithReceiverLogger[H any](logger *slog.Logger) ReceiverOption[H] {
	return func(r *Receiver[H]) { r.logger = logger }
}

// WithReportHandler is called after every applied receive.
func WithReportHandler[H any](fn func(Report)) ReceiverOption[H] {
	return func(r *Receiver[H]) { r.onReport = fn }
}

// NewReceiver builds the consumer side for pipeName. A nil journal keeps
// receive state in memory.
func NewReceiver[H any](pipeName string, registry *convert.Registry[H], host Host[H], j Journal, opts ...ReceiverOption[H]) *Receiver[H] {
	if j == nil {
		j = NewMemoryJournal()
	}
	r := &Receiver[H]{pipe: pipeName, registry: registry, host: host, journal: j}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "receiver")
	return r
}

var _ pipe.Emitter = (*Receiver[struct{}])(nil)

// EmitPipeData applies tree; it makes Receiver usable as a pipe.Emitter.
func (r *Receiver[H]) EmitPipeData(ctx context.Context, tree *datatree.Node) error {
	_, err := r.Receive(ctx, tree)
	return err
}

// Receive converts every value of tree and applies the result in a single
// host transaction. Any conversion or apply failure rolls the transaction
// back and leaves the host document unchanged.
func (r *Receiver[H]) Receive(ctx context.Context, tree *datatree.Node) (Report, error) {
	session := NewSession(r.pipe)
	ctx = session.Context(ctx)
	logger := logging.WithContext(ctx, r.logger)
	report := Report{SessionID: session.ID, Kinds: tree.Kinds()}

	entry := journal.Entry{
		Pipe:      r.pipe,
		Direction: journal.DirectionReceive,
		SessionID: session.ID,
		Nodes:     tree.Count(),
		Kinds:     journal.KindCounts(report.Kinds),
	}
	fail := func(err error) (Report, error) {
		entry.Outcome = journal.OutcomeRolledBack
		entry.Error = err.Error()
		r.record(ctx, entry)
		logging.ErrorWithContext(logger, "receive rolled back", "receive_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, Hint(err)))
		return report, err
	}

	objects, err := r.registry.TreeFromPipeTagged(tree)
	if err != nil {
		return fail(Wrap(ErrConversion, "receive", "convert", "", err))
	}

	previous, err := r.journal.PreviousReceive(ctx, r.pipe)
	if err != nil {
		return fail(Wrap(ErrJournal, "receive", "previous", "", err))
	}
	report.Action = r.decide(previous, objects)

	tx, err := r.host.Begin(ctx)
	if err != nil {
		return fail(Wrap(ErrApply, "receive", "begin", "", err))
	}
	ids, err := apply(tx, report.Action, previous, objects)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return fail(Wrap(ErrApply, "receive", string(report.Action), "", err))
	}
	if err := tx.Commit(); err != nil {
		return fail(Wrap(ErrApply, "receive", "commit", "", err))
	}

	refs := make([]journal.ObjectRef, len(objects))
	for i, obj := range objects {
		refs[i] = journal.ObjectRef{Kind: obj.Kind, ID: ids[i]}
	}
	if err := r.journal.ReplaceReceive(ctx, r.pipe, session.ID, refs); err != nil {
		// The host already committed; only update-in-place on the next
		// receive is affected.
		logging.WarnWithContext(logger, "failed to persist received object ids", "journal_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, Hint(Wrap(ErrJournal, "", "", "", err))))
	}

	report.Objects = len(objects)
	report.IDs = ids
	entry.Outcome = journal.OutcomeApplied
	r.record(ctx, entry)
	logger.Info("receive applied",
		logging.String("action", string(report.Action)),
		logging.Int("objects", report.Objects))
	if r.onReport != nil {
		r.onReport(report)
	}
	return report, nil
}

func (r *Receiver[H]) decide(previous []journal.ObjectRef, objects []convert.Tagged[H]) Action {
	switch r.mode {
	case ModeAppend:
		return ActionAppended
	case ModeReplace:
		if len(previous) == 0 {
			return ActionAppended
		}
		return ActionReplaced
	}
	if len(previous) == 0 {
		return ActionAppended
	}
	if sameKinds(previous, objects) {
		return ActionUpdated
	}
	return ActionReplaced
}

func sameKinds[H any](previous []journal.ObjectRef, objects []convert.Tagged[H]) bool {
	prev := make([]geometry.Kind, len(previous))
	for i, p := range previous {
		prev[i] = p.Kind
	}
	next := make([]geometry.Kind, len(objects))
	for i, o := range objects {
		next[i] = o.Kind
	}
	return slices.Equal(prev, next)
}

func apply[H any](tx Tx[H], action Action, previous []journal.ObjectRef, objects []convert.Tagged[H]) ([]string, error) {
	ids := make([]string, len(objects))
	switch action {
	case ActionUpdated:
		for i, obj := range objects {
			if err := tx.Replace(previous[i].ID, obj.Object); err != nil {
				return nil, fmt.Errorf("update %s: %w", previous[i].ID, err)
			}
			ids[i] = previous[i].ID
		}
		return ids, nil
	case ActionReplaced:
		for _, p := range previous {
			if err := tx.Delete(p.ID); err != nil {
				return nil, fmt.Errorf("delete %s: %w", p.ID, err)
			}
		}
	}
	for i, obj := range objects {
		id, err := tx.Add(obj.Object)
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", obj.Kind, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func (r *Receiver[H]) record(ctx context.Context, e journal.Entry) {
	if _, err := r.journal.Record(ctx, e); err != nil {
		r.logger.Warn("failed to journal receive", logging.Error(err))
	}
}
