package exchange_test

import (
	"context"
	"errors"
	"testing"

	"thepipe/internal/convert"
	"thepipe/internal/datatree"
	"thepipe/internal/exchange"
	"thepipe/internal/geometry"
	"thepipe/internal/journal"
	"thepipe/internal/refhost"
	"thepipe/internal/testsupport"
)

func hostRegistry(t *testing.T) *convert.Registry[refhost.Object] {
	t.Helper()
	r, err := refhost.NewRegistry()
	if err != nil {
		t.Fatalf("refhost.NewRegistry: %v", err)
	}
	return r
}

func lines(n int, offset float64) *datatree.Node {
	values := make([]geometry.Value, n)
	for i := range values {
		x := float64(i) + offset
		values[i] = geometry.Line{Start: geometry.V3(x, 0, 0), End: geometry.V3(x, 1, 0)}
	}
	return datatree.Leaves(values...)
}

func TestReceiveAppendsThenUpdatesThenReplaces(t *testing.T) {
	ctx := context.Background()
	doc := refhost.NewDocument()
	j := exchange.NewMemoryJournal()
	rx := exchange.NewReceiver("studio", hostRegistry(t), doc, j)

	first, err := rx.Receive(ctx, lines(2, 0))
	if err != nil {
		t.Fatalf("first receive: %v", err)
	}
	if first.Action != exchange.ActionAppended || first.Objects != 2 {
		t.Fatalf("first report = %+v", first)
	}

	second, err := rx.Receive(ctx, lines(2, 10))
	if err != nil {
		t.Fatalf("second receive: %v", err)
	}
	if second.Action != exchange.ActionUpdated {
		t.Fatalf("matching kinds should update in place, got %s", second.Action)
	}
	if doc.Len() != 2 {
		t.Fatalf("document has %d objects after update, want 2", doc.Len())
	}
	for i, id := range first.IDs {
		if second.IDs[i] != id {
			t.Fatalf("update changed id %d: %s -> %s", i, id, second.IDs[i])
		}
	}
	obj, _ := doc.Get(first.IDs[0])
	if got := obj.(refhost.LineCurve).From.X; got != 10 {
		t.Fatalf("updated line starts at x=%v, want 10", got)
	}

	mixed := datatree.Leaves(geometry.Number{Value: 1}, geometry.Text{Value: "a"}, geometry.Number{Value: 2})
	third, err := rx.Receive(ctx, mixed)
	if err != nil {
		t.Fatalf("third receive: %v", err)
	}
	if third.Action != exchange.ActionReplaced {
		t.Fatalf("different kinds should replace, got %s", third.Action)
	}
	if doc.Len() != 3 {
		t.Fatalf("document has %d objects after replace, want 3", doc.Len())
	}
	if _, ok := doc.Get(first.IDs[0]); ok {
		t.Fatal("previous objects should be deleted on replace")
	}
	if third.SessionID == second.SessionID || second.SessionID == first.SessionID {
		t.Fatal("every receive must run in its own session")
	}

	entries := j.Entries()
	if len(entries) != 3 {
		t.Fatalf("journal entries = %d, want 3", len(entries))
	}
	for _, e := range entries {
		if e.Direction != journal.DirectionReceive || e.Outcome != journal.OutcomeApplied {
			t.Fatalf("unexpected journal entry %+v", e)
		}
	}
	if entries[2].Kinds["number"] != 2 {
		t.Fatalf("kind counts not journaled: %+v", entries[2].Kinds)
	}
}

func TestAppendModeNeverTouchesPreviousObjects(t *testing.T) {
	ctx := context.Background()
	doc := refhost.NewDocument()
	rx := exchange.NewReceiver("studio", hostRegistry(t), doc, nil,
		exchange.WithMode[refhost.Object](exchange.ModeAppend))

	for range 3 {
		report, err := rx.Receive(ctx, lines(2, 0))
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		if report.Action != exchange.ActionAppended {
			t.Fatalf("action = %s, want appended", report.Action)
		}
	}
	if doc.Len() != 6 {
		t.Fatalf("document has %d objects, want 6", doc.Len())
	}
}

func TestApplyFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	doc := refhost.NewDocument(refhost.WithValidator(func(o refhost.Object) error {
		if o.ObjectType() == "text" {
			return errors.New("annotations are locked")
		}
		return nil
	}))
	j := exchange.NewMemoryJournal()
	rx := exchange.NewReceiver("studio", hostRegistry(t), doc, j)

	tree := datatree.Leaves(geometry.Number{Value: 1}, geometry.Number{Value: 2}, geometry.Text{Value: "x"})
	_, err := rx.Receive(ctx, tree)
	if !errors.Is(err, exchange.ErrApply) {
		t.Fatalf("expected ErrApply, got %v", err)
	}
	if doc.Len() != 0 {
		t.Fatalf("rolled back receive left %d objects", doc.Len())
	}
	entries := j.Entries()
	if len(entries) != 1 || entries[0].Outcome != journal.OutcomeRolledBack || entries[0].Error == "" {
		t.Fatalf("expected one rolled_back entry, got %+v", entries)
	}
	if exchange.Hint(err) == "" {
		t.Fatal("expected an operator hint")
	}
}

func TestConversionFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	curves, err := refhost.CurveRegistry()
	if err != nil {
		t.Fatalf("CurveRegistry: %v", err)
	}
	doc := refhost.NewDocument()
	rx := exchange.NewReceiver("studio", curves, doc, nil)

	_, err = rx.Receive(ctx, datatree.Leaves(geometry.Line{End: geometry.V3(1, 0, 0)}, geometry.Number{Value: 3}))
	if !errors.Is(err, exchange.ErrConversion) || !errors.Is(err, convert.ErrUnsupportedKind) {
		t.Fatalf("expected unsupported kind conversion error, got %v", err)
	}
	if doc.Len() != 0 {
		t.Fatal("nothing may be applied when any value fails to convert")
	}

	bad := datatree.Leaves(geometry.Line{End: geometry.V3(1, 0, 0)}, geometry.Arc{Normal: geometry.V3(0, 0, 1)})
	_, err = rx.Receive(ctx, bad)
	if !errors.Is(err, convert.ErrReconstructionFailed) {
		t.Fatalf("expected reconstruction failure, got %v", err)
	}
	if doc.Len() != 0 {
		t.Fatal("reconstruction failure must not apply the other values")
	}
}

func TestPreviousReceivePersistsInJournal(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenJournal(t, cfg)
	doc := refhost.NewDocument()
	registry := hostRegistry(t)

	first, err := exchange.NewReceiver("studio", registry, doc, store).Receive(ctx, lines(1, 0))
	if err != nil {
		t.Fatalf("first receive: %v", err)
	}
	// A fresh receiver, as after a host restart, still updates in place.
	second, err := exchange.NewReceiver("studio", registry, doc, store).Receive(ctx, lines(1, 5))
	if err != nil {
		t.Fatalf("second receive: %v", err)
	}
	if second.Action != exchange.ActionUpdated || second.IDs[0] != first.IDs[0] {
		t.Fatalf("expected in-place update of %s, got %+v", first.IDs[0], second)
	}

	other, err := exchange.NewReceiver("elsewhere", registry, doc, store).Receive(ctx, lines(1, 0))
	if err != nil {
		t.Fatalf("other pipe receive: %v", err)
	}
	if other.Action != exchange.ActionAppended {
		t.Fatalf("receive state is per pipe, got %s", other.Action)
	}
}
