package exchange_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"thepipe/internal/config"
	"thepipe/internal/exchange"
	"thepipe/internal/journal"
	"thepipe/internal/pipe"
	"thepipe/internal/pipe/localpipe"
	"thepipe/internal/refhost"
	"thepipe/internal/testsupport"
)

func openPipe(t *testing.T, cfg *config.Config, name string) *pipe.Pipe {
	t.Helper()
	tr, err := localpipe.New(name, localpipe.OptionsFromConfig(cfg))
	if err != nil {
		t.Fatalf("localpipe.New: %v", err)
	}
	p := pipe.New(tr)
	t.Cleanup(func() { _ = p.ClosePipe() })
	return p
}

func outcomes(entries []journal.Entry, dir journal.Direction) []string {
	var out []string
	for _, e := range entries {
		if e.Direction == dir {
			out = append(out, e.Outcome)
		}
	}
	return out
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRunnerRoundTripBetweenHosts(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	registry := hostRegistry(t)

	source := refhost.NewDocument()
	for _, obj := range []refhost.Object{
		refhost.LineCurve{To: refhost.Point3d{X: 1}},
		refhost.NumberValue(7),
		&refhost.PolylineCurve{Points: []refhost.Point3d{{}, {X: 1}, {X: 1, Y: 1}, {}}},
	} {
		if _, err := source.Add(obj); err != nil {
			t.Fatalf("seed source: %v", err)
		}
	}
	dest := refhost.NewDocument()

	sendJournal := exchange.NewMemoryJournal()
	delivered := make(chan *pipe.Completion, 1)
	producerPipe := openPipe(t, cfg, "studio")
	producerPipe.SetCollector(exchange.NewSender(registry, source.Source(), nil))
	producer := exchange.NewRunner(producerPipe, sendJournal,
		exchange.WithDeliveredHandler(func(c *pipe.Completion) { delivered <- c }))

	recvJournal := exchange.NewMemoryJournal()
	consumerPipe := openPipe(t, cfg, "studio")
	consumerPipe.SetEmitter(exchange.NewReceiver("studio", registry, dest, recvJournal))
	consumer := exchange.NewRunner(consumerPipe, recvJournal)

	pushed, err := producer.Cycle(ctx)
	if err != nil {
		t.Fatalf("producer cycle: %v", err)
	}
	if pushed.Suppressed || pushed.Completion == nil {
		t.Fatalf("unexpected push result %+v", pushed)
	}

	pulled, err := consumer.Cycle(ctx)
	if err != nil {
		t.Fatalf("consumer cycle: %v", err)
	}
	if !pulled.Received {
		t.Fatal("consumer did not receive the pushed tree")
	}
	if dest.Len() != 3 {
		t.Fatalf("destination has %d objects, want 3", dest.Len())
	}
	poly := dest.Objects()[2].(*refhost.PolylineCurve)
	if !poly.IsClosed() {
		t.Fatal("closed polyline lost its closure")
	}

	select {
	case c := <-delivered:
		if c.ID() != pushed.Completion.ID() {
			t.Fatalf("delivered %s, pushed %s", c.ID(), pushed.Completion.ID())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("delivery was never reported")
	}
	waitFor(t, "delivered journal entry", func() bool {
		return slices.Contains(outcomes(sendJournal.Entries(), journal.DirectionPush), journal.OutcomeDelivered)
	})
	if got := outcomes(sendJournal.Entries(), journal.DirectionPush); !slices.Equal(got, []string{journal.OutcomeSent, journal.OutcomeDelivered}) {
		t.Fatalf("push outcomes = %v", got)
	}
	if got := outcomes(recvJournal.Entries(), journal.DirectionPull); !slices.Equal(got, []string{journal.OutcomeReceived}) {
		t.Fatalf("pull outcomes = %v", got)
	}
	if got := outcomes(recvJournal.Entries(), journal.DirectionReceive); !slices.Equal(got, []string{journal.OutcomeApplied}) {
		t.Fatalf("receive outcomes = %v", got)
	}

	empty, err := consumer.Cycle(ctx)
	if err != nil || empty.Received {
		t.Fatalf("second pull should find nothing: %+v %v", empty, err)
	}
	if n := len(outcomes(recvJournal.Entries(), journal.DirectionPull)); n != 1 {
		t.Fatalf("empty polls are not journaled by default, got %d pull entries", n)
	}
}

func TestRunnerJournalsSuppressionAndSupersede(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	registry := hostRegistry(t)
	source := refhost.NewDocument()
	if _, err := source.Add(refhost.NumberValue(1)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	j := exchange.NewMemoryJournal()
	p := openPipe(t, cfg, "studio")
	p.SetCollector(exchange.NewSender(registry, source.Source(), nil))
	runner := exchange.NewRunner(p, j)

	first, err := runner.Cycle(ctx)
	if err != nil {
		t.Fatalf("first push: %v", err)
	}
	second, err := runner.Cycle(ctx)
	if err != nil {
		t.Fatalf("second push: %v", err)
	}
	if !second.Suppressed {
		t.Fatal("identical push should be suppressed")
	}

	if _, err := source.Add(refhost.NumberValue(2)); err != nil {
		t.Fatalf("grow source: %v", err)
	}
	if _, err := runner.Cycle(ctx); err != nil {
		t.Fatalf("third push: %v", err)
	}
	if !errors.Is(first.Completion.Err(), pipe.ErrSuperseded) {
		t.Fatalf("first push should be superseded, got %v", first.Completion.Err())
	}
	waitFor(t, "superseded entry", func() bool {
		return slices.Contains(outcomes(j.Entries(), journal.DirectionPush), journal.OutcomeSuperseded)
	})
	got := outcomes(j.Entries(), journal.DirectionPush)
	want := []string{journal.OutcomeSent, journal.OutcomeSuppressed, journal.OutcomeSuperseded, journal.OutcomeSent}
	if !slices.Equal(got, want) {
		t.Fatalf("push outcomes = %v, want %v", got, want)
	}
}

func TestRunnerReportsMissingRole(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := exchange.NewRunner(openPipe(t, cfg, "idle"), nil, exchange.WithRecordEmpty())
	if _, err := runner.Cycle(context.Background()); !errors.Is(err, pipe.ErrNoEmitter) {
		t.Fatalf("expected ErrNoEmitter, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	j := exchange.NewMemoryJournal()
	p := openPipe(t, cfg, "quiet")
	p.SetEmitter(exchange.NewReceiver("quiet", hostRegistry(t), refhost.NewDocument(), j))
	runner := exchange.NewRunner(p, j, exchange.WithRecordEmpty())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := runner.Run(ctx, 20*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run returned %v", err)
	}
	if got := outcomes(j.Entries(), journal.DirectionPull); len(got) == 0 || got[0] != journal.OutcomeEmpty {
		t.Fatalf("expected empty pulls to be journaled, got %v", got)
	}
}
