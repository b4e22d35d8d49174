package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"thepipe/internal/exchange"
	"thepipe/internal/journal"
	"thepipe/internal/pipe/endpoint"
	"thepipe/internal/refhost"
)

func newDemoCommand(ctx *commandContext) *cobra.Command {
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Exchange a sample scene through the reference host",
	}
	demoCmd.AddCommand(newDemoPushCommand(ctx))
	demoCmd.AddCommand(newDemoPullCommand(ctx))
	return demoCmd
}

func newDemoPushCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "push <endpoint>",
		Short: "Convert the sample scene and push it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := refhost.SampleScene()
			if err != nil {
				return fmt.Errorf("build sample scene: %w", err)
			}
			registry, err := refhost.NewRegistry()
			if err != nil {
				return err
			}
			sender := exchange.NewSender(registry, doc.Source(), ctx.loggerValue())
			if endpoint.Classify(args[0]) == endpoint.Local {
				wait = true
			}
			return runPush(cmd, ctx, args[0], sender, wait, timeout)
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until a consumer takes the data")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up waiting after this long (0 waits indefinitely)")
	return cmd
}

func newDemoPullCommand(ctx *commandContext) *cobra.Command {
	var watch bool
	var interval time.Duration
	var mode string

	cmd := &cobra.Command{
		Use:   "pull <endpoint>",
		Short: "Pull a tree and apply it to an in-memory reference document",
		Long: `Pull a tree and apply it to an in-memory reference document.

With --watch the document lives across cycles, so a repeated push of the same
shape updates the objects received before instead of adding new ones.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			receiveMode, err := parseMode(mode)
			if err != nil {
				return err
			}
			p, err := ctx.openPipe(args[0])
			if err != nil {
				return err
			}
			defer p.ClosePipe()

			store, err := ctx.exchangeJournal()
			if err != nil {
				return err
			}
			j := demoJournal{MemoryJournal: exchange.NewMemoryJournal(), store: store}

			registry, err := refhost.NewRegistry()
			if err != nil {
				return err
			}
			doc := refhost.NewDocument()
			out := cmd.OutOrStdout()
			receiver := exchange.NewReceiver(p.Name(), registry, doc, j,
				exchange.WithMode[refhost.Object](receiveMode),
				exchange.WithReceiverLogger[refhost.Object](ctx.loggerValue()),
				exchange.WithReportHandler[refhost.Object](func(r exchange.Report) {
					writeReport(out, r, doc)
				}),
			)
			p.SetEmitter(receiver)
			runner := exchange.NewRunner(p, j, exchange.WithRunnerLogger(ctx.loggerValue()))

			if watch {
				runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				fmt.Fprintf(out, "Watching %s every %s (Ctrl-C to stop)\n", p.Name(), interval)
				if err := runner.Run(runCtx, interval); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			}

			res, err := runner.Cycle(cmd.Context())
			if err != nil {
				return describeError(err)
			}
			if !res.Received {
				fmt.Fprintf(out, "Nothing waiting on %s\n", p.Name())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Keep pulling until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Pull interval with --watch")
	cmd.Flags().StringVar(&mode, "mode", "auto", "How a receive relates to the previous one: auto, append or replace")
	return cmd
}

func parseMode(value string) (exchange.Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return exchange.ModeAuto, nil
	case "append":
		return exchange.ModeAppend, nil
	case "replace":
		return exchange.ModeReplace, nil
	default:
		return 0, fmt.Errorf("unsupported mode %q (use auto, append or replace)", value)
	}
}

// demoJournal keeps receive state next to the in-memory demo document, so a
// fresh document never inherits object IDs from an earlier process. Entries
// still go to the persistent journal when one is open.
type demoJournal struct {
	*exchange.MemoryJournal
	store exchange.Journal
}

func (d demoJournal) Record(ctx context.Context, e journal.Entry) (int64, error) {
	if d.store == nil {
		return d.MemoryJournal.Record(ctx, e)
	}
	return d.store.Record(ctx, e)
}

func writeReport(out io.Writer, r exchange.Report, doc *refhost.Document) {
	fmt.Fprintf(out, "Session %s: %s %d objects (document now holds %d)\n", r.SessionID, r.Action, r.Objects, doc.Len())
	rows := make([][]string, 0, len(r.IDs))
	for i, id := range r.IDs {
		kind := "-"
		if obj, ok := doc.Get(id); ok {
			kind = kindLabel(obj.ObjectType())
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), id, kind})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Object ID", "Type"}, rows, []columnAlignment{alignRight}))
}
