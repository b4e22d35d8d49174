package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"thepipe/internal/datatree"
	"thepipe/internal/exchange"
	"thepipe/internal/pipe"
	"thepipe/internal/pipe/endpoint"
	"thepipe/internal/treefile"
)

func newPushCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "push <endpoint> <tree-file>",
		Short: "Push a tree file to a pipe endpoint",
		Long: `Push a YAML or JSON tree file to a pipe endpoint ("-" reads YAML from stdin).

Local endpoints are served by this process, so push always waits for a
consumer to take the data. Networked endpoints return once the tree is
queued unless --wait is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, file := args[0], args[1]
			tree, err := treefile.ReadFile(file)
			if err != nil {
				return err
			}
			if endpoint.Classify(id) == endpoint.Local {
				wait = true
			}
			collector := pipe.CollectorFunc(func(context.Context) (*datatree.Node, error) {
				return tree, nil
			})
			return runPush(cmd, ctx, id, collector, wait, timeout)
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until a consumer takes the data")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up waiting after this long (0 waits indefinitely)")
	return cmd
}

// runPush pushes whatever collector supplies and, when wait is set, blocks
// until a consumer takes it.
func runPush(cmd *cobra.Command, ctx *commandContext, id string, collector pipe.Collector, wait bool, timeout time.Duration) error {
	p, err := ctx.openPipe(id)
	if err != nil {
		return err
	}
	defer p.ClosePipe()

	j, err := ctx.exchangeJournal()
	if err != nil {
		return err
	}
	delivered := make(chan struct{})
	runner := exchange.NewRunner(p, j,
		exchange.WithRunnerLogger(ctx.loggerValue()),
		exchange.WithDeliveredHandler(func(*pipe.Completion) { close(delivered) }),
	)
	p.SetCollector(collector)

	res, err := runner.Cycle(cmd.Context())
	if err != nil {
		return describeError(err)
	}

	out := cmd.OutOrStdout()
	if res.Suppressed {
		fmt.Fprintf(out, "Identical data is already waiting on %s; push suppressed\n", p.Name())
		return nil
	}
	if !wait {
		fmt.Fprintf(out, "Queued %d nodes on %s (push %s)\n", res.Tree.Count(), p.Name(), res.Completion.ID())
		return nil
	}

	fmt.Fprintf(out, "Waiting for a consumer on %s...\n", p.Name())
	waitCtx := cmd.Context()
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(waitCtx, timeout)
		defer cancel()
	}
	if err := res.Completion.Wait(waitCtx); err != nil {
		switch {
		case errors.Is(err, pipe.ErrSuperseded):
			return fmt.Errorf("push %s was replaced by newer data before anyone took it", res.Completion.ID())
		case errors.Is(err, pipe.ErrListenTimeout):
			return fmt.Errorf("no consumer took the data within pipe.listen_timeout_ms")
		case errors.Is(err, context.DeadlineExceeded):
			return fmt.Errorf("no consumer took the data within %s", timeout)
		}
		return err
	}
	select {
	case <-delivered:
	case <-waitCtx.Done():
	}
	fmt.Fprintln(out, exchange.PushedMessage)
	return nil
}
