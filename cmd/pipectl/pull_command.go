package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"thepipe/internal/datatree"
	"thepipe/internal/exchange"
	"thepipe/internal/pipe"
	"thepipe/internal/treefile"
)

const pullPollInterval = 200 * time.Millisecond

func newPullCommand(ctx *commandContext) *cobra.Command {
	var output string
	var format string
	var peek bool
	var waitFor time.Duration

	cmd := &cobra.Command{
		Use:   "pull <endpoint>",
		Short: "Take the tree waiting on a pipe endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			switch format {
			case "yaml", "json", "table":
			default:
				return fmt.Errorf("unsupported format %q (use yaml, json or table)", format)
			}

			var tree *datatree.Node
			var err error
			if peek {
				tree, err = peekTree(cmd.Context(), ctx, args[0])
			} else {
				tree, err = pullTree(cmd.Context(), ctx, args[0], waitFor)
			}
			if err != nil {
				return err
			}
			if tree == nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Nothing waiting on %s\n", args[0])
				return nil
			}
			return writePulled(cmd, tree, args[0], output, format)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the tree to this file instead of stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml, json or table")
	cmd.Flags().BoolVar(&peek, "peek", false, "Read the waiting tree without taking it")
	cmd.Flags().DurationVar(&waitFor, "wait", 0, "Keep polling this long for data to arrive")
	return cmd
}

func pullTree(cmdCtx context.Context, ctx *commandContext, id string, waitFor time.Duration) (*datatree.Node, error) {
	p, err := ctx.openPipe(id)
	if err != nil {
		return nil, err
	}
	defer p.ClosePipe()

	j, err := ctx.exchangeJournal()
	if err != nil {
		return nil, err
	}
	runner := exchange.NewRunner(p, j, exchange.WithRunnerLogger(ctx.loggerValue()), exchange.WithRecordEmpty())
	var received *datatree.Node
	p.SetEmitter(pipe.EmitterFunc(func(_ context.Context, tree *datatree.Node) error {
		received = tree
		return nil
	}))

	deadline := time.Now().Add(waitFor)
	for {
		res, err := runner.Cycle(cmdCtx)
		if err != nil {
			return nil, describeError(err)
		}
		if res.Received {
			return received, nil
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}
		select {
		case <-cmdCtx.Done():
			return nil, cmdCtx.Err()
		case <-time.After(pullPollInterval):
		}
	}
}

func peekTree(cmdCtx context.Context, ctx *commandContext, id string) (*datatree.Node, error) {
	p, err := ctx.openPipe(id)
	if err != nil {
		return nil, err
	}
	defer p.ClosePipe()

	peeker, ok := p.Transport().(pipe.Peeker)
	if !ok {
		return nil, fmt.Errorf("endpoint %s does not support peeking", id)
	}
	tree, found, err := peeker.Peek(cmdCtx)
	if err != nil {
		return nil, describeError(exchange.Wrap(exchange.ErrTransport, "consumer", "peek", "", err))
	}
	if !found {
		return nil, nil
	}
	return tree, nil
}

func writePulled(cmd *cobra.Command, tree *datatree.Node, source, output, format string) error {
	if format == "table" {
		writeTreeSummary(cmd.OutOrStdout(), source, tree)
		return nil
	}
	if output != "" {
		if err := treefile.WriteFile(output, tree); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d nodes to %s\n", tree.Count(), output)
		return nil
	}
	f := treefile.YAML
	if format == "json" {
		f = treefile.JSON
	}
	return treefile.Encode(cmd.OutOrStdout(), tree, f)
}
