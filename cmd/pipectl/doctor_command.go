package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"thepipe/internal/config"
	"thepipe/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor [endpoint...]",
		Short: "Check directories, the journal, local pipes and the given endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			printSection(out, "Environment", colorize)
			for _, res := range results {
				fmt.Fprintln(out, renderCheck(res, colorize))
			}

			if len(args) > 0 {
				fmt.Fprintln(out)
				printSection(out, "Endpoints", colorize)
				for _, id := range args {
					res := preflight.CheckEndpoint(cmd.Context(), cfg, id)
					results = append(results, res)
					fmt.Fprintln(out, renderCheck(res, colorize))
				}
			}

			fmt.Fprintln(out)
			printSection(out, "Local pipes", colorize)
			printLocalPipes(out, cfg, colorize)

			if preflight.Failed(results) {
				return fmt.Errorf("one or more checks failed")
			}
			return nil
		},
	}
}

func printSection(out io.Writer, title string, colorize bool) {
	for _, line := range renderSectionHeader(title, colorize) {
		fmt.Fprintln(out, line)
	}
}

func printLocalPipes(out io.Writer, cfg *config.Config, colorize bool) {
	pipes, err := preflight.ProbeLocalPipes(cfg.Paths.RuntimeDir, cfg.ConnectTimeout())
	if err != nil {
		fmt.Fprintln(out, renderStatusLine("Runtime directory", statusError, err.Error(), colorize))
		return
	}
	if len(pipes) == 0 {
		fmt.Fprintln(out, renderStatusLine("Pipes", statusInfo, "none waiting", colorize))
		return
	}
	for _, p := range pipes {
		if p.Listening {
			fmt.Fprintln(out, renderStatusLine(p.Name, statusOK, "data waiting", colorize))
		} else {
			fmt.Fprintln(out, renderStatusLine(p.Name, statusWarn, "stale socket (replaced on next push)", colorize))
		}
	}
}
