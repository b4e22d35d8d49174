package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"thepipe/internal/daemonrun"
)

func newRelayCommand(ctx *commandContext) *cobra.Command {
	var listen string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Serve the HTTP relay in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel: logLevel,
				Listen:   listen,
				Ready: func(addr string) {
					fmt.Fprintf(out, "Relay listening on http://%s\n", addr)
				},
			})
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Address to bind (overrides relay.listen)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (overrides logging.level)")
	return cmd
}
