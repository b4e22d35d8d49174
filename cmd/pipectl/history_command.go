package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"thepipe/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var stats bool

	cmd := &cobra.Command{
		Use:   "history [pipe]",
		Short: "Show recent exchanges from the journal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.journalStore()
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("journal is disabled; set journal.enabled = true in config.toml")
			}
			out := cmd.OutOrStdout()
			if stats {
				counts, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderStatsTable(counts))
				return nil
			}

			var pipeName string
			if len(args) == 1 {
				pipeName = args[0]
			}
			entries, err := store.Recent(cmd.Context(), pipeName, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No exchanges recorded")
				return nil
			}
			fmt.Fprintln(out, renderHistoryTable(entries))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().BoolVar(&stats, "stats", false, "Show outcome counts instead of entries")
	return cmd
}

func renderHistoryTable(entries []journal.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		detail := summarizeKinds(e.Kinds)
		if e.Error != "" {
			detail = e.Error
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.CreatedAt.Local().Format(time.DateTime),
			e.Pipe,
			string(e.Direction),
			e.Outcome,
			strconv.Itoa(e.Nodes),
			detail,
		})
	}
	return renderTable(
		[]string{"ID", "Time", "Pipe", "Direction", "Outcome", "Nodes", "Detail"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func renderStatsTable(counts map[journal.Direction]map[string]int) string {
	var rows [][]string
	for _, dir := range []journal.Direction{journal.DirectionPush, journal.DirectionPull, journal.DirectionReceive} {
		outcomes := make([]string, 0, len(counts[dir]))
		for outcome := range counts[dir] {
			outcomes = append(outcomes, outcome)
		}
		sort.Strings(outcomes)
		for _, outcome := range outcomes {
			rows = append(rows, []string{string(dir), outcome, strconv.Itoa(counts[dir][outcome])})
		}
	}
	return renderTable([]string{"Direction", "Outcome", "Count"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight})
}
