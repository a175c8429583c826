package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cognicore/tactica/pkg/tactica"
	"github.com/cognicore/tactica/pkg/tactica/analytics"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var (
		minSupport int64
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the tactical make-up of the drill library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(engine *tactica.Tactica) error {
				stats, err := engine.Stats(cmd.Context())
				if err != nil {
					return err
				}
				assoc := stats.Associations(minSupport)
				if asJSON {
					return writeJSON(cmd, map[string]any{
						"plans":          stats.Plans,
						"drills":         stats.Drills,
						"enriched":       stats.Enriched,
						"with_diagram":   stats.WithDiagram,
						"game_elements":  analytics.Top(stats.GameElements, 0),
						"situations":     analytics.Top(stats.Situations, 0),
						"lanes":          analytics.Top(stats.Lanes, 0),
						"numbers":        analytics.Top(stats.Numbers, 0),
						"associations":   assoc,
						"coverage_ratio": stats.Coverage(),
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Plans: %d  Drills: %d  Enriched: %.0f%%  With diagram: %d\n",
					stats.Plans, stats.Drills, stats.Coverage()*100, stats.WithDiagram)
				for _, axis := range []struct {
					name   string
					counts map[string]int64
				}{
					{"Game element", stats.GameElements},
					{"Situation", stats.Situations},
					{"Lane", stats.Lanes},
					{"Numbers", stats.Numbers},
				} {
					top := analytics.Top(axis.counts, 0)
					if len(top) == 0 {
						continue
					}
					rows := make([][]string, 0, len(top))
					for _, c := range top {
						rows = append(rows, []string{c.Value, strconv.FormatInt(c.Count, 10)})
					}
					fmt.Fprintln(out, renderTable([]string{axis.name, "Drills"}, rows, []columnAlignment{alignLeft, alignRight}))
				}
				if len(assoc) > 0 {
					rows := make([][]string, 0, len(assoc))
					for _, a := range assoc {
						rows = append(rows, []string{a.GameElement, a.Lane, strconv.FormatInt(a.Support, 10), strconv.FormatFloat(a.PMI, 'f', 2, 64)})
					}
					fmt.Fprintln(out, renderTable([]string{"Game element", "Lane", "Drills", "PMI"}, rows,
						[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight}))
				}
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&minSupport, "min-support", 2, "Minimum drills for a game element/lane association")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newReenrichCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "reenrich",
		Short: "Reclassify stored drills with the active taxonomy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(engine *tactica.Tactica) error {
				res, err := engine.Reenrich(cmd.Context(), dryRun)
				if err != nil {
					return err
				}
				verb := "Updated"
				if dryRun {
					verb = "Would update"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Processed %d plans. %s %d plans (%d drills). Errors: %d\n",
					res.Processed, verb, res.Updated, res.DrillsChanged, res.Errors)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report changes without writing them")
	return cmd
}
