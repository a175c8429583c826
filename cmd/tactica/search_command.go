package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/tactica/pkg/tactica"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		topK   int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed pages and diagram descriptions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withEngine(cmd, func(engine *tactica.Tactica) error {
				hits, err := engine.Search(cmd.Context(), query, topK)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, hits)
				}
				if len(hits) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No results")
					return nil
				}
				rows := make([][]string, 0, len(hits))
				for _, h := range hits {
					rows = append(rows, []string{
						h.PlanID,
						orDash(h.PlanTitle),
						strconv.Itoa(h.PageNumber),
						strconv.FormatFloat(h.Score, 'f', 3, 64),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Plan", "Title", "Page", "Score"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 10, "Maximum number of pages")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
