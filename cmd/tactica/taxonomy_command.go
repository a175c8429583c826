package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/tactica/pkg/tactica/config"
	"github.com/cognicore/tactica/pkg/tactica/enrich"
)

func newTaxonomyCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Show the active classification tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			loader := config.Loader{VocabularyPath: app.VocabularyPath, TaxonomyPath: app.TaxonomyPath}
			comps, err := loader.Load()
			if err != nil {
				return err
			}
			tax := comps.Enricher.Taxonomy()
			if asJSON {
				return writeJSON(cmd, tax)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Methodology: %s (version %s)\n", tax.Methodology, tax.Version)
			for _, axis := range []struct {
				name    string
				entries []enrich.Entry
			}{
				{"Game element", tax.GameElements},
				{"Situation", tax.Situations},
				{"Lane", tax.Lanes},
			} {
				rows := make([][]string, 0, len(axis.entries))
				for i, e := range axis.entries {
					rows = append(rows, []string{strconv.Itoa(i + 1), e.Value, strings.Join(e.Keywords, ", ")})
				}
				fmt.Fprintln(out, renderTable([]string{"#", axis.name, "Keywords"}, rows, []columnAlignment{alignRight}))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}
