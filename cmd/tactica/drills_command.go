package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cognicore/tactica/pkg/tactica"
	"github.com/cognicore/tactica/pkg/tactica/internalerr"
	"github.com/cognicore/tactica/pkg/tactica/schema"
	"github.com/cognicore/tactica/pkg/tactica/store"
)

func newDrillsCommand(ctx *commandContext) *cobra.Command {
	var (
		elementFlag   string
		situationFlag string
		laneFlag      string
		limit         int
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "drills [plan-id]",
		Short: "List drills of a plan, or filter drills across plans",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.DrillFilter{Limit: limit}
			if len(args) == 1 {
				filter.PlanID = args[0]
			}
			if elementFlag != "" {
				g, ok := schema.ParseGameElement(elementFlag)
				if !ok {
					return fmt.Errorf("%w: game element %q", internalerr.ErrInvalidInput, elementFlag)
				}
				filter.GameElement = g
			}
			if situationFlag != "" {
				s, ok := schema.ParseSituationType(situationFlag)
				if !ok {
					return fmt.Errorf("%w: situation type %q", internalerr.ErrInvalidInput, situationFlag)
				}
				filter.SituationType = s
			}
			if laneFlag != "" {
				l, ok := schema.ParseLane(laneFlag)
				if !ok {
					return fmt.Errorf("%w: lane %q", internalerr.ErrInvalidInput, laneFlag)
				}
				filter.Lane = l
			}
			if filter.PlanID == "" && filter.Empty() {
				return fmt.Errorf("%w: give a plan id or at least one of --game-element, --situation, --lane", internalerr.ErrInvalidInput)
			}

			return ctx.withEngine(cmd, func(engine *tactica.Tactica) error {
				if filter.PlanID != "" && filter.Empty() {
					if _, err := engine.GetSession(cmd.Context(), filter.PlanID); err != nil {
						return err
					}
				}
				matches, err := engine.FindDrills(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, matches)
				}
				if len(matches) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No matching drills")
					return nil
				}
				rows := make([][]string, 0, len(matches))
				for i, m := range matches {
					tc := m.Drill.TacticalContext
					rows = append(rows, []string{
						strconv.Itoa(i + 1),
						m.Drill.Name,
						orDash(m.PlanTitle),
						gameElement(tc),
						situation(tc),
						lanes(tc),
						orDash(numerical(tc)),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"#", "Drill", "Plan", "Game element", "Situation", "Lanes", "Numbers"},
					rows,
					[]columnAlignment{alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&elementFlag, "game-element", "", "Filter by game element, e.g. \"Counter Attack\"")
	cmd.Flags().StringVar(&situationFlag, "situation", "", "Filter by situation type: Frontal, Lateral, Behind or Before")
	cmd.Flags().StringVar(&laneFlag, "lane", "", "Filter by lane, e.g. \"Left Wing\"")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of drills (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func numerical(tc *schema.TacticalContext) string {
	if tc == nil || tc.NumericalAdvantage == nil {
		return ""
	}
	return *tc.NumericalAdvantage
}
