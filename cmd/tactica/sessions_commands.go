package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cognicore/tactica/pkg/tactica"
	"github.com/cognicore/tactica/pkg/tactica/store"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Browse stored session plans",
	}
	cmd.AddCommand(newSessionsListCommand(ctx))
	cmd.AddCommand(newSessionsShowCommand(ctx))
	cmd.AddCommand(newSessionsExportCommand(ctx))
	cmd.AddCommand(newSessionsDeleteCommand(ctx))
	return cmd
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		offset int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List session plans, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(engine *tactica.Tactica) error {
				plans, err := engine.ListSessions(cmd.Context(), store.ListOptions{Limit: limit, Offset: offset})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, plans)
				}
				if len(plans) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No session plans stored")
					return nil
				}
				rows := make([][]string, 0, len(plans))
				for _, p := range plans {
					rows = append(rows, []string{
						p.ID,
						orDash(p.Title),
						orDash(p.Author),
						p.Filename,
						strconv.Itoa(p.DrillCount),
						p.ExtractedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Author", "File", "Drills", "Extracted"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", store.DefaultListLimit, "Maximum number of plans")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of plans to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show one session plan and its drills",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(engine *tactica.Tactica) error {
				plan, err := engine.GetSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, plan)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Session plan %s\n", plan.ID)
				fmt.Fprintf(out, "Title:      %s\n", orDash(plan.Metadata.Title))
				fmt.Fprintf(out, "Author:     %s\n", orDash(plan.Metadata.Author))
				fmt.Fprintf(out, "Category:   %s\n", orDash(plan.Metadata.Category))
				fmt.Fprintf(out, "Difficulty: %s\n", orDash(plan.Metadata.Difficulty))
				fmt.Fprintf(out, "Source:     %s (%d pages)\n", plan.Source.Filename, plan.Source.PageCount)
				fmt.Fprintln(out, renderDrills(plan.Drills))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func newSessionsExportCommand(ctx *commandContext) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <plan-id>",
		Short: "Export a session plan as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(engine *tactica.Tactica) error {
				plan, err := engine.GetSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if output == "" || output == "-" {
					return writeJSON(cmd, plan)
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("export: %w", err)
				}
				cmd.SetOut(f)
				werr := writeJSON(cmd, plan)
				if cerr := f.Close(); werr == nil {
					werr = cerr
				}
				cmd.SetOut(nil)
				if werr != nil {
					return fmt.Errorf("export: %w", werr)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", plan.ID, output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newSessionsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <plan-id>",
		Short: "Delete a session plan with its diagrams and index entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(cmd, func(engine *tactica.Tactica) error {
				if err := engine.DeleteSession(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}
