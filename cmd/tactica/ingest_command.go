package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cognicore/tactica/pkg/tactica"
	"github.com/cognicore/tactica/pkg/tactica/pipeline"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ingest <pdf>",
		Short: "Extract drills from a coaching PDF and store the session plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			pdf, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			log, err := ctx.logger()
			if err != nil {
				return err
			}
			jobID := uuid.NewString()
			log.Info("ingest started", "job", jobID, "file", path, "bytes", len(pdf))

			return ctx.withEngine(cmd, func(engine *tactica.Tactica) error {
				res, err := engine.Ingest(cmd.Context(), pdf, filepath.Base(path))
				if err != nil {
					log.Error("ingest failed", "job", jobID, "error", err)
					return err
				}
				log.Info("ingest finished", "job", jobID, "plan", res.Plan.ID,
					"drills", len(res.Plan.Drills), "warnings", len(res.Warnings))
				if asJSON {
					return writeJSON(cmd, res)
				}
				printIngestResult(cmd, res)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

func printIngestResult(cmd *cobra.Command, res *pipeline.Result) {
	out := cmd.OutOrStdout()
	plan := res.Plan
	fmt.Fprintf(out, "Session plan %s\n", plan.ID)
	fmt.Fprintf(out, "Title:    %s\n", plan.Metadata.Title)
	fmt.Fprintf(out, "Pages:    %d\n", plan.Source.PageCount)
	fmt.Fprintf(out, "Images:   %d (%d diagrams)\n", res.Images, res.Diagrams)
	fmt.Fprintf(out, "Indexed:  %s (%s)\n", yesNo(res.Indexed), res.IndexStatus)
	fmt.Fprintln(out, renderDrills(plan.Drills))

	if len(res.Warnings) == 0 {
		return
	}
	rows := make([][]string, 0, len(res.Warnings))
	for i, w := range res.Warnings {
		rows = append(rows, []string{strconv.Itoa(i + 1), string(w.Kind), w.Message})
	}
	fmt.Fprintln(out, renderTable([]string{"#", "Kind", "Warning"}, rows, []columnAlignment{alignRight}))
}
