package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bidsify/internal/batchfile"
	"bidsify/internal/catalog"
	"bidsify/internal/heuristic"
	"bidsify/internal/logging"
	"bidsify/internal/seqinfo"
)

type classifyReport struct {
	Source  string             `json:"source"`
	Outcome *heuristic.Outcome `json:"outcome,omitempty"`
	Error   string             `json:"error,omitempty"`

	err error
}

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		record     bool
		outputRoot string
	)

	cmd := &cobra.Command{
		Use:   "classify <batch-file>...",
		Short: "Assign the series of one or more studies to naming templates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			processor, err := ctx.processor(outputRoot)
			if err != nil {
				return err
			}

			reports := make([]classifyReport, len(args))
			jobs := make([]heuristic.Job, 0, len(args))
			slots := make([]int, 0, len(args))
			for i, path := range args {
				reports[i].Source = path
				batch, err := batchfile.Read(path)
				if err != nil {
					reports[i].Error = err.Error()
					reports[i].err = err
					continue
				}
				jobs = append(jobs, heuristic.Job{Source: path, Batch: batch})
				slots = append(slots, i)
			}

			runCtx := cmd.Context()
			if runCtx == nil {
				runCtx = context.Background()
			}
			results := processor.ProcessAll(runCtx, jobs)
			for j, r := range results {
				report := &reports[slots[j]]
				report.Outcome = r.Outcome
				if r.Err != nil {
					report.Error = r.Err.Error()
					report.err = r.Err
				}
			}

			var firstErr error
			failed := 0
			for _, report := range reports {
				if report.err == nil {
					continue
				}
				failed++
				if firstErr == nil {
					firstErr = report.err
				}
			}

			shouldRecord := record || ctx.config.Catalog.Enabled
			if shouldRecord {
				if err := recordOutcomes(runCtx, ctx, results); err != nil {
					return err
				}
			}

			if jsonOutput {
				if err := writeJSON(cmd, reports); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				for i, report := range reports {
					if i > 0 {
						fmt.Fprintln(out)
					}
					printReport(out, report)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d studies failed: %w", failed, len(args), firstErr)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of tables")
	cmd.Flags().BoolVar(&record, "record", false, "Record results in the catalog even when catalog.enabled is false")
	cmd.Flags().StringVar(&outputRoot, "output-root", "", "Output root passed through to the identity record")
	return cmd
}

func recordOutcomes(runCtx context.Context, ctx *commandContext, results []heuristic.JobResult) error {
	store, err := ctx.openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()
	var errs []error
	for _, r := range results {
		if r.Outcome == nil {
			continue
		}
		if _, err := store.Record(runCtx, catalog.FromOutcome(r.Outcome)); err != nil {
			ctx.logger.Warn("failed to record study",
				logging.Source(r.Source),
				logging.Error(err),
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func printReport(out io.Writer, report classifyReport) {
	fmt.Fprintf(out, "== %s ==\n", report.Source)
	if report.Error != "" {
		fmt.Fprintf(out, "error: %s\n", report.Error)
		return
	}
	o := report.Outcome
	id := o.Identity
	fmt.Fprintf(out, "Locator:   %s\n", id.Locator)
	fmt.Fprintf(out, "Subject:   %s\n", id.Subject)
	fmt.Fprintf(out, "Session:   %s\n", dash(id.Session))
	fmt.Fprintf(out, "Study:     %s (%s)\n", o.StudyDescription, o.StudyHash)
	fmt.Fprintf(out, "Fixed up:  %s\n", yesNo(o.FixedUp))
	if len(o.Policies) > 0 {
		fmt.Fprintf(out, "Policies:  %s\n", strings.Join(o.Policies, ", "))
	}
	fmt.Fprintf(out, "Run:       %s\n", o.RunID)
	fmt.Fprintln(out)

	rows := make([][]string, 0, len(o.Classification.Templates))
	for _, tpl := range o.Classification.Templates {
		rows = append(rows, []string{
			tpl.Path,
			strings.Join(tpl.Key.OutputTypes, ","),
			strings.Join(tpl.SeriesIDs, " "),
			strconv.Itoa(len(tpl.SeriesIDs)),
		})
	}
	writeRows(out, []string{"Template", "Outputs", "Series", "Count"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})

	if len(o.Classification.Skipped) > 0 {
		fmt.Fprintf(out, "Skipped: %s\n", strings.Join(o.Classification.Skipped, " "))
	}
	if len(o.Classification.Unrecognized) > 0 {
		fmt.Fprintf(out, "Unrecognized: %s\n", strings.Join(o.Classification.Unrecognized, " "))
	}
	if len(o.Dropped) > 0 {
		fmt.Fprintf(out, "Dropped: %s\n", strings.Join(o.Dropped, " "))
	}

	diags := append(append([]seqinfo.Diagnostic(nil), o.Classification.Diagnostics...), id.Diagnostics...)
	if len(diags) == 0 {
		return
	}
	drows := make([][]string, 0, len(diags))
	for _, d := range diags {
		drows = append(drows, []string{string(d.Kind), dash(d.SeriesID), d.Message})
	}
	writeRows(out, []string{"Warning", "Series", "Message"}, drows, nil)
}
