package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"bidsify/internal/batchfile"
	"bidsify/internal/fileutil"
	"bidsify/internal/seqinfo"
)

func newFixupCommand(ctx *commandContext) *cobra.Command {
	var (
		outPath      string
		canceledOnly bool
	)

	cmd := &cobra.Command{
		Use:   "fixup <batch-file>",
		Short: "Apply the correction tables to a batch and show the rewritten names",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			batch, err := batchfile.Read(args[0])
			if err != nil {
				return err
			}

			var fixed seqinfo.Batch
			if canceledOnly {
				fixed, err = engine.MarkCanceledRuns(batch)
			} else {
				fixed, err = engine.ApplyStudyFixups(batch)
			}
			if err != nil {
				return err
			}

			if strings.TrimSpace(outPath) != "" {
				format := batchfile.FormatForPath(outPath)
				err := fileutil.WriteAtomic(outPath, 0o644, func(w io.Writer) error {
					return batchfile.Encode(w, fixed, format)
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d series to %s\n", len(fixed), outPath)
				return nil
			}

			rows := make([][]string, 0, len(fixed))
			for i, s := range fixed {
				rows = append(rows, []string{
					s.SeriesID,
					changed(batch[i].ProtocolName, s.ProtocolName),
					changed(batch[i].SeriesDescription, s.SeriesDescription),
				})
			}
			writeRows(cmd.OutOrStdout(), []string{"Series", "Protocol", "Description"}, rows, nil)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the fixed batch to this file (.json or .yaml)")
	cmd.Flags().BoolVar(&canceledOnly, "canceled-only", false, "Only mark canceled runs; do not require substitution rules")
	return cmd
}

func changed(before, after string) string {
	if before == after {
		return after
	}
	return before + " -> " + after
}
