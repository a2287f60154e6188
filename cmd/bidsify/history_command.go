package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"bidsify/internal/catalog"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		opts       catalog.ListOptions
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List studies recorded in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if jsonOutput {
				if entries == nil {
					entries = []catalog.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No studies recorded")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.RecordedAt.Local().Format(time.DateTime),
					e.Accession,
					e.Locator,
					e.Subject,
					dash(e.Session),
					strconv.Itoa(e.Templates),
					strconv.Itoa(e.Unrecognized),
					yesNo(e.FixedUp),
					e.RunID,
				})
			}
			writeRows(cmd.OutOrStdout(),
				[]string{"Recorded", "Accession", "Locator", "Subject", "Session", "Templates", "Unrecognized", "Fixed", "Run"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of entries (0 for all)")
	cmd.Flags().StringVar(&opts.StudyHash, "study-hash", "", "Only show studies with this hash")
	cmd.Flags().StringVar(&opts.Accession, "accession", "", "Only show studies with this accession number")
	return cmd
}
