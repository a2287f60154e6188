package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newTablesCommand(ctx *commandContext) *cobra.Command {
	tablesCmd := &cobra.Command{
		Use:   "tables",
		Short: "Inspect the correction tables",
	}
	tablesCmd.AddCommand(newTablesShowCommand(ctx))
	return tablesCmd
}

func newTablesShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Summarize the loaded correction tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			tables := engine.Tables()
			if jsonOutput {
				return writeJSON(cmd, tables)
			}

			out := cmd.OutOrStdout()
			source := ctx.config.Paths.TablesFile
			if source == "" {
				source = "embedded defaults"
			}
			fmt.Fprintf(out, "Source: %s\n", source)
			fmt.Fprintf(out, "Fields: %s\n\n", dash(strings.Join(tables.Fields, ", ")))

			hashRows := make([][]string, 0, len(tables.Substitutions))
			for _, hash := range engine.StudyHashes() {
				hashRows = append(hashRows, []string{hash, strconv.Itoa(len(tables.Substitutions[hash]))})
			}
			writeRows(out, []string{"Study hash", "Substitutions"}, hashRows, []columnAlignment{alignLeft, alignRight})

			accessions := make([]string, 0, len(tables.CanceledRuns))
			for accession := range tables.CanceledRuns {
				accessions = append(accessions, accession)
			}
			sort.Strings(accessions)
			cancelRows := make([][]string, 0, len(accessions))
			for _, accession := range accessions {
				cancelRows = append(cancelRows, []string{accession, strings.Join(tables.CanceledRuns[accession], " ")})
			}
			fmt.Fprintln(out)
			writeRows(out, []string{"Accession", "Canceled series"}, cancelRows, nil)

			policyRows := make([][]string, 0, len(tables.Policies))
			for _, p := range engine.Policies().Policies() {
				policyRows = append(policyRows, []string{
					p.Name, dash(p.StudyHash), dash(p.When), yesNo(p.AllowUnpairedPhase), dash(p.ForceSession),
				})
			}
			fmt.Fprintln(out)
			writeRows(out, []string{"Policy", "Study hash", "When", "Unpaired phase", "Session"}, policyRows, nil)

			if len(tables.SkipStudyUIDs) > 0 {
				fmt.Fprintf(out, "\nSkipped study UIDs: %s\n", strings.Join(tables.SkipStudyUIDs, " "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Dump the tables as JSON")
	return cmd
}
