package main

import (
	"github.com/spf13/cobra"

	"bidsify/internal/protocol"
)

type parseReport struct {
	Protocol   string            `json:"protocol"`
	Recognized bool              `json:"recognized"`
	Tagged     bool              `json:"tagged"`
	Fields     map[string]string `json:"fields,omitempty"`
}

func newParseCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "parse <protocol-name>...",
		Short:       "Show how protocol names are parsed",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			reports := make([]parseReport, 0, len(args))
			for _, name := range args {
				parsed, ok := protocol.Parse(name)
				report := parseReport{Protocol: name, Recognized: ok, Tagged: protocol.IsTagged(name)}
				if ok {
					report.Fields = parsed.Fields()
				}
				reports = append(reports, report)
			}
			if jsonOutput {
				return writeJSON(cmd, reports)
			}

			rows := make([][]string, 0, len(reports))
			for _, r := range reports {
				f := r.Fields
				if !r.Recognized {
					rows = append(rows, []string{r.Protocol, "unrecognized", "-", "-", "-", "-", "-", "-"})
					continue
				}
				run, hasRun := f["run"]
				if !hasRun {
					run = "-"
				} else if run == "" {
					run = "(empty)"
				}
				rows = append(rows, []string{
					r.Protocol, f["seqtype"], dash(f["seqtype_label"]), dash(f["session"]),
					run, dash(f["task"]), dash(f["acq"]), dash(f["bids"]),
				})
			}
			writeRows(cmd.OutOrStdout(), []string{"Protocol", "Type", "Label", "Session", "Run", "Task", "Acq", "Other"}, rows, nil)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}
