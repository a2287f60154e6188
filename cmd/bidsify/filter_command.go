package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newFilterCommand(ctx *commandContext) *cobra.Command {
	var rejected bool

	cmd := &cobra.Command{
		Use:   "filter [path]...",
		Short: "Print the raw DICOM files that should be collected",
		Long: "Reads paths laid out as <accession>/<series-dir>/<file> from the arguments, " +
			"or from stdin when none are given, and prints those the file filter keeps.",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := ctx.engine()
			if err != nil {
				return err
			}
			paths := args
			if len(paths) == 0 {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					if line := strings.TrimSpace(scanner.Text()); line != "" {
						paths = append(paths, line)
					}
				}
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("read paths: %w", err)
				}
			}
			out := cmd.OutOrStdout()
			for _, path := range paths {
				if engine.KeepFile(path) != rejected {
					fmt.Fprintln(out, path)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&rejected, "rejected", false, "Print the files that would be dropped instead")
	return cmd
}
