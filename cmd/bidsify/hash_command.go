package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bidsify/internal/textutil"
)

func newHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "hash <study-description>",
		Short:       "Print the key correction tables use for a study description",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), textutil.StudyHash(args[0]))
			return nil
		},
	}
}
