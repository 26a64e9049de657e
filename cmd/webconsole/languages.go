package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/webconsole/internal/language"
)

func newLanguagesCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List the language catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			langs := language.All()

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(langs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tEXTENSION\tSTATUS")
			for _, l := range langs {
				status := "coming soon"
				if l.Supported {
					status = "ready"
				}
				fmt.Fprintf(tw, "%s\t%s\t.%s\t%s\n", l.ID, l.Name, l.Extension, status)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the catalog as JSON")
	return cmd
}
