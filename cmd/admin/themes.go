package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newThemesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "themes",
		Short: "列出主题目录",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := flags.loadCatalog()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPRIMARY\tFONTS\tDEFAULT")
			for _, t := range catalog.Themes() {
				mark := ""
				if t.ID == catalog.DefaultID() {
					mark = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s / %s\t%s\n",
					t.ID, t.Name, t.Tokens.Colors.Primary,
					t.Tokens.Fonts.Heading, t.Tokens.Fonts.Body, mark)
			}
			return tw.Flush()
		},
	}
}
