package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"phFolio/internal/slug"
)

type slugOptions struct {
	existing []string
}

func newSlugCmd() *cobra.Command {
	opts := &slugOptions{}

	cmd := &cobra.Command{
		Use:   "slug <text>",
		Short: "按给定的已占用集合为文本分配 slug",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			allocated := slug.New().Allocate(strings.Join(args, " "), slug.NewSet(opts.existing...))
			_, err := fmt.Fprintln(cmd.OutOrStdout(), allocated)
			return err
		},
	}

	cmd.Flags().StringSliceVar(&opts.existing, "existing", nil, "已占用的 slug，逗号分隔")

	return cmd
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func firstSet(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
