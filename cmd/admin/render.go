package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"phFolio/internal/portfolio"
	"phFolio/internal/render"
	"phFolio/internal/theme"
)

type renderOptions struct {
	viewport   string
	jsonOutput bool
}

func newRenderCmd(flags *rootFlags) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render [document.json|-]",
		Short: "把文档渲染为静态 HTML（未给文件时渲染起始文档）",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vp, ok := render.ParseViewport(opts.viewport)
			if !ok {
				return fmt.Errorf("invalid viewport %q", opts.viewport)
			}

			catalog, err := flags.loadCatalog()
			if err != nil {
				return err
			}

			doc, err := readDocument(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}

			preview := render.NewRenderer(theme.NewEngine(catalog)).Preview(doc, vp)
			for _, d := range preview.Diagnostics {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", d)
			}

			out := cmd.OutOrStdout()
			if opts.jsonOutput {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(preview)
			}
			return render.WriteHTML(out, preview)
		},
	}

	cmd.Flags().StringVar(&opts.viewport, "viewport", string(render.Desktop), "mobile | tablet | desktop")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "输出预览树 JSON 而非 HTML")

	return cmd
}

func readDocument(stdin io.Reader, args []string) (*portfolio.Document, error) {
	if len(args) == 0 {
		return portfolio.NewStarter("preview", theme.DefaultThemeID), nil
	}

	var (
		raw []byte
		err error
	)
	if args[0] == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	doc, err := portfolio.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return doc, nil
}
