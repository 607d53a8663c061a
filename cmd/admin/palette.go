package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"phFolio/internal/palette"
)

type paletteOptions struct {
	steps      int
	jsonOutput bool
}

func newPaletteCmd() *cobra.Command {
	opts := &paletteOptions{}

	cmd := &cobra.Command{
		Use:   "palette <#RRGGBB>",
		Short: "由基色推导配色并以色块预览",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPalette(cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.steps, "steps", palette.DefaultSteps, "明暗阶数")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "以 JSON 输出")

	return cmd
}

func runPalette(w io.Writer, base string, opts *paletteOptions) error {
	if opts.steps < 1 || opts.steps > 12 {
		return fmt.Errorf("steps must be between 1 and 12, got %d", opts.steps)
	}

	p := palette.DeriveSteps(base, opts.steps)
	if opts.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	if !palette.Valid(base) {
		fmt.Fprintf(w, "invalid base %q, using %s\n", base, palette.DefaultBase)
	}

	rows := []struct {
		label  string
		colors []string
	}{
		{"primary", []string{p.Primary}},
		{"secondary", []string{p.Secondary}},
		{"accent", []string{p.Accent}},
		{"analogous", p.Analogous[:]},
		{"triadic", p.Triadic[:]},
		{"shades", p.Shades},
		{"tints", p.Tints},
	}

	label := lipgloss.NewStyle().Width(10).Bold(true)
	for _, row := range rows {
		cells := make([]string, 0, len(row.colors))
		for _, hex := range row.colors {
			cells = append(cells, swatch(hex))
		}
		fmt.Fprintln(w, lipgloss.JoinHorizontal(lipgloss.Center, label.Render(row.label), strings.Join(cells, " ")))
	}
	return nil
}

// swatch 渲染一个色块及其十六进制值，前景色按明暗取黑或白。
func swatch(hex string) string {
	fg := lipgloss.Color("#FFFFFF")
	if c, err := palette.Parse(hex); err == nil && c.Lightness() > 382 {
		fg = lipgloss.Color("#000000")
	}
	return lipgloss.NewStyle().
		Background(lipgloss.Color(hex)).
		Foreground(fg).
		Padding(0, 1).
		Render(hex)
}
