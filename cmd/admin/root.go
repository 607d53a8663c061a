package main

import (
	"github.com/spf13/cobra"

	"phFolio/internal/theme"
)

type rootFlags struct {
	catalogPath string
	defaultID   string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "phfolio-admin",
		Short:         "phFolio 运维工具：slug、配色、主题、渲染与模板导入",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.catalogPath, "catalog", "", "额外主题 YAML 文件（默认读 THEME_CATALOG_PATH）")
	cmd.PersistentFlags().StringVar(&flags.defaultID, "default-theme", "", "默认主题 id（默认读 THEME_DEFAULT_ID）")

	cmd.AddCommand(newSlugCmd())
	cmd.AddCommand(newPaletteCmd())
	cmd.AddCommand(newThemesCmd(flags))
	cmd.AddCommand(newRenderCmd(flags))
	cmd.AddCommand(newSeedTemplatesCmd(flags))
	cmd.AddCommand(newTokenCmd())

	return cmd
}

// loadCatalog 按命令行参数加载主题目录，未指定时回退到环境变量。
func (f *rootFlags) loadCatalog() (*theme.Catalog, error) {
	path := f.catalogPath
	if path == "" {
		path = envOr("THEME_CATALOG_PATH", "")
	}
	return theme.Load(path, firstSet(f.defaultID, envOr("THEME_DEFAULT_ID", "")))
}
