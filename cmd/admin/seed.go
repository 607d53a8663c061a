package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"phFolio/internal/config"
	"phFolio/internal/database"
	"phFolio/internal/portfolio"
)

type seedOptions struct {
	ownerID  uint
	username string
	dryRun   bool
}

func newSeedTemplatesCmd(flags *rootFlags) *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed-templates",
		Short: "为每个主题导入一份公开的起始模板（已存在同名模板时跳过）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeedTemplates(cmd, flags, opts)
		},
	}

	cmd.Flags().UintVar(&opts.ownerID, "owner", 1, "模板 Owner 的用户 id")
	cmd.Flags().StringVar(&opts.username, "username", "admin", "Owner 不存在时创建的本地用户名")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "只打印将要导入的模板")

	return cmd
}

func runSeedTemplates(cmd *cobra.Command, flags *rootFlags, opts *seedOptions) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	catalog, err := flags.loadCatalog()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.dryRun {
		for _, t := range catalog.Themes() {
			fmt.Fprintf(out, "would seed %q (theme %s)\n", seedTitle(t.Name), t.ID)
		}
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	store := database.NewStore(db)
	ctx := cmd.Context()
	if err := store.EnsureUser(ctx, opts.ownerID, opts.username); err != nil {
		return fmt.Errorf("ensure owner: %w", err)
	}

	existing, err := store.ListTemplates(ctx, opts.ownerID)
	if err != nil {
		return err
	}
	titles := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		titles[t.Title] = struct{}{}
	}

	seeded := 0
	for _, t := range catalog.Themes() {
		title := seedTitle(t.Name)
		if _, ok := titles[title]; ok {
			logger.Info("template already present", slog.String("title", title))
			continue
		}
		model, err := store.CreateTemplate(ctx, opts.ownerID, title, portfolio.NewStarter("", t.ID), true)
		if err != nil {
			return fmt.Errorf("seed template %q: %w", title, err)
		}
		seeded++
		fmt.Fprintf(out, "seeded %s (id=%d, theme=%s)\n", model.Slug, model.ID, t.ID)
	}
	logger.Info("template seeding finished", slog.Int("seeded", seeded))
	return nil
}

func seedTitle(themeName string) string {
	return themeName + " Starter"
}
