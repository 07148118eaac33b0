package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/studyhub/content-service/internal/db"
	"github.com/studyhub/content-service/internal/outline"
	"github.com/studyhub/content-service/internal/resource"
	"github.com/studyhub/content-service/internal/revalidate"
)

var rebuildConcurrency int

var rebuildCmd = &cobra.Command{
	Use:   "rebuild-mindmaps",
	Short: "Regenerate every stored mindmap outline",
	Long:  `Rebuilds the outline of every resource from its stored document using the current OUTLINE_* settings.`,
	Args:  cobra.NoArgs,
	RunE:  runRebuild,
}

func init() {
	rebuildCmd.Flags().IntVarP(&rebuildConcurrency, "concurrency", "c", 8, "Documents converted in parallel")
	rootCmd.AddCommand(rebuildCmd)
}

func runRebuild(cmd *cobra.Command, _ []string) error {
	cfg, logger := setup(cmd)
	ctx := cmd.Context()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Rebuilds do not revalidate.
	notifier := revalidate.NewNotifier("", "", 1, cfg.RevalidateTimeout, logger)
	svc := resource.NewService(resource.NewRepository(pool), notifier, outline.Options{
		MaxDepth:           cfg.OutlineMaxDepth,
		ReserveEmptyLevels: cfg.OutlineReserveEmptyLevels,
	}, logger)

	stats, err := svc.RebuildMindmaps(ctx, rebuildConcurrency)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %d outlines, skipped %d\n", stats.Rebuilt, stats.Skipped)
	return nil
}
