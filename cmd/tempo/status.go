package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/antavlouros/tempo/internal/config"
	"github.com/antavlouros/tempo/internal/render"
	"github.com/antavlouros/tempo/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the task list and store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		db, err := store.Open(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("open task store: %w", err)
		}
		defer db.Close()

		ctx := context.Background()
		tasks, err := db.List(ctx)
		if err != nil {
			return err
		}
		fmt.Println(render.TaskList(tasks))

		stats, err := db.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Println(render.Stats(stats))
		return nil
	},
}
