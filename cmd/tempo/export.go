package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/antavlouros/tempo/internal/config"
	"github.com/antavlouros/tempo/internal/store"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all tasks to stdout",
	Long:  `Writes the full task graph to stdout as YAML (default) or JSON.`,
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

		tasks, err := db.List(context.Background())
		if err != nil {
			return err
		}

		doc := exportDoc{Tasks: make([]exportTask, 0, len(tasks))}
		for _, task := range tasks {
			doc.Tasks = append(doc.Tasks, exportTask{
				ID:          task.ID,
				Description: task.Description,
				Date:        task.Date,
				Time:        task.Time,
				Status:      string(task.Status),
				DependsOn:   task.DependsOn,
			})
		}

		switch exportFormat {
		case "yaml":
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(doc)
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		default:
			return fmt.Errorf("unknown format %q (use yaml or json)", exportFormat)
		}
	},
}

type exportDoc struct {
	Tasks []exportTask `yaml:"tasks" json:"tasks"`
}

type exportTask struct {
	ID          string   `yaml:"id" json:"id"`
	Description string   `yaml:"description" json:"description"`
	Date        string   `yaml:"date,omitempty" json:"date,omitempty"`
	Time        string   `yaml:"time,omitempty" json:"time,omitempty"`
	Status      string   `yaml:"status" json:"status"`
	DependsOn   []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "yaml", "Output format: yaml or json")
}
