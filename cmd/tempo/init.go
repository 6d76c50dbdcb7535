package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/antavlouros/tempo/internal/config"
	"github.com/antavlouros/tempo/internal/embedding"
	"github.com/antavlouros/tempo/internal/render"
	"github.com/antavlouros/tempo/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up Tempo in the current directory",
	Long: `Checks the environment, creates the .tempo data directory and the
task database, and writes a .tempo.yaml template if none exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInit()
	},
}

func runInit() error {
	fmt.Println("Checking environment...")

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		fmt.Println(render.Warn("ANTHROPIC_API_KEY not set (you can set it later or use Bedrock)"))
	} else {
		fmt.Println(render.Check(true, "ANTHROPIC_API_KEY is set"))
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ollama := embedding.NewOllama(cfg.Embedding.OllamaEndpoint, cfg.Embedding.OllamaModel)
	if err := ollama.HealthCheck(ctx); err != nil {
		fmt.Println(render.Warn(fmt.Sprintf("Ollama not reachable at %s (embeddings need it, or switch to genai)", cfg.Embedding.OllamaEndpoint)))
	} else {
		fmt.Println(render.Check(true, "Ollama reachable"))
	}

	db, err := store.Open(cfg.DBPath())
	if err != nil {
		fmt.Println(render.Check(false, fmt.Sprintf("Could not create task database: %v", err)))
		return err
	}
	db.Close()
	fmt.Println(render.Check(true, fmt.Sprintf("Task database ready at %s", cfg.DBPath())))

	if err := writeConfigTemplate(); err != nil {
		return err
	}

	fmt.Println("\nAll set. Run \"tempo\" to start chatting.")
	return nil
}

const configTemplate = `# Tempo configuration. All keys are optional.
#anthropic:
#  api_key: ${ANTHROPIC_API_KEY}
#  model: ""
#  use_bedrock: false
#  aws_region: us-west-2

#embedding:
#  provider: ollama          # or genai
#  ollama_endpoint: http://localhost:11434
#  ollama_model: nomic-embed-text

#matching:
#  collision_threshold: 0.85
#  ambiguity_margin: 0.05
#  top_k: 5

#comment:
#  radius: 1h
`

func writeConfigTemplate() error {
	path := ".tempo.yaml"
	if _, err := os.Stat(path); err == nil {
		fmt.Println(render.Check(true, ".tempo.yaml already exists"))
		return nil
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Println(render.Check(true, "Created .tempo.yaml template"))

	// Keep the data directory out of version control when in a repo.
	if _, err := os.Stat(".git"); err == nil {
		f, err := os.OpenFile(".gitignore", os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
		if err == nil {
			fmt.Fprintln(f, ".tempo/")
			f.Close()
			fmt.Println(render.Check(true, "Added .tempo/ to .gitignore"))
		}
	}
	return nil
}
