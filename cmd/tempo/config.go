package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/antavlouros/tempo/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the active configuration",
	Long: `Displays the resolved configuration after merging defaults, the user
config (~/.config/tempo/config.yaml), the project config (.tempo.yaml), and
environment variables.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		apiKeyDisplay := "(not set)"
		if cfg.Anthropic.APIKey != "" {
			apiKeyDisplay = "****"
		}
		genaiKeyDisplay := "(not set)"
		if cfg.Embedding.GenAIAPIKey != "" {
			genaiKeyDisplay = "****"
		}
		modelDisplay := cfg.Anthropic.Model
		if modelDisplay == "" {
			modelDisplay = "(default)"
		}

		fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
		fmt.Printf("anthropic.model: %s\n", modelDisplay)
		fmt.Printf("anthropic.max_tokens: %d\n", cfg.Anthropic.MaxTokens)
		fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
		fmt.Printf("anthropic.aws_region: %s\n", cfg.Anthropic.AWSRegion)
		fmt.Printf("embedding.provider: %s\n", cfg.Embedding.Provider)
		fmt.Printf("embedding.ollama_endpoint: %s\n", cfg.Embedding.OllamaEndpoint)
		fmt.Printf("embedding.ollama_model: %s\n", cfg.Embedding.OllamaModel)
		fmt.Printf("embedding.genai_api_key: %s\n", genaiKeyDisplay)
		fmt.Printf("embedding.genai_model: %s\n", cfg.Embedding.GenAIModel)
		fmt.Printf("matching.collision_threshold: %g\n", cfg.Matching.CollisionThreshold)
		fmt.Printf("matching.ambiguity_margin: %g\n", cfg.Matching.AmbiguityMargin)
		fmt.Printf("matching.top_k: %d\n", cfg.Matching.TopK)
		fmt.Printf("comment.radius: %s\n", cfg.Comment.Radius)
		fmt.Printf("retry.attempts: %d\n", cfg.Retry.Attempts)
		fmt.Printf("retry.backoff: %s\n", cfg.Retry.Backoff)
		fmt.Printf("store.path: %s\n", cfg.DBPath())

		if project := config.GetProjectConfigPath(); project != "" {
			fmt.Printf("\nproject config: %s\n", project)
		}
		fmt.Printf("user config: %s\n", config.GetUserConfigPath())
	},
}
