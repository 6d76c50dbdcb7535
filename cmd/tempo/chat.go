package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"

	"github.com/antavlouros/tempo/internal/collision"
	"github.com/antavlouros/tempo/internal/config"
	"github.com/antavlouros/tempo/internal/embedding"
	"github.com/antavlouros/tempo/internal/generate"
	"github.com/antavlouros/tempo/internal/llm"
	"github.com/antavlouros/tempo/internal/render"
	"github.com/antavlouros/tempo/internal/resolve"
	"github.com/antavlouros/tempo/internal/store"
	"github.com/antavlouros/tempo/internal/taskops"
	"github.com/antavlouros/tempo/internal/workflow"
)

func runChat() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Live-reload the project config so matching thresholds can be tuned
	// mid-session.
	var watcher *config.Watcher
	if projectCfg := config.GetProjectConfigPath(); projectCfg != "" {
		watcher, err = config.NewWatcher(projectCfg, cfg)
		if err == nil {
			defer watcher.Close()
		}
	}

	db, err := store.Open(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}
	defer db.Close()

	controller, err := buildController(cfg, db)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nGoodbye! Your tasks are saved.")
		cancel()
	}()

	session, welcome, err := controller.Start(ctx)
	if err != nil {
		return err
	}
	printAssistant(welcome)

	scanner := bufio.NewScanner(os.Stdin)
	for !session.Done() {
		fmt.Print(color.CyanString("you> "))
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		// Pick up config edits between turns.
		if watcher != nil {
			if cur := watcher.Current(); cur != cfg {
				if rebuilt, err := buildController(cur, db); err == nil {
					cfg = cur
					controller = rebuilt
				}
			}
		}

		reply, err := controller.Advance(ctx, session, scanner.Text())
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			printAssistant(fmt.Sprintf("Something went wrong: %v", err))
			continue
		}
		printAssistant(reply)
	}
	return scanner.Err()
}

func buildController(cfg *config.Config, db store.Store) (*workflow.Controller, error) {
	completer, err := llm.NewClient(llm.ClientConfig{
		Model:         modelFromConfig(cfg),
		APIKey:        cfg.Anthropic.APIKey,
		MaxTokens:     cfg.Anthropic.MaxTokens,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return nil, fmt.Errorf("create completion client: %w", err)
	}

	embedder, err := embedding.New(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	retry := llm.RetryPolicy{
		Attempts: cfg.Retry.Attempts,
		Backoff:  cfg.Retry.Backoff,
	}
	detector := collision.New(db, cfg.Matching.CollisionThreshold, cfg.Matching.TopK)
	resolver := resolve.New(db, embedder, cfg.Matching.TopK, cfg.Matching.AmbiguityMargin)
	generator := generate.New(completer, embedder, db, detector, retry)
	manager := taskops.New(db)

	return workflow.New(workflow.Options{
		Completer:     completer,
		Embedder:      embedder,
		Store:         db,
		Resolver:      resolver,
		Generator:     generator,
		Manager:       manager,
		Retry:         retry,
		CommentRadius: cfg.Comment.Radius,
		FormatList:    render.TaskList,
	}), nil
}

func modelFromConfig(cfg *config.Config) anthropic.Model {
	return anthropic.Model(cfg.Anthropic.Model)
}

func printAssistant(text string) {
	if text == "" {
		return
	}
	fmt.Printf("%s %s\n", color.MagentaString("tempo>"), text)
}
