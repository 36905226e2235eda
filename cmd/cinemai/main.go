package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/djvaroli/cinemai/internal/adapter"
	"github.com/djvaroli/cinemai/internal/agent"
	"github.com/djvaroli/cinemai/internal/graph"
	"github.com/djvaroli/cinemai/internal/memory"
	"github.com/djvaroli/cinemai/internal/prompts"
	"github.com/djvaroli/cinemai/internal/session"
	"github.com/djvaroli/cinemai/pkg/config"
	"github.com/djvaroli/cinemai/pkg/logger"
)

// models the assistant can run on
var knownModels = []string{"gpt-4-turbo", "gpt-4", "gpt-3.5-turbo", "gpt-3.5"}

var (
	flagModel            string
	flagDebug            bool
	flagTemperature      float64
	flagDumpMemoryOnExit bool
)

var rootCmd = &cobra.Command{
	Use:   "cinemai",
	Short: "Conversational assistant for a movie knowledge graph",
	Long: `CinemAI answers questions about movies from a Neo4j knowledge graph,
remembers the conversation, and adjusts its style based on your feedback.`,
	RunE: runChat,
}

func init() {
	rootCmd.Flags().StringVar(&flagModel, "model", "gpt-4-turbo",
		fmt.Sprintf("model to use for the assistant LLM (one of: %s)", strings.Join(knownModels, ", ")))
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "enable debug mode")
	rootCmd.Flags().Float64Var(&flagTemperature, "temperature", 0.0,
		"temperature for the language model; higher values give more diverse responses")
	rootCmd.Flags().BoolVar(&flagDumpMemoryOnExit, "dump-memory-on-exit", false,
		"dump the conversation memory to a file on exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	if !validModel(flagModel) {
		return fmt.Errorf("unknown model %q (choose one of: %s)", flagModel, strings.Join(knownModels, ", "))
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Env, flagDebug); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	log := logger.Get()

	ctx := context.Background()

	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURL,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	defer driver.Close(ctx)

	executor := graph.NewExecutor(driver)
	if err := executor.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}

	lib, err := prompts.Load(cfg.PromptDir)
	if err != nil {
		return fmt.Errorf("failed to load prompt templates: %w", err)
	}

	llm := adapter.NewLLMAdapter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, flagModel, flagTemperature)
	dispatcher := agent.NewDispatcher(
		agent.NewClassifier(llm, lib),
		agent.NewTranslator(llm, lib),
		executor,
		agent.NewComposer(llm, lib),
		agent.NewIntegrator(llm, lib),
		cfg.MemoryWindow,
	)

	var store memory.SnapshotStore
	if flagDumpMemoryOnExit {
		store, err = memory.NewSnapshotStore(cfg.MemoryDir, cfg.MemoryDB)
		if err != nil {
			return fmt.Errorf("failed to open snapshot store: %w", err)
		}
		defer store.Close()
	}

	sessions := session.NewManager(store)
	sess, err := sessions.Create(ctx)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	assistantName := fmt.Sprintf("Assistant(%s)", flagModel)
	fmt.Printf("%s: Hey! I'm your personal movie assistant, how can I help you? (to exit, press Ctrl+C)\n", assistantName)
	fmt.Println("(feel free to give me feedback whenever the responses don't meet your expectations!)")
	fmt.Println()

	prompt := promptui.Prompt{Label: "You"}

	for {
		utterance, err := prompt.Run()
		if err != nil {
			if err == promptui.ErrInterrupt || err == promptui.ErrEOF {
				break
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		if strings.TrimSpace(utterance) == "" {
			continue
		}

		turn, err := dispatcher.Handle(ctx, utterance, sess.Log, sess.Profile)
		if err != nil {
			log.Warn("turn aborted", zap.Error(err))
			continue
		}

		fmt.Printf("\n%s: %s\n\n", assistantName, turn.Reply)
	}

	fmt.Println("\nLeaving so soon? See ya next time!")

	if err := sessions.End(ctx, sess.ID); err != nil {
		log.Error("failed to dump session memory", zap.Error(err))
	} else if flagDumpMemoryOnExit {
		fmt.Printf("(conversation memory saved for session %s)\n", sess.ID)
	}

	return nil
}

func validModel(model string) bool {
	for _, m := range knownModels {
		if m == model {
			return true
		}
	}
	return false
}
