package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bookmind/internal/catalog"
	"bookmind/internal/config"
	"bookmind/internal/embedding"
	"bookmind/internal/language"
	"bookmind/internal/llm"
	"bookmind/internal/moderation"
	"bookmind/internal/pipeline"
	"bookmind/internal/resolver"
	"bookmind/internal/retrieval"
	"bookmind/internal/theme"
)

var (
	verbose    bool
	configPath string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bookmind",
	Short: "bookmind - book Q&A and recommendation assistant",
	Long: `bookmind answers questions about a fixed catalog of books.

It resolves title lookups strictly (exact, alias, and fuzzy matching over a
closed vocabulary) and falls back to thematic retrieval over a local vector
index for recommendation-style questions. Responses are localized; Romanian
is the primary secondary locale.

Run 'bookmind index' once to build the vector index, then 'bookmind chat'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat loop",
	RunE:  runChat,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index from the book catalog",
	RunE:  runIndex,
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.AddCommand(chatCmd, askCmd, indexCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// services bundles everything a command needs, with a single close.
type services struct {
	pipe  *pipeline.Pipeline
	index *retrieval.BookIndex
	llm   *llm.Client
}

func (s *services) Close() {
	if s.index != nil {
		_ = s.index.Close()
	}
	if s.llm != nil {
		_ = s.llm.Close()
	}
}

func buildServices(cfg config.Config) (*services, error) {
	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return nil, err
	}

	aliases := catalog.DefaultAliases()
	if cfg.AliasPath != "" {
		if aliases, err = catalog.LoadAliases(cfg.AliasPath); err != nil {
			return nil, err
		}
	}

	expander := theme.NewExpander()
	if cfg.ThemePath != "" {
		if expander, err = theme.NewExpanderFromFile(cfg.ThemePath); err != nil {
			return nil, err
		}
	}

	client, err := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, logger)
	if err != nil {
		return nil, err
	}

	var classifier moderation.Classifier
	if cfg.LLM.UseModeration {
		classifier = client
	}

	engine, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		client.Close()
		return nil, err
	}

	index, err := retrieval.Open(cfg.IndexPath, engine, logger)
	if err != nil {
		client.Close()
		return nil, err
	}

	pipe, err := pipeline.New(pipeline.Deps{
		Catalog:    cat,
		Resolver:   resolver.New(cat, aliases),
		Expander:   expander,
		Detector:   language.NewLinguaDetector(),
		Moderator:  moderation.NewFilter(classifier, logger),
		Translator: client,
		Retriever:  index,
		Generator:  client,
		Logger:     logger,
	}, pipeline.Options{
		TopK:        cfg.Retrieval.TopK,
		DistanceMax: cfg.Retrieval.DistanceMax,
	})
	if err != nil {
		index.Close()
		client.Close()
		return nil, err
	}

	return &services{pipe: pipe, index: index, llm: client}, nil
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		return err
	}
	engine, err := embedding.NewEngine(cfg.Embedding)
	if err != nil {
		return err
	}
	index, err := retrieval.Open(cfg.IndexPath, engine, logger)
	if err != nil {
		return err
	}
	defer index.Close()

	if err := index.Build(ctx, cat.Books()); err != nil {
		return err
	}
	n, err := index.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d books into %s\n", n, cfg.IndexPath)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	res := svc.pipe.Respond(ctx, strings.Join(args, " "))
	fmt.Println(res.DisplayText)
	return nil
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := buildServices(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	fmt.Println("=== bookmind ===")
	fmt.Println("Ask about a book title or describe the kind of story you want.")
	fmt.Println("Type 'exit' to leave.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if lower := strings.ToLower(input); lower == "exit" || lower == "quit" {
			break
		}

		res := svc.pipe.Respond(ctx, input)
		fmt.Println()
		fmt.Println(res.DisplayText)
		fmt.Println()
		fmt.Println(strings.Repeat("=", 60))

		if ctx.Err() != nil {
			break
		}
	}
	return scanner.Err()
}
