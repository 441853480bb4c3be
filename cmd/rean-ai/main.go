package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/jimmy12-d/rean-ai/internal/ai"
	"github.com/jimmy12-d/rean-ai/internal/config"
	"github.com/jimmy12-d/rean-ai/internal/embedcache"
	"github.com/jimmy12-d/rean-ai/internal/engine"
	"github.com/jimmy12-d/rean-ai/internal/handler"
	"github.com/jimmy12-d/rean-ai/internal/index"
	"github.com/jimmy12-d/rean-ai/internal/ingest"
	"github.com/jimmy12-d/rean-ai/internal/job"
	"github.com/jimmy12-d/rean-ai/internal/middleware"
	"github.com/jimmy12-d/rean-ai/internal/model"
	"github.com/jimmy12-d/rean-ai/internal/modelstore"
	"github.com/jimmy12-d/rean-ai/internal/schedule"
	"github.com/jimmy12-d/rean-ai/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "rean-ai",
		Short: "retrieval-augmented Khmer grade 12 tutor server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the tutor server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
			return runServer(cfg)
		},
	}

	corpusCmd := &cobra.Command{
		Use:   "corpus",
		Short: "print a breakdown of the RAG corpus",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return printCorpusStats(cfg)
		},
	}

	rootCmd.AddCommand(runCmd, corpusCmd)
	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	return cfg, nil
}

func runServer(cfg *config.Config) error {
	ctx := context.Background()
	logutil.GetLogger(ctx).Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("default_model", cfg.DefaultModel),
		zap.String("corpus_dir", cfg.RAG.CorpusDir),
		zap.String("index", cfg.Index.Type),
		zap.String("engine", cfg.Engine.Type),
	)

	embedder, err := ai.NewEmbedder(cfg.Embedding.Provider, cfg.Embedding.Model, cfg.Embedding.Data)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}
	embedder = embedcache.WrapLRU(embedder, cfg.EmbedCache.Size, time.Duration(cfg.EmbedCache.TTLSeconds)*time.Second)

	retriever := service.NewRetriever(embedder, cfg.RAG.ScoreThreshold)
	loader := ingest.NewLoader(cfg.RAG.CorpusDir)
	indexer := service.NewIndexer(loader, embedder, retriever, func(collection string) (index.Index, error) {
		return index.New(cfg.Index.Type, collection, cfg.Index.Data)
	})
	if err := indexer.Rebuild(ctx); err != nil {
		return fmt.Errorf("build indices: %w", err)
	}

	store, err := modelstore.New(cfg.ModelStore.Type, cfg.ModelStore.Data)
	if err != nil {
		return fmt.Errorf("init model store: %w", err)
	}
	manager := engine.NewManager(cfg.Models, func(ctx context.Context, profile model.ModelProfile) (engine.Engine, error) {
		resolved := profile
		weights, err := store.Resolve(ctx, profile.WeightsPath)
		if err != nil {
			return nil, err
		}
		resolved.WeightsPath = weights
		adapter, err := store.Resolve(ctx, profile.AdapterPath)
		if err != nil {
			return nil, err
		}
		resolved.AdapterPath = adapter
		return engine.New(cfg.Engine.Type, resolved, cfg.Engine.Data)
	})
	defer manager.Close()
	if err := manager.Load(ctx, cfg.DefaultModel); err != nil {
		return fmt.Errorf("load default model: %w", err)
	}

	classifier := service.NewClassifier(cfg.RAG.GenerateKeywords)
	composer := service.NewComposer(cfg.RAG.MaxContextChars)
	chat := service.NewChat(manager, retriever, classifier, composer)

	deps := handler.RouterDeps{
		Chat:              handler.NewChatHandler(chat),
		Models:            handler.NewModelHandler(manager),
		Health:            handler.NewHealthHandler(manager, retriever),
		SetModelRateLimit: time.Duration(cfg.SetModelRateLimitSeconds) * time.Second,
	}

	webEngine, err := webapi.NewEngine(
		"/",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			// The NDJSON stream must flush line by line, so it skips gzip.
			gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/generate"})),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	scheduler := schedule.NewCronScheduler()
	if cfg.RAG.ReindexCron != "" {
		if err := scheduler.AddJob(job.NewReindexJob(indexer), cfg.RAG.ReindexCron); err != nil {
			return fmt.Errorf("schedule reindex: %w", err)
		}
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	scheduler.Start(runCtx)
	defer scheduler.Stop()

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := webEngine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(ctx).Error("server error", zap.Error(err))
		}
	}()

	<-runCtx.Done()
	logutil.GetLogger(ctx).Info("server stopping...")
	return nil
}

func printCorpusStats(cfg *config.Config) error {
	stats, err := ingest.NewLoader(cfg.RAG.CorpusDir).Stats(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("corpus dir: %s\n", cfg.RAG.CorpusDir)
	fmt.Printf("concepts:  %d\n", stats.Concepts)
	for _, prefix := range ingest.SortedPrefixes(stats.ConceptPrefixes) {
		fmt.Printf("  - %s: %d\n", prefix, stats.ConceptPrefixes[prefix])
	}
	fmt.Printf("exercises: %d\n", stats.Exercises)
	for _, prefix := range ingest.SortedPrefixes(stats.ExercisePrefixes) {
		fmt.Printf("  - %s: %d\n", prefix, stats.ExercisePrefixes[prefix])
	}
	return nil
}
