package main

import (
	"context"
	"database/sql"
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

	"github.com/xxxsen/docask/internal/ai"
	"github.com/xxxsen/docask/internal/chunker"
	"github.com/xxxsen/docask/internal/config"
	"github.com/xxxsen/docask/internal/convo"
	"github.com/xxxsen/docask/internal/db"
	"github.com/xxxsen/docask/internal/decoder"
	"github.com/xxxsen/docask/internal/embedcache"
	"github.com/xxxsen/docask/internal/filestore"
	"github.com/xxxsen/docask/internal/handler"
	"github.com/xxxsen/docask/internal/job"
	"github.com/xxxsen/docask/internal/middleware"
	"github.com/xxxsen/docask/internal/repo"
	"github.com/xxxsen/docask/internal/schedule"
	"github.com/xxxsen/docask/internal/service"
	"github.com/xxxsen/docask/internal/tokenizer"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "docask",
		Short: "docask document question answering server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run docask server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			database, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(database); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, database)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("chat_provider", cfg.AI.ChatProvider),
		zap.String("embed_provider", cfg.AI.EmbedProvider),
		zap.String("file_store", cfg.FileStore.Type),
	)

	documentRepo := repo.NewDocumentRepo(database)
	chunkRepo := repo.NewChunkRepo(database)
	embeddingCacheRepo := repo.NewEmbeddingCacheRepo(database)

	chatProvider, err := ai.NewChatProvider(cfg.AI.ChatProvider, cfg.AI.ChatArgs)
	if err != nil {
		return fmt.Errorf("init chat provider: %w", err)
	}
	embedProvider, err := ai.NewEmbedProvider(cfg.AI.EmbedProvider, cfg.AI.EmbedArgs)
	if err != nil {
		return fmt.Errorf("init embed provider: %w", err)
	}
	generator := ai.NewGenerator(chatProvider, cfg.AI.ChatModel)
	embedder := ai.NewEmbedder(embedProvider, cfg.AI.EmbedModel)
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, embeddingCacheRepo)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, 4096, time.Hour)

	tk, err := tokenizer.New(cfg.AI.ChatModel, cfg.AI.EmbedModel)
	if err != nil {
		return fmt.Errorf("init tokenizer: %w", err)
	}

	chunkOpts := chunker.Options{
		MaxTokensPerLine:      cfg.RAG.MaxTokensPerLine,
		MaxTokensPerParagraph: cfg.RAG.MaxTokensPerParagraph,
		OverlapTokens:         cfg.RAG.OverlapTokens,
	}
	chunkers := chunker.NewRegistry(chunker.NewDefault(chunkOpts, tk.CountEmbeddingTokens))
	chunkers.Register(decoder.ContentTypeMarkdown, chunker.NewMarkdown(chunkOpts, tk.CountEmbeddingTokens))

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	history := convoStore(cfg.RAG)
	documentService := service.NewDocumentService(
		decoder.NewDefaultRegistry(),
		chunkers,
		embedder,
		documentRepo,
		chunkRepo,
		store,
		tk,
		cfg.RAG,
	)
	chatService := service.NewChatService(generator, history, cfg.RAG)
	searchService := service.NewSearchService(chatService, generator, embedder, chunkRepo, tk, cfg.RAG)

	deps := handler.RouterDeps{
		Documents: handler.NewDocumentHandler(documentService, cfg.MaxUploadSize),
		Ask:       handler.NewAskHandler(searchService),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	cleanup := job.NewEmbeddingCacheCleanupJob(embeddingCacheRepo, cfg.Jobs.EmbeddingCacheMaxAgeDays)
	if err := scheduler.AddJob(cleanup, cfg.Jobs.EmbeddingCacheCleanupSpec); err != nil {
		return fmt.Errorf("schedule cleanup job: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func convoStore(cfg config.RAGConfig) *convo.Store {
	return convo.NewStore(cfg.ConversationCacheSize, cfg.MessageLimit, cfg.MessageExpiration())
}
