package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"finchat/internal/advisor"
	"finchat/internal/auth"
	"finchat/internal/config"
	"finchat/internal/embedding"
	embedgemini "finchat/internal/embedding/gemini"
	embedopenai "finchat/internal/embedding/openai"
	"finchat/internal/llm/providers"
	"finchat/internal/repository"
	"finchat/internal/scraper"
	"finchat/internal/server"
	"finchat/internal/service"
	"finchat/internal/vectorstore"
	"finchat/internal/vectorstore/memory"
	"finchat/internal/vectorstore/pinecone"
	"finchat/internal/vectorstore/qdrant"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yml", "path to the YAML configuration file")
	flag.Parse()

	// .env is optional; real environment variables win
	envErr := godotenv.Load()

	cfg, cfgErr := config.LoadConfig(*cfgPath)

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		logger.Warn("Failed to load .env file", zap.Error(envErr))
	}
	if cfgErr != nil {
		logger.Fatal("Failed to load config", zap.String("path", *cfgPath), zap.Error(cfgErr))
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Identity store
	users, closeDB := newUserRepository(cfg, logger)
	defer closeDB()

	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	authService := service.NewAuthService(users, tokens, cfg.Auth.BcryptCost, logger)

	seeds := make([]service.SeedUser, len(cfg.SeedUsers))
	for i, s := range cfg.SeedUsers {
		hash := s.PasswordHash
		if hash == "" {
			if hash, err = auth.HashPassword(s.Password, cfg.Auth.BcryptCost); err != nil {
				logger.Fatal("Failed to hash seed password", zap.String("username", s.Username), zap.Error(err))
			}
		}
		seeds[i] = service.SeedUser{Username: s.Username, PasswordHash: hash}
	}
	if err := authService.SeedUsers(ctx, seeds); err != nil {
		logger.Fatal("Failed to seed users", zap.Error(err))
	}

	// Scraper
	fetcher, closeFetcher, err := scraper.New(scraper.Config{
		Mode:      cfg.Scraper.Mode,
		Timeout:   cfg.Scraper.Timeout,
		UserAgent: cfg.Scraper.UserAgent,
		Headless:  cfg.Scraper.Headless,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize scraper", zap.Error(err))
	}
	defer closeFetcher()

	// Embeddings
	embedder, err := newEmbedder(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize embedding client", zap.Error(err))
	}
	defer embedder.Close()

	// Vector store
	store, err := newVectorStore(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize vector store", zap.Error(err))
	}

	// LLM post-processing is optional; a nil Advisor skips both steps.
	var adv service.Advisor
	if cfg.LLM.Enabled {
		llmClient, err := providers.NewMultiProvider(ctx, cfg.LLM.Providers, cfg.LLM.MaxFailuresBeforeSwitch, logger)
		if err != nil {
			logger.Fatal("Failed to initialize LLM providers", zap.Error(err))
		}
		defer llmClient.Close()

		opts := advisor.DefaultOptions()
		opts.MinFragmentLength = cfg.LLM.MinFragmentLength
		adv = advisor.New(llmClient, opts, logger)
		logger.Info("LLM advisor enabled", zap.Int("providers", len(cfg.LLM.Providers)))
	} else {
		logger.Info("LLM advisor disabled, answers use the fragment template")
	}

	chatService := service.NewChatService(
		users,
		repository.NewMemoryHistoryRepository(cfg.History.Limit),
		fetcher,
		embedder,
		store,
		adv,
		service.ChatOptions{
			Sources:                cfg.Sources,
			ChunkSize:              cfg.Retrieval.ChunkSize,
			TopK:                   cfg.Retrieval.TopK,
			ClearBeforeUpsert:      cfg.Retrieval.ClearBeforeUpsert,
			FallbackFragments:      cfg.LLM.FallbackFragments,
			FallbackFragmentLength: cfg.LLM.FallbackFragmentLength,
		},
		logger,
	)

	srv := server.NewServer(server.Deps{
		AuthService: authService,
		ChatService: chatService,
		Tokens:      tokens,
	}, cfg.Server.ShutdownTimeout, logger)

	logger.Info("Finance chat service is running",
		zap.String("port", cfg.Server.Port),
		zap.String("embedding_model", embedder.Model()),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.Strings("sources", cfg.Sources))

	if err := srv.Run(ctx, cfg.Server.Port); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}

	logger.Info("Application stopped.")
}

// newLogger builds the zap logger; a nil config yields a development logger
// so that config errors can still be reported.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg == nil || cfg.Logging.Development {
		return zap.NewDevelopment()
	}

	zcfg := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func newUserRepository(cfg *config.Config, logger *zap.Logger) (repository.UserRepository, func()) {
	switch cfg.Database.Type {
	case "postgres":
		db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		if err := repository.MigratePostgres(db, logger); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		return repository.NewSQLUserRepository(db, logger), func() { _ = db.Close() }
	case "sqlite":
		db, err := repository.NewSQLiteDB(cfg.Database.URL, logger)
		if err != nil {
			logger.Fatal("Failed to open database", zap.Error(err))
		}
		return repository.NewSQLUserRepository(db, logger), func() { _ = db.Close() }
	default:
		logger.Info("Using in-memory user store")
		return repository.NewMemoryUserRepository(), func() {}
	}
}

func newEmbedder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	var inner embedding.Embedder
	switch cfg.Embedding.Provider {
	case "gemini":
		c, err := embedgemini.NewClient(ctx, embedgemini.Config{
			APIKey:     cfg.Embedding.APIKey,
			ModelName:  cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		}, logger)
		if err != nil {
			return nil, err
		}
		inner = c
	default:
		c, err := embedopenai.NewClient(embedopenai.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			Timeout:    cfg.Embedding.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		inner = c
	}

	return embedding.NewBatched(inner, cfg.Embedding.BatchSize, cfg.Retrieval.EmbedConcurrency, logger), nil
}

func newVectorStore(cfg *config.Config, logger *zap.Logger) (vectorstore.Store, error) {
	switch cfg.VectorStore.Type {
	case "memory":
		logger.Warn("Using in-memory vector store, vectors are lost on restart")
		return memory.NewStorage(), nil
	case "qdrant":
		return qdrant.NewStorage(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     cfg.VectorStore.Qdrant.APIKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    cfg.VectorStore.Timeout,
		}, logger), nil
	default:
		return pinecone.NewStorage(pinecone.Config{
			Host:      cfg.VectorStore.Pinecone.Host,
			APIKey:    cfg.VectorStore.Pinecone.APIKey,
			Namespace: cfg.VectorStore.Pinecone.Namespace,
			Timeout:   cfg.VectorStore.Timeout,
		}, logger)
	}
}
