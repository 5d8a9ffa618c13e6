// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-article-queue/internal/config"
	"ai-article-queue/internal/domain/ports/adapter"
	aiAdapters "ai-article-queue/internal/infra/adapters/ai"
	"ai-article-queue/internal/infra/adapters/publish"
	pg "ai-article-queue/internal/infra/db/postgres"
	"ai-article-queue/internal/infra/logging"
	"ai-article-queue/internal/infra/metrics"
	red "ai-article-queue/internal/infra/redis"
	"ai-article-queue/internal/infra/retrieval"
	"ai-article-queue/internal/infra/scheduler"
	"ai-article-queue/internal/infra/web"
	"ai-article-queue/internal/infra/worker"
	"ai-article-queue/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, echo model)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- AI adapter (Gemini -> OpenAI -> dev echo) ----
	var ai adapter.AIServiceAdapter
	switch {
	case cfg.AI.GeminiKey != "":
		ai, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel, cfg.AI.EmbedModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		ai = aiAdapters.NewLimited(ai, "gemini", cfg.AI.ConcurrentLimit)
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Gemini")
	case cfg.AI.OpenAIKey != "":
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		ai = aiAdapters.NewLimited(ai, "openai", cfg.AI.ConcurrentLimit)
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: OpenAI")
	default:
		ai = aiAdapters.NewNoopAdapter()
		logger.Warn().Msg("AI adapter: echo stub (no provider key configured)")
	}

	// ---- Repositories and adapters ----
	jobRepo := pg.NewJobRepo(pool)
	docRepo := pg.NewDocumentRepo(pool, cfg.Answer.PostURLBase)
	publisher := publish.NewClient(&cfg.Publish, *logger)
	engine := retrieval.NewEngine(docRepo, ai, cfg.Answer.SnapshotPath, *logger)

	// ---- Worker pipeline ----
	genUC := usecase.NewGenerationUseCase(ai, publisher, jobRepo, cfg.AI.ArticlePrompt, *logger)
	batch := worker.NewBatch(jobRepo, genUC, *logger)
	supervisor := worker.NewSupervisor(batch, *logger)
	supervisor.Start(ctx)

	interval := time.Duration(cfg.Worker.IntervalMinutes) * time.Minute
	sched := scheduler.NewScheduler(interval, supervisor, *logger)
	sched.Start(ctx)

	// ---- Use cases ----
	queueUC := usecase.NewQueueUseCase(jobRepo, sched, cfg.Worker.IntervalMinutes, cfg.Worker.PerJobMinutes, *logger)
	answerUC := usecase.NewAnswerUseCase(engine, ai, cfg.AI.AnswerPrompt, cfg.Answer.TopK, *logger)

	// ---- HTTP ----
	metrics.MustRegister()
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	server := web.NewServer(queueUC, answerUC, auth, cfg, rateLimiter, *logger)

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.HTTP.Port).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	sched.Stop()
	cancel()
	supervisor.Stop()
	logger.Info().Msg("bye")
}
