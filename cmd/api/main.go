package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/archosan/realtime-chat-v2/internal/auth"
	repoAdapter "github.com/archosan/realtime-chat-v2/internal/chat/repository/adapter"
	"github.com/archosan/realtime-chat-v2/internal/chat/task"
	"github.com/archosan/realtime-chat-v2/internal/chat/usecase"
	"github.com/archosan/realtime-chat-v2/internal/config"
	"github.com/archosan/realtime-chat-v2/internal/infrastructure/database"
	"github.com/archosan/realtime-chat-v2/internal/infrastructure/lock"
	"github.com/archosan/realtime-chat-v2/internal/infrastructure/logger"
	"github.com/archosan/realtime-chat-v2/internal/infrastructure/presence"
	queueAdapter "github.com/archosan/realtime-chat-v2/internal/infrastructure/queue/adapter"
	"github.com/archosan/realtime-chat-v2/internal/infrastructure/search"
	"github.com/archosan/realtime-chat-v2/internal/jobs"
	"github.com/archosan/realtime-chat-v2/internal/realtime"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("config: " + err.Error())
	}
	log := logger.New(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Long-lived infrastructure handles, constructed once and passed down.
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := database.Connect(connectCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if err := repoAdapter.Migrate(connectCtx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	presenceStore, err := presence.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to presence store")
	}
	defer presenceStore.Close()

	lease, err := lock.NewLease(cfg.RedisURL, cfg.JobLeaseTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job lease")
	}
	defer lease.Close()

	queueClient, err := queueAdapter.NewAsynqClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create queue client")
	}
	defer queueClient.Close()

	queueServer, err := queueAdapter.NewAsynqServer(cfg.RedisURL, cfg.QueueName, 1, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create queue server")
	}

	verifier, err := auth.NewVerifier(cfg.JWTAccessSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create token verifier")
	}

	var indexer search.Indexer = search.NopIndexer{}
	if cfg.SearchURL != "" {
		indexer = search.NewHTTPIndexer(cfg.SearchURL, cfg.SearchIndex)
	}

	// Repositories and use cases.
	users := repoAdapter.NewPgUserRepository(pool)
	convs := repoAdapter.NewPgConversationRepository(pool)
	msgs := repoAdapter.NewPgMessageRepository(pool)
	autoMsgs := repoAdapter.NewPgAutoMessageRepository(pool)

	sendUC := usecase.NewSendMessageUseCase(convs, msgs, indexer, log)
	readUC := usecase.NewMarkMessageReadUseCase(msgs)
	planUC := usecase.NewPlanMessagesUseCase(users, autoMsgs, log)
	dispatchUC := usecase.NewDispatchDueUseCase(autoMsgs, queueClient, cfg.QueueName, cfg.QueueMaxRetry, log)

	// Realtime.
	hub := realtime.NewHub()
	defer hub.Close()
	fanout := realtime.NewHubFanout(hub)
	gateway := realtime.NewGateway(hub, presenceStore, verifier, sendUC, readUC, log)

	// Consumer.
	processUC := usecase.NewProcessDeliveryUseCase(autoMsgs, sendUC, fanout, log)
	task.RegisterDeliveryHandler(queueServer, processUC, log)
	go func() {
		if err := queueServer.Run(ctx); err != nil {
			log.Error().Err(err).Msg("queue server stopped")
			stop()
		}
	}()

	// Periodic jobs.
	runner := jobs.NewRunner(lease, log)
	runner.Every(ctx, "message-planning", cfg.PlanInterval, func(ctx context.Context) error {
		_, err := planUC.Execute(ctx)
		return err
	})
	runner.Every(ctx, "queue-management", cfg.DispatchInterval, dispatchUC.Execute)

	// HTTP surface: websocket upgrade, health, metrics.
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", gateway.Handle())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{Addr: cfg.Addr(), Handler: r}
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	_ = queueServer.Stop(shutdownCtx)
	runner.Wait()
	log.Info().Msg("shutdown complete")
}
