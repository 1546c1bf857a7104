package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/databases"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/metrics"
	"github.com/wyfcoding/pkg/redis"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/amltriage/internal/triage/application"
	"github.com/wyfcoding/amltriage/internal/triage/domain"
	"github.com/wyfcoding/amltriage/internal/triage/infrastructure/messaging"
	"github.com/wyfcoding/amltriage/internal/triage/infrastructure/notify"
	"github.com/wyfcoding/amltriage/internal/triage/infrastructure/persistence/mysql"
	persistence_redis "github.com/wyfcoding/amltriage/internal/triage/infrastructure/persistence/redis"
	"github.com/wyfcoding/amltriage/internal/triage/interfaces/consumer"
	httpserver "github.com/wyfcoding/amltriage/internal/triage/interfaces/http"
)

var configPath = flag.String("config", "configs/triage/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. Config
	var cfg config.Config
	if err := config.Load(*configPath, &cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger
	logCfg := &logging.Config{
		Service:    cfg.Server.Name,
		Module:     "triage",
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}
	logger := logging.NewFromConfig(*logCfg)
	slog.SetDefault(logger.Logger)

	// 3. Metrics
	metricsImpl := metrics.NewMetrics(cfg.Server.Name)
	if cfg.Metrics.Enabled {
		go metricsImpl.ExposeHttp(cfg.Metrics.Port)
	}

	// 4. Database
	db, err := databases.NewDB(cfg.Data.Database, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}

	if cfg.Server.Environment == "dev" {
		if err := db.RawDB().AutoMigrate(
			&domain.Alert{}, &domain.SOP{}, &domain.Resolution{}, &domain.SARCase{},
			&domain.ProofSubmission{}, &domain.Transaction{}, &domain.Customer{},
			&domain.Account{}, &domain.SanctionsEntity{},
		); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
		if err := mysql.SeedSOPs(context.Background(), db.RawDB()); err != nil {
			slog.Error("failed to seed sop rules", "error", err)
		}
	}

	// 5. Redis
	redisClient, redisCleanup, err := redis.NewClient(&cfg.Data.Redis, logger)
	if err != nil {
		slog.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	defer redisCleanup()

	// 6. Kafka
	producer := kafka.NewProducer(cfg.MessageQueue.Kafka, logger, metricsImpl)

	// 7. Repositories & infrastructure
	alertRepo := mysql.NewAlertRepository(db.RawDB())
	sopRepo := mysql.NewSOPRepository(db.RawDB())
	resolutionRepo := mysql.NewResolutionRepository(db.RawDB())
	sarRepo := mysql.NewSARCaseRepository(db.RawDB())
	proofRepo := mysql.NewProofRepository(db.RawDB())
	eventSink := mysql.NewEventSink(db.RawDB())
	evidenceStore := mysql.NewEvidenceStore(db.RawDB())
	locker := persistence_redis.NewInvestigationLocker(redisClient)
	broadcaster := messaging.NewBroadcaster()
	eventPublisher := messaging.NewKafkaEventPublisher(producer)
	sender := notify.NewKafkaSender(producer)

	// 8. Application
	investigator := application.NewInvestigator(evidenceStore)
	gatherer := application.NewContextGatherer(evidenceStore)
	adjudicator := application.NewAdjudicator(sopRepo, nil)
	executor := application.NewActionExecutor(sender, evidenceStore, sarRepo)
	orchestrator := application.NewOrchestrator(
		alertRepo, resolutionRepo, eventSink, broadcaster, eventPublisher, locker,
		investigator, gatherer, adjudicator, executor)
	proofService := application.NewProofService(alertRepo, resolutionRepo, proofRepo)
	service := application.NewTriageService(
		alertRepo, sopRepo, resolutionRepo, eventSink, broadcaster,
		orchestrator, proofService)

	// 9. Kafka consumer: 上游告警接入
	kafkaCfg := &cfg.MessageQueue.Kafka
	kafkaCfg.GroupID = "triage-group"
	kafkaCfg.Topic = consumer.AlertCreatedTopic
	alertConsumer := kafka.NewConsumer(*kafkaCfg, logger, metricsImpl)
	alertHandler := consumer.NewAlertEventHandler(service)
	alertHandler.Subscribe(context.Background(), alertConsumer)

	// 10. HTTP
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	httpHandler := httpserver.NewTriageHandler(service)
	httpHandler.RegisterRoutes(r)

	// 11. Start
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.HTTP.Port)
		server := &http.Server{Addr: addr, Handler: r}
		slog.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down servers...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
