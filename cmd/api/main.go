package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Dhvanitmonpara/interview.ai/internal/config"
	"github.com/Dhvanitmonpara/interview.ai/internal/handler"
	"github.com/Dhvanitmonpara/interview.ai/internal/handler/channel"
	"github.com/Dhvanitmonpara/interview.ai/internal/logging"
	"github.com/Dhvanitmonpara/interview.ai/internal/model/role"
	"github.com/Dhvanitmonpara/interview.ai/internal/service/analytics"
	"github.com/Dhvanitmonpara/interview.ai/internal/service/generator"
	"github.com/Dhvanitmonpara/interview.ai/internal/service/session"
	"github.com/Dhvanitmonpara/interview.ai/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.For("main")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.WithError(err).Warn("failed to load .env file, continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	logging.Init(cfg.LogLevel)

	roles := role.NewMemoryStore(role.Seed())
	registry := session.NewMemoryRegistry(
		session.WithRoundTable(cfg.Interview.Rounds),
		session.WithMaxPendingExpressions(cfg.Interview.MaxPendingExpressions),
	)

	archive := newArchive(ctx, cfg.Storage, log)
	defer archive.Close()

	publisher := newPublisher(cfg.Broker, log)
	defer publisher.Close()

	gen := newGenerator(ctx, cfg.AI, log)

	connections := channel.NewConnectionManager()
	channelHandler := channel.New(channel.Dependencies{
		Registry:    registry,
		Roles:       roles,
		Generator:   gen,
		Archive:     archive,
		Publisher:   publisher,
		Connections: connections,
	}, channel.Options{
		Rounds:          cfg.Interview.Rounds,
		MaxQuestions:    cfg.Interview.MaxQuestions,
		GenerateTimeout: cfg.AI.Timeout,
		FeedbackEnabled: cfg.Interview.FeedbackEnabled,
		AllowedOrigin:   cfg.Server.AllowedOrigin,
	})

	router := handler.NewRouter(channelHandler, cfg.Server.AllowedOrigin)

	startServer(ctx, cfg.Server, router, log)

	// 关闭前将仍在进行的会话归档为 abandoned
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	channelHandler.Shutdown(shutdownCtx)
}

func newArchive(ctx context.Context, cfg config.StorageConfig, log *logrus.Entry) storage.ArchiveStore {
	if cfg.DatabaseURL == "" {
		log.Info("DATABASE_URL 未配置，会话归档仅保存在内存中")
		return storage.NewMemoryArchive()
	}
	archive, err := storage.NewPostgresArchive(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Warn("failed to connect to postgres, falling back to in-memory archive")
		return storage.NewMemoryArchive()
	}
	log.Info("postgres archive initialized successfully")
	return archive
}

func newPublisher(cfg config.BrokerConfig, log *logrus.Entry) analytics.Publisher {
	if cfg.URL == "" {
		log.Info("AMQP_URL 未配置，分析结果仅写入日志")
		return analytics.LogPublisher{}
	}
	publisher, err := analytics.NewAMQPPublisher(cfg.URL, cfg.Exchange)
	if err != nil {
		log.WithError(err).Warn("failed to connect to broker, analytics will only be logged")
		return analytics.LogPublisher{}
	}
	log.WithField("exchange", cfg.Exchange).Info("analytics publisher initialized successfully")
	return publisher
}

func newGenerator(ctx context.Context, cfg config.AIConfig, log *logrus.Entry) generator.Generator {
	if !cfg.Enabled() {
		log.Info("Ark 凭证未配置，使用内置题库")
		return generator.NewBankGenerator()
	}
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to initialize chat model, using built-in question bank - 请检查 Ark 模型相关环境变量")
		return generator.NewBankGenerator()
	}
	gen, err := generator.NewChainGenerator(ctx, chatModel)
	if err != nil {
		log.WithError(err).Warn("failed to compile question chains, using built-in question bank")
		return generator.NewBankGenerator()
	}
	log.WithField("model", cfg.Model).Info("AI question generator initialized successfully")
	return gen
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log *logrus.Entry) {
	addr := serverCfg.Addr
	errorLog := logging.Logger().WriterLevel(logrus.WarnLevel)
	defer errorLog.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          stdlog.New(errorLog, "", 0),
	}

	log.WithField("addr", addr).Info("interview backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.WithError(err).Fatal("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
