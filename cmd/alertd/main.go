package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/soladkov/beatkeeper/internal/alerts"
	config "github.com/soladkov/beatkeeper/internal/config/alertd"
	"github.com/soladkov/beatkeeper/internal/mail"
	"github.com/soladkov/beatkeeper/internal/obs"
	kafkaRepo "github.com/soladkov/beatkeeper/internal/repository/kafka"
	pg "github.com/soladkov/beatkeeper/internal/repository/postgres"
	"github.com/soladkov/beatkeeper/internal/services/alertd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to yaml config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(&obs.LogConfig{Level: cfg.LogLevel, App: "beatkeeper/alertd"})
	if err != nil {
		log.Fatal(err)
	}
	l.Info("starting alertd",
		zap.Any("kafka_in", cfg.Kafka),
		zap.String("metrics_addr", cfg.Alert.MetricsAddr),
	)

	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	cons := kafkaRepo.NewConsumer(&kafkaRepo.ConsumerConfig{
		Brokers:       cfg.Kafka.Brokers,
		GroupID:       cfg.Kafka.GroupID,
		Topic:         cfg.Kafka.Topic,
		FromBeginning: cfg.Kafka.FromBeginning,
		MinBackoff:    cfg.Kafka.MinBackoff,
		MaxBackoff:    cfg.Kafka.MaxBackoff,
		Logger:        l,
	})
	defer func() { _ = cons.Close() }()

	ms := obs.BootstrapMetricsServer(cfg.Alert.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	chRepo := pg.NewChannelRepo(db)
	deps := &alerts.Deps{
		HTTP:     &http.Client{Timeout: cfg.Alert.HTTPTimeout},
		Mail:     mail.New(cfg.SMTP),
		Channels: chRepo,
		App:      cfg.App,
		Log:      l,
	}
	disp := alerts.NewDispatcher(
		alerts.DefaultRegistry(),
		deps,
		chRepo,
		pg.NewNotificationRepo(db),
		cfg.Alert.PerNotifyTimeout,
		l,
	)
	runner := alertd.NewRunner(l, cons, pg.NewCheckRepo(db), disp)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	l.Info("alertd started")

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}
