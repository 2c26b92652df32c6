package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	config "github.com/windlab/runwatch/internal/config/watcher"
	"github.com/windlab/runwatch/internal/delaystats"
	"github.com/windlab/runwatch/internal/domain/model"
	"github.com/windlab/runwatch/internal/domain/run"
	"github.com/windlab/runwatch/internal/notify"
	"github.com/windlab/runwatch/internal/obs"
	kafkaRepo "github.com/windlab/runwatch/internal/repository/kafka"
	pg "github.com/windlab/runwatch/internal/repository/postgres"
	"github.com/windlab/runwatch/internal/services/watcher"
	"github.com/windlab/runwatch/internal/source"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("RUNWATCH_CONFIG"))
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(cfg.Log.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	l.Info("starting watcher",
		zap.Duration("interval", cfg.Watch.Interval),
		zap.String("metrics_addr", cfg.Watch.MetricsAddr),
		zap.Bool("kafka", cfg.Kafka.Enable),
	)

	// otel
	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// db
	db, err := pg.New(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	clock := run.SystemClock{}
	httpClient := &http.Client{
		Timeout:   cfg.Watch.RequestTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	// provider adapters
	models := model.Catalogue()
	byID := make(map[string]model.Model, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}

	cache := source.NewRunCache(cfg.Watch.CacheTTL, clock)
	registry := source.NewRegistry(cache)
	registry.Register(byID["AROME"], source.NewWMSAdapter(source.WMSConfig{
		Model:  "AROME",
		URL:    cfg.Sources.AromeURL,
		APIKey: cfg.Sources.AromeAPIKey,
	}, httpClient, l))
	registry.Register(byID["ARPEGE"], source.NewWMSAdapter(source.WMSConfig{
		Model:  "ARPEGE",
		URL:    cfg.Sources.ArpegeURL,
		APIKey: cfg.Sources.ArpegeAPIKey,
	}, httpClient, l))
	registry.Register(byID["GFS"], source.NewProbeAdapter(source.ProbeConfig{
		Model:   "GFS",
		BaseURL: cfg.Sources.GFSBaseURL,
		Hours:   byID["GFS"].SynopticHours,
	}, httpClient, clock, cache, l))
	registry.Register(byID["ECMWF"], source.NewVendorAdapter("ECMWF",
		&source.HTTPLatestClient{URL: cfg.Sources.ECMWFURL, Client: httpClient}, l))

	// telegram
	tg := notify.NewTelegram(notify.TelegramConfig{
		Token:   cfg.Telegram.Token,
		Timeout: cfg.Watch.RequestTimeout,
	}, httpClient, l)
	alerter := notify.NewAdminAlerter(tg, cfg.Telegram.AdminChatID, cfg.Telegram.AlertCooldown, clock, l)

	// kafka
	var events watcher.RunEvents
	if cfg.Kafka.Enable {
		if err := kafkaRepo.EnsureTopic(ctx, cfg.Kafka.Brokers, kafkaRepo.TopicSpec{
			Name: cfg.Kafka.Topic,
		}, l); err != nil {
			l.Warn("kafka topic not confirmed, publishing anyway", zap.Error(err))
		}
		prod := kafkaRepo.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, l)
		defer func() { _ = prod.Close() }()
		events = kafkaRepo.NewRunEventsKafka(prod)
	}

	// metrics server
	ms := obs.BootstrapMetricsServer(cfg.Watch.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	// wiring
	engine := delaystats.NewEngine(pg.NewSampleRepo(db), clock, cfg.Watch.WindowDays, cfg.Watch.MinSamples, l)
	dispatcher := watcher.NewDispatcher(tg, alerter, cfg.Watch.SendSpacing, l)
	uc := watcher.NewUC(
		registry,
		pg.NewWatermarkRepo(db),
		pg.NewSubscriberRepo(db),
		engine,
		dispatcher,
		alerter,
		clock,
		cfg.Watch.RequestTimeout,
		l,
	)
	runner := watcher.New(l, uc, &cfg.Watch, models, events, clock)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	l.Info("watcher started")

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
