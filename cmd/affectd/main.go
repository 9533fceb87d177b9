package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"affect/internal/baseline"
	"affect/internal/classifier"
	"affect/internal/config"
	"affect/internal/daemon"
	"affect/internal/ingest"
	"affect/internal/logging"
	"affect/internal/session"
	"affect/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	db, err := store.Open(cfg)
	if err != nil {
		logger.Error("open store", logging.Error(err))
		return
	}

	baselines := baseline.NewStore(db, logger)
	if err := baselines.Load(ctx); err != nil {
		logger.Error("restore baselines", logging.Error(err))
		_ = db.Close()
		return
	}

	registry, err := classifier.LoadRegistry(cfg.Paths.ModelDir, logger)
	if err != nil {
		logger.Error("load classifier models", logging.Error(err))
		_ = db.Close()
		return
	}

	sessions, err := session.NewManager(cfg, db, baselines, registry, logger)
	if err != nil {
		logger.Error("create session manager", logging.Error(err))
		_ = db.Close()
		return
	}

	var mqttSource *ingest.MQTTSource
	if cfg.MQTT.Enabled {
		mqttSource = ingest.NewMQTTSource(cfg.MQTT, sessions, logger)
	}

	d, err := daemon.New(cfg, db, registry, sessions, mqttSource, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = db.Close()
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("affectd shutting down")
	d.Stop()
}
