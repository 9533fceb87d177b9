package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"affect/internal/classifier"
	"affect/internal/config"
	"affect/internal/ingest"
	"affect/internal/logging"
	"affect/internal/session"
	"affect/internal/store"
)

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	registry *classifier.Registry
	sessions *session.Manager
	mqtt     *ingest.MQTTSource

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running           bool
	DBPath            string
	LockFilePath      string
	ActiveSessions    int
	LoadedModels      int
	PredictionsLogged int64
	PredictionsCached int64
	Sessions          []session.Status
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, db *store.Store, registry *classifier.Registry, sessions *session.Manager, mqtt *ingest.MQTTSource, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || db == nil || registry == nil || sessions == nil || logger == nil {
		return nil, errors.New("daemon requires config, store, registry, session manager, and logger")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "affectd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    db,
		registry: registry,
		sessions: sessions,
		mqtt:     mqtt,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the daemon lock and launches the API server, the MQTT
// source, and the cache sweeper.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another affectd instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if d.api != nil {
		if err := d.api.start(d.ctx); err != nil {
			d.releaseStart()
			return err
		}
	}
	if d.mqtt != nil {
		if err := d.mqtt.Start(d.ctx); err != nil {
			if d.api != nil {
				d.api.stop()
			}
			d.releaseStart()
			return fmt.Errorf("start mqtt ingest: %w", err)
		}
	}

	go d.sweepLoop(d.ctx)

	d.running.Store(true)
	d.logger.Info("affect daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) releaseStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	d.ctx = nil
	d.cancel = nil
}

// Stop shuts down background services, drains active sessions, and
// releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := d.sessions.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("session drain incomplete", logging.Error(err))
	}
	if d.mqtt != nil {
		d.mqtt.Stop()
	}
	if d.api != nil {
		d.api.stop()
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("affect daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// sweepLoop prunes expired active-prediction cache rows on the configured
// cadence.
func (d *Daemon) sweepLoop(ctx context.Context) {
	interval := time.Duration(d.cfg.Predictions.CacheSweepSeconds) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := d.store.SweepExpired(ctx)
			if err != nil {
				d.logger.Warn("cache sweep failed", logging.Error(err))
				continue
			}
			if swept > 0 {
				d.logger.Debug("cache swept", logging.Int64("removed", swept))
			}
		}
	}
}

// APIAddr reports the bound API address, empty until Start.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Running reports whether the daemon has started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// PID returns the daemon's process id.
func (d *Daemon) PID() int {
	return os.Getpid()
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:        d.running.Load(),
		DBPath:         d.store.Path(),
		LockFilePath:   d.lockPath,
		ActiveSessions: d.sessions.ActiveCount(),
		LoadedModels:   d.registry.Len(),
		Sessions:       d.sessions.ActiveSessions(),
	}
	logged, cached, err := d.store.PredictionCounts(ctx)
	if err != nil {
		d.logger.Warn("prediction counts unavailable", logging.Error(err))
	} else {
		status.PredictionsLogged = logged
		status.PredictionsCached = cached
	}
	return status
}
