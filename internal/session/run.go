package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"affect/internal/logging"
	"affect/internal/pipeline"
	"affect/internal/signal"
	"affect/internal/store"
)

// run is the per-session goroutine. Everything that touches the buffer or
// the runner happens here, so windows stay strictly ordered without locks.
func (m *Manager) run(sess *activeSession, runner *pipeline.Runner, log *slog.Logger) {
	defer m.wg.Done()
	defer close(sess.done)

	ctx := context.Background()
	buffer := signal.NewBuffer(m.cfg.WindowDuration(), sess.originTs)

	staleThreshold := m.cfg.StaleSignalThreshold()
	staleTicker := time.NewTicker(staleThreshold)
	defer staleTicker.Stop()
	staleWarned := false

	for {
		select {
		case sample := <-sess.samples:
			closed, droppedLate := buffer.Add(sample)
			sess.mu.Lock()
			sess.lastSampleAt = time.Now()
			if droppedLate {
				sess.samplesDropped = buffer.Dropped()
			}
			sess.mu.Unlock()
			staleWarned = false
			if droppedLate {
				log.Warn("late sample dropped",
					logging.Int64("sample_ts", sample.TimestampMs))
			}
			for _, window := range closed {
				m.processWindow(ctx, sess, runner, window, log)
			}

		case <-staleTicker.C:
			sess.mu.Lock()
			idle := time.Since(sess.lastSampleAt)
			sess.mu.Unlock()
			if idle >= staleThreshold && !staleWarned {
				staleWarned = true
				log.Warn("no samples received, signal may be stale",
					logging.Duration("idle", idle))
			}

		case <-sess.stop:
			m.finish(ctx, sess, runner, buffer, log)
			return
		}
	}
}

func (m *Manager) processWindow(ctx context.Context, sess *activeSession, runner *pipeline.Runner, window signal.Window, log *slog.Logger) {
	_, err := runner.ProcessWindow(ctx, window)
	if err != nil {
		// The window is lost, the session keeps running.
		log.Warn("window failed",
			logging.Int64(logging.FieldWindowIndex, window.Index),
			logging.Error(err))
	}

	sess.mu.Lock()
	sess.windowsEmitted++
	if err != nil {
		sess.windowsFailed++
	}
	if id, ok := runner.ClusterID(); ok {
		sess.clusterID = &id
	}
	sess.mu.Unlock()
}

// finish drains queued samples and the final partial window, then
// finalizes the session record.
func (m *Manager) finish(ctx context.Context, sess *activeSession, runner *pipeline.Runner, buffer *signal.Buffer, log *slog.Logger) {
	sess.mu.Lock()
	sess.state = store.StateStopping
	sess.mu.Unlock()

	for {
		select {
		case sample := <-sess.samples:
			closed, _ := buffer.Add(sample)
			for _, window := range closed {
				m.processWindow(ctx, sess, runner, window, log)
			}
			continue
		default:
		}
		break
	}
	if window, ok := buffer.Drain(); ok {
		m.processWindow(ctx, sess, runner, window, log)
	}

	sess.mu.Lock()
	sess.state = store.StateTerminated
	windows := sess.windowsEmitted
	failed := sess.windowsFailed
	sess.mu.Unlock()

	if err := m.store.UpdateSessionCounters(ctx, sess.id, windows, failed, buffer.Dropped()); err != nil {
		log.Warn("session counters not persisted", logging.Error(err))
	}
	if err := m.store.UpdateSessionState(ctx, sess.id, store.StateTerminated, ""); err != nil {
		if !errors.Is(err, store.ErrSessionNotFound) {
			log.Warn("session state not persisted", logging.Error(err))
		}
	}
	log.Info("session terminated",
		logging.Int64("windows", windows),
		logging.Int64("failed", failed),
		logging.Int64("dropped", buffer.Dropped()))
}
