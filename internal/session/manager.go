package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"affect/internal/baseline"
	"affect/internal/changepoint"
	"affect/internal/classifier"
	"affect/internal/cluster"
	"affect/internal/config"
	"affect/internal/features"
	"affect/internal/logging"
	"affect/internal/pipeline"
	"affect/internal/services"
	"affect/internal/signal"
	"affect/internal/store"
)

// ErrNotActive indicates the session id does not belong to a running
// session.
var ErrNotActive = errors.New("session not active")

// StartRequest carries the parameters for opening a session. SessionID is
// optional; when empty the manager generates one. StartTs optionally anchors
// window boundaries; when zero the first ingested sample anchors them.
type StartRequest struct {
	SessionID string
	UserID    string
	VideoID   int64
	StartTs   int64
}

// Status is a point-in-time view of one active session.
type Status struct {
	SessionID      string
	UserID         string
	VideoID        int64
	State          store.SessionState
	ClusterID      *int
	WindowsEmitted int64
	WindowsFailed  int64
	SamplesDropped int64
	ProgressPct    float64
	LastSampleAt   time.Time
}

// Manager routes samples to active sessions and runs their pipelines.
type Manager struct {
	cfg       *config.Config
	store     *store.Store
	baselines *baseline.Store
	registry  *classifier.Registry
	assigner  *cluster.Assigner
	extractor *features.Extractor
	logger    *slog.Logger

	mu     sync.Mutex
	active map[string]*activeSession
	wg     sync.WaitGroup
}

type activeSession struct {
	id       string
	userID   string
	videoID  int64
	originTs int64

	samples chan signal.Sample
	stop    chan struct{}
	done    chan struct{}

	mu             sync.Mutex
	lastSampleAt   time.Time
	windowsEmitted int64
	windowsFailed  int64
	samplesDropped int64
	clusterID      *int
	state          store.SessionState
}

// NewManager wires the session orchestrator.
func NewManager(cfg *config.Config, db *store.Store, baselines *baseline.Store, registry *classifier.Registry, logger *slog.Logger) (*Manager, error) {
	assigner, err := cluster.NewAssigner(cfg.Cluster)
	if err != nil {
		return nil, fmt.Errorf("build cluster assigner: %w", err)
	}
	return &Manager{
		cfg:       cfg,
		store:     db,
		baselines: baselines,
		registry:  registry,
		assigner:  assigner,
		extractor: features.NewExtractor(baselines, cfg.Videos),
		logger:    logging.NewComponentLogger(logger, "session"),
	}, nil
}

// Start opens a session and begins accepting samples for it. It fails when
// the id is already registered, even by a terminated session; ids are never
// reused.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*store.SessionRecord, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, services.Wrap(services.ErrValidation, "session", "start", "user id is required", nil)
	}
	if _, ok := m.cfg.VideoByID(req.VideoID); !ok {
		return nil, services.Wrap(services.ErrValidation, "session", "start",
			fmt.Sprintf("video %d is not configured", req.VideoID), nil)
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	// A non-positive StartTs leaves the window origin to the first ingested
	// sample; devices often report relative clocks.
	originTs := req.StartTs
	if originTs < 0 {
		originTs = 0
	}

	record, err := m.store.CreateSession(ctx, sessionID, userID, req.VideoID, originTs)
	if err != nil {
		if errors.Is(err, store.ErrSessionExists) {
			return nil, services.Wrap(services.ErrConflict, "session", "start",
				"session id already registered", err)
		}
		return nil, err
	}

	log := m.logger.With(
		logging.String(logging.FieldSessionID, sessionID),
		logging.String(logging.FieldUserID, userID),
	)
	if !m.baselines.Has(userID) {
		log.Warn("user has no baseline, windows will fail until one is recorded")
	}

	runner, err := pipeline.NewRunner(pipeline.Params{
		SessionID: sessionID,
		UserID:    userID,
		VideoID:   req.VideoID,
		LookBack:  m.cfg.Pipeline.LookbackWindows,
		Scorer: changepoint.NewScorer(
			m.cfg.ChangePoint.Alpha,
			m.cfg.ChangePoint.Regularization,
			m.cfg.ChangePoint.SubWindowLength,
		),
		Extractor: m.extractor,
		Assigner:  m.assigner,
		Registry:  m.registry,
		Sink:      m.store,
		Logger:    m.logger,
	})
	if err != nil {
		return nil, err
	}

	sess := &activeSession{
		id:           sessionID,
		userID:       userID,
		videoID:      req.VideoID,
		originTs:     originTs,
		samples:      make(chan signal.Sample, m.cfg.Pipeline.IngestBufferSamples),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		lastSampleAt: time.Now(),
		state:        store.StateProcessing,
	}

	m.mu.Lock()
	if _, exists := m.active[sessionID]; exists {
		m.mu.Unlock()
		return nil, services.Wrap(services.ErrConflict, "session", "start",
			"session id already active", store.ErrSessionExists)
	}
	if m.active == nil {
		m.active = make(map[string]*activeSession)
	}
	m.active[sessionID] = sess
	m.mu.Unlock()

	if err := m.store.UpdateSessionState(ctx, sessionID, store.StateProcessing, ""); err != nil {
		log.Warn("session state not persisted", logging.Error(err))
	}

	m.wg.Add(1)
	go m.run(sess, runner, log)

	log.Info("session started",
		logging.Int64(logging.FieldVideoID, req.VideoID),
		logging.Int64("origin_ts", originTs),
	)
	return record, nil
}

// Ingest routes one sample to its session. Samples for unknown or stopped
// sessions are rejected.
func (m *Manager) Ingest(ctx context.Context, sample signal.Sample) error {
	m.mu.Lock()
	sess, ok := m.active[sample.SessionID]
	m.mu.Unlock()
	if !ok {
		return services.Wrap(services.ErrNotFound, "session", "ingest",
			fmt.Sprintf("session %s: %s", sample.SessionID, ErrNotActive), ErrNotActive)
	}

	select {
	case sess.samples <- sample:
		return nil
	case <-sess.done:
		return services.Wrap(services.ErrNotFound, "session", "ingest",
			fmt.Sprintf("session %s: %s", sample.SessionID, ErrNotActive), ErrNotActive)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop closes a session: remaining buffered samples are windowed, the final
// partial window is drained through the pipeline, and the session record is
// finalized.
func (m *Manager) Stop(ctx context.Context, sessionID string) (*store.SessionRecord, error) {
	m.mu.Lock()
	sess, ok := m.active[sessionID]
	if ok {
		delete(m.active, sessionID)
	}
	m.mu.Unlock()
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "session", "stop",
			fmt.Sprintf("session %s: %s", sessionID, ErrNotActive), ErrNotActive)
	}

	close(sess.stop)
	select {
	case <-sess.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return m.store.GetSession(ctx, sessionID)
}

// RecordBaseline computes and persists a user's baseline profile from a
// resting recording.
func (m *Manager) RecordBaseline(ctx context.Context, userID string, samples []signal.Sample) (baseline.Profile, error) {
	profile, err := m.baselines.Record(ctx, userID, samples)
	if err != nil {
		return baseline.Profile{}, services.Wrap(services.ErrValidation, "baseline", "record",
			"baseline recording rejected", err)
	}
	return profile, nil
}

// ActiveSessions reports the live sessions for status polling.
func (m *Manager) ActiveSessions() []Status {
	m.mu.Lock()
	sessions := make([]*activeSession, 0, len(m.active))
	for _, sess := range m.active {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	out := make([]Status, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.snapshot(m.cfg))
	}
	return out
}

// ActiveCount reports how many sessions are currently running.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Shutdown stops every active session and waits for their pipelines to
// drain.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*activeSession, 0, len(m.active))
	for id, sess := range m.active {
		sessions = append(sessions, sess)
		delete(m.active, id)
	}
	m.mu.Unlock()

	for _, sess := range sessions {
		close(sess.stop)
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (sess *activeSession) snapshot(cfg *config.Config) Status {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	status := Status{
		SessionID:      sess.id,
		UserID:         sess.userID,
		VideoID:        sess.videoID,
		State:          sess.state,
		ClusterID:      sess.clusterID,
		WindowsEmitted: sess.windowsEmitted,
		WindowsFailed:  sess.windowsFailed,
		SamplesDropped: sess.samplesDropped,
		LastSampleAt:   sess.lastSampleAt,
	}
	if video, ok := cfg.VideoByID(sess.videoID); ok && video.DurationMs > 0 {
		elapsed := float64(sess.windowsEmitted) * cfg.WindowDuration().Seconds() * 1000
		pct := elapsed / float64(video.DurationMs) * 100
		if pct > 100 {
			pct = 100
		}
		status.ProgressPct = pct
	}
	return status
}
