package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"affect/internal/baseline"
	"affect/internal/changepoint"
	"affect/internal/classifier"
	"affect/internal/cluster"
	"affect/internal/features"
	"affect/internal/logging"
	"affect/internal/services"
	"affect/internal/signal"
	"affect/internal/store"
)

// Sink persists finished predictions and session-level updates. Implemented
// by store.Store; narrowed here so tests can observe writes.
type Sink interface {
	AppendPrediction(ctx context.Context, p store.Prediction) error
	SetSessionCluster(ctx context.Context, sessionID string, clusterID int) error
}

// Outcome reports what happened to one window. A window that could not be
// classified carries the change score and features but no prediction.
type Outcome struct {
	WindowIndex int64
	ChangeScore float64
	Features    features.Vector
	Prediction  *store.Prediction
	Skipped     string
}

// Runner executes the prediction sequence for one session's windows. It is
// not safe for concurrent use; each session owns one runner and feeds it
// windows in order.
type Runner struct {
	sessionID string
	userID    string
	videoID   int64

	scorer    *changepoint.Scorer
	extractor *features.Extractor
	assigner  *cluster.Assigner
	registry  *classifier.Registry
	sink      Sink
	logger    *slog.Logger

	lookBack int

	prevWindow  [][2]float64
	prevClass   float64
	gsrHistory  []float64
	hrHistory   []float64
	sequence     [][]float64
	clusterID    int
	clusterSet   bool
	clusterFinal bool
	model        classifier.Classifier
	modelFailed  bool
}

// Params collects the collaborators for one session runner.
type Params struct {
	SessionID string
	UserID    string
	VideoID   int64
	LookBack  int

	Scorer    *changepoint.Scorer
	Extractor *features.Extractor
	Assigner  *cluster.Assigner
	Registry  *classifier.Registry
	Sink      Sink
	Logger    *slog.Logger
}

// NewRunner builds a runner for one session.
func NewRunner(params Params) (*Runner, error) {
	if params.Scorer == nil || params.Extractor == nil || params.Assigner == nil || params.Registry == nil || params.Sink == nil {
		return nil, errors.New("pipeline runner requires scorer, extractor, assigner, registry, and sink")
	}
	lookBack := params.LookBack
	if lookBack < 1 {
		lookBack = 1
	}
	return &Runner{
		sessionID: params.SessionID,
		userID:    params.UserID,
		videoID:   params.VideoID,
		scorer:    params.Scorer,
		extractor: params.Extractor,
		assigner:  params.Assigner,
		registry:  params.Registry,
		sink:      params.Sink,
		logger:    logging.NewComponentLogger(params.Logger, "pipeline"),
		lookBack:  lookBack,
	}, nil
}

// ProcessWindow runs one closed window through the full sequence. The
// returned error marks the window failed; the caller keeps the session
// alive and feeds the next window.
func (r *Runner) ProcessWindow(ctx context.Context, window signal.Window) (Outcome, error) {
	ctx = services.WithSessionID(ctx, r.sessionID)
	ctx = services.WithWindowIndex(ctx, window.Index)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	log := logging.WithContext(ctx, r.logger)

	values := window.Values()
	changeScore := 0.0
	if r.prevWindow != nil {
		changeScore = r.scorer.Score(r.prevWindow, values)
	}
	r.prevWindow = values

	vector, err := r.extractor.Extract(r.userID, r.videoID, window, changeScore, r.prevClass)
	if err != nil {
		if errors.Is(err, baseline.ErrMissing) {
			err = services.Wrap(services.ErrValidation, "features", "extract",
				"no baseline recorded for user", err)
		}
		log.Error("window failed during feature extraction", logging.Error(err))
		return Outcome{WindowIndex: window.Index, ChangeScore: changeScore}, err
	}

	r.gsrHistory = append(r.gsrHistory, vector.GSRDiff)
	r.hrHistory = append(r.hrHistory, vector.HRDiff)
	r.sequence = append(r.sequence, vector.Values())
	if len(r.sequence) > r.lookBack {
		r.sequence = r.sequence[len(r.sequence)-r.lookBack:]
	}

	outcome := Outcome{WindowIndex: window.Index, ChangeScore: changeScore, Features: vector}

	if !r.clusterFinal {
		if err := r.assignCluster(ctx, log); err != nil {
			return outcome, err
		}
	}

	if r.model == nil {
		outcome.Skipped = "classifier unavailable"
		if !r.modelFailed {
			r.modelFailed = true
			log.Warn("no classifier for assigned cluster, predictions suspended",
				logging.Int("cluster_id", r.clusterID))
		}
		return outcome, fmt.Errorf("cluster %d: %w", r.clusterID, classifier.ErrUnavailable)
	}
	// Early windows have fewer vectors than the model's look-back; repeat
	// the oldest vector so every window is classified.
	sequence := r.sequence
	if len(sequence) < r.lookBack {
		padded := make([][]float64, 0, r.lookBack)
		for i := len(sequence); i < r.lookBack; i++ {
			padded = append(padded, sequence[0])
		}
		sequence = append(padded, sequence...)
	}

	prediction, err := r.model.Classify(sequence)
	if err != nil {
		log.Error("window failed during classification", logging.Error(err))
		return outcome, services.Wrap(services.ErrTransient, "classify", "classify",
			"classifier rejected window sequence", err)
	}
	r.prevClass = float64(prediction.Probe.Index())

	record := store.Prediction{
		SessionID:     r.sessionID,
		UserID:        r.userID,
		VideoID:       r.videoID,
		WindowIndex:   window.Index,
		WindowStartTs: window.StartTs,
		WindowEndTs:   window.EndTs,
		Probe:         prediction.Probe,
		Probabilities: prediction.Probabilities,
		ChangeScore:   changeScore,
		GSRDiff:       vector.GSRDiff,
		HRDiff:        vector.HRDiff,
		ClusterID:     r.clusterID,
	}
	if err := r.sink.AppendPrediction(ctx, record); err != nil {
		if errors.Is(err, store.ErrDuplicatePrediction) {
			log.Warn("prediction already recorded for window, keeping original",
				logging.Error(err))
			return outcome, err
		}
		log.Error("window failed during persistence", logging.Error(err))
		return outcome, services.Wrap(services.ErrTransient, "persist", "append",
			"prediction write failed after retries", err)
	}

	outcome.Prediction = &record
	log.Info("window predicted",
		logging.String("probe", string(prediction.Probe)),
		logging.Float64("change_score", changeScore),
		logging.Int("cluster_id", r.clusterID),
	)
	return outcome, nil
}

// assignCluster maps the deviation history so far onto a profile centroid.
// Early windows get a provisional assignment that is recomputed as history
// grows; once enough windows have accumulated the assignment latches.
func (r *Runner) assignCluster(ctx context.Context, log *slog.Logger) error {
	gsr, hr := r.gsrHistory, r.hrHistory
	if len(gsr) == 1 {
		// A single deviation cannot be split at its median; duplicate it.
		gsr = []float64{gsr[0], gsr[0]}
		hr = []float64{hr[0], hr[0]}
	}
	id, err := r.assigner.Assign(gsr, hr)
	if err != nil {
		return services.Wrap(services.ErrTransient, "cluster", "assign",
			"cluster assignment failed", err)
	}
	r.clusterFinal = r.assigner.Ready(len(r.gsrHistory))

	if r.clusterSet && id == r.clusterID {
		return nil
	}
	r.clusterID = id
	r.clusterSet = true
	if err := r.sink.SetSessionCluster(ctx, r.sessionID, id); err != nil {
		log.Warn("cluster assignment not persisted", logging.Error(err))
	}
	r.model = nil
	r.modelFailed = false
	if model, err := r.registry.Get(id); err == nil {
		r.model = model
		if lb := model.LookBack(); lb > 0 {
			r.lookBack = lb
		}
	}
	log.Info("session assigned to response profile",
		logging.Int("cluster_id", id),
		logging.Bool("provisional", !r.clusterFinal),
	)
	return nil
}

// ClusterID reports the assigned cluster, if any.
func (r *Runner) ClusterID() (int, bool) {
	return r.clusterID, r.clusterSet
}
