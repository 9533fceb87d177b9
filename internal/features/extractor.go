package features

import (
	"fmt"
	"math"

	"affect/internal/baseline"
	"affect/internal/config"
	"affect/internal/signal"
)

// FeatureWidth is the number of values in one window's feature vector.
const FeatureWidth = 6

// Vector is the per-window input to the classifier. GSRDiff and HRDiff are
// absolute deviations from the user's baseline means, Valence and Arousal
// come from the stimulus annotation for the session's video, and PrevClass
// carries the previous window's predicted probe forward as context.
type Vector struct {
	WindowIndex int64
	ChangeScore float64
	GSRDiff     float64
	HRDiff      float64
	PrevClass   float64
	Valence     float64
	Arousal     float64
}

// Values flattens the vector in classifier input order.
func (v Vector) Values() []float64 {
	return []float64{v.ChangeScore, v.GSRDiff, v.HRDiff, v.PrevClass, v.Valence, v.Arousal}
}

// Extractor builds feature vectors from closed windows. It is stateless
// beyond its configuration and safe for concurrent use across sessions.
type Extractor struct {
	baselines *baseline.Store
	videos    map[int64]config.Video
}

// NewExtractor constructs an extractor over the configured video catalog.
func NewExtractor(baselines *baseline.Store, videos []config.Video) *Extractor {
	catalog := make(map[int64]config.Video, len(videos))
	for _, v := range videos {
		catalog[v.ID] = v
	}
	return &Extractor{baselines: baselines, videos: catalog}
}

// Extract computes the feature vector for one window. It fails when the
// user has no recorded baseline or the session references an unknown video.
func (e *Extractor) Extract(userID string, videoID int64, window signal.Window, changeScore, prevClass float64) (Vector, error) {
	profile, err := e.baselines.Get(userID)
	if err != nil {
		return Vector{}, fmt.Errorf("extract features for window %d: %w", window.Index, err)
	}
	video, ok := e.videos[videoID]
	if !ok {
		return Vector{}, fmt.Errorf("extract features for window %d: video %d is not configured", window.Index, videoID)
	}

	return Vector{
		WindowIndex: window.Index,
		ChangeScore: changeScore,
		GSRDiff:     math.Abs(profile.MeanGSR - window.MeanGSR()),
		HRDiff:      math.Abs(profile.MeanHR - window.MeanHR()),
		PrevClass:   prevClass,
		Valence:     float64(video.Valence),
		Arousal:     float64(video.Arousal),
	}, nil
}
