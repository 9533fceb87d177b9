package store

import (
	"time"

	"affect/internal/classifier"
)

// SessionState tracks a session through its lifecycle.
type SessionState string

const (
	StateIdle       SessionState = "idle"
	StateStarting   SessionState = "starting"
	StateProcessing SessionState = "processing"
	StateStopping   SessionState = "stopping"
	StateTerminated SessionState = "terminated"
	StateError      SessionState = "error"
)

// SessionRecord is the persisted view of one viewing session.
type SessionRecord struct {
	SessionID      string
	UserID         string
	VideoID        int64
	State          SessionState
	ClusterID      *int
	OriginTs       int64
	ErrorMessage   string
	WindowsEmitted int64
	WindowsFailed  int64
	SamplesDropped int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Prediction is one persisted per-window verdict together with the
// intermediate values that produced it.
type Prediction struct {
	SessionID     string
	UserID        string
	VideoID       int64
	WindowIndex   int64
	WindowStartTs int64
	WindowEndTs   int64
	Probe         classifier.Probe
	Probabilities [4]float64
	ChangeScore   float64
	GSRDiff       float64
	HRDiff        float64
	ClusterID     int
	CreatedAt     time.Time
}

// PredictionFilter narrows QueryPredictions results. Zero-value fields are
// ignored.
type PredictionFilter struct {
	SessionID  string
	UserID     string
	VideoID    int64
	SinceIndex *int64
	Limit      int
}
