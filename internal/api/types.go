package api

import "affect/internal/signal"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Probabilities is the per-quadrant probability distribution of one
// prediction.
type Probabilities struct {
	HH float64 `json:"hh"`
	HL float64 `json:"hl"`
	LH float64 `json:"lh"`
	LL float64 `json:"ll"`
}

// Prediction describes one per-window verdict in a transport-friendly
// format.
type Prediction struct {
	SessionID     string        `json:"sessionId"`
	UserID        string        `json:"userId"`
	VideoID       int64         `json:"videoId"`
	WindowIndex   int64         `json:"windowIndex"`
	WindowStartTs int64         `json:"windowStartTs"`
	WindowEndTs   int64         `json:"windowEndTs"`
	Probe         string        `json:"probe"`
	Valence       int           `json:"valence"`
	Arousal       int           `json:"arousal"`
	Probabilities Probabilities `json:"probabilities"`
	ChangeScore   float64       `json:"changeScore"`
	GSRDiff       float64       `json:"gsrDiff"`
	HRDiff        float64       `json:"hrDiff"`
	ClusterID     int           `json:"clusterId"`
	CreatedAt     string        `json:"createdAt,omitempty"`
}

// PredictionsResponse wraps a prediction listing.
type PredictionsResponse struct {
	Predictions []Prediction `json:"predictions"`
}

// SessionInfo summarizes one session for API consumers.
type SessionInfo struct {
	SessionID      string  `json:"sessionId"`
	UserID         string  `json:"userId"`
	VideoID        int64   `json:"videoId"`
	State          string  `json:"state"`
	ClusterID      *int    `json:"clusterId,omitempty"`
	WindowsEmitted int64   `json:"windowsEmitted"`
	WindowsFailed  int64   `json:"windowsFailed"`
	SamplesDropped int64   `json:"samplesDropped"`
	ProgressPct    float64 `json:"progressPercent"`
	ErrorMessage   string  `json:"errorMessage,omitempty"`
	CreatedAt      string  `json:"createdAt,omitempty"`
	UpdatedAt      string  `json:"updatedAt,omitempty"`
}

// SessionResponse wraps a single session.
type SessionResponse struct {
	Session SessionInfo `json:"session"`
}

// SessionListResponse wraps a session listing.
type SessionListResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// StartSessionRequest opens a session. SessionID is optional; the daemon
// generates one when omitted.
type StartSessionRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId"`
	VideoID   int64  `json:"videoId"`
	StartTs   int64  `json:"startTs,omitempty"`
}

// StopSessionRequest closes a session.
type StopSessionRequest struct {
	SessionID string `json:"sessionId"`
}

// BaselineRequest records a resting baseline for a user. Samples keep the
// sensor wire layout.
type BaselineRequest struct {
	UserID  string          `json:"user_id"`
	Samples []signal.Sample `json:"samples"`
}

// BaselineResponse reports the computed profile.
type BaselineResponse struct {
	UserID      string  `json:"userId"`
	MeanGSR     float64 `json:"meanGsr"`
	MeanHR      float64 `json:"meanHr"`
	SampleCount int     `json:"sampleCount"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running           bool          `json:"running"`
	PID               int           `json:"pid"`
	DBPath            string        `json:"dbPath"`
	LockFilePath      string        `json:"lockFilePath"`
	ActiveSessions    int           `json:"activeSessions"`
	LoadedModels      int           `json:"loadedModels"`
	PredictionsLogged int64         `json:"predictionsLogged"`
	PredictionsCached int64         `json:"predictionsCached"`
	Sessions          []SessionInfo `json:"sessions"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}
