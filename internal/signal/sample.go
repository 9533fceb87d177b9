package signal

// Sample is one physiological reading tied to a viewing session. Samples are
// immutable once ingested.
type Sample struct {
	SequenceIndex int64   `json:"sequence_index"`
	GSR           float64 `json:"gsr"`
	HR            float64 `json:"hr"`
	TimestampMs   int64   `json:"timestamp_ms"`
	UserID        string  `json:"user_id"`
	SessionID     string  `json:"session_id"`
}

// Window is a closed run of samples covering one fixed-duration interval.
// Windows within a session are strictly increasing and non-overlapping; only
// a session's final window may span less than the configured duration.
type Window struct {
	Index   int64
	StartTs int64
	EndTs   int64
	Samples []Sample
}

// MeanGSR returns the arithmetic mean of the window's skin-conductance values.
func (w Window) MeanGSR() float64 {
	if len(w.Samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range w.Samples {
		sum += s.GSR
	}
	return sum / float64(len(w.Samples))
}

// MeanHR returns the arithmetic mean of the window's heart-rate values.
func (w Window) MeanHR() float64 {
	if len(w.Samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range w.Samples {
		sum += s.HR
	}
	return sum / float64(len(w.Samples))
}

// Values returns the window's samples as (gsr, hr) pairs for scoring.
func (w Window) Values() [][2]float64 {
	out := make([][2]float64, len(w.Samples))
	for i, s := range w.Samples {
		out[i] = [2]float64{s.GSR, s.HR}
	}
	return out
}
