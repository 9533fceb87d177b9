package api

import (
	"affect/internal/session"
	"affect/internal/store"
)

// FromPrediction converts a persisted prediction into its DTO.
func FromPrediction(p store.Prediction) Prediction {
	out := Prediction{
		SessionID:     p.SessionID,
		UserID:        p.UserID,
		VideoID:       p.VideoID,
		WindowIndex:   p.WindowIndex,
		WindowStartTs: p.WindowStartTs,
		WindowEndTs:   p.WindowEndTs,
		Probe:         string(p.Probe),
		Valence:       p.Probe.Valence(),
		Arousal:       p.Probe.Arousal(),
		Probabilities: Probabilities{
			HH: p.Probabilities[0],
			HL: p.Probabilities[1],
			LH: p.Probabilities[2],
			LL: p.Probabilities[3],
		},
		ChangeScore: p.ChangeScore,
		GSRDiff:     p.GSRDiff,
		HRDiff:      p.HRDiff,
		ClusterID:   p.ClusterID,
	}
	if !p.CreatedAt.IsZero() {
		out.CreatedAt = p.CreatedAt.Format(dateTimeFormat)
	}
	return out
}

// FromPredictions converts a prediction listing.
func FromPredictions(predictions []store.Prediction) []Prediction {
	out := make([]Prediction, 0, len(predictions))
	for _, p := range predictions {
		out = append(out, FromPrediction(p))
	}
	return out
}

// FromSessionRecord converts a persisted session into its DTO.
func FromSessionRecord(record *store.SessionRecord) SessionInfo {
	out := SessionInfo{
		SessionID:      record.SessionID,
		UserID:         record.UserID,
		VideoID:        record.VideoID,
		State:          string(record.State),
		ClusterID:      record.ClusterID,
		WindowsEmitted: record.WindowsEmitted,
		WindowsFailed:  record.WindowsFailed,
		SamplesDropped: record.SamplesDropped,
		ErrorMessage:   record.ErrorMessage,
	}
	if !record.CreatedAt.IsZero() {
		out.CreatedAt = record.CreatedAt.Format(dateTimeFormat)
	}
	if !record.UpdatedAt.IsZero() {
		out.UpdatedAt = record.UpdatedAt.Format(dateTimeFormat)
	}
	return out
}

// FromSessionStatus converts a live session snapshot into its DTO.
func FromSessionStatus(status session.Status) SessionInfo {
	return SessionInfo{
		SessionID:      status.SessionID,
		UserID:         status.UserID,
		VideoID:        status.VideoID,
		State:          string(status.State),
		ClusterID:      status.ClusterID,
		WindowsEmitted: status.WindowsEmitted,
		WindowsFailed:  status.WindowsFailed,
		SamplesDropped: status.SamplesDropped,
		ProgressPct:    status.ProgressPct,
	}
}
