package features_test

import (
	"context"
	"errors"
	"testing"

	"affect/internal/baseline"
	"affect/internal/config"
	"affect/internal/features"
	"affect/internal/logging"
	"affect/internal/signal"
)

func newExtractor(t *testing.T) (*features.Extractor, *baseline.Store) {
	t.Helper()
	baselines := baseline.NewStore(nil, logging.NewNop())
	videos := []config.Video{
		{ID: 1, Valence: 1, Arousal: 1, DurationMs: 180000},
		{ID: 3, Valence: 0, Arousal: 0, DurationMs: 160000},
	}
	return features.NewExtractor(baselines, videos), baselines
}

func testWindow() signal.Window {
	return signal.Window{
		Index: 2,
		Samples: []signal.Sample{
			{GSR: 4, HR: 80},
			{GSR: 6, HR: 90},
		},
	}
}

func TestExtractBaselineRelativeDeviations(t *testing.T) {
	extractor, baselines := newExtractor(t)
	if _, err := baselines.Record(context.Background(), "user-1", []signal.Sample{
		{GSR: 2, HR: 70},
		{GSR: 4, HR: 74},
	}); err != nil {
		t.Fatalf("record baseline: %v", err)
	}

	vector, err := extractor.Extract("user-1", 1, testWindow(), 0.42, 0)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}

	// Baseline means: gsr 3, hr 72. Window means: gsr 5, hr 85.
	if vector.GSRDiff != 2 {
		t.Fatalf("gsr diff = %f, expected 2", vector.GSRDiff)
	}
	if vector.HRDiff != 13 {
		t.Fatalf("hr diff = %f, expected 13", vector.HRDiff)
	}
	if vector.Valence != 1 || vector.Arousal != 1 {
		t.Fatalf("video annotation = (%f, %f), expected (1, 1)", vector.Valence, vector.Arousal)
	}
	if vector.ChangeScore != 0.42 {
		t.Fatalf("change score = %f, expected passthrough", vector.ChangeScore)
	}
}

func TestExtractDeviationIsAbsolute(t *testing.T) {
	extractor, baselines := newExtractor(t)
	// Baseline sits above the window so the raw difference is negative.
	if _, err := baselines.Record(context.Background(), "user-1", []signal.Sample{
		{GSR: 9, HR: 100},
	}); err != nil {
		t.Fatalf("record baseline: %v", err)
	}

	vector, err := extractor.Extract("user-1", 3, testWindow(), 0, 0)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if vector.GSRDiff != 4 {
		t.Fatalf("gsr diff = %f, expected 4", vector.GSRDiff)
	}
	if vector.HRDiff != 15 {
		t.Fatalf("hr diff = %f, expected 15", vector.HRDiff)
	}
}

func TestExtractMissingBaseline(t *testing.T) {
	extractor, _ := newExtractor(t)

	_, err := extractor.Extract("stranger", 1, testWindow(), 0, 0)
	if !errors.Is(err, baseline.ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
}

func TestExtractUnknownVideo(t *testing.T) {
	extractor, baselines := newExtractor(t)
	if _, err := baselines.Record(context.Background(), "user-1", []signal.Sample{{GSR: 1, HR: 60}}); err != nil {
		t.Fatalf("record baseline: %v", err)
	}

	if _, err := extractor.Extract("user-1", 9, testWindow(), 0, 0); err == nil {
		t.Fatal("expected error for unconfigured video")
	}
}

func TestVectorValuesOrder(t *testing.T) {
	vector := features.Vector{
		ChangeScore: 1, GSRDiff: 2, HRDiff: 3, PrevClass: 4, Valence: 5, Arousal: 6,
	}
	values := vector.Values()
	if len(values) != features.FeatureWidth {
		t.Fatalf("width = %d, expected %d", len(values), features.FeatureWidth)
	}
	for i, want := range []float64{1, 2, 3, 4, 5, 6} {
		if values[i] != want {
			t.Fatalf("values[%d] = %f, expected %f", i, values[i], want)
		}
	}
}
