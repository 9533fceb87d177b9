package classifier_test

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"affect/internal/classifier"
	"affect/internal/logging"
)

// writeModel writes a model file whose class logits are driven entirely by
// the first feature of the newest window: class i gets weight i there, so
// larger inputs push probability mass to higher class indices.
func writeModel(t *testing.T, dir string, clusterID int) string {
	t.Helper()
	weights := make([][][]float64, 4)
	for class := range weights {
		weights[class] = make([][]float64, 3)
		for step := range weights[class] {
			weights[class][step] = make([]float64, 6)
		}
		weights[class][2][0] = float64(class)
	}
	file := map[string]any{
		"cluster_id":    clusterID,
		"look_back":     3,
		"feature_width": 6,
		"weights":       weights,
		"bias":          []float64{0, 0, 0, 0},
	}
	raw, err := json.Marshal(file)
	if err != nil {
		t.Fatalf("marshal model: %v", err)
	}
	path := filepath.Join(dir, "cluster_"+string(rune('0'+clusterID))+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	return path
}

func sequence(newestFirstFeature float64) [][]float64 {
	seq := make([][]float64, 3)
	for i := range seq {
		seq[i] = make([]float64, 6)
	}
	seq[2][0] = newestFirstFeature
	return seq
}

func TestLoadModelAndClassify(t *testing.T) {
	dir := t.TempDir()
	path := writeModel(t, dir, 0)

	model, err := classifier.LoadModel(path)
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}
	if model.LookBack() != 3 {
		t.Fatalf("look back = %d, expected 3", model.LookBack())
	}

	// A strongly positive input drives the highest-weighted class, LL.
	pred, err := model.Classify(sequence(10))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if pred.Probe != classifier.ProbeLL {
		t.Fatalf("probe = %s, expected LL", pred.Probe)
	}

	var sum float64
	for _, p := range pred.Probabilities {
		if p < 0 || p > 1 {
			t.Fatalf("probability %f outside [0, 1]", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities sum to %f, expected 1", sum)
	}
}

func TestClassifyTieBreaksToLowestIndex(t *testing.T) {
	dir := t.TempDir()
	model, err := classifier.LoadModel(writeModel(t, dir, 0))
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}

	// Zero input zeroes every logit; all four classes tie.
	pred, err := model.Classify(sequence(0))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if pred.Probe != classifier.ProbeHH {
		t.Fatalf("tied logits resolved to %s, expected HH", pred.Probe)
	}
}

func TestClassifyRejectsBadSequence(t *testing.T) {
	dir := t.TempDir()
	model, err := classifier.LoadModel(writeModel(t, dir, 0))
	if err != nil {
		t.Fatalf("LoadModel failed: %v", err)
	}

	if _, err := model.Classify(sequence(0)[:2]); err == nil {
		t.Fatal("expected error for short sequence")
	}
	bad := sequence(0)
	bad[1] = bad[1][:4]
	if _, err := model.Classify(bad); err == nil {
		t.Fatal("expected error for narrow feature vector")
	}
}

func TestLoadModelValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cluster_0.json")
	if err := os.WriteFile(path, []byte(`{"look_back":3,"feature_width":6,"weights":[],"bias":[]}`), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	if _, err := classifier.LoadModel(path); err == nil {
		t.Fatal("expected validation error for empty weight table")
	}
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, 0)
	writeModel(t, dir, 1)

	registry, err := classifier.LoadRegistry(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("LoadRegistry failed: %v", err)
	}
	if registry.Len() != 2 {
		t.Fatalf("loaded %d models, expected 2", registry.Len())
	}
	if _, err := registry.Get(0); err != nil {
		t.Fatalf("Get(0) failed: %v", err)
	}
	if _, err := registry.Get(7); !errors.Is(err, classifier.ErrUnavailable) {
		t.Fatalf("Get(7) = %v, expected ErrUnavailable", err)
	}
}

func TestLoadRegistryEmptyDir(t *testing.T) {
	registry, err := classifier.LoadRegistry(t.TempDir(), logging.NewNop())
	if err != nil {
		t.Fatalf("LoadRegistry failed: %v", err)
	}
	if registry.Len() != 0 {
		t.Fatalf("loaded %d models from empty dir", registry.Len())
	}
}

func TestLoadRegistryRejectsMalformedModel(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cluster_0.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	if _, err := classifier.LoadRegistry(dir, logging.NewNop()); err == nil {
		t.Fatal("expected load failure for malformed model file")
	}
}

func TestProbeComponents(t *testing.T) {
	cases := []struct {
		probe            classifier.Probe
		valence, arousal int
	}{
		{classifier.ProbeHH, 1, 1},
		{classifier.ProbeHL, 1, 0},
		{classifier.ProbeLH, 0, 1},
		{classifier.ProbeLL, 0, 0},
	}
	for _, tc := range cases {
		if tc.probe.Valence() != tc.valence || tc.probe.Arousal() != tc.arousal {
			t.Fatalf("%s components = (%d, %d), expected (%d, %d)",
				tc.probe, tc.probe.Valence(), tc.probe.Arousal(), tc.valence, tc.arousal)
		}
	}
	if classifier.Probe("XX").Index() != -1 {
		t.Fatal("unknown probe should index to -1")
	}
}
