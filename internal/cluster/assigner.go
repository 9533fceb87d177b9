package cluster

import (
	"fmt"
	"math"
	"sort"

	"affect/internal/config"
)

// VectorDimensions is the length of the profile vector compared against the
// configured centroids: mean and standard deviation of the lower and upper
// halves of the recent GSR and HR deviations.
const VectorDimensions = 8

// Assigner maps a user's recent baseline deviations onto the nearest
// configured response-profile centroid. Assignments made from short
// histories are provisional; Ready reports when enough history has
// accumulated for an assignment to latch.
type Assigner struct {
	centroids [][]float64
	history   int
	scale     float64
}

// NewAssigner validates the centroid table and builds an assigner.
func NewAssigner(cfg config.Cluster) (*Assigner, error) {
	if len(cfg.Centroids) == 0 {
		return nil, fmt.Errorf("cluster assigner requires at least one centroid")
	}
	for i, centroid := range cfg.Centroids {
		if len(centroid) != VectorDimensions {
			return nil, fmt.Errorf("centroid %d has %d dimensions, expected %d", i, len(centroid), VectorDimensions)
		}
	}
	scale := cfg.DeviationScale
	if scale <= 0 {
		scale = 1
	}
	history := cfg.HistoryWindows
	if history <= 0 {
		history = VectorDimensions
	}
	return &Assigner{centroids: cfg.Centroids, history: history, scale: scale}, nil
}

// HistoryWindows reports how many windows of deviations Assign expects.
func (a *Assigner) HistoryWindows() int {
	return a.history
}

// Ready reports whether enough history has accumulated for a stable
// assignment.
func (a *Assigner) Ready(observed int) bool {
	return observed >= a.history
}

// Assign returns the index of the nearest centroid for the given deviation
// history. The two slices hold per-window GSR and HR baseline deviations in
// window order and must be the same length.
func (a *Assigner) Assign(gsrDiffs, hrDiffs []float64) (int, error) {
	vector, err := a.Vector(gsrDiffs, hrDiffs)
	if err != nil {
		return 0, err
	}

	best := 0
	bestDist := math.Inf(1)
	for i, centroid := range a.centroids {
		var dist float64
		for d := range centroid {
			diff := vector[d] - centroid[d]
			dist += diff * diff
		}
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best, nil
}

// Vector builds the profile vector compared against the centroids. Each
// signal's deviations are sorted and split at the median; the vector is the
// mean and standard deviation of each half, GSR halves first.
func (a *Assigner) Vector(gsrDiffs, hrDiffs []float64) ([]float64, error) {
	if len(gsrDiffs) != len(hrDiffs) {
		return nil, fmt.Errorf("deviation histories differ in length: %d gsr, %d hr", len(gsrDiffs), len(hrDiffs))
	}
	if len(gsrDiffs) < 2 {
		return nil, fmt.Errorf("profile vector needs at least 2 windows of history, have %d", len(gsrDiffs))
	}

	vector := make([]float64, 0, VectorDimensions)
	for _, diffs := range [][]float64{gsrDiffs, hrDiffs} {
		lower, upper := splitAtMedian(diffs)
		for _, half := range [][]float64{lower, upper} {
			mean, std := meanStd(half)
			vector = append(vector, mean*a.scale, std*a.scale)
		}
	}
	return vector, nil
}

func splitAtMedian(values []float64) (lower, upper []float64) {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	return sorted[:mid], sorted[mid:]
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	for _, v := range values {
		diff := v - mean
		std += diff * diff
	}
	std = math.Sqrt(std / float64(len(values)))
	return mean, std
}
