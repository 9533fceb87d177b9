package changepoint_test

import (
	"math"
	"testing"

	"affect/internal/changepoint"
)

func flatRun(n int, gsr, hr float64) [][2]float64 {
	out := make([][2]float64, n)
	for i := range out {
		// Small deterministic ripple so the kernel bandwidth stays positive.
		out[i] = [2]float64{gsr + 0.01*float64(i%5), hr + 0.02*float64(i%3)}
	}
	return out
}

func TestScoreDeterministic(t *testing.T) {
	scorer := changepoint.NewScorer(0.1, 0.1, 25)
	ref := flatRun(25, 2.0, 70)
	test := flatRun(25, 2.6, 78)

	first := scorer.Score(ref, test)
	second := scorer.Score(ref, test)
	if first != second {
		t.Fatalf("score not deterministic: %f vs %f", first, second)
	}
	if first < 0 {
		t.Fatalf("score must be non-negative, got %f", first)
	}
}

func TestScoreShiftExceedsSteadyState(t *testing.T) {
	scorer := changepoint.NewScorer(0.1, 0.1, 25)

	steadyRef := flatRun(25, 2.0, 70)
	steadyTest := flatRun(25, 2.0, 70)
	steady := scorer.Score(steadyRef, steadyTest)

	shiftedTest := flatRun(25, 8.0, 95)
	shifted := scorer.Score(steadyRef, shiftedTest)

	if shifted <= steady {
		t.Fatalf("expected shift score %f to exceed steady score %f", shifted, steady)
	}
}

func TestScoreInsufficientSamples(t *testing.T) {
	scorer := changepoint.NewScorer(0.1, 0.1, 25)

	if got := scorer.Score(nil, flatRun(25, 2, 70)); got != 0 {
		t.Fatalf("expected zero score without reference, got %f", got)
	}
	if got := scorer.Score(flatRun(1, 2, 70), flatRun(25, 2, 70)); got != 0 {
		t.Fatalf("expected zero score with single reference sample, got %f", got)
	}
}

func TestScoreDegenerateIdenticalPoints(t *testing.T) {
	scorer := changepoint.NewScorer(0.1, 0.1, 25)

	identical := make([][2]float64, 10)
	for i := range identical {
		identical[i] = [2]float64{3.0, 72.0}
	}
	got := scorer.Score(identical, identical)
	if got != 0 {
		t.Fatalf("expected zero score for zero-variance input, got %f", got)
	}
}

func TestScoreUsesTrailingSubWindow(t *testing.T) {
	scorer := changepoint.NewScorer(0.1, 0.1, 10)

	// Long reference run whose older half differs wildly; only the trailing
	// sub-window should matter.
	ref := append(flatRun(40, 50, 200), flatRun(10, 2.0, 70)...)
	test := flatRun(10, 2.0, 70)
	trimmed := scorer.Score(ref, test)

	direct := scorer.Score(flatRun(10, 2.0, 70), test)
	if math.Abs(trimmed-direct) > 1e-9 {
		t.Fatalf("trailing sub-window not honored: %f vs %f", trimmed, direct)
	}
}
