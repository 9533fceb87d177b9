// Package changepoint scores distributional shift between consecutive runs
// of physiological samples using relative density-ratio estimation (RuLSIF).
//
// The score for a window is the symmetrized alpha-relative Pearson
// divergence estimate between a trailing reference sub-window and the
// current test sub-window. It is advisory: downstream classification does
// not gate on it.
package changepoint
