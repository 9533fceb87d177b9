// Package signal defines the physiological sample model and the
// fixed-duration windowing buffer that feeds the per-session pipeline.
package signal
