// Package features turns closed signal windows into the fixed-width
// vectors the downstream classifier consumes. Physiological values are
// expressed relative to the user's baseline so per-person resting levels
// do not dominate the signal.
package features
